// Package handler serves the release-scoped user endpoints.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/protocol"
	"playlog/backend/internal/server/httpjson"
)

// UserService is the part of the user service the handler needs.
type UserService interface {
	FindOrCreate(ctx context.Context, username string) (string, error)
	GetData(ctx context.Context, id string) (*string, error)
	SetData(ctx context.Context, id, data string) error
}

// Handler serves /api/user and the save data endpoints.
type Handler struct {
	users UserService
	open  httpjson.Opener
}

// NewHandler returns a Handler. open authenticates release-bound envelopes.
func NewHandler(users UserService, open httpjson.Opener) *Handler {
	return &Handler{users: users, open: open}
}

// Register adds the user routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/user", h.findOrCreate)
	mux.HandleFunc("POST /api/user/get_data", h.getData)
	mux.HandleFunc("POST /api/user/set_data", h.setData)
}

type findOrCreateRequest struct {
	Username *string `json:"username"`
}

type findOrCreateResponse struct {
	UserID string `json:"user_id"`
}

func (h *Handler) findOrCreate(w http.ResponseWriter, r *http.Request) {
	var req findOrCreateRequest
	if _, err := httpjson.OpenEnvelope(r, h.open, &req); err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	if req.Username == nil {
		httpjson.WriteError(w, r, apperr.Validation("missing fields", "username"))
		return
	}
	id, err := h.users.FindOrCreate(r.Context(), *req.Username)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, findOrCreateResponse{UserID: id})
}

type getDataRequest struct {
	ID *string `json:"id"`
}

type getDataResponse struct {
	ID       string  `json:"id"`
	SaveData *string `json:"savedata"`
}

func (h *Handler) getData(w http.ResponseWriter, r *http.Request) {
	var req getDataRequest
	if _, err := httpjson.OpenEnvelope(r, h.open, &req); err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	if req.ID == nil {
		httpjson.WriteError(w, r, apperr.Validation("missing fields", "id"))
		return
	}
	data, err := h.users.GetData(r.Context(), *req.ID)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, getDataResponse{ID: *req.ID, SaveData: data})
}

type setDataRequest struct {
	ID       *string         `json:"id"`
	SaveData json.RawMessage `json:"savedata"`
}

type successResponse struct {
	IsSuccess bool `json:"is_success"`
}

func (h *Handler) setData(w http.ResponseWriter, r *http.Request) {
	var req setDataRequest
	if _, err := httpjson.OpenEnvelope(r, h.open, &req); err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	var missing []string
	if req.ID == nil {
		missing = append(missing, "id")
	}
	if len(req.SaveData) == 0 {
		missing = append(missing, "savedata")
	}
	if len(missing) > 0 {
		httpjson.WriteError(w, r, apperr.Validation("missing fields", missing...))
		return
	}
	data, err := saveDataText(req.SaveData)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	if err := h.users.SetData(r.Context(), *req.ID, data); err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, successResponse{IsSuccess: true})
}

// saveDataText stores a JSON string's content verbatim and any other value as compact JSON.
func saveDataText(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	text, err := protocol.NormalizeDetail(raw)
	if err != nil {
		return "", apperr.Validation("savedata must be valid JSON", "savedata")
	}
	return text, nil
}
