// Package handler serves session creation.
package handler

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/protocol"
	"playlog/backend/internal/server/httpjson"
	"playlog/backend/internal/session/service"
)

// SessionService creates sessions.
type SessionService interface {
	Create(ctx context.Context, p service.CreateParams) (string, []byte, error)
}

// Handler serves POST /api/session.
//
// Payload: user_id and client_time are required. release_id may be sent and must equal
// the envelope release. detail (any JSON, stored as text) and library_revid are optional
// and default to empty, so clients that never sent them keep working.
type Handler struct {
	sessions SessionService
	open     httpjson.Opener
}

// NewHandler returns a Handler. open authenticates release-bound envelopes.
func NewHandler(sessions SessionService, open httpjson.Opener) *Handler {
	return &Handler{sessions: sessions, open: open}
}

// Register adds the session route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session", h.create)
}

type createRequest struct {
	UserID       *string         `json:"user_id"`
	ReleaseID    *string         `json:"release_id"`
	ClientTime   *string         `json:"client_time"`
	Detail       json.RawMessage `json:"detail"`
	LibraryRevID *string         `json:"library_revid"`
}

type createResponse struct {
	SessionID string `json:"session_id"`
	// SessionKey is hex encoded. It is returned once and never stored.
	SessionKey string `json:"session_key"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	opened, err := httpjson.OpenEnvelope(r, h.open, &req)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	params, err := createParams(opened.ID, &req)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	id, key, err := h.sessions.Create(r.Context(), params)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, createResponse{SessionID: id, SessionKey: hex.EncodeToString(key)})
}

// createParams validates the payload. The release comes from the envelope; a release_id
// in the payload is accepted only when it names the same release.
func createParams(releaseID string, req *createRequest) (service.CreateParams, error) {
	p := service.CreateParams{ReleaseID: releaseID}
	var fields []string
	if req.UserID == nil {
		fields = append(fields, "user_id")
	} else {
		p.UserID = *req.UserID
	}
	if req.ClientTime == nil {
		fields = append(fields, "client_time")
	} else if t, err := protocol.ParseClientTime(*req.ClientTime); err != nil {
		fields = append(fields, "client_time")
	} else {
		p.ClientTime = t
	}
	if req.ReleaseID != nil && !sameUUID(*req.ReleaseID, releaseID) {
		fields = append(fields, "release_id")
	}
	if detail, err := protocol.NormalizeDetail(req.Detail); err != nil {
		fields = append(fields, "detail")
	} else {
		p.Detail = detail
	}
	if req.LibraryRevID != nil {
		p.LibraryRevID = *req.LibraryRevID
	}
	if len(fields) > 0 {
		return p, apperr.Validation("invalid session", fields...)
	}
	return p, nil
}

func sameUUID(a, b string) bool {
	ua, err := uuid.Parse(a)
	if err != nil {
		return false
	}
	ub, err := uuid.Parse(b)
	return err == nil && ua == ub
}
