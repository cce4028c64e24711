// Package handler serves event batch ingestion.
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"playlog/backend/internal/server/httpjson"
)

// EventService ingests a batch of records for a session.
type EventService interface {
	Ingest(ctx context.Context, sessionID string, records []json.RawMessage) error
}

// Handler serves POST /api/event.
type Handler struct {
	events EventService
	open   httpjson.Opener
}

// NewHandler returns a Handler. open authenticates session-bound envelopes.
func NewHandler(events EventService, open httpjson.Opener) *Handler {
	return &Handler{events: events, open: open}
}

// Register adds the event route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/event", h.ingest)
}

type ingestResponse struct {
	IsSuccess bool `json:"is_success"`
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var records []json.RawMessage
	opened, err := httpjson.OpenEnvelope(r, h.open, &records)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	if err := h.events.Ingest(r.Context(), opened.ID, records); err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, ingestResponse{IsSuccess: true})
}
