// Package handler serves experiment condition lookups.
package handler

import (
	"context"
	"net/http"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/server/httpjson"
)

// ExperimentService returns a user's condition in an experiment.
type ExperimentService interface {
	Condition(ctx context.Context, userID, experimentID string) (int, error)
}

// Handler serves POST /api/experiment.
type Handler struct {
	experiments ExperimentService
	open        httpjson.Opener
}

// NewHandler returns a Handler. open authenticates release-bound envelopes.
func NewHandler(experiments ExperimentService, open httpjson.Opener) *Handler {
	return &Handler{experiments: experiments, open: open}
}

// Register adds the experiment route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/experiment", h.condition)
}

type conditionRequest struct {
	UserID       *string `json:"user_id"`
	ExperimentID *string `json:"experiment_id"`
}

type conditionResponse struct {
	Condition int `json:"condition"`
}

func (h *Handler) condition(w http.ResponseWriter, r *http.Request) {
	var req conditionRequest
	if _, err := httpjson.OpenEnvelope(r, h.open, &req); err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	var missing []string
	if req.UserID == nil {
		missing = append(missing, "user_id")
	}
	if req.ExperimentID == nil {
		missing = append(missing, "experiment_id")
	}
	if len(missing) > 0 {
		httpjson.WriteError(w, r, apperr.Validation("missing fields", missing...))
		return
	}
	cond, err := h.experiments.Condition(r.Context(), *req.UserID, *req.ExperimentID)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, conditionResponse{Condition: cond})
}
