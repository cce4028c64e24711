// Package handler serves the operator export API.
package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/export"
	policyengine "playlog/backend/internal/policy/engine"
	"playlog/backend/internal/server/httpjson"
	"playlog/backend/internal/server/middleware"
)

// Exporter reads stored data back as documents.
type Exporter interface {
	SessionRelease(ctx context.Context, sessionID string) (string, error)
	ExportSession(ctx context.Context, sessionID string) (*export.SessionDocument, error)
	ExportUser(ctx context.Context, userID string, f export.Filter) (*export.UserDocument, error)
	ExportUsers(ctx context.Context, mode export.Mode, f export.Filter) ([]export.UserDocument, error)
}

// Handler serves /admin/export. Every route requires an operator token; the policy
// evaluator decides which releases the operator sees.
type Handler struct {
	exporter Exporter
	policy   policyengine.Evaluator
	auth     func(http.Handler) http.Handler
}

// NewHandler returns a Handler. auth authenticates the operator and must store it with
// middleware.WithOperator.
func NewHandler(exporter Exporter, policy policyengine.Evaluator, auth func(http.Handler) http.Handler) *Handler {
	return &Handler{exporter: exporter, policy: policy, auth: auth}
}

// Register adds the export routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET /admin/export/sessions/{id}", h.auth(http.HandlerFunc(h.session)))
	mux.Handle("GET /admin/export/users/{id}", h.auth(http.HandlerFunc(h.user)))
	mux.Handle("GET /admin/export/users", h.auth(http.HandlerFunc(h.users)))
}

type usersResponse struct {
	Mode  export.Mode           `json:"mode"`
	Users []export.UserDocument `json:"users"`
}

// session authorizes against the session's release before any event is read.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	release, err := h.exporter.SessionRelease(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	if _, err := h.authorize(r, "session", []string{release}); err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	doc, err := h.exporter.ExportSession(r.Context(), id)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request) {
	filter, err := h.authorize(r, "user", r.URL.Query()["release"])
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	doc, err := h.exporter.ExportUser(r.Context(), r.PathValue("id"), filter)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, doc)
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode, err := export.ParseMode(q.Get("mode"))
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	filter, err := h.authorize(r, "users", q["release"])
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	docs, err := h.exporter.ExportUsers(r.Context(), mode, filter)
	if err != nil {
		httpjson.WriteError(w, r, err)
		return
	}
	if docs == nil {
		docs = []export.UserDocument{}
	}
	httpjson.WriteJSON(w, http.StatusOK, usersResponse{Mode: mode, Users: docs})
}

// authorize asks the policy about the request and returns the release filter to apply.
func (h *Handler) authorize(r *http.Request, action string, releases []string) (export.Filter, error) {
	op, ok := middleware.GetOperator(r.Context())
	if !ok {
		return export.Filter{}, apperr.ErrAuthentication
	}
	releases, err := canonical(releases)
	if err != nil {
		return export.Filter{}, err
	}
	decision, err := h.policy.EvaluateExport(r.Context(), op, policyengine.ExportRequest{Action: action, Releases: releases})
	if err != nil {
		return export.Filter{}, err
	}
	if !decision.Allowed {
		return export.Filter{}, apperr.New(apperr.KindForbidden, "export not permitted for the requested releases")
	}
	if decision.Unrestricted {
		return export.Filter{}, nil
	}
	return export.Filter{Releases: decision.Releases}, nil
}

// canonical lower-cases release ids so they compare equal to the ids in tokens and the store.
func canonical(releases []string) ([]string, error) {
	out := make([]string, 0, len(releases))
	for _, r := range releases {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, apperr.Validation("release must be a uuid", "release")
		}
		out = append(out, id.String())
	}
	return out, nil
}
