// Package handler serves liveness and readiness probes.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"playlog/backend/internal/server/httpjson"
)

// checkTimeout bounds a readiness probe.
const checkTimeout = 2 * time.Second

// Pinger checks store connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the export policy evaluates.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server answers /healthz and /readyz. Either dependency may be nil; a nil check passes.
type Server struct {
	pinger Pinger
	policy PolicyChecker
}

// NewServer returns a health server.
func NewServer(pinger Pinger, policy PolicyChecker) *Server {
	return &Server{pinger: pinger, policy: policy}
}

// Register adds the probe routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.live)
	mux.HandleFunc("GET /readyz", s.ready)
}

type statusResponse struct {
	Status string `json:"status"`
}

const (
	statusServing    = "serving"
	statusNotServing = "not_serving"
)

func (s *Server) live(w http.ResponseWriter, _ *http.Request) {
	httpjson.WriteJSON(w, http.StatusOK, statusResponse{Status: statusServing})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if err := s.Check(r.Context()); err != nil {
		slog.WarnContext(r.Context(), "readiness check failed", "error", err)
		httpjson.WriteJSON(w, http.StatusServiceUnavailable, statusResponse{Status: statusNotServing})
		return
	}
	httpjson.WriteJSON(w, http.StatusOK, statusResponse{Status: statusServing})
}

// Check runs the store ping and the policy check.
func (s *Server) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			return err
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			return err
		}
	}
	return nil
}
