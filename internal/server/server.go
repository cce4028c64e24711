// Package server assembles the HTTP API: routes, middleware chain and the http.Server.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	eventhandler "playlog/backend/internal/event/handler"
	experimenthandler "playlog/backend/internal/experiment/handler"
	exporthandler "playlog/backend/internal/export/handler"
	healthhandler "playlog/backend/internal/health/handler"
	policyengine "playlog/backend/internal/policy/engine"
	"playlog/backend/internal/protocol"
	"playlog/backend/internal/server/httpjson"
	"playlog/backend/internal/server/middleware"
	sessionhandler "playlog/backend/internal/session/handler"
	"playlog/backend/internal/telemetry"
	userhandler "playlog/backend/internal/user/handler"
)

// Deps holds the services the HTTP API serves. Exporter, Policy and Tokens are optional
// as a group: when any is nil the /admin/export routes are not registered.
type Deps struct {
	Logger *slog.Logger
	Gate   *protocol.Gate

	Users       userhandler.UserService
	Sessions    sessionhandler.SessionService
	Experiments experimenthandler.ExperimentService
	Events      eventhandler.EventService

	Exporter exporthandler.Exporter
	Policy   policyengine.Evaluator
	Tokens   middleware.TokenValidator

	// Health may be nil; then the probes report serving without checks.
	Health *healthhandler.Server
	// Emitter receives one telemetry event per request; nil disables request telemetry.
	Emitter telemetry.EventEmitter
}

// probePaths are left out of request telemetry.
var probePaths = []string{"/healthz", "/readyz"}

// NewHandler returns the root HTTP handler.
func NewHandler(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	release := httpjson.Opener(d.Gate.OpenRelease)
	userhandler.NewHandler(d.Users, release).Register(mux)
	sessionhandler.NewHandler(d.Sessions, release).Register(mux)
	experimenthandler.NewHandler(d.Experiments, release).Register(mux)
	eventhandler.NewHandler(d.Events, d.Gate.OpenSession).Register(mux)

	if d.Exporter != nil && d.Policy != nil && d.Tokens != nil {
		auth := middleware.OperatorAuth(d.Tokens, httpjson.WriteError)
		exporthandler.NewHandler(d.Exporter, d.Policy, auth).Register(mux)
	} else {
		logger.Info("export API disabled: no operator token key configured")
	}

	health := d.Health
	if health == nil {
		health = healthhandler.NewServer(nil, nil)
	}
	health.Register(mux)

	h := middleware.Chain(mux,
		middleware.RequestInfoMiddleware,
		middleware.AccessLog(logger),
		middleware.Recover(logger),
		middleware.Telemetry(d.Emitter, probePaths...),
	)
	return otelhttp.NewHandler(h, "playlog",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			if r.Pattern != "" {
				return r.Pattern
			}
			return r.Method + " " + r.URL.Path
		}),
	)
}

// NewHTTPServer returns an http.Server for addr with conservative timeouts.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
