package middleware

import (
	"net/http"
	"strings"
	"time"

	"playlog/backend/internal/audit"
	"playlog/backend/internal/telemetry"
	"playlog/backend/internal/telemetry/domain"
)

// telemetrySource tags events emitted by the HTTP server.
const telemetrySource = "playlog-server"

// Telemetry emits one request event per request after the handler returns. Emission is
// async and best-effort. Requests whose path starts with any of skip (health probes)
// are not reported. A nil emitter disables the middleware.
func Telemetry(emitter telemetry.EventEmitter, skip ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if emitter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range skip {
				if strings.HasPrefix(r.URL.Path, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			ar := audit.ParsePath(r.Method, r.URL.Path)
			ev := &domain.Event{
				EventType:  domain.EventTypeRequest,
				Source:     telemetrySource,
				Method:     r.Method,
				Path:       r.URL.Path,
				Resource:   ar.Resource,
				Action:     ar.Action,
				Status:     rec.Status(),
				DurationMS: time.Since(start).Milliseconds(),
				CreatedAt:  start.UTC(),
			}
			if info := Info(r.Context()); info != nil {
				ev.RequestID = info.ID
				ev.ClientIP = info.ClientIP
				ev.Binding, ev.BindingID = info.Binding()
				ev.ErrorKind = info.ErrorKind()
			}
			telemetry.EmitAsync(emitter, r.Context(), ev)
		})
	}
}
