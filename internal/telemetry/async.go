package telemetry

import (
	"context"
	"log/slog"
	"time"

	"playlog/backend/internal/telemetry/domain"
)

const (
	// emitTimeout bounds a single async emit.
	emitTimeout = 5 * time.Second
	// maxInFlight caps concurrent async emits. Events beyond it are dropped.
	maxInFlight = 256
)

// ShutdownDrainDuration is how long the server waits after the listener stops before the
// exporters close, so in-flight async emits can finish.
const ShutdownDrainDuration = emitTimeout

var inFlight = make(chan struct{}, maxInFlight)

// EmitAsync emits event on a detached goroutine with a short timeout and reports whether
// it was scheduled. A nil emitter or event, or a saturated emit pool, drops the event.
// Emit errors are logged, never returned.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *domain.Event) bool {
	if emitter == nil || event == nil {
		return false
	}
	select {
	case inFlight <- struct{}{}:
	default:
		slog.WarnContext(ctx, "telemetry: emit dropped, too many in flight", "event_type", event.EventType)
		return false
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer func() { <-inFlight }()
		emitCtx, cancel := context.WithTimeout(ctx, emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			slog.WarnContext(emitCtx, "telemetry: async emit failed", "event_type", event.EventType, "error", err)
		}
	}()
	return true
}
