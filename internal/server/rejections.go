package server

import (
	"context"
	"time"

	"playlog/backend/internal/protocol"
	"playlog/backend/internal/server/middleware"
	"playlog/backend/internal/telemetry"
	"playlog/backend/internal/telemetry/domain"
)

// RejectionRecorders fans a gate rejection out to every recorder. Nil entries are skipped.
type RejectionRecorders []protocol.RejectionRecorder

// RecordRejection implements protocol.RejectionRecorder.
func (rs RejectionRecorders) RecordRejection(ctx context.Context, r protocol.Rejection) {
	for _, rec := range rs {
		if rec != nil {
			rec.RecordRejection(ctx, r)
		}
	}
}

// TelemetryRejections reports gate rejections as envelope_rejected telemetry events.
type TelemetryRejections struct {
	Emitter telemetry.EventEmitter
}

// RecordRejection implements protocol.RejectionRecorder.
func (t TelemetryRejections) RecordRejection(ctx context.Context, r protocol.Rejection) {
	if t.Emitter == nil {
		return
	}
	telemetry.EmitAsync(t.Emitter, ctx, &domain.Event{
		RequestID: middleware.RequestIDFrom(ctx),
		EventType: domain.EventTypeRejection,
		Source:    "playlog-server",
		Path:      middleware.PathFrom(ctx),
		ErrorKind: string(r.Kind),
		Binding:   r.Binding.String(),
		BindingID: r.BindingID,
		ClientIP:  middleware.ClientIPFrom(ctx),
		CreatedAt: time.Now().UTC(),
	})
}
