package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"playlog/backend/internal/telemetry"
	"playlog/backend/internal/telemetry/domain"
)

// recordEmitter is the subset of otellog.Logger the adapter uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends events as OTel log records via the given LoggerProvider.
// If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("playlog.telemetry")}
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger directly.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	if logger == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Event) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the telemetry event to an OTel log record and emits it.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.Event) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetBody(otellog.StringValue(event.EventType))
	if event.Status >= 500 {
		rec.SetSeverity(otellog.SeverityError)
	} else if event.Status >= 400 {
		rec.SetSeverity(otellog.SeverityWarn)
	} else {
		rec.SetSeverity(otellog.SeverityInfo)
	}

	addString(&rec, "event_type", event.EventType)
	addString(&rec, "source", event.Source)
	addString(&rec, "request_id", event.RequestID)
	addString(&rec, "http.method", event.Method)
	addString(&rec, "http.path", event.Path)
	addString(&rec, "resource", event.Resource)
	addString(&rec, "action", event.Action)
	addString(&rec, "error_kind", event.ErrorKind)
	addString(&rec, "binding", event.Binding)
	addString(&rec, "binding_id", event.BindingID)
	addString(&rec, "client_ip", event.ClientIP)
	if event.Status != 0 {
		rec.AddAttributes(otellog.Int("http.status_code", event.Status))
	}
	rec.AddAttributes(otellog.Int64("duration_ms", event.DurationMS))

	e.logger.Emit(ctx, rec)
	return nil
}

func addString(rec *otellog.Record, key, value string) {
	if value != "" {
		rec.AddAttributes(otellog.String(key, value))
	}
}
