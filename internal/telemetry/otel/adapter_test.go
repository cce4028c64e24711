package otel

import (
	"context"
	"testing"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"playlog/backend/internal/telemetry/domain"
)

func TestNewEventEmitter_NilProvider_ReturnsNoop(t *testing.T) {
	em := NewEventEmitter(nil)
	if em == nil {
		t.Fatal("NewEventEmitter(nil) returned nil")
	}
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("noop Emit(ctx, nil): %v", err)
	}
	if err := em.Emit(context.Background(), &domain.Event{EventType: "x"}); err != nil {
		t.Errorf("noop Emit(ctx, event): %v", err)
	}
}

func TestEmit_NilEvent_ReturnsNil(t *testing.T) {
	provider := sdklog.NewLoggerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	em := NewEventEmitter(provider)
	if err := em.Emit(context.Background(), nil); err != nil {
		t.Errorf("Emit(ctx, nil): %v", err)
	}
}

// recordCapture stores the last Record passed to Emit for assertion.
type recordCapture struct {
	rec otellog.Record
}

func (r *recordCapture) Emit(ctx context.Context, rec otellog.Record) {
	r.rec = rec
}

func attributes(rec otellog.Record) map[string]otellog.Value {
	out := make(map[string]otellog.Value)
	rec.WalkAttributes(func(kv otellog.KeyValue) bool {
		out[kv.Key] = kv.Value
		return true
	})
	return out
}

func TestEmit_AttributeMapping(t *testing.T) {
	capture := &recordCapture{}
	em := NewEventEmitterWithLogger(capture)
	created := time.Date(2016, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &domain.Event{
		RequestID:  "req-1",
		EventType:  domain.EventTypeRequest,
		Source:     "playlog-server",
		Method:     "POST",
		Path:       "/api/event",
		Resource:   "event",
		Action:     "ingest",
		Status:     401,
		ErrorKind:  "authentication",
		DurationMS: 7,
		Binding:    "session",
		BindingID:  "sess-1",
		ClientIP:   "10.0.0.1",
		CreatedAt:  created,
	}
	if err := em.Emit(context.Background(), event); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	rec := capture.rec

	if got := rec.Body().AsString(); got != domain.EventTypeRequest {
		t.Errorf("body = %q", got)
	}
	if !rec.Timestamp().Equal(created) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp(), created)
	}
	if rec.Severity() != otellog.SeverityWarn {
		t.Errorf("severity = %v, want warn for 4xx", rec.Severity())
	}
	attrs := attributes(rec)
	wantStrings := map[string]string{
		"request_id": "req-1", "event_type": "http_request", "source": "playlog-server",
		"http.method": "POST", "http.path": "/api/event", "resource": "event", "action": "ingest",
		"error_kind": "authentication", "binding": "session", "binding_id": "sess-1", "client_ip": "10.0.0.1",
	}
	for k, v := range wantStrings {
		if got := attrs[k].AsString(); got != v {
			t.Errorf("attr %s = %q, want %q", k, got, v)
		}
	}
	if got := attrs["http.status_code"].AsInt64(); got != 401 {
		t.Errorf("http.status_code = %d", got)
	}
	if got := attrs["duration_ms"].AsInt64(); got != 7 {
		t.Errorf("duration_ms = %d", got)
	}
}

func TestEmit_ZeroTimestamp_SetsCurrentTime(t *testing.T) {
	capture := &recordCapture{}
	before := time.Now().Add(-time.Second)
	if err := NewEventEmitterWithLogger(capture).Emit(context.Background(), &domain.Event{EventType: "x"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if capture.rec.Timestamp().Before(before) {
		t.Errorf("timestamp = %v, want about now", capture.rec.Timestamp())
	}
}

func TestEmit_EmptyFieldsOmitted(t *testing.T) {
	capture := &recordCapture{}
	if err := NewEventEmitterWithLogger(capture).Emit(context.Background(), &domain.Event{EventType: "x", Status: 200}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	attrs := attributes(capture.rec)
	for _, k := range []string{"request_id", "binding", "binding_id", "error_kind", "client_ip"} {
		if _, ok := attrs[k]; ok {
			t.Errorf("attribute %s should be omitted when empty", k)
		}
	}
	if capture.rec.Severity() != otellog.SeverityInfo {
		t.Errorf("severity = %v, want info", capture.rec.Severity())
	}
}

func TestEmit_ServerErrorSeverity(t *testing.T) {
	capture := &recordCapture{}
	_ = NewEventEmitterWithLogger(capture).Emit(context.Background(), &domain.Event{EventType: "x", Status: 503})
	if capture.rec.Severity() != otellog.SeverityError {
		t.Errorf("severity = %v, want error", capture.rec.Severity())
	}
}
