package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/security"
	"playlog/backend/internal/telemetry/domain"
)

type captureEmitter struct {
	mu     sync.Mutex
	events []*domain.Event
	done   chan struct{}
}

func newCaptureEmitter() *captureEmitter {
	return &captureEmitter{done: make(chan struct{}, 8)}
}

func (c *captureEmitter) Emit(_ context.Context, ev *domain.Event) error {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

func (c *captureEmitter) wait(t *testing.T) *domain.Event {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for telemetry event")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[len(c.events)-1]
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded first hop", map[string]string{"X-Forwarded-For": " 10.0.0.1 , 10.0.0.2"}, "1.1.1.1:80", "10.0.0.1"},
		{"real ip", map[string]string{"X-Real-IP": "10.0.0.9"}, "1.1.1.1:80", "10.0.0.9"},
		{"peer", nil, "192.0.2.7:5555", "192.0.2.7"},
		{"peer without port", nil, "192.0.2.7", "192.0.2.7"},
		{"nothing", nil, "", "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(r))
		})
	}
}

func TestRequestInfoMiddleware(t *testing.T) {
	var seen *RequestInfo
	h := RequestInfoMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Info(r.Context())
		SetBinding(r.Context(), "session", "s-1")
		SetErrorKind(r.Context(), "validation")
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/event", nil)
	r.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	require.NotNil(t, seen)
	assert.Equal(t, "req-42", seen.ID)
	assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "/api/event", seen.Path)
	b, id := seen.Binding()
	assert.Equal(t, "session", b)
	assert.Equal(t, "s-1", id)
	assert.Equal(t, "validation", seen.ErrorKind())

	// Generated when absent.
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestContextHelpers_OutsideRequest(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, Info(ctx))
	assert.Equal(t, "unknown", ClientIPFrom(ctx))
	assert.Empty(t, PathFrom(ctx))
	assert.Empty(t, RequestIDFrom(ctx))
	SetBinding(ctx, "release", "x")
	SetErrorKind(ctx, "x")
	_, ok := GetOperator(ctx)
	assert.False(t, ok)
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetErrorKind(r.Context(), "not_found")
		w.WriteHeader(http.StatusNotFound)
	}), RequestInfoMiddleware, AccessLog(logger))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/export/sessions/x", nil))
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "status=404")
	assert.Contains(t, out, "error_kind=not_found")
}

func TestRecover(t *testing.T) {
	h := Recover(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestTelemetry_EmitsRequestEvent(t *testing.T) {
	em := newCaptureEmitter()
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetBinding(r.Context(), "release", "rel-1")
		w.WriteHeader(http.StatusCreated)
	}), RequestInfoMiddleware, Telemetry(em, "/healthz"))

	r := httptest.NewRequest(http.MethodPost, "/api/session", nil)
	r.Header.Set("X-Real-IP", "10.1.1.1")
	h.ServeHTTP(httptest.NewRecorder(), r)

	ev := em.wait(t)
	assert.Equal(t, domain.EventTypeRequest, ev.EventType)
	assert.Equal(t, "session", ev.Resource)
	assert.Equal(t, "create", ev.Action)
	assert.Equal(t, http.StatusCreated, ev.Status)
	assert.Equal(t, "release", ev.Binding)
	assert.Equal(t, "rel-1", ev.BindingID)
	assert.Equal(t, "10.1.1.1", ev.ClientIP)
	assert.NotEmpty(t, ev.RequestID)
}

func TestTelemetry_SkipsAndNil(t *testing.T) {
	em := newCaptureEmitter()
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	Telemetry(em, "/healthz")(ok).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	select {
	case <-em.done:
		t.Fatal("health probe should not be reported")
	case <-time.After(50 * time.Millisecond):
	}

	w := httptest.NewRecorder()
	Telemetry(nil)(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOperatorAuth(t *testing.T) {
	tp, err := security.NewTestTokenProvider()
	require.NoError(t, err)
	token, _, err := tp.IssueExport("alice", "analyst", []string{"de4b98ad-3f9a-4aa9-ba7a-9f8cd80eab6e"})
	require.NoError(t, err)

	var gotErr error
	writeErr := func(w http.ResponseWriter, _ *http.Request, err error) {
		gotErr = err
		w.WriteHeader(apperr.HTTPStatus(err))
	}
	var op *security.Operator
	h := OperatorAuth(tp, writeErr)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, _ = GetOperator(r.Context())
	}))

	tests := []struct {
		name   string
		header string
		ok     bool
	}{
		{"valid", "Bearer " + token, true},
		{"lowercase scheme", "bearer " + token, true},
		{"missing", "", false},
		{"empty token", "Bearer ", false},
		{"garbage", "Bearer not.a.jwt", false},
		{"basic scheme", "Basic abc", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			op, gotErr = nil, nil
			r := httptest.NewRequest(http.MethodGet, "/admin/export/users", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if tc.ok {
				require.NotNil(t, op)
				assert.Equal(t, "alice", op.Subject)
				assert.Equal(t, "analyst", op.Role)
				return
			}
			assert.Nil(t, op)
			assert.ErrorIs(t, gotErr, apperr.ErrAuthentication)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
