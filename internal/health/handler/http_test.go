package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func probe(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	srv.Register(mux)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		pinger Pinger
		policy PolicyChecker
		want   int
	}{
		{"no checks", nil, nil, http.StatusOK},
		{"pinger ok", &mockPinger{}, nil, http.StatusOK},
		{"pinger fails", &mockPinger{pingErr: errors.New("connection refused")}, nil, http.StatusServiceUnavailable},
		{"policy ok", nil, &mockPolicyChecker{}, http.StatusOK},
		{"policy fails", nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, http.StatusServiceUnavailable},
		{"both, policy fails", &mockPinger{}, &mockPolicyChecker{healthErr: errors.New("policy error")}, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := probe(t, NewServer(tc.pinger, tc.policy), "/readyz")
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
			wantBody := statusServing
			if tc.want != http.StatusOK {
				wantBody = statusNotServing
			}
			if !strings.Contains(w.Body.String(), wantBody) {
				t.Errorf("body = %s, want %s", w.Body.String(), wantBody)
			}
		})
	}
}

func TestLive_IgnoresDependencies(t *testing.T) {
	srv := NewServer(&mockPinger{pingErr: errors.New("down")}, nil)
	if w := probe(t, srv, "/healthz"); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
