package domain

import "time"

// EventType values.
const (
	EventTypeRequest   = "http_request"
	EventTypeRejection = "envelope_rejected"
)

// Event is one request telemetry record. It is serialized as JSON onto the telemetry topic.
type Event struct {
	RequestID string `json:"request_id,omitempty"`
	EventType string `json:"event_type"`
	Source    string `json:"source"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	Resource  string `json:"resource,omitempty"`
	Action    string `json:"action,omitempty"`
	Status    int    `json:"status,omitempty"`
	// ErrorKind is the apperr kind of a failed request.
	ErrorKind  string `json:"error_kind,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	// Binding is "release" or "session" for envelope endpoints; BindingID is the release
	// or session id the envelope was bound to.
	Binding   string    `json:"binding,omitempty"`
	BindingID string    `json:"binding_id,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
