package domain

import "time"

// Rejection records one request the envelope gate refused.
type Rejection struct {
	ID        int64
	CreatedAt time.Time
	// Endpoint is the request path, e.g. /api/event.
	Endpoint string
	// Binding is "release" or "session".
	Binding   string
	BindingID string
	// Kind is the error kind, e.g. authentication.
	Kind     string
	Reason   string
	ClientIP string
}
