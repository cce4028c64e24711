package domain

import "time"

// Session is one logged usage period of a client release. Immutable once created.
// The session key is not part of the record: it is re-derived from ID on demand.
type Session struct {
	ID           string
	UserID       string
	ReleaseID    string
	ServerTime   time.Time
	ClientTime   time.Time
	Detail       string
	LibraryRevID string
}
