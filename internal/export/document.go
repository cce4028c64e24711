// Package export rebuilds the nested task structure of sessions from the flat, id-ordered
// event stream and groups sessions under their users for analysis dumps.
package export

import "encoding/json"

// EventDocument is one exported event. TaskSequence is set only for task members; the
// opening TaskStart has task sequence 0.
type EventDocument struct {
	ID              int64           `json:"id"`
	Type            int             `json:"type"`
	Category        int             `json:"category"`
	SessionSequence int64           `json:"session_sequence"`
	Time            string          `json:"time"`
	Detail          json.RawMessage `json:"detail"`
	TaskSequence    *int64          `json:"task_sequence,omitempty"`
}

// TaskDocument is one task: the TaskStart followed by its TaskEvents in id order.
type TaskDocument struct {
	ID     int64           `json:"id"`
	Group  string          `json:"group"`
	Events []EventDocument `json:"events"`
}

// SessionDocument is a reconstructed session. Time is the client's clock, like event times.
type SessionDocument struct {
	ID           string          `json:"id"`
	Release      string          `json:"release"`
	Time         string          `json:"time"`
	ServerTime   string          `json:"server_time"`
	LibraryRevID string          `json:"library_revid,omitempty"`
	Detail       json.RawMessage `json:"detail"`
	Tasks        []TaskDocument  `json:"tasks"`
	Events       []EventDocument `json:"events"`
}

// UserDocument groups the exported sessions of one user. Username is only known in
// ModeUser.
type UserDocument struct {
	ID       string            `json:"id"`
	Username string            `json:"username,omitempty"`
	Sessions []SessionDocument `json:"sessions"`
}
