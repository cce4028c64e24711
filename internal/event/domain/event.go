package domain

import "time"

// MaxShort is the largest type or category id a client may send.
const MaxShort = 32767

// Event is one entry in a session's log. ID is assigned by the store and defines the
// canonical order; SessionSequenceIndex is the client's advisory counter.
type Event struct {
	ID                   int64
	SessionID            string
	SessionSequenceIndex int64
	ServerTime           time.Time
	ClientTime           time.Time
	CategoryID           int
	TypeID               int
	// Detail is stored text: empty or valid JSON.
	Detail string
	// Task is nil, *TaskStart or *TaskEvent.
	Task Extension
}

// Extension is the optional task linkage carried by an event. The set of implementations
// is closed: an event is a task start, a task member, or neither.
type Extension interface {
	taskID() int64
}

// TaskStart opens a task. TaskID is unique within the owning session only.
type TaskStart struct {
	TaskID  int64
	GroupID string
}

func (t *TaskStart) taskID() int64 { return t.TaskID }

// TaskEvent is a member of an already started task.
type TaskEvent struct {
	TaskID            int64
	TaskSequenceIndex int64
}

func (t *TaskEvent) taskID() int64 { return t.TaskID }

// TaskID returns the task the event belongs to, if any.
func (e *Event) TaskID() (int64, bool) {
	if e.Task == nil {
		return 0, false
	}
	return e.Task.taskID(), true
}
