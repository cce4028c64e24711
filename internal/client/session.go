package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/protocol"
)

// maxShort is the largest type or category id the server stores.
const maxShort = 32767

// Event is one event to log.
type Event struct {
	Category int
	Type     int
	// Detail is JSON-encoded before sending.
	Detail any
}

// record is the wire form of a queued event.
type record struct {
	CategoryID           int        `json:"category_id"`
	TypeID               int        `json:"type_id"`
	SessionSequenceIndex int64      `json:"session_sequence_index"`
	ClientTime           string     `json:"client_time"`
	Detail               string     `json:"detail"`
	TaskStart            *taskStart `json:"task_start,omitempty"`
	TaskEvent            *taskEvent `json:"task_event,omitempty"`
}

type taskStart struct {
	TaskID  int64  `json:"task_id"`
	GroupID string `json:"group_id"`
}

type taskEvent struct {
	TaskID            int64 `json:"task_id"`
	TaskSequenceIndex int64 `json:"task_sequence_index"`
}

// Session holds the id and key of a logged session, its sequence counters and the
// queue of events not yet accepted by the server. It is safe for concurrent use.
type Session struct {
	client *Client
	ID     string
	key    []byte

	mu         sync.Mutex
	sequence   int64
	nextTaskID int64
	queue      []record

	// flushMu serialises Flush so a batch is never in flight twice.
	flushMu sync.Mutex
}

func newSession(c *Client, id string, key []byte) *Session {
	return &Session{client: c, ID: id, key: key, sequence: 1, nextTaskID: 1}
}

// LogEvent queues an event. It is sent by the next Flush.
func (s *Session) LogEvent(e Event) error {
	return s.enqueue(e, nil, nil)
}

// StartTask queues the TaskStart event e for a new task in group and returns the task.
// Task ids are allocated per session starting at 1.
func (s *Session) StartTask(group string, e Event) (*Task, error) {
	g, err := uuid.Parse(group)
	if err != nil {
		return nil, apperr.Validation("group is not a uuid", "group")
	}
	start := &taskStart{GroupID: g.String()}
	if err := s.enqueue(e, start, nil); err != nil {
		return nil, err
	}
	return &Task{session: s, ID: start.TaskID, sequence: 1}, nil
}

func (s *Session) enqueue(e Event, start *taskStart, member *taskEvent) error {
	var bad []string
	if e.Category < 0 || e.Category > maxShort {
		bad = append(bad, "category")
	}
	if e.Type < 0 || e.Type > maxShort {
		bad = append(bad, "type")
	}
	if len(bad) > 0 {
		return apperr.Validation("event ids must be in 0..32767", bad...)
	}
	detail, err := stringify(e.Detail)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "event detail is not JSON encodable", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if start != nil {
		start.TaskID = s.nextTaskID
		s.nextTaskID++
	}
	s.queue = append(s.queue, record{
		CategoryID:           e.Category,
		TypeID:               e.Type,
		SessionSequenceIndex: s.sequence,
		ClientTime:           s.client.now().UTC().Format(clientTimeLayout),
		Detail:               detail,
		TaskStart:            start,
		TaskEvent:            member,
	})
	s.sequence++
	return nil
}

// Pending returns the number of queued events.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush sends every queued event in one batch. On success the sent events leave the
// queue; on failure they stay queued for the next Flush. Events queued while a flush is
// in flight are kept for the next one.
func (s *Session) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	batch := make([]json.RawMessage, 0, len(s.queue))
	for _, r := range s.queue {
		b, err := json.Marshal(r)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		batch = append(batch, b)
	}
	s.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	env, err := protocol.Encode(batch, protocol.BindSession, s.ID, s.key)
	if err != nil {
		return err
	}
	if err := s.client.post(ctx, "/api/event", env, nil); err != nil {
		return err
	}

	s.mu.Lock()
	s.queue = s.queue[len(batch):]
	s.mu.Unlock()
	return nil
}

// Task logs events that belong to one task of a session.
type Task struct {
	session *Session
	ID      int64

	mu       sync.Mutex
	sequence int64
}

// LogEvent queues e as the next event of the task. Task sequence indices start at 1;
// the TaskStart event has index 0.
func (t *Task) LogEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.session.enqueue(e, nil, &taskEvent{TaskID: t.ID, TaskSequenceIndex: t.sequence}); err != nil {
		return err
	}
	t.sequence++
	return nil
}
