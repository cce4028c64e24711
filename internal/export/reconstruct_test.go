package export

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"playlog/backend/internal/apperr"
	eventdomain "playlog/backend/internal/event/domain"
	sessiondomain "playlog/backend/internal/session/domain"
)

const (
	sessA = "5b3c7a52-0c55-4bd6-a0a4-6a4dbf0c59e1"
	sessB = "7e0cbd5f-58a2-4f57-9d27-2c1b2b5e8d41"
	group = "0c7b5c8e-1d3f-4b2a-8f9e-6a5d4c3b2a10"
)

var base = time.Date(2016, 3, 1, 12, 0, 0, 0, time.UTC)

func session(id string) *sessiondomain.Session {
	return &sessiondomain.Session{
		ID:         id,
		UserID:     "9a0e3f44-77a1-4c55-8f0e-0b9b8c1d2e3f",
		ReleaseID:  "de4b98ad-3f9a-4aa9-ba7a-9f8cd80eab6e",
		ServerTime: base.Add(time.Second),
		ClientTime: base,
		Detail:     `{"level":"intro"}`,
	}
}

func ev(id int64, sessionID string, typeID int, task eventdomain.Extension) *eventdomain.Event {
	return &eventdomain.Event{
		ID:                   id,
		SessionID:            sessionID,
		SessionSequenceIndex: 100 - id,
		ClientTime:           base.Add(time.Duration(id) * time.Second),
		TypeID:               typeID,
		Task:                 task,
	}
}

func TestReconstruct_GroupsTasks(t *testing.T) {
	events := []*eventdomain.Event{
		ev(1, sessA, 23, nil),
		ev(2, sessA, 2, &eventdomain.TaskStart{TaskID: 1, GroupID: group}),
		ev(3, sessA, 10, &eventdomain.TaskEvent{TaskID: 1, TaskSequenceIndex: 1}),
		ev(4, sessA, 2, &eventdomain.TaskStart{TaskID: 7, GroupID: group}),
		ev(5, sessA, 11, &eventdomain.TaskEvent{TaskID: 1, TaskSequenceIndex: 2}),
		ev(6, sessA, 24, nil),
	}
	doc, err := Reconstruct(session(sessA), events)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if len(doc.Events) != 2 || doc.Events[0].ID != 1 || doc.Events[1].ID != 6 {
		t.Fatalf("flat events: got %+v", doc.Events)
	}
	if doc.Events[0].TaskSequence != nil {
		t.Error("flat events must not carry a task sequence")
	}
	if len(doc.Tasks) != 2 || doc.Tasks[0].ID != 1 || doc.Tasks[1].ID != 7 {
		t.Fatalf("tasks should follow TaskStart order: got %+v", doc.Tasks)
	}
	first := doc.Tasks[0]
	if first.Group != group || len(first.Events) != 3 {
		t.Fatalf("task 1: got %+v", first)
	}
	for i, want := range []int64{0, 1, 2} {
		if got := *first.Events[i].TaskSequence; got != want {
			t.Errorf("task 1 event %d: task_sequence = %d, want %d", i, got, want)
		}
	}
	if first.Events[1].ID != 3 || first.Events[2].ID != 5 {
		t.Error("task members must stay in id order")
	}
	if doc.Time != "2016-03-01T12:00:00Z" || doc.ServerTime != "2016-03-01T12:00:01Z" {
		t.Errorf("times: got %q / %q", doc.Time, doc.ServerTime)
	}
}

func TestReconstruct_OrderIgnoresAdvisoryIndex(t *testing.T) {
	events := []*eventdomain.Event{ev(10, sessA, 1, nil), ev(11, sessA, 2, nil), ev(12, sessA, 3, nil)}
	doc, err := Reconstruct(session(sessA), events)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	for i, want := range []int{1, 2, 3} {
		if doc.Events[i].Type != want {
			t.Errorf("event %d: type %d, want %d", i, doc.Events[i].Type, want)
		}
	}
}

func TestReconstruct_Detail(t *testing.T) {
	withDetail := ev(1, sessA, 1, nil)
	withDetail.Detail = `{"score":3}`
	empty := ev(2, sessA, 1, nil)

	doc, err := Reconstruct(session(sessA), []*eventdomain.Event{withDetail, empty})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var generic struct {
		Detail map[string]string `json:"detail"`
		Events []struct {
			Detail json.RawMessage `json:"detail"`
		} `json:"events"`
	}
	if err := json.Unmarshal(out, &generic); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if generic.Detail["level"] != "intro" {
		t.Errorf("session detail: got %v", generic.Detail)
	}
	if string(generic.Events[0].Detail) != `{"score":3}` {
		t.Errorf("event detail: got %s", generic.Events[0].Detail)
	}
	if string(generic.Events[1].Detail) != "null" {
		t.Errorf("empty detail should export as null, got %s", generic.Events[1].Detail)
	}
}

func TestReconstruct_Inconsistent(t *testing.T) {
	tests := []struct {
		name   string
		events []*eventdomain.Event
	}{
		{"task event before start", []*eventdomain.Event{
			ev(1, sessA, 10, &eventdomain.TaskEvent{TaskID: 1, TaskSequenceIndex: 1}),
		}},
		{"task started twice", []*eventdomain.Event{
			ev(1, sessA, 2, &eventdomain.TaskStart{TaskID: 1, GroupID: group}),
			ev(2, sessA, 2, &eventdomain.TaskStart{TaskID: 1, GroupID: group}),
		}},
		{"foreign event", []*eventdomain.Event{ev(1, sessB, 1, nil)}},
		{"bad stored detail", []*eventdomain.Event{{ID: 1, SessionID: sessA, Detail: "a"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Reconstruct(session(sessA), tc.events)
			if !errors.Is(err, apperr.ErrInconsistent) {
				t.Fatalf("want ErrInconsistent, got %v", err)
			}
		})
	}
}

func TestReconstruct_TaskIDsAreSessionScoped(t *testing.T) {
	a, err := Reconstruct(session(sessA), []*eventdomain.Event{
		ev(1, sessA, 2, &eventdomain.TaskStart{TaskID: 1, GroupID: group}),
		ev(3, sessA, 10, &eventdomain.TaskEvent{TaskID: 1, TaskSequenceIndex: 1}),
	})
	if err != nil {
		t.Fatalf("Reconstruct A: %v", err)
	}
	b, err := Reconstruct(session(sessB), []*eventdomain.Event{
		ev(2, sessB, 2, &eventdomain.TaskStart{TaskID: 1, GroupID: group}),
		ev(4, sessB, 11, &eventdomain.TaskEvent{TaskID: 1, TaskSequenceIndex: 1}),
	})
	if err != nil {
		t.Fatalf("Reconstruct B: %v", err)
	}
	if len(a.Tasks[0].Events) != 2 || a.Tasks[0].Events[1].ID != 3 {
		t.Errorf("session A task: %+v", a.Tasks[0])
	}
	if len(b.Tasks[0].Events) != 2 || b.Tasks[0].Events[1].ID != 4 {
		t.Errorf("session B task: %+v", b.Tasks[0])
	}
}

func TestReconstruct_EmptySession(t *testing.T) {
	doc, err := Reconstruct(session(sessA), nil)
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	out, _ := json.Marshal(doc)
	var m map[string]json.RawMessage
	_ = json.Unmarshal(out, &m)
	if string(m["tasks"]) != "[]" || string(m["events"]) != "[]" {
		t.Errorf("empty lists should encode as [], got tasks=%s events=%s", m["tasks"], m["events"])
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeUser, "user": ModeUser, "session": ModeSession} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("sessions"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("unknown mode: got %v", err)
	}
}
