package export

import (
	"fmt"

	"playlog/backend/internal/apperr"
	eventdomain "playlog/backend/internal/event/domain"
	"playlog/backend/internal/protocol"
	sessiondomain "playlog/backend/internal/session/domain"
)

// Reconstruct builds the document of s from its events, which must be in canonical (id)
// order. A TaskStart opens a group, a TaskEvent joins the group of its task id, and every
// other event goes to the flat list. Groups keep the order of their TaskStarts.
func Reconstruct(s *sessiondomain.Session, events []*eventdomain.Event) (*SessionDocument, error) {
	detail, err := protocol.DecodeDetail(s.Detail)
	if err != nil {
		return nil, inconsistent("session %s: stored detail is not JSON", s.ID)
	}
	doc := &SessionDocument{
		ID:           s.ID,
		Release:      s.ReleaseID,
		Time:         protocol.FormatTime(s.ClientTime),
		ServerTime:   protocol.FormatTime(s.ServerTime),
		LibraryRevID: s.LibraryRevID,
		Detail:       detail,
		Tasks:        []TaskDocument{},
		Events:       []EventDocument{},
	}

	// Task ids are only unique within a session, so the index never outlives this call.
	open := make(map[int64]int)
	for _, e := range events {
		if e.SessionID != s.ID {
			return nil, inconsistent("event %d belongs to session %s, not %s", e.ID, e.SessionID, s.ID)
		}
		ed, err := eventDocument(e)
		if err != nil {
			return nil, err
		}
		switch ext := e.Task.(type) {
		case nil:
			doc.Events = append(doc.Events, ed)
		case *eventdomain.TaskStart:
			if _, dup := open[ext.TaskID]; dup {
				return nil, inconsistent("session %s: task %d started twice", s.ID, ext.TaskID)
			}
			zero := int64(0)
			ed.TaskSequence = &zero
			open[ext.TaskID] = len(doc.Tasks)
			doc.Tasks = append(doc.Tasks, TaskDocument{ID: ext.TaskID, Group: ext.GroupID, Events: []EventDocument{ed}})
		case *eventdomain.TaskEvent:
			i, ok := open[ext.TaskID]
			if !ok {
				return nil, inconsistent("session %s: event %d joins task %d before it was started", s.ID, e.ID, ext.TaskID)
			}
			seq := ext.TaskSequenceIndex
			ed.TaskSequence = &seq
			doc.Tasks[i].Events = append(doc.Tasks[i].Events, ed)
		default:
			return nil, inconsistent("event %d: unknown task extension %T", e.ID, ext)
		}
	}
	return doc, nil
}

func eventDocument(e *eventdomain.Event) (EventDocument, error) {
	detail, err := protocol.DecodeDetail(e.Detail)
	if err != nil {
		return EventDocument{}, inconsistent("event %d: stored detail is not JSON", e.ID)
	}
	return EventDocument{
		ID:              e.ID,
		Type:            e.TypeID,
		Category:        e.CategoryID,
		SessionSequence: e.SessionSequenceIndex,
		Time:            protocol.FormatTime(e.ClientTime),
		Detail:          detail,
	}, nil
}

func inconsistent(format string, args ...any) error {
	return apperr.New(apperr.KindInconsistent, fmt.Sprintf(format, args...))
}
