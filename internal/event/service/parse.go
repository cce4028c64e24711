package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"playlog/backend/internal/event/domain"
	"playlog/backend/internal/protocol"
)

// fieldErrors accumulates the names of missing or malformed fields across a batch.
type fieldErrors struct {
	fields []string
}

func (f *fieldErrors) add(prefix, field string) {
	f.fields = append(f.fields, prefix+"."+field)
}

// parseRecords validates every record before anything is written. It returns the decoded
// events, or the full list of offending fields.
func parseRecords(sessionID string, serverTime time.Time, records []json.RawMessage) ([]*domain.Event, []string) {
	var errs fieldErrors
	events := make([]*domain.Event, 0, len(records))
	started := make(map[int64]int, len(records))

	for i, raw := range records {
		prefix := fmt.Sprintf("records[%d]", i)
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
			errs.fields = append(errs.fields, prefix)
			continue
		}
		e := &domain.Event{SessionID: sessionID, ServerTime: serverTime}

		if v, ok := present(obj, "session_sequence_index"); !ok {
			errs.add(prefix, "session_sequence_index")
		} else if n, ok := parseInt(v); !ok {
			errs.add(prefix, "session_sequence_index")
		} else {
			e.SessionSequenceIndex = n
		}

		if v, ok := present(obj, "client_time"); !ok {
			errs.add(prefix, "client_time")
		} else if t, ok := parseTime(v); !ok {
			errs.add(prefix, "client_time")
		} else {
			e.ClientTime = t
		}

		if v, ok := present(obj, "type_id"); !ok {
			errs.add(prefix, "type_id")
		} else if n, ok := parseShort(v); !ok {
			errs.add(prefix, "type_id")
		} else {
			e.TypeID = n
		}

		if v, ok := present(obj, "category_id"); ok {
			if n, ok := parseShort(v); !ok {
				errs.add(prefix, "category_id")
			} else {
				e.CategoryID = n
			}
		}

		// detail may legitimately be null, so only absence is an error.
		if v, ok := obj["detail"]; !ok {
			errs.add(prefix, "detail")
		} else if d, err := protocol.NormalizeDetail(v); err != nil {
			errs.add(prefix, "detail")
		} else {
			e.Detail = d
		}

		startRaw, hasStart := present(obj, "task_start")
		memberRaw, hasMember := present(obj, "task_event")
		switch {
		case hasStart && hasMember:
			errs.add(prefix, "task_start")
			errs.add(prefix, "task_event")
		case hasStart:
			if ts := parseTaskStart(startRaw, prefix+".task_start", &errs); ts != nil {
				if _, dup := started[ts.TaskID]; dup {
					errs.add(prefix, "task_start.task_id")
				} else {
					started[ts.TaskID] = i
				}
				e.Task = ts
			}
		case hasMember:
			if te := parseTaskEvent(memberRaw, prefix+".task_event", &errs); te != nil {
				e.Task = te
			}
		}
		events = append(events, e)
	}
	if len(errs.fields) > 0 {
		return nil, errs.fields
	}
	return events, nil
}

func parseTaskStart(raw json.RawMessage, prefix string, errs *fieldErrors) *domain.TaskStart {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		errs.fields = append(errs.fields, prefix)
		return nil
	}
	ok := true
	ts := &domain.TaskStart{}
	if v, has := present(obj, "task_id"); !has {
		errs.add(prefix, "task_id")
		ok = false
	} else if n, valid := parseInt(v); !valid {
		errs.add(prefix, "task_id")
		ok = false
	} else {
		ts.TaskID = n
	}
	if v, has := present(obj, "group_id"); !has {
		errs.add(prefix, "group_id")
		ok = false
	} else {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			errs.add(prefix, "group_id")
			ok = false
		} else if g, err := uuid.Parse(s); err != nil {
			errs.add(prefix, "group_id")
			ok = false
		} else {
			ts.GroupID = g.String()
		}
	}
	if !ok {
		return nil
	}
	return ts
}

func parseTaskEvent(raw json.RawMessage, prefix string, errs *fieldErrors) *domain.TaskEvent {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		errs.fields = append(errs.fields, prefix)
		return nil
	}
	ok := true
	te := &domain.TaskEvent{}
	for _, f := range []struct {
		name string
		dst  *int64
	}{
		{"task_id", &te.TaskID},
		{"task_sequence_index", &te.TaskSequenceIndex},
	} {
		v, has := present(obj, f.name)
		if !has {
			errs.add(prefix, f.name)
			ok = false
			continue
		}
		n, valid := parseInt(v)
		if !valid {
			errs.add(prefix, f.name)
			ok = false
			continue
		}
		*f.dst = n
	}
	if !ok {
		return nil
	}
	return te
}

// present returns obj[key] unless it is absent or JSON null.
func present(obj map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	v, ok := obj[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, false
	}
	return v, true
}

func parseTime(raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, false
	}
	t, err := protocol.ParseClientTime(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseInt accepts JSON integers only; strings and fractions are rejected.
func parseInt(raw json.RawMessage) (int64, bool) {
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func parseShort(raw json.RawMessage) (int, bool) {
	n, ok := parseInt(raw)
	if !ok || n < 0 || n > domain.MaxShort {
		return 0, false
	}
	return int(n), true
}
