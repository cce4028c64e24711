package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/db"
	"playlog/backend/internal/event/domain"
)

// SQLRepository stores events in the relational store.
type SQLRepository struct {
	db *db.DB
}

// NewSQLRepository returns an event repository that uses the given db for persistence.
func NewSQLRepository(store *db.DB) *SQLRepository {
	return &SQLRepository{db: store}
}

// InsertBatch writes the whole batch in one transaction. Any failure rolls back every row,
// so a batch never lands with base events missing their task linkage.
func (r *SQLRepository) InsertBatch(ctx context.Context, events []*domain.Event) (err error) {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return db.Classify("begin event batch", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertEvent := r.db.Rebind(`INSERT INTO events (session_id, session_sequence_index, server_time, client_time, category_id, type_id, detail)
VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	ids := make([]int64, len(events))
	for i, e := range events {
		if err = tx.QueryRowContext(ctx, insertEvent,
			e.SessionID, e.SessionSequenceIndex, db.ToMicros(e.ServerTime), db.ToMicros(e.ClientTime),
			e.CategoryID, e.TypeID, e.Detail,
		).Scan(&ids[i]); err != nil {
			return db.Classify(fmt.Sprintf("insert event %d", i), err)
		}
	}

	insertStart := r.db.Rebind(`INSERT INTO task_starts (event_id, session_id, task_id, group_id) VALUES (?, ?, ?, ?)`)
	insertMember := r.db.Rebind(`INSERT INTO task_events (event_id, task_id, task_sequence_index) VALUES (?, ?, ?)`)
	for i, e := range events {
		switch task := e.Task.(type) {
		case *domain.TaskStart:
			if _, err = tx.ExecContext(ctx, insertStart, ids[i], e.SessionID, task.TaskID, task.GroupID); err != nil {
				if db.IsUniqueViolation(err) {
					return apperr.Wrap(apperr.KindConflict,
						fmt.Sprintf("task %d already started in session %s", task.TaskID, e.SessionID), err)
				}
				return db.Classify(fmt.Sprintf("insert task start %d", i), err)
			}
		case *domain.TaskEvent:
			if _, err = tx.ExecContext(ctx, insertMember, ids[i], task.TaskID, task.TaskSequenceIndex); err != nil {
				return db.Classify(fmt.Sprintf("insert task event %d", i), err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return db.Classify("commit event batch", err)
	}
	for i, e := range events {
		e.ID = ids[i]
	}
	return nil
}

// SessionExists looks the session up without touching its events.
func (r *SQLRepository) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT 1 FROM sessions WHERE id = ?`), sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, db.Classify("find session", err)
	}
	return true, nil
}

// ListBySession reads the session's events ordered by id.
func (r *SQLRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Event, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
SELECT e.id, e.session_id, e.session_sequence_index, e.server_time, e.client_time, e.category_id, e.type_id, e.detail,
       ts.task_id, ts.group_id, te.task_id, te.task_sequence_index
FROM events e
LEFT JOIN task_starts ts ON ts.event_id = e.id
LEFT JOIN task_events te ON te.event_id = e.id
WHERE e.session_id = ?
ORDER BY e.id`), sessionID)
	if err != nil {
		return nil, db.Classify("list events", err)
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var (
			e                      domain.Event
			serverTime, clientTime int64
			startTask              sql.NullInt64
			startGroup             sql.NullString
			memberTask, memberSeq  sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.SessionSequenceIndex, &serverTime, &clientTime,
			&e.CategoryID, &e.TypeID, &e.Detail, &startTask, &startGroup, &memberTask, &memberSeq); err != nil {
			return nil, db.Classify("list events", err)
		}
		e.ServerTime = db.FromMicros(serverTime)
		e.ClientTime = db.FromMicros(clientTime)
		switch {
		case startTask.Valid && memberTask.Valid:
			return nil, apperr.New(apperr.KindInconsistent, fmt.Sprintf("event %d is both a task start and a task event", e.ID))
		case startTask.Valid:
			e.Task = &domain.TaskStart{TaskID: startTask.Int64, GroupID: startGroup.String}
		case memberTask.Valid:
			e.Task = &domain.TaskEvent{TaskID: memberTask.Int64, TaskSequenceIndex: memberSeq.Int64}
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list events", err)
	}
	return out, nil
}
