package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"playlog/backend/internal/db"
	"playlog/backend/internal/session/domain"
)

const sessionColumns = `id, user_id, release_id, server_time, client_time, detail, library_revid`

// SQLRepository stores sessions in the relational store.
type SQLRepository struct {
	db *db.DB
}

// NewSQLRepository returns a session repository that uses the given db for persistence.
func NewSQLRepository(store *db.DB) *SQLRepository {
	return &SQLRepository{db: store}
}

// Create persists the session. The session must have ID set; it is not assigned by this method.
func (r *SQLRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		s.ID, s.UserID, s.ReleaseID, db.ToMicros(s.ServerTime), db.ToMicros(s.ClientTime), s.Detail, s.LibraryRevID)
	return db.Classify("create session", err)
}

// GetByID returns the session for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`), id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, db.Classify("get session", err)
	}
	return s, nil
}

// ListByUser returns the user's sessions ordered by server receipt time.
func (r *SQLRepository) ListByUser(ctx context.Context, userID string, releases []string) ([]*domain.Session, error) {
	q := `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = ?`
	args := []any{userID}
	q, args = withReleases(q, args, releases)
	q += ` ORDER BY server_time, id`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return nil, db.Classify("list sessions", err)
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, db.Classify("list sessions", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list sessions", err)
	}
	return out, nil
}

// ListUserIDs returns the distinct owners of sessions.
func (r *SQLRepository) ListUserIDs(ctx context.Context, releases []string) ([]string, error) {
	q := `SELECT DISTINCT user_id FROM sessions WHERE 1 = 1`
	q, args := withReleases(q, nil, releases)
	q += ` ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return nil, db.Classify("list session users", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, db.Classify("list session users", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list session users", err)
	}
	return out, nil
}

func withReleases(q string, args []any, releases []string) (string, []any) {
	if len(releases) == 0 {
		return q, args
	}
	q += ` AND release_id IN (?` + strings.Repeat(`, ?`, len(releases)-1) + `)`
	for _, rel := range releases {
		args = append(args, rel)
	}
	return q, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(s scanner) (*domain.Session, error) {
	var (
		out                    domain.Session
		serverTime, clientTime int64
	)
	if err := s.Scan(&out.ID, &out.UserID, &out.ReleaseID, &serverTime, &clientTime, &out.Detail, &out.LibraryRevID); err != nil {
		return nil, err
	}
	out.ServerTime = db.FromMicros(serverTime)
	out.ClientTime = db.FromMicros(clientTime)
	return &out, nil
}
