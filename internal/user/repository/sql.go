package repository

import (
	"context"
	"database/sql"
	"errors"

	"playlog/backend/internal/db"
	"playlog/backend/internal/user/domain"
)

// SQLRepository stores users in the relational store.
type SQLRepository struct {
	db *db.DB
}

// NewSQLRepository returns a user repository that uses the given db for persistence.
func NewSQLRepository(store *db.DB) *SQLRepository {
	return &SQLRepository{db: store}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *SQLRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT id, username, savedata FROM users WHERE id = ?`), id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, db.Classify("get user", err)
	}
	return u, nil
}

// GetByUsername returns the user with the given username, or nil if not found.
func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT id, username, savedata FROM users WHERE username = ?`), username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, db.Classify("get user by username", err)
	}
	return u, nil
}

// CreateIfAbsent inserts the user; a concurrent insert of the same username is not an error.
func (r *SQLRepository) CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO users (id, username, savedata) VALUES (?, ?, ?) ON CONFLICT (username) DO NOTHING`),
		u.ID, u.Username, nullString(u.SaveData))
	if err != nil {
		return false, db.Classify("create user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, db.Classify("create user", err)
	}
	return n == 1, nil
}

// SetSaveData overwrites the save blob of the user.
func (r *SQLRepository) SetSaveData(ctx context.Context, id string, data string) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET savedata = ? WHERE id = ?`), data, id)
	if err != nil {
		return false, db.Classify("set savedata", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, db.Classify("set savedata", err)
	}
	return n == 1, nil
}

// List returns every user.
func (r *SQLRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, savedata FROM users ORDER BY username`)
	if err != nil {
		return nil, db.Classify("list users", err)
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, db.Classify("list users", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list users", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u        domain.User
		savedata sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Username, &savedata); err != nil {
		return nil, err
	}
	if savedata.Valid {
		v := savedata.String
		u.SaveData = &v
	}
	return &u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
