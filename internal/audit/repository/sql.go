package repository

import (
	"context"

	"playlog/backend/internal/audit/domain"
	"playlog/backend/internal/db"
)

// SQLRepository stores rejection records in the relational store.
type SQLRepository struct {
	db *db.DB
}

// NewSQLRepository returns a rejection repository that uses the given db for persistence.
func NewSQLRepository(store *db.DB) *SQLRepository {
	return &SQLRepository{db: store}
}

// Create persists r. The id is assigned by the store and not read back.
func (r *SQLRepository) Create(ctx context.Context, rej *domain.Rejection) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO rejections (created_at, endpoint, binding, binding_id, kind, reason, client_ip) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		db.ToMicros(rej.CreatedAt), rej.Endpoint, rej.Binding, rej.BindingID, rej.Kind, rej.Reason, rej.ClientIP)
	return db.Classify("create rejection", err)
}

// ListRecent returns the newest records first.
func (r *SQLRepository) ListRecent(ctx context.Context, limit int) ([]*domain.Rejection, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		r.db.Rebind(`SELECT id, created_at, endpoint, binding, binding_id, kind, reason, client_ip FROM rejections ORDER BY created_at DESC, id DESC LIMIT ?`),
		limit)
	if err != nil {
		return nil, db.Classify("list rejections", err)
	}
	defer rows.Close()
	var out []*domain.Rejection
	for rows.Next() {
		var (
			rej     domain.Rejection
			created int64
		)
		if err := rows.Scan(&rej.ID, &created, &rej.Endpoint, &rej.Binding, &rej.BindingID, &rej.Kind, &rej.Reason, &rej.ClientIP); err != nil {
			return nil, db.Classify("list rejections", err)
		}
		rej.CreatedAt = db.FromMicros(created)
		out = append(out, &rej)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify("list rejections", err)
	}
	return out, nil
}
