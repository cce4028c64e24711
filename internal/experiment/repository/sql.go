package repository

import (
	"context"
	"database/sql"
	"errors"

	"playlog/backend/internal/db"
	"playlog/backend/internal/experiment/domain"
)

// SQLRepository stores assignments in the relational store.
type SQLRepository struct {
	db *db.DB
}

// NewSQLRepository returns an assignment repository that uses the given db for persistence.
func NewSQLRepository(store *db.DB) *SQLRepository {
	return &SQLRepository{db: store}
}

// Get returns the stored assignment, or nil when the user has none for the experiment.
func (r *SQLRepository) Get(ctx context.Context, userID, experimentID string) (*domain.Assignment, error) {
	a := domain.Assignment{UserID: userID, ExperimentID: experimentID}
	err := r.db.QueryRowContext(ctx,
		r.db.Rebind(`SELECT condition FROM user_experiments WHERE user_id = ? AND experiment_id = ?`),
		userID, experimentID).Scan(&a.Condition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, db.Classify("get assignment", err)
	}
	return &a, nil
}

// CreateIfAbsent inserts the assignment; an existing row for the pair wins.
func (r *SQLRepository) CreateIfAbsent(ctx context.Context, a *domain.Assignment) error {
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind(`INSERT INTO user_experiments (user_id, experiment_id, condition) VALUES (?, ?, ?) ON CONFLICT (user_id, experiment_id) DO NOTHING`),
		a.UserID, a.ExperimentID, a.Condition)
	return db.Classify("create assignment", err)
}
