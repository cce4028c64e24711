package repository

import (
	"context"

	"playlog/backend/internal/audit/domain"
)

// Repository defines persistence for rejection records.
type Repository interface {
	Create(ctx context.Context, r *domain.Rejection) error
	// ListRecent returns up to limit records, newest first.
	ListRecent(ctx context.Context, limit int) ([]*domain.Rejection, error)
}
