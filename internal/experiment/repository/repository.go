package repository

import (
	"context"

	"playlog/backend/internal/experiment/domain"
)

// Repository defines persistence for experiment assignments.
type Repository interface {
	// Get returns the assignment for (userID, experimentID), or nil if none exists.
	Get(ctx context.Context, userID, experimentID string) (*domain.Assignment, error)
	// CreateIfAbsent stores a unless the pair already has an assignment.
	CreateIfAbsent(ctx context.Context, a *domain.Assignment) error
}
