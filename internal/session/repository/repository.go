package repository

import (
	"context"

	"playlog/backend/internal/session/domain"
)

// Repository defines persistence for sessions.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListByUser returns the sessions of userID in creation order. When releases is
	// non-empty only sessions of those releases are returned.
	ListByUser(ctx context.Context, userID string, releases []string) ([]*domain.Session, error)
	// ListUserIDs returns the distinct user ids that own at least one session, restricted
	// to releases when non-empty.
	ListUserIDs(ctx context.Context, releases []string) ([]string, error)
}
