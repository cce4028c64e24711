package repository

import (
	"context"

	"playlog/backend/internal/event/domain"
)

// Repository defines persistence for events.
type Repository interface {
	// InsertBatch stores events atomically in slice order and sets their IDs.
	// Base rows are written first, then the task rows keyed by the new ids.
	InsertBatch(ctx context.Context, events []*domain.Event) error
	// SessionExists reports whether the session row is present.
	SessionExists(ctx context.Context, sessionID string) (bool, error)
	// ListBySession returns the session's events in canonical (id) order with their extensions.
	ListBySession(ctx context.Context, sessionID string) ([]*domain.Event, error)
}
