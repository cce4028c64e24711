package repository

import (
	"context"

	"playlog/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// CreateIfAbsent inserts u unless its username is taken. It reports whether a row was written.
	CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error)
	// SetSaveData replaces the save blob of user id. It reports whether the user exists.
	SetSaveData(ctx context.Context, id string, data string) (bool, error)
	// List returns all users ordered by username.
	List(ctx context.Context) ([]*domain.User, error)
}
