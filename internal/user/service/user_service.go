// Package service implements username lookup and client save data.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/user/domain"
	"playlog/backend/internal/user/repository"
)

// ErrUserNotFound is returned when the referenced user id has no row.
var ErrUserNotFound = apperr.New(apperr.KindNotFound, "user not found")

// Service resolves usernames to stable ids and stores per-user save data.
type Service struct {
	users repository.Repository
	newID func() string
}

// NewService returns a user service backed by users.
func NewService(users repository.Repository) *Service {
	return &Service{users: users, newID: func() string { return uuid.NewString() }}
}

// FindOrCreate returns the id of username, creating the user on first sight.
// Concurrent calls for the same username converge on one id: the losing insert is
// ignored by the store and the winner's row is read back.
func (s *Service) FindOrCreate(ctx context.Context, username string) (string, error) {
	if !domain.ValidUsername(username) {
		return "", apperr.Validation("username must be a non-empty string", "username")
	}
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u != nil {
		return u.ID, nil
	}
	if _, err := s.users.CreateIfAbsent(ctx, &domain.User{ID: s.newID(), Username: username}); err != nil {
		if !errors.Is(err, apperr.ErrConflict) {
			return "", err
		}
		// Stores without ON CONFLICT support surface the race as a conflict; fall through to the lookup.
	}
	u, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", apperr.New(apperr.KindStoreUnavailable, "user vanished after insert")
	}
	return u.ID, nil
}

// GetData returns the save blob of user id; nil when none was saved yet.
func (s *Service) GetData(ctx context.Context, id string) (*string, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u.SaveData, nil
}

// SetData replaces the save blob of user id.
func (s *Service) SetData(ctx context.Context, id, data string) error {
	if err := validateID(id); err != nil {
		return err
	}
	ok, err := s.users.SetSaveData(ctx, id, data)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("id must be a uuid", "id")
	}
	return nil
}
