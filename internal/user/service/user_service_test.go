package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/user/domain"
)

type memUserRepo struct {
	mu         sync.Mutex
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
	// conflictOnce simulates a store that reports the lost insert race as a conflict.
	conflictOnce bool
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[string]*domain.User{}, byUsername: map[string]*domain.User{}}
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byUsername[username]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *memUserRepo) CreateIfAbsent(_ context.Context, u *domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflictOnce {
		m.conflictOnce = false
		winner := &domain.User{ID: "11111111-1111-1111-1111-111111111111", Username: u.Username}
		m.byID[winner.ID] = winner
		m.byUsername[winner.Username] = winner
		return false, apperr.New(apperr.KindConflict, "duplicate username")
	}
	if _, ok := m.byUsername[u.Username]; ok {
		return false, nil
	}
	c := *u
	m.byID[c.ID] = &c
	m.byUsername[c.Username] = &c
	return true, nil
}

func (m *memUserRepo) SetSaveData(_ context.Context, id, data string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return false, nil
	}
	u.SaveData = &data
	return true, nil
}

func (m *memUserRepo) List(_ context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

func TestFindOrCreate_Idempotent(t *testing.T) {
	svc := NewService(newMemUserRepo())
	ctx := context.Background()

	first, err := svc.FindOrCreate(ctx, "pika")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	second, err := svc.FindOrCreate(ctx, "pika")
	if err != nil {
		t.Fatalf("FindOrCreate again: %v", err)
	}
	if first != second {
		t.Errorf("same username yielded %q and %q", first, second)
	}
	other, err := svc.FindOrCreate(ctx, "chu")
	if err != nil {
		t.Fatalf("FindOrCreate other: %v", err)
	}
	if other == first {
		t.Error("different usernames must get different ids")
	}
}

func TestFindOrCreate_ConflictRetriedAsLookup(t *testing.T) {
	repo := newMemUserRepo()
	repo.conflictOnce = true
	svc := NewService(repo)

	id, err := svc.FindOrCreate(context.Background(), "racer")
	if err != nil {
		t.Fatalf("a lost race must not surface: %v", err)
	}
	if id != "11111111-1111-1111-1111-111111111111" {
		t.Errorf("id = %q, want the winner's id", id)
	}
}

func TestFindOrCreate_InvalidUsername(t *testing.T) {
	svc := NewService(newMemUserRepo())
	for _, name := range []string{"", "   ", "\xff\xfe"} {
		_, err := svc.FindOrCreate(context.Background(), name)
		if !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("FindOrCreate(%q) err = %v, want validation", name, err)
		}
	}
}

func TestSaveData(t *testing.T) {
	svc := NewService(newMemUserRepo())
	ctx := context.Background()
	id, err := svc.FindOrCreate(ctx, "saver")
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}

	data, err := svc.GetData(ctx, id)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if data != nil {
		t.Errorf("fresh user savedata = %q, want nil", *data)
	}

	if err := svc.SetData(ctx, id, `{"level":3}`); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	data, err = svc.GetData(ctx, id)
	if err != nil {
		t.Fatalf("GetData: %v", err)
	}
	if data == nil || *data != `{"level":3}` {
		t.Errorf("savedata = %v, want the stored blob", data)
	}
}

func TestSaveData_Errors(t *testing.T) {
	svc := NewService(newMemUserRepo())
	ctx := context.Background()
	missing := "0c7b5c8e-1d3f-4b2a-8f9e-6a5d4c3b2a10"

	if _, err := svc.GetData(ctx, missing); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetData missing = %v, want not found", err)
	}
	if err := svc.SetData(ctx, missing, "{}"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SetData missing = %v, want not found", err)
	}
	if _, err := svc.GetData(ctx, "not-a-uuid"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("GetData bad id = %v, want validation", err)
	}
}
