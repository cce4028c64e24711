// Package service issues sessions and their one-shot session keys.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/session/domain"
	"playlog/backend/internal/session/repository"
)

// KeyDeriver derives the key of a session from its id.
type KeyDeriver interface {
	Derive(sessionID string) []byte
}

// CreateParams are the client-supplied attributes of a new session. ReleaseID comes from
// the authenticated envelope, never from the payload.
type CreateParams struct {
	UserID       string
	ReleaseID    string
	ClientTime   time.Time
	LibraryRevID string
	// Detail is the normalised detail text (empty or valid JSON).
	Detail string
}

// Service creates sessions.
type Service struct {
	sessions repository.Repository
	keys     KeyDeriver
	now      func() time.Time
	newID    func() string
	tracer   trace.Tracer
}

// NewService returns a session service.
func NewService(sessions repository.Repository, keys KeyDeriver) *Service {
	return &Service{
		sessions: sessions,
		keys:     keys,
		now:      time.Now,
		newID:    uuid.NewString,
		tracer:   otel.Tracer("playlog/backend/internal/session"),
	}
}

// Create persists a new session and returns its id and key. The key is handed out only
// here; afterwards it can only be re-derived from the id with the server secret.
func (s *Service) Create(ctx context.Context, p CreateParams) (string, []byte, error) {
	ctx, span := s.tracer.Start(ctx, "session.Create")
	defer span.End()

	var fields []string
	if _, err := uuid.Parse(p.UserID); err != nil {
		fields = append(fields, "user_id")
	}
	if _, err := uuid.Parse(p.ReleaseID); err != nil {
		fields = append(fields, "release_id")
	}
	if p.ClientTime.IsZero() {
		fields = append(fields, "client_time")
	}
	if len(fields) > 0 {
		return "", nil, apperr.Validation("invalid session", fields...)
	}

	sess := &domain.Session{
		ID:           s.newID(),
		UserID:       uuid.MustParse(p.UserID).String(),
		ReleaseID:    uuid.MustParse(p.ReleaseID).String(),
		ServerTime:   s.now().UTC(),
		ClientTime:   p.ClientTime.UTC(),
		Detail:       p.Detail,
		LibraryRevID: p.LibraryRevID,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		span.RecordError(err)
		return "", nil, err
	}
	span.SetAttributes(attribute.String("playlog.session_id", sess.ID), attribute.String("playlog.release_id", sess.ReleaseID))
	return sess.ID, s.keys.Derive(sess.ID), nil
}

// Get returns the session for id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.Validation("session id must be a uuid", "session")
	}
	sess, err := s.sessions.GetByID(ctx, uuid.MustParse(id).String())
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, apperr.New(apperr.KindNotFound, "session not found")
	}
	return sess, nil
}
