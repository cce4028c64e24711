package export

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"playlog/backend/internal/apperr"
	eventdomain "playlog/backend/internal/event/domain"
	sessiondomain "playlog/backend/internal/session/domain"
	userdomain "playlog/backend/internal/user/domain"
)

// Mode selects how users are enumerated for a dump.
type Mode string

const (
	// ModeUser walks the user table; documents carry usernames.
	ModeUser Mode = "user"
	// ModeSession walks the distinct user ids of the session table, which also covers
	// clients that generate their own user ids.
	ModeSession Mode = "session"
)

// ParseMode parses a dump mode name. The empty string selects ModeUser.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeUser:
		return ModeUser, nil
	case ModeSession:
		return ModeSession, nil
	default:
		return "", apperr.Validation(fmt.Sprintf("unknown mode %q", s), "mode")
	}
}

// Filter restricts an export. An empty Releases list means every release.
type Filter struct {
	Releases []string
}

// Users is the user lookup the engine needs.
type Users interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	List(ctx context.Context) ([]*userdomain.User, error)
}

// Sessions is the session lookup the engine needs.
type Sessions interface {
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListByUser(ctx context.Context, userID string, releases []string) ([]*sessiondomain.Session, error)
	ListUserIDs(ctx context.Context, releases []string) ([]string, error)
}

// Events is the event lookup the engine needs.
type Events interface {
	ListBySession(ctx context.Context, sessionID string) ([]*eventdomain.Event, error)
}

// Engine reads stored sessions back as documents.
type Engine struct {
	users    Users
	sessions Sessions
	events   Events
	tracer   trace.Tracer
}

// NewEngine returns an export engine over the given stores.
func NewEngine(users Users, sessions Sessions, events Events) *Engine {
	return &Engine{
		users:    users,
		sessions: sessions,
		events:   events,
		tracer:   otel.Tracer("playlog/backend/internal/export"),
	}
}

// SessionRelease returns the release a session was logged under, without reading its events.
func (e *Engine) SessionRelease(ctx context.Context, sessionID string) (string, error) {
	s, err := e.lookupSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.ReleaseID, nil
}

// ExportSession reconstructs one session.
func (e *Engine) ExportSession(ctx context.Context, sessionID string) (*SessionDocument, error) {
	ctx, span := e.tracer.Start(ctx, "export.Session", trace.WithAttributes(attribute.String("playlog.session_id", sessionID)))
	defer span.End()

	s, err := e.lookupSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return e.session(ctx, s)
}

func (e *Engine) lookupSession(ctx context.Context, sessionID string) (*sessiondomain.Session, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, apperr.Validation("session id must be a uuid", "id")
	}
	s, err := e.sessions.GetByID(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, apperr.New(apperr.KindNotFound, "session not found")
	}
	return s, nil
}

// ExportUser exports the sessions of userID that match f. A user without matching
// sessions is reported as not found.
func (e *Engine) ExportUser(ctx context.Context, userID string, f Filter) (*UserDocument, error) {
	ctx, span := e.tracer.Start(ctx, "export.User", trace.WithAttributes(attribute.String("playlog.user_id", userID)))
	defer span.End()

	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperr.Validation("user id must be a uuid", "id")
	}
	f, err = f.normalize()
	if err != nil {
		return nil, err
	}
	u, err := e.users.GetByID(ctx, id.String())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	doc := &UserDocument{ID: id.String()}
	if u != nil {
		doc.Username = u.Username
	}
	if err := e.fill(ctx, doc, f); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(doc.Sessions) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no sessions for user")
	}
	return doc, nil
}

// ExportUsers dumps every user with at least one session matching f.
func (e *Engine) ExportUsers(ctx context.Context, mode Mode, f Filter) ([]UserDocument, error) {
	ctx, span := e.tracer.Start(ctx, "export.Users", trace.WithAttributes(attribute.String("playlog.export_mode", string(mode))))
	defer span.End()

	f, err := f.normalize()
	if err != nil {
		return nil, err
	}
	var docs []*UserDocument
	switch mode {
	case ModeUser:
		users, err := e.users.List(ctx)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for _, u := range users {
			docs = append(docs, &UserDocument{ID: u.ID, Username: u.Username})
		}
	case ModeSession:
		ids, err := e.sessions.ListUserIDs(ctx, f.Releases)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		for _, id := range ids {
			docs = append(docs, &UserDocument{ID: id})
		}
	default:
		return nil, apperr.Validation(fmt.Sprintf("unknown mode %q", mode), "mode")
	}

	out := make([]UserDocument, 0, len(docs))
	for _, doc := range docs {
		if err := e.fill(ctx, doc, f); err != nil {
			span.RecordError(err)
			return nil, err
		}
		if len(doc.Sessions) > 0 {
			out = append(out, *doc)
		}
	}
	span.SetAttributes(attribute.Int("playlog.export_users", len(out)))
	return out, nil
}

func (e *Engine) fill(ctx context.Context, doc *UserDocument, f Filter) error {
	sessions, err := e.sessions.ListByUser(ctx, doc.ID, f.Releases)
	if err != nil {
		return err
	}
	doc.Sessions = make([]SessionDocument, 0, len(sessions))
	for _, s := range sessions {
		sd, err := e.session(ctx, s)
		if err != nil {
			return err
		}
		doc.Sessions = append(doc.Sessions, *sd)
	}
	return nil
}

func (e *Engine) session(ctx context.Context, s *sessiondomain.Session) (*SessionDocument, error) {
	events, err := e.events.ListBySession(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	return Reconstruct(s, events)
}

func (f Filter) normalize() (Filter, error) {
	if len(f.Releases) == 0 {
		return Filter{}, nil
	}
	out := Filter{Releases: make([]string, 0, len(f.Releases))}
	for _, r := range f.Releases {
		id, err := uuid.Parse(r)
		if err != nil {
			return Filter{}, apperr.Validation(fmt.Sprintf("release %q is not a uuid", r), "release")
		}
		out.Releases = append(out.Releases, id.String())
	}
	return out, nil
}
