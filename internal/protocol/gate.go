package protocol

import (
	"context"
	"io"
	"strings"

	"github.com/google/uuid"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/security"
)

// ReleaseKeys resolves the long-lived key of a release.
type ReleaseKeys interface {
	ReleaseKey(releaseID string) ([]byte, bool)
}

// SessionKeys re-derives the key issued for a session.
type SessionKeys interface {
	Derive(sessionID string) []byte
}

// Rejection describes an envelope the gate refused.
type Rejection struct {
	Binding   Binding
	BindingID string
	Kind      apperr.Kind
	Reason    string
}

// RejectionRecorder is told about every refused envelope. Best-effort; must not block long.
type RejectionRecorder interface {
	RecordRejection(ctx context.Context, r Rejection)
}

// Opened is an authenticated payload.
type Opened struct {
	Binding Binding
	// ID is the release id or session id the payload is bound to.
	ID string
	// Data is the verified canonical payload.
	Data []byte
}

// Gate decodes envelopes and authenticates them. All checks run before any store access:
// version, then binding fields, then the checksum.
type Gate struct {
	releases ReleaseKeys
	sessions SessionKeys
	recorder RejectionRecorder
	maxBytes int64
}

// NewGate returns a Gate. recorder may be nil.
func NewGate(releases ReleaseKeys, sessions SessionKeys, recorder RejectionRecorder, maxBytes int64) *Gate {
	return &Gate{releases: releases, sessions: sessions, recorder: recorder, maxBytes: maxBytes}
}

// Open reads an envelope from r and verifies it against the key for binding b.
func (g *Gate) Open(ctx context.Context, r io.Reader, b Binding) (*Opened, error) {
	env, err := Decode(r, g.maxBytes)
	if err != nil {
		g.reject(ctx, b, "", err)
		return nil, err
	}
	if err := env.Expect(b); err != nil {
		g.reject(ctx, b, env.BindingID(b), err)
		return nil, err
	}
	id := env.BindingID(b)

	var key []byte
	switch b {
	case BindRelease:
		k, ok := g.releases.ReleaseKey(id)
		if !ok {
			// Unknown releases look the same as bad checksums to the caller.
			g.recordReason(ctx, b, id, apperr.KindAuthentication, "unknown release")
			return nil, apperr.ErrAuthentication
		}
		key = k
	case BindSession:
		key = g.sessions.Derive(id)
	}

	data := []byte(env.Data)
	if !security.Verify(data, env.Checksum, key) {
		g.recordReason(ctx, b, id, apperr.KindAuthentication, "checksum mismatch")
		return nil, apperr.ErrAuthentication
	}
	return &Opened{Binding: b, ID: id, Data: data}, nil
}

func (g *Gate) reject(ctx context.Context, b Binding, id string, err error) {
	g.recordReason(ctx, b, id, apperr.KindOf(err), err.Error())
}

func (g *Gate) recordReason(ctx context.Context, b Binding, id string, kind apperr.Kind, reason string) {
	if g.recorder == nil {
		return
	}
	g.recorder.RecordRejection(ctx, Rejection{Binding: b, BindingID: recordedID(id), Kind: kind, Reason: reason})
}

// maxRecordedID bounds the binding id kept for a rejection. The id comes from an
// unauthenticated body.
const maxRecordedID = 64

// recordedID returns id in canonical form when it is a uuid, otherwise its first
// maxRecordedID bytes as valid UTF-8.
func recordedID(id string) string {
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	if len(id) > maxRecordedID {
		id = id[:maxRecordedID]
	}
	return strings.ToValidUTF8(id, "")
}

// OpenRelease opens a pre-session envelope signed with a release key.
func (g *Gate) OpenRelease(ctx context.Context, r io.Reader) (*Opened, error) {
	return g.Open(ctx, r, BindRelease)
}

// OpenSession opens an event envelope signed with the key derived for its session.
func (g *Gate) OpenSession(ctx context.Context, r io.Reader) (*Opened, error) {
	return g.Open(ctx, r, BindSession)
}
