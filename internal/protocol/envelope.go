// Package protocol implements the versioned request envelope and the gate that
// authenticates it against a release key or a session key.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/security"
)

// Version is the only envelope version the server accepts.
const Version = 2

// Binding names which identifier an envelope is bound to.
type Binding int

const (
	// BindRelease marks pre-session calls signed with a release key.
	BindRelease Binding = iota + 1
	// BindSession marks event submissions signed with a session key.
	BindSession
)

func (b Binding) String() string {
	switch b {
	case BindRelease:
		return "release"
	case BindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Envelope is the wire wrapper of every request body.
// Data holds the canonical serialized payload; the checksum is computed over its exact bytes.
type Envelope struct {
	Version  int    `json:"version"`
	Data     string `json:"data"`
	Release  string `json:"release,omitempty"`
	Session  string `json:"session,omitempty"`
	Checksum string `json:"checksum"`
}

// BindingID returns the identifier for b, or "" if the envelope does not carry it.
func (e *Envelope) BindingID(b Binding) string {
	switch b {
	case BindRelease:
		return e.Release
	case BindSession:
		return e.Session
	default:
		return ""
	}
}

type versionProbe struct {
	Version *int `json:"version"`
}

// Decode reads one envelope from r. The version is checked before anything else so an
// unsupported client fails with a protocol version error regardless of what else is wrong.
// maxBytes <= 0 disables the size limit.
func Decode(r io.Reader, maxBytes int64) (*Envelope, error) {
	if maxBytes > 0 {
		r = io.LimitReader(r, maxBytes+1)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "read envelope", err)
	}
	if maxBytes > 0 && int64(len(body)) > maxBytes {
		return nil, apperr.Validation(fmt.Sprintf("envelope exceeds %d bytes", maxBytes))
	}

	var probe versionProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "malformed envelope", err)
	}
	if probe.Version == nil {
		return nil, apperr.Validation("malformed envelope", "version")
	}
	if *probe.Version != Version {
		return nil, &apperr.Error{
			Kind:    apperr.KindProtocolVersion,
			Message: fmt.Sprintf("unsupported protocol version %d (want %d)", *probe.Version, Version),
		}
	}

	var env Envelope
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, apperr.Validation("malformed envelope", typeErr.Field)
		}
		return nil, apperr.Wrap(apperr.KindValidation, "malformed envelope", err)
	}
	return &env, nil
}

// Expect checks that the envelope carries exactly the binding field b, that the
// binding id is a uuid, and that a checksum is present.
func (e *Envelope) Expect(b Binding) error {
	var missing []string
	if e.BindingID(b) == "" {
		missing = append(missing, b.String())
	}
	if e.Checksum == "" {
		missing = append(missing, "checksum")
	}
	if len(missing) > 0 {
		return apperr.Validation("malformed envelope", missing...)
	}
	other := BindSession
	if b == BindSession {
		other = BindRelease
	}
	if e.BindingID(other) != "" {
		return apperr.Validation(fmt.Sprintf("envelope must be bound to a %s, not a %s", b, other), other.String())
	}
	if _, err := uuid.Parse(e.BindingID(b)); err != nil {
		return apperr.Validation(fmt.Sprintf("%s id must be a uuid", b), b.String())
	}
	return nil
}

// Canonical returns the stable serialized form of v: encoding/json output with map keys
// sorted and no insignificant whitespace. Clients sign exactly these bytes.
func Canonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Encode builds a signed envelope carrying payload, bound to id under binding b and signed with key.
func Encode(payload any, b Binding, id string, key []byte) (*Envelope, error) {
	data, err := Canonical(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	env := &Envelope{
		Version:  Version,
		Data:     string(data),
		Checksum: security.Sign(data, key),
	}
	switch b {
	case BindRelease:
		env.Release = id
	case BindSession:
		env.Session = id
	default:
		return nil, fmt.Errorf("encode: unknown binding %d", b)
	}
	return env, nil
}
