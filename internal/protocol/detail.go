package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrDetail is returned for detail payloads that cannot be stored.
var ErrDetail = errors.New("detail must be empty or valid JSON")

// NormalizeDetail turns the wire form of a detail payload into its stored text.
// Clients usually send detail as a JSON-encoded string, whose content is stored as-is;
// any other JSON value is stored as its compact encoding. The stored text is either
// empty or valid JSON.
func NormalizeDetail(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", ErrDetail
		}
		if s != "" && !json.Valid([]byte(s)) {
			return "", ErrDetail
		}
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", ErrDetail
	}
	return buf.String(), nil
}

// DecodeDetail returns stored detail text as a JSON value for export; empty text is null.
func DecodeDetail(stored string) (json.RawMessage, error) {
	if stored == "" {
		return nil, nil
	}
	if !json.Valid([]byte(stored)) {
		return nil, ErrDetail
	}
	return json.RawMessage(stored), nil
}
