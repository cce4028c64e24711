package protocol

import (
	"errors"
	"strings"
	"time"
)

// ErrClientTime is returned for client timestamps in none of the accepted layouts.
var ErrClientTime = errors.New("unrecognised client time")

// clientTimeLayouts are tried in order after RFC 3339. Timestamps without a zone are taken as UTC.
var clientTimeLayouts = []string{
	// Python str(datetime) with and without zone.
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	// ISO without zone.
	"2006-01-02T15:04:05.999999999",
	// .NET DateTime.ToString() under en-US.
	"1/2/2006 3:04:05 PM",
	"1/2/2006 15:04:05",
}

// ParseClientTime parses a client-reported timestamp. RFC 3339 (what JavaScript's
// toISOString produces) is tried first, then the layouts older clients are known to send.
func ParseClientTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrClientTime
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range clientTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrClientTime
}

// FormatTime renders a stored time for export documents.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
