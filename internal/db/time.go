package db

import "time"

// Times are stored as BIGINT microseconds since the Unix epoch so both dialects sort and
// compare them identically.

// ToMicros converts t for storage.
func ToMicros(t time.Time) int64 {
	return t.UTC().UnixMicro()
}

// FromMicros converts a stored value back to a UTC time.
func FromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}
