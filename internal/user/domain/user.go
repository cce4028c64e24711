package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxUsernameLength bounds usernames in characters.
const MaxUsernameLength = 256

// User maps a client-supplied username to a stable pseudonymous id.
type User struct {
	ID       string
	Username string
	// SaveData is the client's opaque save blob; nil until first set.
	SaveData *string
}

// ValidUsername reports whether name can be stored as a username.
func ValidUsername(name string) bool {
	if strings.TrimSpace(name) == "" || !utf8.ValidString(name) {
		return false
	}
	return utf8.RuneCountInString(name) <= MaxUsernameLength
}
