// Package dbtest opens migrated SQLite stores for repository tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"playlog/backend/internal/db"
	"playlog/backend/internal/db/migrate"
)

// Open returns a fresh, fully migrated SQLite store that is closed when t finishes.
func Open(t testing.TB) *db.DB {
	t.Helper()
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "playlog.db")
	if err := migrate.Run(dsn, "up"); err != nil {
		t.Fatalf("dbtest: migrate: %v", err)
	}
	store, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("dbtest: open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}
