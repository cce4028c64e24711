package db

import (
	"embed"
	"io/fs"
)

// MigrationFS embeds SQL migration files from internal/db/migrations, one directory per dialect.
// Used by the migrate runner (cmd/migrate, server startup for SQLite) to apply migrations.
//
//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var MigrationFS embed.FS

// MigrationDir returns the directory within MigrationFS holding the migrations of d.
func (d Dialect) MigrationDir() string {
	return "migrations/" + d.String()
}

// Migrations returns the migration files of d rooted at their directory.
func (d Dialect) Migrations() (fs.FS, error) {
	return fs.Sub(MigrationFS, d.MigrationDir())
}
