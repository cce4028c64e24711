// Package migrate applies the embedded schema with golang-migrate, for Postgres and SQLite alike.
package migrate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitedriver "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"playlog/backend/internal/db"
)

// ErrEmptyDSN is returned when no database URL was configured.
var ErrEmptyDSN = errors.New("DATABASE_URL is not set")

// Run migrates the store at dsn "up" to the latest schema or "down" to an empty one.
// Being at the target already is not an error.
func Run(dsn string, direction string) error {
	var step func(*migrate.Migrate) error
	switch direction {
	case "up":
		step = (*migrate.Migrate).Up
	case "down":
		step = (*migrate.Migrate).Down
	default:
		return fmt.Errorf("direction must be up or down, got %q", direction)
	}
	m, err := open(dsn)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}

// Version reports the applied schema version of the store at dsn. Version 0 means
// no migration has run yet.
func Version(dsn string) (version uint, dirty bool, err error) {
	m, err := open(dsn)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(m)

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func open(dsn string) (*migrate.Migrate, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, ErrEmptyDSN
	}
	store, err := db.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("migrate: open: %w", err)
	}
	source, err := iofs.New(db.MigrationFS, store.Dialect.MigrationDir())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: source: %w", err)
	}
	driver, err := databaseDriver(store)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	// The returned Migrate owns the driver, which owns the store handle.
	m, err := migrate.NewWithInstance("iofs", source, store.Dialect.String(), driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	_, _ = m.Close()
}

func databaseDriver(store *db.DB) (database.Driver, error) {
	switch store.Dialect {
	case db.Postgres:
		return postgres.WithInstance(store.DB, &postgres.Config{})
	case db.SQLite:
		return sqlitedriver.WithInstance(store.DB, &sqlitedriver.Config{})
	default:
		return nil, fmt.Errorf("no migration driver for dialect %s", store.Dialect)
	}
}
