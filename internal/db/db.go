// Package db opens the relational store. Production runs on Postgres through pgx; the
// embedded SQLite dialect backs local development and the repository tests.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects driver-specific SQL details.
type Dialect int

const (
	Postgres Dialect = iota + 1
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// sqlitePragmas are applied to every SQLite connection. Foreign keys are off by default in SQLite.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// DB is a *sql.DB that knows its dialect. Queries are written with ? placeholders and
// passed through Rebind before execution.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open opens the store described by dsn. Caller must call Close when done.
// postgres:// and postgresql:// URLs use pgx; sqlite://path, file: URIs and *.db paths use SQLite.
func Open(dsn string) (*DB, error) {
	dialect, driverDSN, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	driver := "pgx"
	if dialect == SQLite {
		driver = "sqlite"
	}
	sqlDB, err := sql.Open(driver, driverDSN)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		// A single connection serialises writers; SQLite would otherwise report SQLITE_BUSY under load.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &DB{DB: sqlDB, Dialect: dialect}, nil
}

// ParseDSN determines the dialect of dsn and returns the DSN to hand to the driver.
func ParseDSN(dsn string) (Dialect, string, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return 0, "", errors.New("db: DSN is empty")
	}
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		path := strings.TrimPrefix(dsn, "sqlite://")
		if path == "" {
			return 0, "", errors.New("db: sqlite DSN has no path")
		}
		return SQLite, sqliteDSN(path), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return SQLite, sqliteDSN(dsn), nil
	case strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return SQLite, sqliteDSN(filepath.Clean(dsn)), nil
	default:
		return 0, "", fmt.Errorf("db: unsupported DSN %q (want postgres://, sqlite:// or a .db path)", redact(dsn))
	}
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + sqlitePragmas
}

// redact drops everything after the scheme so credentials never reach logs.
func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i >= 0 {
		return dsn[:i+3] + "…"
	}
	if len(dsn) > 16 {
		return dsn[:16] + "…"
	}
	return dsn
}

// Rebind rewrites ? placeholders into the dialect's form ($1, $2, ... for Postgres).
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inString = !inString
			b.WriteByte(c)
		case c == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Rebind rewrites query for the store's dialect.
func (d *DB) Rebind(query string) string {
	return d.Dialect.Rebind(query)
}
