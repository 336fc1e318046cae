// Package database opens the local SQLite file shared by the run journal
// and run history.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	appDir = "shots"
	dbFile = "shots.db"
)

var pathOverride string

// SetPath overrides the default database path. Intended for testing.
func SetPath(p string) { pathOverride = p }

// ResetPath clears the path override. Intended for testing.
func ResetPath() { pathOverride = "" }

// DefaultPath returns the default database path.
func DefaultPath() (string, error) {
	if pathOverride != "" {
		return pathOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("database: unable to determine config directory: %w", err)
	}
	return filepath.Join(base, appDir, dbFile), nil
}

// Open opens a SQLite database at the provided path, creating the parent
// directory if needed. Concurrent writers wait on a busy timeout instead
// of failing.
func Open(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("database: failed to create directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("database: failed to open database: %w", err)
	}
	return db, nil
}

// Migrate runs ddl against db, prefixing failures with owner.
func Migrate(db *sql.DB, owner, ddl string) error {
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("%s: migration failed: %w", owner, err)
	}
	return nil
}

// TimeFormat is a fixed-width RFC 3339 layout. Timestamps stored with it
// sort lexically in time order.
const TimeFormat = "2006-01-02T15:04:05.000000000Z07:00"
