// Package actionstore persists restart obligations.
//
// Before a run stops an instance it records that the instance must be
// started again. If the process dies mid-cycle, `shots actions resume`
// finds the open records and finishes them.
//
// Storage is the shared SQLite database from package database.
package actionstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nathanbeddoewebdev/shots/internal/database"
)

// ActionRepository defines the persistence interface for action records.
type ActionRepository interface {
	// Save inserts or updates an action record. On insert (ID == 0), an
	// ID is assigned to the record.
	Save(record *ActionRecord) error

	// Get retrieves a single action record by ID.
	Get(id int64) (*ActionRecord, error)

	// ListOpen returns records with status "running" or "error",
	// newest first.
	ListOpen() ([]ActionRecord, error)

	// ListRecent returns the most recent n records regardless of status,
	// newest first.
	ListRecent(n int) ([]ActionRecord, error)

	// DeleteOlderThan removes successful records older than d.
	DeleteOlderThan(d time.Duration) (int64, error)

	Close() error
}

// SQLiteRepository implements ActionRepository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the action repository at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("actions: %w", err)
	}

	if err := database.Migrate(db, "actions", ddl); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

const ddl = `
	CREATE TABLE IF NOT EXISTS actions (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id        TEXT    NOT NULL DEFAULT '',
		provider      TEXT    NOT NULL,
		instance_id   TEXT    NOT NULL,
		instance_name TEXT    NOT NULL DEFAULT '',
		command       TEXT    NOT NULL DEFAULT '',
		target_state  TEXT    NOT NULL DEFAULT '',
		status        TEXT    NOT NULL DEFAULT 'running',
		error_message TEXT    NOT NULL DEFAULT '',
		created_at    TEXT    NOT NULL,
		updated_at    TEXT    NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_actions_status ON actions(status);
`

const columns = `id, run_id, provider, instance_id, instance_name, command,
	target_state, status, error_message, created_at, updated_at`

// Save inserts a new record (ID == 0) or updates an existing one.
func (r *SQLiteRepository) Save(record *ActionRecord) error {
	record.UpdatedAt = time.Now().UTC()

	if record.ID == 0 {
		if record.CreatedAt.IsZero() {
			record.CreatedAt = record.UpdatedAt
		}
		record.CreatedAt = record.CreatedAt.UTC()
		result, err := r.db.Exec(`
			INSERT INTO actions (run_id, provider, instance_id, instance_name, command, target_state, status, error_message, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.RunID, record.Provider, record.InstanceID, record.InstanceName, record.Command,
			record.TargetState, record.Status, record.ErrorMessage,
			record.CreatedAt.Format(database.TimeFormat), record.UpdatedAt.Format(database.TimeFormat),
		)
		if err != nil {
			return fmt.Errorf("actions: insert failed: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("actions: failed to get last insert ID: %w", err)
		}
		record.ID = id
		return nil
	}

	result, err := r.db.Exec(`
		UPDATE actions SET run_id=?, provider=?, instance_id=?, instance_name=?,
		       command=?, target_state=?, status=?, error_message=?, updated_at=?
		WHERE id=?`,
		record.RunID, record.Provider, record.InstanceID, record.InstanceName, record.Command,
		record.TargetState, record.Status, record.ErrorMessage,
		record.UpdatedAt.Format(database.TimeFormat), record.ID,
	)
	if err != nil {
		return fmt.Errorf("actions: update failed: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("actions: action with ID %d not found", record.ID)
	}
	return nil
}

// Get retrieves a single action record by ID. It returns nil, nil when no
// record exists.
func (r *SQLiteRepository) Get(id int64) (*ActionRecord, error) {
	rows, err := r.db.Query(`SELECT `+columns+` FROM actions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("actions: query failed: %w", err)
	}
	defer rows.Close()

	records, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// ListOpen returns unfinished obligations.
func (r *SQLiteRepository) ListOpen() ([]ActionRecord, error) {
	return r.query(`SELECT ` + columns + ` FROM actions
		WHERE status IN ('running', 'error') ORDER BY created_at DESC, id DESC`)
}

// ListRecent returns the most recent n action records regardless of status.
func (r *SQLiteRepository) ListRecent(n int) ([]ActionRecord, error) {
	return r.query(`SELECT `+columns+` FROM actions ORDER BY created_at DESC, id DESC LIMIT ?`, n)
}

// DeleteOlderThan removes successful records last updated before now-d.
func (r *SQLiteRepository) DeleteOlderThan(d time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-d).Format(database.TimeFormat)
	result, err := r.db.Exec(`
		DELETE FROM actions WHERE status = 'success' AND updated_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("actions: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) query(q string, args ...any) ([]ActionRecord, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("actions: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]ActionRecord, error) {
	var records []ActionRecord
	for rows.Next() {
		var record ActionRecord
		var createdStr, updatedStr string
		err := rows.Scan(
			&record.ID, &record.RunID, &record.Provider, &record.InstanceID, &record.InstanceName,
			&record.Command, &record.TargetState, &record.Status, &record.ErrorMessage,
			&createdStr, &updatedStr,
		)
		if err != nil {
			return nil, fmt.Errorf("actions: scan failed: %w", err)
		}
		record.CreatedAt, _ = time.Parse(database.TimeFormat, createdStr)
		record.UpdatedAt, _ = time.Parse(database.TimeFormat, updatedStr)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("actions: scan failed: %w", err)
	}
	return records, nil
}
