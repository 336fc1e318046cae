// Package runlog keeps a history of shots runs in the local SQLite
// database so past backups can be reviewed with `shots runs list`.
package runlog

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"nathanbeddoewebdev/shots/internal/database"
)

// Repository defines the persistence interface for run history.
type Repository interface {
	Save(run *Run) error
	List(limit int) ([]Run, error)
	Prune(olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the run history at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	if err := database.Migrate(db, "runlog", ddl); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

const ddl = `
	CREATE TABLE IF NOT EXISTS runs (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT    NOT NULL UNIQUE,
		operation   TEXT    NOT NULL,
		provider    TEXT    NOT NULL DEFAULT '',
		criterion   TEXT    NOT NULL DEFAULT '',
		threshold   TEXT    NOT NULL DEFAULT '',
		dry_run     INTEGER NOT NULL DEFAULT 0,
		started_at  TEXT    NOT NULL,
		finished_at TEXT    NOT NULL,
		done        INTEGER NOT NULL DEFAULT 0,
		skipped     INTEGER NOT NULL DEFAULT 0,
		failed      INTEGER NOT NULL DEFAULT 0,
		planned     INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_instances (
		run_id        TEXT NOT NULL,
		instance_id   TEXT NOT NULL,
		instance_name TEXT NOT NULL DEFAULT '',
		prior_state   TEXT NOT NULL DEFAULT '',
		final_state   TEXT NOT NULL DEFAULT '',
		outcome       TEXT NOT NULL,
		reason        TEXT NOT NULL DEFAULT '',
		snapshots     TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, instance_id)
	);
`

// Save stores a run and its instance results in one transaction.
func (r *SQLiteRepository) Save(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = run.StartedAt
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("runlog: begin failed: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO runs (run_id, operation, provider, criterion, threshold, dry_run,
		                  started_at, finished_at, done, skipped, failed, planned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Operation, run.Provider, run.Criterion, run.Threshold, run.DryRun,
		run.StartedAt.UTC().Format(database.TimeFormat), run.FinishedAt.UTC().Format(database.TimeFormat),
		run.Done, run.Skipped, run.Failed, run.Planned,
	)
	if err != nil {
		return fmt.Errorf("runlog: insert run failed: %w", err)
	}

	for _, inst := range run.Instances {
		_, err := tx.Exec(`
			INSERT INTO run_instances (run_id, instance_id, instance_name, prior_state, final_state, outcome, reason, snapshots)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, inst.InstanceID, inst.InstanceName, inst.PriorState, inst.FinalState,
			inst.Outcome, inst.Reason, strings.Join(inst.Snapshots, ","),
		)
		if err != nil {
			return fmt.Errorf("runlog: insert instance %s failed: %w", inst.InstanceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("runlog: commit failed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("runlog: failed to get last insert ID: %w", err)
	}
	run.ID = id
	return nil
}

// List returns the most recent runs with their instance results, newest
// first.
func (r *SQLiteRepository) List(limit int) ([]Run, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, operation, provider, criterion, threshold, dry_run,
		       started_at, finished_at, done, skipped, failed, planned
		FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: query failed: %w", err)
	}
	runs, err := scanRuns(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	for i := range runs {
		if runs[i].Instances, err = r.instances(runs[i].RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Prune deletes runs that started before now-olderThan.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(database.TimeFormat)

	tx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("runlog: begin failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		DELETE FROM run_instances WHERE run_id IN (SELECT run_id FROM runs WHERE started_at < ?)`, cutoff); err != nil {
		return 0, fmt.Errorf("runlog: delete instances failed: %w", err)
	}
	result, err := tx.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("runlog: delete runs failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("runlog: commit failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) instances(runID string) ([]Instance, error) {
	rows, err := r.db.Query(`
		SELECT instance_id, instance_name, prior_state, final_state, outcome, reason, snapshots
		FROM run_instances WHERE run_id = ? ORDER BY instance_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("runlog: query failed: %w", err)
	}
	defer rows.Close()

	var out []Instance
	for rows.Next() {
		var inst Instance
		var snaps string
		if err := rows.Scan(&inst.InstanceID, &inst.InstanceName, &inst.PriorState, &inst.FinalState,
			&inst.Outcome, &inst.Reason, &snaps); err != nil {
			return nil, fmt.Errorf("runlog: scan failed: %w", err)
		}
		if snaps != "" {
			inst.Snapshots = strings.Split(snaps, ",")
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var run Run
		var startedStr, finishedStr string
		err := rows.Scan(
			&run.ID, &run.RunID, &run.Operation, &run.Provider, &run.Criterion, &run.Threshold, &run.DryRun,
			&startedStr, &finishedStr, &run.Done, &run.Skipped, &run.Failed, &run.Planned,
		)
		if err != nil {
			return nil, fmt.Errorf("runlog: scan failed: %w", err)
		}
		run.StartedAt, _ = time.Parse(database.TimeFormat, startedStr)
		run.FinishedAt, _ = time.Parse(database.TimeFormat, finishedStr)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
