// Package database provides SQLite-backed persistence for discovery runs,
// so reports survive process restarts and can be retrieved by run ID.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pastetrace/pastetrace/internal/model"
)

// dbFileName is the SQLite file created inside the data directory.
const dbFileName = "pastetrace.db"

// RunDB provides SQLite-based storage for run records and their reports.
//
// Design decision: We use a single database file for all runs rather than
// a file per run. This keeps listing cheap and makes backup/restore a
// single-file operation.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a RunDB inside dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection strings: mode=rw prevents creating new
	// files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; multiple connections just contend.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// Path returns the location of the database file.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	-- Run records track the lifecycle of every discovery run
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		progress REAL NOT NULL DEFAULT 0,
		total_results INTEGER NOT NULL DEFAULT 0,
		seeds TEXT,
		options TEXT NOT NULL,
		created_at TEXT NOT NULL,
		completed_at TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);

	-- Reports store the complete discovery output as JSON, one per run
	CREATE TABLE IF NOT EXISTS reports (
		run_id TEXT PRIMARY KEY REFERENCES runs(id),
		report_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun inserts or updates a run record.
// Uses UPSERT so progress updates and terminal transitions reuse one path.
func (rdb *RunDB) SaveRun(ctx context.Context, record *model.RunRecord) error {
	seedsJSON, err := json.Marshal(record.Seeds)
	if err != nil {
		return fmt.Errorf("failed to serialize seeds: %w", err)
	}
	optionsJSON, err := json.Marshal(record.Options)
	if err != nil {
		return fmt.Errorf("failed to serialize options: %w", err)
	}

	var completedAt any
	if !record.CompletedAt.IsZero() {
		completedAt = record.CompletedAt.UTC().Format(time.RFC3339Nano)
	}

	query := `
	INSERT INTO runs (id, status, progress, total_results, seeds, options, created_at, completed_at, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		progress = excluded.progress,
		total_results = excluded.total_results,
		completed_at = excluded.completed_at,
		error = excluded.error
	`

	_, err = rdb.db.ExecContext(ctx, query,
		record.ID,
		string(record.Status),
		record.Progress,
		record.TotalResults,
		string(seedsJSON),
		string(optionsJSON),
		record.CreatedAt.UTC().Format(time.RFC3339Nano),
		completedAt,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun retrieves a run record by ID.
// Returns (nil, nil) when the run does not exist.
func (rdb *RunDB) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	query := `
	SELECT id, status, progress, total_results, seeds, options, created_at, completed_at, error
	FROM runs
	WHERE id = ?
	`
	record, err := scanRun(rdb.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return record, nil
}

// ListRuns retrieves every run record, most recent first.
func (rdb *RunDB) ListRuns(ctx context.Context) ([]*model.RunRecord, error) {
	query := `
	SELECT id, status, progress, total_results, seeds, options, created_at, completed_at, error
	FROM runs
	ORDER BY created_at DESC
	`
	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*model.RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return records, nil
}

// SaveReport stores the report for a completed run, replacing any
// previous report for the same run.
func (rdb *RunDB) SaveReport(ctx context.Context, runID string, report *model.DiscoveryReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO reports (run_id, report_json, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT(run_id) DO UPDATE SET
		report_json = excluded.report_json,
		created_at = excluded.created_at
	`
	_, err = rdb.db.ExecContext(ctx, query,
		runID,
		string(reportJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport retrieves the report for a run.
// Returns (nil, nil) when no report exists for the run.
func (rdb *RunDB) GetReport(ctx context.Context, runID string) (*model.DiscoveryReport, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx,
		`SELECT report_json FROM reports WHERE run_id = ?`, runID).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.DiscoveryReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanRun.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*model.RunRecord, error) {
	var record model.RunRecord
	var status, seedsJSON, optionsJSON, createdAt string
	var completedAt sql.NullString
	var runErr sql.NullString

	if err := row.Scan(
		&record.ID,
		&status,
		&record.Progress,
		&record.TotalResults,
		&seedsJSON,
		&optionsJSON,
		&createdAt,
		&completedAt,
		&runErr,
	); err != nil {
		return nil, err
	}

	record.Status = model.RunStatus(status)
	record.Error = runErr.String

	if seedsJSON != "" {
		if err := json.Unmarshal([]byte(seedsJSON), &record.Seeds); err != nil {
			return nil, fmt.Errorf("failed to parse seeds: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(optionsJSON), &record.Options); err != nil {
		return nil, fmt.Errorf("failed to parse options: %w", err)
	}

	record.CreatedAt = parseTimestamp(createdAt)
	if completedAt.Valid {
		record.CompletedAt = parseTimestamp(completedAt.String)
	}
	return &record, nil
}

// parseTimestamp parses the RFC 3339 timestamps this package writes,
// falling back to the SQLite default format for rows written by older
// tooling.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
