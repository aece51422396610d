// Package store provides the SQLite-backed durable Store for jobs, events,
// artifacts, sessions, chat pointers, and pending approval UI tokens.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // driver
)

// CurrentSchemaVersion is the schema version createSchema produces.
const CurrentSchemaVersion = 1

// Open opens (creating if necessary) the SQLite database at path and brings
// its schema up to CurrentSchemaVersion.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

func initSchema(db *sql.DB) error {
	version, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if version == CurrentSchemaVersion {
		return nil
	}
	if version != 0 {
		// No migrations ship yet past version 1; a real upgrade would
		// dispatch to migrateToVersionN here, mirroring the base
		// repository's runMigrations switch.
		return fmt.Errorf("unsupported schema version %d, want %d", version, CurrentSchemaVersion)
	}
	return createSchema(db)
}

func schemaVersion(db *sql.DB) (int, error) {
	var exists int
	err := db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='schema_version'`).Scan(&exists)
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, nil
	}
	var version int
	if err := db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

var createSchemaStatements = []string{
	`CREATE TABLE schema_version (version INTEGER NOT NULL)`,
	`INSERT INTO schema_version (version) VALUES (1)`,

	`CREATE TABLE users (
		telegram_user_id INTEGER PRIMARY KEY,
		is_owner INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE TABLE jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		status TEXT NOT NULL,
		mode TEXT NOT NULL,
		session_name TEXT,
		prompt TEXT NOT NULL,
		risk_level TEXT NOT NULL,
		needs_approval INTEGER NOT NULL DEFAULT 0,
		approved_by INTEGER,
		started_at TEXT,
		finished_at TEXT,
		exit_code INTEGER,
		summary_text TEXT,
		error_text TEXT
	)`,
	`CREATE INDEX idx_jobs_status_created ON jobs(status, created_at)`,

	`CREATE TABLE job_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		timestamp TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		event_type TEXT NOT NULL,
		payload_json TEXT
	)`,
	`CREATE INDEX idx_job_events_job_id_ts ON job_events(job_id, timestamp)`,

	`CREATE TABLE artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		path TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		sha256 TEXT NOT NULL
	)`,
	`CREATE INDEX idx_artifacts_job_id ON artifacts(job_id)`,

	`CREATE TABLE sessions (
		name TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		pid INTEGER,
		started_at TEXT,
		last_seen_at TEXT,
		metadata_json TEXT
	)`,

	`CREATE TABLE chat_state (
		chat_id INTEGER PRIMARY KEY,
		active_session_name TEXT,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE TABLE pending_approval_checklist (
		chat_id INTEGER NOT NULL,
		message_id INTEGER NOT NULL,
		job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		PRIMARY KEY (chat_id, message_id)
	)`,

	`CREATE TABLE pending_approval_poll (
		poll_id TEXT PRIMARY KEY,
		job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,
}

func createSchema(db *sql.DB) error {
	for _, stmt := range createSchemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}
