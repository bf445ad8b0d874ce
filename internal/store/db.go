// Package store provides the SQLite database and the persistence
// operations for accounts and plans. The job scheduler shares the same
// database; its tables are created here so the schema lives in one place.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection.
type DB struct {
	*sql.DB
}

// Open opens the database and initializes the schema.
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &DB{db}, nil
}

// initSchema creates all required tables.
func initSchema(db *sql.DB) error {
	// Account - a single row keyed by a fixed name
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS account (
			account_name TEXT PRIMARY KEY,
			pat_token TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create account table: %w", err)
	}

	// Plan - definition is the serialized YAML document
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS plan (
			plan_name TEXT PRIMARY KEY,
			enabled INTEGER NOT NULL DEFAULT 0,
			definition TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create plan table: %w", err)
	}

	// Scheduled jobs - daily recurring and pending one-shot refreshes
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS job (
			job_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			plan_name TEXT NOT NULL,
			location TEXT NOT NULL,
			trigger_time TEXT NOT NULL DEFAULT '',
			time_zone TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_job_kind ON job(kind, created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to create job table: %w", err)
	}

	// Last completion per daily job, drives misfire recovery on boot
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS job_run (
			job_id TEXT PRIMARY KEY,
			completed_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create job_run table: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
