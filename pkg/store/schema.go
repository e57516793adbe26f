package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
//
// Values are unsigned 64-bit; SQLite integers are signed, so they are stored
// as their two's-complement int64 bit pattern and converted back on read.
func CreateSchema(db *sql.DB) error {
	// Create schema_version table
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	if err := createAlmanacsTable(db); err != nil {
		return fmt.Errorf("creating almanacs table: %w", err)
	}

	if err := createRunsTable(db); err != nil {
		return fmt.Errorf("creating runs table: %w", err)
	}

	if err := createRangesTable(db); err != nil {
		return fmt.Errorf("creating ranges table: %w", err)
	}

	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Insert version if table is empty
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	return nil
}

func createAlmanacsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS almanacs (
			digest TEXT PRIMARY KEY NOT NULL,
			name TEXT NOT NULL,
			almanac_json TEXT NOT NULL
		)
	`)
	return err
}

func createRunsTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			digest TEXT NOT NULL REFERENCES almanacs(digest),
			almanac TEXT NOT NULL,
			stages INTEGER NOT NULL,
			lowest_scalar INTEGER NOT NULL,
			lowest_range INTEGER NOT NULL,
			workers INTEGER NOT NULL,
			solved_at TEXT NOT NULL,
			UNIQUE(digest, solved_at)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest)
	`)
	return err
}

func createRangesTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ranges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			low INTEGER NOT NULL,
			high INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create index for efficient range lookup by run
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ranges_run_id ON ranges(run_id)
	`)
	return err
}
