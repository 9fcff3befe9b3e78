package migrations

import (
	"database/sql"
	_ "embed"
	"fmt"
)

//go:embed 001_initial_schema.sql
var initialSchemaSQL string

//go:embed 002_bucket_indexes.sql
var bucketIndexesSQL string

// All contains all migrations in order. Each migration's index+1 is its version number.
var All = []string{
	initialSchemaSQL, // version 1
	bucketIndexesSQL, // version 2
}

// Version reads the schema version stored in PRAGMA user_version
func Version(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// Migrate applies every migration newer than the stored version, each in its
// own transaction together with the version bump. A failed migration rolls
// back and stops.
func Migrate(db *sql.DB) error {
	version, err := Version(db)
	if err != nil {
		return err
	}
	if version > len(All) {
		return fmt.Errorf("schema version %d is newer than this build supports (%d)", version, len(All))
	}

	for i := version; i < len(All); i++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", i+1, err)
		}

		if _, err := tx.Exec(All[i]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}

		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to set schema version to %d: %w", i+1, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
	}

	return nil
}
