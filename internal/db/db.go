package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chris/tgrid/internal/db/migrations"
	"github.com/chris/tgrid/internal/logger"
)

// SchemaVersion is the schema version this build migrates to
var SchemaVersion = len(migrations.All)

// DB wraps the SQLite export database connection
type DB struct {
	conn *sql.DB
	path string
	log  *zap.Logger
}

// Options configures database connection behavior
type Options struct {
	// SkipMigrate opens the database without applying pending migrations
	SkipMigrate bool
	Log         *zap.Logger
}

// New opens (creating if needed) the export database at dbPath and brings
// its schema up to date
func New(dbPath string) (*DB, error) {
	return NewWithOptions(dbPath, Options{})
}

// NewWithOptions opens the export database with configurable options
func NewWithOptions(dbPath string, opts Options) (*DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if dbPath[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dbPath = filepath.Join(home, dbPath[1:])
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// PRAGMAs below are per connection
	conn.SetMaxOpenConns(1)

	// Set busy timeout first, before any other operations that might need write locks
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if !opts.SkipMigrate {
		if err := migrations.Migrate(conn); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &DB{
		conn: conn,
		path: dbPath,
		log:  logger.OrNop(opts.Log),
	}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

// Version returns the stored schema version
func (db *DB) Version() (int, error) {
	return migrations.Version(db.conn)
}

// Tables returns the names of the user tables in the database
func (db *DB) Tables() ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}
