package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the sqlx.DB connection.
type Database struct {
	*sqlx.DB
}

// schema defines the dedup ledger. The unique index on
// (repository, issue_number) is what makes MarkSeen atomic under
// concurrent webhook redeliveries.
const schema = `
CREATE TABLE IF NOT EXISTS seen_issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    repository TEXT NOT NULL,
    issue_number INTEGER NOT NULL,
    notified_at DATETIME NOT NULL,
    UNIQUE(repository, issue_number)
);

CREATE INDEX IF NOT EXISTS idx_seen_issues_repo ON seen_issues(repository);
`

// NewDatabase creates a new database connection and initializes the schema.
func NewDatabase(dbPath string) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Serialized writes avoid SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.DB.Close()
}
