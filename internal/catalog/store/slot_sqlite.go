package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS cache_slots (
	name TEXT PRIMARY KEY,
	payload BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SQLiteSlot is an SQLSlot over a local SQLite file.
type SQLiteSlot struct {
	SQLSlot
	path string
}

// NewSQLiteSlot opens (creating if needed) the database at path.
func NewSQLiteSlot(path string) (*SQLiteSlot, error) {
	if path == "" {
		path = "sbname.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between overlapping persists.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache_slots table: %w", err)
	}
	return &SQLiteSlot{SQLSlot: newSQLSlot(db, questionPlaceholder), path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteSlot) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteSlot) Close() error {
	return s.db.Close()
}
