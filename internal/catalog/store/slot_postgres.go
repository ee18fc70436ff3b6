package store

import (
	"context"
	"database/sql"
	"fmt"

	"sbname/migrations"
)

// PostgresSlot is an SQLSlot over a PostgreSQL pool opened with the pgx driver.
type PostgresSlot struct {
	SQLSlot
}

// NewPostgresSlot wraps db and applies the cache_slots migration.
// The caller owns db and closes it.
func NewPostgresSlot(ctx context.Context, db *sql.DB) (*PostgresSlot, error) {
	if db == nil {
		return nil, fmt.Errorf("postgres slot requires a database")
	}
	ddl, err := migrations.FS.ReadFile("001_cache_slots.sql")
	if err != nil {
		return nil, fmt.Errorf("read migration: %w", err)
	}
	if _, err := db.ExecContext(ctx, string(ddl)); err != nil {
		return nil, fmt.Errorf("apply cache_slots migration: %w", err)
	}
	return &PostgresSlot{SQLSlot: newSQLSlot(db, dollarPlaceholder)}, nil
}
