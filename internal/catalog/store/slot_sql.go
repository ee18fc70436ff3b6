package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// SQLSlot keeps blobs in the cache_slots table. The upsert is valid for both
// SQLite and PostgreSQL; only the placeholder style differs.
type SQLSlot struct {
	db          *sql.DB
	selectQuery string
	upsertQuery string
}

func newSQLSlot(db *sql.DB, placeholder func(n int) string) SQLSlot {
	return SQLSlot{
		db:          db,
		selectQuery: `SELECT payload FROM cache_slots WHERE name = ` + placeholder(1),
		upsertQuery: `
		INSERT INTO cache_slots (name, payload, updated_at)
		VALUES (` + placeholder(1) + `, ` + placeholder(2) + `, ` + placeholder(3) + `)
		ON CONFLICT (name) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`,
	}
}

func dollarPlaceholder(n int) string { return "$" + strconv.Itoa(n) }

func questionPlaceholder(int) string { return "?" }

// Load selects the payload for key.
func (s *SQLSlot) Load(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, s.selectQuery, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("select slot %s: %w", key, err)
	}
	return payload, nil
}

// Store upserts the payload for key.
func (s *SQLSlot) Store(ctx context.Context, key string, data []byte) error {
	if _, err := s.db.ExecContext(ctx, s.upsertQuery, key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("save slot %s: %w", key, err)
	}
	return nil
}

// Health pings the database.
func (s *SQLSlot) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
