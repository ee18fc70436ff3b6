package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slot interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, data []byte) error
}

// exerciseSlot runs the behaviour every backend shares.
func exerciseSlot(t *testing.T, s slot) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key is empty", func(t *testing.T) {
		_, err := s.Load(ctx, "never-written")
		assert.ErrorIs(t, err, ErrSlotEmpty)
	})

	t.Run("store then load returns the blob", func(t *testing.T) {
		require.NoError(t, s.Store(ctx, "sbnameDB", []byte(`{"version":"0.1","names":[]}`)))
		data, err := s.Load(ctx, "sbnameDB")
		require.NoError(t, err)
		assert.JSONEq(t, `{"version":"0.1","names":[]}`, string(data))
	})

	t.Run("store overwrites", func(t *testing.T) {
		require.NoError(t, s.Store(ctx, "sbnameDB", []byte(`first`)))
		require.NoError(t, s.Store(ctx, "sbnameDB", []byte(`second`)))
		data, err := s.Load(ctx, "sbnameDB")
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, s.Store(ctx, "a", []byte("A")))
		require.NoError(t, s.Store(ctx, "b", []byte("B")))
		a, err := s.Load(ctx, "a")
		require.NoError(t, err)
		b, err := s.Load(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "A", string(a))
		assert.Equal(t, "B", string(b))
	})
}

func TestMemorySlot(t *testing.T) {
	s := NewMemorySlot()
	exerciseSlot(t, s)

	t.Run("returned blobs are copies", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, s.Store(ctx, "copy", []byte("abc")))
		data, err := s.Load(ctx, "copy")
		require.NoError(t, err)
		data[0] = 'x'
		again, err := s.Load(ctx, "copy")
		require.NoError(t, err)
		assert.Equal(t, "abc", string(again))
	})
}

func TestFileSlot(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSlot(filepath.Join(dir, "nested", "slots"))
	require.NoError(t, err)
	exerciseSlot(t, s)

	t.Run("leaves no temp files behind", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Join(dir, "nested", "slots"))
		require.NoError(t, err)
		for _, e := range entries {
			assert.Equal(t, ".json", filepath.Ext(e.Name()), e.Name())
		}
	})

	t.Run("requires a directory", func(t *testing.T) {
		_, err := NewFileSlot("")
		assert.Error(t, err)
	})
}

func TestSQLiteSlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	s, err := NewSQLiteSlot(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	exerciseSlot(t, s)
	require.NoError(t, s.Health(context.Background()))

	t.Run("survives reopen", func(t *testing.T) {
		ctx := context.Background()
		require.NoError(t, s.Store(ctx, "durable", []byte("kept")))
		require.NoError(t, s.Close())

		reopened, err := NewSQLiteSlot(path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = reopened.Close() })
		data, err := reopened.Load(ctx, "durable")
		require.NoError(t, err)
		assert.Equal(t, "kept", string(data))
	})
}

func TestPostgresSlot(t *testing.T) {
	url := os.Getenv("SBNAME_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("SBNAME_TEST_POSTGRES_URL not set")
	}
	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err := NewPostgresSlot(context.Background(), db)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM cache_slots`)
	require.NoError(t, err)
	exerciseSlot(t, s)
}

func TestRedisSlot(t *testing.T) {
	url := os.Getenv("SBNAME_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SBNAME_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.FlushDB(context.Background()).Err())

	s := NewRedisSlot(client)
	require.NoError(t, s.Health(context.Background()))
	exerciseSlot(t, s)
}
