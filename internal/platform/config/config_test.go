package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sbname.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, DriverFile, cfg.Cache.Driver)
	assert.Equal(t, "searchquery", cfg.Search.QueryParam)
	assert.Equal(t, 10*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "...", cfg.Format.Suffix)
	assert.Equal(t, 4, cfg.Resolver.Concurrency)
}

func TestLoadFile_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server, cfg.Server)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, `
environment: staging
server:
  addr: ":9090"
  request_timeout: 3s
search:
  url: https://catalog.example/search
  timeout: 2s
cache:
  driver: sqlite
  sqlite_path: /var/lib/sbname/cache.db
format:
  crop_threshold: 30
  crop_length: 25
  wrap_tag: span
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 2*time.Second, cfg.Search.Timeout)
	assert.Equal(t, "https://catalog.example/search", cfg.Search.URL)
	assert.Equal(t, DriverSQLite, cfg.Cache.Driver)
	assert.Equal(t, "/var/lib/sbname/cache.db", cfg.Cache.SQLitePath)
	assert.Equal(t, Format{CropThreshold: 30, CropLength: 25, Suffix: "...", WrapTag: "span"}, cfg.Format)
	assert.Equal(t, "searchquery", cfg.Search.QueryParam, "unset keys keep defaults")
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "cache:\n  driver: sqlite\n")
	t.Setenv("SBNAME_CACHE_DRIVER", "redis")
	t.Setenv("SBNAME_REDIS_ADDR", "redis:6379")
	t.Setenv("SBNAME_REDIS_DB", "2")
	t.Setenv("SBNAME_SEARCH_TIMEOUT", "500ms")
	t.Setenv("SBNAME_S3_PATH_STYLE", "true")
	t.Setenv("SBNAME_CROP_THRESHOLD", "40")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, DriverRedis, cfg.Cache.Driver)
	assert.Equal(t, Redis{Addr: "redis:6379", DB: 2}, cfg.Cache.Redis)
	assert.Equal(t, 500*time.Millisecond, cfg.Search.Timeout)
	assert.True(t, cfg.Cache.S3.PathStyle)
	assert.Equal(t, 40, cfg.Format.CropThreshold)
}

func TestLoad_UsesConfigPathVariable(t *testing.T) {
	t.Setenv(EnvConfigPath, writeFile(t, "server:\n  addr: \":7070\"\n"))
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		yaml    string
		wantErr string
	}{
		{name: "bad integer", env: map[string]string{"SBNAME_REDIS_DB": "two"}, wantErr: "SBNAME_REDIS_DB"},
		{name: "bad duration", env: map[string]string{"SBNAME_SEARCH_TIMEOUT": "soon"}, wantErr: "SBNAME_SEARCH_TIMEOUT"},
		{name: "unknown driver", env: map[string]string{"SBNAME_CACHE_DRIVER": "localstorage"}, wantErr: "invalid cache driver"},
		{name: "postgres without url", env: map[string]string{"SBNAME_CACHE_DRIVER": "postgres"}, wantErr: "SBNAME_DATABASE_URL"},
		{name: "s3 without bucket", env: map[string]string{"SBNAME_CACHE_DRIVER": "s3"}, wantErr: "SBNAME_S3_BUCKET"},
		{name: "negative crop", env: map[string]string{"SBNAME_CROP_LENGTH": "-1"}, wantErr: "must not be negative"},
		{name: "malformed yaml", yaml: "server: [", wantErr: "failed to parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.yaml != "" {
				path = writeFile(t, tt.yaml)
			}

			_, err := LoadFile(path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
