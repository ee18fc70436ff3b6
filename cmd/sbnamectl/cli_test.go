package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baronBody = `[{"ProductNumber":"2525","ProductNameBold":"Baron de Ley","ProductNameThin":"Reserva 2004"}]`

// catalogServer answers 2525 and returns no hits for anything else.
func catalogServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("searchquery") == "2525" {
			_, _ = w.Write([]byte(baronBody))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, searchURL string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sbname.yaml")
	body := fmt.Sprintf(`search:
  url: %s
cache:
  driver: file
  dir: %s
`, searchURL, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestResolve_WritesThroughToCache(t *testing.T) {
	var calls atomic.Int32
	srv := catalogServer(t, &calls)
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute(t, "--config", cfgPath, "resolve", "2525 (75 cl)", "999")
	require.NoError(t, err)
	assert.Contains(t, out, "2525\tBaron de Ley")
	assert.Contains(t, out, "(remote)")
	assert.Contains(t, out, "999\tnot found")

	out, err = execute(t, "--config", cfgPath, "resolve", "2525")
	require.NoError(t, err)
	assert.Contains(t, out, "(cache)")
	assert.Equal(t, int32(2), calls.Load(), "second resolve of 2525 must be served from cache")

	out, err = execute(t, "--config", cfgPath, "cache", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "CODE")
	assert.Contains(t, out, "Reserva 2004")
}

func TestResolve_JSONOutput(t *testing.T) {
	var calls atomic.Int32
	srv := catalogServer(t, &calls)
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute(t, "--config", cfgPath, "--json", "resolve", "2525")
	require.NoError(t, err)
	assert.Contains(t, out, `"found": true`)
	assert.Contains(t, out, `"extended_name": "Reserva 2004"`)
}

func TestResolve_TransportErrorFailsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute(t, "--config", cfgPath, "resolve", "2525")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 lookups failed")
	assert.Contains(t, out, "2525\terror:")
}

func TestResolve_RequiresArgument(t *testing.T) {
	_, err := execute(t, "resolve")
	require.Error(t, err)
}

func TestCacheGetAndRemove(t *testing.T) {
	var calls atomic.Int32
	srv := catalogServer(t, &calls)
	cfgPath := writeConfig(t, srv.URL)

	_, err := execute(t, "--config", cfgPath, "resolve", "2525")
	require.NoError(t, err)

	out, err := execute(t, "--config", cfgPath, "cache", "get", "2525")
	require.NoError(t, err)
	assert.Contains(t, out, "name:      Baron de Ley")

	_, err = execute(t, "--config", cfgPath, "cache", "rm", "2525abc")
	require.Error(t, err)

	out, err = execute(t, "--config", cfgPath, "cache", "rm", "2525")
	require.NoError(t, err)
	assert.Equal(t, "removed 2525\n", out)

	_, err = execute(t, "--config", cfgPath, "cache", "get", "2525")
	require.Error(t, err)

	_, err = execute(t, "--config", cfgPath, "cache", "rm", "2525")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not cached")
}

func TestCacheList_Empty(t *testing.T) {
	var calls atomic.Int32
	srv := catalogServer(t, &calls)
	cfgPath := writeConfig(t, srv.URL)

	out, err := execute(t, "--config", cfgPath, "cache", "list")
	require.NoError(t, err)
	assert.Equal(t, "cache is empty", strings.TrimSpace(out))
}

func TestCache_DriverNone(t *testing.T) {
	var calls atomic.Int32
	srv := catalogServer(t, &calls)
	cfgPath := writeConfig(t, srv.URL)

	_, err := execute(t, "--config", cfgPath, "--cache-driver", "none", "cache", "list")
	require.ErrorIs(t, err, errNoCache)
}

func TestCacheGet_InvalidCode(t *testing.T) {
	var calls atomic.Int32
	srv := catalogServer(t, &calls)
	cfgPath := writeConfig(t, srv.URL)

	_, err := execute(t, "--config", cfgPath, "cache", "get", "abc")
	require.Error(t, err)
}
