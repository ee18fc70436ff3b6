package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.Register(r)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestLiveness(t *testing.T) {
	w := serve(t, New("test"), "/health/live")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"alive"}`, w.Body.String())
}

func TestStatus(t *testing.T) {
	w := serve(t, New("staging"), "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "staging", resp.Environment)
	assert.Equal(t, Version, resp.Version)
}

func TestReadiness(t *testing.T) {
	t.Run("ready without checks", func(t *testing.T) {
		w := serve(t, New("test"), "/health/ready")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("all checks up", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("cache", func(context.Context) error { return nil })
		h.RegisterCheck("catalog", func(context.Context) error { return nil })

		w := serve(t, h, "/health/ready")

		require.Equal(t, http.StatusOK, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "ready", resp.Status)
		assert.Equal(t, map[string]string{"cache": "up", "catalog": "up"}, resp.Checks)
	})

	t.Run("one check down", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("cache", func(context.Context) error { return nil })
		h.RegisterCheck("catalog", func(context.Context) error { return errors.New("circuit open") })

		w := serve(t, h, "/health/ready")

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		var resp ReadinessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not_ready", resp.Status)
		assert.Equal(t, "down: circuit open", resp.Checks["catalog"])
		assert.Equal(t, "up", resp.Checks["cache"])
	})

	t.Run("checks receive a deadline", func(t *testing.T) {
		h := New("test")
		h.RegisterCheck("slot", func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				return errors.New("no deadline")
			}
			return nil
		})
		assert.Equal(t, http.StatusOK, serve(t, h, "/health/ready").Code)
	})
}
