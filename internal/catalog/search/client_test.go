package search

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"sbname/internal/catalog/search/mocks"
	"sbname/pkg/platform/circuit"
)

func TestHTTPClient_Search(t *testing.T) {
	var gotQuery, gotKey string
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		gotQuery = r.URL.Query().Get("searchquery")
		gotKey = r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ProductNumber":"2525","ProductNameBold":"Baron de Ley","ProductNameThin":"Reserva 2004"}]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, WithAPIKey("secret"))
	products, err := client.Search(context.Background(), "2525")

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Baron de Ley", products[0].Name)
	assert.Equal(t, "2525", gotQuery)
	assert.Equal(t, "secret", gotKey)
	assert.Equal(t, 1, calls)
}

func TestHTTPClient_CustomQueryParam(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2525", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"?format=json", WithQueryParam("q"))
	products, err := client.Search(context.Background(), "2525")

	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestHTTPClient_StatusClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category ErrorCategory
		wantErr  bool
	}{
		{name: "not found means no hits", status: http.StatusNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, category: ErrorAuthentication, wantErr: true},
		{name: "forbidden", status: http.StatusForbidden, category: ErrorAuthentication, wantErr: true},
		{name: "rate limited", status: http.StatusTooManyRequests, category: ErrorRateLimited, wantErr: true},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, category: ErrorTimeout, wantErr: true},
		{name: "server error", status: http.StatusServiceUnavailable, category: ErrorProviderOutage, wantErr: true},
		{name: "unexpected status", status: http.StatusTeapot, category: ErrorInternal, wantErr: true},
		{name: "invalid body", status: http.StatusOK, body: `<html>`, category: ErrorBadData, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			products, err := NewHTTPClient(server.URL).Search(context.Background(), "2525")
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Empty(t, products)
				return
			}

			require.Error(t, err)
			assert.Equal(t, tt.category, GetCategory(err))
			var se *SearchError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, "catalog-http", se.Source)
		})
	}
}

func TestHTTPClient_TransportFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockHTTPDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).Return(nil, errors.New("connection refused")).Times(1)

	client := NewHTTPClient("http://catalog.invalid/search", WithHTTPDoer(doer))
	_, err := client.Search(context.Background(), "2525")

	require.Error(t, err)
	assert.Equal(t, ErrorProviderOutage, GetCategory(err))
}

func TestHTTPClient_Timeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockHTTPDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := NewHTTPClient("http://catalog.invalid/search", WithHTTPDoer(doer)).Search(ctx, "2525")

	require.Error(t, err)
	assert.Equal(t, ErrorTimeout, GetCategory(err))
}

func TestHTTPClient_CallerCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	breaker := circuit.New("catalog", circuit.WithFailureThreshold(3))
	client := NewHTTPClient(server.URL, WithBreaker(breaker))

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)

		_, err := client.Search(ctx, "2525")
		cancel()

		require.Error(t, err)
		assert.Equal(t, ErrorCanceled, GetCategory(err))
		assert.True(t, IsCanceled(err))
		assert.ErrorIs(t, err, context.Canceled)
	}

	assert.False(t, breaker.IsOpen(), "caller cancellations must not count as catalog failures")
	assert.NoError(t, client.Health())
}

func TestHTTPClient_RequestShape(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockHTTPDoer(ctrl)
	doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		assert.Empty(t, req.Header.Get("X-API-Key"))
		assert.Equal(t, "7710", req.URL.Query().Get("searchquery"))
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"code":"7710","name":"Chablis"}`)),
		}, nil
	})

	products, err := NewHTTPClient("http://catalog.invalid/search", WithHTTPDoer(doer)).Search(context.Background(), "7710")

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Chablis", products[0].Name)
}

func TestHTTPClient_RelativeEndpoint(t *testing.T) {
	_, err := NewHTTPClient("/search").Search(context.Background(), "2525")
	require.Error(t, err)
	assert.Equal(t, ErrorInternal, GetCategory(err))
}

func TestHTTPClient_BreakerHealth(t *testing.T) {
	ctrl := gomock.NewController(t)
	doer := mocks.NewMockHTTPDoer(ctrl)
	gomock.InOrder(
		doer.EXPECT().Do(gomock.Any()).Return(nil, errors.New("down")).Times(2),
		doer.EXPECT().Do(gomock.Any()).DoAndReturn(func(*http.Request) (*http.Response, error) {
			return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`[]`))}, nil
		}),
	)

	breaker := circuit.New("catalog", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1))
	client := NewHTTPClient("http://catalog.invalid/search", WithHTTPDoer(doer), WithBreaker(breaker))

	require.NoError(t, client.Health())
	_, _ = client.Search(context.Background(), "1")
	_, _ = client.Search(context.Background(), "1")
	assert.Error(t, client.Health())

	_, err := client.Search(context.Background(), "1")
	require.NoError(t, err)
	assert.NoError(t, client.Health())
}
