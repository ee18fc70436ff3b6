// Package search talks to the remote product catalog search endpoint and
// normalizes whatever shape it answers with into a flat list of products.
package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"sbname/internal/catalog/models"
	"sbname/pkg/platform/circuit"
)

const (
	// DefaultQueryParam is the search term parameter of the product search endpoint.
	DefaultQueryParam = "searchquery"
	// DefaultTimeout bounds a single search call.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 4 << 20
)

//go:generate mockgen -source=client.go -destination=mocks/mock_doer.go -package=mocks HTTPDoer

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPClient issues catalog searches over HTTP.
type HTTPClient struct {
	id         string
	baseURL    string
	apiKey     string
	queryParam string
	timeout    time.Duration
	client     HTTPDoer
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

// HTTPClientOption configures the HTTPClient.
type HTTPClientOption func(*HTTPClient)

// WithHTTPDoer sets a custom HTTP client (for testing).
func WithHTTPDoer(d HTTPDoer) HTTPClientOption {
	return func(c *HTTPClient) {
		c.client = d
	}
}

// WithAPIKey sends key in the X-API-Key header.
func WithAPIKey(key string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithQueryParam overrides the search term parameter name.
func WithQueryParam(name string) HTTPClientOption {
	return func(c *HTTPClient) {
		if name != "" {
			c.queryParam = name
		}
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithBreaker tracks consecutive failures on b. The breaker never blocks a
// call; it only reports catalog health.
func WithBreaker(b *circuit.Breaker) HTTPClientOption {
	return func(c *HTTPClient) {
		c.breaker = b
	}
}

// WithLogger sets the logger used for breaker transitions.
func WithLogger(logger *slog.Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTPClient creates a search client for the endpoint at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPClientOption) *HTTPClient {
	c := &HTTPClient{
		id:         "catalog-http",
		baseURL:    baseURL,
		queryParam: DefaultQueryParam,
		timeout:    DefaultTimeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	return c
}

// ID returns the client identifier used in errors.
func (c *HTTPClient) ID() string {
	return c.id
}

// Search performs exactly one request for term and decodes the response.
// A 404 means no hits. Every other failure is a *SearchError.
func (c *HTTPClient) Search(ctx context.Context, term string) ([]models.Product, error) {
	products, err := c.search(ctx, term)
	c.observe(ctx, err)
	return products, err
}

func (c *HTTPClient) search(ctx context.Context, term string) ([]models.Product, error) {
	endpoint, err := c.buildURL(term)
	if err != nil {
		return nil, NewSearchError(ErrorInternal, c.id, "invalid search endpoint", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewSearchError(ErrorInternal, c.id, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewSearchError(ErrorCanceled, c.id, "request canceled by caller", ctx.Err())
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
			return nil, NewSearchError(ErrorTimeout, c.id, "request timeout", err)
		}
		return nil, NewSearchError(ErrorProviderOutage, c.id, "failed to execute request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, NewSearchError(ErrorCanceled, c.id, "request canceled by caller", ctx.Err())
		}
		return nil, NewSearchError(ErrorInternal, c.id, "failed to read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// Success - continue to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, statusError(ErrorAuthentication, c.id, resp.StatusCode, "authentication failed")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, statusError(ErrorRateLimited, c.id, resp.StatusCode, "rate limited")
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, statusError(ErrorTimeout, c.id, resp.StatusCode, "upstream timeout")
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, statusError(ErrorProviderOutage, c.id, resp.StatusCode, "service unavailable")
	default:
		return nil, statusError(ErrorInternal, c.id, resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	products, err := Decode(body)
	if err != nil {
		var se *SearchError
		if errors.As(err, &se) {
			se.Source = c.id
		}
		return nil, err
	}
	return products, nil
}

func (c *HTTPClient) buildURL(term string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("search endpoint %q must be absolute", c.baseURL)
	}
	q := u.Query()
	q.Set(c.queryParam, term)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// observe feeds the breaker and logs state transitions. Calls the caller
// canceled are not recorded either way.
func (c *HTTPClient) observe(ctx context.Context, err error) {
	if c.breaker == nil || IsCanceled(err) {
		return
	}
	if err != nil {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.logger.WarnContext(ctx, "catalog circuit opened",
				"breaker", c.breaker.Name(),
				"error", err,
			)
		}
		return
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "catalog circuit closed", "breaker", c.breaker.Name())
	}
}

// Health reports an error while the breaker is open.
func (c *HTTPClient) Health() error {
	if c.breaker != nil && c.breaker.IsOpen() {
		return fmt.Errorf("catalog circuit %s is open", c.breaker.Name())
	}
	return nil
}

func statusError(category ErrorCategory, source string, status int, message string) *SearchError {
	se := NewSearchError(category, source, message, nil)
	se.StatusCode = status
	return se
}

type timeoutError interface {
	Timeout() bool
}

func isTimeout(err error) bool {
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}
