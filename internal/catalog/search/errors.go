package search

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for catalog search calls.
type ErrorCategory string

const (
	// ErrorTimeout indicates the catalog took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the catalog returned a body that is not JSON
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates credential or permission issues
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the catalog is unavailable
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates too many requests
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorInternal indicates an unexpected failure building or reading the call
	ErrorInternal ErrorCategory = "internal"

	// ErrorCanceled indicates the caller gave up before the catalog answered.
	// It says nothing about catalog health.
	ErrorCanceled ErrorCategory = "canceled"
)

// SearchError wraps a failed catalog call with a normalized category.
type SearchError struct {
	Category   ErrorCategory
	Source     string
	StatusCode int
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *SearchError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("search %s [%s]: %s: %v", e.Source, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("search %s [%s]: %s", e.Source, e.Category, e.Message)
}

// Unwrap supports error unwrapping
func (e *SearchError) Unwrap() error {
	return e.Underlying
}

// NewSearchError creates a normalized search error.
func NewSearchError(category ErrorCategory, source, message string, underlying error) *SearchError {
	return &SearchError{
		Category:   category,
		Source:     source,
		Message:    message,
		Underlying: underlying,
	}
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var se *SearchError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}

// IsCanceled reports whether err is a search the caller abandoned.
func IsCanceled(err error) bool {
	var se *SearchError
	return errors.As(err, &se) && se.Category == ErrorCanceled
}
