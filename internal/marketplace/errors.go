package marketplace

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// Marketplace-specific errors.
var (
	// ErrMissingBaseURL indicates the client was configured without an API base URL.
	ErrMissingBaseURL = errors.New("marketplace: base url is required")

	// ErrMissingCredentials indicates neither OAuth client credentials nor an API key were given.
	ErrMissingCredentials = errors.New("marketplace: credentials are required")
)

// RateLimitError is a 429 response. RetryAt is zero when the marketplace
// gave no hint.
type RateLimitError struct {
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.RetryAt.IsZero() {
		return "marketplace: rate limited"
	}
	return fmt.Sprintf("marketplace: rate limited until %s", e.RetryAt.Format(time.RFC3339))
}

// Unwrap lets callers match domain.ErrRateLimited.
func (e *RateLimitError) Unwrap() error {
	return domain.ErrRateLimited
}

// APIError represents a marketplace API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps authentication failures onto domain.ErrAuthInvalid.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return domain.ErrAuthInvalid
	}
	return nil
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsServerError checks if the error is a transient 5xx response.
func IsServerError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	return false
}
