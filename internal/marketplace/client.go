package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent identifies the client to the marketplace.
	DefaultUserAgent = "marketsync/1.0"

	// maxErrorBody caps how much of an error body ends up in an APIError.
	maxErrorBody = 512
)

// Ensure Client implements the interface.
var _ driven.MarketplaceClient = (*Client)(nil)

// Config holds marketplace connection settings.
type Config struct {
	// BaseURL is the API root, e.g. https://marketplace.example.com.
	BaseURL string

	// ClientID and ClientSecret enable OAuth2 client-credentials auth.
	ClientID     string
	ClientSecret string

	// TokenURL defaults to BaseURL + "/v3/token".
	TokenURL string

	// APIKey is sent as a bearer token when OAuth is not configured.
	APIKey string

	// Timeout is the per-request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RequestsPerSecond overrides the proactive throttle.
	RequestsPerSecond float64

	UserAgent string
}

// Client performs authenticated JSON requests against the marketplace.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
	userAgent string
	throttle  *Throttle
}

// NewClient creates a marketplace client from configuration.
// OAuth2 client credentials take precedence over an API key.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrMissingBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var hc *http.Client
	switch {
	case cfg.ClientID != "" && cfg.ClientSecret != "":
		tokenURL := cfg.TokenURL
		if tokenURL == "" {
			tokenURL = base + "/v3/token"
		}
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		hc = cc.Client(ctx)
	case cfg.APIKey != "":
		hc = &http.Client{}
	default:
		return nil, ErrMissingCredentials
	}
	hc.Timeout = timeout

	c := NewClientWithHTTPClient(base, hc)
	c.apiKey = cfg.APIKey
	if cfg.UserAgent != "" {
		c.userAgent = cfg.UserAgent
	}
	if cfg.RequestsPerSecond > 0 {
		c.throttle = NewThrottle(cfg.RequestsPerSecond)
	}
	return c, nil
}

// NewClientWithHTTPClient creates a client around an existing http.Client.
// Useful for tests and for callers that manage authentication themselves.
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		http:      httpClient,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: DefaultUserAgent,
		throttle:  NewThrottle(0),
	}
}

// Throttle exposes the request pacing state.
func (c *Client) Throttle() *Throttle {
	return c.throttle
}

// Request performs one API call and returns the response body.
func (c *Client) Request(
	ctx context.Context, method, endpoint string, query url.Values, body any,
) ([]byte, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return nil, fmt.Errorf("throttle wait: %w", err)
	}

	target := c.baseURL + endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("WM_QOS.CORRELATION_ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logger.Debug("%s %s", method, target)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	c.throttle.Observe(resp.Header)
	if err := c.throttle.Rejected(resp); err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			URL:        target,
		}
	}

	return data, nil
}
