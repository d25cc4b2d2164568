package marketplace

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ProactiveRate is the default request rate per second.
const ProactiveRate = 5

// Quota headers sent on every marketplace response.
const (
	// HeaderTokenCount is the number of calls left in the current window.
	HeaderTokenCount = "X-Current-Token-Count"

	// HeaderReplenishAt is when the window refills, in Unix milliseconds.
	HeaderReplenishAt = "X-Next-Replenishment-Time"

	// HeaderRetryAfter accompanies 429 responses, in seconds or as an HTTP date.
	HeaderRetryAfter = "Retry-After"
)

// reserveTokens are left unspent so other processes sharing the seller
// account are not starved.
const reserveTokens = 2

// Throttle paces requests. A token bucket enforces a steady rate and the
// quota reported by the marketplace pauses all requests once it runs low.
type Throttle struct {
	bucket *rate.Limiter
	now    func() time.Time

	mu          sync.Mutex
	tokens      int
	known       bool
	replenishAt time.Time
}

// NewThrottle creates a throttle allowing rps requests per second.
// A non-positive rps uses ProactiveRate.
func NewThrottle(rps float64) *Throttle {
	if rps <= 0 {
		rps = ProactiveRate
	}
	return &Throttle{
		bucket: rate.NewLimiter(rate.Limit(rps), 1),
		now:    time.Now,
	}
}

// Wait blocks until the next request may be sent.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := t.bucket.Wait(ctx); err != nil {
		return err
	}

	pause := t.pause()
	if pause <= 0 {
		return nil
	}

	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// pause is how long to hold off until the quota refills. Zero while the
// quota is unknown or above the reserve.
func (t *Throttle) pause() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.known || t.tokens > reserveTokens {
		return 0
	}
	return t.replenishAt.Sub(t.now())
}

// Observe records the quota headers of a response. Unparsable headers are
// ignored.
func (t *Throttle) Observe(h http.Header) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, err := strconv.Atoi(h.Get(HeaderTokenCount)); err == nil {
		t.tokens = v
		t.known = true
	}
	if v, err := strconv.ParseInt(h.Get(HeaderReplenishAt), 10, 64); err == nil {
		t.replenishAt = time.UnixMilli(v)
	}
}

// Rejected handles a response after Observe. It returns a RateLimitError
// for 429 responses and blocks later requests until the retry time.
func (t *Throttle) Rejected(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	retryAt := t.replenishAt
	if at, ok := parseRetryAfter(resp.Header.Get(HeaderRetryAfter), t.now()); ok {
		retryAt = at
	}
	t.tokens = 0
	t.known = true
	t.replenishAt = retryAt

	return &RateLimitError{RetryAt: retryAt}
}

// Quota returns the last reported token count and refill time.
// ok is false until a response carried the token header.
func (t *Throttle) Quota() (tokens int, replenishAt time.Time, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tokens, t.replenishAt, t.known
}

func parseRetryAfter(v string, now time.Time) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return now.Add(time.Duration(secs) * time.Second), true
	}
	if at, err := http.ParseTime(v); err == nil {
		return at, true
	}
	return time.Time{}, false
}
