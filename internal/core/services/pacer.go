package services

import (
	"time"

	"golang.org/x/time/rate"
)

// newPacer returns a limiter that lets the first call through immediately
// and spaces every following call by at least delay. A zero delay never blocks.
func newPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
