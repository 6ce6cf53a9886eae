package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	defaultBreakerTimeout = 60 * time.Second
	breakerMinRequests    = 3
	breakerFailureRatio   = 0.6
)

// newBreaker guards the search loop. Once it trips, searches fail fast until
// timeout has elapsed and a single probe request succeeds.
func newBreaker(name string, timeout time.Duration, logger *zap.SugaredLogger) *gobreaker.CircuitBreaker {
	if timeout <= 0 {
		timeout = defaultBreakerTimeout
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= breakerMinRequests && failureRatio >= breakerFailureRatio
		},
		// A caller that went away says nothing about GitHub's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnw("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
}
