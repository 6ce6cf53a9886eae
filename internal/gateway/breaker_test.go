package gateway

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
)

func TestGitHubGateway_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var requests atomic.Int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}
	gateway := setupTestGateway(t, http.HandlerFunc(handler), Config{})

	for i := 0; i < breakerMinRequests; i++ {
		_, err := gateway.SearchPullRequests(context.Background(), "octocat", SearchFilter{})
		assert.ErrorIs(t, err, domain.ErrFetchFailed)
	}
	assert.Equal(t, int32(breakerMinRequests), requests.Load())
	assert.Equal(t, gobreaker.StateOpen, gateway.breaker.State())

	_, err := gateway.SearchPullRequests(context.Background(), "octocat", SearchFilter{})
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(breakerMinRequests), requests.Load(), "open breaker must not reach GitHub")
}

func TestGitHubGateway_BreakerIgnoresCanceledRequests(t *testing.T) {
	var requests atomic.Int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}
	gateway := setupTestGateway(t, http.HandlerFunc(handler), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < breakerMinRequests+2; i++ {
		_, err := gateway.SearchPullRequests(ctx, "octocat", SearchFilter{})
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, gateway.breaker.State())

	_, err := gateway.SearchPullRequests(context.Background(), "octocat", SearchFilter{})
	assert.ErrorIs(t, err, domain.ErrFetchFailed)
	assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(1), requests.Load(), "canceled searches never reach GitHub")
}
