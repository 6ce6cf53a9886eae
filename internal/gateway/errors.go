package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/go-github/v62/github"
	"github.com/sony/gobreaker"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
)

// IsRetryable reports whether repeating a failed call could succeed.
// Client errors other than rate limiting, invalid input, cancellation and an
// open circuit breaker are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		code := errResp.Response.StatusCode
		if code >= 400 && code < 500 && code != http.StatusForbidden && code != http.StatusTooManyRequests {
			return false
		}
	}
	return true
}
