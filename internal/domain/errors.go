package domain

import "errors"

var (
	// ErrFetchFailed is returned when pull requests could not be retrieved from GitHub.
	// No partial collection is ever returned together with it.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrInvalidArgument signals failed input validation.
	ErrInvalidArgument = errors.New("invalid argument")
)
