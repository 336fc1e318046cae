package domain

import "errors"

// Sentinel errors for cross-provider error classification.
// Providers wrap these so callers can handle error categories
// uniformly without importing provider-specific SDKs.
//
//	return fmt.Errorf("failed to stop instance: %w", domain.ErrNotFound)
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the request was rejected due to
	// invalid, expired, or missing credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict indicates a state conflict, such as an operation on an
	// instance that is locked by another action.
	ErrConflict = errors.New("conflict")

	// ErrTimeout indicates a target state was not reached before the
	// wait deadline.
	ErrTimeout = errors.New("timed out")
)
