// Package errors implements the error-kind taxonomy the pipeline and job
// runtime use to decide retry, propagation and user-visibility behavior.
// Kinds are data, not distinct Go types, so a job record can carry one
// across a KeyValueStore round trip.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel causes, grouped by the kind that wraps them.
var (
	ErrEmptyText        = errors.New("submission text is empty")
	ErrUnsupportedType  = errors.New("unsupported submission type")
	ErrFetchFailed      = errors.New("url fetch failed")
	ErrDecodeFailed     = errors.New("document decode failed")

	ErrNetworkFailure   = errors.New("network request failed")
	ErrRateLimited      = errors.New("rate limit exceeded")
	ErrServerError      = errors.New("server returned 5xx")

	ErrCancelled        = errors.New("job cancelled")
	ErrStalled          = errors.New("no progress for watchdog interval")

	ErrJobNotFound      = errors.New("job not found")
	ErrCacheMiss        = errors.New("cache miss")
	ErrInvariant        = errors.New("invariant violation")
)

// Kind is the §7 error taxonomy.
type Kind string

const (
	KindInput               Kind = "input_error"
	KindTransientExternal    Kind = "transient_external_error"
	KindAuthoritativeNegative Kind = "authoritative_negative"
	KindCancelled            Kind = "cancelled"
	KindStalled              Kind = "stalled"
	KindInternal             Kind = "internal"
)

// CaseStrainerError is the taxonomy-tagged error carried across package
// boundaries, adapted from the errors-grouped-by-category pattern the
// ambient stack already uses elsewhere in this repo.
type CaseStrainerError struct {
	Kind    Kind
	Message string
	Err     error
	Context map[string]interface{}
}

func (e *CaseStrainerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *CaseStrainerError) Unwrap() error {
	return e.Err
}

// WithContext attaches a diagnostic key/value and returns the receiver for
// chaining.
func (e *CaseStrainerError) WithContext(key string, value interface{}) *CaseStrainerError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func newError(kind Kind, message string, err error) *CaseStrainerError {
	return &CaseStrainerError{Kind: kind, Message: message, Err: err}
}

// Input wraps a malformed-submission cause, reported synchronously on submit.
func Input(message string, err error) *CaseStrainerError {
	return newError(KindInput, message, err)
}

// TransientExternal wraps a retried-then-exhausted external failure.
func TransientExternal(message string, err error) *CaseStrainerError {
	return newError(KindTransientExternal, message, err)
}

// Cancelled wraps a cooperative cancellation outcome.
func Cancelled(message string) *CaseStrainerError {
	return newError(KindCancelled, message, ErrCancelled)
}

// Stalled wraps a stage-watchdog timeout.
func Stalled(message string) *CaseStrainerError {
	return newError(KindStalled, message, ErrStalled)
}

// Internal wraps an invariant violation or unexpected state; callers log
// it with full context before marking the job failed.
func Internal(message string, err error) *CaseStrainerError {
	return newError(KindInternal, message, err)
}

// IsAuthoritativeNegative reports whether err represents a "no such
// citation" response from the database — recorded as unverified, never
// surfaced as a Go error to the job record.
func IsAuthoritativeNegative(err error) bool {
	var cerr *CaseStrainerError
	if errors.As(err, &cerr) {
		return cerr.Kind == KindAuthoritativeNegative
	}
	return false
}

// AuthoritativeNegative marks a database negative response.
func AuthoritativeNegative(message string) *CaseStrainerError {
	return newError(KindAuthoritativeNegative, message, nil)
}
