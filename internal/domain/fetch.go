package domain

import (
	"errors"
	"fmt"
)

// ErrPermanentFetch marks fetch errors that must not be retried. The retry
// layer passes it as a critical error so backoff stops immediately.
var ErrPermanentFetch = errors.New("permanent fetch error")

// ErrDuplicateFingerprint is returned by the record store when an insert
// collides with an existing fingerprint.
var ErrDuplicateFingerprint = errors.New("duplicate fingerprint")

// FetchErrorKind classifies driver failures for the retry policy.
type FetchErrorKind int

const (
	// FetchTransient covers timeouts, 5xx, 429 and connection resets.
	FetchTransient FetchErrorKind = iota
	// FetchPermanent covers other 4xx and malformed response shapes.
	FetchPermanent
)

// FetchError wraps a driver failure with its retry classification.
type FetchError struct {
	Kind FetchErrorKind
	Op   string
	Err  error
}

func (e *FetchError) Error() string {
	kind := "transient"
	if e.Kind == FetchPermanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s: %s: %v", kind, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPermanentFetch) identify non-retryable failures.
func (e *FetchError) Is(target error) bool {
	return target == ErrPermanentFetch && e.Kind == FetchPermanent
}

// TransientFetchError wraps err as a retryable fetch failure.
func TransientFetchError(op string, err error) error {
	return &FetchError{Kind: FetchTransient, Op: op, Err: err}
}

// PermanentFetchError wraps err as a non-retryable fetch failure.
func PermanentFetchError(op string, err error) error {
	return &FetchError{Kind: FetchPermanent, Op: op, Err: err}
}
