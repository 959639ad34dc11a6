package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can decide whether to retry,
// surface, or abort.
type Kind int

const (
	KindUnknown Kind = iota
	// KindTransient covers network failures, timeouts, and overload.
	// Safe to retry with backoff.
	KindTransient
	// KindConfig covers authentication and misconfiguration. Fatal,
	// never retried.
	KindConfig
	// KindSchema covers dimension and collection mismatches. Requires
	// operator intervention.
	KindSchema
	// KindInputTooLarge means the remote capability rejected the input
	// size; the caller must re-chunk smaller.
	KindInputTooLarge
	// KindNotFound means the collection or record is absent.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindConfig:
		return "config"
	case KindSchema:
		return "schema"
	case KindInputTooLarge:
		return "input_too_large"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error carries a Kind plus the operation that failed. Orchestration
// layers wrap it with more context but never change the kind.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a classified error.
func E(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Ef builds a classified error from a format string.
func Ef(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from anywhere in err's chain.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool { return KindOf(err) == KindTransient }

// Sentinel errors for input validation failures.
var (
	ErrInvalidLeaseID = errors.New("invalid lease id")
	ErrEmptyQuery     = errors.New("empty query")
	ErrInvalidLimit   = errors.New("invalid limit")
	ErrEmptyText      = errors.New("empty text")
)

// ValidationError wraps a sentinel with field context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
