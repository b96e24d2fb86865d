// Package errors defines the error kinds surfaced by the clipboard store
// API. Recoverable per-candidate failures never reach these types; they are
// logged and the candidate dropped.
package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrCancelled is returned when cooperative cancellation fired. It wraps
// cleanly from context cancellation via FromContext.
var ErrCancelled = errors.New("operation cancelled")

// ErrNotInitialized is returned when an operation runs before Open
// completed. Mostly a safety net.
var ErrNotInitialized = errors.New("store not initialized")

// DatabaseError wraps storage failures: IO, constraint violations, pool
// exhaustion.
type DatabaseError struct {
	Operation  string
	Underlying error
}

func NewDatabaseError(op string, err error) *DatabaseError {
	return &DatabaseError{Operation: op, Underlying: err}
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s failed: %v", e.Operation, e.Underlying)
}

func (e *DatabaseError) Unwrap() error { return e.Underlying }

// IndexError wraps trigram index failures.
type IndexError struct {
	Operation  string
	Underlying error
}

func NewIndexError(op string, err error) *IndexError {
	return &IndexError{Operation: op, Underlying: err}
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s failed: %v", e.Operation, e.Underlying)
}

func (e *IndexError) Unwrap() error { return e.Underlying }

// InvalidInputError reports a rejected write: empty image bytes, empty
// file batches, or a reserved tag operation.
type InvalidInputError struct {
	Reason string
}

func NewInvalidInput(reason string) *InvalidInputError {
	return &InvalidInputError{Reason: reason}
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// IsCancelled reports whether err is a cancellation, from either a
// checkpoint or the underlying context machinery.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}

// FromContext converts a context error into the API cancellation error.
func FromContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ErrCancelled
	}
	return nil
}
