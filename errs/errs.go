// Package errs defines the error kinds returned across opcache's package
// boundary. Internal-only conditions (a cache miss during traversal) never
// escape this way; see Miss in internal/keyer.
package errs

import (
	"github.com/pkg/errors"
)

// Sentinel errors a caller can match with errors.Is. ErrBackend and
// ErrBackendBusy are wrapped with github.com/pkg/errors and context at the
// point a driver failure is detected; the others are returned as the bare
// sentinel.
var (
	// ErrNotFound is raised internally while walking a hierarchical key and
	// never crosses the opcache package boundary.
	ErrNotFound = errors.New("opcache: miss")

	// ErrBackend wraps an unrecoverable store failure: corrupt database,
	// I/O failure, or a driver error that isn't busy-retryable.
	ErrBackend = errors.New("opcache: backend error")

	// ErrBackendBusy surfaces SQLITE_BUSY and similar transient contention.
	// It is not retried internally.
	ErrBackendBusy = errors.New("opcache: backend busy")

	// ErrLockTimeout is returned when L_file could not be acquired within
	// the configured lock_timeout.
	ErrLockTimeout = errors.New("opcache: lock timeout")

	// ErrValidation is returned when validation mode detects that a
	// recomputed value's canonical bytes differ from the stored value's.
	// Non-recoverable: it indicates a bug in the environment descriptor.
	ErrValidation = errors.New("opcache: validation mismatch")

	// ErrShelveCollision is raised at read-only shelve build time when two
	// distinct keys hash to the same 256-bit digest.
	ErrShelveCollision = errors.New("opcache: shelve hash collision")
)

// OperationError wraps a failure returned by the user-supplied operation.
// No leaf is committed when this is returned; the Deferred placeholder is
// left in place for a later caller's deferred_timeout to reclaim.
type OperationError struct {
	Cause error
}

func (e *OperationError) Error() string {
	return "opcache: operation failed: " + e.Cause.Error()
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// Operation wraps err as an *OperationError, or returns nil if err is nil.
func Operation(err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Cause: err}
}

// Wrap annotates err with message and a stack trace via pkg/errors, or
// returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, message)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Is delegates to errors.Is; re-exported so callers need only import errs.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
