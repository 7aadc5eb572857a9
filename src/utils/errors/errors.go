// Stockbot error tools
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// Failure categories shared across packages. Callers match them with Is.
var (
	// ErrDataUnavailable means no provider returned usable market data for a symbol.
	ErrDataUnavailable = stderrors.New("data unavailable")
	// ErrStateCorrupt means a persisted state record or file could not be decoded or violates its invariants.
	ErrStateCorrupt = stderrors.New("state corrupt")
	// ErrInconsistentState means a loaded state cannot be evaluated, e.g. a triggered FIRST without a price.
	ErrInconsistentState = stderrors.New("inconsistent state")
	// ErrPersistenceFailure means a state write did not complete.
	ErrPersistenceFailure = stderrors.New("persistence failure")
)

// WrapE wraps the original error with a static error message.
// It returns a new error that includes both the static error and the original error.
func WrapE(staticErr, originalErr error) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %w", file, line, staticErr, originalErr)
}

func Wrap(err error, msg string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, msg)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, fmt.Sprintf(format, args...))
}

// Wrapef wraps the original error with a static error and a formatted message.
// Both errors stay matchable with Is.
func Wrapef(staticErr, originalErr error, format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s: %w", file, line, staticErr, fmt.Sprintf(format, args...), originalErr)
}

// New creates a new error with the given text.
func New(text string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, text)
}

// Newf creates a new error with a formatted message.
func Newf(format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, fmt.Sprintf(format, args...))
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Join combines errors, dropping nils.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
