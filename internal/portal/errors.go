// Package portal defines the error taxonomy shared across the portal core.
//
// Every failure leaving a service carries one of these kinds so callers can
// distinguish a missing field from a missing record from an external-system
// failure. Nothing in the core retries or suppresses; errors propagate as-is.
package portal

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a request missing a required field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a reference to a record or owner that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOwnerNotFound marks owner resolution that matched no student.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrAmbiguousOwner marks owner resolution that matched more than one student.
	ErrAmbiguousOwner = errors.New("ambiguous owner")
	// ErrStorage marks an underlying store failure.
	ErrStorage = errors.New("storage unavailable")
)

// Validationf returns an ErrValidation with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrValidation}, args...)...)
}

// NotFoundf returns an ErrNotFound with a formatted reason.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotFound}, args...)...)
}

// Storagef wraps a store failure as ErrStorage, keeping the cause.
func Storagef(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, cause)
}

// ExternalProcessError reports a failed invocation of an external
// recognition or comparison process. Stdout and Stderr hold whatever the
// process produced, for diagnostics; they may be empty.
type ExternalProcessError struct {
	Op     string
	Stdout string
	Stderr string
	Err    error
}

func (e *ExternalProcessError) Error() string {
	msg := fmt.Sprintf("external process %s failed", e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += " (stderr: " + e.Stderr + ")"
	}
	return msg
}

func (e *ExternalProcessError) Unwrap() error { return e.Err }

// IsExternalProcessError reports whether err is an ExternalProcessError.
func IsExternalProcessError(err error) bool {
	var epe *ExternalProcessError
	return errors.As(err, &epe)
}
