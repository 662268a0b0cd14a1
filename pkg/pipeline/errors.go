package pipeline

import (
	"errors"
	"fmt"
)

// ErrOwnershipMismatch marks a delivery whose envelope owner does not
// match the task it references. Never retried.
var ErrOwnershipMismatch = errors.New("delivery owner does not match task owner")

// PermanentError wraps a failure that retrying cannot fix: validation
// problems, malformed input, ownership violations. Everything else is
// treated as transient and retried up to the attempt cap.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the orchestrator fails the task without
// retrying.
func Permanent(format string, args ...any) error {
	return &PermanentError{Err: fmt.Errorf(format, args...)}
}

// IsPermanent reports whether err (or anything it wraps) rules out a
// retry.
func IsPermanent(err error) bool {
	var p *PermanentError
	if errors.As(err, &p) {
		return true
	}
	return errors.Is(err, ErrOwnershipMismatch)
}
