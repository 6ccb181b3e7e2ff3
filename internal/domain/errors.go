package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrConfig marks invalid parameters detected before any processing starts.
	ErrConfig = errors.New("invalid configuration")

	// ErrNoChunks is reported for a document directory without chunk artifacts.
	ErrNoChunks = errors.New("no chunks")

	// ErrSpecialistUndetermined is returned when routing matches no known specialist.
	ErrSpecialistUndetermined = errors.New("specialist not determined")

	// ErrEmptyArtifact marks a chunk artifact with no lines at all.
	ErrEmptyArtifact = errors.New("empty artifact")
)

// TransientError wraps a collaborator failure that the caller may retry.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	if e.Op == "" {
		return "transient: " + e.Err.Error()
	}
	return fmt.Sprintf("%s: transient: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. A nil err stays nil.
func Transient(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *TransientError
	if errors.As(err, &te) {
		return err
	}
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is retryable. Deadline expiry counts as
// transient; explicit cancellation does not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
