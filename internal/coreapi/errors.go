package coreapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// MutationError is the modeled failure of a single-item mutation call. A
// bulk run records it against the item and continues; anything else coming
// out of the client breaks the mutation contract and aborts the run.
type MutationError struct {
	StatusCode int
	Message    string
	Transient  bool
	Cause      error
}

func (e *MutationError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("core api returned status %d", e.StatusCode)
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "core api call failed"
}

func (e *MutationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsMutationError reports whether err is within the modeled per-item
// failure contract.
func IsMutationError(err error) bool {
	var mutationErr *MutationError
	return errors.As(err, &mutationErr)
}

// IsTransient reports whether a failed call is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var mutationErr *MutationError
	if errors.As(err, &mutationErr) {
		return mutationErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
