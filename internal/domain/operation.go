package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OperationType identifies a long-running operation executed by the core
// LMS service.
type OperationType string

const (
	OperationDuplicate     OperationType = "duplicate"
	OperationBulkDuplicate OperationType = "bulk_duplicate"
	OperationDelete        OperationType = "delete"
)

func (t OperationType) String() string { return string(t) }

func (t OperationType) IsValid() bool {
	switch t {
	case OperationDuplicate, OperationBulkDuplicate, OperationDelete:
		return true
	}
	return false
}

func ParseOperationTypeFromString(s string) (OperationType, error) {
	t := OperationType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid operation type %q", ErrValidation, s)
	}
	return t, nil
}

// OperationStatus is the server-reported lifecycle state of an async
// operation. Transitions are monotonic: PENDING -> IN_PROGRESS ->
// {COMPLETED | FAILED}.
type OperationStatus string

const (
	OperationPending    OperationStatus = "PENDING"
	OperationInProgress OperationStatus = "IN_PROGRESS"
	OperationCompleted  OperationStatus = "COMPLETED"
	OperationFailed     OperationStatus = "FAILED"
)

func (s OperationStatus) String() string { return string(s) }

func (s OperationStatus) IsValid() bool {
	switch s {
	case OperationPending, OperationInProgress, OperationCompleted, OperationFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are expected.
func (s OperationStatus) IsTerminal() bool {
	return s == OperationCompleted || s == OperationFailed
}

func ParseOperationStatusFromString(s string) (OperationStatus, error) {
	st := OperationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid operation status %q", ErrValidation, s)
	}
	return st, nil
}

// OperationError carries the server-reported failure detail of a FAILED
// operation, surfaced verbatim.
type OperationError struct {
	ErrorType    string
	ErrorMessage string
}

// AsyncOperation is a read-only snapshot of a server-owned operation
// record, keyed by an opaque id. The admin engine never constructs one
// outside of decoding a status response.
type AsyncOperation struct {
	OperationID  string
	Type         OperationType
	Status       OperationStatus
	Progress     int
	Message      string
	CreatedAt    time.Time
	CompletedAt  *time.Time
	ResultData   json.RawMessage
	ErrorDetails *OperationError
}

func (o *AsyncOperation) Validate() error {
	if o == nil {
		return fmt.Errorf("%w: operation is required", ErrValidation)
	}
	if strings.TrimSpace(o.OperationID) == "" {
		return fmt.Errorf("%w: operation id is required", ErrValidation)
	}
	if !o.Type.IsValid() {
		return fmt.Errorf("%w: invalid operation type %q", ErrValidation, o.Type)
	}
	if !o.Status.IsValid() {
		return fmt.Errorf("%w: invalid operation status %q", ErrValidation, o.Status)
	}
	if o.Progress < 0 || o.Progress > 100 {
		return fmt.Errorf("%w: progress must be within 0..100 (got %d)", ErrValidation, o.Progress)
	}
	return nil
}
