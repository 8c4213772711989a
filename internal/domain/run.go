package domain

import (
	"fmt"
	"strings"
	"time"
)

// OperationItem identifies one course targeted by a bulk run. The title is
// carried only for result reporting.
type OperationItem struct {
	ID    int64
	Title string
}

func (i OperationItem) Validate() error {
	if i.ID <= 0 {
		return fmt.Errorf("%w: item id must be positive", ErrValidation)
	}
	return nil
}

// ItemResult is the recorded outcome of applying the run's mutation to one
// item. Results are appended in submission order and never mutated.
type ItemResult struct {
	ItemID    int64
	ItemTitle string
	Success   bool
	Error     *string
}

// Summary classifies a finished bulk run for caller-level reporting.
type Summary string

const (
	SummaryEmpty      Summary = "EMPTY"
	SummaryAllSuccess Summary = "ALL_SUCCESS"
	SummaryAllFailure Summary = "ALL_FAILURE"
	SummaryMixed      Summary = "MIXED"
)

func (s Summary) String() string { return string(s) }

func (s Summary) IsValid() bool {
	switch s {
	case SummaryEmpty, SummaryAllSuccess, SummaryAllFailure, SummaryMixed:
		return true
	}
	return false
}

// ClassifySummary is a pure function of the result sequence.
func ClassifySummary(results []ItemResult) Summary {
	if len(results) == 0 {
		return SummaryEmpty
	}

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}

	switch succeeded {
	case len(results):
		return SummaryAllSuccess
	case 0:
		return SummaryAllFailure
	default:
		return SummaryMixed
	}
}

// BulkRun is the durable audit record of one bulk run.
type BulkRun struct {
	ID         string
	TenantID   string
	Action     KindAction
	Price      *float64
	TotalCount int
	Summary    Summary
	Results    []ItemResult
	Aborted    bool
	CreatedAt  time.Time
	FinishedAt *time.Time
}

func (r *BulkRun) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: run is required", ErrValidation)
	}
	if strings.TrimSpace(r.TenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	if !r.Action.IsValid() {
		return fmt.Errorf("%w: invalid action %q", ErrValidation, r.Action)
	}
	if !r.Summary.IsValid() {
		return fmt.Errorf("%w: invalid summary %q", ErrValidation, r.Summary)
	}
	return nil
}
