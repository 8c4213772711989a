package bulk

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courseops/admin-engine/internal/coreapi"
	"github.com/courseops/admin-engine/internal/domain"
)

type fakeMutationClient struct {
	mu       sync.Mutex
	calls    []int64
	updateFn func(ctx context.Context, tenantID string, courseID int64, fields domain.CourseFields) error
}

func (f *fakeMutationClient) UpdateCourse(ctx context.Context, tenantID string, courseID int64, fields domain.CourseFields) error {
	f.mu.Lock()
	f.calls = append(f.calls, courseID)
	f.mu.Unlock()

	if f.updateFn == nil {
		return nil
	}
	return f.updateFn(ctx, tenantID, courseID, fields)
}

func (f *fakeMutationClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestRunner(t *testing.T, client MutationClient) *Runner {
	t.Helper()

	runner, err := NewRunner(client, nil, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	// No real waiting in tests.
	runner.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return runner
}

func TestExecutePreservesOrderAndRecordsFailures(t *testing.T) {
	t.Parallel()

	client := &fakeMutationClient{
		updateFn: func(ctx context.Context, tenantID string, courseID int64, fields domain.CourseFields) error {
			if courseID == 2 {
				return &coreapi.MutationError{Message: "timeout", Transient: true}
			}
			return nil
		},
	}
	runner := newTestRunner(t, client)

	items := []domain.OperationItem{
		{ID: 1, Title: "Intro"},
		{ID: 2, Title: "Advanced"},
	}

	results, err := runner.Execute(context.Background(), items, domain.NewPublishKind(), "tenant-1", nil)
	if err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ItemID != 1 || !results[0].Success || results[0].Error != nil {
		t.Fatalf("results[0] = %+v, want success for item 1", results[0])
	}
	if results[1].ItemID != 2 || results[1].Success {
		t.Fatalf("results[1] = %+v, want failure for item 2", results[1])
	}
	if results[1].Error == nil || *results[1].Error != "timeout" {
		t.Fatalf("results[1].Error = %v, want timeout", results[1].Error)
	}
	if results[1].ItemTitle != "Advanced" {
		t.Fatalf("results[1].ItemTitle = %q, want Advanced", results[1].ItemTitle)
	}

	if got := domain.ClassifySummary(results); got != domain.SummaryMixed {
		t.Fatalf("summary = %s, want MIXED", got)
	}

	state := runner.State()
	if state.IsExecuting {
		t.Fatal("IsExecuting should be false after completion")
	}
	if state.Completed != 2 || state.Total != 2 {
		t.Fatalf("state = %+v, want completed=2 total=2", state)
	}
}

func TestExecuteResultOrderMatchesInputForEveryIndex(t *testing.T) {
	t.Parallel()

	client := &fakeMutationClient{
		updateFn: func(ctx context.Context, tenantID string, courseID int64, fields domain.CourseFields) error {
			if courseID%2 == 0 {
				return &coreapi.MutationError{Message: "rejected"}
			}
			return nil
		},
	}
	runner := newTestRunner(t, client)

	items := make([]domain.OperationItem, 0, 7)
	for id := int64(1); id <= 7; id++ {
		items = append(items, domain.OperationItem{ID: id})
	}

	results, err := runner.Execute(context.Background(), items, domain.NewMakeFreeKind(), "tenant-1", nil)
	if err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}

	for i := range items {
		if results[i].ItemID != items[i].ID {
			t.Fatalf("results[%d].ItemID = %d, want %d", i, results[i].ItemID, items[i].ID)
		}
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	for i := range items {
		if client.calls[i] != items[i].ID {
			t.Fatalf("call order[%d] = %d, want %d", i, client.calls[i], items[i].ID)
		}
	}
}

func TestExecuteEmptyInputCompletesImmediately(t *testing.T) {
	t.Parallel()

	client := &fakeMutationClient{}
	runner := newTestRunner(t, client)

	results, err := runner.Execute(context.Background(), nil, domain.NewPublishKind(), "tenant-1", nil)
	if err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("len(results) = %d, want 0", len(results))
	}
	if client.callCount() != 0 {
		t.Fatalf("mutation calls = %d, want 0", client.callCount())
	}

	state := runner.State()
	if state.IsExecuting || state.Completed != 0 {
		t.Fatalf("state = %+v, want idle zero-progress state", state)
	}
}

func TestExecutePublishesMonotonicSnapshots(t *testing.T) {
	t.Parallel()

	client := &fakeMutationClient{}
	runner := newTestRunner(t, client)

	items := []domain.OperationItem{{ID: 1}, {ID: 2}, {ID: 3}}

	var snapshots []Snapshot
	observer := func(s Snapshot) { snapshots = append(snapshots, s) }

	if _, err := runner.Execute(context.Background(), items, domain.NewPublishKind(), "tenant-1", observer); err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}

	if len(snapshots) == 0 {
		t.Fatal("expected progress snapshots")
	}

	prev := -1
	for i, s := range snapshots {
		if s.Completed < prev {
			t.Fatalf("snapshot[%d].Completed = %d decreased from %d", i, s.Completed, prev)
		}
		if s.Completed != len(s.Results) {
			t.Fatalf("snapshot[%d]: Completed = %d, len(Results) = %d", i, s.Completed, len(s.Results))
		}
		if s.Total != 3 {
			t.Fatalf("snapshot[%d].Total = %d, want 3", i, s.Total)
		}
		prev = s.Completed
	}

	final := snapshots[len(snapshots)-1]
	if final.IsExecuting {
		t.Fatal("final snapshot should not be executing")
	}
	if final.Completed != 3 {
		t.Fatalf("final.Completed = %d, want 3", final.Completed)
	}
}

func TestExecuteAbortsOnErrorOutsideMutationContract(t *testing.T) {
	t.Parallel()

	fatal := errors.New("connection pool exhausted")
	client := &fakeMutationClient{
		updateFn: func(ctx context.Context, tenantID string, courseID int64, fields domain.CourseFields) error {
			if courseID == 2 {
				return fatal
			}
			return nil
		},
	}
	runner := newTestRunner(t, client)

	items := []domain.OperationItem{{ID: 1}, {ID: 2}, {ID: 3}}

	results, err := runner.Execute(context.Background(), items, domain.NewPublishKind(), "tenant-1", nil)
	if !errors.Is(err, fatal) {
		t.Fatalf("Execute() error = %v, want wrapped fatal error", err)
	}

	// Partial results up to the aborting item are preserved.
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1", len(results))
	}
	if results[0].ItemID != 1 || !results[0].Success {
		t.Fatalf("results[0] = %+v, want success for item 1", results[0])
	}
	if client.callCount() != 2 {
		t.Fatalf("mutation calls = %d, want 2 (item 3 never dispatched)", client.callCount())
	}

	state := runner.State()
	if state.IsExecuting {
		t.Fatal("IsExecuting should be false after an abort")
	}
}

func TestExecuteRejectsSecondActiveRun(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	client := &fakeMutationClient{
		updateFn: func(ctx context.Context, tenantID string, courseID int64, fields domain.CourseFields) error {
			close(started)
			<-release
			return nil
		},
	}
	runner := newTestRunner(t, client)

	items := []domain.OperationItem{{ID: 1}}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = runner.Execute(context.Background(), items, domain.NewPublishKind(), "tenant-1", nil)
	}()

	<-started
	_, err := runner.Execute(context.Background(), items, domain.NewPublishKind(), "tenant-1", nil)
	if !errors.Is(err, domain.ErrRunActive) {
		t.Fatalf("second Execute() error = %v, want ErrRunActive", err)
	}

	close(release)
	<-done
}

func TestExecuteSleepsBetweenItemsButNotAfterLast(t *testing.T) {
	t.Parallel()

	client := &fakeMutationClient{}
	runner := newTestRunner(t, client)

	sleeps := 0
	runner.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		if d != time.Millisecond {
			t.Fatalf("sleep duration = %v, want configured delay", d)
		}
		return nil
	}

	items := []domain.OperationItem{{ID: 1}, {ID: 2}, {ID: 3}}
	if _, err := runner.Execute(context.Background(), items, domain.NewPublishKind(), "tenant-1", nil); err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}

	if sleeps != 2 {
		t.Fatalf("sleeps = %d, want 2 for 3 items", sleeps)
	}
}

func TestExecuteValidatesInput(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, &fakeMutationClient{})

	if _, err := runner.Execute(context.Background(), nil, domain.OperationKind{}, "tenant-1", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero kind error = %v, want ErrValidation", err)
	}
	if _, err := runner.Execute(context.Background(), nil, domain.NewPublishKind(), "", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing tenant error = %v, want ErrValidation", err)
	}
	if _, err := runner.Execute(context.Background(), []domain.OperationItem{{ID: 0}}, domain.NewPublishKind(), "tenant-1", nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("invalid item error = %v, want ErrValidation", err)
	}
}

func TestResetStateClearsDisplayState(t *testing.T) {
	t.Parallel()

	runner := newTestRunner(t, &fakeMutationClient{})

	items := []domain.OperationItem{{ID: 1}, {ID: 2}}
	if _, err := runner.Execute(context.Background(), items, domain.NewPublishKind(), "tenant-1", nil); err != nil {
		t.Fatalf("Execute() unexpected error = %v", err)
	}

	runner.ResetState()

	state := runner.State()
	if state.Total != 0 || state.Completed != 0 || len(state.Results) != 0 || state.IsExecuting {
		t.Fatalf("state after reset = %+v, want zero value", state)
	}
}
