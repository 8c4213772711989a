package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
)

type fakeFetcher struct {
	mu      sync.Mutex
	fetches int
	fetchFn func(call int) (*domain.AsyncOperation, error)
}

func (f *fakeFetcher) GetOperation(ctx context.Context, operationID string) (*domain.AsyncOperation, error) {
	f.mu.Lock()
	f.fetches++
	call := f.fetches
	f.mu.Unlock()
	return f.fetchFn(call)
}

func (f *fakeFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func snapshotAt(status domain.OperationStatus, progress int, resultData json.RawMessage) *domain.AsyncOperation {
	op := &domain.AsyncOperation{
		OperationID: "op-1",
		Type:        domain.OperationDuplicate,
		Status:      status,
		Progress:    progress,
		CreatedAt:   time.Now().UTC(),
		ResultData:  resultData,
	}
	if status.IsTerminal() {
		completedAt := time.Now().UTC()
		op.CompletedAt = &completedAt
	}
	return op
}

func newTestTracker(t *testing.T, fetcher StatusFetcher) *Tracker {
	t.Helper()

	tracker, err := NewTracker(fetcher, time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewTracker() error = %v", err)
	}
	return tracker
}

func TestTrackerStopsAfterFirstTerminalSnapshot(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		fetchFn: func(call int) (*domain.AsyncOperation, error) {
			switch call {
			case 1:
				return snapshotAt(domain.OperationPending, 0, nil), nil
			case 2:
				return snapshotAt(domain.OperationInProgress, 50, nil), nil
			default:
				return snapshotAt(domain.OperationCompleted, 100, json.RawMessage(`{"new_course_id":42}`)), nil
			}
		},
	}
	tracker := newTestTracker(t, fetcher)

	var mu sync.Mutex
	var statuses []domain.OperationStatus
	var completions []string

	unsubscribe, err := tracker.Subscribe("op-1",
		func(s Snapshot) {
			mu.Lock()
			statuses = append(statuses, s.Operation.Status)
			mu.Unlock()
		},
		func(resultData json.RawMessage) {
			mu.Lock()
			completions = append(completions, string(resultData))
			mu.Unlock()
		},
	)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	tracker.wg.Wait()

	if got := fetcher.fetchCount(); got != 3 {
		t.Fatalf("fetches = %d, want exactly 3 (no poll after terminal)", got)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []domain.OperationStatus{domain.OperationPending, domain.OperationInProgress, domain.OperationCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("statuses[%d] = %s, want %s", i, statuses[i], want[i])
		}
	}
	if len(completions) != 1 {
		t.Fatalf("onComplete fired %d times, want exactly 1", len(completions))
	}
	if completions[0] != `{"new_course_id":42}` {
		t.Fatalf("completion payload = %s, want result data", completions[0])
	}
}

func TestTrackerFailedOperationDoesNotComplete(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		fetchFn: func(call int) (*domain.AsyncOperation, error) {
			op := snapshotAt(domain.OperationFailed, 40, nil)
			op.ErrorDetails = &domain.OperationError{
				ErrorType:    "cascade_conflict",
				ErrorMessage: "course has enrolled students",
			}
			return op, nil
		},
	}
	tracker := newTestTracker(t, fetcher)

	var mu sync.Mutex
	var last Snapshot
	completeCalls := 0

	unsubscribe, err := tracker.Subscribe("op-1",
		func(s Snapshot) {
			mu.Lock()
			last = s
			mu.Unlock()
		},
		func(resultData json.RawMessage) {
			mu.Lock()
			completeCalls++
			mu.Unlock()
		},
	)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	tracker.wg.Wait()

	if got := fetcher.fetchCount(); got != 1 {
		t.Fatalf("fetches = %d, want 1", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if completeCalls != 0 {
		t.Fatalf("onComplete fired %d times for FAILED operation, want 0", completeCalls)
	}
	if last.Operation == nil || last.Operation.ErrorDetails == nil {
		t.Fatal("expected error details on the failed snapshot")
	}
	if last.Operation.ErrorDetails.ErrorType != "cascade_conflict" {
		t.Fatalf("ErrorType = %q, want cascade_conflict", last.Operation.ErrorDetails.ErrorType)
	}
}

func TestTrackerReportsNotFoundDistinctlyAndKeepsPolling(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		fetchFn: func(call int) (*domain.AsyncOperation, error) {
			if call == 1 {
				return nil, fmt.Errorf("%w: operation op-1", domain.ErrNotFound)
			}
			return snapshotAt(domain.OperationCompleted, 100, json.RawMessage(`{}`)), nil
		},
	}
	tracker := newTestTracker(t, fetcher)

	var mu sync.Mutex
	var snapshots []Snapshot

	unsubscribe, err := tracker.Subscribe("op-1", func(s Snapshot) {
		mu.Lock()
		snapshots = append(snapshots, s)
		mu.Unlock()
	}, nil)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	tracker.wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(snapshots) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snapshots))
	}
	if !snapshots[0].NotFound || snapshots[0].Operation != nil {
		t.Fatalf("snapshots[0] = %+v, want distinct not-found state", snapshots[0])
	}
	if snapshots[1].NotFound || snapshots[1].Operation == nil {
		t.Fatalf("snapshots[1] = %+v, want a real snapshot after not-found", snapshots[1])
	}
}

func TestTrackerUnsubscribeStopsPollingAndDiscardsInFlight(t *testing.T) {
	t.Parallel()

	inFetch := make(chan struct{})
	release := make(chan struct{})
	fetcher := &fakeFetcher{
		fetchFn: func(call int) (*domain.AsyncOperation, error) {
			if call == 1 {
				close(inFetch)
				<-release
			}
			return snapshotAt(domain.OperationPending, 0, nil), nil
		},
	}
	tracker := newTestTracker(t, fetcher)

	var mu sync.Mutex
	delivered := 0

	unsubscribe, err := tracker.Subscribe("op-1", func(s Snapshot) {
		mu.Lock()
		delivered++
		mu.Unlock()
	}, nil)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	<-inFetch
	unsubscribe()
	unsubscribe() // idempotent
	close(release)

	tracker.wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if delivered != 0 {
		t.Fatalf("delivered = %d snapshots after unsubscribe, want 0", delivered)
	}
	if got := fetcher.fetchCount(); got != 1 {
		t.Fatalf("fetches = %d, want 1 (no poll scheduled after teardown)", got)
	}
}

func TestTrackerKeepsPollingThroughFetchErrors(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		fetchFn: func(call int) (*domain.AsyncOperation, error) {
			if call == 1 {
				return nil, errors.New("core api unreachable")
			}
			return snapshotAt(domain.OperationFailed, 0, nil), nil
		},
	}
	tracker := newTestTracker(t, fetcher)

	unsubscribe, err := tracker.Subscribe("op-1", nil, nil)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	tracker.wg.Wait()

	if got := fetcher.fetchCount(); got != 2 {
		t.Fatalf("fetches = %d, want 2 (error then terminal)", got)
	}
}

func TestTrackerAwaitReturnsTerminalSnapshot(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{
		fetchFn: func(call int) (*domain.AsyncOperation, error) {
			if call == 1 {
				return snapshotAt(domain.OperationInProgress, 10, nil), nil
			}
			return snapshotAt(domain.OperationCompleted, 100, json.RawMessage(`{"deleted":true}`)), nil
		},
	}
	tracker := newTestTracker(t, fetcher)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	operation, err := tracker.Await(ctx, "op-1")
	if err != nil {
		t.Fatalf("Await() unexpected error = %v", err)
	}
	if operation.Status != domain.OperationCompleted {
		t.Fatalf("Status = %s, want COMPLETED", operation.Status)
	}
}

func TestTrackerRejectsEmptyOperationID(t *testing.T) {
	t.Parallel()

	tracker := newTestTracker(t, &fakeFetcher{fetchFn: func(int) (*domain.AsyncOperation, error) {
		return nil, nil
	}})

	if _, err := tracker.Subscribe("  ", nil, nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Subscribe() error = %v, want ErrValidation", err)
	}
}
