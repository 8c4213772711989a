package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/courseops/admin-engine/internal/coreapi"
	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/courseops/admin-engine/internal/tracker"
)

type fakeGateway struct {
	startFn func(ctx context.Context, operationType domain.OperationType, payload json.RawMessage) (*coreapi.StartedOperation, error)
	getFn   func(ctx context.Context, operationID string) (*domain.AsyncOperation, error)
}

func (f *fakeGateway) StartOperation(ctx context.Context, operationType domain.OperationType, payload json.RawMessage) (*coreapi.StartedOperation, error) {
	return f.startFn(ctx, operationType, payload)
}

func (f *fakeGateway) GetOperation(ctx context.Context, operationID string) (*domain.AsyncOperation, error) {
	return f.getFn(ctx, operationID)
}

type fakeWatcher struct {
	subscribed []string
	awaitFn    func(ctx context.Context, operationID string) (*domain.AsyncOperation, error)
}

func (f *fakeWatcher) Subscribe(operationID string, onSnapshot tracker.SnapshotFunc, onComplete tracker.CompleteFunc) (func(), error) {
	f.subscribed = append(f.subscribed, operationID)
	return func() {}, nil
}

func (f *fakeWatcher) Await(ctx context.Context, operationID string) (*domain.AsyncOperation, error) {
	return f.awaitFn(ctx, operationID)
}

type fakeOperationRefRepo struct {
	created []*repository.OperationRef
	updated []string
}

func (f *fakeOperationRefRepo) Create(ctx context.Context, ref *repository.OperationRef) error {
	f.created = append(f.created, ref)
	return nil
}

func (f *fakeOperationRefRepo) GetByID(ctx context.Context, operationID string) (*repository.OperationRef, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeOperationRefRepo) UpdateStatus(ctx context.Context, operationID string, status domain.OperationStatus, completedAt *time.Time) error {
	f.updated = append(f.updated, operationID)
	return nil
}

func newOperationService(t *testing.T, gateway *fakeGateway, watcher *fakeWatcher, refs *fakeOperationRefRepo) *OperationService {
	t.Helper()

	if refs == nil {
		refs = &fakeOperationRefRepo{}
	}
	svc, err := NewOperationService(gateway, watcher, refs, nil)
	if err != nil {
		t.Fatalf("NewOperationService() error = %v", err)
	}
	return svc
}

func TestOperationServiceStartAttachesWatcher(t *testing.T) {
	t.Parallel()

	gateway := &fakeGateway{
		startFn: func(ctx context.Context, operationType domain.OperationType, payload json.RawMessage) (*coreapi.StartedOperation, error) {
			if operationType != domain.OperationDuplicate {
				t.Fatalf("operationType = %s, want duplicate", operationType)
			}
			return &coreapi.StartedOperation{OperationID: "op-9", Status: "PENDING"}, nil
		},
	}
	watcher := &fakeWatcher{}
	refs := &fakeOperationRefRepo{}
	svc := newOperationService(t, gateway, watcher, refs)

	started, err := svc.Start(context.Background(), domain.OperationDuplicate, json.RawMessage(`{"course_id":42}`))
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if started.OperationID != "op-9" {
		t.Fatalf("OperationID = %q, want op-9", started.OperationID)
	}
	if len(watcher.subscribed) != 1 || watcher.subscribed[0] != "op-9" {
		t.Fatalf("subscribed = %v, want [op-9]", watcher.subscribed)
	}
	if len(refs.created) != 1 {
		t.Fatalf("created refs = %d, want 1", len(refs.created))
	}
	ref := refs.created[0]
	if ref.OperationID != "op-9" || ref.Type != domain.OperationDuplicate || ref.Status != domain.OperationPending {
		t.Fatalf("ref = %+v, want op-9/duplicate/PENDING", ref)
	}
	if ref.StartedAt.IsZero() {
		t.Fatal("ref.StartedAt is zero")
	}
}

func TestOperationServiceStartPropagatesGatewayError(t *testing.T) {
	t.Parallel()

	gatewayErr := errors.New("core api unavailable")
	gateway := &fakeGateway{
		startFn: func(ctx context.Context, operationType domain.OperationType, payload json.RawMessage) (*coreapi.StartedOperation, error) {
			return nil, gatewayErr
		},
	}
	watcher := &fakeWatcher{}
	refs := &fakeOperationRefRepo{}
	svc := newOperationService(t, gateway, watcher, refs)

	_, err := svc.Start(context.Background(), domain.OperationDelete, nil)
	if !errors.Is(err, gatewayErr) {
		t.Fatalf("Start() error = %v, want gateway error", err)
	}
	if len(watcher.subscribed) != 0 {
		t.Fatalf("subscribed = %v, want none after a failed start", watcher.subscribed)
	}
	if len(refs.created) != 0 {
		t.Fatalf("created refs = %d, want none after a failed start", len(refs.created))
	}
}

func TestOperationServiceStatusValidatesID(t *testing.T) {
	t.Parallel()

	svc := newOperationService(t, &fakeGateway{}, &fakeWatcher{}, nil)

	if _, err := svc.Status(context.Background(), "  "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Status() error = %v, want ErrValidation", err)
	}
}

func TestOperationServiceStatusFetchesOnce(t *testing.T) {
	t.Parallel()

	fetches := 0
	gateway := &fakeGateway{
		getFn: func(ctx context.Context, operationID string) (*domain.AsyncOperation, error) {
			fetches++
			if operationID != "op-3" {
				t.Fatalf("operationID = %q, want op-3 (trimmed)", operationID)
			}
			return &domain.AsyncOperation{
				OperationID: "op-3",
				Type:        domain.OperationDelete,
				Status:      domain.OperationInProgress,
				Progress:    30,
			}, nil
		},
	}
	svc := newOperationService(t, gateway, &fakeWatcher{}, nil)

	operation, err := svc.Status(context.Background(), " op-3 ")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if operation.Status != domain.OperationInProgress {
		t.Fatalf("Status = %s, want IN_PROGRESS", operation.Status)
	}
	if fetches != 1 {
		t.Fatalf("fetches = %d, want 1", fetches)
	}
}

func TestOperationServiceFinalizeUpdatesReference(t *testing.T) {
	t.Parallel()

	refs := &fakeOperationRefRepo{}
	svc := newOperationService(t, &fakeGateway{}, &fakeWatcher{}, refs)
	completedAt := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	svc.finalizeSnapshot(tracker.Snapshot{Operation: &domain.AsyncOperation{
		OperationID: "op-5",
		Type:        domain.OperationBulkDuplicate,
		Status:      domain.OperationInProgress,
		Progress:    60,
	}})
	if len(refs.updated) != 0 {
		t.Fatalf("updated = %v, want none for a non-terminal snapshot", refs.updated)
	}

	svc.finalizeSnapshot(tracker.Snapshot{Operation: &domain.AsyncOperation{
		OperationID: "op-5",
		Type:        domain.OperationBulkDuplicate,
		Status:      domain.OperationCompleted,
		Progress:    100,
		CompletedAt: &completedAt,
	}})
	if len(refs.updated) != 1 || refs.updated[0] != "op-5" {
		t.Fatalf("updated = %v, want [op-5]", refs.updated)
	}
}
