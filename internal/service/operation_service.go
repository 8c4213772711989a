package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/coreapi"
	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/observability"
	"github.com/courseops/admin-engine/internal/repository"
	"github.com/courseops/admin-engine/internal/tracker"
	"go.uber.org/zap"
)

// OperationGateway is the core-API surface for async operations.
// coreapi.Client satisfies it.
type OperationGateway interface {
	StartOperation(ctx context.Context, operationType domain.OperationType, payload json.RawMessage) (*coreapi.StartedOperation, error)
	GetOperation(ctx context.Context, operationID string) (*domain.AsyncOperation, error)
}

// OperationWatcher follows a started operation until it settles.
// *tracker.Tracker satisfies it.
type OperationWatcher interface {
	Subscribe(operationID string, onSnapshot tracker.SnapshotFunc, onComplete tracker.CompleteFunc) (func(), error)
	Await(ctx context.Context, operationID string) (*domain.AsyncOperation, error)
}

// OperationService submits long-running operations to the core service,
// keeps a local reference row per submission, and tracks each one to
// completion.
type OperationService struct {
	gateway OperationGateway
	watcher OperationWatcher
	refs    repository.OperationRefRepository
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewOperationService(
	gateway OperationGateway,
	watcher OperationWatcher,
	refs repository.OperationRefRepository,
	logger *zap.Logger,
) (*OperationService, error) {
	if gateway == nil {
		return nil, fmt.Errorf("operation gateway is required")
	}
	if watcher == nil {
		return nil, fmt.Errorf("operation watcher is required")
	}
	if refs == nil {
		return nil, fmt.Errorf("operation ref repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OperationService{
		gateway: gateway,
		watcher: watcher,
		refs:    refs,
		logger:  logger,
	}, nil
}

func (s *OperationService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Start submits an operation, records a local reference row, and attaches
// a background watcher that finalizes the row on the terminal snapshot.
// The caller polls for progress with Status or through its own
// subscription.
func (s *OperationService) Start(ctx context.Context, operationType domain.OperationType, payload json.RawMessage) (*coreapi.StartedOperation, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	started, err := s.gateway.StartOperation(ctx, operationType, payload)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncOperationStarted(operationType.String())
	}
	s.logger.Info("async operation started",
		zap.String("operationId", started.OperationID),
		zap.String("operationType", operationType.String()),
	)

	status, err := domain.ParseOperationStatusFromString(started.Status)
	if err != nil {
		status = domain.OperationPending
	}
	ref := &repository.OperationRef{
		OperationID: started.OperationID,
		Type:        operationType,
		Status:      status,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.refs.Create(context.WithoutCancel(ctx), ref); err != nil {
		s.logger.Warn("failed to persist operation reference",
			zap.String("operationId", started.OperationID),
			zap.Error(err),
		)
	}

	if _, err := s.watcher.Subscribe(started.OperationID, s.finalizeSnapshot, nil); err != nil {
		s.logger.Warn("failed to attach operation watcher",
			zap.String("operationId", started.OperationID),
			zap.Error(err),
		)
	}

	return started, nil
}

// Status fetches the current snapshot once, without subscribing.
func (s *OperationService) Status(ctx context.Context, operationID string) (*domain.AsyncOperation, error) {
	trimmedID := strings.TrimSpace(operationID)
	if trimmedID == "" {
		return nil, fmt.Errorf("%w: operation id is required", domain.ErrValidation)
	}
	return s.gateway.GetOperation(ctx, trimmedID)
}

// Watch subscribes the caller to status snapshots of an operation.
func (s *OperationService) Watch(operationID string, onSnapshot tracker.SnapshotFunc, onComplete tracker.CompleteFunc) (func(), error) {
	return s.watcher.Subscribe(operationID, onSnapshot, onComplete)
}

// Await blocks until the operation settles or ctx is done.
func (s *OperationService) Await(ctx context.Context, operationID string) (*domain.AsyncOperation, error) {
	return s.watcher.Await(ctx, operationID)
}

// finalizeSnapshot records the terminal state of a watched operation in
// the local reference row and in the log.
func (s *OperationService) finalizeSnapshot(snapshot tracker.Snapshot) {
	operation := snapshot.Operation
	if operation == nil || !operation.Status.IsTerminal() {
		return
	}

	completedAt := operation.CompletedAt
	if completedAt == nil {
		now := time.Now().UTC()
		completedAt = &now
	}
	if err := s.refs.UpdateStatus(context.Background(), operation.OperationID, operation.Status, completedAt); err != nil {
		s.logger.Warn("failed to finalize operation reference",
			zap.String("operationId", operation.OperationID),
			zap.Error(err),
		)
	}

	fields := []zap.Field{
		zap.String("operationId", operation.OperationID),
		zap.String("operationType", operation.Type.String()),
		zap.String("status", operation.Status.String()),
	}
	if operation.ErrorDetails != nil {
		fields = append(fields,
			zap.String("errorType", operation.ErrorDetails.ErrorType),
			zap.String("errorMessage", operation.ErrorDetails.ErrorMessage),
		)
	}

	if operation.Status == domain.OperationFailed {
		s.logger.Warn("async operation failed", fields...)
		return
	}
	s.logger.Info("async operation completed", fields...)
}
