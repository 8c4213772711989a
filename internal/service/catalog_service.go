package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/courseops/admin-engine/internal/bulk"
	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/repository"
	"go.uber.org/zap"
)

// BulkExecutor runs one bulk mutation at a time and exposes its progress.
// *bulk.Runner satisfies it.
type BulkExecutor interface {
	Execute(ctx context.Context, items []domain.OperationItem, kind domain.OperationKind, tenantID string, observer bulk.Observer) ([]domain.ItemResult, error)
	State() bulk.Snapshot
	ResetState()
}

// CatalogService drives bulk course mutations and keeps their audit trail.
type CatalogService struct {
	runner BulkExecutor
	runs   repository.BulkRunRepository
	logger *zap.Logger
}

func NewCatalogService(
	runner BulkExecutor,
	runs repository.BulkRunRepository,
	logger *zap.Logger,
) (*CatalogService, error) {
	if runner == nil {
		return nil, fmt.Errorf("bulk executor is required")
	}
	if runs == nil {
		return nil, fmt.Errorf("bulk run repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CatalogService{
		runner: runner,
		runs:   runs,
		logger: logger,
	}, nil
}

// RunBulk executes one bulk mutation and persists the audit record. The
// returned run carries partial results when the execution aborted; the
// execution error is returned alongside it.
func (s *CatalogService) RunBulk(
	ctx context.Context,
	tenantID string,
	action domain.KindAction,
	price *float64,
	items []domain.OperationItem,
) (*domain.BulkRun, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tenantID = strings.TrimSpace(tenantID)
	kind, err := domain.NewOperationKind(action, price)
	if err != nil {
		return nil, err
	}

	startedAt := time.Now().UTC()
	results, runErr := s.runner.Execute(ctx, items, kind, tenantID, nil)
	if runErr != nil && results == nil {
		// Rejected before the first item: invalid input or a run already
		// executing. Nothing happened, so nothing is recorded.
		return nil, runErr
	}

	finishedAt := time.Now().UTC()
	run := &domain.BulkRun{
		TenantID:   tenantID,
		Action:     kind.Action(),
		TotalCount: len(items),
		Summary:    domain.ClassifySummary(results),
		Results:    results,
		Aborted:    runErr != nil,
		CreatedAt:  startedAt,
		FinishedAt: &finishedAt,
	}
	if kind.Action() == domain.ActionMakePaid {
		runPrice := kind.Price()
		run.Price = &runPrice
	}

	// The run already happened; an aborted request context must not also
	// lose the audit record.
	if persistErr := s.runs.Create(context.WithoutCancel(ctx), run); persistErr != nil {
		s.logger.Error("failed to persist bulk run audit record",
			zap.String("tenantId", tenantID),
			zap.String("action", kind.Action().String()),
			zap.String("summary", run.Summary.String()),
			zap.Error(persistErr),
		)
		if runErr == nil {
			return run, fmt.Errorf("failed to persist bulk run: %w", persistErr)
		}
	}

	if runErr != nil {
		return run, runErr
	}

	s.logger.Info("bulk run finished",
		zap.String("runId", run.ID),
		zap.String("tenantId", tenantID),
		zap.String("action", kind.Action().String()),
		zap.String("summary", run.Summary.String()),
		zap.Int("total", run.TotalCount),
	)
	return run, nil
}

// Progress returns the latest progress snapshot of the runner.
func (s *CatalogService) Progress() bulk.Snapshot {
	return s.runner.State()
}

// ResetProgress clears the displayed progress state.
func (s *CatalogService) ResetProgress() {
	s.runner.ResetState()
}

func (s *CatalogService) GetRun(ctx context.Context, id string) (*domain.BulkRun, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: run id is required", domain.ErrValidation)
	}
	return s.runs.GetByID(ctx, strings.TrimSpace(id))
}

func (s *CatalogService) ListRuns(ctx context.Context, params repository.RunListParams) ([]domain.BulkRun, int64, error) {
	return s.runs.List(ctx, params)
}

// PurgeExpiredRuns removes audit records older than the retention window.
func (s *CatalogService) PurgeExpiredRuns(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", domain.ErrValidation)
	}

	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := s.runs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		s.logger.Info("purged expired bulk runs",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
	return deleted, nil
}
