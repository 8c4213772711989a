package bulk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/courseops/admin-engine/internal/coreapi"
	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/observability"
	"github.com/courseops/admin-engine/internal/ratelimit"
	"go.uber.org/zap"
)

const defaultItemDelay = 100 * time.Millisecond

// MutationClient is the single-item mutation port. One call performs
// exactly one remote course update; modeled failures come back as
// *coreapi.MutationError.
type MutationClient interface {
	UpdateCourse(ctx context.Context, tenantID string, courseID int64, fields domain.CourseFields) error
}

// Snapshot is the observable progress state of a bulk run. Completed
// always equals len(Results); results appear in submission order.
type Snapshot struct {
	Total       int
	Completed   int
	Results     []domain.ItemResult
	IsExecuting bool
}

// Observer receives a snapshot after every processed item.
type Observer func(Snapshot)

// Runner applies one mutation kind to a list of courses strictly in input
// order, one item at a time. Per-item failures are recorded and never stop
// the run; an error outside the mutation contract aborts it with partial
// results. At most one run may execute at a time.
type Runner struct {
	client    MutationClient
	limiter   ratelimit.RateLimiter
	logger    *zap.Logger
	metrics   *observability.Metrics
	itemDelay time.Duration
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	active bool
	state  Snapshot
}

func NewRunner(client MutationClient, limiter ratelimit.RateLimiter, itemDelay time.Duration, logger *zap.Logger) (*Runner, error) {
	if client == nil {
		return nil, fmt.Errorf("mutation client is required")
	}
	if itemDelay <= 0 {
		itemDelay = defaultItemDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runner{
		client:    client,
		limiter:   limiter,
		logger:    logger,
		itemDelay: itemDelay,
		now:       time.Now,
		sleep:     sleepWithContext,
	}, nil
}

func (r *Runner) SetMetrics(metrics *observability.Metrics) {
	if r == nil {
		return
	}
	r.metrics = metrics
}

// Execute processes items in order and returns one result per item, in the
// same order. A nil observer is allowed. The returned results are partial
// when the error is non-nil (runner-level abort).
func (r *Runner) Execute(
	ctx context.Context,
	items []domain.OperationItem,
	kind domain.OperationKind,
	tenantID string,
	observer Observer,
) ([]domain.ItemResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if kind.IsZero() {
		return nil, fmt.Errorf("%w: operation kind is required", domain.ErrValidation)
	}
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant id is required", domain.ErrValidation)
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	if err := r.begin(len(items)); err != nil {
		return nil, err
	}

	start := r.now()
	results := make([]domain.ItemResult, 0, len(items))
	defer func() {
		r.finish(results, observer)
		if r.metrics != nil {
			r.metrics.IncBulkRun(domain.ClassifySummary(results).String())
			r.metrics.ObserveBulkRunDuration(kind.Action().String(), r.now().Sub(start))
		}
	}()

	r.publish(results, true, observer)

	fields := kind.Fields()
	for i, item := range items {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx, tenantID); err != nil {
				return results, fmt.Errorf("rate limiter wait failed: %w", err)
			}
		}

		err := r.client.UpdateCourse(ctx, tenantID, item.ID, fields)
		switch {
		case err == nil:
			results = append(results, domain.ItemResult{
				ItemID:    item.ID,
				ItemTitle: item.Title,
				Success:   true,
			})
		case coreapi.IsMutationError(err):
			message := err.Error()
			results = append(results, domain.ItemResult{
				ItemID:    item.ID,
				ItemTitle: item.Title,
				Success:   false,
				Error:     &message,
			})
			r.logger.Warn("bulk item failed",
				zap.Int64("courseId", item.ID),
				zap.String("tenantId", tenantID),
				zap.String("action", kind.Action().String()),
				zap.String("error", message),
			)
		default:
			// Outside the mutation contract: abort with partial results.
			r.logger.Error("bulk run aborted",
				zap.Int64("courseId", item.ID),
				zap.String("tenantId", tenantID),
				zap.Int("completed", len(results)),
				zap.Error(err),
			)
			return results, fmt.Errorf("bulk run aborted at item %d: %w", item.ID, err)
		}

		if r.metrics != nil {
			r.metrics.IncBulkItem(kind.Action().String(), results[len(results)-1].Success)
		}
		r.publish(results, true, observer)

		// Fixed throttle between items, skipped after the last one.
		if i < len(items)-1 {
			if err := r.sleep(ctx, r.itemDelay); err != nil {
				return results, fmt.Errorf("bulk run aborted during inter-item delay: %w", err)
			}
		}
	}

	return results, nil
}

// State returns the latest published snapshot.
func (r *Runner) State() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copySnapshot(r.state)
}

// ResetState clears the display state back to its zero value. It does not
// cancel an in-flight run; an active run repopulates the state on its next
// progress publish.
func (r *Runner) ResetState() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Snapshot{}
}

func (r *Runner) begin(total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active {
		return domain.ErrRunActive
	}
	r.active = true
	r.state = Snapshot{Total: total, IsExecuting: true}
	if r.metrics != nil {
		r.metrics.SetBulkRunInflight(true)
	}
	return nil
}

func (r *Runner) finish(results []domain.ItemResult, observer Observer) {
	r.mu.Lock()
	r.active = false
	r.state.Completed = len(results)
	r.state.Results = append([]domain.ItemResult(nil), results...)
	r.state.IsExecuting = false
	snapshot := copySnapshot(r.state)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.SetBulkRunInflight(false)
	}
	if observer != nil {
		observer(snapshot)
	}
}

func (r *Runner) publish(results []domain.ItemResult, executing bool, observer Observer) {
	r.mu.Lock()
	r.state.Completed = len(results)
	r.state.Results = append([]domain.ItemResult(nil), results...)
	r.state.IsExecuting = executing
	snapshot := copySnapshot(r.state)
	r.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

func copySnapshot(s Snapshot) Snapshot {
	copied := s
	copied.Results = append([]domain.ItemResult(nil), s.Results...)
	return copied
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
