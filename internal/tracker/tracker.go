package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/courseops/admin-engine/internal/domain"
	"github.com/courseops/admin-engine/internal/observability"
	"go.uber.org/zap"
)

const defaultPollInterval = 2 * time.Second

// StatusFetcher reads the current snapshot of a server-owned operation.
// coreapi.Client satisfies it.
type StatusFetcher interface {
	GetOperation(ctx context.Context, operationID string) (*domain.AsyncOperation, error)
}

// Snapshot is one observed state of a polled operation. NotFound is a
// distinct state, not a failure: the operation may have expired or not be
// visible to the status endpoint yet.
type Snapshot struct {
	Operation *domain.AsyncOperation
	NotFound  bool
}

type SnapshotFunc func(Snapshot)

type CompleteFunc func(resultData json.RawMessage)

// Tracker polls operation status at a fixed interval until the first
// terminal snapshot or unsubscription. Each subscription is an independent
// poll loop.
type Tracker struct {
	fetcher  StatusFetcher
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	sleep    func(ctx context.Context, d time.Duration) error

	mu   sync.Mutex
	wg   sync.WaitGroup
	subs map[string]context.CancelFunc
	next int64
}

func NewTracker(fetcher StatusFetcher, interval time.Duration, logger *zap.Logger) (*Tracker, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("status fetcher is required")
	}
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracker{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
		sleep:    sleepWithContext,
		subs:     make(map[string]context.CancelFunc),
	}, nil
}

func (t *Tracker) SetMetrics(metrics *observability.Metrics) {
	if t == nil {
		return
	}
	t.metrics = metrics
}

// Subscribe starts polling operationID and delivers every observed
// snapshot to onSnapshot. onComplete fires exactly once, on the first
// COMPLETED snapshot carrying result data, and never again for this
// subscription. The returned function stops future polls; a fetch already
// in flight completes but its result is discarded.
func (t *Tracker) Subscribe(operationID string, onSnapshot SnapshotFunc, onComplete CompleteFunc) (func(), error) {
	trimmedID := strings.TrimSpace(operationID)
	if trimmedID == "" {
		return nil, fmt.Errorf("%w: operation id is required", domain.ErrValidation)
	}

	ctx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	t.next++
	key := fmt.Sprintf("%s#%d", trimmedID, t.next)
	t.subs[key] = cancel
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			t.mu.Lock()
			delete(t.subs, key)
			t.mu.Unlock()
		}()
		t.poll(ctx, trimmedID, onSnapshot, onComplete)
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(cancel)
	}
	return unsubscribe, nil
}

// Close cancels every active subscription and waits for their loops.
func (t *Tracker) Close() {
	t.mu.Lock()
	for _, cancel := range t.subs {
		cancel()
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *Tracker) poll(ctx context.Context, operationID string, onSnapshot SnapshotFunc, onComplete CompleteFunc) {
	completed := false

	for {
		operation, err := t.fetcher.GetOperation(ctx, operationID)

		// Teardown during the fetch: discard whatever came back.
		if ctx.Err() != nil {
			return
		}

		switch {
		case errors.Is(err, domain.ErrNotFound):
			if t.metrics != nil {
				t.metrics.IncPollFetch("not_found")
			}
			if onSnapshot != nil {
				onSnapshot(Snapshot{NotFound: true})
			}
		case err != nil:
			// Transient fetch failure; the operation itself has not
			// reported anything, so keep the loop alive.
			t.logger.Warn("operation status fetch failed",
				zap.String("operationId", operationID),
				zap.Error(err),
			)
			if t.metrics != nil {
				t.metrics.IncPollFetch("fetch_error")
			}
		default:
			if t.metrics != nil {
				t.metrics.IncPollFetch(operation.Status.String())
			}
			if onSnapshot != nil {
				onSnapshot(Snapshot{Operation: operation})
			}

			if operation.Status == domain.OperationCompleted && operation.ResultData != nil && !completed {
				completed = true
				if onComplete != nil {
					onComplete(operation.ResultData)
				}
			}
			if operation.Status.IsTerminal() {
				return
			}
		}

		if err := t.sleep(ctx, t.interval); err != nil {
			return
		}
	}
}

// Await blocks until the operation reaches a terminal status or ctx is
// done, and returns the terminal snapshot.
func (t *Tracker) Await(ctx context.Context, operationID string) (*domain.AsyncOperation, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	terminal := make(chan *domain.AsyncOperation, 1)
	unsubscribe, err := t.Subscribe(operationID, func(s Snapshot) {
		if s.Operation != nil && s.Operation.Status.IsTerminal() {
			select {
			case terminal <- s.Operation:
			default:
			}
		}
	}, nil)
	if err != nil {
		return nil, err
	}
	defer unsubscribe()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case operation := <-terminal:
		return operation, nil
	}
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
