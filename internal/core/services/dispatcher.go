package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-server/internal/logger"
)

// Ensure Dispatcher implements the interface.
var _ driving.Dispatcher = (*Dispatcher)(nil)

// Dispatcher claims queued tasks in ID order and hands them to an executor.
// A single dispatcher is the only consumer of a task store.
type Dispatcher struct {
	config   domain.DispatcherConfig
	tasks    driven.TaskStore
	content  driven.ContentStore
	executor driven.TaskExecutor
	limiter  *rate.Limiter

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Claims are paced by config.Rate; a
// non-positive rate disables pacing.
func NewDispatcher(
	config domain.DispatcherConfig,
	tasks driven.TaskStore,
	content driven.ContentStore,
	executor driven.TaskExecutor,
) *Dispatcher {
	limit := rate.Limit(config.Rate)
	if config.Rate <= 0 {
		limit = rate.Inf
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{
		config:   config,
		tasks:    tasks,
		content:  content,
		executor: executor,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Run claims and executes tasks until the context is cancelled or Stop is
// called. Blocks until then.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.stopCh = make(chan struct{})
	stopCh := d.stopCh
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		if d.running && d.stopCh == stopCh {
			d.running = false
			close(stopCh)
		}
		d.mu.Unlock()
	}()

	logger.Section("Dispatcher")
	logger.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopCh:
			logger.Info("dispatcher stopped")
			return nil
		default:
		}

		ran, err := d.RunOnce(ctx)
		if err != nil && ctx.Err() == nil {
			logger.Error("dispatching: %v", err)
		}
		if ran {
			continue
		}

		timer := time.NewTimer(d.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-stopCh:
			timer.Stop()
			logger.Info("dispatcher stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Stop ends Run and waits for the task in progress to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
}

// RunOnce claims and executes at most one task. Returns false if the queue
// was empty.
func (d *Dispatcher) RunOnce(ctx context.Context) (bool, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return false, err
	}

	task, err := d.tasks.ClaimNext(ctx)
	if err != nil {
		return false, fmt.Errorf("claiming task: %w", err)
	}
	if task == nil {
		return false, nil
	}

	logger.Debug("executing task %d (%s) on %s", task.ID, task.Content.Kind, task.IndexUID)
	result := domain.TaskResult{Succeeded: true}
	if err := d.execute(ctx, task); err != nil {
		result = domain.TaskResult{Error: err.Error()}
		logger.Warn("task %d failed: %v", task.ID, err)
	}

	// The outcome is recorded even when ctx was cancelled mid-execution,
	// so the task never stays processing.
	finished, err := d.tasks.Finish(context.WithoutCancel(ctx), task.ID, result)
	if err != nil {
		return true, fmt.Errorf("finishing task %d: %w", task.ID, err)
	}
	TasksExecuted.WithLabelValues(string(finished.Status)).Inc()
	return true, nil
}

// Pending returns at most limit enqueued tasks, oldest first.
func (d *Dispatcher) Pending(ctx context.Context, limit int) ([]domain.Task, error) {
	return d.tasks.Pending(ctx, limit)
}

// Claim moves the oldest enqueued task to processing for an external worker.
func (d *Dispatcher) Claim(ctx context.Context) (*domain.Task, error) {
	return d.tasks.ClaimNext(ctx)
}

// Finish records the outcome of a claimed task.
func (d *Dispatcher) Finish(ctx context.Context, id domain.TaskID, result domain.TaskResult) (*domain.Task, error) {
	task, err := d.tasks.Finish(ctx, id, result)
	if err != nil {
		return nil, err
	}
	TasksExecuted.WithLabelValues(string(task.Status)).Inc()
	return task, nil
}

func (d *Dispatcher) execute(ctx context.Context, task *domain.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("executor panic on task %d: %v\n%s", task.ID, r, debug.Stack())
			err = fmt.Errorf("executor panic: %v", r)
		}
	}()
	return d.executor.Execute(ctx, task, d.content)
}
