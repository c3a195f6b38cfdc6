package driving

import (
	"context"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// Dispatcher hands queued tasks to the execution worker in ID order.
type Dispatcher interface {
	// Run claims and executes tasks until the context is cancelled.
	Run(ctx context.Context) error

	// RunOnce claims and executes at most one task.
	// Returns false if the queue was empty.
	RunOnce(ctx context.Context) (bool, error)

	// Pending returns at most limit enqueued tasks, oldest first.
	Pending(ctx context.Context, limit int) ([]domain.Task, error)

	// Claim moves the oldest enqueued task to processing for an external
	// worker. Returns nil if the queue is empty.
	Claim(ctx context.Context) (*domain.Task, error)

	// Finish records the terminal outcome of a claimed task.
	// Returns domain.ErrInvalidTransition if the task is not processing.
	Finish(ctx context.Context, id domain.TaskID, result domain.TaskResult) (*domain.Task, error)
}
