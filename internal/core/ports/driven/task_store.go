package driven

import (
	"context"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// TaskStore is the durable task queue.
//
// Task IDs are assigned inside the same commit that stores the task, so an
// ID is never handed out twice and never visible before its task is.
type TaskStore interface {
	// Register assigns the next ID, stamps the creation time, stores the task
	// as enqueued and returns the stored snapshot.
	Register(ctx context.Context, indexUID string, content domain.TaskContent) (*domain.Task, error)

	// Get returns a task by ID. A task hidden by the filter is reported as
	// domain.ErrNotFound, exactly like a task that does not exist.
	Get(ctx context.Context, id domain.TaskID, filter *domain.TaskFilter) (*domain.Task, error)

	// List returns at most limit tasks, most recent first, starting at the
	// task with ID from (inclusive) when from is non-nil.
	List(ctx context.Context, filter *domain.TaskFilter, limit int, from *domain.TaskID) ([]domain.Task, error)

	// Pending returns at most limit enqueued tasks in ascending ID order.
	Pending(ctx context.Context, limit int) ([]domain.Task, error)

	// ClaimNext atomically moves the lowest enqueued task to processing.
	// Returns nil and no error if the queue is empty.
	ClaimNext(ctx context.Context) (*domain.Task, error)

	// Finish records the terminal outcome of a processing task.
	// Returns domain.ErrInvalidTransition if the task is not processing.
	Finish(ctx context.Context, id domain.TaskID, result domain.TaskResult) (*domain.Task, error)

	// ActiveContent returns the content IDs referenced by enqueued or
	// processing tasks.
	ActiveContent(ctx context.Context) (map[domain.ContentID]struct{}, error)
}
