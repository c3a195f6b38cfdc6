package driven

import (
	"context"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// TaskExecutor applies a claimed task to the search index.
// A returned error fails the task with the error's message.
type TaskExecutor interface {
	Execute(ctx context.Context, task *domain.Task, content ContentStore) error
}
