package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// Ensure ValidatingExecutor implements the interface.
var _ driven.TaskExecutor = (*ValidatingExecutor)(nil)

// ValidatingExecutor checks that a task can be applied without touching a
// search index. Document additions must reference a readable blob holding
// exactly the recorded number of documents. Other kinds always succeed.
type ValidatingExecutor struct{}

// NewValidatingExecutor creates a validating executor.
func NewValidatingExecutor() *ValidatingExecutor {
	return &ValidatingExecutor{}
}

// Execute validates the task.
func (e *ValidatingExecutor) Execute(ctx context.Context, task *domain.Task, content driven.ContentStore) error {
	if task.Content.Kind != domain.TaskKindDocumentAddition {
		return nil
	}
	add := task.Content.DocumentAddition
	if add == nil {
		return fmt.Errorf("%w: document addition without content", domain.ErrCorruption)
	}

	n := 0
	err := content.Documents(ctx, add.ContentID, func(domain.Document) error {
		n++
		return nil
	})
	if err != nil {
		return fmt.Errorf("reading content %s: %w", add.ContentID, err)
	}
	if n != add.DocumentsCount {
		return fmt.Errorf("%w: content %s holds %d documents, task records %d",
			domain.ErrCorruption, add.ContentID, n, add.DocumentsCount)
	}
	return nil
}
