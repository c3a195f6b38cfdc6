package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// UpdateService turns external mutation requests into durably queued tasks.
type UpdateService interface {
	// Register queues one update against an index. A returned task certifies
	// durable queuing only, not execution.
	Register(ctx context.Context, indexUID string, update Update) (*domain.Task, error)

	// GetTask returns a task visible through the filter.
	GetTask(ctx context.Context, id domain.TaskID, filter *domain.TaskFilter) (*domain.Task, error)

	// ListTasks returns at most limit tasks, most recent first.
	ListTasks(ctx context.Context, filter *domain.TaskFilter, limit int, from *domain.TaskID) ([]domain.Task, error)

	// SweepContent removes blobs no longer needed by any queued task.
	// Returns the number of blobs removed.
	SweepContent(ctx context.Context) (int, error)
}

// Update is one mutation request. Kind selects which fields are used.
type Update struct {
	Kind domain.TaskKind

	// Payload is the raw document stream for document additions. If it
	// implements io.Closer it is closed when registration aborts.
	Payload       io.Reader
	Format        domain.DocumentFormat
	PrimaryKey    string
	MergeStrategy domain.MergeStrategy

	// DocumentIDs lists documents to delete.
	DocumentIDs []string

	// Settings is the settings change to apply.
	Settings *domain.Settings
}

// AddDocuments builds a document addition update.
func AddDocuments(payload io.Reader, format domain.DocumentFormat, primaryKey string, merge domain.MergeStrategy) Update {
	return Update{
		Kind:          domain.TaskKindDocumentAddition,
		Payload:       payload,
		Format:        format,
		PrimaryKey:    primaryKey,
		MergeStrategy: merge,
	}
}

// DeleteDocuments builds a document deletion update.
func DeleteDocuments(ids []string) Update {
	return Update{Kind: domain.TaskKindDocumentDeletion, DocumentIDs: ids}
}

// ClearDocuments builds an update removing every document of an index.
func ClearDocuments() Update {
	return Update{Kind: domain.TaskKindClearDocuments}
}

// UpdateSettings builds a settings update.
func UpdateSettings(s domain.Settings) Update {
	return Update{Kind: domain.TaskKindSettingsUpdate, Settings: &s}
}

// DeleteIndex builds an index deletion update.
func DeleteIndex() Update {
	return Update{Kind: domain.TaskKindIndexDeletion}
}
