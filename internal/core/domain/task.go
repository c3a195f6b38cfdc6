package domain

import (
	"slices"
	"time"
)

// TaskID identifies a task. IDs are strictly increasing within a task store
// and never reused.
type TaskID int64

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task statuses.
const (
	// TaskEnqueued is the status of every newly registered task.
	TaskEnqueued TaskStatus = "enqueued"
	// TaskProcessing marks a task claimed by the execution worker.
	TaskProcessing TaskStatus = "processing"
	// TaskSucceeded is a terminal status.
	TaskSucceeded TaskStatus = "succeeded"
	// TaskFailed is a terminal status.
	TaskFailed TaskStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskEnqueued, TaskProcessing, TaskSucceeded, TaskFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once the task will not change again.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskSucceeded || s == TaskFailed
}

// TaskKind discriminates the content of a task.
type TaskKind string

// Task kinds.
const (
	TaskKindDocumentAddition TaskKind = "documentAddition"
	TaskKindDocumentDeletion TaskKind = "documentDeletion"
	TaskKindClearDocuments   TaskKind = "clearDocuments"
	TaskKindSettingsUpdate   TaskKind = "settingsUpdate"
	TaskKindIndexDeletion    TaskKind = "indexDeletion"
)

// IsValid returns true if the kind is recognised.
func (k TaskKind) IsValid() bool {
	switch k {
	case TaskKindDocumentAddition, TaskKindDocumentDeletion, TaskKindClearDocuments,
		TaskKindSettingsUpdate, TaskKindIndexDeletion:
		return true
	default:
		return false
	}
}

// MergeStrategy controls how added documents combine with existing
// documents sharing a primary key.
type MergeStrategy string

// Merge strategies.
const (
	// MergeReplace replaces the whole existing document.
	MergeReplace MergeStrategy = "replace"
	// MergeUpdate updates only the fields present in the new document.
	MergeUpdate MergeStrategy = "update"
)

// IsValid returns true if the strategy is recognised.
func (m MergeStrategy) IsValid() bool {
	return m == MergeReplace || m == MergeUpdate
}

// TaskContent is the operation a task applies. Exactly one of the pointer
// fields is set, according to Kind; ClearDocuments and IndexDeletion carry
// no payload.
type TaskContent struct {
	Kind             TaskKind          `json:"kind"`
	DocumentAddition *DocumentAddition `json:"documentAddition,omitempty"`
	DocumentDeletion *DocumentDeletion `json:"documentDeletion,omitempty"`
	SettingsUpdate   *Settings         `json:"settingsUpdate,omitempty"`
}

// DocumentAddition references a staged content blob.
type DocumentAddition struct {
	// ContentID identifies the blob holding the normalised documents.
	ContentID ContentID `json:"contentUuid"`
	// PrimaryKey is the primary key requested by the caller, if any.
	PrimaryKey string `json:"primaryKey,omitempty"`
	// MergeStrategy controls how documents merge with existing ones.
	MergeStrategy MergeStrategy `json:"mergeStrategy"`
	// DocumentsCount is the number of documents in the blob.
	DocumentsCount int `json:"documentsCount"`
}

// DocumentDeletion lists the document ids to delete.
type DocumentDeletion struct {
	IDs []string `json:"ids"`
}

// ContentID returns the blob referenced by the content, if any.
func (c TaskContent) ContentID() (ContentID, bool) {
	if c.Kind == TaskKindDocumentAddition && c.DocumentAddition != nil {
		return c.DocumentAddition.ContentID, true
	}
	return "", false
}

// Task is a durable record of one queued mutation against an index.
type Task struct {
	// ID is assigned by the task store when the task is registered.
	ID TaskID `json:"uid"`

	// IndexUID is the index the task applies to.
	IndexUID string `json:"indexUid"`

	// Content is the operation to apply.
	Content TaskContent `json:"content"`

	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`

	// Error is the failure reason for failed tasks.
	Error string `json:"error,omitempty"`

	// CreatedAt is when the task was registered.
	CreatedAt time.Time `json:"enqueuedAt"`

	// StartedAt is when the worker claimed the task.
	StartedAt *time.Time `json:"startedAt,omitempty"`

	// FinishedAt is when the task reached a terminal status.
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// TaskResult is the terminal outcome written back by the execution worker.
type TaskResult struct {
	// Succeeded indicates the task applied cleanly.
	Succeeded bool
	// Error is the failure reason when Succeeded is false.
	Error string
}

// TaskFilter narrows which tasks are visible to a caller.
// Empty slices impose no restriction.
type TaskFilter struct {
	// Indexes restricts tasks to these index uids.
	Indexes []string
	// Statuses restricts tasks to these statuses.
	Statuses []TaskStatus
	// Kinds restricts tasks to these kinds.
	Kinds []TaskKind
}

// Matches returns true if the task passes the filter. A nil filter matches
// every task.
func (f *TaskFilter) Matches(t *Task) bool {
	if f == nil {
		return true
	}
	if len(f.Indexes) > 0 && !slices.Contains(f.Indexes, t.IndexUID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
		return false
	}
	if len(f.Kinds) > 0 && !slices.Contains(f.Kinds, t.Content.Kind) {
		return false
	}
	return true
}
