package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskStatus(t *testing.T) {
	assert.True(t, TaskEnqueued.IsValid())
	assert.False(t, TaskStatus("paused").IsValid())

	assert.False(t, TaskEnqueued.IsTerminal())
	assert.False(t, TaskProcessing.IsTerminal())
	assert.True(t, TaskSucceeded.IsTerminal())
	assert.True(t, TaskFailed.IsTerminal())
}

func TestTaskContent_ContentID(t *testing.T) {
	c := TaskContent{
		Kind:             TaskKindDocumentAddition,
		DocumentAddition: &DocumentAddition{ContentID: "c-1"},
	}
	id, ok := c.ContentID()
	assert.True(t, ok)
	assert.Equal(t, ContentID("c-1"), id)

	_, ok = TaskContent{Kind: TaskKindIndexDeletion}.ContentID()
	assert.False(t, ok)
}

func TestTaskFilter_Matches(t *testing.T) {
	task := &Task{
		IndexUID: "movies",
		Status:   TaskEnqueued,
		Content:  TaskContent{Kind: TaskKindClearDocuments},
	}

	tests := []struct {
		name   string
		filter *TaskFilter
		want   bool
	}{
		{"nil filter", nil, true},
		{"empty filter", &TaskFilter{}, true},
		{"index visible", &TaskFilter{Indexes: []string{"books", "movies"}}, true},
		{"index hidden", &TaskFilter{Indexes: []string{"books"}}, false},
		{"status match", &TaskFilter{Statuses: []TaskStatus{TaskEnqueued}}, true},
		{"status mismatch", &TaskFilter{Statuses: []TaskStatus{TaskFailed}}, false},
		{"kind mismatch", &TaskFilter{Kinds: []TaskKind{TaskKindIndexDeletion}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(task))
		})
	}
}

func TestSettings_Validate(t *testing.T) {
	empty := Settings{}
	assert.ErrorIs(t, empty.Validate(), ErrInvalidInput)

	reset := Settings{Reset: true}
	assert.NoError(t, reset.Validate())

	attrs := []string{"title", ""}
	blank := Settings{SearchableAttributes: &attrs}
	assert.ErrorIs(t, blank.Validate(), ErrInvalidInput)

	ok := []string{"genre"}
	valid := Settings{FilterableAttributes: &ok}
	assert.NoError(t, valid.Validate())
}

func TestDocumentFormat_IsValid(t *testing.T) {
	assert.True(t, FormatJSON.IsValid())
	assert.True(t, FormatNDJSON.IsValid())
	assert.True(t, FormatCSV.IsValid())
	assert.False(t, DocumentFormat("xml").IsValid())
}

func TestMergeStrategy_IsValid(t *testing.T) {
	assert.True(t, MergeReplace.IsValid())
	assert.True(t, MergeUpdate.IsValid())
	assert.False(t, MergeStrategy("merge").IsValid())
}
