package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

func writePayload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want domain.DocumentFormat
	}{
		{"movies.json", domain.FormatJSON},
		{"movies.ndjson", domain.FormatNDJSON},
		{"movies.JSONL", domain.FormatNDJSON},
		{"movies.csv", domain.FormatCSV},
		{"movies.txt", domain.FormatJSON},
		{"-", domain.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, formatFromPath(tt.path))
		})
	}
}

func TestDocumentsCmd_AddFromFile(t *testing.T) {
	b := setupTestServices(t)
	path := writePayload(t, "movies.ndjson", "{\"id\":1,\"title\":\"Carol\"}\n{\"id\":2,\"title\":\"Wall-E\"}\n")

	out, err := executeCommand(t, "documents", "add", "movies", path, "--primary-key", "id")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1: documentAddition on movies [enqueued]")
	assert.Contains(t, out, "Documents:   2")
	assert.Contains(t, out, "Primary key: id")
	assert.Contains(t, out, "Merge:       replace")

	task, err := b.tasks.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "id", task.Content.DocumentAddition.PrimaryKey)
}

func TestDocumentsCmd_AddCSVWithMerge(t *testing.T) {
	b := setupTestServices(t)
	path := writePayload(t, "movies.csv", "id,title\n1,Carol\n2,Wall-E\n3,Heat\n")

	out, err := executeCommand(t, "documents", "add", "movies", path, "--merge", "update")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:   3")

	task, err := b.tasks.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.MergeUpdate, task.Content.DocumentAddition.MergeStrategy)
}

func TestDocumentsCmd_AddFromStdin(t *testing.T) {
	setupTestServices(t)

	in := strings.NewReader(`[{"id":1},{"id":2},{"id":3},{"id":4}]`)
	out, err := executeCommandWithInput(t, in, "documents", "add", "movies")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:   4")
}

func TestDocumentsCmd_AddFormatFlagOverridesExtension(t *testing.T) {
	setupTestServices(t)
	path := writePayload(t, "movies.txt", "{\"id\":1}\n{\"id\":2}\n")

	out, err := executeCommand(t, "documents", "add", "movies", path, "-f", "NDJSON")
	require.NoError(t, err)
	assert.Contains(t, out, "Documents:   2")
}

func TestDocumentsCmd_AddErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		args  []string
		is    error
	}{
		{"empty stdin", "", []string{"documents", "add", "movies"}, domain.ErrMissingPayload},
		{"malformed", `[{"id":1},`, []string{"documents", "add", "movies"}, domain.ErrMalformedPayload},
		{"unknown format", `[]`, []string{"documents", "add", "movies", "-", "-f", "xml"}, domain.ErrUnsupportedType},
		{"bad merge", `[{"id":1}]`, []string{"documents", "add", "movies", "--merge", "upsert"}, domain.ErrInvalidInput},
		{"empty index", `[{"id":1}]`, []string{"documents", "add", ""}, domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupTestServices(t)

			_, err := executeCommandWithInput(t, strings.NewReader(tt.input), tt.args...)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)

			tasks, err := b.tasks.List(context.Background(), nil, 10, nil)
			require.NoError(t, err)
			assert.Empty(t, tasks)
		})
	}
}

func TestDocumentsCmd_AddMissingFile(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "documents", "add", "movies", filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open payload")
}

func TestDocumentsCmd_Delete(t *testing.T) {
	b := setupTestServices(t)

	out, err := executeCommand(t, "documents", "delete", "movies", "1", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1: documentDeletion on movies [enqueued]")
	assert.Contains(t, out, "Documents:   1, 2")

	task, err := b.tasks.Get(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, task.Content.DocumentDeletion.IDs)
}

func TestDocumentsCmd_DeleteNeedsIDs(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "documents", "delete", "movies")
	assert.Error(t, err)
}

func TestDocumentsCmd_Clear(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "documents", "clear", "movies")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1: clearDocuments on movies [enqueued]")
}

func TestIndexesCmd_Delete(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "indexes", "delete", "movies")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1: indexDeletion on movies [enqueued]")
}
