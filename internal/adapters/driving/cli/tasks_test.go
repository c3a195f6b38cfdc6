package cli

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

// queueSampleTasks registers an addition on movies, a clear on series and
// a deletion on movies, in that order.
func queueSampleTasks(t *testing.T) {
	t.Helper()
	_, err := executeCommandWithInput(t, strings.NewReader(`[{"id":1},{"id":2}]`), "documents", "add", "movies")
	require.NoError(t, err)
	_, err = executeCommand(t, "documents", "clear", "series")
	require.NoError(t, err)
	_, err = executeCommand(t, "documents", "delete", "movies", "7")
	require.NoError(t, err)
}

func listTaskIDs(t *testing.T, args ...string) []domain.TaskID {
	t.Helper()
	out, err := executeCommand(t, append([]string{"tasks", "list", "--json"}, args...)...)
	require.NoError(t, err, out)

	var tasks []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	ids := make([]domain.TaskID, len(tasks))
	for i, task := range tasks {
		ids[i] = task.ID
	}
	return ids
}

func TestTasksCmd_ListEmpty(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No tasks found.")

	assert.Empty(t, listTaskIDs(t))
}

func TestTasksCmd_List(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	out, err := executeCommand(t, "tasks", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 3 tasks")
	assert.Less(t, strings.Index(out, "Task 3:"), strings.Index(out, "Task 1:"), "most recent first")

	assert.Equal(t, []domain.TaskID{3, 2, 1}, listTaskIDs(t))
	assert.Equal(t, []domain.TaskID{3, 2}, listTaskIDs(t, "-n", "2"))
	assert.Equal(t, []domain.TaskID{2, 1}, listTaskIDs(t, "--from", "2"))
}

func TestTasksCmd_ListFilters(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	assert.Equal(t, []domain.TaskID{3, 1}, listTaskIDs(t, "--index", "movies"))
	assert.Equal(t, []domain.TaskID{2}, listTaskIDs(t, "--kind", "clearDocuments"))
	assert.Equal(t, []domain.TaskID{3, 2, 1}, listTaskIDs(t, "--status", "enqueued"))
	assert.Empty(t, listTaskIDs(t, "--status", "succeeded"))
}

func TestTasksCmd_ListInvalidFilter(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "tasks", "list", "--status", "paused")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task status")

	_, err = executeCommand(t, "tasks", "list", "--kind", "reindex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown task kind")
}

func TestTasksCmd_Get(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	out, err := executeCommand(t, "tasks", "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1: documentAddition on movies [enqueued]")

	out, err = executeCommand(t, "tasks", "get", "2", "--json")
	require.NoError(t, err)
	var task domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &task))
	assert.Equal(t, "series", task.IndexUID)
	assert.Equal(t, domain.TaskKindClearDocuments, task.Content.Kind)
}

func TestTasksCmd_GetFilteredOut(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	_, err := executeCommand(t, "tasks", "get", "2", "--index", "movies")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTasksCmd_GetInvalidID(t *testing.T) {
	setupTestServices(t)

	for _, id := range []string{"abc", "0", "-3"} {
		_, err := executeCommand(t, "tasks", "get", "--", id)
		require.Error(t, err, id)
		assert.Contains(t, err.Error(), "invalid task id")
	}
}

func TestTasksCmd_Pending(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	out, err := executeCommand(t, "tasks", "pending", "--json")
	require.NoError(t, err)
	var tasks []domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 3)
	assert.Equal(t, domain.TaskID(1), tasks[0].ID, "oldest first")

	out, err = executeCommand(t, "tasks", "pending", "-n", "1", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &tasks))
	require.Len(t, tasks, 1)
}

func TestTasksCmd_ClaimAndFinish(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	out, err := executeCommand(t, "tasks", "claim")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1: documentAddition on movies [processing]")

	out, err = executeCommand(t, "tasks", "finish", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Task 1: documentAddition on movies [succeeded]")

	out, err = executeCommand(t, "tasks", "claim", "--json")
	require.NoError(t, err)
	var claimed domain.Task
	require.NoError(t, json.Unmarshal([]byte(out), &claimed))
	assert.Equal(t, domain.TaskID(2), claimed.ID)

	out, err = executeCommand(t, "tasks", "finish", "2", "--error", "index is locked")
	require.NoError(t, err)
	assert.Contains(t, out, "[failed]")
	assert.Contains(t, out, "Error:       index is locked")
}

func TestTasksCmd_FinishUnclaimed(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	_, err := executeCommand(t, "tasks", "finish", "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTasksCmd_ClaimEmpty(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "tasks", "claim")
	require.NoError(t, err)
	assert.Contains(t, out, "No enqueued tasks.")
}

func TestTasksCmd_RunOnce(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	out, err := executeCommand(t, "tasks", "run", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "Executed one task.")

	out, err = executeCommand(t, "tasks", "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[succeeded]")

	assert.Equal(t, []domain.TaskID{3, 2}, listTaskIDs(t, "--status", "enqueued"))
}

func TestTasksCmd_RunOnceEmpty(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "tasks", "run", "--once")
	require.NoError(t, err)
	assert.Contains(t, out, "No enqueued tasks.")
}
