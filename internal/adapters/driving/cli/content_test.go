package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentCmd_SweepKeepsQueuedContent(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	out, err := executeCommand(t, "content", "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 blobs")
}

func TestContentCmd_SweepAfterExecution(t *testing.T) {
	setupTestServices(t)
	queueSampleTasks(t)

	_, err := executeCommand(t, "tasks", "run", "--once")
	require.NoError(t, err)

	out, err := executeCommand(t, "content", "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 blobs")
}

func TestStatsCmd(t *testing.T) {
	setupTestServices(t)
	_, err := executeCommandWithInput(t, strings.NewReader(`{"id":1}`), "documents", "add", "movies")
	require.NoError(t, err)

	out, err := executeCommand(t, "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "# HELP sercha_updates_payload_bytes_total Payload bytes drained from document additions.")
	assert.Contains(t, out, "# TYPE sercha_updates_payload_bytes_total counter")
	assert.Contains(t, out, "sercha_updates_registrations_total")
}
