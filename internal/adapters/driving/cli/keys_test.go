package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
)

func createKey(t *testing.T, args ...string) driving.KeyView {
	t.Helper()
	out, err := executeCommand(t, append([]string{"keys", "create", "--json"}, args...)...)
	require.NoError(t, err, out)

	var view driving.KeyView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	return view
}

func TestKeysCmd_Subcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range keysCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"create", "list", "get", "update", "delete", "authorize"} {
		assert.True(t, names[want], want)
	}
}

func TestKeysCmd_Create(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "keys", "create",
		"-d", "indexing", "-a", "documents.add,documents.get", "-i", "movies")
	require.NoError(t, err)

	assert.Contains(t, out, "Key: ")
	assert.Contains(t, out, "Description: indexing")
	assert.Contains(t, out, "Actions:     documents.add, documents.get")
	assert.Contains(t, out, "Indexes:     movies")
	assert.Contains(t, out, "Expires:     never")
}

func TestKeysCmd_CreateJSON(t *testing.T) {
	setupTestServices(t)

	view := createKey(t, "-a", "search", "-i", "*", "--expires-at", "2099-01-02T03:04:05Z")

	assert.Len(t, view.Key, domain.KeyIDLength+1+64)
	assert.Equal(t, []domain.Action{domain.ActionSearch}, view.Actions)
	assert.Equal(t, []string{"*"}, view.Indexes)
	require.NotNil(t, view.ExpiresAt)
	assert.Equal(t, 2099, view.ExpiresAt.Year())
}

func TestKeysCmd_CreateInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no actions", []string{"-i", "movies"}, "failed to create key"},
		{"no indexes", []string{"-a", "search"}, "failed to create key"},
		{"unknown action", []string{"-a", "fly", "-i", "movies"}, "unknown action"},
		{"bad expiry", []string{"-a", "search", "-i", "movies", "--expires-at", "tomorrow"}, "invalid expiry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestServices(t)

			_, err := executeCommand(t, append([]string{"keys", "create"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestKeysCmd_ListEmpty(t *testing.T) {
	setupTestServices(t)

	out, err := executeCommand(t, "keys", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No keys found.")
}

func TestKeysCmd_List(t *testing.T) {
	setupTestServices(t)
	createKey(t, "-a", "search", "-i", "movies")
	createKey(t, "-a", "*", "-i", "*")

	out, err := executeCommand(t, "keys", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 2 keys")

	out, err = executeCommand(t, "keys", "list", "--json")
	require.NoError(t, err)
	var views []driving.KeyView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	assert.Len(t, views, 2)
}

func TestKeysCmd_Get(t *testing.T) {
	setupTestServices(t)
	created := createKey(t, "-a", "search", "-i", "movies")

	for _, ref := range []string{created.Key, created.Key[:domain.KeyIDLength]} {
		out, err := executeCommand(t, "keys", "get", ref, "--json")
		require.NoError(t, err)

		var view driving.KeyView
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.Equal(t, created.Key, view.Key)
	}
}

func TestKeysCmd_GetMissing(t *testing.T) {
	setupTestServices(t)

	_, err := executeCommand(t, "keys", "get", "deadbeef")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKeysCmd_Update(t *testing.T) {
	setupTestServices(t)
	created := createKey(t, "-d", "before", "-a", "search", "-i", "movies")

	out, err := executeCommand(t, "keys", "update", created.Key, "-d", "after", "--json")
	require.NoError(t, err)

	var view driving.KeyView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "after", view.Description)
	assert.Equal(t, created.Actions, view.Actions, "unchanged flags must not reset fields")
	assert.Equal(t, created.Indexes, view.Indexes)

	out, err = executeCommand(t, "keys", "update", created.Key, "-i", "movies,series", "--json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, []string{"movies", "series"}, view.Indexes)
	assert.Equal(t, "after", view.Description)
}

func TestKeysCmd_UpdateCannotClearExpiry(t *testing.T) {
	setupTestServices(t)
	created := createKey(t, "-a", "search", "-i", "movies", "--expires-at", "2099-01-01T00:00:00Z")

	_, err := executeCommand(t, "keys", "update", created.Key, "--expires-at", "never")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can be moved but not removed")
}

func TestKeysCmd_Delete(t *testing.T) {
	setupTestServices(t)
	created := createKey(t, "-a", "search", "-i", "movies")

	out, err := executeCommand(t, "keys", "delete", created.Key)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted key")

	_, err = executeCommand(t, "keys", "get", created.Key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKeysCmd_Authorize(t *testing.T) {
	setupTestServices(t)
	created := createKey(t, "-a", "search", "-i", "movies")

	out, err := executeCommand(t, "keys", "authorize", created.Key, "search", "movies")
	require.NoError(t, err)
	assert.Contains(t, out, "Granted: key "+created.Key[:domain.KeyIDLength]+" may search on movies")

	out, err = executeCommand(t, "keys", "authorize", created.Key, "search", "series")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Contains(t, out, "Denied")

	_, err = executeCommand(t, "keys", "authorize", created.Key, "documents.add", "movies")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
