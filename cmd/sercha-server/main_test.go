package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-server/internal/core/services"
)

func TestBootstrap_Open(t *testing.T) {
	dir := t.TempDir()
	cfg := domain.DefaultServerConfig()
	cfg.DBPath = dir
	cfg.MasterKey = "masterKey"

	svc, err := bootstrap{}.Open(&cfg)
	require.NoError(t, err)

	ctx := context.Background()
	keys, err := svc.Keys.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)

	families, err := svc.Metrics.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["sercha_pebble_memtable_count"])

	require.NoError(t, svc.Close())

	for _, p := range []string{"auth", filepath.Join("tasks", "tasks.db"), filepath.Join("updates", "updates_files")} {
		_, err := os.Stat(filepath.Join(dir, p))
		assert.NoError(t, err, p)
	}
}

func TestBootstrap_ReopenKeepsState(t *testing.T) {
	cfg := domain.DefaultServerConfig()
	cfg.DBPath = t.TempDir()
	cfg.MasterKey = "masterKey"
	ctx := context.Background()

	svc, err := bootstrap{}.Open(&cfg)
	require.NoError(t, err)
	first, err := svc.Keys.List(ctx)
	require.NoError(t, err)
	_, err = svc.Updates.Register(ctx, "movies", driving.ClearDocuments())
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	svc, err = bootstrap{}.Open(&cfg)
	require.NoError(t, err)
	defer svc.Close()

	second, err := svc.Keys.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, len(first))
	credentials := func(views []driving.KeyView) []string {
		out := make([]string, len(views))
		for i, v := range views {
			out[i] = v.Key
		}
		return out
	}
	assert.ElementsMatch(t, credentials(first), credentials(second))

	tasks, err := svc.Updates.ListTasks(ctx, nil, 0, nil)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, domain.TaskID(1), tasks[0].ID)
}

func TestBootstrap_NoMasterKey(t *testing.T) {
	cfg := domain.DefaultServerConfig()
	cfg.DBPath = t.TempDir()

	svc, err := bootstrap{}.Open(&cfg)
	require.NoError(t, err)
	defer svc.Close()

	keys, err := svc.Keys.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestBootstrap_ConfigStore(t *testing.T) {
	dir := t.TempDir()
	store, err := bootstrap{}.ConfigStore(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, services.DefaultTaskListLimit, cfg.TaskListLimit)
}

func TestResolveDataDir(t *testing.T) {
	dir, err := resolveDataDir("/srv/sercha")
	require.NoError(t, err)
	assert.Equal(t, "/srv/sercha", dir)

	dir, err = resolveDataDir("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".sercha", "data.ms"), filepath.Join(filepath.Base(filepath.Dir(dir)), filepath.Base(dir)))
}
