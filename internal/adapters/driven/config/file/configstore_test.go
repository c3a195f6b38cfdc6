package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestConfigStore_Load_MissingFileGivesDefaults(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultServerConfig(), *cfg)
}

func TestConfigStore_Load_PartialFile(t *testing.T) {
	tmpDir := t.TempDir()
	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	content := `
db_path = "/var/lib/sercha/data.ms"
master_key = "s3cr3t"

[updates]
chunk_timeout = "5s"
max_payload_size = 1024

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(store.Path(), []byte(content), 0600))

	cfg, err := store.Load()
	require.NoError(t, err)

	defaults := domain.DefaultServerConfig()
	assert.Equal(t, "/var/lib/sercha/data.ms", cfg.DBPath)
	assert.Equal(t, "s3cr3t", cfg.MasterKey)
	assert.Equal(t, 5*time.Second, cfg.Ingest.ChunkTimeout)
	assert.Equal(t, int64(1024), cfg.Ingest.MaxPayloadSize)
	assert.Equal(t, "debug", cfg.LogLevel)

	// Untouched keys keep their defaults.
	assert.Equal(t, defaults.Ingest.ChunkSize, cfg.Ingest.ChunkSize)
	assert.Equal(t, defaults.TaskListLimit, cfg.TaskListLimit)
	assert.Equal(t, defaults.Dispatcher, cfg.Dispatcher)
	assert.Equal(t, defaults.Auth, cfg.Auth)
}

func TestConfigStore_SaveAndLoad(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	cfg := domain.DefaultServerConfig()
	cfg.DBPath = "/tmp/data.ms"
	cfg.TaskListLimit = 50
	cfg.Dispatcher.PollInterval = 250 * time.Millisecond

	require.NoError(t, store.Save(&cfg))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}

func TestConfigStore_Save_Nil(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, store.Save(nil), domain.ErrInvalidInput)
}

func TestConfigStore_Load_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "db_path = \n"},
		{"bad duration", "[updates]\nchunk_timeout = \"soon\"\n"},
		{"negative duration", "[dispatcher]\npoll_interval = \"-1s\"\n"},
		{"zero limit", "[tasks]\nlist_limit = 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewConfigStore(t.TempDir())
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(store.Path(), []byte(tt.content), 0600))

			_, err = store.Load()
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
