package file

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
type ConfigStore struct {
	mu       sync.Mutex
	filePath string
}

// fileConfig is the on-disk layout of domain.ServerConfig.
type fileConfig struct {
	DBPath     string          `toml:"db_path"`
	MasterKey  string          `toml:"master_key,omitempty"`
	Auth       authSection     `toml:"auth"`
	Tasks      tasksSection    `toml:"tasks"`
	Updates    updatesSection  `toml:"updates"`
	Dispatcher dispatchSection `toml:"dispatcher"`
	Log        logSection      `toml:"log"`
}

type authSection struct {
	CacheSize    int64  `toml:"cache_size"`
	MemTableSize uint64 `toml:"memtable_size"`
}

type tasksSection struct {
	ListLimit int `toml:"list_limit"`
}

type updatesSection struct {
	MaxPayloadSize int64  `toml:"max_payload_size"`
	ChunkTimeout   string `toml:"chunk_timeout"`
	ChunkSize      int    `toml:"chunk_size"`
	DecodeWorkers  int    `toml:"decode_workers"`
	QueueSize      int    `toml:"queue_size"`
}

type dispatchSection struct {
	Rate         float64 `toml:"rate"`
	Burst        int     `toml:"burst"`
	PollInterval string  `toml:"poll_interval"`
}

type logSection struct {
	Level string `toml:"level"`
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.sercha/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".sercha")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &ConfigStore{
		filePath: filepath.Join(configDir, "config.toml"),
	}, nil
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

// Load reads the configuration, filling absent keys with defaults.
func (s *ConfigStore) Load() (*domain.ServerConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defaults := domain.DefaultServerConfig()
	fc := toFile(&defaults)

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			// No config file yet - defaults apply
			return &defaults, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, s.filePath, err)
	}

	return fromFile(fc)
}

// Save writes the configuration to the TOML file.
func (s *ConfigStore) Save(cfg *domain.ServerConfig) error {
	if cfg == nil {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := toml.Marshal(toFile(cfg))
	if err != nil {
		return err
	}

	// Write with restricted permissions; the file may hold the master key
	return os.WriteFile(s.filePath, data, 0600)
}

func toFile(cfg *domain.ServerConfig) *fileConfig {
	return &fileConfig{
		DBPath:    cfg.DBPath,
		MasterKey: cfg.MasterKey,
		Auth: authSection{
			CacheSize:    cfg.Auth.CacheSize,
			MemTableSize: cfg.Auth.MemTableSize,
		},
		Tasks: tasksSection{ListLimit: cfg.TaskListLimit},
		Updates: updatesSection{
			MaxPayloadSize: cfg.Ingest.MaxPayloadSize,
			ChunkTimeout:   cfg.Ingest.ChunkTimeout.String(),
			ChunkSize:      cfg.Ingest.ChunkSize,
			DecodeWorkers:  cfg.Ingest.DecodeWorkers,
			QueueSize:      cfg.Ingest.QueueSize,
		},
		Dispatcher: dispatchSection{
			Rate:         cfg.Dispatcher.Rate,
			Burst:        cfg.Dispatcher.Burst,
			PollInterval: cfg.Dispatcher.PollInterval.String(),
		},
		Log: logSection{Level: cfg.LogLevel},
	}
}

func fromFile(fc *fileConfig) (*domain.ServerConfig, error) {
	chunkTimeout, err := parseDuration("updates.chunk_timeout", fc.Updates.ChunkTimeout)
	if err != nil {
		return nil, err
	}
	pollInterval, err := parseDuration("dispatcher.poll_interval", fc.Dispatcher.PollInterval)
	if err != nil {
		return nil, err
	}

	cfg := &domain.ServerConfig{
		DBPath:    fc.DBPath,
		MasterKey: fc.MasterKey,
		Auth: domain.AuthEnvConfig{
			CacheSize:    fc.Auth.CacheSize,
			MemTableSize: fc.Auth.MemTableSize,
		},
		TaskListLimit: fc.Tasks.ListLimit,
		Ingest: domain.IngestConfig{
			MaxPayloadSize: fc.Updates.MaxPayloadSize,
			ChunkTimeout:   chunkTimeout,
			ChunkSize:      fc.Updates.ChunkSize,
			DecodeWorkers:  fc.Updates.DecodeWorkers,
			QueueSize:      fc.Updates.QueueSize,
		},
		Dispatcher: domain.DispatcherConfig{
			Rate:         fc.Dispatcher.Rate,
			Burst:        fc.Dispatcher.Burst,
			PollInterval: pollInterval,
		},
		LogLevel: fc.Log.Level,
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidInput, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, key)
	}
	return d, nil
}

func validate(cfg *domain.ServerConfig) error {
	checks := []struct {
		key string
		ok  bool
	}{
		{"auth.cache_size", cfg.Auth.CacheSize > 0},
		{"tasks.list_limit", cfg.TaskListLimit > 0},
		{"updates.max_payload_size", cfg.Ingest.MaxPayloadSize > 0},
		{"updates.chunk_size", cfg.Ingest.ChunkSize > 0},
		{"updates.decode_workers", cfg.Ingest.DecodeWorkers > 0},
		{"updates.queue_size", cfg.Ingest.QueueSize > 0},
		{"dispatcher.rate", cfg.Dispatcher.Rate > 0},
		{"dispatcher.burst", cfg.Dispatcher.Burst > 0},
	}
	for _, c := range checks {
		if !c.ok {
			return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, c.key)
		}
	}
	return nil
}
