// Command sercha-server manages the control plane storage of a sercha
// search server: API keys, the task queue and staged document content.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	configfile "github.com/custodia-labs/sercha-server/internal/adapters/driven/config/file"
	contentfile "github.com/custodia-labs/sercha-server/internal/adapters/driven/content/file"
	"github.com/custodia-labs/sercha-server/internal/adapters/driven/storage/pebblekv"
	"github.com/custodia-labs/sercha-server/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-server/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-server/internal/core/services"
	"github.com/custodia-labs/sercha-server/internal/formats"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetBootstrapper(bootstrap{})
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// bootstrap wires the storage adapters into the core services.
type bootstrap struct{}

func (bootstrap) ConfigStore(configDir string) (driven.ConfigStore, error) {
	return configfile.NewConfigStore(configDir)
}

func (bootstrap) Open(cfg *domain.ServerConfig) (*cli.Services, error) {
	dataDir, err := resolveDataDir(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Services, error) {
		_ = closeAll()
		return nil, err
	}

	env, err := pebblekv.OpenAuthEnv(dataDir, pebblekv.EnvOptions{
		CacheSize:    cfg.Auth.CacheSize,
		MemTableSize: cfg.Auth.MemTableSize,
	})
	if err != nil {
		return fail(fmt.Errorf("opening auth env: %w", err))
	}
	closers = append(closers, env.Close)

	authStore, err := pebblekv.NewAuthStore(env)
	if err != nil {
		return fail(fmt.Errorf("opening auth store: %w", err))
	}
	closers = append(closers, authStore.Close)

	taskDB, err := sqlite.NewStore(dataDir)
	if err != nil {
		return fail(fmt.Errorf("opening task env: %w", err))
	}
	closers = append(closers, taskDB.Close)
	tasks := taskDB.TaskStore()

	content, err := contentfile.NewStore(dataDir)
	if err != nil {
		return fail(fmt.Errorf("opening content store: %w", err))
	}

	decoders := formats.NewRegistry()
	formats.RegisterDefaults(decoders)

	keys := services.NewKeyService(authStore, cfg.MasterKey)
	if err := keys.EnsureDefaultKeys(context.Background()); err != nil {
		return fail(err)
	}

	orch := services.NewOrchestrator(tasks, content, decoders, cfg.Ingest, content.TmpDir())
	orch.SetListLimit(cfg.TaskListLimit)
	closers = append(closers, func() error {
		orch.Close()
		return nil
	})

	dispatcher := services.NewDispatcher(cfg.Dispatcher, tasks, content, services.NewValidatingExecutor())

	registry := prometheus.NewRegistry()
	registry.MustRegister(services.Collectors()...)
	registry.MustRegister(pebblekv.NewCollector(env, pebblekv.AuthSubdir))

	return &cli.Services{
		Keys:       keys,
		Updates:    orch,
		Dispatcher: dispatcher,
		Metrics:    registry,
		Close:      closeAll,
	}, nil
}

// resolveDataDir returns dir, or ~/.sercha/data.ms when dir is empty.
func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".sercha", "data.ms"), nil
}
