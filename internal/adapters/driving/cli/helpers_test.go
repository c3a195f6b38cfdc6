package cli

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	configfile "github.com/custodia-labs/sercha-server/internal/adapters/driven/config/file"
	contentfile "github.com/custodia-labs/sercha-server/internal/adapters/driven/content/file"
	"github.com/custodia-labs/sercha-server/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-server/internal/core/services"
	"github.com/custodia-labs/sercha-server/internal/formats"
)

// testBootstrapper serves the same in-memory services to every command of
// a test, so state carries across invocations.
type testBootstrapper struct {
	configDir string
	services  *Services
	tasks     *memory.TaskStore
	opened    int
	lastCfg   *domain.ServerConfig
}

func (b *testBootstrapper) ConfigStore(_ string) (driven.ConfigStore, error) {
	return configfile.NewConfigStore(b.configDir)
}

func (b *testBootstrapper) Open(cfg *domain.ServerConfig) (*Services, error) {
	b.opened++
	b.lastCfg = cfg
	return b.services, nil
}

// setupTestServices installs a bootstrapper backed by memory stores and
// returns it. The previous bootstrapper is restored on cleanup.
func setupTestServices(t *testing.T) *testBootstrapper {
	t.Helper()

	content, err := contentfile.NewStore(t.TempDir())
	require.NoError(t, err)
	decoders := formats.NewRegistry()
	formats.RegisterDefaults(decoders)

	tasks := memory.NewTaskStore()
	cfg := domain.IngestConfig{
		MaxPayloadSize: 1 << 20,
		ChunkTimeout:   time.Second,
		ChunkSize:      64,
		DecodeWorkers:  1,
		QueueSize:      1,
	}
	orch := services.NewOrchestrator(tasks, content, decoders, cfg, content.TmpDir())
	t.Cleanup(orch.Close)

	registry := prometheus.NewRegistry()
	registry.MustRegister(services.Collectors()...)

	b := &testBootstrapper{
		configDir: t.TempDir(),
		tasks:     tasks,
		services: &Services{
			Keys:    services.NewKeyService(memory.NewAuthStore(), "masterKey"),
			Updates: orch,
			Dispatcher: services.NewDispatcher(
				domain.DispatcherConfig{Burst: 1, PollInterval: 10 * time.Millisecond},
				tasks, content, services.NewValidatingExecutor()),
			Metrics: registry,
			Close:   func() error { return nil },
		},
	}

	previous := bootstrapper
	SetBootstrapper(b)
	t.Cleanup(func() { SetBootstrapper(previous) })
	return b
}

// executeCommand runs the root command with args and returns its output.
// Flags are reset afterwards so tests do not leak state.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeCommandWithInput(t, nil, args...)
}

func executeCommandWithInput(t *testing.T, in io.Reader, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(in)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := Execute()
	return buf.String(), err
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}
