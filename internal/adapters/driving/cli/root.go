// Package cli provides the sercha-server command tree.
package cli

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-server/internal/core/domain"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-server/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-server/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// annotationNoServices marks commands that run without opening storage.
const annotationNoServices = "sercha.no-services"

// Services are the driving ports the commands call.
type Services struct {
	Keys       driving.KeyService
	Updates    driving.UpdateService
	Dispatcher driving.Dispatcher
	Metrics    prometheus.Gatherer

	// Close releases every storage environment.
	Close func() error
}

// Bootstrapper builds the configuration store and the services.
type Bootstrapper interface {
	// ConfigStore opens the configuration store in configDir.
	ConfigStore(configDir string) (driven.ConfigStore, error)

	// Open builds the services over the storage named by cfg.
	Open(cfg *domain.ServerConfig) (*Services, error)
}

var (
	configDir string
	dataDir   string
	masterKey string
	verbose   bool
)

var (
	bootstrapper Bootstrapper
	configStore  driven.ConfigStore
	serverConfig *domain.ServerConfig

	keyService    driving.KeyService
	updateService driving.UpdateService
	dispatcher    driving.Dispatcher
	metrics       prometheus.Gatherer
	closeServices func() error
)

var rootCmd = &cobra.Command{
	Use:   "sercha-server",
	Short: "Control plane storage for the sercha search server",
	Long: `sercha-server manages API keys, the durable task queue and staged
document content for a multi-tenant search server.`,
	SilenceUsage:       true,
	PersistentPreRunE:  openServices,
	PersistentPostRunE: closeAll,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.sercha)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides db_path)")
	rootCmd.PersistentFlags().StringVar(&masterKey, "master-key", "", "master key (overrides master_key)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetBootstrapper configures how commands reach storage.
func SetBootstrapper(b Bootstrapper) {
	bootstrapper = b
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Storage is closed even when the command
// fails, since cobra skips post-run hooks after an error.
func Execute() error {
	err := rootCmd.Execute()
	if cerr := closeAll(rootCmd, nil); err == nil {
		err = cerr
	}
	return err
}

// openServices loads the configuration, applies flag overrides and opens
// the services unless the command runs without storage.
func openServices(cmd *cobra.Command, _ []string) error {
	if bootstrapper == nil {
		return errors.New("bootstrapper not configured")
	}

	store, err := bootstrapper.ConfigStore(configDir)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	cfg, err := store.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dataDir != "" {
		cfg.DBPath = dataDir
	}
	if masterKey != "" {
		cfg.MasterKey = masterKey
	}
	configStore = store
	serverConfig = cfg

	if err := applyLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	if cmd.Annotations[annotationNoServices] != "" {
		return nil
	}

	svc, err := bootstrapper.Open(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	keyService = svc.Keys
	updateService = svc.Updates
	dispatcher = svc.Dispatcher
	metrics = svc.Metrics
	closeServices = svc.Close
	return nil
}

func applyLogLevel(name string) error {
	if verbose {
		logger.SetVerbose(true)
		return nil
	}
	if name == "" {
		return nil
	}
	level, err := logger.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)
	return nil
}

func closeAll(_ *cobra.Command, _ []string) error {
	closeFn := closeServices
	keyService, updateService, dispatcher, metrics, closeServices = nil, nil, nil, nil, nil
	if closeFn == nil {
		return nil
	}
	if err := closeFn(); err != nil {
		return fmt.Errorf("failed to close storage: %w", err)
	}
	return nil
}
