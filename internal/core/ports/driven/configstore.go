package driven

import "github.com/custodia-labs/sercha-server/internal/core/domain"

// ConfigStore loads and persists the server configuration.
// Implementations handle the file format and fill unset values from
// domain.DefaultServerConfig.
type ConfigStore interface {
	// Load reads the configuration. A missing file yields the defaults.
	Load() (*domain.ServerConfig, error)

	// Save persists the configuration.
	Save(cfg *domain.ServerConfig) error

	// Path returns the configuration file path.
	Path() string
}
