package domain

import (
	"runtime"
	"time"
)

// IngestConfig bounds the document addition pipeline.
type IngestConfig struct {
	// MaxPayloadSize is the largest accepted payload in bytes.
	MaxPayloadSize int64

	// ChunkTimeout bounds the wait for the next payload chunk.
	ChunkTimeout time.Duration

	// ChunkSize is the read buffer size used while draining a payload.
	ChunkSize int

	// DecodeWorkers is the number of decoder goroutines.
	DecodeWorkers int

	// QueueSize is the capacity of the decode job channel.
	QueueSize int
}

// DefaultIngestConfig returns sensible defaults for the ingestion pipeline.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		MaxPayloadSize: 100 << 20,
		ChunkTimeout:   30 * time.Second,
		ChunkSize:      64 << 10,
		DecodeWorkers:  runtime.NumCPU(),
		QueueSize:      runtime.NumCPU() * 2,
	}
}

// DispatcherConfig paces how fast the dispatcher claims tasks.
type DispatcherConfig struct {
	// Rate is the sustained number of claims per second.
	Rate float64

	// Burst is the maximum burst of claims.
	Burst int

	// PollInterval is how long to wait when the queue is empty.
	PollInterval time.Duration
}

// DefaultDispatcherConfig returns sensible defaults for the dispatcher.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Rate:         50,
		Burst:        10,
		PollInterval: time.Second,
	}
}

// AuthEnvConfig pre-sizes the auth storage environment.
type AuthEnvConfig struct {
	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// MemTableSize is the memtable size in bytes.
	MemTableSize uint64
}

// ServerConfig is the complete server configuration.
type ServerConfig struct {
	// DBPath is the data directory holding every storage environment.
	DBPath string

	// MasterKey is the secret credential strings are derived with. When
	// empty, credentials are derived from the key ID alone.
	MasterKey string

	// Auth sizes the auth environment.
	Auth AuthEnvConfig

	// TaskListLimit is the default page size when listing tasks.
	TaskListLimit int

	// Ingest bounds the document addition pipeline.
	Ingest IngestConfig

	// Dispatcher paces task execution.
	Dispatcher DispatcherConfig

	// LogLevel is the minimum log level name.
	LogLevel string
}

// DefaultServerConfig returns the configuration used when no file exists.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Auth: AuthEnvConfig{
			CacheSize:    64 << 20,
			MemTableSize: 16 << 20,
		},
		TaskListLimit: 20,
		Ingest:        DefaultIngestConfig(),
		Dispatcher:    DefaultDispatcherConfig(),
		LogLevel:      "info",
	}
}
