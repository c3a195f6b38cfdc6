package pebblekv

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
)

// AuthSubdir is the subpath of the data directory holding the auth env.
const AuthSubdir = "auth"

// ErrEnvClosed is returned when acquiring an Env that has been closed.
var ErrEnvClosed = errors.New("pebble env closed")

// EnvOptions pre-sizes the environment at open time.
type EnvOptions struct {
	// CacheSize is the block cache size in bytes.
	CacheSize int64

	// MemTableSize is the size of a single memtable in bytes.
	MemTableSize uint64
}

// DefaultEnvOptions returns the sizing used when none is configured.
func DefaultEnvOptions() EnvOptions {
	return EnvOptions{
		CacheSize:    64 << 20,
		MemTableSize: 16 << 20,
	}
}

// Env is a reference-counted handle on one pebble database.
// The opener holds the first reference; every store built on the Env
// acquires its own and releases it on Close. The database closes when the
// last reference is released.
type Env struct {
	db   *pebble.DB
	path string

	// writeMu allows one active writer per environment.
	writeMu sync.Mutex

	mu   sync.Mutex
	refs int
}

// OpenEnv opens or creates the environment in dir.
func OpenEnv(dir string, opts EnvOptions) (*Env, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating env directory: %w", err)
	}

	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	db, err := pebble.Open(dir, &pebble.Options{
		Cache:        cache,
		MemTableSize: opts.MemTableSize,
	})
	if err != nil {
		return nil, fmt.Errorf("opening pebble env: %w", err)
	}

	return &Env{db: db, path: dir, refs: 1}, nil
}

// OpenAuthEnv opens the auth environment under the data directory.
func OpenAuthEnv(dataDir string, opts EnvOptions) (*Env, error) {
	return OpenEnv(filepath.Join(dataDir, AuthSubdir), opts)
}

// Path returns the environment directory.
func (e *Env) Path() string {
	return e.path
}

// acquire takes an additional reference.
func (e *Env) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.refs == 0 {
		return ErrEnvClosed
	}
	e.refs++
	return nil
}

// Close releases one reference, closing the database with the last one.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.refs == 0 {
		return nil
	}
	e.refs--
	if e.refs > 0 {
		return nil
	}
	return e.db.Close()
}
