// factory.go implements the storage backend registry and factory, mapping backend type
// strings (local, s3, azure, gcs) to constructor functions and dispatching New calls.
package storage

import (
	"fmt"

	"github.com/streamvault/streamvault/internal/config"
)

// Factory function type for creating storage backends
type FactoryFunc func(*config.Config) (Backend, error)

var factories = make(map[string]FactoryFunc)

// Register registers a storage backend factory
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// New creates the storage backend registered under name. Media items carry the
// backend name they were uploaded to, so name comes from the media row rather
// than from configuration alone.
func New(name string, cfg *config.Config) (Backend, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local', 'azure', 's3', or 'gcs')", name)
	}

	return factory(cfg)
}

// NewDefault creates the backend configured as the upload target for new media.
func NewDefault(cfg *config.Config) (Backend, error) {
	return New(cfg.Storage.DefaultBackend, cfg)
}
