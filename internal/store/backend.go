package store

import (
	"github.com/pkg/errors"
)

// Backend is a key-value store holding raw bytes.
type Backend interface {
	// Get returns nil without error if the key does not exist.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	// Delete is a no-op if the key does not exist.
	Delete(key string) error
	Close() error
}

// OpenBackend opens the backend of the given driver at path.
func OpenBackend(driver, path string) (Backend, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteBackend(path)
	case "bolt":
		return NewBoltBackend(path)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, errors.Errorf("unknown store driver (%s)", driver)
	}
}
