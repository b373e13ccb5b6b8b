// Package kvstore provides the key-value string store that holds the
// serialized clinic collections across restarts.
package kvstore

import "fmt"

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendFS     = "fs"
)

// Provider is a key-value store of string values.
type Provider interface {
	// Get returns the value stored under key. found is false when the key
	// has never been written or the store was cleared.
	Get(key string) (value string, found bool, err error)
	// SetAll writes every entry. Backends that can do so apply the whole
	// batch atomically.
	SetAll(entries map[string]string) error
	// Clear removes every key.
	Clear() error
	// Close releases the underlying resources.
	Close() error
}

// Open opens the store for the given backend at path.
func Open(backend, path string) (Provider, error) {
	switch backend {
	case BackendSQLite:
		return OpenSQLite(path)
	case BackendFS:
		return NewFS(path)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", backend)
	}
}
