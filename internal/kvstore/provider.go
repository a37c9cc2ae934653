// Package kvstore defines the persistent key-value blob storage port that
// backs per-profile state (the working draft and the local publish
// overlay). The core logic depends only on Provider so it is testable
// without touching the real filesystem.
package kvstore

// Provider is the interface for key-value blob storage.
type Provider interface {
	// Get returns the raw bytes stored under key. The error wraps
	// os.ErrNotExist when the key is absent.
	Get(key string) ([]byte, error)
	// Put atomically stores value under key.
	Put(key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error
}
