package wam

import "io"

// Vault stores backup bundles off the machine. Keys are slash-separated
// paths such as "<accountID>/<backupName>.tar.zst". All operations stream
// so large editor state databases never sit fully in memory.
type Vault interface {
	// PutBundle stores size bytes read from r under key, replacing any
	// existing bundle.
	PutBundle(key string, r io.Reader, size int64) error

	// GetBundle writes the bundle stored under key to w.
	GetBundle(key string, w io.Writer) error

	// ListBundles returns the keys that start with prefix, sorted.
	ListBundles(prefix string) ([]string, error)

	// DeleteBundle removes key. Deleting a missing key succeeds.
	DeleteBundle(key string) error

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
