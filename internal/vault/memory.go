package vault

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"wam-go/internal/wam"
)

// MemoryVault is an in-memory implementation of the Vault interface.
// It stores every bundle in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name    string
	bundles map[string][]byte // key -> bundle bytes
	mu      sync.RWMutex
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:    name,
		bundles: make(map[string][]byte),
	}
}

// PutBundle stores a bundle under key, replacing any previous one.
func (m *MemoryVault) PutBundle(key string, r io.Reader, size int64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}

	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.bundles[key] = data
	return nil
}

// GetBundle writes the bundle stored under key to w.
func (m *MemoryVault) GetBundle(key string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.bundles[key]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("bundle %s: %w", key, wam.ErrNotFound)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write bundle: %w", err)
	}

	return nil
}

// ListBundles returns the sorted keys starting with prefix.
func (m *MemoryVault) ListBundles(prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []string
	for k := range m.bundles {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// DeleteBundle removes key if present.
func (m *MemoryVault) DeleteBundle(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.bundles, key)
	return nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

// Compile-time check that MemoryVault implements wam.Vault interface
var _ wam.Vault = (*MemoryVault)(nil)
