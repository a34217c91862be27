package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"wam-go/internal/wam"
)

// FileSystemVault is a filesystem-based implementation of the Vault interface.
// Bundle keys map directly onto paths below the bundles directory:
//
//	<root>/
//	  bundles/
//	    <accountID>/
//	      <backupName>.tar.zst[.age]
type FileSystemVault struct {
	name       string
	root       string
	bundlesDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	bundlesDir := filepath.Join(root, "bundles")

	if err := os.MkdirAll(bundlesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bundles directory: %w", err)
	}

	return &FileSystemVault{
		name:       name,
		root:       root,
		bundlesDir: bundlesDir,
	}, nil
}

func (v *FileSystemVault) keyPath(key string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	return filepath.Join(v.bundlesDir, filepath.FromSlash(key)), nil
}

// PutBundle stores a bundle under key, replacing any previous one.
func (v *FileSystemVault) PutBundle(key string, r io.Reader, size int64) error {
	destPath, err := v.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("failed to create bundle directory: %w", err)
	}
	return v.writeFile(destPath, r, size)
}

// GetBundle writes the bundle stored under key to w.
func (v *FileSystemVault) GetBundle(key string, w io.Writer) error {
	srcPath, err := v.keyPath(key)
	if err != nil {
		return err
	}
	f, err := os.Open(srcPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("bundle %s: %w", key, wam.ErrNotFound)
		}
		return fmt.Errorf("failed to open bundle: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read bundle: %w", err)
	}
	return nil
}

// ListBundles returns the sorted keys starting with prefix. Leftover temp
// files from interrupted writes are not listed.
func (v *FileSystemVault) ListBundles(prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(v.bundlesDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(v.bundlesDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing bundles: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}

// DeleteBundle removes key. A missing key is not an error.
func (v *FileSystemVault) DeleteBundle(key string) error {
	p, err := v.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete bundle: %w", err)
	}
	// Drop the account directory once it is empty; failure just leaves it.
	dir := filepath.Dir(p)
	if dir != v.bundlesDir {
		os.Remove(dir)
	}
	return nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.bundlesDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes data from r to the specified path using atomic write (temp file + rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	// Create temp file in the same directory to ensure atomic rename works
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemVault implements wam.Vault interface
var _ wam.Vault = (*FileSystemVault)(nil)
