package wam

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"wam-go/internal/bundle"
	"wam-go/internal/fs"
)

const (
	encryptedSuffix = ".age"
	pushConcurrency = 4
)

// Mirror copies backups to and from a Vault as single bundles. When an
// Encryptor is configured every bundle is encrypted before upload.
type Mirror struct {
	vault   Vault
	enc     Encryptor
	archive *BackupArchive
	logger  Logger
}

// NewMirror creates a Mirror. enc may be nil to upload plaintext bundles.
func NewMirror(vault Vault, enc Encryptor, archive *BackupArchive, logger Logger) *Mirror {
	return &Mirror{vault: vault, enc: enc, archive: archive, logger: logger}
}

// BundleKey returns the vault key for a backup.
func BundleKey(accountID, name string, encrypted bool) string {
	key := accountID + "/" + name + bundle.Extension
	if encrypted {
		key += encryptedSuffix
	}
	return key
}

// ParseBundleKey splits a vault key back into account id and backup name.
func ParseBundleKey(key string) (accountID, name string, encrypted bool, err error) {
	encrypted = strings.HasSuffix(key, encryptedSuffix)
	base := strings.TrimSuffix(key, encryptedSuffix)
	if !strings.HasSuffix(base, bundle.Extension) {
		return "", "", false, fmt.Errorf("%w: not a bundle key: %s", ErrInvalidPath, key)
	}
	base = strings.TrimSuffix(base, bundle.Extension)
	accountID, name = path.Dir(base), path.Base(base)
	if err := checkSlotName("account id", accountID); err != nil {
		return "", "", false, err
	}
	if err := checkSlotName("backup name", name); err != nil {
		return "", "", false, err
	}
	return accountID, name, encrypted, nil
}

// BackupCreated uploads a freshly created backup. Failures are logged and
// never affect the local backup.
func (m *Mirror) BackupCreated(b Backup) {
	key, err := m.Push(b)
	if err != nil {
		m.logger.Warn("mirroring backup failed", "account", b.AccountID, "backup", b.Name, "error", err)
		return
	}
	m.logger.Info("backup mirrored", "key", key)
}

// Push packs the backup, encrypts it if configured and uploads it. It
// returns the vault key.
func (m *Mirror) Push(b Backup) (string, error) {
	tmp, err := os.CreateTemp("", "wam-bundle-*")
	if err != nil {
		return "", fmt.Errorf("creating temp bundle: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if m.enc == nil {
		err = bundle.Pack(b.Path, tmp)
	} else {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(bundle.Pack(b.Path, pw))
		}()
		err = m.enc.Encrypt(pr, tmp)
		pr.Close()
	}
	if err != nil {
		return "", fmt.Errorf("bundling %s: %w", b.Name, err)
	}

	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return "", fmt.Errorf("sizing bundle: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding bundle: %w", err)
	}

	key := BundleKey(b.AccountID, b.Name, m.enc != nil)
	if err := m.vault.PutBundle(key, tmp, size); err != nil {
		return "", fmt.Errorf("uploading %s: %w", key, err)
	}
	return key, nil
}

// PushAll uploads backups concurrently and returns how many succeeded.
// The first failure cancels the uploads that have not started yet.
func (m *Mirror) PushAll(ctx context.Context, backups []Backup) (int, error) {
	var pushed atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(pushConcurrency)

	for _, b := range backups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := m.Push(b); err != nil {
				return err
			}
			pushed.Add(1)
			return nil
		})
	}
	err := g.Wait()
	return int(pushed.Load()), err
}

// ListRemote returns the bundle keys stored for accountID, or for every
// account when accountID is empty.
func (m *Mirror) ListRemote(accountID string) ([]string, error) {
	prefix := ""
	if accountID != "" {
		prefix = accountID + "/"
	}
	return m.vault.ListBundles(prefix)
}

// DeleteRemote removes one bundle from the vault.
func (m *Mirror) DeleteRemote(key string) error {
	if _, _, _, err := ParseBundleKey(key); err != nil {
		return err
	}
	return m.vault.DeleteBundle(key)
}

// Pull downloads the bundle stored under key into the local archive. dec is
// required for encrypted bundles. A backup that already exists locally is
// left alone and reported as ErrAlreadyExists.
func (m *Mirror) Pull(key string, dec DecryptionContext) (*Backup, error) {
	accountID, name, encrypted, err := ParseBundleKey(key)
	if err != nil {
		return nil, err
	}
	if encrypted && dec == nil {
		return nil, fmt.Errorf("bundle %s is encrypted: unlock the private key first", key)
	}

	slot, err := m.archive.Path(accountID, name)
	if err != nil {
		return nil, err
	}
	if fs.Exists(slot) {
		return nil, fmt.Errorf("backup %s/%s: %w", accountID, name, ErrAlreadyExists)
	}

	tmp, err := os.CreateTemp("", "wam-bundle-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp bundle: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := m.vault.GetBundle(key, tmp); err != nil {
		return nil, fmt.Errorf("downloading %s: %w", key, err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding bundle: %w", err)
	}

	parent := filepath.Dir(slot)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, ioFailure("creating "+parent, err)
	}
	staging, err := os.MkdirTemp(parent, "."+name+".staging-")
	if err != nil {
		return nil, ioFailure("creating staging directory", err)
	}
	defer os.RemoveAll(staging)

	if encrypted {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(dec.Decrypt(tmp, pw))
		}()
		err = bundle.Unpack(pr, staging)
		pr.Close()
	} else {
		err = bundle.Unpack(tmp, staging)
	}
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", key, err)
	}
	if _, err := readJSONFile[Backup](filepath.Join(staging, metadataFile)); err != nil {
		return nil, fmt.Errorf("bundle %s holds no readable backup metadata: %w", key, err)
	}

	if err := os.Rename(staging, slot); err != nil {
		return nil, ioFailure("moving "+slot+" into place", err)
	}
	m.logger.Info("backup pulled", "key", key, "path", slot)
	return m.archive.Get(accountID, name)
}
