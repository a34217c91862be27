package app

import (
	"context"
	"errors"

	"wam-go/internal/wam"
)

// PushBackups uploads the account's local backups, or every account's when
// ref is empty, and returns how many were pushed.
func (a *WAMApp) PushBackups(ctx context.Context, ref string) (int, error) {
	if err := a.requireMirror(); err != nil {
		return 0, err
	}
	backups, err := a.Backups(ref)
	if err != nil {
		return 0, err
	}
	if err := a.record(ref); err != nil {
		return 0, err
	}
	n, err := a.mirror.PushAll(ctx, backups)
	return n, a.cmd.Fail(err)
}

// RemoteBackups lists the bundle keys in the vault for the account, or for
// every account when ref is empty.
func (a *WAMApp) RemoteBackups(ref string) ([]string, error) {
	if err := a.requireMirror(); err != nil {
		return nil, err
	}
	accountID := ""
	if ref != "" {
		acct, err := a.Account(ref)
		if err != nil {
			return nil, err
		}
		accountID = acct.ID
	}
	return a.mirror.ListRemote(accountID)
}

// NeedsPassphrase reports whether pulling key requires unlocking the
// private key.
func (a *WAMApp) NeedsPassphrase(key string) bool {
	_, _, encrypted, err := wam.ParseBundleKey(key)
	return err == nil && encrypted
}

// PullBackup downloads the bundle stored under key into the local archive.
// passphrase unlocks the private key for encrypted bundles and is ignored
// otherwise.
func (a *WAMApp) PullBackup(key, passphrase string) (*wam.Backup, error) {
	if err := a.requireMirror(); err != nil {
		return nil, err
	}
	if err := a.record(key); err != nil {
		return nil, err
	}

	var dec wam.DecryptionContext
	if a.NeedsPassphrase(key) {
		if a.encryptor == nil {
			return nil, a.cmd.Fail(errors.New("bundle is encrypted but encryption is disabled in the config"))
		}
		var err error
		if dec, err = a.encryptor.Unlock(passphrase); err != nil {
			return nil, a.cmd.Fail(err)
		}
	}

	b, err := a.mirror.Pull(key, dec)
	return b, a.cmd.Fail(err)
}

// DeleteRemote removes one bundle from the vault.
func (a *WAMApp) DeleteRemote(key string) error {
	if err := a.requireMirror(); err != nil {
		return err
	}
	if err := a.record(key); err != nil {
		return err
	}
	return a.cmd.Fail(a.mirror.DeleteRemote(key))
}

// KeysConfigured reports whether the encryption key pair exists. It is
// always true when encryption is disabled.
func (a *WAMApp) KeysConfigured() bool {
	return a.encryptor == nil || a.encryptor.IsConfigured()
}

// SetupKeys generates the key pair used to encrypt mirrored bundles and
// returns the public recipient when the encryptor exposes one.
func (a *WAMApp) SetupKeys(passphrase string) (string, error) {
	if a.encryptor == nil {
		return "", errors.New("encryption is disabled in the config")
	}
	if err := a.record(""); err != nil {
		return "", err
	}
	if err := a.encryptor.Setup(passphrase); err != nil {
		return "", a.cmd.Fail(err)
	}
	if r, ok := a.encryptor.(interface{ Recipient() (string, error) }); ok {
		return r.Recipient()
	}
	return "", nil
}
