package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"wam-go/internal/fs"
	"wam-go/internal/wam"
)

// compressedSuffix marks account export files written with zstd.
const compressedSuffix = ".zst"

// Accounts returns every stored account.
func (a *WAMApp) Accounts() []wam.Account {
	return a.accounts.List()
}

// Account looks an account up by id, or by email ignoring case.
func (a *WAMApp) Account(ref string) (wam.Account, error) {
	if acct, ok := a.accounts.Get(ref); ok {
		return acct, nil
	}
	for _, acct := range a.accounts.List() {
		if strings.EqualFold(acct.Email, ref) {
			return acct, nil
		}
	}
	return wam.Account{}, fmt.Errorf("account %s: %w", ref, wam.ErrNotFound)
}

// AddAccount stores a new account.
func (a *WAMApp) AddAccount(email, credential, note string) (wam.Account, error) {
	if err := a.record(email); err != nil {
		return wam.Account{}, err
	}
	acct, err := a.accounts.Add(email, credential, note)
	return acct, a.cmd.Fail(err)
}

// SetNote replaces the account's note.
func (a *WAMApp) SetNote(ref, note string) error {
	acct, err := a.Account(ref)
	if err != nil {
		return err
	}
	if err := a.record(acct.Email); err != nil {
		return err
	}
	acct.Note = note
	return a.cmd.Fail(a.accounts.Update(acct))
}

// RemoveAccount deletes the account. With purge its snapshot and local
// backups are deleted too.
func (a *WAMApp) RemoveAccount(ref string, purge bool) error {
	acct, err := a.Account(ref)
	if err != nil {
		return err
	}
	if err := a.record(acct.Email); err != nil {
		return err
	}
	if err := a.accounts.Delete(acct.ID); err != nil {
		return a.cmd.Fail(err)
	}
	if !purge {
		return nil
	}
	if err := a.snaps.Delete(acct.ID); err != nil {
		return a.cmd.Fail(fmt.Errorf("deleting snapshot: %w", err))
	}
	if err := a.archive.DeleteAccount(acct.ID); err != nil {
		return a.cmd.Fail(fmt.Errorf("deleting backups: %w", err))
	}
	return nil
}

// Login signs the account in and stores the refreshed plan and usage
// details.
func (a *WAMApp) Login(ctx context.Context, ref string) (wam.Account, error) {
	acct, err := a.Account(ref)
	if err != nil {
		return wam.Account{}, err
	}
	if err := a.record(acct.Email); err != nil {
		return wam.Account{}, err
	}
	updated, err := a.login.Login(ctx, acct)
	if err != nil {
		return acct, a.cmd.Fail(fmt.Errorf("logging in %s: %w", acct.Email, err))
	}
	if err := a.accounts.Update(updated); err != nil {
		return acct, a.cmd.Fail(err)
	}
	return updated, nil
}

// ImportAccounts adds the accounts stored in path, skipping emails that are
// already registered. Files ending in .zst are zstd-compressed.
func (a *WAMApp) ImportAccounts(path string) (int, error) {
	if err := a.record(path); err != nil {
		return 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, a.cmd.Fail(fmt.Errorf("opening %s: %w", path, err))
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, compressedSuffix) {
		zr, err := zstd.NewReader(f)
		if err != nil {
			return 0, a.cmd.Fail(fmt.Errorf("could not create zstd reader: %w", err))
		}
		defer zr.Close()
		r = zr
	}

	n, err := a.accounts.Import(r)
	return n, a.cmd.Fail(err)
}

// ExportAccounts writes every account to path, zstd-compressed when path
// ends in .zst. The file holds credentials, so it is readable by the owner
// only.
func (a *WAMApp) ExportAccounts(path string) error {
	var buf bytes.Buffer
	if strings.HasSuffix(path, compressedSuffix) {
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			return fmt.Errorf("could not create zstd writer: %w", err)
		}
		if err := a.accounts.Export(zw); err != nil {
			zw.Close()
			return err
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("finishing zstd stream: %w", err)
		}
	} else if err := a.accounts.Export(&buf); err != nil {
		return err
	}

	if err := fs.WriteFileAtomic(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	a.logger.Info("accounts exported", "path", path)
	return nil
}
