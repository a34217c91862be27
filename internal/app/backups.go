package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"wam-go/internal/wam"
)

// Snapshots returns every stored snapshot, newest first.
func (a *WAMApp) Snapshots() []wam.Snapshot {
	return a.snaps.List()
}

// CreateSnapshot captures sourceDir, or the default directory when empty,
// as the account's snapshot and marks the account as having one.
func (a *WAMApp) CreateSnapshot(ref, sourceDir, name string) (*wam.Snapshot, error) {
	acct, err := a.Account(ref)
	if err != nil {
		return nil, err
	}
	if err := a.record(acct.Email); err != nil {
		return nil, err
	}
	snap, err := a.snaps.Create(acct.ID, sourceDir, name)
	if err != nil {
		return nil, a.cmd.Fail(err)
	}
	createdAt := snap.CreatedAt
	if err := a.accounts.MarkSnapshot(acct.ID, &createdAt); err != nil {
		return snap, a.cmd.Fail(fmt.Errorf("recording snapshot: %w", err))
	}
	return snap, nil
}

// RestoreSnapshot copies the account's snapshot into targetDir, or the
// default directory when empty, and returns the safety copy's path.
func (a *WAMApp) RestoreSnapshot(ref, targetDir string) (string, error) {
	acct, err := a.Account(ref)
	if err != nil {
		return "", err
	}
	if err := a.record(acct.Email); err != nil {
		return "", err
	}
	safety, err := a.snaps.Restore(acct.ID, targetDir)
	return safety, a.cmd.Fail(err)
}

// DeleteSnapshot removes the account's snapshot and clears its flag.
func (a *WAMApp) DeleteSnapshot(ref string) error {
	acct, err := a.Account(ref)
	if err != nil {
		return err
	}
	if err := a.record(acct.Email); err != nil {
		return err
	}
	if err := a.snaps.Delete(acct.ID); err != nil {
		return a.cmd.Fail(err)
	}
	return a.cmd.Fail(a.accounts.MarkSnapshot(acct.ID, nil))
}

// CreateBackup backs up the active directory for one account.
func (a *WAMApp) CreateBackup(ref string) (*wam.Backup, error) {
	acct, err := a.Account(ref)
	if err != nil {
		return nil, err
	}
	if err := a.record(acct.Email); err != nil {
		return nil, err
	}
	b, err := a.archive.Create(acct.ID, acct.Email)
	return b, a.cmd.Fail(err)
}

// BackupNow backs up the active directory for every account and returns how
// many backups succeeded. It fails when any account could not be backed up.
func (a *WAMApp) BackupNow() (int, error) {
	if err := a.record(""); err != nil {
		return 0, err
	}
	if _, err := a.activeDir(); err != nil {
		return 0, a.cmd.Fail(err)
	}
	accounts := a.accounts.List()
	n := a.archive.BackupAccounts(accounts)
	if n < len(accounts) {
		return n, a.cmd.Fail(fmt.Errorf("%d of %d backups failed, see %s", len(accounts)-n, len(accounts), LogFileName))
	}
	return n, nil
}

// Backups lists the account's backups, or every account's when ref is
// empty, newest first.
func (a *WAMApp) Backups(ref string) ([]wam.Backup, error) {
	if ref == "" {
		return a.archive.ListAll(), nil
	}
	acct, err := a.Account(ref)
	if err != nil {
		return nil, err
	}
	return a.archive.List(acct.ID), nil
}

// findBackup resolves "<account>/<name>" or a composite backup id as shown
// by Backups.
func (a *WAMApp) findBackup(ref string) (wam.Backup, error) {
	if acctRef, name, ok := strings.Cut(ref, "/"); ok {
		acct, err := a.Account(acctRef)
		if err != nil {
			return wam.Backup{}, err
		}
		b, err := a.archive.Get(acct.ID, name)
		if err != nil {
			return wam.Backup{}, err
		}
		return *b, nil
	}
	for _, b := range a.archive.ListAll() {
		if b.ID() == ref || b.Name == ref {
			return b, nil
		}
	}
	return wam.Backup{}, fmt.Errorf("backup %s: %w", ref, wam.ErrNotFound)
}

// RestoreBackup restores the referenced backup into the active directory
// and returns the safety copy's path.
func (a *WAMApp) RestoreBackup(ref string) (string, error) {
	if err := a.record(ref); err != nil {
		return "", err
	}
	b, err := a.findBackup(ref)
	if err != nil {
		return "", a.cmd.Fail(err)
	}
	safety, err := a.archive.Restore(b.AccountID, b.Name)
	return safety, a.cmd.Fail(err)
}

// DeleteBackup removes the referenced local backup.
func (a *WAMApp) DeleteBackup(ref string) error {
	if err := a.record(ref); err != nil {
		return err
	}
	b, err := a.findBackup(ref)
	if err != nil {
		return a.cmd.Fail(err)
	}
	return a.cmd.Fail(a.archive.Delete(b.AccountID, b.Name))
}

// AutoBackup returns the automatic backup settings and when the next run is
// due. due is false when automatic backups are disabled.
func (a *WAMApp) AutoBackup() (settings wam.AutoBackupConfig, next time.Time, due bool) {
	next, due = a.archive.NextDue()
	return a.archive.Settings(), next, due
}

// AutoBackupUpdate carries the settings to change; nil fields are left as
// they are.
type AutoBackupUpdate struct {
	Enabled       *bool
	IntervalHours *int
	MaxBackups    *int
}

func (u AutoBackupUpdate) String() string {
	var parts []string
	if u.Enabled != nil {
		parts = append(parts, fmt.Sprintf("enabled=%t", *u.Enabled))
	}
	if u.IntervalHours != nil {
		parts = append(parts, fmt.Sprintf("interval=%dh", *u.IntervalHours))
	}
	if u.MaxBackups != nil {
		parts = append(parts, fmt.Sprintf("max=%d", *u.MaxBackups))
	}
	return strings.Join(parts, " ")
}

// UpdateAutoBackup persists the changed settings.
func (a *WAMApp) UpdateAutoBackup(u AutoBackupUpdate) error {
	if err := a.record(u.String()); err != nil {
		return err
	}
	if u.IntervalHours != nil {
		if err := a.archive.SetInterval(*u.IntervalHours); err != nil {
			return a.cmd.Fail(err)
		}
	}
	if u.MaxBackups != nil {
		if err := a.archive.SetMaxBackups(*u.MaxBackups); err != nil {
			return a.cmd.Fail(err)
		}
	}
	if u.Enabled != nil {
		if err := a.archive.SetEnabled(*u.Enabled); err != nil {
			return a.cmd.Fail(err)
		}
	}
	return nil
}

// RunDaemon runs the automatic backup scheduler until ctx is done, then
// stops it, waiting a bounded time for an in-flight cycle.
func (a *WAMApp) RunDaemon(ctx context.Context) error {
	if err := a.record(""); err != nil {
		return err
	}
	if !a.scheduler.StartIfEnabled() {
		return a.cmd.Fail(errors.New("automatic backups are disabled: enable them with `wam backup auto --enable`"))
	}
	a.logger.Info("backup daemon running", "interval_hours", a.archive.Settings().IntervalHours)
	<-ctx.Done()
	return a.cmd.Fail(a.scheduler.Stop())
}
