package wam

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const autoBackupConfigFile = "auto_backup_config.json"

// ActiveDirectory supplies the configuration directory backups read from
// and restore into.
type ActiveDirectory interface {
	Active() (string, bool)
}

// AccountSource lists the accounts the scheduler backs up.
type AccountSource interface {
	List() []Account
}

// BackupHook is notified after a backup has been written and pruned.
// Hooks must not fail the backup; they log their own errors.
type BackupHook interface {
	BackupCreated(b Backup)
}

// BackupArchive keeps a bounded history of timestamped backups per account
// under <root>/<accountID>/<email>_<YYYYmmdd_HHMMSS>/ and owns the
// automatic backup settings stored in <root>/auto_backup_config.json.
type BackupArchive struct {
	root     string
	cfgPath  string
	active   ActiveDirectory
	accounts AccountSource
	copier   *Copier
	clock    Clock
	logger   Logger
	osType   OSType
	hooks    []BackupHook
	remove   func(path string) error

	mu  sync.Mutex
	cfg AutoBackupConfig
}

// NewBackupArchive creates an archive rooted at root and loads its settings.
// defaults seeds the settings when no settings file exists yet.
func NewBackupArchive(root string, active ActiveDirectory, accounts AccountSource, copier *Copier, defaults AutoBackupConfig, clock Clock, logger Logger) (*BackupArchive, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, ioFailure("creating backup root", err)
	}
	a := &BackupArchive{
		root:     root,
		cfgPath:  filepath.Join(root, autoBackupConfigFile),
		active:   active,
		accounts: accounts,
		copier:   copier,
		clock:    clock,
		logger:   logger,
		osType:   CurrentOS(),
		remove:   os.RemoveAll,
		cfg:      normalizeAutoBackup(defaults),
	}
	a.loadConfig()
	return a, nil
}

// AddHook registers h to run after every successful Create.
func (a *BackupArchive) AddHook(h BackupHook) {
	a.hooks = append(a.hooks, h)
}

// Root returns the archive root directory.
func (a *BackupArchive) Root() string {
	return a.root
}

func normalizeAutoBackup(c AutoBackupConfig) AutoBackupConfig {
	c.IntervalHours = max(c.IntervalHours, 1)
	c.MaxBackups = max(c.MaxBackups, 1)
	return c
}

func (a *BackupArchive) loadConfig() {
	cfg, err := readJSONFile[AutoBackupConfig](a.cfgPath)
	switch {
	case err == nil:
		a.cfg = normalizeAutoBackup(cfg)
	case isNotExist(err):
		if err := writeJSONFile(a.cfgPath, a.cfg); err != nil {
			a.logger.Warn("saving default auto-backup settings failed", "error", err)
		}
	case errors.Is(err, ErrConfigCorrupt):
		a.logger.Warn("auto-backup settings corrupt, using defaults", "path", a.cfgPath, "error", err)
		quarantine(a.cfgPath, a.clock, a.logger)
	default:
		a.logger.Warn("reading auto-backup settings failed, using defaults", "path", a.cfgPath, "error", err)
	}
}

// updateConfig applies fn to a copy of the settings, persists the result and
// only then publishes it.
func (a *BackupArchive) updateConfig(fn func(*AutoBackupConfig)) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	next := a.cfg
	fn(&next)
	next = normalizeAutoBackup(next)
	if err := writeJSONFile(a.cfgPath, next); err != nil {
		return fmt.Errorf("saving auto-backup settings: %w", err)
	}
	a.cfg = next
	return nil
}

// Settings returns a copy of the current automatic backup settings.
func (a *BackupArchive) Settings() AutoBackupConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	cfg := a.cfg
	if cfg.LastBackupTime != nil {
		t := *cfg.LastBackupTime
		cfg.LastBackupTime = &t
	}
	return cfg
}

// SetEnabled persists the enabled flag. Starting or stopping a running
// scheduler is the Scheduler's job.
func (a *BackupArchive) SetEnabled(enabled bool) error {
	return a.updateConfig(func(c *AutoBackupConfig) { c.Enabled = enabled })
}

// SetInterval sets the hours between automatic backups, clamped to at least 1.
func (a *BackupArchive) SetInterval(hours int) error {
	return a.updateConfig(func(c *AutoBackupConfig) { c.IntervalHours = hours })
}

// SetMaxBackups sets how many backups are kept per account, clamped to at
// least 1. Existing surplus backups are removed on the account's next backup.
func (a *BackupArchive) SetMaxBackups(n int) error {
	return a.updateConfig(func(c *AutoBackupConfig) { c.MaxBackups = n })
}

// Due reports whether automatic backups are enabled and the interval has
// elapsed since the last backup. Never having backed up counts as due.
func (a *BackupArchive) Due(now time.Time) bool {
	cfg := a.Settings()
	if !cfg.Enabled {
		return false
	}
	if cfg.LastBackupTime == nil {
		return true
	}
	return now.Sub(*cfg.LastBackupTime) >= cfg.Interval()
}

// NextDue returns when the next automatic backup falls due. ok is false when
// automatic backups are disabled.
func (a *BackupArchive) NextDue() (next time.Time, ok bool) {
	cfg := a.Settings()
	if !cfg.Enabled {
		return time.Time{}, false
	}
	if cfg.LastBackupTime == nil {
		return a.clock.Now(), true
	}
	return cfg.LastBackupTime.Add(cfg.Interval()), true
}

func (a *BackupArchive) accountDir(accountID string) (string, error) {
	if err := checkSlotName("account id", accountID); err != nil {
		return "", err
	}
	return filepath.Join(a.root, accountID), nil
}

// Create backs up the active configuration directory for the account,
// prunes the account down to MaxBackups and records the backup time.
func (a *BackupArchive) Create(accountID, email string) (*Backup, error) {
	src, ok := a.active.Active()
	if !ok {
		return nil, ErrNoActiveDirectory
	}
	dir, err := a.accountDir(accountID)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	name := email + "_" + now.Format("20060102_150405")
	if err := checkSlotName("backup name", name); err != nil {
		return nil, err
	}
	slot := filepath.Join(dir, name)

	b := &Backup{
		AccountID:    accountID,
		AccountEmail: email,
		CreatedAt:    now,
		ConfigPath:   src,
		OSType:       a.osType,
		Name:         name,
		Path:         slot,
	}
	if _, err := a.copier.capture(src, slot, func(files []string) any {
		b.Files = files
		return b
	}); err != nil {
		return nil, fmt.Errorf("backing up %s: %w", accountID, err)
	}
	a.logger.Info("backup created", "account", accountID, "backup", name, "files", len(b.Files))

	a.Prune(accountID)

	if err := a.updateConfig(func(c *AutoBackupConfig) { c.LastBackupTime = &now }); err != nil {
		a.logger.Warn("recording backup time failed", "error", err)
	}

	for _, h := range a.hooks {
		h.BackupCreated(*b)
	}
	return b, nil
}

// Restore copies the named backup into the active configuration directory
// and returns the path of the safety copy taken first.
func (a *BackupArchive) Restore(accountID, name string) (string, error) {
	target, ok := a.active.Active()
	if !ok {
		return "", ErrNoActiveDirectory
	}
	slot, err := a.slot(accountID, name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(slot); err != nil {
		if isNotExist(err) {
			return "", fmt.Errorf("backup %s/%s: %w", accountID, name, ErrNotFound)
		}
		return "", ioFailure("stat "+slot, err)
	}

	safety, err := a.copier.restore(slot, target, "auto_backup")
	if err != nil {
		return safety, fmt.Errorf("restoring backup %s/%s: %w", accountID, name, err)
	}
	a.logger.Info("backup restored", "account", accountID, "backup", name, "target", target, "safety_copy", safety)
	return safety, nil
}

func (a *BackupArchive) slot(accountID, name string) (string, error) {
	dir, err := a.accountDir(accountID)
	if err != nil {
		return "", err
	}
	if err := checkSlotName("backup name", name); err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// Path returns where the named backup lives, whether or not it exists.
func (a *BackupArchive) Path(accountID, name string) (string, error) {
	return a.slot(accountID, name)
}

// Get returns the named backup's metadata.
func (a *BackupArchive) Get(accountID, name string) (*Backup, error) {
	slot, err := a.slot(accountID, name)
	if err != nil {
		return nil, err
	}
	b, err := readJSONFile[Backup](filepath.Join(slot, metadataFile))
	if err != nil {
		if isNotExist(err) {
			return nil, fmt.Errorf("backup %s/%s: %w", accountID, name, ErrNotFound)
		}
		return nil, err
	}
	b.Name = name
	b.Path = slot
	return &b, nil
}

// List returns the account's readable backups, newest first. Entries whose
// metadata cannot be read are logged and skipped.
func (a *BackupArchive) List(accountID string) []Backup {
	dir, err := a.accountDir(accountID)
	if err != nil {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !isNotExist(err) {
			a.logger.Warn("listing backups failed", "account", accountID, "error", err)
		}
		return nil
	}

	var backups []Backup
	for _, e := range entries {
		if !e.IsDir() || isStagingEntry(e.Name()) {
			continue
		}
		b, err := a.Get(accountID, e.Name())
		if err != nil {
			a.logger.Warn("skipping unreadable backup", "account", accountID, "backup", e.Name(), "error", err)
			continue
		}
		backups = append(backups, *b)
	}
	sortNewestFirst(backups)
	return backups
}

// ListAll returns the backups of every known account, newest first.
func (a *BackupArchive) ListAll() []Backup {
	var all []Backup
	for _, acct := range a.accounts.List() {
		all = append(all, a.List(acct.ID)...)
	}
	sortNewestFirst(all)
	return all
}

func sortNewestFirst(backups []Backup) {
	sort.SliceStable(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
}

// Prune deletes the account's backups beyond MaxBackups, oldest first, and
// returns how many were removed. Removal failures are logged.
func (a *BackupArchive) Prune(accountID string) int {
	keep := a.Settings().MaxBackups
	backups := a.List(accountID)
	if len(backups) <= keep {
		return 0
	}

	removed := 0
	for _, b := range backups[keep:] {
		if err := a.remove(b.Path); err != nil {
			a.logger.Warn("removing old backup failed", "account", accountID, "backup", b.Name, "error", err)
			continue
		}
		a.logger.Info("removed old backup", "account", accountID, "backup", b.Name)
		removed++
	}
	return removed
}

// Delete removes one backup. Deleting a missing backup succeeds.
func (a *BackupArchive) Delete(accountID, name string) error {
	slot, err := a.slot(accountID, name)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(slot); err != nil {
		return ioFailure("deleting backup "+name, err)
	}
	return nil
}

// DeleteAccount removes every backup belonging to the account.
func (a *BackupArchive) DeleteAccount(accountID string) error {
	dir, err := a.accountDir(accountID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return ioFailure("deleting backups of "+accountID, err)
	}
	return nil
}

// BackupAccounts backs up each account in turn and returns how many
// succeeded. Failures are logged and do not stop the remaining accounts.
func (a *BackupArchive) BackupAccounts(accounts []Account) int {
	ok := 0
	for _, acct := range accounts {
		if _, err := a.Create(acct.ID, acct.Email); err != nil {
			a.logger.Error("backup failed", "account", acct.ID, "email", acct.Email, "error", err)
			continue
		}
		ok++
	}
	return ok
}

// RunScheduled backs up every account that has a snapshot and returns how
// many backups were attempted and how many succeeded. The backup time is
// recorded whenever at least one backup was attempted.
func (a *BackupArchive) RunScheduled() (attempted, succeeded int) {
	var due []Account
	for _, acct := range a.accounts.List() {
		if acct.HasSnapshot {
			due = append(due, acct)
		}
	}
	if len(due) == 0 {
		return 0, 0
	}

	succeeded = a.BackupAccounts(due)
	now := a.clock.Now()
	if err := a.updateConfig(func(c *AutoBackupConfig) { c.LastBackupTime = &now }); err != nil {
		a.logger.Warn("recording backup time failed", "error", err)
	}
	return len(due), succeeded
}
