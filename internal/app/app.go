package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"wam-go/internal/config"
	"wam-go/internal/database"
	"wam-go/internal/encryption"
	"wam-go/internal/login"
	"wam-go/internal/vault"
	"wam-go/internal/wam"
)

var errKeysMissing = errors.New("encryption keys are not set up: run `wam keys init`")

// Options overrides the collaborators NewWAMApp would otherwise create.
// The zero value uses the real clock, uuid account ids and a real sleeper.
type Options struct {
	Clock     wam.Clock
	IDs       wam.IDGenerator
	Sleeper   wam.Sleeper
	Scheduler wam.SchedulerOptions
	// Verbose sends info and debug records to stderr as well as the log file.
	Verbose bool
}

// WAMApp is the application layer between the CLI and the wam components.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw strings from the command line, records state-changing
// commands in the journal, and releases the journal and log file on Close.
type WAMApp struct {
	cfg       *config.Config
	clock     wam.Clock
	logger    wam.Logger
	journal   wam.Journal
	paths     *wam.PathRegistry
	accounts  *wam.AccountRegistry
	snaps     *wam.SnapshotStore
	archive   *wam.BackupArchive
	scheduler *wam.Scheduler
	vault     wam.Vault
	encryptor wam.Encryptor
	mirror    *wam.Mirror
	mirrorErr error
	login     *login.Client
	cmd       *Command
	logFile   *os.File
}

// NewWAMApp creates a fully wired WAMApp from the given config.
// command identifies the CLI command being run (e.g. "AddPath", "BackupNow").
// The caller must call Close when done.
func NewWAMApp(cfg *config.Config, command string, opts Options) (*WAMApp, error) {
	clock := opts.Clock
	if clock == nil {
		clock = wam.RealClock{}
	}
	ids := opts.IDs
	if ids == nil {
		ids = wam.UUIDGenerator{}
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = wam.RealSleeper{}
	}
	stderrLevel := slog.LevelWarn
	if opts.Verbose {
		stderrLevel = slog.LevelDebug
	}

	opID := clock.Now().UTC().Format("20060102T150405Z")
	sl, logFile, err := newLogger(cfg.LogDir, opID, stderrLevel)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	journal, err := database.NewJournalFromConfig(cfg.Database, clock)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	fail := func(err error) (*WAMApp, error) {
		journal.Close()
		logFile.Close()
		return nil, err
	}

	if err := journal.CheckMigrations(); err != nil {
		return fail(fmt.Errorf("journal schema out of date: %w", err))
	}

	candidates := cfg.Filesystem.Candidates
	if len(candidates) == 0 {
		candidates = wam.DefaultCandidateDirs()
	}
	paths := wam.NewPathRegistry(cfg.PathRegistryFile(), candidates, clock, logger)
	accounts := wam.NewAccountRegistry(cfg.AccountsFile(), ids, clock, logger)
	copier := wam.NewCopier(cfg.Filesystem.SafetyIgnore, clock, logger)

	snaps, err := wam.NewSnapshotStore(cfg.Backup.SnapshotDir, paths, copier, clock, logger)
	if err != nil {
		return fail(fmt.Errorf("creating snapshot store: %w", err))
	}

	defaults := wam.DefaultAutoBackupConfig()
	if cfg.Backup.IntervalHours > 0 {
		defaults.IntervalHours = cfg.Backup.IntervalHours
	}
	if cfg.Backup.MaxBackups > 0 {
		defaults.MaxBackups = cfg.Backup.MaxBackups
	}
	archive, err := wam.NewBackupArchive(cfg.Backup.ArchiveDir, paths, accounts, copier, defaults, clock, logger)
	if err != nil {
		return fail(fmt.Errorf("creating backup archive: %w", err))
	}

	v, err := vault.NewVaultFromConfig(cfg.Vault)
	if err != nil {
		return fail(fmt.Errorf("creating vault: %w", err))
	}
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fail(fmt.Errorf("creating encryptor: %w", err))
	}

	a := &WAMApp{
		cfg:       cfg,
		clock:     clock,
		logger:    logger,
		journal:   journal,
		paths:     paths,
		accounts:  accounts,
		snaps:     snaps,
		archive:   archive,
		scheduler: wam.NewScheduler(archive, clock, sleeper, logger, opts.Scheduler),
		vault:     v,
		encryptor: enc,
		login:     login.NewClient(cfg.Login, clock, logger),
		cmd:       NewCommand(command, ""),
		logFile:   logFile,
	}
	a.wireMirror()
	a.reconcileSnapshots()
	return a, nil
}

// wireMirror attaches the off-site mirror when a vault is configured. With
// encryption enabled but no keys yet, mirroring stays off until `wam keys
// init` has run.
func (a *WAMApp) wireMirror() {
	switch {
	case a.vault == nil:
		a.mirrorErr = errors.New("no vault configured: set [vault] type in the config file")
		return
	case a.encryptor == nil:
		a.mirror = wam.NewMirror(a.vault, nil, a.archive, a.logger)
	case a.encryptor.IsConfigured():
		a.mirror = wam.NewMirror(a.vault, a.encryptor, a.archive, a.logger)
	default:
		a.mirrorErr = errKeysMissing
		a.logger.Warn("vault configured but encryption keys missing, backups will not be mirrored")
		return
	}
	a.archive.AddHook(a.mirror)
}

func (a *WAMApp) requireMirror() error {
	if a.mirror == nil {
		return a.mirrorErr
	}
	return nil
}

// reconcileSnapshots repairs each account's snapshot flag against the
// snapshot store, which is the source of truth.
func (a *WAMApp) reconcileSnapshots() {
	changed, err := a.accounts.ReconcileSnapshots(func(id string) (time.Time, bool) {
		s, ok := a.snaps.Get(id)
		if !ok {
			return time.Time{}, false
		}
		return s.CreatedAt, true
	})
	if err != nil {
		a.logger.Warn("reconciling snapshot flags failed", "error", err)
		return
	}
	if changed > 0 {
		a.logger.Info("reconciled snapshot flags", "changed", changed)
	}
}

// record writes the command to the journal the first time a state-changing
// operation runs. Read-only commands never reach the journal.
func (a *WAMApp) record(parameters string) error {
	if a.cmd.Persisted() {
		return nil
	}
	if parameters != "" {
		a.cmd.Parameters = parameters
	}
	id, err := a.journal.StartOperation(a.cmd.Name, a.cmd.Parameters)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}
	a.cmd.ID = id
	return nil
}

// History returns the most recent recorded operations.
func (a *WAMApp) History(limit int) ([]wam.Operation, error) {
	return a.journal.RecentOperations(limit)
}

// CheckResult is the outcome of one Check step. Err is nil on success.
type CheckResult struct {
	Name   string
	Detail string
	Err    error
}

// Check tests the journal, the active configuration directory, the vault
// and the encryption keys.
func (a *WAMApp) Check() []CheckResult {
	var results []CheckResult

	results = append(results, CheckResult{Name: "journal", Detail: a.cfg.Database.Type, Err: a.journal.CheckMigrations()})

	if dir, ok := a.paths.Active(); ok {
		res := a.paths.Validate(dir)
		r := CheckResult{Name: "active directory", Detail: dir}
		if !res.Valid {
			r.Err = errors.New(strings.Join(res.Errors, "; "))
		}
		results = append(results, r)
	} else {
		results = append(results, CheckResult{Name: "active directory", Err: wam.ErrNoActiveDirectory})
	}

	if a.vault == nil {
		results = append(results, CheckResult{Name: "vault", Detail: "none (backups stay local)"})
	} else {
		results = append(results, CheckResult{Name: "vault", Detail: a.cfg.Vault.Type, Err: a.vault.ValidateSetup()})
	}

	switch {
	case a.encryptor == nil:
		results = append(results, CheckResult{Name: "encryption", Detail: "none"})
	case a.encryptor.IsConfigured():
		results = append(results, CheckResult{Name: "encryption", Detail: a.cfg.Encryption.Type})
	default:
		results = append(results, CheckResult{Name: "encryption", Detail: a.cfg.Encryption.Type, Err: errKeysMissing})
	}
	return results
}

// Close finalizes the command record and closes all resources. A running
// scheduler is stopped first.
func (a *WAMApp) Close() error {
	var firstErr error

	if err := a.scheduler.Stop(); err != nil {
		firstErr = err
	}

	if a.cmd.Persisted() {
		if err := a.journal.FinishOperation(a.cmd.ID, a.cmd.Status); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}

	if err := a.journal.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
