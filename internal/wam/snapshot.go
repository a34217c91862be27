package wam

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"wam-go/internal/fs"
)

// DefaultDirectory supplies the configuration directory used when a caller
// does not name one.
type DefaultDirectory interface {
	DefaultPath() (string, bool)
}

// SnapshotStore keeps at most one snapshot of the configuration directory
// per account, under <root>/<accountID>/.
type SnapshotStore struct {
	root     string
	fallback DefaultDirectory
	copier   *Copier
	clock    Clock
	logger   Logger
	osType   OSType
}

// NewSnapshotStore creates a store rooted at root, creating the directory.
func NewSnapshotStore(root string, fallback DefaultDirectory, copier *Copier, clock Clock, logger Logger) (*SnapshotStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, ioFailure("creating snapshot root", err)
	}
	return &SnapshotStore{
		root:     root,
		fallback: fallback,
		copier:   copier,
		clock:    clock,
		logger:   logger,
		osType:   CurrentOS(),
	}, nil
}

func (s *SnapshotStore) slot(accountID string) (string, error) {
	if err := checkSlotName("account id", accountID); err != nil {
		return "", err
	}
	return filepath.Join(s.root, accountID), nil
}

func (s *SnapshotStore) resolveDir(dir string) (string, error) {
	if dir == "" {
		d, ok := s.fallback.DefaultPath()
		if !ok {
			return "", fmt.Errorf("no configuration directory detected: %w", ErrNotFound)
		}
		dir = d
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidPath, dir, err)
	}
	return abs, nil
}

// Create captures sourceDir as the account's snapshot, replacing any
// previous one. An empty sourceDir uses the default directory. name is an
// optional label stored with the snapshot.
func (s *SnapshotStore) Create(accountID, sourceDir, name string) (*Snapshot, error) {
	slot, err := s.slot(accountID)
	if err != nil {
		return nil, err
	}
	src, err := s.resolveDir(sourceDir)
	if err != nil {
		return nil, err
	}
	if !fs.IsDir(src) {
		return nil, fmt.Errorf("%w: source directory does not exist: %s", ErrInvalidPath, src)
	}

	snap := &Snapshot{
		AccountID:  accountID,
		CreatedAt:  s.clock.Now(),
		ConfigPath: src,
		OSType:     s.osType,
		CustomPath: sourceDir != "",
		Name:       name,
	}
	files, err := s.copier.capture(src, slot, func(files []string) any {
		snap.Files = files
		return snap
	})
	if err != nil {
		return nil, fmt.Errorf("creating snapshot for %s: %w", accountID, err)
	}

	s.logger.Info("snapshot created", "account", accountID, "source", src, "files", len(files))
	return snap, nil
}

// Restore copies the account's snapshot into targetDir, or the default
// directory when targetDir is empty. It returns the path of the safety copy
// taken of the existing directory, if any.
func (s *SnapshotStore) Restore(accountID, targetDir string) (string, error) {
	slot, err := s.slot(accountID)
	if err != nil {
		return "", err
	}
	if _, ok := s.Get(accountID); !ok {
		return "", fmt.Errorf("snapshot for %s: %w", accountID, ErrNotFound)
	}
	target, err := s.resolveDir(targetDir)
	if err != nil {
		return "", err
	}

	safety, err := s.copier.restore(slot, target, "backup")
	if err != nil {
		return safety, fmt.Errorf("restoring snapshot for %s: %w", accountID, err)
	}
	s.logger.Info("snapshot restored", "account", accountID, "target", target, "safety_copy", safety)
	return safety, nil
}

// Delete removes the account's snapshot. Deleting a missing snapshot succeeds.
func (s *SnapshotStore) Delete(accountID string) error {
	slot, err := s.slot(accountID)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(slot); err != nil {
		return ioFailure("deleting snapshot for "+accountID, err)
	}
	return nil
}

// Get returns the account's snapshot metadata. Snapshots without a readable
// metadata file are reported as absent.
func (s *SnapshotStore) Get(accountID string) (*Snapshot, bool) {
	slot, err := s.slot(accountID)
	if err != nil {
		return nil, false
	}
	snap, err := readJSONFile[Snapshot](filepath.Join(slot, metadataFile))
	if err != nil {
		if !isNotExist(err) {
			s.logger.Warn("unreadable snapshot metadata", "account", accountID, "error", err)
		}
		return nil, false
	}
	if snap.Name == "" && !snap.CreatedAt.IsZero() {
		snap.Name = "snapshot_" + snap.CreatedAt.Format("2006-01-02")
	}
	return &snap, true
}

// Exists reports whether the account has a readable snapshot.
func (s *SnapshotStore) Exists(accountID string) bool {
	_, ok := s.Get(accountID)
	return ok
}

// List returns every readable snapshot, newest first.
func (s *SnapshotStore) List() []Snapshot {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.logger.Warn("listing snapshots failed", "root", s.root, "error", err)
		return nil
	}

	var snaps []Snapshot
	for _, e := range entries {
		if !e.IsDir() || isStagingEntry(e.Name()) {
			continue
		}
		if snap, ok := s.Get(e.Name()); ok {
			snaps = append(snaps, *snap)
		}
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})
	return snaps
}
