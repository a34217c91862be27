package wam_test

import (
	"path/filepath"
	"testing"

	"wam-go/internal/testutil"
	"wam-go/internal/wam"
)

// testEnv wires the registries and archives against a temp data directory
// with one registered, active configuration directory.
type testEnv struct {
	clock    *testutil.StubClock
	root     string
	live     string
	paths    *wam.PathRegistry
	accounts *wam.AccountRegistry
	copier   *wam.Copier
	snaps    *wam.SnapshotStore
	archive  *wam.BackupArchive
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	clock := testutil.FixedClock()
	logger := wam.NewNopLogger()

	live := testutil.WriteConfigDir(t, filepath.Join(root, "live", "Windsurf"), testutil.DefaultConfigFiles())

	paths := wam.NewPathRegistry(filepath.Join(root, "config_paths.json"), []string{live}, clock, logger)
	dir, err := paths.Add(live, "Windsurf")
	if err != nil {
		t.Fatalf("registering live directory: %v", err)
	}
	if err := paths.SetActive(dir.ID); err != nil {
		t.Fatalf("activating live directory: %v", err)
	}

	accounts := wam.NewAccountRegistry(filepath.Join(root, "accounts.json"), testutil.NewStubIDGenerator(), clock, logger)
	copier := wam.NewCopier([]string{"Cache"}, clock, logger)

	snaps, err := wam.NewSnapshotStore(filepath.Join(root, "snapshots"), paths, copier, clock, logger)
	if err != nil {
		t.Fatalf("NewSnapshotStore() error = %v", err)
	}
	archive, err := wam.NewBackupArchive(filepath.Join(root, "backups"), paths, accounts, copier, wam.DefaultAutoBackupConfig(), clock, logger)
	if err != nil {
		t.Fatalf("NewBackupArchive() error = %v", err)
	}

	return &testEnv{
		clock:    clock,
		root:     root,
		live:     dir.Path,
		paths:    paths,
		accounts: accounts,
		copier:   copier,
		snaps:    snaps,
		archive:  archive,
	}
}

// manifestOnly returns the entries of tree that are manifest files.
func manifestOnly(tree map[string]string) map[string]string {
	out := map[string]string{}
	for _, entry := range wam.Manifest() {
		if v, ok := tree[entry]; ok {
			out[entry] = v
		}
	}
	return out
}

func equalMaps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
