package wam_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"wam-go/internal/testutil"
	"wam-go/internal/wam"
)

func newRegistry(t *testing.T, candidates ...string) (*wam.PathRegistry, string) {
	t.Helper()
	file := filepath.Join(t.TempDir(), "config_paths.json")
	return wam.NewPathRegistry(file, candidates, testutil.FixedClock(), wam.NewNopLogger()), file
}

func resolved(t *testing.T, p string) string {
	t.Helper()
	r, err := filepath.EvalSymlinks(p)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestPathRegistry_AddDuplicateThenActivate(t *testing.T) {
	reg, _ := newRegistry(t)
	cfgA := resolved(t, t.TempDir())

	dir, err := reg.Add(cfgA, "A")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if dir.ID != 1 || dir.Name != "A" || dir.Path != cfgA {
		t.Errorf("Add() = %+v", dir)
	}

	_, err = reg.Add(cfgA, "dup")
	if !errors.Is(err, wam.ErrAlreadyRegistered) || !errors.Is(err, wam.ErrInvalidPath) {
		t.Fatalf("second Add() error = %v, want ErrAlreadyRegistered", err)
	}
	if n := len(reg.Paths()); n != 1 {
		t.Errorf("len(Paths()) = %d, want 1", n)
	}

	if err := reg.SetActive(1); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	got, ok := reg.Active()
	if !ok || got != cfgA {
		t.Errorf("Active() = %q, %v; want %q", got, ok, cfgA)
	}
}

func TestPathRegistry_AddRejectsBadPaths(t *testing.T) {
	reg, _ := newRegistry(t)
	file := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(file, []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "missing")},
		{"regular file", file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := reg.Add(tt.path, ""); !errors.Is(err, wam.ErrInvalidPath) {
				t.Errorf("Add(%s) error = %v, want ErrInvalidPath", tt.path, err)
			}
		})
	}
	if len(reg.Paths()) != 0 {
		t.Errorf("failed adds changed the registry: %v", reg.Paths())
	}
}

func TestPathRegistry_AddDefaultsAndIDs(t *testing.T) {
	reg, _ := newRegistry(t)
	base := t.TempDir()
	a := testutil.WriteConfigDir(t, filepath.Join(base, "Windsurf"), map[string]string{"settings.json": "{}"})
	b := testutil.WriteConfigDir(t, filepath.Join(base, "Empty"), nil)
	c := testutil.WriteConfigDir(t, filepath.Join(base, "Cursor"), nil)

	da, _ := reg.Add(a, "")
	db, _ := reg.Add(b, "")
	if da.Name != "Windsurf" {
		t.Errorf("default name = %q, want Windsurf", da.Name)
	}
	if !da.HasConfig || db.HasConfig {
		t.Errorf("HasConfig = %v, %v; want true, false", da.HasConfig, db.HasConfig)
	}
	if err := reg.Remove(da.ID); err != nil {
		t.Fatal(err)
	}
	dc, err := reg.Add(c, "")
	if err != nil {
		t.Fatal(err)
	}
	if dc.ID != 3 {
		t.Errorf("id after removal = %d, want 3 (max+1)", dc.ID)
	}
}

func TestPathRegistry_Remove(t *testing.T) {
	reg, _ := newRegistry(t)
	d, _ := reg.Add(t.TempDir(), "x")
	if err := reg.SetActive(d.ID); err != nil {
		t.Fatal(err)
	}

	if err := reg.Remove(99); !errors.Is(err, wam.ErrNotFound) {
		t.Errorf("Remove(99) error = %v, want ErrNotFound", err)
	}
	if err := reg.Remove(d.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, ok := reg.Active(); ok {
		t.Error("active pointer should be cleared after removing the active entry")
	}
	if len(reg.Paths()) != 0 {
		t.Errorf("Paths() = %v, want empty", reg.Paths())
	}
}

func TestPathRegistry_SetActive(t *testing.T) {
	reg, _ := newRegistry(t)
	dir := resolved(t, t.TempDir())
	d, _ := reg.Add(dir, "x")

	if err := reg.SetActive(d.ID + 1); !errors.Is(err, wam.ErrNotFound) {
		t.Errorf("SetActive(unknown) error = %v, want ErrNotFound", err)
	}
	if err := reg.SetActivePath(filepath.Join(dir, ".")); err != nil {
		t.Errorf("SetActivePath() error = %v", err)
	}
	if got, _ := reg.Active(); got != dir {
		t.Errorf("Active() = %q, want %q", got, dir)
	}
	if err := reg.SetActivePath("/no/such/dir"); !errors.Is(err, wam.ErrNotFound) {
		t.Errorf("SetActivePath(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPathRegistry_Persistence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config_paths.json")
	reg := wam.NewPathRegistry(file, nil, testutil.FixedClock(), wam.NewNopLogger())
	d, _ := reg.Add(t.TempDir(), "kept")
	if err := reg.SetActive(d.ID); err != nil {
		t.Fatal(err)
	}

	reloaded := wam.NewPathRegistry(file, nil, testutil.FixedClock(), wam.NewNopLogger())
	got, ok := reloaded.ActiveDirectory()
	if !ok || got.Name != "kept" || got.ID != d.ID {
		t.Errorf("reloaded ActiveDirectory() = %+v, %v", got, ok)
	}
	if !reloaded.AutoDetect() {
		t.Error("AutoDetect() = false, want default true")
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"paths"`, `"active_path"`, `"auto_detect"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("registry file missing %s: %s", key, data)
		}
	}
}

func TestPathRegistry_CorruptFileResets(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config_paths.json")
	if err := os.WriteFile(file, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	reg := wam.NewPathRegistry(file, nil, testutil.FixedClock(), wam.NewNopLogger())
	if len(reg.Paths()) != 0 {
		t.Errorf("Paths() = %v, want empty", reg.Paths())
	}
	if _, err := os.Stat(file + ".corrupt-20240115T103000Z"); err != nil {
		t.Errorf("corrupt file not moved aside: %v", err)
	}
	if _, err := reg.Add(t.TempDir(), ""); err != nil {
		t.Errorf("Add() after reset error = %v", err)
	}
}

func TestPathRegistry_FailedSaveLeavesStateUnchanged(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0644); err != nil {
		t.Fatal(err)
	}
	reg := wam.NewPathRegistry(filepath.Join(blocker, "config_paths.json"), nil, testutil.FixedClock(), wam.NewNopLogger())

	if _, err := reg.Add(t.TempDir(), ""); !errors.Is(err, wam.ErrIOFailure) {
		t.Fatalf("Add() error = %v, want ErrIOFailure", err)
	}
	if len(reg.Paths()) != 0 {
		t.Errorf("Paths() = %v, want empty after failed save", reg.Paths())
	}
}

func TestPathRegistry_Detect(t *testing.T) {
	base := t.TempDir()
	noManifest := testutil.WriteConfigDir(t, filepath.Join(base, "a"), map[string]string{"other.txt": "x"})
	first := testutil.WriteConfigDir(t, filepath.Join(base, "b"), map[string]string{"keybindings.json": "[]"})
	missing := filepath.Join(base, "missing")
	second := testutil.WriteConfigDir(t, filepath.Join(base, "c"), map[string]string{"User/globalStorage/storage.json": "{}"})

	reg, _ := newRegistry(t, noManifest, first, missing, second)

	var got []string
	for dir := range reg.Detect() {
		got = append(got, dir)
	}
	if !slices.Equal(got, []string{first, second}) {
		t.Errorf("Detect() = %v, want %v", got, []string{first, second})
	}

	for dir := range reg.Detect() {
		if dir != first {
			t.Errorf("early break yielded %q", dir)
		}
		break
	}

	if d, ok := reg.DefaultPath(); !ok || d != noManifest {
		t.Errorf("DefaultPath() = %q, %v; want %q", d, ok, noManifest)
	}
}

func TestPathRegistry_AutoDetectAndAdd(t *testing.T) {
	base := resolved(t, t.TempDir())
	first := testutil.WriteConfigDir(t, filepath.Join(base, "Windsurf"), map[string]string{"settings.json": "{}"})
	second := testutil.WriteConfigDir(t, filepath.Join(base, "Cursor"), map[string]string{"settings.json": "{}"})
	reg, _ := newRegistry(t, first, second)

	n, err := reg.AutoDetectAndAdd()
	if err != nil {
		t.Fatalf("AutoDetectAndAdd() error = %v", err)
	}
	if n != 2 {
		t.Errorf("added = %d, want 2", n)
	}
	if got, ok := reg.Active(); !ok || got != first {
		t.Errorf("Active() = %q, %v; want %q", got, ok, first)
	}

	n, err = reg.AutoDetectAndAdd()
	if err != nil || n != 0 {
		t.Errorf("second AutoDetectAndAdd() = %d, %v; want 0, nil", n, err)
	}
}

func TestPathRegistry_Validate(t *testing.T) {
	reg, _ := newRegistry(t)
	base := t.TempDir()
	notDir := filepath.Join(base, "file")
	if err := os.WriteFile(notDir, nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name         string
		path         string
		wantValid    bool
		wantErrors   int
		wantWarnings int
	}{
		{
			name:      "complete",
			path:      testutil.WriteConfigDir(t, filepath.Join(base, "ok"), testutil.DefaultConfigFiles()),
			wantValid: true,
		},
		{
			name:       "missing path",
			path:       filepath.Join(base, "nope"),
			wantErrors: 1,
		},
		{
			name:       "not a directory",
			path:       notDir,
			wantErrors: 1,
		},
		{
			name:         "missing settings",
			path:         testutil.WriteConfigDir(t, filepath.Join(base, "nosettings"), nil),
			wantErrors:   1,
			wantWarnings: 2,
		},
		{
			name:       "malformed settings",
			path:       testutil.WriteConfigDir(t, filepath.Join(base, "badsettings"), map[string]string{"settings.json": "{", "extensions.json": "[]", "keybindings.json": "[]"}),
			wantErrors: 1,
		},
		{
			name:         "malformed keybindings",
			path:         testutil.WriteConfigDir(t, filepath.Join(base, "badkeys"), map[string]string{"settings.json": "{}", "extensions.json": "[]", "keybindings.json": "[,"}),
			wantValid:    true,
			wantWarnings: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := reg.Validate(tt.path)
			if res.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v (errors %v)", res.Valid, tt.wantValid, res.Errors)
			}
			if len(res.Errors) != tt.wantErrors {
				t.Errorf("Errors = %v, want %d", res.Errors, tt.wantErrors)
			}
			if len(res.Warnings) != tt.wantWarnings {
				t.Errorf("Warnings = %v, want %d", res.Warnings, tt.wantWarnings)
			}
		})
	}
}

func TestPathRegistry_ConfigFiles(t *testing.T) {
	reg, _ := newRegistry(t)
	dir := testutil.WriteConfigDir(t, t.TempDir(), map[string]string{
		"keybindings.json": "[]",
		"settings.json":    `{"a": 1}`,
		"notes.txt":        "ignored",
	})

	files := reg.ConfigFiles(dir)
	if len(files) != 2 {
		t.Fatalf("ConfigFiles() = %+v, want 2 entries", files)
	}
	if files[0].Name != "settings.json" || files[1].Name != "keybindings.json" {
		t.Errorf("order = %s, %s; want manifest order", files[0].Name, files[1].Name)
	}
	if files[0].Size != int64(len(`{"a": 1}`)) {
		t.Errorf("Size = %d", files[0].Size)
	}
	if files[0].ModTime.IsZero() {
		t.Error("ModTime should be set")
	}
}
