package wam_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wam-go/internal/testutil"
	"wam-go/internal/wam"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2024-01-15T10:30:00Z", want: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)},
		{in: "2024-01-15T10:30:00.5+02:00", want: time.Date(2024, 1, 15, 8, 30, 0, 500000000, time.UTC)},
		{in: "2024-01-15T10:30:00.123456", want: time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.Local)},
		{in: "2024-01-15T10:30:00", want: time.Date(2024, 1, 15, 10, 30, 0, 0, time.Local)},
		{in: "2024-01-15 10:30:00.25", want: time.Date(2024, 1, 15, 10, 30, 0, 250000000, time.Local)},
		{in: "15/01/2024", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := wam.ParseTimestamp(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestBackupArchive_NaiveTimestampSettings(t *testing.T) {
	root := t.TempDir()
	cfgPath := filepath.Join(root, "auto_backup_config.json")
	content := `{"enabled": false, "backup_interval_hours": 6, "max_backups": 3, "last_backup_time": "2024-01-15T10:30:00.123456"}`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	a, err := wam.NewBackupArchive(root, nil, nil, nil, wam.DefaultAutoBackupConfig(), testutil.FixedClock(), wam.NewNopLogger())
	if err != nil {
		t.Fatal(err)
	}
	got := a.Settings()
	if got.Enabled || got.IntervalHours != 6 || got.MaxBackups != 3 {
		t.Errorf("Settings() = %+v, want stored values", got)
	}
	want := time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.Local)
	if got.LastBackupTime == nil || !got.LastBackupTime.Equal(want) {
		t.Errorf("LastBackupTime = %v, want %v", got.LastBackupTime, want)
	}
	if matches, _ := filepath.Glob(cfgPath + ".corrupt-*"); len(matches) != 0 {
		t.Errorf("settings moved aside: %v", matches)
	}
}

func TestNaiveTimestampMetadata(t *testing.T) {
	env := newTestEnv(t)
	want := time.Date(2024, 1, 10, 8, 0, 0, 654321000, time.Local)

	testutil.WriteConfigDir(t, filepath.Join(env.root, "backups", "acct-1", "a@example.com_20240110_080000"), map[string]string{
		"metadata.json": `{"account_id": "acct-1", "account_email": "a@example.com", "created_at": "2024-01-10T08:00:00.654321", "config_path": "/x", "os_type": "linux", "files": []}`,
	})
	testutil.WriteConfigDir(t, filepath.Join(env.root, "snapshots", "acct-1"), map[string]string{
		"metadata.json": `{"account_id": "acct-1", "created_at": "2024-01-10T08:00:00.654321", "config_path": "/x", "os_type": "linux", "files": [], "custom_path": false}`,
	})

	backups := env.archive.List("acct-1")
	if len(backups) != 1 || !backups[0].CreatedAt.Equal(want) {
		t.Fatalf("List() = %+v", backups)
	}
	b, err := env.archive.Get("acct-1", backups[0].Name)
	if err != nil || !b.CreatedAt.Equal(want) {
		t.Errorf("Get() = %+v, %v", b, err)
	}

	snap, ok := env.snaps.Get("acct-1")
	if !ok || !snap.CreatedAt.Equal(want) {
		t.Fatalf("snapshot Get() = %+v, %v", snap, ok)
	}
	if snap.Name != "snapshot_2024-01-10" {
		t.Errorf("snapshot Name = %q", snap.Name)
	}
	if n := len(env.snaps.List()); n != 1 {
		t.Errorf("snapshot List() = %d entries, want 1", n)
	}
}
