package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wam-go/internal/testutil"
	"wam-go/internal/wam"
)

func newTestJournal(t *testing.T) (*SQLiteJournal, *testutil.StubClock) {
	t.Helper()
	clock := testutil.FixedClock()
	j, err := NewSQLiteJournal(":memory:", clock)
	if err != nil {
		t.Fatalf("failed to create journal: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j, clock
}

func TestSQLiteJournal_Operations(t *testing.T) {
	t.Run("start and list operations", func(t *testing.T) {
		j, clock := newTestJournal(t)

		id1, err := j.StartOperation("AddAccount", "a@example.com")
		if err != nil {
			t.Fatalf("StartOperation() error = %v", err)
		}
		if id1 == 0 {
			t.Error("operation ID should be non-zero")
		}

		clock.Advance(time.Minute)
		id2, err := j.StartOperation("BackupNow", "")
		if err != nil {
			t.Fatalf("StartOperation() error = %v", err)
		}

		ops, err := j.RecentOperations(10)
		if err != nil {
			t.Fatalf("RecentOperations() error = %v", err)
		}
		if len(ops) != 2 {
			t.Fatalf("got %d operations, want 2", len(ops))
		}
		if ops[0].ID != id2 {
			t.Errorf("expected newest first: got ID %d, want %d", ops[0].ID, id2)
		}
		if ops[1].Operation != "AddAccount" || ops[1].Parameters != "a@example.com" {
			t.Errorf("ops[1] = %+v", ops[1])
		}
		if ops[1].Status != "running" {
			t.Errorf("Status = %q, want running", ops[1].Status)
		}
		if ops[1].FinishedAt != nil {
			t.Error("FinishedAt should be nil for an unfinished operation")
		}
		if !ops[1].StartedAt.Equal(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)) {
			t.Errorf("StartedAt = %v", ops[1].StartedAt)
		}
	})

	t.Run("finish operation sets status and time", func(t *testing.T) {
		j, clock := newTestJournal(t)

		id, _ := j.StartOperation("RestoreBackup", "acct/name")
		clock.Advance(2 * time.Second)
		if err := j.FinishOperation(id, "error"); err != nil {
			t.Fatalf("FinishOperation() error = %v", err)
		}

		ops, _ := j.RecentOperations(1)
		if ops[0].Status != "error" {
			t.Errorf("Status = %q, want %q", ops[0].Status, "error")
		}
		if ops[0].FinishedAt == nil {
			t.Fatal("FinishedAt should be set")
		}
		if got := ops[0].FinishedAt.Sub(ops[0].StartedAt); got != 2*time.Second {
			t.Errorf("duration = %v, want 2s", got)
		}
	})

	t.Run("finishing unknown operation fails", func(t *testing.T) {
		j, _ := newTestJournal(t)
		err := j.FinishOperation(42, "success")
		if !errors.Is(err, wam.ErrNotFound) {
			t.Errorf("FinishOperation() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("limit is honored", func(t *testing.T) {
		j, _ := newTestJournal(t)
		for range 5 {
			if _, err := j.StartOperation("op", ""); err != nil {
				t.Fatal(err)
			}
		}
		ops, err := j.RecentOperations(3)
		if err != nil {
			t.Fatal(err)
		}
		if len(ops) != 3 {
			t.Errorf("got %d operations, want 3", len(ops))
		}
	})
}

func TestSQLiteJournal_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wam.db")
	clock := testutil.FixedClock()

	j, err := NewSQLiteJournal(path, clock)
	if err != nil {
		t.Fatalf("NewSQLiteJournal() error = %v", err)
	}
	if _, err := j.StartOperation("AddPath", "/tmp/x"); err != nil {
		t.Fatal(err)
	}
	j.Close()

	reopened, err := NewSQLiteJournal(path, clock)
	if err != nil {
		t.Fatalf("reopening journal: %v", err)
	}
	defer reopened.Close()

	ops, err := reopened.RecentOperations(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(ops) != 1 || ops[0].Operation != "AddPath" {
		t.Errorf("ops after reopen = %+v", ops)
	}
}

func TestSQLiteJournal_CheckMigrations(t *testing.T) {
	t.Run("fails on DB without migrations applied", func(t *testing.T) {
		db, err := OpenConnection(":memory:")
		if err != nil {
			t.Fatalf("OpenConnection() error = %v", err)
		}
		j := NewSQLiteJournalFromDB(db, testutil.FixedClock())
		defer j.Close()

		if err := j.CheckMigrations(); err == nil {
			t.Error("CheckMigrations() expected error for missing schema")
		}
	})

	t.Run("passes after open", func(t *testing.T) {
		j, _ := newTestJournal(t)
		if err := j.CheckMigrations(); err != nil {
			t.Errorf("CheckMigrations() error = %v", err)
		}
	})
}
