package vault

import (
	"bytes"
	"strings"
	"testing"

	"wam-go/internal/wam"
)

// exerciseVault runs the behavior every Vault backend must share.
func exerciseVault(t *testing.T, v wam.Vault) {
	t.Helper()

	put := func(key, data string) {
		t.Helper()
		if err := v.PutBundle(key, strings.NewReader(data), int64(len(data))); err != nil {
			t.Fatalf("PutBundle(%s) error = %v", key, err)
		}
	}

	put("acct-b/b1.tar.zst", "b1")
	put("acct-a/a2.tar.zst", "a2")
	put("acct-a/a1.tar.zst.age", "a1")

	t.Run("list all sorted", func(t *testing.T) {
		keys, err := v.ListBundles("")
		if err != nil {
			t.Fatalf("ListBundles() error = %v", err)
		}
		want := []string{"acct-a/a1.tar.zst.age", "acct-a/a2.tar.zst", "acct-b/b1.tar.zst"}
		if strings.Join(keys, ",") != strings.Join(want, ",") {
			t.Errorf("ListBundles() = %v, want %v", keys, want)
		}
	})

	t.Run("list by prefix", func(t *testing.T) {
		keys, err := v.ListBundles("acct-b/")
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 1 || keys[0] != "acct-b/b1.tar.zst" {
			t.Errorf("ListBundles(acct-b/) = %v", keys)
		}
	})

	t.Run("put replaces", func(t *testing.T) {
		put("acct-a/a2.tar.zst", "a2-new")
		var buf bytes.Buffer
		if err := v.GetBundle("acct-a/a2.tar.zst", &buf); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "a2-new" {
			t.Errorf("GetBundle() = %q, want a2-new", buf.String())
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		if err := v.DeleteBundle("acct-b/b1.tar.zst"); err != nil {
			t.Fatalf("DeleteBundle() error = %v", err)
		}
		if err := v.DeleteBundle("acct-b/b1.tar.zst"); err != nil {
			t.Fatalf("second DeleteBundle() error = %v", err)
		}
		keys, _ := v.ListBundles("acct-b/")
		if len(keys) != 0 {
			t.Errorf("keys after delete = %v", keys)
		}
	})

	t.Run("validate setup", func(t *testing.T) {
		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})
}

func TestVaultBackends(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		exerciseVault(t, NewMemoryVault("mem"))
	})
	t.Run("filesystem", func(t *testing.T) {
		v, err := NewFileSystemVault("fs", t.TempDir())
		if err != nil {
			t.Fatal(err)
		}
		exerciseVault(t, v)
	})
}

func TestCheckKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{"acct/name.tar.zst", false},
		{"acct/name.tar.zst.age", false},
		{"", true},
		{"/abs/name.tar.zst", true},
		{"acct/../x", true},
		{"./acct/x", true},
		{`acct\x`, true},
		{"acct//x", true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := checkKey(tt.key); (err != nil) != tt.wantErr {
				t.Errorf("checkKey(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
		})
	}
}
