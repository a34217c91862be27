package wam_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"wam-go/internal/bundle"
	"wam-go/internal/testutil"
	"wam-go/internal/wam"
)

func TestBundleKey(t *testing.T) {
	if got := wam.BundleKey("acct-1", "a@example.com_20240115_103000", false); got != "acct-1/a@example.com_20240115_103000.tar.zst" {
		t.Errorf("BundleKey(plain) = %q", got)
	}
	if got := wam.BundleKey("acct-1", "b", true); got != "acct-1/b.tar.zst.age" {
		t.Errorf("BundleKey(encrypted) = %q", got)
	}
}

func TestParseBundleKey(t *testing.T) {
	tests := []struct {
		key       string
		account   string
		name      string
		encrypted bool
		wantErr   bool
	}{
		{key: "acct-1/a@example.com_20240115_103000.tar.zst", account: "acct-1", name: "a@example.com_20240115_103000"},
		{key: "acct-1/b.tar.zst.age", account: "acct-1", name: "b", encrypted: true},
		{key: "acct-1/b.zip", wantErr: true},
		{key: "b.tar.zst", wantErr: true},
		{key: "x/acct-1/b.tar.zst", wantErr: true},
		{key: "acct-1/.hidden.tar.zst", wantErr: true},
		{key: "../b.tar.zst", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			account, name, encrypted, err := wam.ParseBundleKey(tt.key)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseBundleKey(%q) expected error, got %q %q", tt.key, account, name)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBundleKey(%q) error = %v", tt.key, err)
			}
			if account != tt.account || name != tt.name || encrypted != tt.encrypted {
				t.Errorf("ParseBundleKey(%q) = %q, %q, %v", tt.key, account, name, encrypted)
			}
		})
	}
}

func TestMirror_PushPullRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		enc     wam.Encryptor
		wantKey string
	}{
		{"plaintext", nil, "acct-1/a@example.com_20240115_103000.tar.zst"},
		{"encrypted", testutil.NewTestEncryptor(), "acct-1/a@example.com_20240115_103000.tar.zst.age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			v := testutil.NewTestVault()
			m := wam.NewMirror(v, tt.enc, env.archive, wam.NewNopLogger())

			b, err := env.archive.Create("acct-1", "a@example.com")
			if err != nil {
				t.Fatal(err)
			}
			want := testutil.ReadTree(t, b.Path)

			key, err := m.Push(*b)
			if err != nil {
				t.Fatalf("Push() error = %v", err)
			}
			if key != tt.wantKey {
				t.Errorf("Push() key = %q, want %q", key, tt.wantKey)
			}

			if err := env.archive.Delete("acct-1", b.Name); err != nil {
				t.Fatal(err)
			}

			var dec wam.DecryptionContext
			if tt.enc != nil {
				if dec, err = tt.enc.Unlock("passphrase"); err != nil {
					t.Fatal(err)
				}
			}
			pulled, err := m.Pull(key, dec)
			if err != nil {
				t.Fatalf("Pull() error = %v", err)
			}
			if pulled.Name != b.Name || pulled.AccountEmail != "a@example.com" || !pulled.CreatedAt.Equal(b.CreatedAt) {
				t.Errorf("Pull() = %+v", pulled)
			}
			if got := testutil.ReadTree(t, pulled.Path); !equalMaps(got, want) {
				t.Errorf("pulled tree = %v, want %v", got, want)
			}

			if _, err := m.Pull(key, dec); !errors.Is(err, wam.ErrAlreadyExists) {
				t.Errorf("second Pull() error = %v, want ErrAlreadyExists", err)
			}
		})
	}
}

func TestMirror_PullRejectsBundleWithoutMetadata(t *testing.T) {
	env := newTestEnv(t)
	v := testutil.NewTestVault()
	m := wam.NewMirror(v, nil, env.archive, wam.NewNopLogger())

	src := testutil.WriteConfigDir(t, t.TempDir(), map[string]string{"settings.json": "{}"})
	var buf bytes.Buffer
	if err := bundle.Pack(src, &buf); err != nil {
		t.Fatal(err)
	}
	key := wam.BundleKey("acct-1", "a@example.com_20240115_103000", false)
	if err := v.PutBundle(key, &buf, int64(buf.Len())); err != nil {
		t.Fatal(err)
	}

	for i := range 2 {
		_, err := m.Pull(key, nil)
		if err == nil {
			t.Fatalf("Pull() #%d expected error for bundle without metadata", i+1)
		}
		if errors.Is(err, wam.ErrAlreadyExists) {
			t.Fatalf("Pull() #%d error = %v, slot left behind by earlier pull", i+1, err)
		}
	}

	slot, err := env.archive.Path("acct-1", "a@example.com_20240115_103000")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(slot); !os.IsNotExist(err) {
		t.Errorf("slot %s exists after rejected pull: %v", slot, err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(slot), ".*staging-*"))
	if len(leftovers) != 0 {
		t.Errorf("staging directories left behind: %v", leftovers)
	}
	if got := env.archive.List("acct-1"); len(got) != 0 {
		t.Errorf("List() = %v, want empty", backupNames(got))
	}
}

func TestMirror_EncryptedBundleIsNotPlaintext(t *testing.T) {
	env := newTestEnv(t)
	v := testutil.NewTestVault()
	b, err := env.archive.Create("acct-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}

	plainKey, err := wam.NewMirror(v, nil, env.archive, wam.NewNopLogger()).Push(*b)
	if err != nil {
		t.Fatal(err)
	}
	encKey, err := wam.NewMirror(v, testutil.NewTestEncryptor(), env.archive, wam.NewNopLogger()).Push(*b)
	if err != nil {
		t.Fatal(err)
	}

	var plain, enc bytes.Buffer
	if err := v.GetBundle(plainKey, &plain); err != nil {
		t.Fatal(err)
	}
	if err := v.GetBundle(encKey, &enc); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(plain.Bytes(), enc.Bytes()) {
		t.Error("encrypted bundle equals plaintext bundle")
	}
}

func TestMirror_PullEncryptedRequiresKey(t *testing.T) {
	env := newTestEnv(t)
	m := wam.NewMirror(testutil.NewTestVault(), testutil.NewTestEncryptor(), env.archive, wam.NewNopLogger())
	b, err := env.archive.Create("acct-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	key, err := m.Push(*b)
	if err != nil {
		t.Fatal(err)
	}
	if err := env.archive.Delete("acct-1", b.Name); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Pull(key, nil); err == nil {
		t.Fatal("Pull() expected error without a decryption context")
	}
	if _, err := os.Stat(b.Path); !os.IsNotExist(err) {
		t.Errorf("failed pull left a backup behind: %v", err)
	}
}

func TestMirror_PullMissing(t *testing.T) {
	env := newTestEnv(t)
	m := wam.NewMirror(testutil.NewTestVault(), nil, env.archive, wam.NewNopLogger())

	if _, err := m.Pull("acct-1/none.tar.zst", nil); !errors.Is(err, wam.ErrNotFound) {
		t.Errorf("Pull() error = %v, want ErrNotFound", err)
	}
	if n := len(env.archive.List("acct-1")); n != 0 {
		t.Errorf("failed pull left %d backups", n)
	}
}

func TestMirror_HookPushesNewBackups(t *testing.T) {
	env := newTestEnv(t)
	v := testutil.NewTestVault()
	m := wam.NewMirror(v, nil, env.archive, wam.NewNopLogger())
	env.archive.AddHook(m)

	b, err := env.archive.Create("acct-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	keys, err := m.ListRemote("acct-1")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{wam.BundleKey("acct-1", b.Name, false)}; !slices.Equal(keys, want) {
		t.Errorf("ListRemote() = %v, want %v", keys, want)
	}
}

func TestMirror_PushAllListDelete(t *testing.T) {
	env := newTestEnv(t)
	v := testutil.NewTestVault()
	m := wam.NewMirror(v, nil, env.archive, wam.NewNopLogger())

	a, _ := env.accounts.Add("a@example.com", "", "")
	b, _ := env.accounts.Add("b@example.com", "", "")
	for range 2 {
		for _, acct := range []wam.Account{a, b} {
			if _, err := env.archive.Create(acct.ID, acct.Email); err != nil {
				t.Fatal(err)
			}
		}
		env.clock.Advance(time.Minute)
	}

	pushed, err := m.PushAll(context.Background(), env.archive.ListAll())
	if err != nil {
		t.Fatalf("PushAll() error = %v", err)
	}
	if pushed != 4 {
		t.Errorf("PushAll() = %d, want 4", pushed)
	}

	all, err := m.ListRemote("")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("ListRemote(\"\") = %v", all)
	}
	onlyA, _ := m.ListRemote(a.ID)
	if len(onlyA) != 2 {
		t.Errorf("ListRemote(%s) = %v", a.ID, onlyA)
	}

	if err := m.DeleteRemote(onlyA[0]); err != nil {
		t.Fatalf("DeleteRemote() error = %v", err)
	}
	if err := m.DeleteRemote(onlyA[0]); err != nil {
		t.Errorf("second DeleteRemote() error = %v", err)
	}
	if err := m.DeleteRemote("not-a-bundle"); err == nil {
		t.Error("DeleteRemote() expected error for malformed key")
	}
	if rest, _ := m.ListRemote(a.ID); len(rest) != 1 {
		t.Errorf("after delete ListRemote() = %v", rest)
	}
}

func TestMirror_PushAllCanceled(t *testing.T) {
	env := newTestEnv(t)
	m := wam.NewMirror(testutil.NewTestVault(), nil, env.archive, wam.NewNopLogger())
	b, err := env.archive.Create("acct-1", "a@example.com")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pushed, err := m.PushAll(ctx, []wam.Backup{*b})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("PushAll() error = %v, want context.Canceled", err)
	}
	if pushed != 0 {
		t.Errorf("PushAll() = %d, want 0", pushed)
	}
}
