package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// DefaultConfigFiles is a small editor configuration directory holding
// several manifest files.
func DefaultConfigFiles() map[string]string {
	return map[string]string{
		"settings.json":                   `{"editor.fontSize": 14}`,
		"keybindings.json":                `[]`,
		"mcp_config.json":                 `{"mcpServers": {}}`,
		"User/globalStorage/storage.json": `{"telemetry.machineId": "abc"}`,
		"extensions.json":                 `[{"identifier": {"id": "ext-a"}}]`,
	}
}

// WriteConfigDir creates dir and writes files into it. Keys are
// slash-separated paths relative to dir.
func WriteConfigDir(t testing.TB, dir string, files map[string]string) string {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatalf("creating %s: %v", filepath.Dir(p), err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", p, err)
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating %s: %v", dir, err)
	}
	return dir
}

// ReadTree returns every regular file under dir keyed by slash-separated
// relative path. Files whose relative path starts with any of skip are
// left out.
func ReadTree(t testing.TB, dir string, skip ...string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, s := range skip {
			if strings.HasPrefix(rel, s) {
				return nil
			}
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", dir, err)
	}
	return out
}
