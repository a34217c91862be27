package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

// SHA256Hex returns the SHA-256 checksum of data as a lowercase hex string.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// HashTree returns the checksum of every file under dir, keyed by relative
// path. Two directories with equal HashTree results hold the same files.
func HashTree(t testing.TB, dir string, skip ...string) map[string]string {
	t.Helper()
	files := ReadTree(t, dir, skip...)
	out := make(map[string]string, len(files))
	for rel, content := range files {
		out[rel] = SHA256Hex([]byte(content))
	}
	return out
}
