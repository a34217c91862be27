package vault

import (
	"fmt"
	"path"
	"strings"

	"wam-go/internal/wam"
)

// checkKey rejects keys that are empty, absolute or that climb out of the
// vault with "..".
func checkKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return fmt.Errorf("%w: bad bundle key %q", wam.ErrInvalidPath, key)
	}
	if path.Clean(key) != key {
		return fmt.Errorf("%w: bad bundle key %q", wam.ErrInvalidPath, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." || part == "." {
			return fmt.Errorf("%w: bad bundle key %q", wam.ErrInvalidPath, key)
		}
	}
	return nil
}
