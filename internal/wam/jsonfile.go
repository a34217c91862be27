package wam

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	wamfs "wam-go/internal/fs"
)

// readJSONFile decodes path into a T. A missing file returns fs.ErrNotExist;
// a file that does not parse returns ErrConfigCorrupt.
func readJSONFile[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%s: %w: %w", path, ErrConfigCorrupt, err)
	}
	return v, nil
}

// writeJSONFile atomically replaces path with the indented JSON encoding of v.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := wamfs.WriteFileAtomic(path, append(data, '\n'), 0644); err != nil {
		return ioFailure("writing "+path, err)
	}
	return nil
}

// isNotExist reports whether err came from a missing file.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// quarantine moves an unparseable file aside so the reset registry does
// not overwrite it on its next save.
func quarantine(path string, clock Clock, logger Logger) {
	aside := path + ".corrupt-" + clock.Now().UTC().Format("20060102T150405Z")
	if err := os.Rename(path, aside); err != nil {
		logger.Warn("could not move corrupt file aside", "path", path, "error", err)
		return
	}
	logger.Warn("moved corrupt file aside", "path", path, "moved_to", aside)
}
