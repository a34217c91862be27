package wam

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"wam-go/internal/fs"
)

const metadataFile = "metadata.json"

// Copier moves manifest files between a live configuration directory and an
// archive slot. Snapshots and backups share it and differ only in how their
// slots are laid out and retained.
type Copier struct {
	manifest     []string
	safetyIgnore []string
	clock        Clock
	logger       Logger

	copyTree func(src, dst string, ignore *fs.IgnoreMatcher) error
}

// NewCopier creates a Copier for the standard manifest. safetyIgnore holds
// patterns left out of the safety copy taken before a restore; a
// .wamignore file in the target directory adds to them.
func NewCopier(safetyIgnore []string, clock Clock, logger Logger) *Copier {
	return &Copier{
		manifest:     Manifest(),
		safetyIgnore: slices.Clone(safetyIgnore),
		clock:        clock,
		logger:       logger,
		copyTree:     fs.CopyTree,
	}
}

// capture copies every manifest entry present under src into slot, together
// with the metadata built from the list of copied entries. The slot is
// assembled in a hidden sibling directory and swapped in, so an existing
// slot is replaced wholesale and a failed capture leaves it untouched.
func (c *Copier) capture(src, slot string, metadata func(files []string) any) ([]string, error) {
	parent := filepath.Dir(slot)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, ioFailure("creating "+parent, err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(slot)+".staging-")
	if err != nil {
		return nil, ioFailure("creating staging directory", err)
	}
	committed := false
	defer func() {
		if !committed {
			os.RemoveAll(staging)
		}
	}()

	files := []string{}
	for _, entry := range c.manifest {
		from := manifestPath(src, entry)
		info, err := os.Stat(from)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return nil, ioFailure("stat "+from, err)
		}

		to := manifestPath(staging, entry)
		if info.IsDir() {
			err = fs.CopyTree(from, to, nil)
		} else {
			err = fs.CopyFile(from, to)
		}
		if err != nil {
			return nil, ioFailure("copying "+entry, err)
		}
		files = append(files, entry)
	}

	if err := writeJSONFile(filepath.Join(staging, metadataFile), metadata(files)); err != nil {
		return nil, err
	}

	if err := swapDir(staging, slot); err != nil {
		return nil, err
	}
	committed = true
	return files, nil
}

// swapDir renames staging to slot, replacing any existing slot.
func swapDir(staging, slot string) error {
	old := ""
	if fs.Exists(slot) {
		old = staging + ".old"
		if err := os.Rename(slot, old); err != nil {
			return ioFailure("moving old "+slot+" aside", err)
		}
	}
	if err := os.Rename(staging, slot); err != nil {
		if old != "" {
			os.Rename(old, slot)
		}
		return ioFailure("moving "+slot+" into place", err)
	}
	if old != "" {
		os.RemoveAll(old)
	}
	return nil
}

// restore copies every manifest entry present in slot into target,
// overwriting same-named files and leaving all other files alone. When
// target already exists it is first copied to a timestamped sibling named
// "<target>_<label>_<ts>"; if that copy fails nothing in target is touched.
// The safety copy's path is returned, or "" if target did not exist.
func (c *Copier) restore(slot, target, label string) (string, error) {
	target = filepath.Clean(target)

	safety := ""
	if info, err := os.Stat(target); err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("%w: not a directory: %s", ErrInvalidPath, target)
		}
		safety, err = c.safetyCopy(target, label)
		if err != nil {
			return "", err
		}
	} else if !isNotExist(err) {
		return "", ioFailure("stat "+target, err)
	}

	if err := os.MkdirAll(target, 0755); err != nil {
		return safety, ioFailure("creating "+target, err)
	}

	for _, entry := range c.manifest {
		from := manifestPath(slot, entry)
		info, err := os.Stat(from)
		if err != nil {
			if isNotExist(err) {
				continue
			}
			return safety, ioFailure("stat "+from, err)
		}

		to := manifestPath(target, entry)
		if info.IsDir() {
			err = fs.CopyTree(from, to, nil)
		} else {
			err = fs.CopyFile(from, to)
		}
		if err != nil {
			return safety, ioFailure("restoring "+entry, err)
		}
	}
	return safety, nil
}

func (c *Copier) safetyCopy(target, label string) (string, error) {
	ignore, err := fs.LoadDirIgnore(target, c.safetyIgnore)
	if err != nil {
		c.logger.Warn("ignoring unreadable ignore file", "dir", target, "error", err)
		ignore = fs.NewIgnoreMatcher(c.safetyIgnore)
	}

	dest := uniqueSibling(target + "_" + label + "_" + c.clock.Now().Format("20060102_150405"))
	if err := c.copyTree(target, dest, ignore); err != nil {
		os.RemoveAll(dest)
		return "", ioFailure("safety copy of "+target, err)
	}
	c.logger.Info("saved safety copy", "source", target, "copy", dest)
	return dest, nil
}

// uniqueSibling returns base, or base with the first free "_N" suffix.
func uniqueSibling(base string) string {
	if !fs.Exists(base) {
		return base
	}
	for i := 2; ; i++ {
		p := fmt.Sprintf("%s_%d", base, i)
		if !fs.Exists(p) {
			return p
		}
	}
}

// checkSlotName rejects names that cannot serve as a single directory
// component inside an archive root.
func checkSlotName(kind, name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %s %q", ErrInvalidPath, kind, name)
	}
	return nil
}

// isStagingEntry reports whether a directory entry is capture residue.
func isStagingEntry(name string) bool {
	return strings.HasPrefix(name, ".")
}
