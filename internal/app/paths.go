package app

import (
	"fmt"
	"slices"
	"strconv"

	"wam-go/internal/wam"
)

// Paths returns every registered configuration directory.
func (a *WAMApp) Paths() []wam.ConfigDirectory {
	return a.paths.Paths()
}

// ActivePath returns the active configuration directory.
func (a *WAMApp) ActivePath() (wam.ConfigDirectory, bool) {
	return a.paths.ActiveDirectory()
}

// AddPath registers rawPath under name. An empty name uses the directory's
// base name.
func (a *WAMApp) AddPath(rawPath, name string) (wam.ConfigDirectory, error) {
	if err := a.record(rawPath); err != nil {
		return wam.ConfigDirectory{}, err
	}
	d, err := a.paths.Add(rawPath, name)
	return d, a.cmd.Fail(err)
}

// RemovePath unregisters the directory with the given id. The directory
// itself is left alone.
func (a *WAMApp) RemovePath(id int) error {
	if err := a.record(strconv.Itoa(id)); err != nil {
		return err
	}
	return a.cmd.Fail(a.paths.Remove(id))
}

// SetActive activates a registered directory, given either its numeric id
// or its path.
func (a *WAMApp) SetActive(ref string) error {
	if err := a.record(ref); err != nil {
		return err
	}
	if id, err := strconv.Atoi(ref); err == nil {
		return a.cmd.Fail(a.paths.SetActive(id))
	}
	return a.cmd.Fail(a.paths.SetActivePath(ref))
}

// DetectPaths returns the candidate directories that look like editor
// configuration directories, in detection order.
func (a *WAMApp) DetectPaths() []string {
	return slices.Collect(a.paths.Detect())
}

// AutoDetectPaths registers every detected directory and returns how many
// were added.
func (a *WAMApp) AutoDetectPaths() (int, error) {
	if err := a.record(""); err != nil {
		return 0, err
	}
	n, err := a.paths.AutoDetectAndAdd()
	return n, a.cmd.Fail(err)
}

// ValidatePath inspects path without registering it.
func (a *WAMApp) ValidatePath(path string) wam.ValidationResult {
	return a.paths.Validate(path)
}

// ConfigFiles lists the manifest files present in path, or in the active
// directory when path is empty.
func (a *WAMApp) ConfigFiles(path string) ([]wam.ConfigFile, error) {
	if path == "" {
		var err error
		if path, err = a.activeDir(); err != nil {
			return nil, err
		}
	}
	return a.paths.ConfigFiles(path), nil
}

func (a *WAMApp) activeDir() (string, error) {
	dir, ok := a.paths.Active()
	if !ok {
		return "", fmt.Errorf("%w: run `wam path use`", wam.ErrNoActiveDirectory)
	}
	return dir, nil
}
