package wam

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"wam-go/internal/fs"
)

// registryState is the on-disk shape of the path registry file.
type registryState struct {
	Paths      []ConfigDirectory `json:"paths"`
	ActivePath *int              `json:"active_path"`
	AutoDetect bool              `json:"auto_detect"`
}

// PathRegistry tracks the editor configuration directories the user works
// with and which one is active. Every mutation is persisted before it
// becomes visible; a failed save leaves the in-memory state unchanged.
type PathRegistry struct {
	mu         sync.RWMutex
	file       string
	osType     OSType
	candidates []string
	clock      Clock
	logger     Logger
	state      registryState
}

// NewPathRegistry loads the registry stored at file. A missing file starts
// an empty registry; a corrupt one is moved aside and reset. candidates are
// the directories Detect looks in, normally DefaultCandidateDirs().
func NewPathRegistry(file string, candidates []string, clock Clock, logger Logger) *PathRegistry {
	r := &PathRegistry{
		file:       file,
		osType:     CurrentOS(),
		candidates: slices.Clone(candidates),
		clock:      clock,
		logger:     logger,
		state:      registryState{AutoDetect: true},
	}
	r.load()
	return r
}

func (r *PathRegistry) load() {
	st, err := readJSONFile[registryState](r.file)
	switch {
	case err == nil:
		r.state = st
	case isNotExist(err):
	case errors.Is(err, ErrConfigCorrupt):
		r.logger.Warn("path registry corrupt, starting empty", "path", r.file, "error", err)
		quarantine(r.file, r.clock, r.logger)
	default:
		r.logger.Warn("reading path registry failed, starting empty", "path", r.file, "error", err)
	}
}

// commit persists next and, on success, makes it the current state.
func (r *PathRegistry) commit(next registryState) error {
	if err := writeJSONFile(r.file, next); err != nil {
		return fmt.Errorf("saving path registry: %w", err)
	}
	r.state = next
	return nil
}

func (r *PathRegistry) cloneState() registryState {
	next := r.state
	next.Paths = slices.Clone(r.state.Paths)
	if r.state.ActivePath != nil {
		id := *r.state.ActivePath
		next.ActivePath = &id
	}
	return next
}

// Detect lazily yields candidate directories that exist and contain at
// least one manifest file.
func (r *PathRegistry) Detect() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, dir := range r.candidates {
			if !fs.IsDir(dir) || !hasManifestFile(dir) {
				continue
			}
			if !yield(dir) {
				return
			}
		}
	}
}

// DefaultPath returns the first candidate directory that exists, whether or
// not it holds any configuration yet.
func (r *PathRegistry) DefaultPath() (string, bool) {
	for _, dir := range r.candidates {
		if fs.IsDir(dir) {
			return dir, true
		}
	}
	return "", false
}

// Add registers rawPath under name. The path is resolved to an absolute,
// symlink-free form; an empty name defaults to the directory's base name.
func (r *PathRegistry) Add(rawPath, name string) (ConfigDirectory, error) {
	resolved, info, err := fs.Resolve(rawPath)
	if err != nil {
		return ConfigDirectory{}, fmt.Errorf("%w: %s: %w", ErrInvalidPath, rawPath, err)
	}
	if !info.IsDir() {
		return ConfigDirectory{}, fmt.Errorf("%w: not a directory: %s", ErrInvalidPath, resolved)
	}
	if name == "" {
		name = filepath.Base(resolved)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	maxID := 0
	for _, d := range r.state.Paths {
		if d.Path == resolved {
			return ConfigDirectory{}, fmt.Errorf("%s: %w", resolved, ErrAlreadyRegistered)
		}
		maxID = max(maxID, d.ID)
	}

	dir := ConfigDirectory{
		ID:        maxID + 1,
		Name:      name,
		Path:      resolved,
		HasConfig: hasManifestFile(resolved),
		OSType:    r.osType,
	}

	next := r.cloneState()
	next.Paths = append(next.Paths, dir)
	if err := r.commit(next); err != nil {
		return ConfigDirectory{}, err
	}
	r.logger.Info("registered configuration directory", "id", dir.ID, "path", dir.Path)
	return dir, nil
}

// Remove unregisters the directory with the given id. Removing the active
// directory clears the active selection.
func (r *PathRegistry) Remove(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.state.Paths, func(d ConfigDirectory) bool { return d.ID == id })
	if idx < 0 {
		return fmt.Errorf("configuration directory %d: %w", id, ErrNotFound)
	}

	next := r.cloneState()
	next.Paths = slices.Delete(next.Paths, idx, idx+1)
	if next.ActivePath != nil && *next.ActivePath == id {
		next.ActivePath = nil
	}
	return r.commit(next)
}

// SetActive makes the directory with the given id active.
func (r *PathRegistry) SetActive(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !slices.ContainsFunc(r.state.Paths, func(d ConfigDirectory) bool { return d.ID == id }) {
		return fmt.Errorf("configuration directory %d: %w", id, ErrNotFound)
	}
	next := r.cloneState()
	next.ActivePath = &id
	return r.commit(next)
}

// SetActivePath makes the registered directory at rawPath active. rawPath
// may be given exactly as stored or in any form that resolves to it.
func (r *PathRegistry) SetActivePath(rawPath string) error {
	want := rawPath
	if resolved, _, err := fs.Resolve(rawPath); err == nil {
		want = resolved
	}

	r.mu.RLock()
	id := 0
	for _, d := range r.state.Paths {
		if d.Path == rawPath || d.Path == want {
			id = d.ID
			break
		}
	}
	r.mu.RUnlock()

	if id == 0 {
		return fmt.Errorf("configuration directory %s: %w", rawPath, ErrNotFound)
	}
	return r.SetActive(id)
}

// Active returns the path of the active directory, if one is set.
func (r *PathRegistry) Active() (string, bool) {
	d, ok := r.ActiveDirectory()
	return d.Path, ok
}

// ActiveDirectory returns the active registry entry, if one is set.
func (r *PathRegistry) ActiveDirectory() (ConfigDirectory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.state.ActivePath == nil {
		return ConfigDirectory{}, false
	}
	for _, d := range r.state.Paths {
		if d.ID == *r.state.ActivePath {
			return d, true
		}
	}
	return ConfigDirectory{}, false
}

// Paths returns the registered directories in registration order.
func (r *PathRegistry) Paths() []ConfigDirectory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.state.Paths)
}

// AutoDetect reports the stored auto-detect preference.
func (r *PathRegistry) AutoDetect() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.AutoDetect
}

// AutoDetectAndAdd registers every detected directory not already present
// and returns how many were added. When no directory is active afterwards,
// the first registered one becomes active.
func (r *PathRegistry) AutoDetectAndAdd() (int, error) {
	added := 0
	for dir := range r.Detect() {
		if _, err := r.Add(dir, ""); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				continue
			}
			return added, err
		}
		added++
	}

	if _, ok := r.ActiveDirectory(); ok {
		return added, nil
	}
	paths := r.Paths()
	if len(paths) == 0 {
		return added, nil
	}
	return added, r.SetActive(paths[0].ID)
}

// ValidationResult reports whether a directory looks like a usable editor
// configuration directory.
type ValidationResult struct {
	Valid             bool     `json:"valid"`
	Path              string   `json:"path"`
	Errors            []string `json:"errors"`
	Warnings          []string `json:"warnings"`
	SettingsExists    bool     `json:"settings_exists"`
	ExtensionsExists  bool     `json:"extensions_exists"`
	KeybindingsExists bool     `json:"keybindings_exists"`
}

// Validate inspects path. A missing, non-directory or unreadable path and a
// missing or malformed settings.json are errors; a missing or malformed
// extensions.json or keybindings.json is a warning. The result is valid when
// there are no errors.
func (r *PathRegistry) Validate(path string) ValidationResult {
	res := ValidationResult{Path: path, Errors: []string{}, Warnings: []string{}}

	info, err := os.Stat(path)
	switch {
	case err != nil && isNotExist(err):
		res.Errors = append(res.Errors, "path does not exist")
		return res
	case err != nil:
		res.Errors = append(res.Errors, fmt.Sprintf("cannot access path: %v", err))
		return res
	case !info.IsDir():
		res.Errors = append(res.Errors, "path is not a directory")
		return res
	}

	res.SettingsExists = fs.Exists(filepath.Join(path, "settings.json"))
	res.ExtensionsExists = fs.Exists(filepath.Join(path, "extensions.json"))
	res.KeybindingsExists = fs.Exists(filepath.Join(path, "keybindings.json"))

	if problem := checkJSONFile(path, "settings.json"); problem != "" {
		res.Errors = append(res.Errors, problem)
	}
	for _, name := range []string{"extensions.json", "keybindings.json"} {
		if problem := checkJSONFile(path, name); problem != "" {
			res.Warnings = append(res.Warnings, problem)
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// checkJSONFile returns a description of what is wrong with dir/name, or ""
// if it exists and parses.
func checkJSONFile(dir, name string) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	switch {
	case isNotExist(err):
		return name + " not found"
	case err != nil:
		return fmt.Sprintf("%s is not readable: %v", name, err)
	case !json.Valid(data):
		return name + " is not valid JSON"
	}
	return ""
}

// ConfigFile describes one manifest entry present in a configuration directory.
type ConfigFile struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// ConfigFiles lists the manifest entries present under dir, in manifest order.
func (r *PathRegistry) ConfigFiles(dir string) []ConfigFile {
	var files []ConfigFile
	for _, entry := range manifest {
		p := manifestPath(dir, entry)
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		files = append(files, ConfigFile{Name: entry, Path: p, Size: info.Size(), ModTime: info.ModTime()})
	}
	return files
}
