package wam

import (
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"wam-go/internal/fs"
)

// manifest lists the editor files that make up an account's configuration,
// relative to the configuration directory and slash-separated.
var manifest = []string{
	"settings.json",
	"mcp_config.json",
	"rules.json",
	"keybindings.json",
	"extensions.json",
	"Preferences",
	"User/globalStorage/storage.json",
	"User/globalStorage/state.vscdb",
}

// Manifest returns the files captured by snapshots and backups.
func Manifest() []string {
	return slices.Clone(manifest)
}

// OSType names the platform a configuration directory belongs to.
type OSType string

const (
	OSWindows OSType = "windows"
	OSLinux   OSType = "linux"
	OSMacOS   OSType = "macos"
)

// CurrentOS maps runtime.GOOS to an OSType. Anything unrecognized is linux.
func CurrentOS() OSType {
	return osTypeFor(runtime.GOOS)
}

func osTypeFor(goos string) OSType {
	switch goos {
	case "windows":
		return OSWindows
	case "darwin":
		return OSMacOS
	default:
		return OSLinux
	}
}

// CandidateDirs returns the well-known editor configuration directories for
// the given platform, in detection order.
func CandidateDirs(osType OSType, home, appData string) []string {
	switch osType {
	case OSWindows:
		return []string{
			filepath.Join(appData, "Windsurf"),
			filepath.Join(appData, "Codeium"),
			filepath.Join(appData, "Cursor"),
		}
	case OSMacOS:
		support := filepath.Join(home, "Library", "Application Support")
		return []string{
			filepath.Join(support, "Windsurf"),
			filepath.Join(support, "codeium"),
			filepath.Join(support, "Cursor"),
		}
	default:
		return []string{
			filepath.Join(home, ".config", "Windsurf"),
			filepath.Join(home, ".config", "codeium"),
			filepath.Join(home, ".config", "Cursor"),
		}
	}
}

// DefaultCandidateDirs returns CandidateDirs for the running platform using
// the user's home directory and %APPDATA%.
func DefaultCandidateDirs() []string {
	home, _ := os.UserHomeDir()
	appData := os.Getenv("APPDATA")
	if appData == "" {
		appData = filepath.Join(home, "AppData", "Roaming")
	}
	return CandidateDirs(CurrentOS(), home, appData)
}

// manifestPath joins a manifest entry onto dir.
func manifestPath(dir, entry string) string {
	return filepath.Join(dir, filepath.FromSlash(entry))
}

// hasManifestFile reports whether dir contains at least one manifest entry.
func hasManifestFile(dir string) bool {
	for _, entry := range manifest {
		if fs.Exists(manifestPath(dir, entry)) {
			return true
		}
	}
	return false
}
