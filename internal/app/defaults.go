package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults holds the locations used when no flag overrides them.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - WAM_CONFIG_PATH: config file location (default: ~/.config/wam.toml)
//   - WAM_HOME: base directory for wam data (default: ~/.local/share/wam)
func GetDefaults() (Defaults, error) {
	configPath, err := envOrHome("WAM_CONFIG_PATH", ".config", "wam.toml")
	if err != nil {
		return Defaults{}, err
	}
	baseDir, err := envOrHome("WAM_HOME", ".local", "share", "wam")
	if err != nil {
		return Defaults{}, err
	}

	return Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// envOrHome returns the value of env when set, otherwise the path made of
// elem under the user's home directory.
func envOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
