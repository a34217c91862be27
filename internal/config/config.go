package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for wam.
type Config struct {
	DataDir    string           `toml:"data_dir"`
	LogDir     string           `toml:"log_dir"`
	Backup     BackupConfig     `toml:"backup"`
	Filesystem FilesystemConfig `toml:"filesystem"`
	Database   DatabaseConfig   `toml:"database"`
	Vault      VaultConfig      `toml:"vault"`
	Encryption EncryptionConfig `toml:"encryption"`
	Login      LoginConfig      `toml:"login"`
}

// BackupConfig locates the snapshot and backup archives and seeds the
// automatic backup settings the first time the archive is opened.
type BackupConfig struct {
	SnapshotDir   string `toml:"snapshot_dir"`
	ArchiveDir    string `toml:"archive_dir"`
	IntervalHours int    `toml:"interval_hours"`
	MaxBackups    int    `toml:"max_backups"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	// SafetyIgnore patterns are left out of the safety copy taken before a
	// restore. Empty by default, so the safety copy is complete.
	SafetyIgnore []string `toml:"safety_ignore"`
	// Candidates replaces the built-in list of directories Detect looks in.
	Candidates []string `toml:"candidates,omitempty"`
}

// DatabaseConfig represents configuration for the operation journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// VaultConfig represents configuration for the remote backup mirror.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "none", "memory", "filesystem" or "s3"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"`
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// EncryptionConfig holds paths to the age key pair used for mirrored bundles.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "age", "test" or "none"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// LoginConfig configures the account login and plan sync client.
type LoginConfig struct {
	FirebaseAPIKey string `toml:"firebase_api_key"`
	IdentityURL    string `toml:"identity_url"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NewConfig creates a Config rooted at baseDir with every path and backend
// set to its default.
func NewConfig(baseDir string) *Config {
	return &Config{
		DataDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Backup: BackupConfig{
			SnapshotDir:   filepath.Join(baseDir, "snapshots"),
			ArchiveDir:    filepath.Join(baseDir, "backups"),
			IntervalHours: 24,
			MaxBackups:    7,
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Vault:    VaultConfig{Type: "none"},
		Encryption: EncryptionConfig{
			Type:           "age",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "wam.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "wam.key"),
		},
		Login: LoginConfig{
			IdentityURL:    "https://identitytoolkit.googleapis.com",
			BaseURL:        "https://api2.cursor.sh",
			TimeoutSeconds: 30,
		},
	}
}

// PathRegistryFile is the JSON file holding registered configuration directories.
func (c *Config) PathRegistryFile() string {
	return filepath.Join(c.DataDir, "config_paths.json")
}

// AccountsFile is the JSON file holding stored accounts.
func (c *Config) AccountsFile() string {
	return filepath.Join(c.DataDir, "accounts.json")
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
