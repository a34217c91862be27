package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"wam-go/internal/app"
	"wam-go/internal/config"

	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a WAMApp. The caller must defer app.Close().
// command identifies the CLI command being run (e.g. "AddPath", "BackupNow").
func newApp(command string) (*app.WAMApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults.ConfigPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no config at %s: run `wam config init` first", defaults.ConfigPath)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewWAMApp(cfg, command, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "wam",
	Short:        "Editor account manager with configuration snapshots and backups",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults.BaseDir)
		cfg.LogDir = defaults.LogDir

		if err := config.Init(defaults.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults.ConfigPath)
		fmt.Printf("Data Dir: %s\n", cfg.DataDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults.ConfigPath)
		fmt.Printf("Data Dir:     %s\n", cfg.DataDir)
		fmt.Printf("Log Dir:      %s\n", cfg.LogDir)
		fmt.Printf("Snapshots:    %s\n", cfg.Backup.SnapshotDir)
		fmt.Printf("Backups:      %s\n", cfg.Backup.ArchiveDir)
		fmt.Printf("Database:     %s\n", cfg.Database.Type)
		fmt.Printf("Vault:        %s\n", cfg.Vault.Type)
		fmt.Printf("Encryption:   %s\n", cfg.Encryption.Type)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the journal, active directory, vault and keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Check")
		if err != nil {
			return err
		}
		defer a.Close()

		failed := 0
		for _, r := range a.Check() {
			status := "ok"
			if r.Err != nil {
				status = "FAIL"
				failed++
			}
			fmt.Printf("%-17s %-4s  %s", r.Name, status, r.Detail)
			if r.Err != nil {
				fmt.Printf("  (%v)", r.Err)
			}
			fmt.Println()
		}
		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recorded operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetHistory")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-16s  %s  %-8s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Local().Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the key pair used to encrypt mirrored backups",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readNewPassphrase()
		if err != nil {
			return err
		}
		recipient, err := a.SetupKeys(passphrase)
		if err != nil {
			return fmt.Errorf("setting up keys: %w", err)
		}

		fmt.Println("Encryption keys created.")
		if recipient != "" {
			fmt.Printf("Public key: %s\n", recipient)
		}
		fmt.Println("Keep the passphrase safe: encrypted backups cannot be pulled without it.")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log info messages to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configCheckCmd)

	keysCmd.AddCommand(keysInitCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
