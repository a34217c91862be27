package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wam-go/internal/app"

	"github.com/spf13/cobra"
)

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage per-account configuration snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List snapshots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListSnapshots")
		if err != nil {
			return err
		}
		defer a.Close()

		snaps := a.Snapshots()
		if len(snaps) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, s := range snaps {
			email := s.AccountID
			if acct, err := a.Account(s.AccountID); err == nil {
				email = acct.Email
			}
			fmt.Printf("%-32s  %s  %3d files  %s\n",
				email, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), len(s.Files), s.ConfigPath)
		}
		return nil
	},
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create ACCOUNT",
	Short: "Capture the configuration directory as the account's snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		name, _ := cmd.Flags().GetString("name")

		a, err := newApp("CreateSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.CreateSnapshot(args[0], dir, name)
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot of %s saved (%d files).\n", snap.ConfigPath, len(snap.Files))
		return nil
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore ACCOUNT",
	Short: "Replace the configuration directory with the account's snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		a, err := newApp("RestoreSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		safety, err := a.RestoreSnapshot(args[0], dir)
		if err != nil {
			return err
		}
		fmt.Println("Snapshot restored.")
		printSafety(safety)
		return nil
	},
}

var snapshotRemoveCmd = &cobra.Command{
	Use:   "rm ACCOUNT",
	Short: "Delete the account's snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteSnapshot")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.DeleteSnapshot(args[0])
	},
}

func printSafety(path string) {
	if path != "" {
		fmt.Printf("Previous configuration kept at %s\n", path)
	}
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage timestamped backups",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create ACCOUNT",
	Short: "Back up the active directory for one account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("CreateBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		b, err := a.CreateBackup(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created %s/%s (%d files)\n", b.AccountID, b.Name, len(b.Files))
		return nil
	},
}

var backupNowCmd = &cobra.Command{
	Use:   "now",
	Short: "Back up the active directory for every account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupNow")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.BackupNow()
		fmt.Printf("Created %d backup%s.\n", n, plural(n, "", "s"))
		return err
	},
}

var backupListCmd = &cobra.Command{
	Use:   "ls [ACCOUNT]",
	Short: "List local backups",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListBackups")
		if err != nil {
			return err
		}
		defer a.Close()

		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		backups, err := a.Backups(ref)
		if err != nil {
			return err
		}
		if len(backups) == 0 {
			fmt.Println("No backups.")
			return nil
		}
		for _, b := range backups {
			fmt.Printf("%-48s  %-32s  %s  %3d files\n",
				b.ID(), b.AccountEmail, b.CreatedAt.Local().Format("2006-01-02 15:04:05"), len(b.Files))
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore BACKUP",
	Short: "Restore a backup into the active directory",
	Long:  "BACKUP is ACCOUNT/NAME, or the id or name shown by `wam backup ls`.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RestoreBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		safety, err := a.RestoreBackup(args[0])
		if err != nil {
			return err
		}
		fmt.Println("Backup restored.")
		printSafety(safety)
		return nil
	},
}

var backupRemoveCmd = &cobra.Command{
	Use:   "rm BACKUP",
	Short: "Delete a local backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.DeleteBackup(args[0])
	},
}

var backupPushCmd = &cobra.Command{
	Use:   "push [ACCOUNT]",
	Short: "Upload local backups to the vault",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PushBackups")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		n, err := a.PushBackups(ctx, ref)
		fmt.Printf("Pushed %d backup%s.\n", n, plural(n, "", "s"))
		return err
	},
}

var backupAutoCmd = &cobra.Command{
	Use:   "auto",
	Short: "Show or change the automatic backup settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var u app.AutoBackupUpdate
		flags := cmd.Flags()
		if flags.Changed("enable") && flags.Changed("disable") {
			return errors.New("--enable and --disable are mutually exclusive")
		}
		if flags.Changed("enable") || flags.Changed("disable") {
			enabled := flags.Changed("enable")
			u.Enabled = &enabled
		}
		if flags.Changed("interval") {
			v, _ := flags.GetInt("interval")
			u.IntervalHours = &v
		}
		if flags.Changed("max") {
			v, _ := flags.GetInt("max")
			u.MaxBackups = &v
		}

		operation := "GetAutoBackup"
		if u.Enabled != nil || u.IntervalHours != nil || u.MaxBackups != nil {
			operation = "UpdateAutoBackup"
		}
		a, err := newApp(operation)
		if err != nil {
			return err
		}
		defer a.Close()

		if operation == "UpdateAutoBackup" {
			if err := a.UpdateAutoBackup(u); err != nil {
				return err
			}
		}

		settings, next, due := a.AutoBackup()
		fmt.Printf("Enabled:     %s\n", yesNo(settings.Enabled))
		fmt.Printf("Interval:    %dh\n", settings.IntervalHours)
		fmt.Printf("Keep:        %d per account\n", settings.MaxBackups)
		if settings.LastBackupTime != nil {
			fmt.Printf("Last run:    %s\n", settings.LastBackupTime.Local().Format("2006-01-02 15:04:05"))
		} else {
			fmt.Println("Last run:    never")
		}
		if settings.Enabled {
			if due {
				fmt.Println("Next run:    due now")
			} else {
				fmt.Printf("Next run:    %s\n", next.Local().Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

var backupDaemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run automatic backups in the foreground until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RunDaemon")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Println("Automatic backups running. Press Ctrl-C to stop.")
		return a.RunDaemon(ctx)
	},
}

func init() {
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	snapshotCmd.AddCommand(snapshotRemoveCmd)

	snapshotCreateCmd.Flags().String("dir", "", "Directory to capture (default: active directory)")
	snapshotCreateCmd.Flags().String("name", "", "Label stored with the snapshot")
	snapshotRestoreCmd.Flags().String("dir", "", "Directory to restore into (default: active directory)")

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupNowCmd)
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupRemoveCmd)
	backupCmd.AddCommand(backupPushCmd)
	backupCmd.AddCommand(backupAutoCmd)
	backupCmd.AddCommand(backupDaemonCmd)

	backupAutoCmd.Flags().Bool("enable", false, "Turn automatic backups on")
	backupAutoCmd.Flags().Bool("disable", false, "Turn automatic backups off")
	backupAutoCmd.Flags().Int("interval", 0, "Hours between automatic backups")
	backupAutoCmd.Flags().Int("max", 0, "Backups kept per account")
}
