package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// remote command
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Inspect and retrieve backups mirrored to the vault",
}

var remoteListCmd = &cobra.Command{
	Use:   "ls [ACCOUNT]",
	Short: "List mirrored backups",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListRemote")
		if err != nil {
			return err
		}
		defer a.Close()

		ref := ""
		if len(args) == 1 {
			ref = args[0]
		}
		keys, err := a.RemoteBackups(ref)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Println("No mirrored backups.")
			return nil
		}
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var remotePullCmd = &cobra.Command{
	Use:   "pull KEY",
	Short: "Download a mirrored backup into the local archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PullBackup")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase := ""
		if a.NeedsPassphrase(args[0]) {
			if passphrase, err = readPassphrase(); err != nil {
				return err
			}
		}

		b, err := a.PullBackup(args[0], passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Pulled %s (%d files). Restore it with `wam backup restore %s`.\n", b.ID(), len(b.Files), b.ID())
		return nil
	},
}

var remoteRemoveCmd = &cobra.Command{
	Use:   "rm KEY",
	Short: "Delete a mirrored backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteRemote")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.DeleteRemote(args[0])
	},
}

func init() {
	remoteCmd.AddCommand(remoteListCmd)
	remoteCmd.AddCommand(remotePullCmd)
	remoteCmd.AddCommand(remoteRemoveCmd)
}
