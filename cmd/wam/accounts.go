package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wam-go/internal/wam"

	"github.com/spf13/cobra"
)

// account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage stored accounts",
}

var accountListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListAccounts")
		if err != nil {
			return err
		}
		defer a.Close()

		accounts := a.Accounts()
		if len(accounts) == 0 {
			fmt.Println("No accounts. Add one with `wam account add EMAIL`.")
			return nil
		}
		for _, acct := range accounts {
			printAccount(acct)
		}
		return nil
	},
}

func printAccount(acct wam.Account) {
	snap := "-"
	if acct.HasSnapshot && acct.SnapshotCreatedAt != nil {
		snap = acct.SnapshotCreatedAt.Local().Format("2006-01-02 15:04")
	}
	plan := "-"
	if acct.PlanName != nil {
		plan = *acct.PlanName
	}
	fmt.Printf("%s  %-32s  plan: %-10s  snapshot: %s", acct.ID, acct.Email, plan, snap)
	if acct.Note != "" {
		fmt.Printf("  # %s", acct.Note)
	}
	fmt.Println()
}

var accountAddCmd = &cobra.Command{
	Use:   "add EMAIL",
	Short: "Store a new account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, _ := cmd.Flags().GetString("note")
		password, _ := cmd.Flags().GetString("password")
		if !cmd.Flags().Changed("password") {
			var err error
			if password, err = readSecret("Password: "); err != nil {
				return err
			}
		}

		a, err := newApp("AddAccount")
		if err != nil {
			return err
		}
		defer a.Close()

		acct, err := a.AddAccount(args[0], password, note)
		if err != nil {
			return err
		}
		fmt.Printf("Added %s (%s)\n", acct.Email, acct.ID)
		return nil
	},
}

var accountRemoveCmd = &cobra.Command{
	Use:   "rm ACCOUNT",
	Short: "Delete an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		purge, _ := cmd.Flags().GetBool("purge")

		a, err := newApp("RemoveAccount")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveAccount(args[0], purge); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", args[0])
		return nil
	},
}

var accountNoteCmd = &cobra.Command{
	Use:   "note ACCOUNT NOTE",
	Short: "Set the note shown next to an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetNote")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.SetNote(args[0], args[1])
	},
}

var accountLoginCmd = &cobra.Command{
	Use:   "login ACCOUNT",
	Short: "Sign in and refresh the account's plan and usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Login")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		acct, err := a.Login(ctx, args[0])
		if err != nil {
			return err
		}
		printAccount(acct)
		if acct.UsedPromptCredits != nil && acct.UsedFlowCredits != nil {
			fmt.Printf("Credits used: %d prompt, %d flow\n", *acct.UsedPromptCredits, *acct.UsedFlowCredits)
		}
		if acct.PlanEnd != nil {
			fmt.Printf("Plan ends: %s\n", *acct.PlanEnd)
		}
		return nil
	},
}

var accountImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import accounts from a JSON export (.json or .json.zst)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ImportAccounts")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ImportAccounts(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d account%s.\n", n, plural(n, "", "s"))
		return nil
	},
}

var accountExportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Export accounts, including credentials, to JSON (.zst to compress)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ExportAccounts")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ExportAccounts(args[0]); err != nil {
			return err
		}
		fmt.Printf("Exported %d accounts to %s\n", len(a.Accounts()), args[0])
		return nil
	},
}

func init() {
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	accountCmd.AddCommand(accountNoteCmd)
	accountCmd.AddCommand(accountLoginCmd)
	accountCmd.AddCommand(accountImportCmd)
	accountCmd.AddCommand(accountExportCmd)

	accountAddCmd.Flags().String("password", "", "Account password (prompted when omitted)")
	accountAddCmd.Flags().String("note", "", "Free-form note")
	accountRemoveCmd.Flags().Bool("purge", false, "Also delete the account's snapshot and backups")
}
