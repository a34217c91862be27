package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// path command
var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Manage editor configuration directories",
}

var pathListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List registered directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListPaths")
		if err != nil {
			return err
		}
		defer a.Close()

		paths := a.Paths()
		if len(paths) == 0 {
			fmt.Println("No directories registered. Run `wam path detect` or `wam path add`.")
			return nil
		}

		active, _ := a.ActivePath()
		for _, p := range paths {
			marker := " "
			if p.ID == active.ID {
				marker = "*"
			}
			config := ""
			if !p.HasConfig {
				config = "  (no config)"
			}
			fmt.Printf("%s %3d  %-20s  %s%s\n", marker, p.ID, p.Name, p.Path, config)
		}
		return nil
	},
}

var pathAddCmd = &cobra.Command{
	Use:   "add PATH",
	Short: "Register a configuration directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		a, err := newApp("AddPath")
		if err != nil {
			return err
		}
		defer a.Close()

		dir, err := a.AddPath(args[0], name)
		if err != nil {
			return err
		}
		fmt.Printf("Registered #%d %s (%s)\n", dir.ID, dir.Name, dir.Path)
		return nil
	},
}

var pathRemoveCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Unregister a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}

		a, err := newApp("RemovePath")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemovePath(id); err != nil {
			return err
		}
		fmt.Printf("Removed #%d\n", id)
		return nil
	},
}

var pathUseCmd = &cobra.Command{
	Use:   "use ID|PATH",
	Short: "Select the active directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetActivePath")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.SetActive(args[0]); err != nil {
			return err
		}
		active, _ := a.ActivePath()
		fmt.Printf("Active: %s\n", active.Path)
		return nil
	},
}

var pathDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Find configuration directories in the usual places",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		add, _ := cmd.Flags().GetBool("add")

		a, err := newApp("DetectPaths")
		if err != nil {
			return err
		}
		defer a.Close()

		if add {
			n, err := a.AutoDetectPaths()
			if err != nil {
				return err
			}
			fmt.Printf("Registered %d new director%s.\n", n, plural(n, "y", "ies"))
			return nil
		}

		found := a.DetectPaths()
		if len(found) == 0 {
			fmt.Println("No configuration directories found.")
			return nil
		}
		for _, p := range found {
			fmt.Println(p)
		}
		return nil
	},
}

var pathValidateCmd = &cobra.Command{
	Use:   "validate PATH",
	Short: "Check that a directory holds an editor configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ValidatePath")
		if err != nil {
			return err
		}
		defer a.Close()

		res := a.ValidatePath(args[0])
		fmt.Printf("Path:        %s\n", res.Path)
		fmt.Printf("Settings:    %s\n", yesNo(res.SettingsExists))
		fmt.Printf("Extensions:  %s\n", yesNo(res.ExtensionsExists))
		fmt.Printf("Keybindings: %s\n", yesNo(res.KeybindingsExists))
		for _, w := range res.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		for _, e := range res.Errors {
			fmt.Printf("error: %s\n", e)
		}
		if !res.Valid {
			return fmt.Errorf("%s is not a valid configuration directory", res.Path)
		}
		return nil
	},
}

var pathFilesCmd = &cobra.Command{
	Use:   "files [PATH]",
	Short: "List the configuration files in a directory (default: active)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListConfigFiles")
		if err != nil {
			return err
		}
		defer a.Close()

		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		files, err := a.ConfigFiles(path)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Printf("%-24s  %8d  %s\n", f.Name, f.Size, f.ModTime.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	pathCmd.AddCommand(pathListCmd)
	pathCmd.AddCommand(pathAddCmd)
	pathCmd.AddCommand(pathRemoveCmd)
	pathCmd.AddCommand(pathUseCmd)
	pathCmd.AddCommand(pathDetectCmd)
	pathCmd.AddCommand(pathValidateCmd)
	pathCmd.AddCommand(pathFilesCmd)

	pathAddCmd.Flags().String("name", "", "Display name (default: derived from the path)")
	pathDetectCmd.Flags().Bool("add", false, "Register every directory found")
}
