package main

import (
	"fmt"
	"strings"

	"wam-go/internal/editorcfg"

	"github.com/spf13/cobra"
)

// mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Edit the MCP servers of the active directory",
}

var mcpListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List MCP servers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListMCPServers")
		if err != nil {
			return err
		}
		defer a.Close()

		servers, err := a.MCPServers()
		if err != nil {
			return err
		}
		for _, s := range servers {
			state := ""
			if s.Disabled {
				state = "  (disabled)"
			}
			fmt.Printf("%-20s  %s %s%s\n", s.Name, s.Command, strings.Join(s.Args, " "), state)
		}
		return nil
	},
}

var mcpAddCmd = &cobra.Command{
	Use:   "add NAME COMMAND [ARGS...]",
	Short: "Add or replace an MCP server",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		envs, _ := cmd.Flags().GetStringToString("env")
		disabled, _ := cmd.Flags().GetBool("disabled")

		a, err := newApp("SetMCPServer")
		if err != nil {
			return err
		}
		defer a.Close()

		s := editorcfg.MCPServer{
			Name:     args[0],
			Command:  args[1],
			Args:     args[2:],
			Env:      envs,
			Disabled: disabled,
		}
		return a.SetMCPServer(s)
	},
}

var mcpRemoveCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Remove an MCP server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveMCPServer")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.RemoveMCPServer(args[0])
	},
}

// rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Edit the rules of the active directory",
}

var rulesListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListRules")
		if err != nil {
			return err
		}
		defer a.Close()

		rules, err := a.Rules()
		if err != nil {
			return err
		}
		for _, r := range rules {
			fmt.Printf("%-20s  %s\n", r.ID, r.Prompt)
		}
		return nil
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add ID PROMPT",
	Short: "Add a rule",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AddRule")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.AddRule(args[0], args[1])
	},
}

var rulesRemoveCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Remove a rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveRule")
		if err != nil {
			return err
		}
		defer a.Close()

		return a.RemoveRule(args[0])
	},
}

func init() {
	mcpCmd.AddCommand(mcpListCmd)
	mcpCmd.AddCommand(mcpAddCmd)
	mcpCmd.AddCommand(mcpRemoveCmd)
	mcpAddCmd.Flags().StringToString("env", nil, "Environment variables as KEY=VALUE")
	mcpAddCmd.Flags().Bool("disabled", false, "Add the server disabled")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesRemoveCmd)
}
