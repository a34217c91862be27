package app

import (
	"fmt"

	"wam-go/internal/editorcfg"
	"wam-go/internal/wam"
)

// MCPServers lists the MCP servers configured in the active directory.
func (a *WAMApp) MCPServers() ([]editorcfg.MCPServer, error) {
	dir, err := a.activeDir()
	if err != nil {
		return nil, err
	}
	cfg, err := editorcfg.LoadMCP(dir)
	if err != nil {
		return nil, err
	}
	return cfg.List(), nil
}

// SetMCPServer adds or replaces an MCP server in the active directory.
func (a *WAMApp) SetMCPServer(s editorcfg.MCPServer) error {
	return a.editMCP(s.Name, func(cfg *editorcfg.MCPConfig) error {
		return cfg.Set(s)
	})
}

// RemoveMCPServer removes the named MCP server from the active directory.
func (a *WAMApp) RemoveMCPServer(name string) error {
	return a.editMCP(name, func(cfg *editorcfg.MCPConfig) error {
		if !cfg.Remove(name) {
			return fmt.Errorf("mcp server %s: %w", name, wam.ErrNotFound)
		}
		return nil
	})
}

func (a *WAMApp) editMCP(param string, edit func(*editorcfg.MCPConfig) error) error {
	dir, err := a.activeDir()
	if err != nil {
		return err
	}
	if err := a.record(param); err != nil {
		return err
	}
	cfg, err := editorcfg.LoadMCP(dir)
	if err != nil {
		return a.cmd.Fail(err)
	}
	if err := edit(cfg); err != nil {
		return a.cmd.Fail(err)
	}
	return a.cmd.Fail(editorcfg.SaveMCP(dir, cfg))
}

// Rules lists the rules configured in the active directory.
func (a *WAMApp) Rules() ([]editorcfg.Rule, error) {
	dir, err := a.activeDir()
	if err != nil {
		return nil, err
	}
	return editorcfg.LoadRules(dir)
}

// AddRule appends a rule to the active directory's rules.
func (a *WAMApp) AddRule(id, prompt string) error {
	return a.editRules(id, func(rules []editorcfg.Rule) ([]editorcfg.Rule, error) {
		return editorcfg.AddRule(rules, editorcfg.Rule{ID: id, Prompt: prompt})
	})
}

// RemoveRule deletes the rule with the given id.
func (a *WAMApp) RemoveRule(id string) error {
	return a.editRules(id, func(rules []editorcfg.Rule) ([]editorcfg.Rule, error) {
		next, ok := editorcfg.RemoveRule(rules, id)
		if !ok {
			return nil, fmt.Errorf("rule %s: %w", id, wam.ErrNotFound)
		}
		return next, nil
	})
}

func (a *WAMApp) editRules(param string, edit func([]editorcfg.Rule) ([]editorcfg.Rule, error)) error {
	dir, err := a.activeDir()
	if err != nil {
		return err
	}
	if err := a.record(param); err != nil {
		return err
	}
	rules, err := editorcfg.LoadRules(dir)
	if err != nil {
		return a.cmd.Fail(err)
	}
	next, err := edit(rules)
	if err != nil {
		return a.cmd.Fail(err)
	}
	return a.cmd.Fail(editorcfg.SaveRules(dir, next))
}
