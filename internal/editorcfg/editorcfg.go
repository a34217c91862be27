// Package editorcfg reads and writes the MCP server list and the rules list
// kept inside an editor configuration directory.
package editorcfg

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	wamfs "wam-go/internal/fs"
)

const (
	MCPFileName   = "mcp_config.json"
	RulesFileName = "rules.json"
)

// MCPServer is one entry under "mcpServers".
type MCPServer struct {
	Name     string            `json:"-"`
	Command  string            `json:"command"`
	Args     []string          `json:"args,omitempty"`
	Env      map[string]string `json:"env,omitempty"`
	Disabled bool              `json:"disabled,omitempty"`
}

// Rule is one entry of rules.json.
type Rule struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// MCPConfig is the decoded mcp_config.json. Top-level keys other than
// "mcpServers" are carried through a save unchanged.
type MCPConfig struct {
	Servers map[string]MCPServer
	extra   map[string]json.RawMessage
}

// LoadMCP reads dir/mcp_config.json. A missing file yields an empty config.
func LoadMCP(dir string) (*MCPConfig, error) {
	cfg := &MCPConfig{Servers: map[string]MCPServer{}, extra: map[string]json.RawMessage{}}

	data, err := os.ReadFile(filepath.Join(dir, MCPFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", MCPFileName, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, nil
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", MCPFileName, err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.Servers); err != nil {
			return nil, fmt.Errorf("parsing mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.Servers == nil {
		cfg.Servers = map[string]MCPServer{}
	}
	for name, s := range cfg.Servers {
		s.Name = name
		cfg.Servers[name] = s
	}
	return cfg, nil
}

// List returns the servers sorted by name.
func (c *MCPConfig) List() []MCPServer {
	out := make([]MCPServer, 0, len(c.Servers))
	for _, s := range c.Servers {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b MCPServer) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Set adds or replaces a server.
func (c *MCPConfig) Set(s MCPServer) error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("mcp server name is required")
	}
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("mcp server %q: command is required", s.Name)
	}
	c.Servers[s.Name] = s
	return nil
}

// Remove deletes a server and reports whether it existed.
func (c *MCPConfig) Remove(name string) bool {
	_, ok := c.Servers[name]
	delete(c.Servers, name)
	return ok
}

// SaveMCP writes cfg to dir/mcp_config.json atomically.
func SaveMCP(dir string, cfg *MCPConfig) error {
	doc := make(map[string]any, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		doc[k] = v
	}
	doc["mcpServers"] = cfg.Servers

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", MCPFileName, err)
	}
	return wamfs.WriteFileAtomic(filepath.Join(dir, MCPFileName), append(data, '\n'), 0o644)
}

// LoadRules reads dir/rules.json. A missing or empty file yields no rules.
func LoadRules(dir string) ([]Rule, error) {
	data, err := os.ReadFile(filepath.Join(dir, RulesFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", RulesFileName, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", RulesFileName, err)
	}
	return rules, nil
}

// SaveRules writes rules to dir/rules.json atomically.
func SaveRules(dir string, rules []Rule) error {
	if rules == nil {
		rules = []Rule{}
	}
	data, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", RulesFileName, err)
	}
	return wamfs.WriteFileAtomic(filepath.Join(dir, RulesFileName), append(data, '\n'), 0o644)
}

// AddRule appends a rule, rejecting a duplicate id.
func AddRule(rules []Rule, r Rule) ([]Rule, error) {
	if strings.TrimSpace(r.ID) == "" {
		return rules, errors.New("rule id is required")
	}
	if slices.ContainsFunc(rules, func(x Rule) bool { return x.ID == r.ID }) {
		return rules, fmt.Errorf("rule %q already exists", r.ID)
	}
	return append(rules, r), nil
}

// RemoveRule drops the rule with the given id and reports whether it existed.
func RemoveRule(rules []Rule, id string) ([]Rule, bool) {
	n := len(rules)
	rules = slices.DeleteFunc(rules, func(x Rule) bool { return x.ID == id })
	return rules, len(rules) != n
}
