// Package config loads kild.yaml: the agent registry, git defaults, and
// PTY daemon settings. Structured the way the teacher's config package
// is — a Load/parse/Validate trio, one struct per concern, a YAML
// Duration helper for "10s"-style fields.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level kild.yaml document.
type Config struct {
	ShardsDir    string       `yaml:"shards_dir,omitempty"`
	Git          GitConfig    `yaml:"git"`
	Daemon       DaemonConfig `yaml:"daemon"`
	Ports        PortsConfig  `yaml:"ports"`
	Agents       []AgentEntry `yaml:"agents"`
	DefaultAgent string       `yaml:"default_agent,omitempty"`
}

// PortsConfig controls the Port Allocator's (C4) default window.
type PortsConfig struct {
	Count int `yaml:"count,omitempty"`
	Base  int `yaml:"base,omitempty"`
}

// DefaultPortCount and DefaultBasePort are used when ports.count/base are
// unset in kild.yaml (spec.md §8.2's worked example: base=3000, count=10).
const (
	DefaultPortCount = 10
	DefaultBasePort  = 3000
)

// EffectiveCount returns the configured port window size, or the default.
func (p PortsConfig) EffectiveCount() int {
	if p.Count <= 0 {
		return DefaultPortCount
	}
	return p.Count
}

// EffectiveBase returns the configured base port, or the default.
func (p PortsConfig) EffectiveBase() int {
	if p.Base <= 0 {
		return DefaultBasePort
	}
	return p.Base
}

// GitConfig controls the Git Worktree Manager's (C3) default behavior.
type GitConfig struct {
	FetchBeforeCreate *bool  `yaml:"fetch_before_create,omitempty"`
	Remote            string `yaml:"remote,omitempty"`
	BaseBranch        string `yaml:"base_branch,omitempty"`
}

// ShouldFetch reports the effective fetch_before_create value, defaulting
// to true per spec.md §4.3 step 1.
func (g GitConfig) ShouldFetch() bool {
	if g.FetchBeforeCreate == nil {
		return true
	}
	return *g.FetchBeforeCreate
}

// EffectiveRemote returns the configured remote, defaulting to "origin".
func (g GitConfig) EffectiveRemote() string {
	if g.Remote == "" {
		return "origin"
	}
	return g.Remote
}

// EffectiveBaseBranch returns the configured base branch, defaulting to "main".
func (g GitConfig) EffectiveBaseBranch() string {
	if g.BaseBranch == "" {
		return "main"
	}
	return g.BaseBranch
}

// DaemonConfig controls the PTY Daemon Client (C6).
type DaemonConfig struct {
	AutoStart       bool     `yaml:"auto_start"`
	SocketPath      string   `yaml:"socket_path,omitempty"`
	DefaultRuntime  string   `yaml:"default_runtime,omitempty"` // "terminal" or "daemon"
	ReadyTimeout    Duration `yaml:"ready_timeout,omitempty"`
	PreferredTerm   string   `yaml:"preferred_terminal,omitempty"`
}

// AgentEntry is one entry of the agent registry (spec.md §9 "Dynamic
// dispatch over agents"): command template plus resume/task-list
// capability flags. Adding an agent is a data change to kild.yaml, not
// a code change.
type AgentEntry struct {
	Name             string   `yaml:"name"`
	Command          string   `yaml:"command"`
	Args             []string `yaml:"args,omitempty"`
	SupportsResume   bool     `yaml:"supports_resume,omitempty"`
	SupportsTaskList bool     `yaml:"supports_task_list,omitempty"`
	ResumeFlag       string   `yaml:"resume_flag,omitempty"`       // e.g. "--resume"
	SessionIDFlag    string   `yaml:"session_id_flag,omitempty"`   // e.g. "--session-id"
	TaskListEnvVar   string   `yaml:"task_list_env_var,omitempty"` // e.g. "KILD_TASK_LIST_ID"
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "10s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// DefaultReadyTimeout is how long EnsureRunning waits for an auto-started
// daemon to answer its socket (spec.md §4.6).
const DefaultReadyTimeout = 5 * time.Second

// EffectiveReadyTimeout returns the configured ready timeout or the default.
func (d DaemonConfig) EffectiveReadyTimeout() time.Duration {
	if d.ReadyTimeout == 0 {
		return DefaultReadyTimeout
	}
	return d.ReadyTimeout.Duration()
}

// Load reads and parses a kild.yaml file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// Validate checks the config for internal consistency. Unlike the
// teacher's pipeline config (which requires at least one concern), an
// empty kild.yaml is valid: the engine falls back to the BareShell
// sentinel and stdlib defaults.
func Validate(cfg *Config) []error {
	var errs []error

	names := make(map[string]bool)
	for i, a := range cfg.Agents {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: name is required", i))
			continue
		}
		if a.Name == "shell" {
			errs = append(errs, fmt.Errorf("agents[%d]: %q is reserved for the bare-shell sentinel", i, a.Name))
		}
		if names[a.Name] {
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate agent name %q", i, a.Name))
		}
		names[a.Name] = true
		if a.Command == "" {
			errs = append(errs, fmt.Errorf("agents[%d] (%s): command is required", i, a.Name))
		}
		if a.SupportsResume && a.ResumeFlag == "" {
			errs = append(errs, fmt.Errorf("agents[%d] (%s): supports_resume requires resume_flag", i, a.Name))
		}
	}

	return errs
}

// HasAgent reports whether name is registered (case-sensitive, matching
// spec.md §3.1 invariant 7's "present in the configured agent registry").
func (cfg *Config) HasAgent(name string) bool {
	for _, a := range cfg.Agents {
		if a.Name == name {
			return true
		}
	}
	return false
}

// AgentEntryByName looks up a registered agent by name.
func (cfg *Config) AgentEntryByName(name string) (AgentEntry, bool) {
	for _, a := range cfg.Agents {
		if a.Name == name {
			return a, true
		}
	}
	return AgentEntry{}, false
}
