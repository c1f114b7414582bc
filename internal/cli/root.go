// Package cli is the thin cobra consumer of the lifecycle engine
// (spec.md §6.3, SPEC_FULL.md §1): one file per subcommand, each
// RunE building an *engine.Engine from kild.yaml and the resolved
// shards directory, then rendering the result. No lifecycle logic
// lives here.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/config"
	"github.com/re-cinq/kild/internal/engine"
	"github.com/re-cinq/kild/internal/events"
	"github.com/re-cinq/kild/internal/fileutil"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	shardsDirFlag string
	configFlag    string
)

var rootCmd = &cobra.Command{
	Use:   "kild",
	Short: "Manage isolated git worktrees running AI coding agents",
	Long: `kild creates, resumes, and tears down isolated development contexts
("kilds"): each pairs a git worktree with a running coding-agent process,
either in an external terminal window or inside a local PTY daemon.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&shardsDirFlag, "shards-dir", "", "Override the shards directory (default ~/.kild)")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to kild.yaml (default <shards-dir>/kild.yaml)")
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kild %s\n", Version)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// resolvedShardsDir honors --shards-dir, then falls back to
// fileutil's ~/.kild-or-~/.shards default (spec.md §6.1).
func resolvedShardsDir() string {
	if shardsDirFlag != "" {
		return shardsDirFlag
	}
	return fileutil.DefaultShardsDir()
}

// loadConfig reads kild.yaml if present; a missing file is not an
// error (spec.md's config doc: "an empty kild.yaml is valid").
func loadConfig(shardsDir string) (*config.Config, error) {
	path := configFlag
	if path == "" {
		path = shardsDir + "/kild.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &config.Config{}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "kild: config warning: %s\n", e)
		}
	}
	return cfg, nil
}

// buildEngine wires an Engine the way every subcommand needs one:
// shards dir resolved, config loaded, a fresh event bus (CLI
// invocations are one-shot processes; there is no long-lived
// subscriber to hand the bus to beyond this command's own run).
func buildEngine() (*engine.Engine, error) {
	shardsDir := resolvedShardsDir()
	if err := fileutil.EnsureDir(fileutil.SessionsDir(shardsDir)); err != nil {
		return nil, fmt.Errorf("preparing shards dir: %w", err)
	}
	cfg, err := loadConfig(shardsDir)
	if err != nil {
		return nil, err
	}
	bus := events.New()
	// Prefer a kild-ptyd installed beside this binary; else look it up on PATH.
	daemonBinary := "kild-ptyd"
	if exe, exeErr := os.Executable(); exeErr == nil {
		sibling := filepath.Join(filepath.Dir(exe), "kild-ptyd")
		if _, statErr := os.Stat(sibling); statErr == nil {
			daemonBinary = sibling
		}
	}
	eng := engine.New(shardsDir, cfg, bus, fileutil.DaemonSocketPath(shardsDir), daemonBinary)
	return eng, nil
}

// agentModeFromFlags implements the shared --agent/--shell selection
// surface used by create/open/restart.
func agentModeFromFlags(agentName string, bareShell bool) engine.AgentMode {
	switch {
	case bareShell:
		return engine.BareShell
	case agentName != "":
		return engine.NamedAgent(agentName)
	default:
		return engine.DefaultAgentMode
	}
}

// runtimeModeFromFlags implements the shared --daemon/--no-daemon override.
func runtimeModeFromFlags(daemon, noDaemon bool) (mode string) {
	switch {
	case daemon:
		return "daemon"
	case noDaemon:
		return "terminal"
	default:
		return ""
	}
}
