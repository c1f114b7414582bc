// Package engine implements the Kild Lifecycle Engine (spec.md §4.8,
// C8): the state machine binding session files, git worktrees, OS
// processes, and terminal/PTY windows into one coherent abstraction.
// It composes the Path Resolver, Process Probe, Git Worktree Manager,
// Port Allocator, Session Store, PTY Daemon Client, Terminal Adapter,
// and Event Bus packages; it owns no on-disk format or wire protocol of
// its own.
package engine

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/re-cinq/kild/internal/config"
	"github.com/re-cinq/kild/internal/events"
	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/git"
	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/pathutil"
	"github.com/re-cinq/kild/internal/ports"
	"github.com/re-cinq/kild/internal/ptydaemon"
	"github.com/re-cinq/kild/internal/store"
)

// Notifier raises a best-effort desktop notification. Engine.Notify is
// nil-safe: a nil Notifier silently disables notifications rather than
// forcing every caller to supply one (spec.md §4.8.9).
type Notifier interface {
	Notify(title, body string) error
}

// Engine is the lifecycle engine (spec.md's "C8 hub"). One Engine
// instance owns one shards directory; the CLI/GUI consumer constructs
// it once at startup.
type Engine struct {
	ShardsDir string
	Config    *config.Config
	Store     *store.Store
	Bus       *events.Bus
	Daemon    *ptydaemon.Client
	Notifier  Notifier
}

// New wires an Engine from its shards directory, config, and daemon
// socket path. The caller is responsible for also starting an
// events.Watcher against fileutil.SessionsDir(shardsDir) if it wants
// filesystem-change notifications.
func New(shardsDir string, cfg *config.Config, bus *events.Bus, daemonSocket, daemonBinary string) *Engine {
	return &Engine{
		ShardsDir: shardsDir,
		Config:    cfg,
		Store:     store.New(shardsDir),
		Bus:       bus,
		Daemon:    ptydaemon.NewClient(daemonSocket, daemonBinary),
	}
}

// AgentModeKind selects how Create/Open/Restart resolve the agent and
// command to run (spec.md §4.8.2, §9 "Dynamic dispatch over agents").
type AgentModeKind int

const (
	// AgentModeDefault resolves to the configured default agent.
	AgentModeDefault AgentModeKind = iota
	// AgentModeBareShell runs $SHELL with the agent label "shell".
	AgentModeBareShell
	// AgentModeNamed resolves a specific registered agent by name.
	AgentModeNamed
)

// AgentMode is the resolved-or-to-resolve agent selection for a spawn.
type AgentMode struct {
	Kind AgentModeKind
	Name string // used when Kind == AgentModeNamed
}

// BareShell is the sentinel agent mode for a plain shell session.
var BareShell = AgentMode{Kind: AgentModeBareShell}

// DefaultAgentMode resolves to the configured default agent.
var DefaultAgentMode = AgentMode{Kind: AgentModeDefault}

// NamedAgent resolves a specific registered agent.
func NamedAgent(name string) AgentMode { return AgentMode{Kind: AgentModeNamed, Name: name} }

// resolvedAgent is what resolveAgentMode produces: the agent label to
// persist on the Kild, the binary/command to run, its base args, the
// registry entry (zero value for BareShell), and whether this is a
// bare-shell spawn (which skips resume/session-id/task-list handling).
type resolvedAgent struct {
	Label     string
	Command   string
	Args      []string
	Entry     config.AgentEntry
	BareShell bool
}

// resolveAgentMode implements spec.md §4.8.2 step 1 / §4.8.3 step 2.
func (e *Engine) resolveAgentMode(mode AgentMode, fallbackLabel string) (resolvedAgent, error) {
	switch mode.Kind {
	case AgentModeBareShell:
		label := fallbackLabel
		if label == "" {
			label = "shell"
		}
		return resolvedAgent{Label: label, Command: shellCommand(), BareShell: true}, nil
	case AgentModeNamed:
		if mode.Name == "shell" {
			return e.resolveAgentMode(BareShell, fallbackLabel)
		}
		entry, ok := e.Config.AgentEntryByName(mode.Name)
		if !ok {
			return resolvedAgent{}, &kilderr.InvalidAgentError{Agent: mode.Name}
		}
		return resolvedAgent{Label: entry.Name, Command: entry.Command, Args: entry.Args, Entry: entry}, nil
	default: // AgentModeDefault
		name := e.Config.DefaultAgent
		if name == "" && len(e.Config.Agents) == 1 {
			name = e.Config.Agents[0].Name
		}
		if name == "" {
			return resolvedAgent{}, &kilderr.InvalidAgentError{Agent: "default"}
		}
		return e.resolveAgentMode(NamedAgent(name), fallbackLabel)
	}
}

// shellCommand resolves $SHELL, degrading to /bin/sh with a warning
// rather than failing (spec.md §6.4).
func shellCommand() string {
	sh := os.Getenv("SHELL")
	if sh == "" {
		fmt.Fprintln(os.Stderr, "kild: $SHELL is not set, falling back to /bin/sh")
		return "/bin/sh"
	}
	return sh
}

// resolveProject implements the project-detection half of spec.md
// §4.3/§4.8.2 step 3: explicit path if supplied, else cwd.
func (e *Engine) resolveProject(explicitPath string) (*git.ProjectInfo, error) {
	if explicitPath != "" {
		return git.DetectProjectAt(pathutil.CanonicalProjectID, explicitPath)
	}
	return git.DetectProject(pathutil.CanonicalProjectID)
}

// occupiedRanges converts every non-destroyed persisted kild's port
// window into a ports.Range, for feeding to ports.Allocate (spec.md
// §4.4). Completed kilds' files no longer exist once Complete/Destroy
// have run (§9 Open Questions: "source removes the file on complete"),
// so load_all's result is already the correct occupancy set.
func occupiedRanges(kilds []*model.Kild) []ports.Range {
	out := make([]ports.Range, 0, len(kilds))
	for _, k := range kilds {
		out = append(out, ports.Range{Start: k.PortStart, End: k.PortEnd})
	}
	return out
}

// collectEnv gathers the environment variables the engine honours
// (spec.md §6.4) plus any caller-supplied extras (e.g. a task-list env
// var), for handing to a daemon-managed spawn.
func collectEnv(extra map[string]string) map[string]string {
	env := map[string]string{}
	for _, name := range []string{"PATH", "HOME", "SHELL", "USER", "LANG", "TERM"} {
		if v := os.Getenv(name); v != "" {
			env[name] = v
		}
	}
	for k, v := range extra {
		env[k] = v
	}
	return env
}

// shellJoin builds a shell command line from command and args, single-
// quoting any arg that holds characters outside a conservative safe set
// so it reaches the agent as one argument. It matches ptydaemon's own
// shellJoin used to build a -c script; kept separate since the engine
// needs it to build the terminal-path command line too.
func shellJoin(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = a
		if a == "" || strings.Trim(a, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-") != "" {
			quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
	}
	return command + " " + strings.Join(quoted, " ")
}

// appendActivity is a best-effort audit-trail write (SPEC_FULL.md §3,
// "Per-kild activity log"): never blocks or fails the caller.
func (e *Engine) appendActivity(kildID, op, outcome string) {
	line := fmt.Sprintf("%s %s", op, outcome)
	_ = e.Store.AppendActivity(kildID, line)
}

// removePIDFile best-effort deletes a spawn's captured-PID file; a
// missing file is not an error worth surfacing.
func (e *Engine) removePIDFile(spawnID string) {
	_ = os.Remove(fileutil.PIDFile(e.ShardsDir, spawnID))
}

func (e *Engine) publish(ev events.Event) {
	if e.Bus != nil {
		e.Bus.Publish(ev)
	}
}

// newSessionID mints a fresh resume handle (spec.md §4.8.3 step 5).
func newSessionID() string { return uuid.NewString() }

// now is a seam for tests; production code always uses time.Now.
var now = func() time.Time { return time.Now().UTC() }
