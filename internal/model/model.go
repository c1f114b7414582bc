// Package model holds the kild core's persisted data shapes: Project,
// Kild, AgentProcess and AgentStatusInfo (spec.md §3.1). These are plain
// structs with JSON tags; all mutation and validation logic that needs
// more than the struct itself lives in the owning component package
// (engine, store, git) to keep this package free of import cycles —
// kilds carry project_id, never a *Project back-reference (spec.md §9,
// "Cyclic references").
package model

import "time"

// Status is a Kild's lifecycle status (spec.md §3.1, §4.8.1).
type Status string

const (
	StatusActive    Status = "active"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
)

// RuntimeMode selects whether a kild's agents run inside an external
// terminal window or inside a daemon-owned PTY (spec.md §3.1).
type RuntimeMode string

const (
	RuntimeTerminal RuntimeMode = "terminal"
	RuntimeDaemon   RuntimeMode = "daemon"
)

// TerminalType identifies the concrete terminal application a terminal
// spawn used (spec.md §4.7).
type TerminalType string

const (
	TerminalNative      TerminalType = "native"
	TerminalMacTerminal TerminalType = "terminal_app"
	TerminalITerm       TerminalType = "iterm"
	TerminalTmux        TerminalType = "tmux"
)

// Project is a registered git repository root (spec.md §3.1).
type Project struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Name string `json:"name"`
}

// AgentProcess is one spawn attempt of the agent inside a kild
// (spec.md §3.1). Exactly one of the terminal-variant fields
// (ProcessID/ProcessName/ProcessStartTime/TerminalType/TerminalWindowID)
// or the daemon-variant field (DaemonSessionID) is populated.
type AgentProcess struct {
	Agent    string    `json:"agent"`
	SpawnID  string    `json:"spawn_id"`
	Command  string    `json:"command"`
	CreatedAt time.Time `json:"created_at"`

	// Terminal variant.
	ProcessID         int          `json:"process_id,omitempty"`
	ProcessName       string       `json:"process_name,omitempty"`
	ProcessStartTime  int64        `json:"process_start_time,omitempty"`
	TerminalType      TerminalType `json:"terminal_type,omitempty"`
	TerminalWindowID  string       `json:"terminal_window_id,omitempty"`

	// Daemon variant.
	DaemonSessionID string `json:"daemon_session_id,omitempty"`
}

// IsDaemon reports whether this spawn is daemon-managed rather than a
// terminal-window spawn.
func (a *AgentProcess) IsDaemon() bool { return a.DaemonSessionID != "" }

// StartTime decodes ProcessStartTime as a time.Time for comparison
// against procutil's PID-reuse guard.
func (a *AgentProcess) StartTime() time.Time {
	if a.ProcessStartTime == 0 {
		return time.Time{}
	}
	return time.Unix(a.ProcessStartTime, 0)
}

// SetStartTime encodes t into ProcessStartTime.
func (a *AgentProcess) SetStartTime(t time.Time) {
	if t.IsZero() {
		a.ProcessStartTime = 0
		return
	}
	a.ProcessStartTime = t.Unix()
}

// Kild is one development context: a branch, a worktree, and its
// agent(s) (spec.md §3.1).
type Kild struct {
	ID            string      `json:"id"`
	ProjectID     string      `json:"project_id"`
	Branch        string      `json:"branch"`
	WorktreePath  string      `json:"worktree_path"`
	Agent         string      `json:"agent"`
	Status        Status      `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	LastActivity  time.Time   `json:"last_activity"`
	PortStart     int         `json:"port_start"`
	PortEnd       int         `json:"port_end"`
	Note          string      `json:"note,omitempty"`
	AgentSessionID string     `json:"agent_session_id,omitempty"`
	TaskListID    string      `json:"task_list_id,omitempty"`
	RuntimeMode   RuntimeMode `json:"runtime_mode,omitempty"`
	Agents        []AgentProcess `json:"agents"`
}

// PortRange returns the kild's reserved [start, end] inclusive port window.
func (k *Kild) PortRange() (start, end int) { return k.PortStart, k.PortEnd }

// LatestAgent returns the most recent AgentProcess, or nil if Agents is empty.
func (k *Kild) LatestAgent() *AgentProcess {
	if len(k.Agents) == 0 {
		return nil
	}
	return &k.Agents[len(k.Agents)-1]
}

// NextSpawnID returns the spawn id a new AgentProcess appended to this
// kild would receive (spec.md GLOSSARY: "<kild_id>_<index>").
func (k *Kild) NextSpawnID() string {
	return SpawnID(k.ID, len(k.Agents))
}

// SpawnID builds the conventional spawn id for a kild id and index.
func SpawnID(kildID string, index int) string {
	return kildID + "_" + itoa(index)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// AgentStatusValue is the activity indicator an agent reports via its hook
// (spec.md §3.1 AgentStatusInfo).
type AgentStatusValue string

const (
	AgentStatusIdle    AgentStatusValue = "idle"
	AgentStatusWorking AgentStatusValue = "working"
	AgentStatusWaiting AgentStatusValue = "waiting"
	AgentStatusError   AgentStatusValue = "error"
)

// AgentStatusInfo is the sidecar activity record for a kild, stored in its
// own file so the agent hook never contends with Session Store writers
// (spec.md §3.1, §4.8.9).
type AgentStatusInfo struct {
	Status    AgentStatusValue `json:"status"`
	UpdatedAt time.Time        `json:"updated_at"`
}
