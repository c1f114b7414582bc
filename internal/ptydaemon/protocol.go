// Package ptydaemon implements the PTY Daemon Client and the daemon's
// session manager (spec.md §4.6, §6.2, C6): a local Unix-socket IPC
// protocol so the engine can create, query, and tear down agent PTY
// sessions owned by a long-lived out-of-process daemon.
package ptydaemon

import "time"

// SessionStatus mirrors the daemon's view of a PTY session's liveness.
type SessionStatus string

const (
	StatusRunning  SessionStatus = "running"
	StatusStopped  SessionStatus = "stopped"
	StatusNotFound SessionStatus = "not_found"
)

// Request is one newline-delimited JSON frame sent over the IPC socket.
// Exactly one of the payload fields is populated, selected by Op.
type Request struct {
	Op              string            `json:"op"`
	RequestID       string            `json:"request_id,omitempty"`
	SessionID       string            `json:"session_id,omitempty"`
	KildID          string            `json:"kild_id,omitempty"`
	WorkingDir      string            `json:"working_directory,omitempty"`
	Command         string            `json:"command,omitempty"`
	Args            []string          `json:"args,omitempty"`
	Env             map[string]string `json:"env,omitempty"`
	Rows            int               `json:"rows,omitempty"`
	Cols            int               `json:"cols,omitempty"`
	UseLoginShell   bool              `json:"use_login_shell,omitempty"`
	DaemonSessionID string            `json:"daemon_session_id,omitempty"`
	Force           bool              `json:"force,omitempty"`
}

// Response is the corresponding reply frame.
type Response struct {
	OK              bool          `json:"ok"`
	Error           string        `json:"error,omitempty"`
	DaemonSessionID string        `json:"daemon_session_id,omitempty"`
	Status          SessionStatus `json:"status,omitempty"`
	ExitCode        *int          `json:"exit_code,omitempty"`
	Scrollback      []byte        `json:"scrollback,omitempty"`
	PID             int           `json:"pid,omitempty"`
}

const (
	opPing           = "ping"
	opCreate         = "create"
	opGetStatus      = "get_status"
	opReadScrollback = "read_scrollback"
	opStop           = "stop"
	opDestroy        = "destroy"
)

// earlyExitCheckDelay is how long Client.Create waits after a successful
// create before probing for an already-exited PTY (spec.md §4.6).
const earlyExitCheckDelay = 200 * time.Millisecond

// scrollbackTailBytes bounds how much scrollback an early-exit error
// carries, so a runaway agent log doesn't blow up the error payload.
const scrollbackTailBytes = 4096
