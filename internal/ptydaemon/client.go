package ptydaemon

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os/exec"
	"time"

	"github.com/re-cinq/kild/internal/kilderr"
)

// Client is the engine's handle to a (possibly not-yet-running) PTY
// daemon listening on a local Unix socket (spec.md §4.6).
type Client struct {
	SocketPath  string
	DaemonPath  string // path to the kild-ptyd binary, used by EnsureRunning
	DialTimeout time.Duration
}

// NewClient returns a Client for the daemon socket at socketPath.
func NewClient(socketPath, daemonPath string) *Client {
	return &Client{SocketPath: socketPath, DaemonPath: daemonPath, DialTimeout: time.Second}
}

func (c *Client) dial() (net.Conn, error) {
	timeout := c.DialTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return net.DialTimeout("unix", c.SocketPath, timeout)
}

func (c *Client) roundTrip(req *Request) (*Response, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, &kilderr.DaemonUnreachableError{Err: err}
	}
	defer conn.Close()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, &kilderr.DaemonUnreachableError{Err: err}
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, &kilderr.DaemonUnreachableError{Err: err}
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decoding daemon response: %w", err)
	}
	if !resp.OK {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

func (c *Client) ping() error {
	_, err := c.roundTrip(&Request{Op: opPing})
	return err
}

// EnsureRunning checks the socket and, if autoStart is true and the
// daemon is not responding, spawns it and waits up to readyTimeout for
// it to come up (spec.md §4.6).
func (c *Client) EnsureRunning(autoStart bool, readyTimeout time.Duration) error {
	if c.ping() == nil {
		return nil
	}
	if !autoStart {
		return &kilderr.DaemonUnreachableError{Err: fmt.Errorf("daemon not running and auto_start disabled")}
	}

	cmd := exec.Command(c.DaemonPath, "--socket", c.SocketPath)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return &kilderr.DaemonUnreachableError{Err: fmt.Errorf("spawning daemon: %w", err)}
	}
	_ = cmd.Process.Release()

	deadline := time.Now().Add(readyTimeout)
	for time.Now().Before(deadline) {
		if c.ping() == nil {
			return nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return &kilderr.DaemonUnreachableError{Err: fmt.Errorf("daemon did not become ready within %s", readyTimeout)}
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	RequestID     string
	SessionID     string
	KildID        string
	WorkingDir    string
	Command       string
	Args          []string
	Env           map[string]string
	Rows, Cols    int
	UseLoginShell bool
}

// Create starts a PTY session on the daemon and performs early-exit
// detection (spec.md §4.6): if the process has already died ~200ms
// after creation, the session is destroyed and a
// DaemonPtyExitedEarlyError carrying the scrollback tail is returned
// instead of a daemon_session_id that's already dead.
func (c *Client) Create(req *CreateRequest) (daemonSessionID string, err error) {
	resp, err := c.roundTrip(&Request{
		Op:            opCreate,
		RequestID:     req.RequestID,
		SessionID:     req.SessionID,
		KildID:        req.KildID,
		WorkingDir:    req.WorkingDir,
		Command:       req.Command,
		Args:          req.Args,
		Env:           req.Env,
		Rows:          req.Rows,
		Cols:          req.Cols,
		UseLoginShell: req.UseLoginShell,
	})
	if err != nil {
		return "", err
	}
	id := resp.DaemonSessionID

	time.Sleep(earlyExitCheckDelay)

	status, exitCode, statusErr := c.GetSessionInfo(id)
	if statusErr != nil {
		// Could not confirm; assume it's fine rather than mask a
		// transient IPC hiccup as an early-exit failure.
		return id, nil
	}
	if status == StatusStopped {
		tail, _ := c.ReadScrollback(id)
		if len(tail) > scrollbackTailBytes {
			tail = tail[len(tail)-scrollbackTailBytes:]
		}
		_ = c.Destroy(id, true)
		code := 0
		if exitCode != nil {
			code = *exitCode
		}
		return "", &kilderr.DaemonPtyExitedEarlyError{ExitCode: code, ScrollbackTail: string(tail)}
	}
	return id, nil
}

// GetSessionInfo returns the daemon's status and, if stopped, exit code
// for a session.
func (c *Client) GetSessionInfo(id string) (SessionStatus, *int, error) {
	resp, err := c.roundTrip(&Request{Op: opGetStatus, DaemonSessionID: id})
	if err != nil {
		return "", nil, err
	}
	return resp.Status, resp.ExitCode, nil
}

// GetSessionStatus is GetSessionInfo without the exit code.
func (c *Client) GetSessionStatus(id string) (SessionStatus, error) {
	status, _, err := c.GetSessionInfo(id)
	return status, err
}

// ReadScrollback returns the session's buffered output, or nil if the
// session is unknown to the daemon.
func (c *Client) ReadScrollback(id string) ([]byte, error) {
	resp, err := c.roundTrip(&Request{Op: opReadScrollback, DaemonSessionID: id})
	if err != nil {
		return nil, err
	}
	return resp.Scrollback, nil
}

// Stop sends an interrupt to the session's process without tearing down
// the daemon's bookkeeping for it.
func (c *Client) Stop(id string) error {
	_, err := c.roundTrip(&Request{Op: opStop, DaemonSessionID: id})
	return err
}

// Destroy tears down a session. force escalates to SIGKILL.
func (c *Client) Destroy(id string, force bool) error {
	_, err := c.roundTrip(&Request{Op: opDestroy, DaemonSessionID: id, Force: force})
	return err
}
