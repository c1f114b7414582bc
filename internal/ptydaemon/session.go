package ptydaemon

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	"github.com/google/uuid"
)

// maxScrollbackBytes caps the in-memory scrollback ring per session so a
// chatty agent cannot grow the daemon's memory unbounded.
const maxScrollbackBytes = 1 << 20 // 1 MiB

// session is the daemon's live record of one PTY-backed process.
type session struct {
	mu sync.Mutex

	id      string
	kildID  string
	cmd     *exec.Cmd
	ptmx    *os.File
	scroll  bytes.Buffer
	exited  bool
	exitErr error
	exitCh  chan struct{}
}

func newSession(kildID string, cmd *exec.Cmd, ptmx *os.File) *session {
	return &session{
		id:     uuid.NewString(),
		kildID: kildID,
		cmd:    cmd,
		ptmx:   ptmx,
		exitCh: make(chan struct{}),
	}
}

// pump copies PTY output into the scrollback ring until the PTY closes,
// then records the process's exit. Runs in its own goroutine per
// session, grounded on the teacher's invokeAgent pattern of pumping
// pty.Open's master into an io.Writer (internal/engine/engine.go).
func (s *session) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.scroll.Write(buf[:n])
			if s.scroll.Len() > maxScrollbackBytes {
				trimmed := s.scroll.Bytes()[s.scroll.Len()-maxScrollbackBytes:]
				s.scroll.Reset()
				s.scroll.Write(trimmed)
			}
			s.mu.Unlock()
		}
		if err != nil {
			break
		}
	}

	waitErr := s.cmd.Wait()
	s.mu.Lock()
	s.exited = true
	s.exitErr = waitErr
	s.mu.Unlock()
	close(s.exitCh)
}

func (s *session) status() (SessionStatus, *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exited {
		return StatusRunning, nil
	}
	code := exitCodeFromWaitErr(s.exitErr, s.cmd)
	return StatusStopped, &code
}

func exitCodeFromWaitErr(err error, cmd *exec.Cmd) int {
	if err == nil {
		if cmd.ProcessState != nil {
			return cmd.ProcessState.ExitCode()
		}
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func (s *session) scrollbackTail(n int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.scroll.Bytes()
	if n <= 0 || n >= len(all) {
		out := make([]byte, len(all))
		copy(out, all)
		return out
	}
	out := make([]byte, n)
	copy(out, all[len(all)-n:])
	return out
}

func (s *session) stop() error {
	s.mu.Lock()
	proc := s.cmd.Process
	s.mu.Unlock()
	if proc == nil {
		return nil
	}
	return proc.Signal(os.Interrupt)
}

func (s *session) destroy(force bool) error {
	s.mu.Lock()
	proc := s.cmd.Process
	ptmx := s.ptmx
	s.mu.Unlock()
	if proc != nil {
		if force {
			_ = proc.Kill()
		} else {
			_ = proc.Signal(os.Interrupt)
		}
	}
	if ptmx != nil {
		_ = ptmx.Close()
	}
	return nil
}

// createSession opens a PTY and starts command inside it, grounded on
// the teacher's pty.Open-based agent invocation (internal/engine/engine.go,
// invokeAgent) but long-lived and daemon-owned rather than one-shot.
func createSession(req *Request) (*session, error) {
	shell := req.Command
	args := req.Args
	if req.UseLoginShell {
		loginShell := os.Getenv("SHELL")
		if loginShell == "" {
			loginShell = "/bin/sh"
		}
		if req.Command == "" && len(req.Args) == 0 {
			// Bare interactive login shell: no -c script to run.
			args = []string{"-l"}
		} else {
			args = []string{"-l", "-c", shellJoin(req.Command, req.Args)}
		}
		shell = loginShell
	}

	cmd := exec.Command(shell, args...)
	cmd.Dir = req.WorkingDir
	cmd.Env = os.Environ()
	for k, v := range req.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}

	rows, cols := req.Rows, req.Cols
	if rows <= 0 {
		rows = 24
	}
	if cols <= 0 {
		cols = 80
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	if err != nil {
		return nil, fmt.Errorf("opening pty: %w", err)
	}

	s := newSession(req.KildID, cmd, ptmx)
	go s.pump()
	return s, nil
}

func shellJoin(command string, args []string) string {
	out := command
	for _, a := range args {
		if a == "" || strings.Trim(a, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_@%+=:,./-") != "" {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		out += " " + a
	}
	return out
}
