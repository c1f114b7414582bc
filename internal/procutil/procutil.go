// Package procutil implements the Process Probe (spec.md §4.2, C2):
// liveness checks, PID-reuse-safe kill, and PID file read/write.
package procutil

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/re-cinq/kild/internal/kilderr"
)

// Info is the liveness/identity snapshot GetInfo returns.
type Info struct {
	Name      string
	StartTime time.Time
}

// IsRunning reports whether pid refers to a live process. It mirrors the
// teacher's engine.IsProcessAlive (os.FindProcess + Signal(0)) but
// distinguishes a true permission error from "not found" per spec.md
// §4.2: only a real EPERM surfaces AccessDeniedError.
func IsRunning(pid int) (bool, error) {
	if pid <= 0 {
		return false, nil
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true, nil
	}
	if err == syscall.EPERM {
		return false, &kilderr.AccessDeniedError{PID: pid}
	}
	return false, nil
}

// GetInfo reads the process's command name and start time from procfs.
// start_time is the OS's monotonically-assigned value used as the
// PID-reuse tiebreaker (spec.md §4.2).
func GetInfo(pid int) (*Info, error) {
	running, err := IsRunning(pid)
	if err != nil {
		return nil, err
	}
	if !running {
		return nil, &kilderr.ProcessKillFailedError{PID: pid, Message: "process not found"}
	}
	return readProcInfo(pid)
}

// Kill signals pid with SIGTERM, guarded against PID reuse (spec.md
// §4.2): if expectedName or expectedStartTime is supplied and disagrees
// with the live process's actual identity, Kill returns nil without
// signaling — the PID was recycled by an unrelated process.
func Kill(pid int, expectedName string, expectedStartTime time.Time) error {
	running, err := IsRunning(pid)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}

	if expectedName != "" || !expectedStartTime.IsZero() {
		info, err := readProcInfo(pid)
		if err != nil {
			// Could not confirm identity; treat as already gone rather
			// than risk killing a recycled PID.
			return nil
		}
		if expectedName != "" && info.Name != expectedName {
			return nil
		}
		// Compare at whole-second precision: a Kild persists start times
		// as Unix seconds (model.AgentProcess.SetStartTime).
		if !expectedStartTime.IsZero() && info.StartTime.Unix() != expectedStartTime.Unix() {
			return nil
		}
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if err == syscall.EPERM {
			return &kilderr.AccessDeniedError{PID: pid}
		}
		return &kilderr.ProcessKillFailedError{PID: pid, Message: err.Error()}
	}
	return nil
}

// WritePIDFile writes pid to path as a decimal integer.
func WritePIDFile(path string, pid int) error {
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return &kilderr.IOError{Op: "write pid file " + path, Err: err}
	}
	return nil
}

// ReadPIDFileWithRetry polls for path to appear and contain a valid PID,
// retrying with exponential backoff capped at 8s between attempts
// (spec.md §4.2). Absence after the first attempt plus maxAttempts
// retries is not an error: ok is false.
func ReadPIDFileWithRetry(path string, maxAttempts uint64, initialDelay time.Duration) (pid int, ok bool, err error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialDelay
	b.MaxInterval = 8 * time.Second
	b.MaxElapsedTime = 0 // bounded by WithMaxRetries instead

	bounded := backoff.WithMaxRetries(b, maxAttempts)

	op := func() error {
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		parsed, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr != nil {
			return convErr
		}
		pid = parsed
		return nil
	}

	if retryErr := backoff.Retry(op, bounded); retryErr != nil {
		return 0, false, nil
	}
	return pid, true, nil
}

// WrapCommandWithPIDCapture returns a shell snippet that writes the
// real child PID to pidFile before exec-ing cmd, so the captured PID
// identifies the agent itself rather than an intermediate shell
// (spec.md §4.2).
func WrapCommandWithPIDCapture(cmd, pidFile string) string {
	return fmt.Sprintf("echo $$ > %s; exec %s", shellQuote(pidFile), cmd)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
