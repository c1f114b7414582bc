// Package terminal implements the Terminal Adapter (spec.md §4.7, C7):
// spawning a command in an external terminal window and, best-effort,
// closing it again by window id.
package terminal

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/procutil"
)

// pidReadMaxAttempts / pidReadInitialDelay bound the PID-file-with-retry
// wait after a terminal spawn (spec.md §4.2, §4.7).
const (
	pidReadMaxAttempts  = 20
	pidReadInitialDelay = 100 * time.Millisecond
)

// SpawnResult is what Spawn returns (spec.md §4.7).
type SpawnResult struct {
	TerminalType     model.TerminalType
	ProcessID        int
	ProcessName      string
	ProcessStartTime time.Time
	TerminalWindowID string
	CommandExecuted  string
}

// detectFn is swappable in tests.
var detectFn = detectAvailable

// Spawn launches command (in workingDir) inside preferred's terminal
// application, falling back to auto-detection if preferred is empty or
// unavailable. If shardsDir is non-empty, the PID-capture-via-wrapper
// strategy is used (spec.md §4.7); otherwise Spawn itself falls back to
// a process-table scan for the command's PID.
func Spawn(workingDir, command string, preferred model.TerminalType, spawnID, shardsDir string) (*SpawnResult, error) {
	terminalType := preferred
	if terminalType == "" || !isAvailable(terminalType) {
		terminalType = detectFn()
	}

	execCommand := command
	var pidFile string
	if shardsDir != "" {
		pidFile = fileutil.PIDFile(shardsDir, spawnID)
		if err := fileutil.EnsureDir(fileutil.PIDsDir(shardsDir)); err != nil {
			return nil, &kilderr.IOError{Op: "mkdir pids dir", Err: err}
		}
		execCommand = procutil.WrapCommandWithPIDCapture(command, pidFile)
	}

	windowID, err := openWindow(terminalType, workingDir, execCommand)
	if err != nil {
		return nil, &kilderr.TerminalSpawnError{Err: err}
	}

	result := &SpawnResult{
		TerminalType:     terminalType,
		TerminalWindowID: windowID,
		CommandExecuted:  command,
	}

	if pidFile != "" {
		pid, ok, readErr := procutil.ReadPIDFileWithRetry(pidFile, pidReadMaxAttempts, pidReadInitialDelay)
		if readErr == nil && ok {
			result.ProcessID = pid
			if info, infoErr := procutil.GetInfo(pid); infoErr == nil {
				result.ProcessName = info.Name
				result.ProcessStartTime = info.StartTime
			}
		}
	} else if pid, name, start, ok := scanProcessTable(command); ok {
		result.ProcessID = pid
		result.ProcessName = name
		result.ProcessStartTime = start
	}

	return result, nil
}

// Close asks the terminal application to close windowID. Best-effort:
// failures are swallowed, and a missing windowID is skipped outright
// rather than guessing which window to close (spec.md §4.7).
func Close(terminalType model.TerminalType, windowID string) {
	if windowID == "" {
		return
	}
	_ = closeWindow(terminalType, windowID)
}

// Focus brings windowID to the foreground. Best-effort and a no-op for
// terminal types with no window-enumeration hook (native, empty id).
func Focus(terminalType model.TerminalType, windowID string) {
	if windowID == "" {
		return
	}
	switch terminalType {
	case model.TerminalTmux:
		_ = exec.Command("tmux", "select-window", "-t", windowID).Run()
	case model.TerminalMacTerminal, model.TerminalITerm:
		script := fmt.Sprintf(`tell application %q to set index of (first window whose id is %s) to 1
activate application %q`, appName(terminalType), windowID, appName(terminalType))
		_ = exec.Command("osascript", "-e", script).Run()
	}
}

// Hide minimizes windowID out of the way without closing it. Best-effort
// and a no-op for terminal types with no window-enumeration hook.
func Hide(terminalType model.TerminalType, windowID string) {
	if windowID == "" {
		return
	}
	switch terminalType {
	case model.TerminalMacTerminal, model.TerminalITerm:
		script := fmt.Sprintf(`tell application %q to set miniaturized of (first window whose id is %s) to true`, appName(terminalType), windowID)
		_ = exec.Command("osascript", "-e", script).Run()
	}
}

func isAvailable(t model.TerminalType) bool {
	switch t {
	case model.TerminalNative:
		return true
	case model.TerminalTmux:
		_, err := exec.LookPath("tmux")
		return err == nil
	case model.TerminalMacTerminal, model.TerminalITerm:
		_, err := exec.LookPath("osascript")
		return err == nil
	default:
		return false
	}
}

func detectAvailable() model.TerminalType {
	for _, t := range []model.TerminalType{model.TerminalITerm, model.TerminalMacTerminal, model.TerminalTmux} {
		if isAvailable(t) {
			return t
		}
	}
	return model.TerminalNative
}

func openWindow(t model.TerminalType, workingDir, command string) (windowID string, err error) {
	switch t {
	case model.TerminalTmux:
		return openTmuxWindow(workingDir, command)
	case model.TerminalMacTerminal:
		return openAppleScriptWindow("Terminal", workingDir, command)
	case model.TerminalITerm:
		return openAppleScriptWindow("iTerm", workingDir, command)
	default:
		return openNative(workingDir, command)
	}
}

func closeWindow(t model.TerminalType, windowID string) error {
	switch t {
	case model.TerminalTmux:
		return exec.Command("tmux", "kill-window", "-t", windowID).Run()
	case model.TerminalMacTerminal, model.TerminalITerm:
		script := fmt.Sprintf(`tell application %q to close (every window whose id is %s)`, appName(t), windowID)
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

func appName(t model.TerminalType) string {
	if t == model.TerminalITerm {
		return "iTerm"
	}
	return "Terminal"
}

// openNative forks a detached background process as the fallback when no
// terminal-emulator integration is available; there is no window to track.
func openNative(workingDir, command string) (string, error) {
	cmd := exec.Command("/bin/sh", "-c", command)
	cmd.Dir = workingDir
	if err := cmd.Start(); err != nil {
		return "", err
	}
	_ = cmd.Process.Release()
	return "", nil
}

func openTmuxWindow(workingDir, command string) (string, error) {
	out, err := exec.Command("tmux", "new-window", "-P", "-F", "#{window_id}", "-c", workingDir, command).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func openAppleScriptWindow(app, workingDir, command string) (string, error) {
	fullCommand := fmt.Sprintf("cd %s && %s", shellQuote(workingDir), command)
	script := fmt.Sprintf(`
tell application %q
	activate
	set newWindow to do script %q
	return id of window 1
end tell`, app, fullCommand)
	out, err := exec.Command("osascript", "-e", script).Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
