package fileutil

import (
	"os"
	"path/filepath"
)

// DefaultShardsDirName is the default top-level directory name under the
// user's home directory (spec.md §6.1: "~/.kild (or ~/.shards in older
// data)").
const DefaultShardsDirName = ".kild"

// LegacyShardsDirName is the pre-rename directory name still honored for
// migration (spec.md §6.1).
const LegacyShardsDirName = ".shards"

// DefaultShardsDir resolves the default shards directory: ~/.kild,
// falling back to ~/.shards if that's the only one present on disk.
func DefaultShardsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultShardsDirName
	}
	current := filepath.Join(home, DefaultShardsDirName)
	if _, err := os.Stat(current); err == nil {
		return current
	}
	legacy := filepath.Join(home, LegacyShardsDirName)
	if _, err := os.Stat(legacy); err == nil {
		return legacy
	}
	return current
}

// SessionsDir returns the sessions/ subdirectory of a shards dir.
func SessionsDir(shardsDir string) string { return filepath.Join(shardsDir, "sessions") }

// SessionFile returns the path to a kild's main JSON session file.
func SessionFile(shardsDir, kildID string) string {
	return filepath.Join(SessionsDir(shardsDir), kildID+".json")
}

// StatusSidecarFile returns the path to a kild's agent-status sidecar file.
func StatusSidecarFile(shardsDir, kildID string) string {
	return filepath.Join(SessionsDir(shardsDir), kildID+".status.json")
}

// ActivityLogFile returns the path to a kild's audit-trail log file
// (SPEC_FULL.md §3, "Per-kild activity log").
func ActivityLogFile(shardsDir, kildID string) string {
	return filepath.Join(SessionsDir(shardsDir), kildID+".log")
}

// WorktreesDir returns the worktrees/ subdirectory of a shards dir.
func WorktreesDir(shardsDir string) string { return filepath.Join(shardsDir, "worktrees") }

// WorktreePath returns the expected worktree path for a project/branch
// pair (spec.md §4.3 step 4): <shards>/worktrees/<project-name>/<branch
// with '/' replaced by '_'>.
func WorktreePath(shardsDir, projectName, branch string) string {
	return filepath.Join(WorktreesDir(shardsDir), projectName, sanitizeBranchDir(branch))
}

func sanitizeBranchDir(branch string) string {
	out := make([]rune, 0, len(branch))
	for _, r := range branch {
		if r == '/' {
			out = append(out, '_')
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// PIDsDir returns the pids/ subdirectory of a shards dir.
func PIDsDir(shardsDir string) string { return filepath.Join(shardsDir, "pids") }

// PIDFile returns the path to a spawn's captured-PID file.
func PIDFile(shardsDir, spawnID string) string {
	return filepath.Join(PIDsDir(shardsDir), spawnID+".pid")
}

// ProjectsFile returns the path to the registered-projects file.
func ProjectsFile(shardsDir string) string { return filepath.Join(shardsDir, "projects.json") }

// DaemonSocketPath returns the default PTY daemon socket path under a
// shards dir (spec.md §6.2).
func DaemonSocketPath(shardsDir string) string { return filepath.Join(shardsDir, "ptyd.sock") }

// DaemonPIDFile returns the path to the running daemon's own PID file,
// used by the `daemon stop` CLI subcommand to find a process to signal.
func DaemonPIDFile(shardsDir string) string { return filepath.Join(shardsDir, "ptyd.pid") }
