package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %s: %v", args, out, err)
		}
	}
	run("init", "-q", "-b", "main")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "test")
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	run("add", "-A")
	run("commit", "-q", "-m", "initial")
	return dir
}

func TestCreateWorktreeNewBranch(t *testing.T) {
	dir := initRepo(t)
	shardsDir := filepath.Join(dir, "shards")

	repo := NewRepo(dir)
	result, err := repo.CreateWorktree(shardsDir, "myproject", "feature/x", "origin", "main", false)
	if err != nil {
		t.Fatalf("CreateWorktree: %v", err)
	}
	if result.Branch != "feature/x" {
		t.Fatalf("got branch %q", result.Branch)
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Fatalf("worktree path not created: %v", err)
	}
	if filepath.Base(result.Path) != "feature_x" {
		t.Fatalf("expected sanitized branch dir name, got %q", filepath.Base(result.Path))
	}
}

func TestRemoveWorktreeByPathMissingIsSuccess(t *testing.T) {
	dir := initRepo(t)
	repo := NewRepo(dir)
	if err := repo.RemoveWorktreeByPath(filepath.Join(dir, "no-such-worktree")); err != nil {
		t.Fatalf("expected success removing missing worktree, got %v", err)
	}
}

func TestGetDiffStatsNoChanges(t *testing.T) {
	dir := initRepo(t)
	stats, err := GetDiffStats(dir)
	if err != nil {
		t.Fatalf("GetDiffStats: %v", err)
	}
	if stats.FilesChanged != 0 {
		t.Fatalf("expected no changes, got %+v", stats)
	}
}

func TestGetDiffStatsWithChanges(t *testing.T) {
	dir := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\nworld\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stats, err := GetDiffStats(dir)
	if err != nil {
		t.Fatalf("GetDiffStats: %v", err)
	}
	if stats.FilesChanged != 1 || stats.Insertions != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestGetWorktreeStatusNoRemote(t *testing.T) {
	dir := initRepo(t)
	status, err := GetWorktreeStatus(dir, "origin")
	if err != nil {
		t.Fatalf("GetWorktreeStatus: %v", err)
	}
	if status.HasRemoteBranch {
		t.Fatal("expected no remote-tracking branch")
	}
	if !status.BehindCountFailed {
		t.Fatal("expected BehindCountFailed when there is no remote-tracking branch")
	}
}

func TestDetectProjectAt(t *testing.T) {
	dir := initRepo(t)
	resolve := func(p string) (string, string, error) { return "id-"+filepath.Base(p), p, nil }
	info, err := DetectProjectAt(resolve, dir)
	if err != nil {
		t.Fatalf("DetectProjectAt: %v", err)
	}
	if info.Path != dir {
		t.Fatalf("got path %q, want %q", info.Path, dir)
	}
}
