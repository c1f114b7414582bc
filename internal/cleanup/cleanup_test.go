package cleanup

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/model"
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

func testKild(id, projectID, branch string, status model.Status, portStart, portEnd int) *model.Kild {
	return &model.Kild{
		ID:           id,
		ProjectID:    projectID,
		Branch:       branch,
		Status:       status,
		PortStart:    portStart,
		PortEnd:      portEnd,
		LastActivity: time.Now().UTC(),
	}
}

func TestRunNoPIDRemovesPIDlessSessions(t *testing.T) {
	shardsDir := t.TempDir()
	r := New(shardsDir)

	withPID := testKild("p_a", "proj1", "a", model.StatusActive, 3000, 3009)
	withPID.Agents = []model.AgentProcess{{SpawnID: "p_a_0", ProcessID: 12345}}
	withPID.WorktreePath = t.TempDir()
	if err := r.Store.Save(withPID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	withoutPID := testKild("p_b", "proj1", "b", model.StatusActive, 3010, 3019)
	withoutPID.Agents = []model.AgentProcess{{SpawnID: "p_b_0"}}
	withoutPID.WorktreePath = t.TempDir()
	if err := r.Store.Save(withoutPID); err != nil {
		t.Fatalf("Save: %v", err)
	}

	result, err := r.Run(Options{Strategy: NoPID})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.RemovedSessionIDs) != 1 || result.RemovedSessionIDs[0] != "p_b" {
		t.Fatalf("RemovedSessionIDs: got %v, want [p_b]", result.RemovedSessionIDs)
	}

	if loaded, _ := r.Store.Load("p_a"); loaded == nil {
		t.Error("p_a should not have been removed")
	}
	if loaded, _ := r.Store.Load("p_b"); loaded != nil {
		t.Error("p_b should have been removed")
	}
}

func TestRunOlderThanRespectsCutoff(t *testing.T) {
	shardsDir := t.TempDir()
	r := New(shardsDir)

	fresh := testKild("p_fresh", "proj1", "fresh", model.StatusStopped, 3000, 3009)
	fresh.WorktreePath = t.TempDir()
	fresh.LastActivity = time.Now().UTC()
	if err := r.Store.Save(fresh); err != nil {
		t.Fatalf("Save: %v", err)
	}

	old := testKild("p_old", "proj1", "old", model.StatusStopped, 3010, 3019)
	old.WorktreePath = t.TempDir()
	old.LastActivity = time.Now().UTC().AddDate(0, 0, -30)
	if err := r.Store.Save(old); err != nil {
		t.Fatalf("Save: %v", err)
	}

	result, err := r.Run(Options{Strategy: OlderThan, OlderThanDays: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.RemovedSessionIDs) != 1 || result.RemovedSessionIDs[0] != "p_old" {
		t.Fatalf("RemovedSessionIDs: got %v, want [p_old]", result.RemovedSessionIDs)
	}
}

func TestRunRemovesStaleSessionWithMissingWorktree(t *testing.T) {
	shardsDir := t.TempDir()
	r := New(shardsDir)

	stale := testKild("p_stale", "proj1", "stale", model.StatusStopped, 3000, 3009)
	stale.WorktreePath = filepath.Join(shardsDir, "worktrees", "proj1", "stale")
	stale.LastActivity = time.Now().UTC()
	if err := r.Store.Save(stale); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// OlderThanDays large enough that the fresh LastActivity above never
	// matches matchesStrategy itself; only the stale-session sweep (missing
	// worktree_path) should pick this one up.
	result, err := r.Run(Options{Strategy: OlderThan, OlderThanDays: 9999})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := false
	for _, id := range result.RemovedSessionIDs {
		if id == "p_stale" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected p_stale among removed sessions, got %v", result.RemovedSessionIDs)
	}
}

func TestRunOrphansRemovesUntrackedWorktreeAndBranch(t *testing.T) {
	dir := initRepo(t)
	shardsDir := t.TempDir()
	r := New(shardsDir)

	cmd := exec.Command("git", "worktree", "add", "-b", "orphan-branch",
		filepath.Join(fileutil.WorktreesDir(shardsDir), filepath.Base(dir), "orphan-branch"), "main")
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git worktree add: %s: %v", out, err)
	}

	result, err := r.Run(Options{Strategy: Orphans, ProjectPath: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.RemovedWorktrees) != 1 {
		t.Errorf("RemovedWorktrees: got %v, want 1 entry", result.RemovedWorktrees)
	}
	if len(result.RemovedBranches) != 1 || result.RemovedBranches[0] != "orphan-branch" {
		t.Errorf("RemovedBranches: got %v, want [orphan-branch]", result.RemovedBranches)
	}
}

func TestStats(t *testing.T) {
	shardsDir := t.TempDir()
	r := New(shardsDir)

	active := testKild("p_a", "proj1", "a", model.StatusActive, 3000, 3009)
	active.Agent = "claude"
	stopped := testKild("p_b", "proj1", "b", model.StatusStopped, 3010, 3014)
	stopped.Agent = "claude"
	if err := r.Store.Save(active); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := r.Store.Save(stopped); err != nil {
		t.Fatalf("Save: %v", err)
	}

	stats, err := Stats(shardsDir)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Total: got %d, want 2", stats.Total)
	}
	if stats.ByStatus[model.StatusActive] != 1 || stats.ByStatus[model.StatusStopped] != 1 {
		t.Errorf("ByStatus: got %+v", stats.ByStatus)
	}
	if stats.ByAgent["claude"] != 2 {
		t.Errorf("ByAgent: got %+v", stats.ByAgent)
	}
	if stats.AllocatedPorts != 15 {
		t.Errorf("AllocatedPorts: got %d, want 15", stats.AllocatedPorts)
	}
}

func addWorktree(t *testing.T, repoDir, worktreePath, branch string) {
	t.Helper()
	cmd := exec.Command("git", "worktree", "add", "-b", branch, worktreePath, "main")
	cmd.Dir = repoDir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git worktree add: %s: %v", out, err)
	}
}

func commitFile(t *testing.T, worktreePath, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(worktreePath, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	run := func(args ...string) {
		cmd := exec.Command("git", args...)
		cmd.Dir = worktreePath
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v: %s: %v", args, out, err)
		}
	}
	run("add", "-A")
	run("commit", "-q", "-m", "edit "+name)
}

func TestOverlapsFlagsFileTouchedByMultipleBranches(t *testing.T) {
	dir := initRepo(t)
	shardsDir := t.TempDir()

	wtA := filepath.Join(fileutil.WorktreesDir(shardsDir), "proj", "a")
	wtB := filepath.Join(fileutil.WorktreesDir(shardsDir), "proj", "b")
	wtC := filepath.Join(fileutil.WorktreesDir(shardsDir), "proj", "c")
	addWorktree(t, dir, wtA, "a")
	addWorktree(t, dir, wtB, "b")
	addWorktree(t, dir, wtC, "c")

	commitFile(t, wtA, "shared.go", "package a\n")
	commitFile(t, wtB, "shared.go", "package b\n")
	commitFile(t, wtC, "other.go", "package c\n")

	kilds := []*model.Kild{
		{Branch: "a", WorktreePath: wtA},
		{Branch: "b", WorktreePath: wtB},
		{Branch: "c", WorktreePath: wtC},
	}
	overlaps := Overlaps(kilds, "main")
	if len(overlaps) != 1 {
		t.Fatalf("got %d overlaps, want 1: %+v", len(overlaps), overlaps)
	}
	if overlaps[0].File != "shared.go" {
		t.Errorf("File: got %q, want shared.go", overlaps[0].File)
	}
	if len(overlaps[0].Branches) != 2 {
		t.Errorf("Branches: got %v, want 2 entries", overlaps[0].Branches)
	}
}

func TestOverlapsNoneWhenFilesDisjoint(t *testing.T) {
	dir := initRepo(t)
	shardsDir := t.TempDir()

	wtA := filepath.Join(fileutil.WorktreesDir(shardsDir), "proj", "a")
	wtB := filepath.Join(fileutil.WorktreesDir(shardsDir), "proj", "b")
	addWorktree(t, dir, wtA, "a")
	addWorktree(t, dir, wtB, "b")

	commitFile(t, wtA, "a.go", "package a\n")
	commitFile(t, wtB, "b.go", "package b\n")

	kilds := []*model.Kild{
		{Branch: "a", WorktreePath: wtA},
		{Branch: "b", WorktreePath: wtB},
	}
	if overlaps := Overlaps(kilds, "main"); len(overlaps) != 0 {
		t.Fatalf("got %d overlaps, want 0: %+v", len(overlaps), overlaps)
	}
}
