// Package git implements the Git Worktree Manager (spec.md §4.3, C3):
// project detection, worktree create/remove, and the diagnostic helpers
// the engine surfaces to the user (diffstat, ahead/behind).
package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/kilderr"
)

// Retry constants for transient git errors.
const (
	retryInitialDelay = 200 * time.Millisecond
	retryMaxAttempts  = 6
	retryMultiplier   = 2
)

// transientPatterns are error substrings that indicate a retryable git failure.
var transientPatterns = []string{
	"index file open failed",
	"index.lock",
	"cannot lock ref",
}

func isTransient(errMsg string) bool {
	for _, p := range transientPatterns {
		if strings.Contains(errMsg, p) {
			return true
		}
	}
	return false
}

// sleepFunc is the function used for sleeping between retries.
// Replaced in tests to avoid real delays.
var sleepFunc = time.Sleep

// Repo wraps git operations rooted at Dir.
type Repo struct {
	Dir string
}

// NewRepo creates a Repo for the given directory.
func NewRepo(dir string) *Repo {
	return &Repo{Dir: dir}
}

// run executes a git command in the repo directory. Transient errors
// (index locks, ref locks) are retried with exponential backoff.
func (r *Repo) run(args ...string) (string, error) {
	delay := retryInitialDelay
	var lastErr error
	for attempt := 0; attempt < retryMaxAttempts; attempt++ {
		cmd := exec.Command("git", args...)
		cmd.Dir = r.Dir
		out, err := cmd.CombinedOutput()
		if err == nil {
			return strings.TrimSpace(string(out)), nil
		}
		errMsg := strings.TrimSpace(string(out))
		lastErr = &kilderr.GitCommandError{Args: args, Out: errMsg, Err: err}
		if !isTransient(errMsg) || attempt == retryMaxAttempts-1 {
			return "", lastErr
		}
		sleepFunc(delay)
		delay *= retryMultiplier
	}
	return "", lastErr
}

// ProjectInfo is the result of DetectProject / DetectProjectAt.
type ProjectInfo struct {
	ID   string
	Name string
	Path string
}

// IDResolver canonicalizes a raw path and derives its project id; the
// caller supplies pathutil.CanonicalProjectID so this package stays free
// of an import cycle back into pathutil's callers.
type IDResolver func(path string) (id, canonical string, err error)

// DetectProjectAt walks up from path to the repository root and reports
// the project's canonical identity (spec.md §4.3). It shells out to
// `git rev-parse --show-toplevel` rather than walking the tree itself so
// git's own notion of "repository root" (worktrees, submodules) is
// authoritative.
func DetectProjectAt(resolve IDResolver, path string) (*ProjectInfo, error) {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = path
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &kilderr.ProjectNotFoundError{Path: path}
	}
	root := strings.TrimSpace(string(out))
	id, canonical, err := resolve(root)
	if err != nil {
		return nil, err
	}
	return &ProjectInfo{ID: id, Name: filepath.Base(canonical), Path: canonical}, nil
}

// DetectProject is DetectProjectAt rooted at the process's working directory.
func DetectProject(resolve IDResolver) (*ProjectInfo, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, &kilderr.IOError{Op: "getwd", Err: err}
	}
	return DetectProjectAt(resolve, cwd)
}

func (r *Repo) branchExists(branch string) bool {
	_, err := r.run("show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

func (r *Repo) remoteBranchExists(remote, branch string) bool {
	_, err := r.run("show-ref", "--verify", "--quiet", "refs/remotes/"+remote+"/"+branch)
	return err == nil
}

func (r *Repo) fetch(remote string) error {
	_, err := r.run("fetch", remote)
	return err
}

// DefaultBranch returns the repository's configured default branch
// (origin/HEAD), falling back to "main".
func (r *Repo) DefaultBranch(remote string) string {
	out, err := r.run("symbolic-ref", "--short", "refs/remotes/"+remote+"/HEAD")
	if err != nil {
		return "main"
	}
	return strings.TrimPrefix(out, remote+"/")
}

// WorktreeResult is the output of CreateWorktree.
type WorktreeResult struct {
	Path   string
	Branch string
}

// CreateWorktree implements spec.md §4.3's create_worktree: optionally
// fetch, resolve a base branch, create-or-checkout the target branch,
// and add the worktree at <shardsDir>/worktrees/<projectName>/<branch>.
func (r *Repo) CreateWorktree(shardsDir, projectName, branch, remote, baseBranchOverride string, fetchBeforeCreate bool) (*WorktreeResult, error) {
	if fetchBeforeCreate {
		if err := r.fetch(remote); err != nil {
			return nil, &kilderr.FetchFailedError{Remote: remote, Err: err}
		}
	}

	base := baseBranchOverride
	if base == "" {
		base = r.DefaultBranch(remote)
	}

	worktreePath := fileutil.WorktreePath(shardsDir, projectName, branch)

	switch {
	case r.branchExists(branch):
		// branch already exists locally; worktree add will check it out.
	case r.remoteBranchExists(remote, branch):
		if _, err := r.run("branch", "--track", branch, remote+"/"+branch); err != nil {
			return nil, err
		}
	default:
		if _, err := r.run("branch", branch, base); err != nil {
			return nil, err
		}
	}

	if err := fileutil.EnsureDir(filepath.Dir(worktreePath)); err != nil {
		return nil, &kilderr.IOError{Op: "mkdir worktree parent", Err: err}
	}

	if _, err := r.run("worktree", "add", worktreePath, branch); err != nil {
		return nil, err
	}

	return &WorktreeResult{Path: worktreePath, Branch: branch}, nil
}

func gitCommandOutput(err error) (string, bool) {
	gce, ok := err.(*kilderr.GitCommandError)
	if !ok {
		return "", false
	}
	return gce.Out, true
}

// RemoveWorktreeByPath removes a worktree; a missing worktree is success.
func (r *Repo) RemoveWorktreeByPath(path string) error {
	_, err := r.run("worktree", "remove", path)
	if err != nil {
		if out, ok := gitCommandOutput(err); ok && strings.Contains(out, "is not a working tree") {
			return nil
		}
		return err
	}
	return nil
}

// RemoveWorktreeForce force-removes a worktree, discarding uncommitted changes.
func (r *Repo) RemoveWorktreeForce(path string) error {
	_, err := r.run("worktree", "remove", "--force", path)
	if err != nil {
		if out, ok := gitCommandOutput(err); ok && strings.Contains(out, "is not a working tree") {
			return nil
		}
		return err
	}
	return nil
}

// ListBranches returns local branch names.
func (r *Repo) ListBranches() ([]string, error) {
	out, err := r.run("for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// ListWorktreePaths returns the absolute paths of all worktrees git
// currently tracks for this repository, including the main checkout.
func (r *Repo) ListWorktreePaths() ([]string, error) {
	worktrees, err := r.ListWorktrees()
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(worktrees))
	for i, w := range worktrees {
		paths[i] = w.Path
	}
	return paths, nil
}

// WorktreeInfo is one entry of `git worktree list --porcelain`.
type WorktreeInfo struct {
	Path   string
	Branch string // short branch name; empty for a detached worktree
}

// ListWorktrees returns every worktree git currently tracks for this
// repository, including the main checkout, with the branch each has
// checked out (spec.md §4.9's orphan-branch detection needs this join).
func (r *Repo) ListWorktrees() ([]WorktreeInfo, error) {
	out, err := r.run("worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}
	var worktrees []WorktreeInfo
	for _, line := range strings.Split(out, "\n") {
		if p, ok := strings.CutPrefix(line, "worktree "); ok {
			worktrees = append(worktrees, WorktreeInfo{Path: p})
			continue
		}
		if len(worktrees) == 0 {
			continue
		}
		if ref, ok := strings.CutPrefix(line, "branch "); ok {
			worktrees[len(worktrees)-1].Branch = strings.TrimPrefix(ref, "refs/heads/")
		}
	}
	return worktrees, nil
}

// DiffStats is the result of GetDiffStats.
type DiffStats struct {
	FilesChanged int
	Insertions   int
	Deletions    int
}

// GetDiffStats computes the working-tree diffstat for a worktree path
// against HEAD.
func GetDiffStats(worktreePath string) (*DiffStats, error) {
	repo := NewRepo(worktreePath)
	out, err := repo.run("diff", "HEAD", "--numstat")
	if err != nil {
		return nil, err
	}
	stats := &DiffStats{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		stats.FilesChanged++
		if n, err := strconv.Atoi(fields[0]); err == nil {
			stats.Insertions += n
		}
		if n, err := strconv.Atoi(fields[1]); err == nil {
			stats.Deletions += n
		}
	}
	return stats, nil
}

// WorktreeStatus is the result of GetWorktreeStatus.
type WorktreeStatus struct {
	UncommittedDetails  string
	UnpushedCommitCount int
	BehindCommitCount   int
	HasRemoteBranch     bool
	BehindCountFailed   bool
}

// GetWorktreeStatus reports uncommitted changes, unpushed/behind counts,
// and whether a remote-tracking branch exists for worktreePath's branch
// (spec.md §4.3). BehindCountFailed distinguishes "0 behind" from
// "could not compute" (no remote-tracking branch, or the rev-list call
// itself failed).
func GetWorktreeStatus(worktreePath, remote string) (*WorktreeStatus, error) {
	repo := NewRepo(worktreePath)
	status := &WorktreeStatus{}

	porcelain, err := repo.run("status", "--porcelain")
	if err != nil {
		return nil, err
	}
	status.UncommittedDetails = porcelain

	branch, err := repo.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return nil, err
	}

	status.HasRemoteBranch = repo.remoteBranchExists(remote, branch)
	if !status.HasRemoteBranch {
		status.BehindCountFailed = true
		return status, nil
	}

	upstream := remote + "/" + branch

	if aheadOut, err := repo.run("rev-list", "--count", upstream+"..HEAD"); err == nil {
		if n, convErr := strconv.Atoi(aheadOut); convErr == nil {
			status.UnpushedCommitCount = n
		}
	}

	behindOut, err := repo.run("rev-list", "--count", "HEAD.."+upstream)
	if err != nil {
		status.BehindCountFailed = true
		return status, nil
	}
	n, convErr := strconv.Atoi(behindOut)
	if convErr != nil {
		status.BehindCountFailed = true
		return status, nil
	}
	status.BehindCommitCount = n
	return status, nil
}

// HasChanges reports whether the worktree has any uncommitted changes.
func (r *Repo) HasChanges() (bool, error) {
	out, err := r.run("status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// IsMergedUpstream reports whether branch's remote-tracking tip is
// already an ancestor of base's remote-tracking tip (spec.md §4.8.7:
// "if the branch's PR is merged upstream, delete the remote branch").
// PR-status APIs are out of scope (spec.md §1 Non-goals: "PR/GitHub
// integration"), so this is the git-native proxy: a remote branch whose
// history is fully contained in the remote base branch has, in effect,
// already landed.
func (r *Repo) IsMergedUpstream(branch, base, remote string) (bool, error) {
	if !r.remoteBranchExists(remote, branch) {
		return false, nil
	}
	if !r.remoteBranchExists(remote, base) {
		return false, nil
	}
	_, err := r.run("merge-base", "--is-ancestor", "refs/remotes/"+remote+"/"+branch, "refs/remotes/"+remote+"/"+base)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// DeleteRemoteBranch removes branch from remote. Missing refs are success.
func (r *Repo) DeleteRemoteBranch(remote, branch string) error {
	_, err := r.run("push", remote, "--delete", branch)
	if err != nil {
		if out, ok := gitCommandOutput(err); ok && strings.Contains(out, "remote ref does not exist") {
			return nil
		}
		return err
	}
	return nil
}

// Log returns a one-line-per-commit summary for revRange (e.g.
// "main..HEAD"), for the `commits` CLI subcommand.
func Log(worktreePath, revRange string) (string, error) {
	return NewRepo(worktreePath).run("log", "--oneline", revRange)
}

// DiffFiles lists the files a worktree's branch has touched relative to
// base, for the `overlaps` CLI subcommand.
func DiffFiles(worktreePath, base string) ([]string, error) {
	out, err := NewRepo(worktreePath).run("diff", "--name-only", base+"...HEAD")
	if err != nil {
		return nil, err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// Rebase rebases the current branch onto target, for the `rebase` CLI
// subcommand. A conflicted rebase is left in progress for the user to
// resolve by hand, matching git's own behavior.
func (r *Repo) Rebase(target string) error {
	_, err := r.run("rebase", target)
	return err
}

// DeleteLocalBranch removes branch locally. Missing branches are success.
func (r *Repo) DeleteLocalBranch(branch string) error {
	_, err := r.run("branch", "-D", branch)
	if err != nil {
		if out, ok := gitCommandOutput(err); ok && strings.Contains(out, "not found") {
			return nil
		}
		return err
	}
	return nil
}
