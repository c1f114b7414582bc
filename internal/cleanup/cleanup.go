// Package cleanup implements the Cleanup Reconciler (spec.md §4.9, C9):
// cross-referencing sessions, git worktrees, and branches to find and
// remove orphans under a selectable strategy, plus the stats/overlap
// diagnostics the original's sessions/cleanup handlers also exposed
// (SPEC_FULL.md §3).
package cleanup

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/git"
	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/pathutil"
	"github.com/re-cinq/kild/internal/procutil"
	"github.com/re-cinq/kild/internal/store"
)

// Strategy selects which kilds a Run call targets (spec.md §4.9).
type Strategy int

const (
	// All targets every persisted kild.
	All Strategy = iota
	// NoPID targets kilds whose latest AgentProcess has no recorded PID
	// and is not daemon-managed.
	NoPID
	// StoppedDead targets kilds whose tracked PIDs no longer exist.
	StoppedDead
	// OlderThan targets kilds whose last_activity predates the cutoff
	// supplied via Options.OlderThanDays.
	OlderThan
	// Orphans scopes to untracked worktrees and orphaned branches for
	// the current project rather than to persisted kilds at all.
	Orphans
)

// Options configures a Run call.
type Options struct {
	Strategy      Strategy
	OlderThanDays int
	ProjectPath   string // required for Strategy == Orphans
	Remote        string // default remote, for branch-checkout detection; unused today but kept for symmetry with git config
}

// Result reports what a cleanup pass removed. Individual failures are
// recorded in Failures rather than aborting the pass — this is
// reconciliation, not strict consistency (spec.md §4.9).
type Result struct {
	RemovedSessionIDs []string
	RemovedWorktrees  []string
	RemovedBranches   []string
	Failures          map[string]error
}

func newResult() *Result {
	return &Result{Failures: map[string]error{}}
}

// Reconciler runs cleanup passes against one shards directory.
type Reconciler struct {
	Store *store.Store
}

// New builds a Reconciler backed by the session store rooted at shardsDir.
func New(shardsDir string) *Reconciler {
	return &Reconciler{Store: store.New(shardsDir)}
}

// Run executes one cleanup pass (spec.md §4.9).
func (r *Reconciler) Run(opts Options) (*Result, error) {
	if opts.Strategy == Orphans {
		return r.runOrphans(opts)
	}
	return r.runSessionStrategy(opts)
}

func (r *Reconciler) runSessionStrategy(opts Options) (*Result, error) {
	result := newResult()

	kilds, _, err := r.Store.LoadAll()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -opts.OlderThanDays)
	for _, k := range kilds {
		if !matchesStrategy(k, opts.Strategy, cutoff) {
			continue
		}
		if err := r.removeKild(k, result); err != nil {
			result.Failures[k.ID] = err
		}
	}

	staleIDs, err := r.staleSessionIDs()
	if err != nil {
		return result, err
	}
	for _, id := range staleIDs {
		if err := r.Store.Remove(id); err != nil {
			result.Failures[id] = err
			continue
		}
		result.RemovedSessionIDs = append(result.RemovedSessionIDs, id)
	}

	return result, nil
}

func matchesStrategy(k *model.Kild, strategy Strategy, cutoff time.Time) bool {
	switch strategy {
	case All:
		return k.Status != model.StatusCompleted
	case NoPID:
		latest := k.LatestAgent()
		return latest != nil && !latest.IsDaemon() && latest.ProcessID == 0
	case StoppedDead:
		latest := k.LatestAgent()
		if latest == nil || latest.IsDaemon() || latest.ProcessID == 0 {
			return false
		}
		running, _ := procutil.IsRunning(latest.ProcessID)
		return !running
	case OlderThan:
		return k.LastActivity.Before(cutoff)
	default:
		return false
	}
}

// removeKild kills any live agents best-effort, removes the worktree,
// and drops the session file. Race conditions (already gone) count as
// success, matching spec.md §4.9's reconciliation posture.
func (r *Reconciler) removeKild(k *model.Kild, result *Result) error {
	for i := range k.Agents {
		ap := &k.Agents[i]
		if ap.ProcessID != 0 {
			_ = procutil.Kill(ap.ProcessID, ap.ProcessName, ap.StartTime())
		}
	}

	repo := git.NewRepo(k.WorktreePath)
	if err := repo.RemoveWorktreeForce(k.WorktreePath); err == nil {
		result.RemovedWorktrees = append(result.RemovedWorktrees, k.WorktreePath)
	}

	if err := r.Store.Remove(k.ID); err != nil {
		return err
	}
	result.RemovedSessionIDs = append(result.RemovedSessionIDs, k.ID)
	return nil
}

// staleSessionIDs finds session files that are malformed, unreadable, or
// whose worktree_path no longer exists on disk (spec.md §4.9 "stale
// session detection").
func (r *Reconciler) staleSessionIDs() ([]string, error) {
	entries, err := os.ReadDir(fileutil.SessionsDir(r.Store.ShardsDir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var stale []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".status.json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")

		data, readErr := os.ReadFile(fileutil.SessionsDir(r.Store.ShardsDir) + "/" + name)
		if readErr != nil {
			stale = append(stale, id)
			continue
		}
		var kild model.Kild
		if jsonErr := json.Unmarshal(data, &kild); jsonErr != nil {
			stale = append(stale, id)
			continue
		}
		if kild.WorktreePath == "" {
			continue
		}
		if _, statErr := os.Stat(kild.WorktreePath); statErr != nil {
			stale = append(stale, id)
		}
	}
	return stale, nil
}

// runOrphans implements the project-scoped orphan detection: untracked
// worktrees and branches with no matching kild (spec.md §4.9).
func (r *Reconciler) runOrphans(opts Options) (*Result, error) {
	result := newResult()

	project, err := git.DetectProjectAt(pathutil.CanonicalProjectID, opts.ProjectPath)
	if err != nil {
		return nil, err
	}

	kilds, _, err := r.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	tracked := map[string]bool{}
	for _, k := range kilds {
		if k.ProjectID != project.ID {
			continue
		}
		if canonical, canonErr := pathutil.Canonicalize(k.WorktreePath); canonErr == nil {
			tracked[canonical] = true
		} else {
			tracked[k.WorktreePath] = true
		}
	}

	repo := git.NewRepo(project.Path)

	worktrees, err := repo.ListWorktrees()
	if err != nil {
		return nil, err
	}
	ownedPrefix := fileutil.WorktreesDir(r.Store.ShardsDir) + "/" + project.Name + "/"
	checkedOutBranches := map[string]bool{}
	for _, w := range worktrees {
		canonical, canonErr := pathutil.Canonicalize(w.Path)
		if canonErr != nil {
			canonical = w.Path
		}
		if w.Branch != "" {
			checkedOutBranches[w.Branch] = true
		}
		if canonical == project.Path {
			continue // the main checkout is never orphaned
		}
		if !strings.HasPrefix(canonical+"/", ownedPrefix) {
			// Not one of ours; skip rather than report foreign worktrees as orphans.
			continue
		}
		if !tracked[canonical] {
			if rmErr := repo.RemoveWorktreeByPath(w.Path); rmErr == nil {
				result.RemovedWorktrees = append(result.RemovedWorktrees, w.Path)
				// Its branch is no longer checked out by any worktree.
				delete(checkedOutBranches, w.Branch)
			} else {
				result.Failures[w.Path] = rmErr
			}
		}
	}

	branches, err := repo.ListBranches()
	if err != nil {
		return nil, err
	}
	for _, b := range branches {
		if checkedOutBranches[b] {
			continue
		}
		if !looksLikeKildBranch(kilds, project.ID, b) {
			continue
		}
		if delErr := repo.DeleteLocalBranch(b); delErr == nil {
			result.RemovedBranches = append(result.RemovedBranches, b)
		} else {
			result.Failures["branch:"+b] = delErr
		}
	}

	return result, nil
}

// looksLikeKildBranch reports whether b matches the kild-branch
// convention for project (i.e. it once had, or still has, a persisted
// kild), rather than deleting every unchecked-out branch in the repo.
func looksLikeKildBranch(kilds []*model.Kild, projectID, branch string) bool {
	for _, k := range kilds {
		if k.ProjectID == projectID && k.Branch == branch {
			return false // still tracked, never an orphan target
		}
	}
	return true
}

// StatusCounts maps a Kild status to the number of kilds holding it.
type StatusCounts map[model.Status]int

// AgentCounts maps an agent label to the number of kilds using it.
type AgentCounts map[string]int

// StatsResult is what Stats returns (SPEC_FULL.md §3, "Stats aggregation").
type StatsResult struct {
	Total        int
	ByStatus     StatusCounts
	ByAgent      AgentCounts
	AllocatedPorts int
}

// Stats aggregates counts across every persisted kild, derived purely
// from load_all (SPEC_FULL.md §3).
func Stats(shardsDir string) (*StatsResult, error) {
	kilds, _, err := store.New(shardsDir).LoadAll()
	if err != nil {
		return nil, err
	}
	result := &StatsResult{ByStatus: StatusCounts{}, ByAgent: AgentCounts{}}
	for _, k := range kilds {
		result.Total++
		result.ByStatus[k.Status]++
		result.ByAgent[k.Agent]++
		if k.PortEnd >= k.PortStart {
			result.AllocatedPorts += k.PortEnd - k.PortStart + 1
		}
	}
	return result, nil
}

// OverlapReport names one file touched by more than one kild's branch
// relative to base, and which branches touched it.
type OverlapReport struct {
	File     string
	Branches []string
}

// Overlaps detects file overlaps across kilds in the current project
// (the original `kild overlaps` subcommand): for each kild, diff its
// branch against base and collect the files it touched, then report any
// file touched by more than one branch — an early warning for merge
// conflicts between concurrent kilds, since git diff failures for one
// worktree (e.g. a branch rebased past base) are skipped rather than
// aborting the whole scan.
func Overlaps(kilds []*model.Kild, base string) []OverlapReport {
	fileBranches := make(map[string][]string)
	for _, k := range kilds {
		files, err := git.DiffFiles(k.WorktreePath, base)
		if err != nil {
			continue
		}
		for _, f := range files {
			fileBranches[f] = append(fileBranches[f], k.Branch)
		}
	}

	var out []OverlapReport
	for file, branches := range fileBranches {
		if len(branches) > 1 {
			out = append(out, OverlapReport{File: file, Branches: branches})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}
