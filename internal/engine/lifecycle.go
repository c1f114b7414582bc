package engine

import (
	"fmt"
	"os"

	"github.com/re-cinq/kild/internal/events"
	"github.com/re-cinq/kild/internal/git"
	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/ptydaemon"
)

// RestartRequest is the input to Restart (spec.md §4.8.4).
type RestartRequest struct {
	Branch    string
	AgentMode AgentMode
}

// Restart is the legacy single-agent path: kill the most recent agent
// (LatestAgent; earlier entries are not signaled), then
// spawn exactly one fresh AgentProcess via the Terminal adapter,
// replacing `agents` entirely (spec.md §4.8.4, Terminal-only).
func (e *Engine) Restart(req RestartRequest) (*model.Kild, error) {
	kild, err := e.Store.FindByName(req.Branch)
	if err != nil {
		return nil, err
	}
	if kild == nil {
		return nil, &kilderr.KildNotFoundError{Branch: req.Branch}
	}

	if latest := kild.LatestAgent(); latest != nil {
		if err := e.terminateAgent(latest, true, true); err != nil {
			return nil, err
		}
		e.removePIDFile(latest.SpawnID)
	}

	if _, statErr := os.Stat(kild.WorktreePath); statErr != nil {
		return nil, &kilderr.WorktreeMissingError{Path: kild.WorktreePath}
	}

	agent, err := e.resolveAgentMode(req.AgentMode, kild.Agent)
	if err != nil {
		return nil, err
	}

	ap, err := e.spawnAgent(spawnParams{Kild: kild, Agent: agent, Args: agent.Args, RuntimeMode: model.RuntimeTerminal})
	if err != nil {
		return nil, err
	}

	kild.Agents = []model.AgentProcess{ap}
	kild.Agent = agent.Label
	kild.RuntimeMode = model.RuntimeTerminal
	kild.Status = model.StatusActive
	kild.LastActivity = now()

	if err := e.Store.Save(kild); err != nil {
		return nil, err
	}

	e.appendActivity(kild.ID, "restart", "ok")
	e.publish(events.Event{Kind: events.KildOpened, Branch: kild.Branch})
	return kild, nil
}

// Stop tears down every AgentProcess on a kild and transitions it to
// Stopped (spec.md §4.8.5). Partial kill failures are reported but the
// new Stopped status is persisted regardless — the user needs to see
// what went wrong and know the kild is no longer Active.
func (e *Engine) Stop(branch string) (*model.Kild, error) {
	kild, err := e.Store.FindByName(branch)
	if err != nil {
		return nil, err
	}
	if kild == nil {
		return nil, &kilderr.KildNotFoundError{Branch: branch}
	}

	termErr := e.terminateAgents(kild, false, false)

	kild.Agents = nil
	kild.Status = model.StatusStopped
	kild.LastActivity = now()

	if err := e.Store.Save(kild); err != nil {
		return nil, err
	}

	outcome := "ok"
	if termErr != nil {
		outcome = "partial-failure: " + termErr.Error()
	}
	e.appendActivity(kild.ID, "stop", outcome)
	e.publish(events.Event{Kind: events.KildStopped, Branch: kild.Branch})

	if termErr != nil {
		return kild, termErr
	}
	return kild, nil
}

// DestroyRequest is the input to Destroy (spec.md §4.8.6).
type DestroyRequest struct {
	Branch string
	Force  bool
}

// Destroy tears down a kild's agents, removes its worktree, and deletes
// its session file (spec.md §4.8.6). Without Force, uncommitted changes
// or a kill failure block the operation with a --force hint.
func (e *Engine) Destroy(req DestroyRequest) error {
	kild, err := e.Store.FindByName(req.Branch)
	if err != nil {
		return err
	}
	if kild == nil {
		return &kilderr.KildNotFoundError{Branch: req.Branch}
	}

	if !req.Force {
		if changed, changeErr := git.NewRepo(kild.WorktreePath).HasChanges(); changeErr == nil && changed {
			return &kilderr.UncommittedChangesError{Path: kild.WorktreePath}
		}
	}

	if termErr := e.terminateAgents(kild, true, req.Force); termErr != nil && !req.Force {
		return fmt.Errorf("%w (use --force to override)", termErr)
	}

	repo := git.NewRepo(kild.WorktreePath)
	var removeErr error
	if req.Force {
		removeErr = repo.RemoveWorktreeForce(kild.WorktreePath)
	} else {
		removeErr = repo.RemoveWorktreeByPath(kild.WorktreePath)
	}
	if removeErr != nil {
		return removeErr
	}

	if err := e.Store.Remove(kild.ID); err != nil {
		return err
	}

	e.appendActivity(kild.ID, "destroy", "ok")
	e.publish(events.Event{Kind: events.KildDestroyed, Branch: kild.Branch})
	return nil
}

// CompleteRequest is the input to Complete (spec.md §4.8.7).
type CompleteRequest struct {
	Branch string
	Force  bool
}

// CompleteResult reports which branch-bookkeeping path Complete took.
type CompleteResult struct {
	RemoteBranchDeleted bool
}

// Complete is Destroy plus PR-merge-aware branch bookkeeping: a branch
// already merged upstream has its remote ref deleted; otherwise it is
// left for the user's own merge-and-delete flow (spec.md §4.8.7). Safety
// rules are identical to Destroy without Force.
func (e *Engine) Complete(req CompleteRequest) (*CompleteResult, error) {
	kild, err := e.Store.FindByName(req.Branch)
	if err != nil {
		return nil, err
	}
	if kild == nil {
		return nil, &kilderr.KildNotFoundError{Branch: req.Branch}
	}

	if !req.Force {
		if changed, changeErr := git.NewRepo(kild.WorktreePath).HasChanges(); changeErr == nil && changed {
			return nil, &kilderr.UncommittedChangesError{Path: kild.WorktreePath}
		}
	}

	remote := e.Config.Git.EffectiveRemote()
	base := e.Config.Git.EffectiveBaseBranch()
	repo := git.NewRepo(kild.WorktreePath)
	merged, _ := repo.IsMergedUpstream(kild.Branch, base, remote)

	if termErr := e.terminateAgents(kild, true, req.Force); termErr != nil && !req.Force {
		return nil, fmt.Errorf("%w (use --force to override)", termErr)
	}

	var removeErr error
	if req.Force {
		removeErr = repo.RemoveWorktreeForce(kild.WorktreePath)
	} else {
		removeErr = repo.RemoveWorktreeByPath(kild.WorktreePath)
	}
	if removeErr != nil {
		return nil, removeErr
	}

	result := &CompleteResult{}
	if merged {
		if delErr := repo.DeleteRemoteBranch(remote, kild.Branch); delErr == nil {
			result.RemoteBranchDeleted = true
		}
	}

	if err := e.Store.Remove(kild.ID); err != nil {
		return nil, err
	}

	e.appendActivity(kild.ID, "complete", fmt.Sprintf("merged=%v remote_deleted=%v", merged, result.RemoteBranchDeleted))
	e.publish(events.Event{Kind: events.KildCompleted, Branch: kild.Branch})
	return result, nil
}

// SyncWithDaemon heals drift between a daemon-managed Active kild and
// the daemon's own view of its session (spec.md §4.8.8). healed reports
// whether the kild was transitioned to Stopped.
func (e *Engine) SyncWithDaemon(branch string) (kild *model.Kild, healed bool, err error) {
	kild, err = e.Store.FindByName(branch)
	if err != nil {
		return nil, false, err
	}
	if kild == nil {
		return nil, false, &kilderr.KildNotFoundError{Branch: branch}
	}
	if kild.Status != model.StatusActive {
		return kild, false, nil
	}
	latest := kild.LatestAgent()
	if latest == nil || !latest.IsDaemon() {
		return kild, false, nil
	}

	status, statusErr := e.Daemon.GetSessionStatus(latest.DaemonSessionID)
	if statusErr == nil && status == ptydaemon.StatusRunning {
		return kild, false, nil
	}

	kild.Agents = nil
	kild.Status = model.StatusStopped
	kild.LastActivity = now()
	if err := e.Store.Save(kild); err != nil {
		return nil, false, err
	}

	e.appendActivity(kild.ID, "sync", "healed drift: daemon session no longer running")
	e.publish(events.Event{Kind: events.KildStopped, Branch: kild.Branch})
	return kild, true, nil
}
