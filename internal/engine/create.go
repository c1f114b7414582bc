package engine

import (
	"github.com/re-cinq/kild/internal/events"
	"github.com/re-cinq/kild/internal/fileutil"
	"github.com/re-cinq/kild/internal/git"
	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/ports"
)

// CreateRequest is the input to Create (spec.md §4.8.2).
type CreateRequest struct {
	Branch      string
	AgentMode   AgentMode
	Note        string
	ProjectPath string // explicit project root; falls back to cwd
	BaseBranch  string // overrides git.base_branch
	NoFetch     bool
	RuntimeMode model.RuntimeMode
}

// Create brings up a new kild: resolves the agent, validates the
// branch, detects the project, allocates ports, creates the worktree,
// and spawns the initial AgentProcess (spec.md §4.8.2). Each failure
// rolls back previously-completed side effects where possible.
func (e *Engine) Create(req CreateRequest) (*model.Kild, error) {
	agent, err := e.resolveAgentMode(req.AgentMode, "")
	if err != nil {
		return nil, err
	}
	if err := ValidateBranch(req.Branch); err != nil {
		return nil, err
	}

	project, err := e.resolveProject(req.ProjectPath)
	if err != nil {
		return nil, err
	}

	kildID := KildID(project.ID, req.Branch)
	if existing, err := e.Store.Load(kildID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, &kilderr.KildExistsError{Branch: req.Branch}
	}

	if err := fileutil.EnsureDir(fileutil.SessionsDir(e.ShardsDir)); err != nil {
		return nil, &kilderr.IOError{Op: "ensure sessions dir", Err: err}
	}

	existingKilds, _, err := e.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	window, err := ports.Allocate(occupiedRanges(existingKilds), e.Config.Ports.EffectiveCount(), e.Config.Ports.EffectiveBase())
	if err != nil {
		return nil, err
	}

	remote := e.Config.Git.EffectiveRemote()
	repo := git.NewRepo(project.Path)
	fetch := e.Config.Git.ShouldFetch() && !req.NoFetch
	base := req.BaseBranch
	if base == "" {
		base = e.Config.Git.BaseBranch // empty: CreateWorktree uses the repo default
	}
	wt, err := repo.CreateWorktree(e.ShardsDir, project.Name, req.Branch, remote, base, fetch)
	if err != nil {
		return nil, err
	}

	runtimeMode := req.RuntimeMode
	if runtimeMode == "" {
		runtimeMode = model.RuntimeTerminal
	}

	kild := &model.Kild{
		ID:           kildID,
		ProjectID:    project.ID,
		Branch:       req.Branch,
		WorktreePath: wt.Path,
		Agent:        agent.Label,
		Status:       model.StatusActive,
		CreatedAt:    now(),
		LastActivity: now(),
		PortStart:    window.Start,
		PortEnd:      window.End,
		Note:         req.Note,
		RuntimeMode:  runtimeMode,
	}

	// Fresh-session logic (spec.md §4.8.3 step 5, also exercised by the
	// initial Create per the resume-continuity scenario in §8.3): a
	// resume-capable agent gets an agent_session_id from the start so a
	// later `open --resume` has something to target.
	args := append([]string{}, agent.Args...)
	extraEnv := map[string]string{}
	if !agent.BareShell {
		if agent.Entry.SupportsResume {
			kild.AgentSessionID = newSessionID()
			if agent.Entry.SessionIDFlag != "" {
				args = append(args, agent.Entry.SessionIDFlag, kild.AgentSessionID)
			}
		}
		if agent.Entry.SupportsTaskList {
			kild.TaskListID = newSessionID()
			if agent.Entry.TaskListEnvVar != "" {
				extraEnv[agent.Entry.TaskListEnvVar] = kild.TaskListID
			}
		}
	}

	ap, err := e.spawnAgent(spawnParams{Kild: kild, Agent: agent, Args: args, RuntimeMode: runtimeMode, ExtraEnv: extraEnv})
	if err != nil {
		_ = repo.RemoveWorktreeForce(wt.Path)
		return nil, err
	}
	kild.Agents = []model.AgentProcess{ap}

	if err := e.Store.Save(kild); err != nil {
		return nil, err
	}

	e.appendActivity(kild.ID, "create", "ok")
	e.publish(events.Event{Kind: events.KildCreated, Branch: kild.Branch, SessionID: kild.ID})
	return kild, nil
}
