package engine

import (
	"os"

	"github.com/re-cinq/kild/internal/events"
	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
)

// OpenRequest is the input to Open (spec.md §4.8.3).
type OpenRequest struct {
	Branch              string
	AgentMode           AgentMode
	RuntimeModeOverride model.RuntimeMode
	Resume              bool
}

// Open appends a new AgentProcess to an existing kild without closing
// any of its existing terminals (spec.md §4.8.3). Unlike Restart, this
// is additive.
func (e *Engine) Open(req OpenRequest) (*model.Kild, error) {
	kild, err := e.Store.FindByName(req.Branch)
	if err != nil {
		return nil, err
	}
	if kild == nil {
		return nil, &kilderr.KildNotFoundError{Branch: req.Branch}
	}
	if _, statErr := os.Stat(kild.WorktreePath); statErr != nil {
		return nil, &kilderr.WorktreeMissingError{Path: kild.WorktreePath}
	}

	agent, err := e.resolveAgentMode(req.AgentMode, kild.Agent)
	if err != nil {
		return nil, err
	}

	runtimeMode := req.RuntimeModeOverride
	if runtimeMode == "" {
		runtimeMode = kild.RuntimeMode
	}
	if runtimeMode == "" {
		runtimeMode = model.RuntimeMode(e.Config.Daemon.DefaultRuntime)
	}
	if runtimeMode == "" {
		runtimeMode = model.RuntimeTerminal
	}

	args := append([]string{}, agent.Args...)
	extraEnv := map[string]string{}

	if !agent.BareShell {
		if req.Resume {
			if kild.AgentSessionID == "" {
				return nil, &kilderr.ResumeNoSessionIDError{Branch: req.Branch}
			}
			if !agent.Entry.SupportsResume {
				return nil, &kilderr.ResumeUnsupportedError{Agent: agent.Label}
			}
			if agent.Entry.ResumeFlag != "" {
				args = append(args, agent.Entry.ResumeFlag, kild.AgentSessionID)
			}
			if kild.TaskListID == "" && agent.Entry.SupportsTaskList {
				kild.TaskListID = newSessionID()
			}
		} else {
			if agent.Entry.SupportsResume {
				kild.AgentSessionID = newSessionID()
				if agent.Entry.SessionIDFlag != "" {
					args = append(args, agent.Entry.SessionIDFlag, kild.AgentSessionID)
				}
			}
			if agent.Entry.SupportsTaskList {
				kild.TaskListID = newSessionID()
			}
		}
		if agent.Entry.SupportsTaskList && agent.Entry.TaskListEnvVar != "" && kild.TaskListID != "" {
			extraEnv[agent.Entry.TaskListEnvVar] = kild.TaskListID
		}
	}

	ap, err := e.spawnAgent(spawnParams{Kild: kild, Agent: agent, Args: args, RuntimeMode: runtimeMode, ExtraEnv: extraEnv})
	if err != nil {
		return nil, err
	}

	kild.Agents = append(kild.Agents, ap)
	kild.RuntimeMode = runtimeMode
	if !agent.BareShell {
		kild.Status = model.StatusActive
	}
	kild.LastActivity = now()

	if err := e.Store.Save(kild); err != nil {
		return nil, err
	}

	e.appendActivity(kild.ID, "open", "ok")
	e.publish(events.Event{Kind: events.KildOpened, Branch: kild.Branch})
	return kild, nil
}
