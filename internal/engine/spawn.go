package engine

import (
	"github.com/google/uuid"

	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/procutil"
	"github.com/re-cinq/kild/internal/ptydaemon"
	"github.com/re-cinq/kild/internal/terminal"
)

// spawnParams is the input to spawnAgent, shared by Create, Open, and
// Restart (spec.md §4.8.2 step 7, §4.8.3 step 7).
type spawnParams struct {
	Kild        *model.Kild
	Agent       resolvedAgent
	Args        []string
	RuntimeMode model.RuntimeMode
	ExtraEnv    map[string]string
	Rows, Cols  int
}

// spawnAgent dispatches to the Terminal or Daemon path and returns the
// resulting AgentProcess, not yet appended to any Kild.
func (e *Engine) spawnAgent(p spawnParams) (model.AgentProcess, error) {
	if p.RuntimeMode == model.RuntimeDaemon {
		return e.spawnDaemon(p)
	}
	return e.spawnTerminal(p)
}

func (e *Engine) spawnTerminal(p spawnParams) (model.AgentProcess, error) {
	spawnID := p.Kild.NextSpawnID()
	fullCommand := shellJoin(p.Agent.Command, p.Args)

	preferred := model.TerminalType(e.Config.Daemon.PreferredTerm)
	res, err := terminal.Spawn(p.Kild.WorktreePath, fullCommand, preferred, spawnID, e.ShardsDir)
	if err != nil {
		return model.AgentProcess{}, err
	}

	ap := model.AgentProcess{
		Agent:            p.Agent.Label,
		SpawnID:          spawnID,
		Command:          fullCommand,
		CreatedAt:        now(),
		ProcessID:        res.ProcessID,
		ProcessName:      res.ProcessName,
		TerminalType:     res.TerminalType,
		TerminalWindowID: res.TerminalWindowID,
	}
	ap.SetStartTime(res.ProcessStartTime)
	return ap, nil
}

// spawnDaemon implements spec.md §4.8.2 step 7's Daemon path: the agent
// command is wrapped as `$SHELL -lc 'exec <command>'` so login-profile
// files are sourced and the shell is replaced by the agent itself
// (clean PID semantics); BareShell instead asks the daemon for a plain
// interactive login shell with no script to run.
func (e *Engine) spawnDaemon(p spawnParams) (model.AgentProcess, error) {
	spawnID := p.Kild.NextSpawnID()

	if err := e.Daemon.EnsureRunning(e.Config.Daemon.AutoStart, e.Config.Daemon.EffectiveReadyTimeout()); err != nil {
		return model.AgentProcess{}, err
	}

	var command string
	var args []string
	var commandExecuted string
	if p.Agent.BareShell {
		commandExecuted = "$SHELL"
	} else {
		command = "exec " + p.Agent.Command
		args = p.Args
		commandExecuted = shellJoin(p.Agent.Command, p.Args)
	}

	daemonID, err := e.Daemon.Create(&ptydaemon.CreateRequest{
		RequestID:     uuid.NewString(),
		SessionID:     spawnID,
		KildID:        p.Kild.ID,
		WorkingDir:    p.Kild.WorktreePath,
		Command:       command,
		Args:          args,
		Env:           collectEnv(p.ExtraEnv),
		Rows:          p.Rows,
		Cols:          p.Cols,
		UseLoginShell: true,
	})
	if err != nil {
		return model.AgentProcess{}, err
	}

	return model.AgentProcess{
		Agent:           p.Agent.Label,
		SpawnID:         spawnID,
		Command:         commandExecuted,
		CreatedAt:       now(),
		DaemonSessionID: daemonID,
	}, nil
}

// terminateAgent stops or destroys a single AgentProcess's underlying
// process/session (spec.md §4.8.5, §4.8.6). destroy selects Daemon
// Destroy over Stop, and force makes that a daemon force-destroy
// (SIGKILL); a terminal-spawned process always gets procutil.Kill's
// SIGTERM, whatever force says.
func (e *Engine) terminateAgent(ap *model.AgentProcess, destroy, force bool) error {
	if ap.IsDaemon() {
		if destroy {
			return e.Daemon.Destroy(ap.DaemonSessionID, force)
		}
		return e.Daemon.Stop(ap.DaemonSessionID)
	}
	terminal.Close(ap.TerminalType, ap.TerminalWindowID)
	if ap.ProcessID == 0 {
		return nil
	}
	return procutil.Kill(ap.ProcessID, ap.ProcessName, ap.StartTime())
}

// terminateAgents runs terminateAgent over every AgentProcess on kild
// and deletes per-spawn PID files best-effort, returning a BulkError
// keyed by spawn id if any termination failed (spec.md §4.8.5 step
// "collect per-process errors"; the composite is this package's
// "ProcessKillFailed with a composite message").
func (e *Engine) terminateAgents(kild *model.Kild, destroy, force bool) error {
	failures := map[string]error{}
	for i := range kild.Agents {
		ap := &kild.Agents[i]
		if err := e.terminateAgent(ap, destroy, force); err != nil {
			failures[ap.SpawnID] = err
		}
		e.removePIDFile(ap.SpawnID)
	}
	if len(failures) == 0 {
		return nil
	}
	return &kilderr.BulkError{Failures: failures}
}
