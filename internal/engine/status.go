package engine

import (
	"fmt"

	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/pathutil"
)

// UpdateAgentStatus is the only mutation agents themselves perform
// (spec.md §4.8.9): resolve the kild by branch or by matching cwd
// against worktree_path, write the sidecar, and optionally raise a
// desktop notification when status is waiting or error. It never
// touches the main kild file.
func (e *Engine) UpdateAgentStatus(branchOrCwd string, status model.AgentStatusValue, notify bool) error {
	kild, err := e.resolveByBranchOrCwd(branchOrCwd)
	if err != nil {
		return err
	}
	if kild == nil {
		return &kilderr.KildNotFoundError{Branch: branchOrCwd}
	}

	if err := e.Store.WriteAgentStatus(kild.ID, status); err != nil {
		return err
	}

	if notify && e.Notifier != nil && (status == model.AgentStatusWaiting || status == model.AgentStatusError) {
		_ = e.Notifier.Notify(fmt.Sprintf("kild: %s", kild.Branch), string(status))
	}
	return nil
}

func (e *Engine) resolveByBranchOrCwd(branchOrCwd string) (*model.Kild, error) {
	if kild, err := e.Store.FindByName(branchOrCwd); err == nil && kild != nil {
		return kild, nil
	}

	canonical, err := pathutil.Canonicalize(branchOrCwd)
	if err != nil {
		return nil, nil
	}

	kilds, _, err := e.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	for _, k := range kilds {
		if k.WorktreePath == canonical {
			return k, nil
		}
	}
	return nil, nil
}
