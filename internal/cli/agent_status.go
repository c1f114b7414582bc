package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/model"
)

var (
	agentStatusBranch string
	agentStatusNotify bool
)

func init() {
	agentStatusCmd.Flags().StringVar(&agentStatusBranch, "branch", "", "Branch to update (default: resolve from the current working directory)")
	agentStatusCmd.Flags().BoolVar(&agentStatusNotify, "notify", false, "Raise a desktop notification for waiting/error states")
	rootCmd.AddCommand(agentStatusCmd)
}

var agentStatusCmd = &cobra.Command{
	Use:   "agent-status <idle|working|waiting|error>",
	Short: "Record the calling agent's own activity state (called from the agent's hook)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := model.AgentStatusValue(args[0])
		switch status {
		case model.AgentStatusIdle, model.AgentStatusWorking, model.AgentStatusWaiting, model.AgentStatusError:
		default:
			return fmt.Errorf("agent-status: unknown status %q", args[0])
		}

		eng, err := buildEngine()
		if err != nil {
			return err
		}

		target := agentStatusBranch
		if target == "" {
			target, err = os.Getwd()
			if err != nil {
				return err
			}
		}

		if err := eng.UpdateAgentStatus(target, status, agentStatusNotify); err != nil {
			return fmt.Errorf("agent-status: %w", err)
		}
		return nil
	},
}
