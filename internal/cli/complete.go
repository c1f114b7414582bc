package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/engine"
)

var completeForce bool

func init() {
	completeCmd.Flags().BoolVar(&completeForce, "force", false, "Override uncommitted-changes and kill-failure safety blocks")
	rootCmd.AddCommand(completeCmd)
}

var completeCmd = &cobra.Command{
	Use:   "complete <branch>",
	Short: "Destroy a kild, deleting its remote branch if it was already merged",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		result, err := eng.Complete(engine.CompleteRequest{Branch: args[0], Force: completeForce})
		if err != nil {
			return fmt.Errorf("complete %s: %w", args[0], err)
		}
		if result.RemoteBranchDeleted {
			fmt.Printf("completed %s (remote branch deleted, was merged upstream)\n", args[0])
		} else {
			fmt.Printf("completed %s\n", args[0])
		}
		return nil
	},
}
