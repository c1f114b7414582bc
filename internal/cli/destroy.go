package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/engine"
	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
)

var (
	destroyAll   bool
	destroyForce bool
)

func init() {
	destroyCmd.Flags().BoolVar(&destroyAll, "all", false, "Destroy every non-completed kild")
	destroyCmd.Flags().BoolVar(&destroyForce, "force", false, "Override uncommitted-changes and kill-failure safety blocks")
	rootCmd.AddCommand(destroyCmd)
}

var destroyCmd = &cobra.Command{
	Use:   "destroy [branch]",
	Short: "Tear down a kild's agents, worktree, and session file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		if destroyAll {
			kilds, _, err := eng.Store.LoadAll()
			if err != nil {
				return err
			}
			failures := map[string]error{}
			for _, k := range kilds {
				if k.Status == model.StatusCompleted {
					continue
				}
				if err := eng.Destroy(engine.DestroyRequest{Branch: k.Branch, Force: destroyForce}); err != nil {
					failures[k.Branch] = err
					fmt.Printf("destroy %s: failed: %s\n", k.Branch, err)
					continue
				}
				fmt.Printf("destroyed %s\n", k.Branch)
			}
			if len(failures) > 0 {
				return &kilderr.BulkError{Failures: failures}
			}
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("destroy: branch is required unless --all is given")
		}
		if err := eng.Destroy(engine.DestroyRequest{Branch: args[0], Force: destroyForce}); err != nil {
			return fmt.Errorf("destroy %s: %w", args[0], err)
		}
		fmt.Printf("destroyed %s\n", args[0])
		return nil
	},
}
