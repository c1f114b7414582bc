package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
)

var stopAll bool

func init() {
	stopCmd.Flags().BoolVar(&stopAll, "all", false, "Stop every active kild")
	rootCmd.AddCommand(stopCmd)
}

var stopCmd = &cobra.Command{
	Use:   "stop [branch]",
	Short: "Stop a kild's agents, keeping its worktree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		if stopAll {
			kilds, _, err := eng.Store.LoadAll()
			if err != nil {
				return err
			}
			failures := map[string]error{}
			for _, k := range kilds {
				if k.Status != model.StatusActive {
					continue
				}
				if _, err := eng.Stop(k.Branch); err != nil {
					failures[k.Branch] = err
					fmt.Printf("stop %s: failed: %s\n", k.Branch, err)
					continue
				}
				fmt.Printf("stopped %s\n", k.Branch)
			}
			if len(failures) > 0 {
				return &kilderr.BulkError{Failures: failures}
			}
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("stop: branch is required unless --all is given")
		}
		kild, err := eng.Stop(args[0])
		if err != nil {
			return fmt.Errorf("stop %s: %w", args[0], err)
		}
		fmt.Printf("stopped %s\n", kild.Branch)
		return nil
	},
}
