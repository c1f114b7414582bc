package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/git"
)

func init() {
	rootCmd.AddCommand(rebaseCmd)
}

var rebaseCmd = &cobra.Command{
	Use:   "rebase <branch>",
	Short: "Rebase a kild's worktree onto the configured base branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		kild, err := eng.Store.FindByName(args[0])
		if err != nil {
			return err
		}
		if kild == nil {
			return fmt.Errorf("rebase: kild %q not found", args[0])
		}
		target := eng.Config.Git.EffectiveRemote() + "/" + eng.Config.Git.EffectiveBaseBranch()
		if err := git.NewRepo(kild.WorktreePath).Rebase(target); err != nil {
			return fmt.Errorf("rebase %s onto %s: %w", args[0], target, err)
		}
		fmt.Printf("rebased %s onto %s\n", args[0], target)
		return nil
	},
}
