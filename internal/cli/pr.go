package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/git"
)

func init() {
	rootCmd.AddCommand(prCmd)
}

// prCmd reports a kild's push-readiness; opening an actual pull request
// is GitHub integration, which is out of scope for the core (spec.md §1,
// "Deliberately out of scope").
var prCmd = &cobra.Command{
	Use:   "pr <branch>",
	Short: "Show whether a kild's branch is pushed and ready for a pull request",
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
			return fmt.Errorf("pr: kild %q not found", args[0])
		}
		remote := eng.Config.Git.EffectiveRemote()
		wtStatus, err := git.GetWorktreeStatus(kild.WorktreePath, remote)
		if err != nil {
			return fmt.Errorf("pr %s: %w", args[0], err)
		}
		if !wtStatus.HasRemoteBranch {
			fmt.Printf("%s has no remote-tracking branch yet; push before opening a pull request\n", args[0])
			return nil
		}
		fmt.Printf("%s has a remote branch, %d local commit(s) not yet pushed to %s/%s — open a pull request in your forge of choice\n",
			args[0], wtStatus.UnpushedCommitCount, remote, kild.Branch)
		return nil
	},
}
