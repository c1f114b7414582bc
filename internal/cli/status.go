package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/git"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status <branch>",
	Short: "Show a kild's lifecycle status plus its worktree's git status",
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
			return fmt.Errorf("status: kild %q not found", args[0])
		}

		fmt.Printf("%s: %s (agent=%s, runtime=%s, agents=%d)\n", kild.Branch, kild.Status, kild.Agent, kild.RuntimeMode, len(kild.Agents))

		remote := eng.Config.Git.EffectiveRemote()
		wtStatus, err := git.GetWorktreeStatus(kild.WorktreePath, remote)
		if err != nil {
			fmt.Printf("  (git status unavailable: %s)\n", err)
			return nil
		}
		if wtStatus.UncommittedDetails != "" {
			fmt.Println("  uncommitted changes:")
			fmt.Println(wtStatus.UncommittedDetails)
		} else {
			fmt.Println("  working tree clean")
		}
		if wtStatus.BehindCountFailed {
			fmt.Println("  ahead/behind: unavailable (no remote-tracking branch, or git rev-list failed)")
		} else {
			fmt.Printf("  ahead %d, behind %d (vs %s)\n", wtStatus.UnpushedCommitCount, wtStatus.BehindCommitCount, remote)
		}
		return nil
	},
}
