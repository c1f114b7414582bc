package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/git"
)

func init() {
	rootCmd.AddCommand(commitsCmd)
}

var commitsCmd = &cobra.Command{
	Use:   "commits <branch>",
	Short: "List commits made on a kild's branch since its base",
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
			return fmt.Errorf("commits: kild %q not found", args[0])
		}
		base := eng.Config.Git.EffectiveRemote() + "/" + eng.Config.Git.EffectiveBaseBranch()
		out, err := git.Log(kild.WorktreePath, base+"..HEAD")
		if err != nil {
			return fmt.Errorf("commits %s: %w", args[0], err)
		}
		if out == "" {
			fmt.Println("(no commits ahead of base)")
			return nil
		}
		fmt.Println(out)
		return nil
	},
}
