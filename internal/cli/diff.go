package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/git"
)

func init() {
	rootCmd.AddCommand(diffCmd)
}

var diffCmd = &cobra.Command{
	Use:   "diff <branch>",
	Short: "Show a kild's working-tree diffstat against HEAD",
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
			return fmt.Errorf("diff: kild %q not found", args[0])
		}
		stats, err := git.GetDiffStats(kild.WorktreePath)
		if err != nil {
			return fmt.Errorf("diff %s: %w", args[0], err)
		}
		fmt.Printf("%d file(s) changed, +%d -%d\n", stats.FilesChanged, stats.Insertions, stats.Deletions)
		return nil
	},
}
