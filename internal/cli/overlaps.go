package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/cleanup"
	"github.com/re-cinq/kild/internal/git"
	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/pathutil"
)

var overlapsBase string

func init() {
	overlapsCmd.Flags().StringVarP(&overlapsBase, "base", "b", "", "Base branch to compare against (default: <remote>/<git.base_branch>, e.g. origin/main)")
	rootCmd.AddCommand(overlapsCmd)
}

var overlapsCmd = &cobra.Command{
	Use:   "overlaps",
	Short: "Detect file overlaps across kilds in the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		project, err := git.DetectProject(pathutil.CanonicalProjectID)
		if err != nil {
			return fmt.Errorf("overlaps: %w", err)
		}
		kilds, _, err := eng.Store.LoadAll()
		if err != nil {
			return fmt.Errorf("overlaps: %w", err)
		}
		var inProject []*model.Kild
		for _, k := range kilds {
			if k.ProjectID == project.ID {
				inProject = append(inProject, k)
			}
		}

		base := overlapsBase
		if base == "" {
			base = eng.Config.Git.EffectiveRemote() + "/" + eng.Config.Git.EffectiveBaseBranch()
		}

		reports := cleanup.Overlaps(inProject, base)
		if len(reports) == 0 {
			fmt.Println("no overlapping files")
			return nil
		}
		for _, r := range reports {
			fmt.Printf("%s: touched by %v\n", r.File, r.Branches)
		}
		return fmt.Errorf("overlaps: %d overlapping file(s)", len(reports))
	},
}
