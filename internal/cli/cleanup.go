package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/cleanup"
)

var (
	cleanupStrategyFlag string
	cleanupOlderDays    int
	cleanupProjectFlag  string
)

func init() {
	cleanupCmd.Flags().StringVar(&cleanupStrategyFlag, "strategy", "no-pid", "Cleanup strategy: all, no-pid, stopped-dead, older-than, orphans")
	cleanupCmd.Flags().IntVar(&cleanupOlderDays, "older-than-days", 30, "Age cutoff in days for the older-than strategy")
	cleanupCmd.Flags().StringVar(&cleanupProjectFlag, "project", "", "Project path to scope the orphans strategy to (default: current directory)")
	rootCmd.AddCommand(cleanupCmd)
}

func parseStrategy(s string) (cleanup.Strategy, error) {
	switch s {
	case "all":
		return cleanup.All, nil
	case "no-pid":
		return cleanup.NoPID, nil
	case "stopped-dead":
		return cleanup.StoppedDead, nil
	case "older-than":
		return cleanup.OlderThan, nil
	case "orphans":
		return cleanup.Orphans, nil
	default:
		return 0, fmt.Errorf("unknown cleanup strategy %q", s)
	}
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reconcile stale sessions, dead worktrees, and orphaned branches",
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := parseStrategy(cleanupStrategyFlag)
		if err != nil {
			return err
		}
		shardsDir := resolvedShardsDir()
		reconciler := cleanup.New(shardsDir)
		result, err := reconciler.Run(cleanup.Options{
			Strategy:      strategy,
			OlderThanDays: cleanupOlderDays,
			ProjectPath:   cleanupProjectFlag,
		})
		if err != nil {
			return fmt.Errorf("cleanup: %w", err)
		}
		for _, id := range result.RemovedSessionIDs {
			fmt.Printf("removed session %s\n", id)
		}
		for _, path := range result.RemovedWorktrees {
			fmt.Printf("removed worktree %s\n", path)
		}
		for _, branch := range result.RemovedBranches {
			fmt.Printf("deleted branch %s\n", branch)
		}
		if len(result.Failures) > 0 {
			for target, failErr := range result.Failures {
				fmt.Printf("failed: %s: %v\n", target, failErr)
			}
			return fmt.Errorf("cleanup: %d failure(s)", len(result.Failures))
		}
		if len(result.RemovedSessionIDs) == 0 && len(result.RemovedWorktrees) == 0 && len(result.RemovedBranches) == 0 {
			fmt.Println("nothing to clean up")
		}
		return nil
	},
}
