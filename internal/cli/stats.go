package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/cleanup"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show kild counts by status and agent",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := cleanup.Stats(resolvedShardsDir())
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		fmt.Printf("total:           %d\n", result.Total)
		fmt.Printf("allocated ports: %d\n", result.AllocatedPorts)
		fmt.Println("by status:")
		for status, count := range result.ByStatus {
			fmt.Printf("  %-12s %d\n", status, count)
		}
		fmt.Println("by agent:")
		for agent, count := range result.ByAgent {
			fmt.Printf("  %-12s %d\n", agent, count)
		}
		return nil
	},
}
