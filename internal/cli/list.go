package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every persisted kild",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		kilds, skipped, err := eng.Store.LoadAll()
		if err != nil {
			return err
		}
		sort.Slice(kilds, func(i, j int) bool { return kilds[i].Branch < kilds[j].Branch })

		for _, k := range kilds {
			fmt.Printf("%-30s %-10s %-12s agents=%d ports=%d-%d\n", k.Branch, k.Status, k.Agent, len(k.Agents), k.PortStart, k.PortEnd)
		}
		if skipped > 0 {
			fmt.Printf("(%d session file(s) skipped: malformed or unreadable)\n", skipped)
		}
		return nil
	},
}
