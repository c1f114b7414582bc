package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/terminal"
)

func init() {
	rootCmd.AddCommand(hideCmd)
}

var hideCmd = &cobra.Command{
	Use:   "hide <branch>",
	Short: "Minimize a kild's terminal window",
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
			return fmt.Errorf("hide: kild %q not found", args[0])
		}
		agent := kild.LatestAgent()
		if agent == nil || agent.TerminalWindowID == "" {
			fmt.Printf("%s has no window to hide\n", args[0])
			return nil
		}
		terminal.Hide(agent.TerminalType, agent.TerminalWindowID)
		return nil
	},
}
