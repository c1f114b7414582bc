package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/engine"
)

var (
	restartAgent string
	restartShell bool
)

func init() {
	restartCmd.Flags().StringVar(&restartAgent, "agent", "", "Named agent from the registry (default: the kild's own agent)")
	restartCmd.Flags().BoolVar(&restartShell, "no-agent", false, "Restart into a bare shell instead of an agent")
	rootCmd.AddCommand(restartCmd)
}

var restartCmd = &cobra.Command{
	Use:   "restart <branch>",
	Short: "Kill and respawn a kild's single agent process",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		kild, err := eng.Restart(engine.RestartRequest{
			Branch:    args[0],
			AgentMode: agentModeFromFlags(restartAgent, restartShell),
		})
		if err != nil {
			return fmt.Errorf("restart %s: %w", args[0], err)
		}
		fmt.Printf("restarted %s\n", kild.Branch)
		return nil
	},
}
