package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/model"
	"github.com/re-cinq/kild/internal/terminal"
)

func init() {
	rootCmd.AddCommand(attachCmd)
}

// attachCmd surfaces a kild's agent output. A daemon-mode session has no
// live-streaming protocol exposed to the CLI, so attach dumps the current
// scrollback buffer; a terminal-mode session is brought to the foreground
// instead, since its output already lives in its own window.
var attachCmd = &cobra.Command{
	Use:   "attach <branch>",
	Short: "View a kild's agent output",
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
			return fmt.Errorf("attach: kild %q not found", args[0])
		}
		agent := kild.LatestAgent()
		if agent == nil {
			return fmt.Errorf("attach: %s has no agent process", args[0])
		}
		if agent.IsDaemon() {
			scrollback, err := eng.Daemon.ReadScrollback(agent.DaemonSessionID)
			if err != nil {
				return fmt.Errorf("attach %s: %w", args[0], err)
			}
			os.Stdout.Write(scrollback)
			return nil
		}
		if agent.TerminalType != model.TerminalNative {
			terminal.Focus(agent.TerminalType, agent.TerminalWindowID)
			return nil
		}
		fmt.Printf("%s's agent is running in a native background process with no attachable window\n", args[0])
		return nil
	},
}
