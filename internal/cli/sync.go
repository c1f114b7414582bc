package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync <branch>",
	Short: "Reconcile a daemon-managed kild with the daemon's own session state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		kild, healed, err := eng.SyncWithDaemon(args[0])
		if err != nil {
			return fmt.Errorf("sync %s: %w", args[0], err)
		}
		if healed {
			fmt.Printf("%s: drift healed, marked stopped\n", kild.Branch)
		} else {
			fmt.Printf("%s: status=%s, no drift detected\n", kild.Branch, kild.Status)
		}
		return nil
	},
}
