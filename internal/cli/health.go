package cli

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/fileutil"
)

func init() {
	rootCmd.AddCommand(healthCmd)
}

// healthCmd is an informational self-check, not the dashboards named in
// spec.md §1's out-of-scope list — it reports the handful of externally
// observable preconditions the engine depends on.
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the local environment kild depends on",
	RunE: func(cmd *cobra.Command, args []string) error {
		shardsDir := resolvedShardsDir()
		ok := true

		if err := fileutil.EnsureDir(fileutil.SessionsDir(shardsDir)); err != nil {
			fmt.Printf("shards dir:  FAIL (%v)\n", err)
			ok = false
		} else {
			fmt.Printf("shards dir:  OK (%s)\n", shardsDir)
		}

		if _, err := exec.LookPath("git"); err != nil {
			fmt.Println("git binary:  FAIL (not found on PATH)")
			ok = false
		} else {
			fmt.Println("git binary:  OK")
		}

		eng, err := buildEngine()
		if err != nil {
			fmt.Printf("config:      FAIL (%v)\n", err)
			ok = false
		} else {
			fmt.Println("config:      OK")
			if err := eng.Daemon.EnsureRunning(false, 0); err != nil {
				fmt.Println("pty daemon:  not running (will auto-start on demand)")
			} else {
				fmt.Println("pty daemon:  OK")
			}
		}

		if !ok {
			return fmt.Errorf("health check failed")
		}
		return nil
	},
}
