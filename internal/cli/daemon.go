package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/fileutil"
)

func init() {
	daemonCmd.AddCommand(daemonStartCmd, daemonStopCmd, daemonStatusCmd)
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the PTY daemon",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the PTY daemon if it is not already running",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		if err := eng.Daemon.EnsureRunning(true, 5*time.Second); err != nil {
			return fmt.Errorf("daemon start: %w", err)
		}
		fmt.Println("daemon is running")
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the PTY daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		shardsDir := resolvedShardsDir()
		pidFile := fileutil.DaemonPIDFile(shardsDir)
		data, err := os.ReadFile(pidFile)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("daemon is not running")
				return nil
			}
			return fmt.Errorf("daemon stop: %w", err)
		}
		pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			return fmt.Errorf("daemon stop: malformed pid file: %w", err)
		}
		if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
			if err == syscall.ESRCH {
				_ = os.Remove(pidFile)
				fmt.Println("daemon is not running")
				return nil
			}
			return fmt.Errorf("daemon stop: %w", err)
		}
		fmt.Println("daemon stopped")
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the PTY daemon is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}
		if err := eng.Daemon.EnsureRunning(false, 0); err != nil {
			fmt.Println("daemon: not running")
			return nil
		}
		fmt.Println("daemon: running")
		return nil
	},
}
