package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/engine"
	"github.com/re-cinq/kild/internal/kilderr"
	"github.com/re-cinq/kild/internal/model"
)

var (
	openAgent    string
	openShell    bool
	openResume   bool
	openAll      bool
	openDaemon   bool
	openNoDaemon bool
)

func init() {
	openCmd.Flags().StringVar(&openAgent, "agent", "", "Named agent from the registry (default: the kild's own agent)")
	openCmd.Flags().BoolVar(&openShell, "no-agent", false, "Open a bare shell instead of an agent")
	openCmd.Flags().BoolVar(&openResume, "resume", false, "Resume the agent's prior conversation")
	openCmd.Flags().BoolVar(&openAll, "all", false, "Open every kild that is not completed")
	openCmd.Flags().BoolVar(&openDaemon, "daemon", false, "Run inside the PTY daemon")
	openCmd.Flags().BoolVar(&openNoDaemon, "no-daemon", false, "Run inside an external terminal window")
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open [branch]",
	Short: "Open (or reopen) a kild, appending a new agent process",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		req := func(branch string) engine.OpenRequest {
			return engine.OpenRequest{
				Branch:              branch,
				AgentMode:           agentModeFromFlags(openAgent, openShell),
				RuntimeModeOverride: model.RuntimeMode(runtimeModeFromFlags(openDaemon, openNoDaemon)),
				Resume:              openResume,
			}
		}

		if openAll {
			kilds, _, err := eng.Store.LoadAll()
			if err != nil {
				return err
			}
			failures := map[string]error{}
			for _, k := range kilds {
				if k.Status == model.StatusCompleted {
					continue
				}
				if _, err := eng.Open(req(k.Branch)); err != nil {
					failures[k.Branch] = err
					fmt.Printf("open %s: failed: %s\n", k.Branch, err)
					continue
				}
				fmt.Printf("opened %s\n", k.Branch)
			}
			if len(failures) > 0 {
				return &kilderr.BulkError{Failures: failures}
			}
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("open: branch is required unless --all is given")
		}
		kild, err := eng.Open(req(args[0]))
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		fmt.Printf("opened %s (agents=%d)\n", kild.Branch, len(kild.Agents))
		return nil
	},
}
