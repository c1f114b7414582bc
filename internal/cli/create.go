package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/re-cinq/kild/internal/engine"
	"github.com/re-cinq/kild/internal/model"
)

var (
	createAgent    string
	createShell    bool
	createNote     string
	createBase     string
	createNoFetch  bool
	createDaemon   bool
	createNoDaemon bool
)

func init() {
	createCmd.Flags().StringVar(&createAgent, "agent", "", "Named agent from the registry (default: configured default agent)")
	createCmd.Flags().BoolVar(&createShell, "shell", false, "Open a bare shell instead of an agent")
	createCmd.Flags().StringVar(&createNote, "note", "", "Free-text note stored on the kild")
	createCmd.Flags().StringVar(&createBase, "base", "", "Base branch override (default: config git.base_branch)")
	createCmd.Flags().BoolVar(&createNoFetch, "no-fetch", false, "Skip fetching the remote before branching")
	createCmd.Flags().BoolVar(&createDaemon, "daemon", false, "Run the agent inside the PTY daemon")
	createCmd.Flags().BoolVar(&createNoDaemon, "no-daemon", false, "Run the agent inside an external terminal window")
	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create <branch>",
	Short: "Create a new kild: a worktree plus a running agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := buildEngine()
		if err != nil {
			return err
		}

		kild, err := eng.Create(engine.CreateRequest{
			Branch:      args[0],
			AgentMode:   agentModeFromFlags(createAgent, createShell),
			Note:        createNote,
			BaseBranch:  createBase,
			NoFetch:     createNoFetch,
			RuntimeMode: model.RuntimeMode(runtimeModeFromFlags(createDaemon, createNoDaemon)),
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", args[0], err)
		}

		fmt.Printf("created %s (agent=%s, worktree=%s)\n", kild.Branch, kild.Agent, kild.WorktreePath)
		return nil
	},
}
