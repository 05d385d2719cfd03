package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "biomni",
	Short: "Autonomous biomedical research agent",
	Long: `Biomni runs research tasks with an autonomous LLM agent.

Given a task, the agent reasons step by step, writes and executes code
in sandboxed python, R, or bash processes, observes the results, and
iterates until it can state a final answer.

Core capabilities:
- Selects the task-relevant subset of the resource catalog per task
- Executes model-written code with timeouts and output caps
- Optionally reviews its own answer before committing to it
- Records every run to a local history database`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
