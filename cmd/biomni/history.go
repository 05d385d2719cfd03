package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sszhu/biomni/internal/transcript"
)

var (
	historyLimit     int
	historyOlderThan time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	Long: `List recent agent runs from the history database, newest first.

Use 'history show <run-id>' to replay a full transcript and
'history purge' to delete old runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := transcript.OpenGlobal()
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}

		runs, err := store.List(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}
		for _, rs := range runs {
			fmt.Println(transcript.SummaryLine(rs))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Replay one run's full transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := transcript.OpenGlobal()
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}

		tr, err := store.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(transcript.Render(tr))
		return nil
	},
}

var historyPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete runs older than a cutoff",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := transcript.OpenGlobal()
		if err != nil {
			return fmt.Errorf("open history: %w", err)
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return fmt.Errorf("migrate history: %w", err)
		}

		n, err := store.Purge(historyOlderThan)
		if err != nil {
			return err
		}
		fmt.Printf("deleted %d run(s)\n", n)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")
	historyPurgeCmd.Flags().DurationVar(&historyOlderThan, "older-than", 720*time.Hour, "Delete runs started before now minus this duration")
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPurgeCmd)
}
