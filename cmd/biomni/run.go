package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sszhu/biomni/internal/catalog"
	"github.com/sszhu/biomni/internal/conductor"
	"github.com/sszhu/biomni/internal/config"
	"github.com/sszhu/biomni/internal/harness"
	"github.com/sszhu/biomni/internal/llm"
	"github.com/sszhu/biomni/internal/retriever"
	"github.com/sszhu/biomni/internal/transcript"
	"github.com/sszhu/biomni/pkg/models"
)

var (
	runWorkDir     string
	runNoRetriever bool
	runSelfCritic  bool
	runMaxIter     int
	runNoSave      bool
	runShowTurns   bool
)

var runCmd = &cobra.Command{
	Use:   "run <task>",
	Short: "Run a research task with the agent",
	Long: `Run a task with the autonomous agent.

The agent alternates between generating a step and executing it until it
emits a final answer or a limit stops it. All code the model writes runs
in child processes under a shared working directory, each execution
bounded by a timeout and an output cap.

Resource selection:
  Before the loop starts, one model call picks the catalog entries
  relevant to the task; only those are described in the prompt.
  Use --no-retriever to offer the whole catalog instead.

Self-critique:
  With --self-critic (or agent.self_critic in config), a proposed final
  answer is reviewed first. A rejection sends the agent back to work,
  up to agent.critic_rounds times.

Examples:
  biomni run "How many ORFs are in the attached genome?"
  biomni run --workdir ./analysis "Cluster the expression matrix in data.csv"
  biomni run --self-critic --max-iterations 50 "Design qPCR primers for TP53"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTask,
}

func init() {
	runCmd.Flags().StringVar(&runWorkDir, "workdir", "", "Working directory for executed code (default: per-run temp dir)")
	runCmd.Flags().BoolVar(&runNoRetriever, "no-retriever", false, "Skip resource selection, offer the full catalog")
	runCmd.Flags().BoolVar(&runSelfCritic, "self-critic", false, "Review the final answer before accepting it")
	runCmd.Flags().IntVar(&runMaxIter, "max-iterations", 0, "Override the generate/execute ceiling")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "Do not record the run in history")
	runCmd.Flags().BoolVar(&runShowTurns, "show-turns", false, "Print the full transcript when the run ends")
}

func runTask(cmd *cobra.Command, args []string) error {
	task := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMaxIter > 0 {
		cfg.Agent.MaxIterations = runMaxIter
	}
	if runSelfCritic {
		cfg.Agent.SelfCritic = true
	}
	if runNoRetriever {
		cfg.Retriever.Enabled = false
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}

	cat, err := catalog.LoadDir(cfg.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: no resource catalog loaded (%v); running without resources\n", err)
		cat = nil
	} else {
		cat = cat.FilterCommercial(cfg.Retriever.CommercialMode)
	}

	h, err := harness.New(cfg.Harness)
	if err != nil {
		return fmt.Errorf("create execution harness: %w", err)
	}

	var selector conductor.Selector
	if cfg.Retriever.Enabled && cat != nil {
		selector = retriever.New(client, cfg.Retriever.Limit)
	}

	// Handle signals for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	agent := conductor.New(client, h, selector, cat, conductor.Options{
		MaxIterations: cfg.Agent.MaxIterations,
		ParseRetries:  cfg.Agent.ParseRetries,
		SelfCritic:    cfg.Agent.SelfCritic,
		CriticRounds:  cfg.Agent.CriticRounds,
		PromptBudget:  cfg.Agent.PromptBudget,
		ExecTimeout:   cfg.Harness.Timeout,
		WorkDir:       runWorkDir,
	})

	tr, err := agent.Run(ctx, task)
	if err != nil {
		return err
	}

	if runShowTurns {
		fmt.Println(transcript.Render(tr))
	} else {
		fmt.Println(transcript.RenderOutcome(tr))
	}
	// The tracker sees every call through the client, including resource
	// selection, which the transcript's per-run counters do not cover.
	tokensIn, tokensOut, calls := client.Tracker().Totals()
	fmt.Printf("tokens: %d in / %d out across %d model call(s)\n", tokensIn, tokensOut, calls)

	if !runNoSave {
		if err := saveRun(tr); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: run not saved to history: %v\n", err)
		} else {
			fmt.Printf("recorded as run %s\n", tr.RunID)
		}
	}

	if tr.Status == models.StatusAborted {
		return fmt.Errorf("run aborted: %s", tr.Reason)
	}
	return nil
}

func saveRun(tr *models.Transcript) error {
	store, err := transcript.OpenGlobal()
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return err
	}
	return store.Save(tr)
}
