// Package conductor drives the agent control loop: it asks the model for
// a structured response, executes actions through the harness, feeds
// observations back, and stops when a final answer is produced or a
// limit is hit. Every run ends with a well-formed transcript carrying a
// terminal status, whatever the model or the executed code did.
package conductor

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sszhu/biomni/internal/catalog"
	"github.com/sszhu/biomni/internal/llm"
	"github.com/sszhu/biomni/internal/parser"
	"github.com/sszhu/biomni/internal/prompt"
	"github.com/sszhu/biomni/pkg/models"
)

// Executor runs one action block. *harness.Harness implements it; tests
// substitute stubs.
type Executor interface {
	Execute(ctx context.Context, req models.ExecutionRequest) (models.ExecutionResult, error)
}

// Selector picks the task-relevant catalog subset. *retriever.Retriever
// implements it.
type Selector interface {
	Select(ctx context.Context, task string, cat *catalog.Catalog) catalog.Selection
}

// Options bound a run. Zero values fall back to the config defaults.
type Options struct {
	// MaxIterations caps the number of model generations per run.
	MaxIterations int
	// ParseRetries is how many consecutive malformed responses are
	// tolerated before the run aborts.
	ParseRetries int
	// SelfCritic enables the critique pass on proposed final answers.
	SelfCritic bool
	// CriticRounds caps how many times the critic may send the model
	// back for another attempt.
	CriticRounds int
	// PromptBudget caps the tokens spent on resource descriptions in the
	// system prompt. Zero disables the cap.
	PromptBudget int
	// ExecTimeout bounds each action execution. Zero uses the harness
	// default.
	ExecTimeout time.Duration
	// WorkDir pins the working directory shared by all of the run's
	// executions. Empty means a per-run temp directory, removed when the
	// run finishes.
	WorkDir string
}

// Conductor runs tasks. It is safe for concurrent use: all per-run state
// lives in the taskState created by Run.
type Conductor struct {
	invoker   llm.Invoker
	executor  Executor
	selector  Selector
	assembler *prompt.Assembler
	catalog   *catalog.Catalog
	opts      Options
}

// New creates a conductor. selector may be nil, in which case the full
// catalog is offered to every task. catalog may be nil for a bare agent
// with no resources.
func New(invoker llm.Invoker, executor Executor, selector Selector, cat *catalog.Catalog, opts Options) *Conductor {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 200
	}
	if opts.ParseRetries <= 0 {
		opts.ParseRetries = 3
	}
	if opts.CriticRounds <= 0 {
		opts.CriticRounds = 2
	}
	return &Conductor{
		invoker:   invoker,
		executor:  executor,
		selector:  selector,
		assembler: prompt.New(opts.PromptBudget),
		catalog:   cat,
		opts:      opts,
	}
}

// Run executes one task to a terminal state. The returned transcript is
// always well-formed: StatusDone with a final answer, or StatusAborted
// with a reason code and whatever partial progress was made. The error
// return is reserved for setup failures before the loop starts.
func (c *Conductor) Run(ctx context.Context, task string) (*models.Transcript, error) {
	ts := &taskState{
		transcript: &models.Transcript{
			RunID:     uuid.NewString(),
			Task:      task,
			StartedAt: time.Now().UTC(),
		},
		state: StateGenerate,
	}
	ts.transcript.Append(models.RoleUser, task)

	workDir := c.opts.WorkDir
	if workDir == "" {
		scratch, err := os.MkdirTemp("", "biomni-task-")
		if err != nil {
			return nil, fmt.Errorf("create task workdir: %w", err)
		}
		defer os.RemoveAll(scratch)
		workDir = scratch
	}

	selection := c.selectResources(ctx, task)
	log.Printf("[conductor] run %s: %d resources selected (fallback=%v)",
		ts.transcript.RunID, len(selection.Resources), selection.Fallback)

	for ts.state != StateDone && ts.state != StateAborted {
		if err := ctx.Err(); err != nil {
			ts.abort(models.ReasonCanceled)
			break
		}

		switch ts.state {
		case StateGenerate:
			c.stepGenerate(ctx, ts, selection)
		case StateExecute:
			c.stepExecute(ctx, ts, workDir)
		case StateCritique:
			c.stepCritique(ctx, ts)
		}
	}

	c.finish(ts)
	return ts.transcript, nil
}

// selectResources runs the per-task selection, or offers the whole
// catalog when no selector is configured.
func (c *Conductor) selectResources(ctx context.Context, task string) catalog.Selection {
	if c.catalog == nil || c.catalog.Len() == 0 {
		return catalog.Selection{}
	}
	if c.selector == nil {
		return catalog.Selection{Resources: c.catalog.Resources()}
	}
	return c.selector.Select(ctx, task, c.catalog)
}

// stepGenerate makes one model call and routes on the parsed response.
func (c *Conductor) stepGenerate(ctx context.Context, ts *taskState, selection catalog.Selection) {
	if ts.generations >= c.opts.MaxIterations {
		log.Printf("[conductor] run %s: iteration ceiling %d reached",
			ts.transcript.RunID, c.opts.MaxIterations)
		ts.abort(models.ReasonIterationLimit)
		return
	}
	ts.generations++

	payload := c.assembler.Assemble(selection, ts.transcript.Turns)

	resp, err := c.invoker.Invoke(ctx, llm.Request{
		System:   payload.System,
		Messages: toMessages(payload.History),
	})
	if err != nil {
		if ctx.Err() != nil {
			ts.abort(models.ReasonCanceled)
			return
		}
		// Transient failures were already retried inside the client;
		// anything surfacing here ends the run.
		log.Printf("[conductor] run %s: provider error: %v", ts.transcript.RunID, err)
		ts.abort(models.ReasonProviderFatal)
		return
	}

	ts.transcript.Append(models.RoleAssistant, resp.Text)
	ts.transcript.TokensIn += resp.TokensIn
	ts.transcript.TokensOut += resp.TokensOut

	parsed, err := parser.Parse(resp.Text)
	if err != nil {
		ts.parseFailures++
		if ts.parseFailures > c.opts.ParseRetries {
			log.Printf("[conductor] run %s: parse retry budget exhausted: %v",
				ts.transcript.RunID, err)
			ts.abort(models.ReasonParseExhausted)
			return
		}
		ts.transcript.Append(models.RoleObservation, parseFailureObservation(err))
		return
	}
	ts.parseFailures = 0
	ts.pending = parsed

	switch parsed.Kind {
	case models.KindAction:
		ts.state = StateExecute
	case models.KindFinal:
		ts.lastProposedAnswer = parsed.FinalAnswer
		if c.opts.SelfCritic && ts.criticRounds < c.opts.CriticRounds {
			ts.state = StateCritique
		} else {
			ts.state = StateDone
		}
	}
}

// stepExecute runs the pending action and appends the observation.
// Execution failures of any shape, including the harness being unable to
// launch the runtime, come back as observations; only caller
// cancellation ends the run here.
func (c *Conductor) stepExecute(ctx context.Context, ts *taskState, workDir string) {
	action := ts.pending.Action

	result, err := c.executor.Execute(ctx, models.ExecutionRequest{
		Runtime: action.Runtime,
		Source:  action.Source,
		Timeout: c.opts.ExecTimeout,
		WorkDir: workDir,
	})
	if err != nil {
		if ctx.Err() != nil {
			ts.abort(models.ReasonCanceled)
			return
		}
		ts.transcript.Append(models.RoleObservation, harnessFailureObservation(err))
		ts.state = StateGenerate
		return
	}

	ts.transcript.Append(models.RoleObservation, formatObservation(result, ts.pending.IgnoredActions))
	ts.state = StateGenerate
}

// finish stamps the terminal fields. An aborted run keeps the last
// proposed answer, if any, marked incomplete.
func (c *Conductor) finish(ts *taskState) {
	tr := ts.transcript
	tr.FinishedAt = time.Now().UTC()

	if ts.state == StateDone {
		tr.Status = models.StatusDone
		tr.FinalAnswer = ts.pending.FinalAnswer
		return
	}

	tr.Status = models.StatusAborted
	tr.Reason = ts.reason
	if ts.lastProposedAnswer != "" {
		tr.FinalAnswer = ts.lastProposedAnswer
		tr.Incomplete = true
	}
}

// abort moves the machine to the aborted state with a reason code.
func (ts *taskState) abort(reason models.ReasonCode) {
	ts.state = StateAborted
	ts.reason = reason
}
