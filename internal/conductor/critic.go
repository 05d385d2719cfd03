package conductor

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/sszhu/biomni/internal/llm"
	"github.com/sszhu/biomni/pkg/models"
)

// criticSystem frames the critique call. The critic sees the task, the
// run so far, and the proposed answer, and must commit to a verdict.
const criticSystem = `You are a strict reviewer for an autonomous research agent. You are given a
task, the agent's work so far, and its proposed final answer.

Judge only whether the answer actually resolves the task and is supported
by the observations in the work. Do not judge style.

Reply with exactly:
<verdict>accept</verdict>
or
<verdict>reject</verdict>
followed, on rejection, by:
<feedback>What is missing or wrong, and what the agent should do next.</feedback>`

var (
	verdictRe  = regexp.MustCompile(`(?s)<verdict>\s*(accept|reject)\s*</verdict>`)
	feedbackRe = regexp.MustCompile(`(?s)<feedback>(.*?)</feedback>`)
)

// stepCritique evaluates the pending final answer. Acceptance, an
// unusable critic reply, and a critic call failure all finish the run;
// the critic can delay a final answer but never lose one. Rejection
// feeds the critique back as an observation and returns to generation.
func (c *Conductor) stepCritique(ctx context.Context, ts *taskState) {
	ts.criticRounds++

	accepted, feedback, err := c.critique(ctx, ts.transcript)
	if err != nil {
		if ctx.Err() != nil {
			ts.abort(models.ReasonCanceled)
			return
		}
		log.Printf("[conductor] run %s: critic call failed, accepting answer: %v",
			ts.transcript.RunID, err)
		ts.state = StateDone
		return
	}

	if accepted {
		ts.state = StateDone
		return
	}

	log.Printf("[conductor] run %s: critic rejected answer (round %d/%d)",
		ts.transcript.RunID, ts.criticRounds, c.opts.CriticRounds)
	ts.transcript.Append(models.RoleObservation, critiqueObservation(feedback))
	ts.state = StateGenerate
}

// critique makes the critic call and parses the verdict.
func (c *Conductor) critique(ctx context.Context, tr *models.Transcript) (accepted bool, feedback string, err error) {
	resp, err := c.invoker.Invoke(ctx, llm.Request{
		System: criticSystem,
		Messages: []llm.Message{{
			Role:    models.RoleUser,
			Content: critiquePrompt(tr),
		}},
	})
	if err != nil {
		return false, "", err
	}

	tr.TokensIn += resp.TokensIn
	tr.TokensOut += resp.TokensOut

	m := verdictRe.FindStringSubmatch(resp.Text)
	if m == nil {
		// No parseable verdict. The answer stands; a flaky critic must
		// not be able to discard real work.
		log.Printf("[conductor] run %s: critic reply had no verdict, accepting answer", tr.RunID)
		return true, "", nil
	}
	if m[1] == "accept" {
		return true, "", nil
	}

	if fm := feedbackRe.FindStringSubmatch(resp.Text); fm != nil {
		feedback = strings.TrimSpace(fm[1])
	}
	return false, feedback, nil
}

// critiquePrompt serializes the run for the critic: the task, the
// conversation so far, and the proposed answer last.
func critiquePrompt(tr *models.Transcript) string {
	var b strings.Builder
	b.WriteString("Task:\n")
	b.WriteString(tr.Task)
	b.WriteString("\n\nAgent work so far:\n")
	for _, t := range tr.Turns[1:] {
		fmt.Fprintf(&b, "--- %s ---\n%s\n", t.Role, t.Content)
	}
	return b.String()
}

// critiqueObservation feeds a rejection back to the model.
func critiqueObservation(feedback string) string {
	if feedback == "" {
		feedback = "The proposed answer does not fully resolve the task."
	}
	return "Your proposed solution was reviewed and rejected:\n" + feedback +
		"\nContinue working and submit a revised solution."
}
