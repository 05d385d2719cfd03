package conductor

import (
	"fmt"
	"strings"
	"time"

	"github.com/sszhu/biomni/internal/llm"
	"github.com/sszhu/biomni/pkg/models"
)

// toMessages converts transcript turns into provider messages.
// Observation turns travel with the user role, wrapped in observation
// tags so the model can tell them apart from the task statement. The
// loop only ever appends user/assistant/observation turns, which keeps
// the sequence alternating the way the provider expects.
func toMessages(history []models.Turn) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, t := range history {
		switch t.Role {
		case models.RoleAssistant:
			out = append(out, llm.Message{Role: models.RoleAssistant, Content: t.Content})
		case models.RoleObservation:
			out = append(out, llm.Message{
				Role:    models.RoleUser,
				Content: "<observation>\n" + t.Content + "\n</observation>",
			})
		default:
			out = append(out, llm.Message{Role: models.RoleUser, Content: t.Content})
		}
	}
	return out
}

// formatObservation renders an execution result for the model. The
// format is stable so the model sees the same shape every turn: streams
// first, then status lines for anything abnormal.
func formatObservation(res models.ExecutionResult, ignoredActions int) string {
	var b strings.Builder

	if res.Stdout != "" {
		b.WriteString(res.Stdout)
		if !strings.HasSuffix(res.Stdout, "\n") {
			b.WriteString("\n")
		}
	}
	if res.Stderr != "" {
		b.WriteString("[stderr]\n")
		b.WriteString(res.Stderr)
		if !strings.HasSuffix(res.Stderr, "\n") {
			b.WriteString("\n")
		}
	}
	if res.Stdout == "" && res.Stderr == "" {
		b.WriteString("(no output)\n")
	}

	switch {
	case res.TimedOut:
		fmt.Fprintf(&b, "Execution timed out after %s and was killed. Output above is partial.\n",
			res.Duration.Round(time.Millisecond))
	case res.Killed:
		b.WriteString("The process was killed by a signal.\n")
	case res.ExitCode != 0:
		fmt.Fprintf(&b, "Process exited with status %d.\n", res.ExitCode)
	}

	if res.Truncated {
		b.WriteString("Output exceeded the capture limit and was truncated.\n")
	}
	if len(res.Artifacts) > 0 {
		fmt.Fprintf(&b, "Files created in the working directory: %s\n",
			strings.Join(res.Artifacts, ", "))
	}
	if ignoredActions > 0 {
		fmt.Fprintf(&b, "Note: %d extra execute block(s) in your response were ignored. Emit exactly one per turn.\n",
			ignoredActions)
	}

	return strings.TrimRight(b.String(), "\n")
}

// parseFailureObservation tells the model what was wrong with its last
// response and restates the grammar.
func parseFailureObservation(err error) string {
	return fmt.Sprintf(
		"Your last response could not be parsed: %v.\n"+
			"Respond with exactly one <execute lang=\"python|r|bash\"> block or one <solution> block, never both and never neither.",
		err)
}

// harnessFailureObservation reports a runtime that could not be
// launched. The model can often route around this by switching runtimes.
func harnessFailureObservation(err error) string {
	return fmt.Sprintf("The execution environment failed to run your code: %v.\n"+
		"The code was not executed. Try a different approach or runtime.", err)
}
