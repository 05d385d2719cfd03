// Package prompt builds the per-turn system message from the selected
// resources and static instructions. Assembly is a pure function:
// identical inputs produce byte-identical output, which is what makes
// prompt caching and reproducible tests possible.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sszhu/biomni/internal/catalog"
	"github.com/sszhu/biomni/pkg/models"
)

// Payload is the assembled input for one model turn.
type Payload struct {
	// System is the rendered system prompt.
	System string
	// History is the running conversation, oldest first.
	History []models.Turn
}

// basePrompt states the agent's role and the response grammar. The
// grammar wording must stay in lockstep with internal/parser.
const basePrompt = `You are Biomni, an autonomous biomedical research agent. You solve tasks by
reasoning step by step and executing code against the resources listed below.

Respond using exactly these blocks:

<think>
Your reasoning about the current step.
</think>

To run code, emit ONE execute block naming the runtime:
<execute lang="python">...</execute>   general-purpose analysis
<execute lang="r">...</execute>        statistical computing
<execute lang="bash">...</execute>     shell commands

The result of each execution is returned to you as an observation before
your next turn. When the task is complete, emit the answer instead:
<solution>
Your final answer.
</solution>

Rules:
- Every response must contain either one execute block or one solution
  block, never both and never neither.
- Only the listed runtimes exist. Code runs in a shared working
  directory, so files you write persist across steps.
- Do not fabricate results; derive the solution from observations.`

// sectionHeaders maps categories to their prompt section titles.
var sectionHeaders = map[catalog.Category]string{
	catalog.CategoryTool:      "## Analysis tools",
	catalog.CategoryDataset:   "## Data lake",
	catalog.CategoryKnowledge: "## Software libraries",
}

// Assembler renders prompts under a token budget.
type Assembler struct {
	counter *TokenCounter
	// budget caps the tokens spent on the resource sections. Zero means
	// no cap.
	budget int
}

// New creates an assembler. budget limits the resource-section tokens;
// pass 0 for unlimited.
func New(budget int) *Assembler {
	return &Assembler{counter: NewTokenCounter(), budget: budget}
}

// Assemble builds the payload for one turn. Resources are admitted in
// selection rank order until the token budget is exhausted, then
// rendered grouped by category and sorted by name so the output is
// independent of everything but the inputs.
func (a *Assembler) Assemble(sel catalog.Selection, history []models.Turn) Payload {
	included := a.admit(sel.Resources)

	var b strings.Builder
	b.WriteString(basePrompt)

	byCat := make(map[catalog.Category][]catalog.Resource)
	for _, r := range included {
		byCat[r.Category] = append(byCat[r.Category], r)
	}

	for _, cat := range []catalog.Category{catalog.CategoryTool, catalog.CategoryDataset, catalog.CategoryKnowledge} {
		rs := byCat[cat]
		if len(rs) == 0 {
			continue
		}
		sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })

		b.WriteString("\n\n")
		b.WriteString(sectionHeaders[cat])
		b.WriteString("\n")
		for _, r := range rs {
			b.WriteString(renderResource(r))
		}
	}

	hist := make([]models.Turn, len(history))
	copy(hist, history)

	return Payload{System: b.String(), History: hist}
}

// admit returns the prefix of the ranked resources that fits the budget.
func (a *Assembler) admit(ranked []catalog.Resource) []catalog.Resource {
	if a.budget <= 0 {
		return ranked
	}

	var included []catalog.Resource
	spent := 0
	for _, r := range ranked {
		cost := a.counter.Count(renderResource(r))
		if spent+cost > a.budget && len(included) > 0 {
			break
		}
		included = append(included, r)
		spent += cost
	}
	return included
}

// renderResource is the single rendering used both for budgeting and for
// the final prompt, so admitted cost always matches rendered cost.
func renderResource(r catalog.Resource) string {
	return fmt.Sprintf("- %s: %s\n", r.Name, strings.TrimSpace(r.Description))
}
