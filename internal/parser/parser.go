// Package parser turns raw model output into a StructuredResponse by
// locating the three recognized block markers: <think> for reasoning,
// <execute lang="..."> for an action, and <solution> for the final
// answer. The grammar is strict: a well-formed response carries exactly
// one of action/solution, and an unknown lang tag is a parse failure,
// never a silent no-op.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/sszhu/biomni/pkg/models"
)

// ErrParse is the sentinel wrapped by every parse failure. The conductor
// recovers from these by feeding an error observation back to the model,
// up to its retry budget.
var ErrParse = errors.New("response parse failure")

var (
	thinkRe    = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	executeRe  = regexp.MustCompile(`(?s)<execute\s+lang=["']?([a-zA-Z]+)["']?\s*>(.*?)</execute>`)
	solutionRe = regexp.MustCompile(`(?s)<solution>(.*?)</solution>`)
)

// Parse parses raw assistant output into a StructuredResponse.
//
// Policy choices, applied in order:
//   - both an execute and a solution block present: malformed (the
//     "exactly one" invariant is enforced at the grammar, not patched
//     over by picking one);
//   - multiple execute blocks: the first is the action, the rest are
//     counted in IgnoredActions so the observation can mention them;
//   - an opening marker without its closing marker: malformed;
//   - neither block present: malformed, never treated as an implicit
//     final answer.
func Parse(raw string) (models.StructuredResponse, error) {
	var zero models.StructuredResponse

	reasoning := ""
	if m := thinkRe.FindStringSubmatch(raw); m != nil {
		reasoning = strings.TrimSpace(m[1])
	}

	executes := executeRe.FindAllStringSubmatch(raw, -1)
	solutions := solutionRe.FindAllStringSubmatch(raw, -1)

	if err := checkDangling(raw, len(executes), len(solutions)); err != nil {
		return zero, err
	}

	switch {
	case len(executes) > 0 && len(solutions) > 0:
		return zero, fmt.Errorf("%w: response contains both an execute and a solution block", ErrParse)

	case len(solutions) > 0:
		answer := strings.TrimSpace(solutions[0][1])
		if answer == "" {
			return zero, fmt.Errorf("%w: empty solution block", ErrParse)
		}
		return models.NewFinalResponse(reasoning, answer), nil

	case len(executes) > 0:
		runtime, err := models.ParseRuntime(executes[0][1])
		if err != nil {
			return zero, fmt.Errorf("%w: %v", ErrParse, err)
		}
		source := strings.TrimSpace(executes[0][2])
		if source == "" {
			return zero, fmt.Errorf("%w: empty execute block", ErrParse)
		}
		resp := models.NewActionResponse(reasoning, models.ActionBlock{
			Runtime: runtime,
			Source:  source,
		})
		resp.IgnoredActions = len(executes) - 1
		return resp, nil

	default:
		return zero, fmt.Errorf("%w: no execute or solution block found", ErrParse)
	}
}

// checkDangling rejects responses whose opening markers never close, or
// whose execute tag is present but unparseable (e.g. missing lang).
// Without this, a truncated response would fall through to the "no
// blocks" case and lose the real failure mode.
func checkDangling(raw string, executes, solutions int) error {
	if n := strings.Count(raw, "<execute"); n > executes {
		return fmt.Errorf("%w: unterminated or malformed execute block", ErrParse)
	}
	if n := strings.Count(raw, "<solution>"); n > solutions {
		return fmt.Errorf("%w: unterminated solution block", ErrParse)
	}
	return nil
}
