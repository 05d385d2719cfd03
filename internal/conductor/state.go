package conductor

import (
	"github.com/sszhu/biomni/pkg/models"
)

// State is a node in the task state machine.
type State int

const (
	// StateGenerate asks the model for the next structured response.
	StateGenerate State = iota
	// StateExecute runs the pending action and feeds back an observation.
	StateExecute
	// StateCritique evaluates a proposed final answer.
	StateCritique
	// StateDone is terminal: a final answer was produced (and accepted,
	// when the critic is enabled).
	StateDone
	// StateAborted is terminal: a limit or fatal error ended the run.
	StateAborted
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateGenerate:
		return "generate"
	case StateExecute:
		return "execute"
	case StateCritique:
		return "critique"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// taskState is the mutable record threading through one run. It is
// owned by a single Run call and never shared across goroutines;
// concurrent tasks each get their own.
type taskState struct {
	transcript *models.Transcript

	state State
	// generations counts model calls in the generate/execute cycle; the
	// iteration ceiling applies to it.
	generations int
	// parseFailures counts consecutive malformed responses. Reset on
	// every successful parse.
	parseFailures int
	// criticRounds counts critique passes taken so far.
	criticRounds int
	// pending is the action awaiting execution when state is
	// StateExecute, or the proposed answer when state is StateCritique.
	pending models.StructuredResponse
	// lastProposedAnswer is kept so an aborted run can return the best
	// available partial answer.
	lastProposedAnswer string
	// reason is set when the machine moves to StateAborted.
	reason models.ReasonCode
}
