// Package models defines the shared data types for Biomni agent runs:
// conversation turns, structured model responses, execution requests and
// results, and the final transcript handed back to callers.
package models

import (
	"time"
)

// Role identifies who produced a conversation turn.
type Role string

const (
	// RoleUser is the human task statement that starts a run.
	RoleUser Role = "user"
	// RoleAssistant is raw model output.
	RoleAssistant Role = "assistant"
	// RoleObservation is feedback synthesized from an execution result
	// or an error report fed back to the model.
	RoleObservation Role = "observation"
	// RoleSystem is instruction text injected by the conductor.
	RoleSystem Role = "system"
)

// Turn is one message in the agent's running conversation.
// Turns are append-only; the sequence index is assigned by the conductor.
type Turn struct {
	// Role identifies the producer of this turn.
	Role Role `json:"role"`
	// Content is the turn text. Assistant turns may contain embedded
	// structured blocks; observation turns carry formatted results.
	Content string `json:"content"`
	// Seq is the zero-based position of the turn in the conversation.
	Seq int `json:"seq"`
}

// StopStatus is the terminal status of a run.
type StopStatus string

const (
	// StatusDone means the run produced a final answer.
	StatusDone StopStatus = "done"
	// StatusAborted means the run hit a limit or a fatal error and
	// returns a partial transcript.
	StatusAborted StopStatus = "aborted"
)

// ReasonCode is the machine-readable reason attached to an aborted run.
type ReasonCode string

const (
	// ReasonIterationLimit means the generate/execute ceiling was hit.
	ReasonIterationLimit ReasonCode = "iteration_limit"
	// ReasonProviderFatal means the LLM provider returned a
	// non-retryable error (auth, invalid request).
	ReasonProviderFatal ReasonCode = "provider_fatal"
	// ReasonParseExhausted means the model kept producing malformed
	// responses past the parse retry budget.
	ReasonParseExhausted ReasonCode = "parse_exhausted"
	// ReasonCanceled means the caller canceled the run.
	ReasonCanceled ReasonCode = "canceled"
)

// Transcript is the externally observable artifact of a run: the ordered
// turn sequence plus terminal status. It is serializable as-is for audit
// storage by the surrounding application.
type Transcript struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`
	// Task is the original user task statement.
	Task string `json:"task"`
	// Turns is the full ordered conversation.
	Turns []Turn `json:"turns"`
	// Status is the terminal state of the run.
	Status StopStatus `json:"status"`
	// Reason is set when Status is StatusAborted.
	Reason ReasonCode `json:"reason,omitempty"`
	// FinalAnswer is set when Status is StatusDone. On an aborted run it
	// may hold the best available partial answer.
	FinalAnswer string `json:"final_answer,omitempty"`
	// Incomplete marks an aborted run's answer as partial.
	Incomplete bool `json:"incomplete,omitempty"`
	// StartedAt and FinishedAt bound the run's wall-clock window.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// TokensIn and TokensOut are cumulative provider token counts.
	TokensIn  int64 `json:"tokens_in"`
	TokensOut int64 `json:"tokens_out"`
}

// Append adds a turn with the next sequence index and returns it.
func (tr *Transcript) Append(role Role, content string) Turn {
	turn := Turn{Role: role, Content: content, Seq: len(tr.Turns)}
	tr.Turns = append(tr.Turns, turn)
	return turn
}

// Observations returns the observation turns in order.
func (tr *Transcript) Observations() []Turn {
	var out []Turn
	for _, t := range tr.Turns {
		if t.Role == RoleObservation {
			out = append(out, t)
		}
	}
	return out
}
