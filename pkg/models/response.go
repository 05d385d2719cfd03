package models

import (
	"errors"
	"fmt"
)

// ResponseKind discriminates the two well-formed shapes of a parsed
// assistant turn. A response is either an action to execute or a final
// answer, never both and never neither.
type ResponseKind int

const (
	// KindAction means the response carries a code block to execute.
	KindAction ResponseKind = iota
	// KindFinal means the response carries the final answer text.
	KindFinal
)

// String returns a human-readable representation of the response kind.
func (k ResponseKind) String() string {
	switch k {
	case KindAction:
		return "action"
	case KindFinal:
		return "final"
	default:
		return "unknown"
	}
}

// ActionBlock is the executable portion of a model response: a runtime
// tag plus the source text to run.
type ActionBlock struct {
	// Runtime names the interpreter for the source.
	Runtime Runtime `json:"runtime"`
	// Source is the code to execute, as emitted by the model.
	Source string `json:"source"`
}

// StructuredResponse is the parsed form of an assistant turn. The Kind
// field is the discriminant: exactly the matching payload field is
// populated. Use NewActionResponse / NewFinalResponse; a zero value is
// not well-formed.
type StructuredResponse struct {
	// Kind selects which payload field is valid.
	Kind ResponseKind `json:"kind"`
	// Reasoning is the model's free-text reasoning block, if present.
	Reasoning string `json:"reasoning,omitempty"`
	// Action is set when Kind is KindAction.
	Action *ActionBlock `json:"action,omitempty"`
	// FinalAnswer is set when Kind is KindFinal.
	FinalAnswer string `json:"final_answer,omitempty"`
	// IgnoredActions counts extra action blocks that were present in the
	// raw response but not executed (only the first block runs).
	IgnoredActions int `json:"ignored_actions,omitempty"`
}

// ErrMalformedResponse is the sentinel wrapped by all response
// validation failures.
var ErrMalformedResponse = errors.New("malformed structured response")

// NewActionResponse builds a well-formed action response.
func NewActionResponse(reasoning string, action ActionBlock) StructuredResponse {
	return StructuredResponse{
		Kind:      KindAction,
		Reasoning: reasoning,
		Action:    &action,
	}
}

// NewFinalResponse builds a well-formed final-answer response.
func NewFinalResponse(reasoning, answer string) StructuredResponse {
	return StructuredResponse{
		Kind:        KindFinal,
		Reasoning:   reasoning,
		FinalAnswer: answer,
	}
}

// Validate checks the kind/payload invariant. Parsers return errors
// instead of producing invalid values; this exists for anything that
// deserializes a StructuredResponse from storage.
func (r StructuredResponse) Validate() error {
	switch r.Kind {
	case KindAction:
		if r.Action == nil {
			return fmt.Errorf("%w: action kind without action block", ErrMalformedResponse)
		}
		if r.FinalAnswer != "" {
			return fmt.Errorf("%w: action kind carries a final answer", ErrMalformedResponse)
		}
		if r.Action.Source == "" {
			return fmt.Errorf("%w: empty action source", ErrMalformedResponse)
		}
		if !r.Action.Runtime.Valid() {
			return fmt.Errorf("%w: unknown runtime %q", ErrMalformedResponse, r.Action.Runtime)
		}
	case KindFinal:
		if r.Action != nil {
			return fmt.Errorf("%w: final kind carries an action block", ErrMalformedResponse)
		}
		if r.FinalAnswer == "" {
			return fmt.Errorf("%w: final kind without answer text", ErrMalformedResponse)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrMalformedResponse, r.Kind)
	}
	return nil
}
