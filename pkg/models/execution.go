package models

import (
	"fmt"
	"time"
)

// Runtime identifies the interpreter an action block runs under. The
// vocabulary is a fixed wire contract: anything else is a parse failure,
// not a silent no-op.
type Runtime string

const (
	// RuntimePython is the general-purpose runtime.
	RuntimePython Runtime = "python"
	// RuntimeR is the statistical runtime.
	RuntimeR Runtime = "r"
	// RuntimeBash is the shell runtime.
	RuntimeBash Runtime = "bash"
)

// Valid reports whether the runtime is one of the recognized identifiers.
func (r Runtime) Valid() bool {
	switch r {
	case RuntimePython, RuntimeR, RuntimeBash:
		return true
	}
	return false
}

// ParseRuntime maps a raw lang tag to a Runtime. Tags are matched
// case-insensitively and a few common aliases are accepted; anything
// else is an error.
func ParseRuntime(tag string) (Runtime, error) {
	switch tag {
	case "python", "Python", "py":
		return RuntimePython, nil
	case "r", "R":
		return RuntimeR, nil
	case "bash", "sh", "shell":
		return RuntimeBash, nil
	}
	return "", fmt.Errorf("unsupported runtime tag %q", tag)
}

// ExecutionRequest describes one harness invocation. Requests are
// created and consumed within a single turn; they never outlive it.
type ExecutionRequest struct {
	// Runtime selects the interpreter.
	Runtime Runtime
	// Source is the code to run.
	Source string
	// Timeout is the wall-clock limit; the process group is killed when
	// it expires.
	Timeout time.Duration
	// WorkDir pins the working directory. When empty the harness creates
	// a scratch directory and removes it after the run.
	WorkDir string
}

// ExecutionResult is the harness's report of one invocation.
// Application-level failures (non-zero exit, exceptions in the executed
// code) live here, not in an error return.
type ExecutionResult struct {
	// Stdout and Stderr are the captured streams, truncated at the
	// harness capture cap.
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	// ExitCode is the process exit status. -1 when the process was
	// killed before exiting normally.
	ExitCode int `json:"exit_code"`
	// Duration is the observed wall-clock runtime.
	Duration time.Duration `json:"duration"`
	// TimedOut is set when the timeout fired and the process group was
	// torn down.
	TimedOut bool `json:"timed_out"`
	// Killed distinguishes "code hung and was killed" from "code exited
	// non-zero on its own".
	Killed bool `json:"killed"`
	// Truncated is set when either stream hit the capture cap.
	Truncated bool `json:"truncated"`
	// Artifacts lists files the executed code created in the working
	// directory, relative to it.
	Artifacts []string `json:"artifacts,omitempty"`
}

// Failed reports whether the invocation ended in an application-level
// failure the model should see and adapt to.
func (r ExecutionResult) Failed() bool {
	return r.TimedOut || r.ExitCode != 0
}
