// Package harness runs action-block code in an isolated child process
// bound to one of the supported runtimes. Application-level failures
// (non-zero exit, exceptions inside the executed code) are reported
// inside the ExecutionResult; the error return is reserved for the
// harness itself being unable to launch the runtime.
package harness

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/sszhu/biomni/internal/config"
	"github.com/sszhu/biomni/pkg/models"
)

// script file names per runtime. Writing the source to a file keeps
// interpreter quoting out of the picture entirely.
var scriptNames = map[models.Runtime]string{
	models.RuntimePython: "snippet.py",
	models.RuntimeR:      "snippet.R",
	models.RuntimeBash:   "snippet.sh",
}

// Harness executes requests. It is safe for concurrent use: every
// invocation gets its own process, buffers, and working directory.
type Harness struct {
	commands       map[models.Runtime][]string
	defaultTimeout time.Duration
	captureLimit   int
}

// New creates a harness from configuration. Interpreter command lines
// are parsed shell-style so overrides like "python3 -u" work.
func New(cfg config.HarnessConfig) (*Harness, error) {
	commands := make(map[models.Runtime][]string, 3)
	for runtime, raw := range map[models.Runtime]string{
		models.RuntimePython: cfg.PythonCmd,
		models.RuntimeR:      cfg.RCmd,
		models.RuntimeBash:   cfg.BashCmd,
	} {
		if raw == "" {
			raw = string(runtime)
		}
		argv, err := shellwords.Parse(raw)
		if err != nil || len(argv) == 0 {
			return nil, fmt.Errorf("parse %s command %q: %w", runtime, raw, err)
		}
		commands[runtime] = argv
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 600 * time.Second
	}
	captureLimit := cfg.CaptureLimit
	if captureLimit <= 0 {
		captureLimit = 64 * 1024
	}

	return &Harness{
		commands:       commands,
		defaultTimeout: timeout,
		captureLimit:   captureLimit,
	}, nil
}

// Execute runs one request to completion. The returned error is non-nil
// only for hard failures: unknown runtime, missing interpreter, a
// working directory that cannot be prepared, or caller cancellation.
func (h *Harness) Execute(ctx context.Context, req models.ExecutionRequest) (models.ExecutionResult, error) {
	var result models.ExecutionResult

	argv, ok := h.commands[req.Runtime]
	if !ok {
		return result, fmt.Errorf("unknown runtime %q", req.Runtime)
	}

	workDir := req.WorkDir
	if workDir == "" {
		scratch, err := os.MkdirTemp("", "biomni-exec-")
		if err != nil {
			return result, fmt.Errorf("create scratch dir: %w", err)
		}
		defer os.RemoveAll(scratch)
		workDir = scratch
	}

	scriptPath := filepath.Join(workDir, scriptNames[req.Runtime])
	if err := os.WriteFile(scriptPath, []byte(req.Source), 0600); err != nil {
		return result, fmt.Errorf("write snippet: %w", err)
	}
	defer os.Remove(scriptPath)

	watcher := watchArtifacts(workDir, scriptNames[req.Runtime])

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = h.defaultTimeout
	}

	stdout := newCapBuffer(h.captureLimit)
	stderr := newCapBuffer(h.captureLimit)

	cmd := exec.Command(argv[0], append(argv[1:], scriptPath)...)
	cmd.Dir = workDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Own process group so a timeout tears down the whole tree, not
	// just the interpreter.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		watcher.stop()
		return result, fmt.Errorf("launch %s runtime: %w", req.Runtime, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:

	case <-timer.C:
		result.TimedOut = true
		killGroup(cmd)
		waitErr = <-done

	case <-ctx.Done():
		killGroup(cmd)
		<-done
		watcher.stop()
		return result, ctx.Err()
	}

	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdout.Truncated() || stderr.Truncated()
	result.Artifacts = watcher.stop()

	if waitErr == nil {
		result.ExitCode = 0
		return result, nil
	}

	exitErr, ok := waitErr.(*exec.ExitError)
	if !ok {
		// Wait itself failed; treat as a launch-level problem.
		return result, fmt.Errorf("wait for %s runtime: %w", req.Runtime, waitErr)
	}

	result.ExitCode = exitErr.ExitCode()
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		result.Killed = true
	}
	return result, nil
}

// killGroup force-terminates the child's whole process group.
func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		log.Printf("[harness] kill process group %d: %v", cmd.Process.Pid, err)
		// Fall back to killing just the direct child.
		_ = cmd.Process.Kill()
	}
}
