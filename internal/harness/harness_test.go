package harness

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sszhu/biomni/internal/config"
	"github.com/sszhu/biomni/pkg/models"
)

func newTestHarness(t *testing.T, cfg config.HarnessConfig) *Harness {
	t.Helper()
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return h
}

func TestExecute_CapturesStreamsAndExitCode(t *testing.T) {
	h := newTestHarness(t, config.HarnessConfig{})

	res, err := h.Execute(context.Background(), models.ExecutionRequest{
		Runtime: models.RuntimeBash,
		Source:  "echo out-line\necho err-line >&2\nexit 3",
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !strings.Contains(res.Stdout, "out-line") {
		t.Errorf("Stdout = %q", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "err-line") {
		t.Errorf("Stderr = %q", res.Stderr)
	}
	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.TimedOut || res.Killed {
		t.Errorf("TimedOut=%v Killed=%v for a normal exit", res.TimedOut, res.Killed)
	}
	if !res.Failed() {
		t.Error("Failed() = false for non-zero exit")
	}
}

func TestExecute_TimeoutKillsProcess(t *testing.T) {
	h := newTestHarness(t, config.HarnessConfig{})

	start := time.Now()
	res, err := h.Execute(context.Background(), models.ExecutionRequest{
		Runtime: models.RuntimeBash,
		Source:  "echo before-sleep\nsleep 30\necho after-sleep",
		Timeout: 300 * time.Millisecond,
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false")
	}
	if !res.Killed {
		t.Error("Killed = false; timeout must be distinguishable from a plain failure")
	}
	if res.ExitCode == 0 {
		t.Errorf("ExitCode = 0 after kill")
	}
	// Partial output captured before the kill is preserved.
	if !strings.Contains(res.Stdout, "before-sleep") {
		t.Errorf("partial Stdout lost: %q", res.Stdout)
	}
	if strings.Contains(res.Stdout, "after-sleep") {
		t.Error("process survived past the timeout")
	}
	// Kill happens within a small margin of the configured timeout.
	if elapsed > 3*time.Second {
		t.Errorf("execution took %v despite 300ms timeout", elapsed)
	}
}

func TestExecute_TruncatesRunawayOutput(t *testing.T) {
	h := newTestHarness(t, config.HarnessConfig{CaptureLimit: 128})

	res, err := h.Execute(context.Background(), models.ExecutionRequest{
		Runtime: models.RuntimeBash,
		Source:  "for i in $(seq 1 1000); do echo line-$i; done",
		Timeout: 10 * time.Second,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if !res.Truncated {
		t.Error("Truncated = false")
	}
	if !strings.HasSuffix(res.Stdout, truncationMarker) {
		t.Errorf("Stdout missing truncation marker: %q", res.Stdout)
	}
	if len(res.Stdout) > 128+len(truncationMarker) {
		t.Errorf("Stdout length %d exceeds cap", len(res.Stdout))
	}
}

func TestExecute_ReportsArtifacts(t *testing.T) {
	h := newTestHarness(t, config.HarnessConfig{})
	workDir := t.TempDir()

	res, err := h.Execute(context.Background(), models.ExecutionRequest{
		Runtime: models.RuntimeBash,
		Source:  "echo data > results.csv\necho more > plot.png",
		Timeout: 10 * time.Second,
		WorkDir: workDir,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{"plot.png", "results.csv"}
	if len(res.Artifacts) != len(want) {
		t.Fatalf("Artifacts = %v, want %v", res.Artifacts, want)
	}
	for i := range want {
		if res.Artifacts[i] != want[i] {
			t.Errorf("Artifacts[%d] = %q, want %q", i, res.Artifacts[i], want[i])
		}
	}
}

func TestExecute_PinnedWorkDirPersistsFiles(t *testing.T) {
	h := newTestHarness(t, config.HarnessConfig{})
	workDir := t.TempDir()

	_, err := h.Execute(context.Background(), models.ExecutionRequest{
		Runtime: models.RuntimeBash,
		Source:  "echo step-one > state.txt",
		Timeout: 10 * time.Second,
		WorkDir: workDir,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := h.Execute(context.Background(), models.ExecutionRequest{
		Runtime: models.RuntimeBash,
		Source:  "cat state.txt",
		Timeout: 10 * time.Second,
		WorkDir: workDir,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.Stdout, "step-one") {
		t.Errorf("second step could not read first step's file: %q", res.Stdout)
	}

	// The snippet file itself is cleaned up between steps.
	if _, err := os.Stat(filepath.Join(workDir, "snippet.sh")); !os.IsNotExist(err) {
		t.Error("snippet file left behind in pinned workdir")
	}
}

func TestExecute_UnknownRuntimeIsHardError(t *testing.T) {
	h := newTestHarness(t, config.HarnessConfig{})

	_, err := h.Execute(context.Background(), models.ExecutionRequest{
		Runtime: models.Runtime("fortran"),
		Source:  "x",
	})
	if err == nil {
		t.Fatal("Execute() accepted an unknown runtime")
	}
}

func TestExecute_MissingInterpreterIsHardError(t *testing.T) {
	h := newTestHarness(t, config.HarnessConfig{
		PythonCmd: "definitely-not-an-interpreter-7c1a",
	})

	_, err := h.Execute(context.Background(), models.ExecutionRequest{
		Runtime: models.RuntimePython,
		Source:  "print(1)",
		Timeout: 5 * time.Second,
	})
	if err == nil {
		t.Fatal("Execute() returned nil error for a missing interpreter")
	}
}

func TestExecute_Cancellation(t *testing.T) {
	h := newTestHarness(t, config.HarnessConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := h.Execute(ctx, models.ExecutionRequest{
		Runtime: models.RuntimeBash,
		Source:  "sleep 30",
		Timeout: time.Minute,
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Execute() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("cancellation did not tear down the child promptly")
	}
}

func TestNew_BadCommandLine(t *testing.T) {
	_, err := New(config.HarnessConfig{PythonCmd: `python3 "unterminated`})
	if err == nil {
		t.Error("New() accepted an unparseable command line")
	}
}

func TestCapBuffer(t *testing.T) {
	b := newCapBuffer(10)

	n, err := b.Write([]byte("0123456789abcdef"))
	if err != nil || n != 16 {
		t.Fatalf("Write() = (%d, %v)", n, err)
	}
	if !b.Truncated() {
		t.Error("Truncated() = false")
	}
	if got := b.String(); got != "0123456789"+truncationMarker {
		t.Errorf("String() = %q", got)
	}

	small := newCapBuffer(10)
	small.Write([]byte("hi"))
	if small.Truncated() || small.String() != "hi" {
		t.Errorf("small buffer: truncated=%v content=%q", small.Truncated(), small.String())
	}
}
