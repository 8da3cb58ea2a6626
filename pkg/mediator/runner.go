package mediator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

// RunResult is the captured outcome of one external process.
type RunResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	// Truncated is set when stdout exceeded the output cap. Stderr is cut at
	// the same cap without being reported.
	Truncated bool
}

// Runner executes a binary with a discrete argument vector. Implementations
// must never route args through a shell.
type Runner interface {
	Run(ctx context.Context, binary string, args []string, maxOutput int) (RunResult, error)
}

// LocalRunner runs tools as child processes of this process.
type LocalRunner struct {
	// Dir is where allow-listed binaries are looked up.
	Dir string
}

// NewLocalRunner returns a runner resolving binaries inside dir.
func NewLocalRunner(dir string) *LocalRunner {
	if dir == "" {
		dir = "/usr/bin"
	}
	return &LocalRunner{Dir: dir}
}

// Run executes Dir/binary. A non-zero exit is reported through ExitCode, not
// as an error.
func (r *LocalRunner) Run(ctx context.Context, binary string, args []string, maxOutput int) (RunResult, error) {
	if !isAllowedBinary(binary) {
		return RunResult{}, fmt.Errorf("binary %q is not allow-listed", binary)
	}

	cmd := exec.CommandContext(ctx, filepath.Join(r.Dir, binary), args...)
	cmd.Env = []string{"PATH=/usr/bin:/bin", "LANG=C", "LC_ALL=C"}

	var stdout, stderr bytes.Buffer
	stdoutW := &limitedWriter{buf: &stdout, limit: maxOutput}
	stderrW := &limitedWriter{buf: &stderr, limit: maxOutput}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	start := time.Now()
	err := cmd.Run()
	result := RunResult{
		Duration:  time.Since(start),
		Truncated: stdoutW.overflow,
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, err
		}
		result.ExitCode = exitErr.ExitCode()
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	return result, nil
}

// limitedWriter wraps a bytes.Buffer and stops writing after limit bytes.
// Excess input is discarded but reported as written so the child never sees
// a broken pipe; overflow records that it happened. A limit <= 0 disables
// the cap.
type limitedWriter struct {
	buf      *bytes.Buffer
	limit    int
	overflow bool
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if len(p) <= remaining {
		return w.buf.Write(p)
	}
	w.overflow = true
	if remaining > 0 {
		if _, err := w.buf.Write(p[:remaining]); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
