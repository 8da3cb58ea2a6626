// Package mediator composes validated inputs into allow-listed invocations of
// the external metadata tools.
package mediator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

const (
	// DefaultMaxOutput caps captured stdout per invocation.
	DefaultMaxOutput = 10 * 1024 * 1024
	// DefaultTimeout bounds a single invocation.
	DefaultTimeout = 30 * time.Second
)

// benignFailures match tool output that means "nothing there" rather than
// a failure.
var benignFailures = regexp.MustCompile(`(?i)(no such xattr|no such attribute|attribute not found|could not find)`)

// Mediator runs allow-listed tools with validated arguments.
type Mediator struct {
	runner    Runner
	timeout   time.Duration
	maxOutput int
	logger    zerolog.Logger
}

// Option configures a Mediator.
type Option func(*Mediator)

// WithTimeout bounds each invocation; 0 leaves cancellation to the caller.
func WithTimeout(d time.Duration) Option {
	return func(m *Mediator) {
		m.timeout = d
	}
}

// WithMaxOutput sets the stdout cap in bytes.
func WithMaxOutput(n int) Option {
	return func(m *Mediator) {
		if n > 0 {
			m.maxOutput = n
		}
	}
}

// WithLogger sets the local diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Mediator) {
		m.logger = l
	}
}

// New creates a Mediator on top of runner.
func New(runner Runner, opts ...Option) *Mediator {
	m := &Mediator{
		runner:    runner,
		timeout:   DefaultTimeout,
		maxOutput: DefaultMaxOutput,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Invoke runs tool against path and returns its raw stdout.
//
// A known "nothing found" condition yields ("", nil). Other failures wrap
// sandbox.ErrInvalidInput, sandbox.ErrOutputTooLarge or are a
// *sandbox.ToolError. Tool errors can carry host detail; callers outside the
// trust boundary must receive them through sandbox.SanitizeError.
func (m *Mediator) Invoke(ctx context.Context, tool Tool, path sandbox.ValidatedPath, args ...Arg) (string, error) {
	if !tool.Valid() {
		return "", fmt.Errorf("%w: unknown tool", sandbox.ErrInvalidInput)
	}
	argv, err := buildArgv(tool, path, args)
	if err != nil {
		return "", err
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	res, err := m.runner.Run(ctx, tool.Binary(), argv, m.maxOutput)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			detail = fmt.Sprintf("timed out after %v", m.timeout)
		}
		m.logger.Warn().Err(err).Str("tool", tool.String()).Str("path", path.String()).Msg("tool did not run")
		return "", &sandbox.ToolError{Tool: tool.String(), Detail: detail}
	}

	if res.Truncated {
		m.logger.Warn().Str("tool", tool.String()).Int("limit", m.maxOutput).Msg("tool output exceeded cap")
		return "", fmt.Errorf("%w: %s output exceeded %d bytes", sandbox.ErrOutputTooLarge, tool, m.maxOutput)
	}

	if res.ExitCode != 0 {
		if benignFailures.MatchString(res.Stderr) || benignFailures.MatchString(res.Stdout) {
			m.logger.Debug().Str("tool", tool.String()).Msg("nothing found")
			return "", nil
		}
		if ctx.Err() != nil {
			return "", &sandbox.ToolError{Tool: tool.String(), Detail: fmt.Sprintf("timed out after %v", m.timeout)}
		}
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("exit status %d", res.ExitCode)
		}
		m.logger.Debug().
			Str("tool", tool.String()).
			Int("exit_code", res.ExitCode).
			Str("stderr", detail).
			Msg("tool failed")
		return "", &sandbox.ToolError{Tool: tool.String(), Detail: detail}
	}

	m.logger.Debug().
		Str("tool", tool.String()).
		Dur("duration", res.Duration).
		Int("bytes", len(res.Stdout)).
		Msg("tool completed")
	return res.Stdout, nil
}
