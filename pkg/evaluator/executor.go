// Package evaluator implements the metadata operations on top of the sandbox
// guards, the mediator and the value codec. Every error it returns has been
// sanitized and is safe to hand to an untrusted caller.
package evaluator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/computerscienceiscool/metagate/pkg/audit"
	"github.com/computerscienceiscool/metagate/pkg/mediator"
	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

// DefaultMaxConcurrency bounds batch fan-out.
const DefaultMaxConcurrency = 8

// Invoker runs an allow-listed tool. *mediator.Mediator implements it.
type Invoker interface {
	Invoke(ctx context.Context, tool mediator.Tool, path sandbox.ValidatedPath, args ...mediator.Arg) (string, error)
}

// Executor handles metadata operations.
//
// Security model:
//   - every path goes through the PathGuard before any tool sees it
//   - attribute names are restricted to the identifier grammar
//   - tools run from a fixed allow-list with a discrete argv
//   - outcomes are recorded in the audit log; errors leave sanitized
type Executor struct {
	guard          *sandbox.PathGuard
	invoker        Invoker
	audit          audit.Log
	logger         zerolog.Logger
	maxConcurrency int

	mu          sync.Mutex
	commandsRun int
}

// Option configures an Executor.
type Option func(*Executor)

// WithAudit sets the outcome recorder.
func WithAudit(l audit.Log) Option {
	return func(e *Executor) {
		if l != nil {
			e.audit = l
		}
	}
}

// WithLogger sets the local diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Executor) {
		e.logger = l
	}
}

// WithMaxConcurrency bounds how many tool invocations a batch runs at once.
func WithMaxConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// NewExecutor creates a new executor instance.
func NewExecutor(guard *sandbox.PathGuard, invoker Invoker, opts ...Option) *Executor {
	e := &Executor{
		guard:          guard,
		invoker:        invoker,
		audit:          audit.Nop{},
		logger:         zerolog.Nop(),
		maxConcurrency: DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Guard returns the executor's path guard.
func (e *Executor) Guard() *sandbox.PathGuard {
	return e.guard
}

// CommandsRun returns the number of successfully completed operations.
func (e *Executor) CommandsRun() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commandsRun
}

// validate runs the guard and converts failures into their public form.
func (e *Executor) validate(op mediator.Tool, raw string) (sandbox.ValidatedPath, error) {
	p, err := e.guard.Validate(raw)
	if err != nil {
		e.logger.Info().Str("op", op.String()).Err(err).Msg("path rejected")
		return sandbox.ValidatedPath{}, sandbox.SanitizeError(err)
	}
	return p, nil
}

// finish records the outcome of op and returns err in its public form.
func (e *Executor) finish(op mediator.Tool, target sandbox.ValidatedPath, attribute string, err error) error {
	success := err == nil
	if recErr := e.audit.Record(op.String(), target.String(), attribute, success); recErr != nil {
		e.logger.Error().Err(recErr).Str("op", op.String()).Msg("failed to record audit outcome")
	}

	if success {
		e.mu.Lock()
		e.commandsRun++
		e.mu.Unlock()
		return nil
	}

	e.logger.Warn().
		Str("op", op.String()).
		Str("target", target.String()).
		Str("attribute", attribute).
		Err(err).
		Msg("operation failed")
	return sandbox.SanitizeError(err)
}
