// Package app wires configuration into a ready to use executor.
package app

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/computerscienceiscool/metagate/pkg/audit"
	"github.com/computerscienceiscool/metagate/pkg/config"
	"github.com/computerscienceiscool/metagate/pkg/evaluator"
	"github.com/computerscienceiscool/metagate/pkg/mediator"
)

// App represents the main application
type App struct {
	config    *config.Config
	logger    zerolog.Logger
	executor  *evaluator.Executor
	audit     audit.Log
	runner    mediator.Runner
	sessionID string
}

// Executor returns the app's executor
func (a *App) Executor() *evaluator.Executor {
	return a.executor
}

// Config returns the app's configuration
func (a *App) Config() *config.Config {
	return a.config
}

// Audit returns the outcome recorder
func (a *App) Audit() audit.Log {
	return a.audit
}

// Logger returns the diagnostic logger
func (a *App) Logger() zerolog.Logger {
	return a.logger
}

// SessionID identifies this process in audit records
func (a *App) SessionID() string {
	return a.sessionID
}

// PrintVerboseInfo writes the effective configuration to w
func (a *App) PrintVerboseInfo(w io.Writer) {
	fmt.Fprintf(w, "Session: %s\n", a.sessionID)
	fmt.Fprintf(w, "Sandbox roots: %v\n", a.config.Sandbox.Roots)
	fmt.Fprintf(w, "Strict symlinks: %v\n", a.config.Sandbox.StrictSymlinks)
	fmt.Fprintf(w, "Runner: %s\n", a.config.Mediator.Runner)
	if a.config.Mediator.Runner == "docker" {
		fmt.Fprintf(w, "Runner image: %s\n", a.config.Mediator.Docker.Image)
	}
	if a.config.Mediator.Timeout > 0 {
		fmt.Fprintf(w, "Tool timeout: %v\n", a.config.Mediator.Timeout)
	}
	fmt.Fprintf(w, "Max output: %d bytes\n", a.config.Mediator.MaxOutputBytes)
	fmt.Fprintf(w, "Audit: %s\n", a.config.Audit.Backend)
}

// Close releases the audit recorder and the runner
func (a *App) Close() error {
	var firstErr error
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			firstErr = fmt.Errorf("failed to close audit log: %w", err)
		}
	}
	if c, ok := a.runner.(io.Closer); ok {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close runner: %w", err)
		}
	}
	return firstErr
}
