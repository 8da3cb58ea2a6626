package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/computerscienceiscool/metagate/internal/logger"
	"github.com/computerscienceiscool/metagate/pkg/audit"
	"github.com/computerscienceiscool/metagate/pkg/config"
	"github.com/computerscienceiscool/metagate/pkg/evaluator"
	"github.com/computerscienceiscool/metagate/pkg/mediator"
	"github.com/computerscienceiscool/metagate/pkg/sandbox"
)

// Bootstrap initializes and returns a configured App. Diagnostics are
// written to logOut.
func Bootstrap(ctx context.Context, cfg *config.Config, logOut io.Writer) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, logOut)

	// Verify sandbox roots exist
	for _, dir := range cfg.Sandbox.Roots {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("sandbox root does not exist: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("sandbox root is not a directory: %s", dir)
		}
	}

	roots, err := sandbox.NewRoots(cfg.Sandbox.Roots...)
	if err != nil {
		return nil, fmt.Errorf("invalid sandbox roots: %w", err)
	}
	guard := sandbox.NewPathGuard(roots, sandbox.WithStrictSymlinks(cfg.Sandbox.StrictSymlinks))

	runner, err := newRunner(ctx, cfg, roots)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	auditLog, err := newAuditLog(cfg.Audit, sessionID)
	if err != nil {
		closeRunner(runner)
		return nil, err
	}

	med := mediator.New(runner,
		mediator.WithTimeout(cfg.Mediator.Timeout),
		mediator.WithMaxOutput(cfg.Mediator.MaxOutputBytes),
		mediator.WithLogger(log),
	)

	exec := evaluator.NewExecutor(guard, med,
		evaluator.WithAudit(auditLog),
		evaluator.WithLogger(log),
		evaluator.WithMaxConcurrency(cfg.Evaluator.MaxConcurrency),
	)

	log.Debug().
		Str("session", sessionID).
		Strs("roots", roots.Dirs()).
		Str("runner", cfg.Mediator.Runner).
		Str("audit", cfg.Audit.Backend).
		Msg("metagate ready")

	return &App{
		config:    cfg,
		logger:    log,
		executor:  exec,
		audit:     auditLog,
		runner:    runner,
		sessionID: sessionID,
	}, nil
}

func newRunner(ctx context.Context, cfg *config.Config, roots sandbox.Roots) (mediator.Runner, error) {
	docker := cfg.Mediator.Docker
	containerCfg := mediator.ContainerConfig{
		Image:       docker.Image,
		MemoryLimit: docker.MemoryLimit,
		CPULimit:    docker.CPULimit,
		Mounts:      roots.Dirs(),
	}

	switch {
	case cfg.Mediator.Runner == "docker" && docker.PoolSize > 0:
		r, err := mediator.NewPoolRunner(ctx, mediator.PoolConfig{
			ContainerConfig:     containerCfg,
			Size:                docker.PoolSize,
			MaxUsesPerContainer: docker.PoolMaxUses,
			IdleTimeout:         docker.PoolIdleTimeout,
			HealthCheckInterval: docker.PoolHealthInterval,
			StartupContainers:   1,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create container pool: %w", err)
		}
		return r, nil
	case cfg.Mediator.Runner == "docker":
		r, err := mediator.NewContainerRunner(ctx, containerCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create container runner: %w", err)
		}
		return r, nil
	default:
		return mediator.NewLocalRunner(cfg.Mediator.BinDir), nil
	}
}

func newAuditLog(cfg config.AuditConfig, sessionID string) (audit.Log, error) {
	switch cfg.Backend {
	case "file":
		l, err := audit.NewFileLog(cfg.Path, cfg.Format, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		return l, nil
	case "sqlite":
		l, err := audit.NewSQLiteLog(cfg.Path, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit database: %w", err)
		}
		return l, nil
	default:
		return audit.Nop{}, nil
	}
}

func closeRunner(r mediator.Runner) {
	if c, ok := r.(io.Closer); ok {
		c.Close()
	}
}
