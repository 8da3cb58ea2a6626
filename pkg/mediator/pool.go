package mediator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
)

// defaultAcquireTimeout bounds how long Run waits for a free container.
const defaultAcquireTimeout = 30 * time.Second

// PoolConfig configures a PoolRunner.
type PoolConfig struct {
	ContainerConfig

	// Size is the maximum number of warm containers.
	Size int
	// MaxUsesPerContainer recycles a container after this many invocations.
	MaxUsesPerContainer int
	// IdleTimeout removes containers unused for this long. Zero keeps them.
	IdleTimeout time.Duration
	// HealthCheckInterval is how often idle containers are inspected. Zero
	// disables the background sweep.
	HealthCheckInterval time.Duration
	// StartupContainers are created eagerly.
	StartupContainers int
	AcquireTimeout    time.Duration
}

type pooledContainer struct {
	id       string
	uses     int
	lastUsed time.Time
}

// PoolStats is a snapshot of pool activity.
type PoolStats struct {
	Total     int   `json:"total_containers"`
	Available int   `json:"available_containers"`
	Created   int64 `json:"containers_created"`
	Destroyed int64 `json:"containers_destroyed"`
	Hits      int64 `json:"pool_hits"`
	Misses    int64 `json:"pool_misses"`
}

// PoolRunner runs tool invocations with docker exec inside warm containers
// instead of creating a container per call. Each container has the same
// isolation as ContainerRunner's.
type PoolRunner struct {
	cli       *client.Client
	cfg       PoolConfig
	available chan *pooledContainer

	mu     sync.Mutex
	total  int
	closed bool
	stats  PoolStats

	stop     chan struct{}
	wg       sync.WaitGroup
	inflight sync.WaitGroup
}

// NewPoolRunner validates cfg, connects to Docker and starts the startup
// containers.
func NewPoolRunner(ctx context.Context, cfg PoolConfig) (*PoolRunner, error) {
	if cfg.Size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", cfg.Size)
	}
	if cfg.MaxUsesPerContainer <= 0 {
		return nil, fmt.Errorf("max uses per container must be positive, got %d", cfg.MaxUsesPerContainer)
	}
	if cfg.Image == "" {
		return nil, fmt.Errorf("container image is required")
	}
	if cfg.StartupContainers > cfg.Size {
		cfg.StartupContainers = cfg.Size
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = defaultAcquireTimeout
	}

	cli, err := newDockerClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureImage(ctx, cli, cfg.Image); err != nil {
		cli.Close()
		return nil, err
	}

	p := &PoolRunner{
		cli:       cli,
		cfg:       cfg,
		available: make(chan *pooledContainer, cfg.Size),
		stop:      make(chan struct{}),
	}

	for i := 0; i < cfg.StartupContainers; i++ {
		c, err := p.create(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to create startup container %d: %w", i, err)
		}
		p.mu.Lock()
		p.total++
		p.mu.Unlock()
		p.available <- c
	}

	if cfg.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.maintain(cfg.HealthCheckInterval)
	}
	return p, nil
}

// Run executes binary in a pooled container. A container whose invocation
// failed or was cancelled is discarded rather than reused.
func (p *PoolRunner) Run(ctx context.Context, binary string, args []string, maxOutput int) (RunResult, error) {
	start := time.Now()
	result := RunResult{}

	if !isAllowedBinary(binary) {
		return result, fmt.Errorf("binary %q is not allow-listed", binary)
	}

	p.inflight.Add(1)
	c, err := p.get(ctx)
	if err != nil {
		p.inflight.Done()
		return result, err
	}
	healthy := false
	defer func() {
		p.put(c, healthy)
		p.inflight.Done()
	}()

	exec, err := p.cli.ContainerExecCreate(ctx, c.id, types.ExecConfig{
		User:         "1000:1000",
		Env:          toolEnv,
		Cmd:          append([]string{binary}, args...),
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return result, fmt.Errorf("failed to create exec: %w", err)
	}

	hijacked, err := p.cli.ContainerExecAttach(ctx, exec.ID, types.ExecStartCheck{})
	if err != nil {
		return result, fmt.Errorf("failed to attach exec: %w", err)
	}
	defer hijacked.Close()

	done := make(chan error, 1)
	go func() {
		done <- demux(hijacked.Reader, maxOutput, &result)
	}()

	select {
	case err := <-done:
		if err != nil {
			return result, fmt.Errorf("failed to read exec output: %w", err)
		}
	case <-ctx.Done():
		hijacked.Close()
		<-done
		return RunResult{}, ctx.Err()
	}

	inspect, err := p.cli.ContainerExecInspect(ctx, exec.ID)
	if err != nil {
		return result, fmt.Errorf("failed to inspect exec: %w", err)
	}
	result.ExitCode = inspect.ExitCode
	result.Duration = time.Since(start)
	healthy = true
	return result, nil
}

// get acquires an idle container, starting a new one while the pool is below
// its size.
func (p *PoolRunner) get(ctx context.Context) (*pooledContainer, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("pool is closed")
	}
	p.mu.Unlock()

	select {
	case c := <-p.available:
		p.mu.Lock()
		p.stats.Hits++
		p.mu.Unlock()
		return c, nil
	default:
	}

	p.mu.Lock()
	if p.total < p.cfg.Size {
		p.total++
		p.stats.Misses++
		p.mu.Unlock()

		c, err := p.create(ctx)
		if err != nil {
			p.mu.Lock()
			p.total--
			p.mu.Unlock()
			return nil, fmt.Errorf("failed to create container: %w", err)
		}
		return c, nil
	}
	p.mu.Unlock()

	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case c := <-p.available:
		p.mu.Lock()
		p.stats.Hits++
		p.mu.Unlock()
		return c, nil
	case <-timer.C:
		return nil, fmt.Errorf("pool exhausted: timeout waiting for available container")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// put hands c back to the pool, or destroys it when it is worn out,
// unhealthy or the pool is closed.
func (p *PoolRunner) put(c *pooledContainer, healthy bool) {
	c.uses++
	c.lastUsed = time.Now()

	p.mu.Lock()
	if !p.closed && healthy && c.uses < p.cfg.MaxUsesPerContainer {
		// Never blocks: at most Size containers exist.
		p.available <- c
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.discard(context.Background(), c)
}

func (p *PoolRunner) create(ctx context.Context) (*pooledContainer, error) {
	containerConfig := &container.Config{
		Image:           p.cfg.Image,
		Cmd:             strslice.StrSlice{"sleep", "infinity"},
		User:            "1000:1000",
		NetworkDisabled: true,
	}

	resp, err := p.cli.ContainerCreate(ctx, containerConfig, hostConfig(p.cfg.ContainerConfig), nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	if err := p.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		p.cli.ContainerRemove(context.Background(), resp.ID, types.ContainerRemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	p.mu.Lock()
	p.stats.Created++
	p.mu.Unlock()
	return &pooledContainer{id: resp.ID, lastUsed: time.Now()}, nil
}

// discard removes c from Docker and from the pool's count.
func (p *PoolRunner) discard(ctx context.Context, c *pooledContainer) {
	p.cli.ContainerRemove(ctx, c.id, types.ContainerRemoveOptions{Force: true})

	p.mu.Lock()
	p.total--
	p.stats.Destroyed++
	p.mu.Unlock()
}

func (p *PoolRunner) maintain(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.sweep(context.Background())
		}
	}
}

// sweep inspects each idle container once, dropping the idle-expired and
// the ones no longer running.
func (p *PoolRunner) sweep(ctx context.Context) {
	n := len(p.available)
	for i := 0; i < n; i++ {
		var c *pooledContainer
		select {
		case c = <-p.available:
		default:
			return
		}

		expired := p.cfg.IdleTimeout > 0 && time.Since(c.lastUsed) > p.cfg.IdleTimeout
		if expired || !p.running(ctx, c) {
			p.discard(ctx, c)
			continue
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.discard(ctx, c)
			continue
		}
		p.available <- c
		p.mu.Unlock()
	}
}

func (p *PoolRunner) running(ctx context.Context, c *pooledContainer) bool {
	inspect, err := p.cli.ContainerInspect(ctx, c.id)
	if err != nil || inspect.ContainerJSONBase == nil || inspect.State == nil {
		return false
	}
	return inspect.State.Running && !inspect.State.Restarting
}

// Stats returns a snapshot of pool activity.
func (p *PoolRunner) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Total = p.total
	s.Available = len(p.available)
	return s
}

// Close stops the sweep, waits for running invocations, destroys every
// container and releases the client.
func (p *PoolRunner) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()
	p.inflight.Wait()

	ctx := context.Background()
	for {
		select {
		case c := <-p.available:
			p.discard(ctx, c)
		default:
			return p.cli.Close()
		}
	}
}
