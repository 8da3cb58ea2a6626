package mediator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// toolEnv is the environment every containerized tool runs with.
var toolEnv = []string{"LANG=C", "LC_ALL=C"}

// ContainerConfig configures a ContainerRunner.
type ContainerConfig struct {
	// Image must provide the allow-listed tools on its PATH.
	Image       string
	MemoryLimit string
	CPULimit    int
	// Mounts are bind mounted at the same path inside the container so a
	// validated host path is also valid in the container.
	Mounts   []string
	ReadOnly bool
}

// ContainerRunner runs each tool invocation in a throwaway Docker container
// with no network and all capabilities dropped.
type ContainerRunner struct {
	cfg ContainerConfig
	cli *client.Client
}

// NewContainerRunner connects to the Docker daemon described by the
// environment, verifies it responds and makes sure the image is present.
func NewContainerRunner(ctx context.Context, cfg ContainerConfig) (*ContainerRunner, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("container image is required")
	}
	cli, err := newDockerClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := ensureImage(ctx, cli, cfg.Image); err != nil {
		cli.Close()
		return nil, err
	}
	return &ContainerRunner{cfg: cfg, cli: cli}, nil
}

// Close releases the Docker client.
func (r *ContainerRunner) Close() error {
	if r.cli == nil {
		return nil
	}
	return r.cli.Close()
}

// Run executes binary inside a new container. The command is an exec form
// vector; no shell is involved.
func (r *ContainerRunner) Run(ctx context.Context, binary string, args []string, maxOutput int) (RunResult, error) {
	start := time.Now()
	result := RunResult{}

	if !isAllowedBinary(binary) {
		return result, fmt.Errorf("binary %q is not allow-listed", binary)
	}

	containerConfig := &container.Config{
		Image:           r.cfg.Image,
		Cmd:             strslice.StrSlice(append([]string{binary}, args...)),
		Env:             toolEnv,
		User:            "1000:1000",
		NetworkDisabled: true,
	}

	resp, err := r.cli.ContainerCreate(ctx, containerConfig, hostConfig(r.cfg), nil, nil, "")
	if err != nil {
		return result, fmt.Errorf("failed to create container: %w", err)
	}
	defer r.cli.ContainerRemove(context.Background(), resp.ID, types.ContainerRemoveOptions{Force: true})

	if err := r.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return result, fmt.Errorf("failed to start container: %w", err)
	}

	statusCh, errCh := r.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return result, fmt.Errorf("error waiting for container: %w", err)
		}
	case status := <-statusCh:
		result.ExitCode = int(status.StatusCode)
	case <-ctx.Done():
		return result, ctx.Err()
	}

	logs, err := r.cli.ContainerLogs(ctx, resp.ID, types.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return result, fmt.Errorf("failed to get container logs: %w", err)
	}
	defer logs.Close()

	if err := demux(logs, maxOutput, &result); err != nil {
		return result, fmt.Errorf("failed to read container logs: %w", err)
	}
	result.Duration = time.Since(start)
	return result, nil
}

// demux splits a multiplexed Docker stream into result's stdout and stderr,
// each capped at maxOutput bytes.
func demux(src io.Reader, maxOutput int, result *RunResult) error {
	var stdout, stderr bytes.Buffer
	stdoutW := &limitedWriter{buf: &stdout, limit: maxOutput}
	stderrW := &limitedWriter{buf: &stderr, limit: maxOutput}
	_, err := stdcopy.StdCopy(stdoutW, stderrW, src)

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.Truncated = stdoutW.overflow
	return err
}

// hostConfig is the isolation every tool container gets: no network, no
// capabilities, a read-only root filesystem and only the sandbox roots
// mounted.
func hostConfig(cfg ContainerConfig) *container.HostConfig {
	mounts := make([]mount.Mount, 0, len(cfg.Mounts))
	for _, dir := range cfg.Mounts {
		mounts = append(mounts, mount.Mount{
			Type:     mount.TypeBind,
			Source:   dir,
			Target:   dir,
			ReadOnly: cfg.ReadOnly,
		})
	}

	return &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   parseMemoryLimit(cfg.MemoryLimit),
			NanoCPUs: int64(cfg.CPULimit) * 1000000000,
		},
		Mounts:         mounts,
		CapDrop:        strslice.StrSlice{"ALL"},
		SecurityOpt:    []string{"no-new-privileges"},
		ReadonlyRootfs: true,
	}
}

func newDockerClient(ctx context.Context) (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("Docker not available: %w", err)
	}
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("Docker not available: %w", err)
	}
	return cli, nil
}

// ensureImage pulls image unless it is already present locally.
func ensureImage(ctx context.Context, cli *client.Client, image string) error {
	if _, _, err := cli.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	}

	reader, err := cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull Docker image: %w", err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull Docker image: %w", err)
	}
	return nil
}

// parseMemoryLimit converts a memory limit string (e.g. "256m") to bytes.
func parseMemoryLimit(limit string) int64 {
	if limit == "" {
		return 0
	}
	var n int64
	if _, err := fmt.Sscanf(limit, "%d", &n); err != nil {
		return 0
	}
	switch {
	case strings.HasSuffix(limit, "k"), strings.HasSuffix(limit, "K"):
		return n * 1024
	case strings.HasSuffix(limit, "m"), strings.HasSuffix(limit, "M"):
		return n * 1024 * 1024
	case strings.HasSuffix(limit, "g"), strings.HasSuffix(limit, "G"):
		return n * 1024 * 1024 * 1024
	default:
		return n
	}
}
