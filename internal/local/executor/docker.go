// Package executor runs workflow files in local Docker containers.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/dustin/go-humanize"
)

// WorkDir is where the workflow directory is mounted inside the container.
const WorkDir = "/workflow"

// Spec describes one container run.
type Spec struct {
	Image   string
	HostDir string   // bind-mounted at WorkDir
	Command []string // run with WorkDir as working directory
}

// Result is what a finished container left behind.
type Result struct {
	ExitCode int64
	Output   string // combined stdout and stderr
}

type DockerExecutor struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewDockerExecutor connects to the Docker daemon configured in the
// environment (DOCKER_HOST etc.).
func NewDockerExecutor(logger *slog.Logger) (*DockerExecutor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("connecting to docker: %w", err)
	}
	return &DockerExecutor{cli: cli, logger: logger}, nil
}

func (e *DockerExecutor) Close() error {
	return e.cli.Close()
}

// Run starts a container for spec, waits for it and returns its exit code
// and output. The container is removed afterwards.
func (e *DockerExecutor) Run(ctx context.Context, spec Spec) (*Result, error) {
	if err := e.ensureImage(ctx, spec.Image); err != nil {
		return nil, err
	}

	resp, err := e.cli.ContainerCreate(ctx, &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Command,
		WorkingDir: WorkDir,
		Tty:        false,
	}, &container.HostConfig{
		Binds: []string{spec.HostDir + ":" + WorkDir},
	}, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	id := resp.ID
	e.logger.Debug("container created", "id", id[:12], "image", spec.Image)
	defer func() {
		if err := e.cli.ContainerRemove(context.Background(), id, types.ContainerRemoveOptions{Force: true}); err != nil {
			e.logger.Warn("removing container failed", "id", id[:12], "error", err)
		}
	}()

	if err := e.cli.ContainerStart(ctx, id, types.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	var exitCode int64
	statusCh, errCh := e.cli.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return nil, fmt.Errorf("waiting for container: %w", err)
		}
	case status := <-statusCh:
		exitCode = status.StatusCode
		if status.Error != nil {
			e.logger.Warn("container wait reported an error", "id", id[:12], "error", status.Error.Message)
		}
	}

	logs, err := e.cli.ContainerLogs(ctx, id, types.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("reading container logs: %w", err)
	}
	defer logs.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, logs); err != nil {
		return nil, fmt.Errorf("reading container logs: %w", err)
	}

	e.logger.Info("container finished", "id", id[:12], "exit_code", exitCode, "output", humanize.Bytes(uint64(buf.Len())))
	return &Result{ExitCode: exitCode, Output: buf.String()}, nil
}

// ensureImage pulls image unless it is already present.
func (e *DockerExecutor) ensureImage(ctx context.Context, image string) error {
	inspect, _, err := e.cli.ImageInspectWithRaw(ctx, image)
	if err == nil {
		e.logger.Debug("image present", "image", image, "size", humanize.Bytes(uint64(inspect.Size)))
		return nil
	}
	if !client.IsErrNotFound(err) {
		return fmt.Errorf("inspecting image %s: %w", image, err)
	}

	e.logger.Info("pulling image", "image", image)
	reader, err := e.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("pulling image %s: %w", image, err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pulling image %s: %w", image, err)
	}
	return nil
}
