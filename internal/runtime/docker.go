package runtime

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"

	"github.com/lucent-labs/lucent-provision/internal/domain"
)

// Client adapts the Docker SDK to the operations the provisioner needs.
// It holds no state of its own; the daemon is the single source of truth.
type Client struct {
	logger zerolog.Logger
	cli    dockerClient
	out    io.Writer
}

func NewClient(cli dockerClient, out io.Writer, logger zerolog.Logger) *Client {
	return &Client{
		logger: logger,
		cli:    cli,
		out:    out,
	}
}

// FindByName returns the containers (any state) whose name equals name
// exactly. The daemon's name filter matches substrings, so the result set
// is post-filtered; without that, "lucent-server" would match
// "lucent-server-fastapi" and vice versa.
func (c *Client) FindByName(ctx context.Context, name string) ([]domain.Container, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("name", name)

	opts := container.ListOptions{All: true, Filters: filterArgs}
	summaries, err := c.cli.ContainerList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing containers: %w", err)
	}

	var matches []domain.Container
	for _, s := range summaries {
		if !summaryHasName(s, name) {
			continue
		}
		matches = append(matches, fromContainerSummary(s))
	}
	return matches, nil
}

// Remove force-removes the container, stopping it first if running.
func (c *Client) Remove(ctx context.Context, id string) error {
	opts := container.RemoveOptions{Force: true}
	if err := c.cli.ContainerRemove(ctx, id, opts); err != nil {
		return fmt.Errorf("removing container %s: %w", id, err)
	}
	return nil
}

// BuildImage tars the build context and builds it into an image tagged tag.
// Build output streams to the client's writer; a daemon-side build error
// terminates the stream and is returned.
func (c *Client) BuildImage(ctx context.Context, contextDir, tag string) error {
	buildCtx, err := archive.TarWithOptions(contextDir, &archive.TarOptions{})
	if err != nil {
		return fmt.Errorf("tarring build context %q: %w", contextDir, err)
	}
	defer buildCtx.Close()

	opts := types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: "Dockerfile",
		Remove:     true,
	}
	resp, err := c.cli.ImageBuild(ctx, buildCtx, opts)
	if err != nil {
		return fmt.Errorf("building image %s: %w", tag, err)
	}
	defer resp.Body.Close()

	// The build runs daemon-side; failures arrive as error messages in the
	// JSON stream, not as an error from ImageBuild itself.
	if err := jsonmessage.DisplayJSONMessagesStream(resp.Body, c.out, 0, false, nil); err != nil {
		return fmt.Errorf("building image %s: %w", tag, err)
	}
	return nil
}

// Run creates and starts a detached container per spec, returning its ID.
func (c *Client) Run(ctx context.Context, spec domain.ContainerSpec) (string, error) {
	port, err := nat.NewPort("tcp", strconv.Itoa(int(spec.Port.ContainerPort)))
	if err != nil {
		return "", fmt.Errorf("container port %d: %w", spec.Port.ContainerPort, err)
	}

	cfg := &container.Config{
		Image:      spec.Image,
		WorkingDir: spec.WorkDir,
		ExposedPorts: nat.PortSet{
			port: struct{}{},
		},
	}
	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			port: []nat.PortBinding{
				{HostIP: "0.0.0.0", HostPort: strconv.Itoa(int(spec.Port.HostPort))},
			},
		},
		Binds: []string{spec.Mount.String()},
	}

	created, err := c.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("creating container %s: %w", spec.Name, err)
	}
	for _, w := range created.Warnings {
		c.logger.Warn().Str("container", spec.Name).Msg(w)
	}

	if err := c.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("starting container %s: %w", spec.Name, err)
	}
	return created.ID, nil
}

// Exec runs cmd inside the running container, copying its output to the
// client's writer. A non-zero exit code from the command is an error.
func (c *Client) Exec(ctx context.Context, id string, cmd []string) error {
	execOpts := container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	}
	created, err := c.cli.ContainerExecCreate(ctx, id, execOpts)
	if err != nil {
		return fmt.Errorf("creating exec in %s: %w", id, err)
	}

	attached, err := c.cli.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return fmt.Errorf("attaching to exec in %s: %w", id, err)
	}
	defer attached.Close()

	if _, err := stdcopy.StdCopy(c.out, c.out, attached.Reader); err != nil {
		return fmt.Errorf("reading exec output: %w", err)
	}

	inspect, err := c.cli.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return fmt.Errorf("inspecting exec in %s: %w", id, err)
	}
	if inspect.ExitCode != 0 {
		return &ExecExitError{Cmd: cmd, ExitCode: inspect.ExitCode}
	}
	return nil
}

// StreamLogs follows the container's output, demuxing the daemon's stream
// into stdout and stderr. It blocks until the stream ends or ctx is
// cancelled; cancellation is reported as nil since it is the normal way to
// stop following.
func (c *Client) StreamLogs(ctx context.Context, id string, stdout, stderr io.Writer) error {
	opts := container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	}
	rc, err := c.cli.ContainerLogs(ctx, id, opts)
	if err != nil {
		return fmt.Errorf("attaching to logs of %s: %w", id, err)
	}
	defer rc.Close()

	_, err = stdcopy.StdCopy(stdout, stderr, rc)
	if ctx.Err() != nil {
		c.logger.Info().Msg("Log streaming cancelled")
		return nil
	}
	if err != nil {
		return fmt.Errorf("streaming logs of %s: %w", id, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}
