package provision

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/lucent-labs/lucent-provision/internal/config"
	"github.com/lucent-labs/lucent-provision/internal/domain"
)

// Runtime is the container-runtime contract the provisioner is a client
// of. It is satisfied by runtime.Client and by fakes in tests.
type Runtime interface {
	FindByName(ctx context.Context, name string) ([]domain.Container, error)
	Remove(ctx context.Context, id string) error
	BuildImage(ctx context.Context, contextDir, tag string) error
	Run(ctx context.Context, spec domain.ContainerSpec) (string, error)
	Exec(ctx context.Context, id string, cmd []string) error
	StreamLogs(ctx context.Context, id string, stdout, stderr io.Writer) error
}

// Provisioner converges the runtime to exactly one running container of
// the freshly built image, then follows its logs. It keeps no state
// between invocations and assumes a single operator: concurrent
// invocations against the same container name are not coordinated.
type Provisioner struct {
	logger  zerolog.Logger
	cfg     *config.ProvisionConfig
	runtime Runtime
	stdout  io.Writer
	stderr  io.Writer

	containerID string
}

func New(cfg *config.ProvisionConfig, rt Runtime, stdout, stderr io.Writer, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		logger:  logger,
		cfg:     cfg,
		runtime: rt,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Run executes the full sequence:
// check → remove? → build → run → install deps → status → stream logs.
// The first fatal failure halts it; the dependency-install and status
// steps are reported but never halt.
func (p *Provisioner) Run(ctx context.Context) error {
	steps := []Step{
		{Name: "remove existing container", Fatal: true, Run: p.removeExisting},
		{Name: "build image", Fatal: true, Run: p.buildImage},
		{Name: "start container", Fatal: true, Run: p.startContainer},
		{Name: "install dependencies", Fatal: false, Run: p.installDeps},
		{Name: "report status", Fatal: false, Run: p.reportStatus},
		{Name: "stream logs", Fatal: true, Run: p.streamLogs},
	}
	return runSteps(ctx, p.logger, steps)
}

func (p *Provisioner) removeExisting(ctx context.Context) error {
	existing, err := p.runtime.FindByName(ctx, p.cfg.ContainerName)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		p.logger.Info().Str("container", p.cfg.ContainerName).Msg("No existing container")
		return nil
	}
	for _, c := range existing {
		p.logger.Info().Str("container", c.Name).Str("state", c.State).Msg("Removing existing container")
		if err := p.runtime.Remove(ctx, c.Id); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) buildImage(ctx context.Context) error {
	p.logger.Info().Str("image", p.cfg.ImageName).Str("context", p.cfg.BuildContext).Msg("Building image")
	return p.runtime.BuildImage(ctx, p.cfg.BuildContext, p.cfg.ImageName)
}

func (p *Provisioner) startContainer(ctx context.Context) error {
	src, err := filepath.Abs(p.cfg.BuildContext)
	if err != nil {
		return fmt.Errorf("resolving build context: %w", err)
	}
	spec := domain.ContainerSpec{
		Name:    p.cfg.ContainerName,
		Image:   p.cfg.ImageName,
		WorkDir: p.cfg.WorkDir,
		Port: domain.PortMapping{
			HostPort:      p.cfg.HostPort,
			ContainerPort: p.cfg.ContainerPort,
		},
		Mount: domain.BindMount{Source: src, Target: p.cfg.WorkDir},
	}
	id, err := p.runtime.Run(ctx, spec)
	if err != nil {
		return err
	}
	p.containerID = id
	p.logger.Info().Str("container", spec.Name).Str("id", id).Str("ports", spec.Port.String()).Msg("Container started")
	return nil
}

func (p *Provisioner) installDeps(ctx context.Context) error {
	if !p.cfg.InstallDeps {
		p.logger.Debug().Msg("Dependency install disabled")
		return nil
	}
	manifest := path.Join(p.cfg.WorkDir, p.cfg.RequirementsFile)
	p.logger.Info().Str("manifest", manifest).Msg("Installing dependencies")
	return p.runtime.Exec(ctx, p.containerID, []string{"pip", "install", "-r", manifest})
}

func (p *Provisioner) reportStatus(ctx context.Context) error {
	containers, err := p.runtime.FindByName(ctx, p.cfg.ContainerName)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		return fmt.Errorf("container %s not found after start", p.cfg.ContainerName)
	}
	for _, c := range containers {
		fmt.Fprintf(p.stdout, "%s\t%s\t%s\t%s\n", c.Id, c.Name, c.Image, c.Status)
	}
	return nil
}

func (p *Provisioner) streamLogs(ctx context.Context) error {
	p.logger.Info().Str("container", p.cfg.ContainerName).Msg("Streaming logs, interrupt to stop")
	return p.runtime.StreamLogs(ctx, p.containerID, p.stdout, p.stderr)
}
