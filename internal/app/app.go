package app

import (
	"context"
	"fmt"
	"os"

	dockerCli "github.com/docker/docker/client"
	"github.com/rs/zerolog"

	"github.com/lucent-labs/lucent-provision/internal/config"
	"github.com/lucent-labs/lucent-provision/internal/provision"
	"github.com/lucent-labs/lucent-provision/internal/runtime"
)

type App struct {
	runtimeClient *runtime.Client
	provisioner   *provision.Provisioner
	logger        zerolog.Logger
}

// New creates a new App by wiring up all dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.Provision.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provisioning config: %w", err)
	}

	// Docker CLI
	dockerClient, err := dockerCli.NewClientWithOpts(dockerCli.FromEnv, dockerCli.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	runtimeClient := runtime.NewClient(dockerClient, os.Stdout, logger)
	provisioner := provision.New(&cfg.Provision, runtimeClient, os.Stdout, os.Stderr, logger)

	return &App{
		runtimeClient: runtimeClient,
		provisioner:   provisioner,
		logger:        logger,
	}, nil
}

// Run executes the provisioning sequence against the runtime.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info().Msg("Application starting")
	return a.provisioner.Run(ctx)
}

func (a *App) Close() error {
	if a.runtimeClient != nil {
		if err := a.runtimeClient.Close(); err != nil {
			return fmt.Errorf("close runtime client: %w", err)
		}
	}
	return nil
}
