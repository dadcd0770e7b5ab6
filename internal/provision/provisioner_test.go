package provision

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucent-labs/lucent-provision/internal/config"
	"github.com/lucent-labs/lucent-provision/internal/domain"
)

type fakeRuntime struct {
	// seeded state: containers visible to FindByName before the run starts
	containers []domain.Container

	buildErr  error
	removeErr error
	runErr    error
	execErr   error
	streamErr error

	calls    []string
	removed  []string
	execCmds [][]string
	ranSpec  *domain.ContainerSpec
	streamed bool
}

func (f *fakeRuntime) FindByName(ctx context.Context, name string) ([]domain.Container, error) {
	f.calls = append(f.calls, "find")
	var out []domain.Container
	for _, c := range f.containers {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeRuntime) Remove(ctx context.Context, id string) error {
	f.calls = append(f.calls, "remove")
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, id)
	var kept []domain.Container
	for _, c := range f.containers {
		if c.Id != id {
			kept = append(kept, c)
		}
	}
	f.containers = kept
	return nil
}

func (f *fakeRuntime) BuildImage(ctx context.Context, contextDir, tag string) error {
	f.calls = append(f.calls, "build")
	return f.buildErr
}

func (f *fakeRuntime) Run(ctx context.Context, spec domain.ContainerSpec) (string, error) {
	f.calls = append(f.calls, "run")
	if f.runErr != nil {
		return "", f.runErr
	}
	f.ranSpec = &spec
	f.containers = append(f.containers, domain.Container{
		Id:     "new-id",
		Name:   spec.Name,
		Image:  spec.Image,
		Status: "Up 1 second",
		State:  "running",
	})
	return "new-id", nil
}

func (f *fakeRuntime) Exec(ctx context.Context, id string, cmd []string) error {
	f.calls = append(f.calls, "exec")
	f.execCmds = append(f.execCmds, cmd)
	return f.execErr
}

func (f *fakeRuntime) StreamLogs(ctx context.Context, id string, stdout, stderr io.Writer) error {
	f.calls = append(f.calls, "stream")
	if f.streamErr != nil {
		return f.streamErr
	}
	f.streamed = true
	return nil
}

func testConfig() *config.ProvisionConfig {
	return &config.ProvisionConfig{
		ContainerName:    "lucent-server-fastapi",
		ImageName:        "lucent-server:latest",
		BuildContext:     ".",
		HostPort:         8000,
		ContainerPort:    8000,
		WorkDir:          "/app",
		RequirementsFile: "requirements.txt",
		InstallDeps:      true,
	}
}

func newTestProvisioner(cfg *config.ProvisionConfig, rt Runtime) (*Provisioner, *bytes.Buffer) {
	var out bytes.Buffer
	return New(cfg, rt, &out, io.Discard, zerolog.Nop()), &out
}

func TestRunFromCleanState(t *testing.T) {
	rt := &fakeRuntime{}
	p, out := newTestProvisioner(testConfig(), rt)

	err := p.Run(context.Background())
	require.NoError(t, err)

	// No removal when nothing matched.
	assert.Equal(t, []string{"find", "build", "run", "exec", "find", "stream"}, rt.calls)
	assert.Empty(t, rt.removed)
	require.NotNil(t, rt.ranSpec)
	assert.Equal(t, "lucent-server-fastapi", rt.ranSpec.Name)
	assert.Equal(t, "lucent-server:latest", rt.ranSpec.Image)
	assert.True(t, rt.streamed)
	assert.Contains(t, out.String(), "lucent-server-fastapi")
}

func TestRunReplacesExistingContainer(t *testing.T) {
	rt := &fakeRuntime{
		containers: []domain.Container{
			{Id: "old-id", Name: "lucent-server-fastapi", State: "exited"},
		},
	}
	p, _ := newTestProvisioner(testConfig(), rt)

	err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"find", "remove", "build", "run", "exec", "find", "stream"}, rt.calls)
	assert.Equal(t, []string{"old-id"}, rt.removed)

	// Exactly one container of the managed name remains, the fresh one.
	var named []domain.Container
	for _, c := range rt.containers {
		if c.Name == "lucent-server-fastapi" {
			named = append(named, c)
		}
	}
	require.Len(t, named, 1)
	assert.Equal(t, "new-id", named[0].Id)
	assert.True(t, named[0].Running())
}

func TestRunIgnoresSimilarlyNamedContainers(t *testing.T) {
	rt := &fakeRuntime{
		containers: []domain.Container{
			{Id: "a", Name: "other-lucent-server-fastapi", State: "running"},
			{Id: "b", Name: "lucent-server-fastapi-other", State: "running"},
		},
	}
	p, _ := newTestProvisioner(testConfig(), rt)

	err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rt.removed)
}

func TestBuildFailureHaltsSequence(t *testing.T) {
	rt := &fakeRuntime{buildErr: errors.New("dockerfile syntax error")}
	p, _ := newTestProvisioner(testConfig(), rt)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "build image")

	assert.Equal(t, []string{"find", "build"}, rt.calls)
	assert.Nil(t, rt.ranSpec)
	assert.False(t, rt.streamed)
}

func TestRemovalFailureHaltsSequence(t *testing.T) {
	rt := &fakeRuntime{
		containers: []domain.Container{{Id: "old-id", Name: "lucent-server-fastapi"}},
		removeErr:  errors.New("permission denied"),
	}
	p, _ := newTestProvisioner(testConfig(), rt)

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"find", "remove"}, rt.calls)
}

func TestDependencyInstallFailureIsNonFatal(t *testing.T) {
	rt := &fakeRuntime{execErr: errors.New("no such file: /app/requirements.txt")}
	p, _ := newTestProvisioner(testConfig(), rt)

	err := p.Run(context.Background())
	require.NoError(t, err)

	// The sequence continues through status and log streaming.
	assert.Equal(t, []string{"find", "build", "run", "exec", "find", "stream"}, rt.calls)
	assert.True(t, rt.streamed)
}

func TestInstallDepsDisabledSkipsExec(t *testing.T) {
	cfg := testConfig()
	cfg.InstallDeps = false
	rt := &fakeRuntime{}
	p, _ := newTestProvisioner(cfg, rt)

	err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rt.execCmds)
}

func TestInstallCommandTargetsManifest(t *testing.T) {
	rt := &fakeRuntime{}
	p, _ := newTestProvisioner(testConfig(), rt)

	err := p.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, rt.execCmds, 1)
	assert.Equal(t, []string{"pip", "install", "-r", "/app/requirements.txt"}, rt.execCmds[0])
}

func TestContainerSpecBindings(t *testing.T) {
	cfg := testConfig()
	rt := &fakeRuntime{}
	p, _ := newTestProvisioner(cfg, rt)

	err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rt.ranSpec)

	assert.Equal(t, domain.PortMapping{HostPort: 8000, ContainerPort: 8000}, rt.ranSpec.Port)
	assert.Equal(t, "/app", rt.ranSpec.WorkDir)
	assert.Equal(t, "/app", rt.ranSpec.Mount.Target)

	abs, err := filepath.Abs(cfg.BuildContext)
	require.NoError(t, err)
	assert.Equal(t, abs, rt.ranSpec.Mount.Source)
}
