package domain

import (
	"fmt"
	"time"
)

// Container is a runtime-agnostic view of a container instance.
type Container struct {
	Id      string
	Name    string
	Image   string
	Status  string // human-readable, e.g. "Up 3 seconds"
	State   string // running, exited, created, ...
	Created time.Time
}

// Running reports whether the container is in the running state.
func (c Container) Running() bool {
	return c.State == "running"
}

// PortMapping maps a single host port to a container port.
type PortMapping struct {
	HostPort      uint16
	ContainerPort uint16
}

func (p PortMapping) String() string {
	return fmt.Sprintf("%d:%d", p.HostPort, p.ContainerPort)
}

// BindMount maps a host directory into a container, kept live (not copied).
type BindMount struct {
	Source string
	Target string
}

func (b BindMount) String() string {
	return fmt.Sprintf("%s:%s", b.Source, b.Target)
}

// ContainerSpec describes the container the provisioner converges to.
type ContainerSpec struct {
	Name    string
	Image   string
	WorkDir string
	Port    PortMapping
	Mount   BindMount
}
