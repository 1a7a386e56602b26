package state

import (
	"context"
	"time"
)

// ContainerSummary is the shape returned when listing containers matching
// a label selector, as produced by a `docker ps --format json` pass.
type ContainerSummary struct {
	ID      string
	Name    string
	State   string
	Running bool
	Labels  map[string]string
}

// ContainerDetails is the shape returned by inspecting a single
// container, as produced by a `docker inspect` pass.
type ContainerDetails struct {
	ID         string
	Name       string
	State      string
	Running    bool
	StartedAt  string
	Image      string
	Labels     map[string]string
	Mounts     []string
	WorkingDir string
}

// ContainerClient is the runtime capability this package needs to
// resolve and act on containers by label selector, kept narrow so any
// runtime backend (CLI-shelling-out, SDK-based, a test double) can
// implement it.
type ContainerClient interface {
	ListContainersWithLabels(ctx context.Context, labels map[string]string) ([]ContainerSummary, error)
	InspectContainer(ctx context.Context, containerID string) (*ContainerDetails, error)
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, force, removeVolumes bool) error
}
