// Package docker adapts internal/container's CLI-shelling-out Docker
// client to the nine runtime verbs this core treats as an injectable
// capability: ping, build, up, exec, cp, inspectContainer, inspectImage,
// listContainers, stopContainer. Everything below this package's
// interface is the real `docker` binary; nothing here talks to a daemon
// socket directly.
package docker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/container"
	"github.com/devctl/devctl/internal/devcontainer"
	"github.com/devctl/devctl/internal/identity"
	"github.com/devctl/devctl/internal/state"
)

// Adapter wraps *container.Docker and satisfies state.ContainerClient
// plus the broader set of verbs the orchestrator needs (build, up, exec,
// cp, image inspection).
type Adapter struct {
	cli *container.Docker
}

// New validates that the Docker CLI is reachable and returns an Adapter
// around it.
func New() (*Adapter, error) {
	cli, err := container.NewDocker()
	if err != nil {
		return nil, err
	}
	return &Adapter{cli: cli}, nil
}

// Ping confirms the daemon is reachable.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.cli.Ping(ctx)
}

// CLI exposes the underlying *container.Docker for callers (feature
// installation, profile.d writing) that were built directly against it
// rather than against this adapter's verb set.
func (a *Adapter) CLI() *container.Docker {
	return a.cli
}

// BuildOptions configures an image build.
type BuildOptions struct {
	ContextDir string
	Dockerfile string
	Args       map[string]string
	Target     string
	Labels     map[string]string
	CacheFrom  []string
	Platform   string
	Stdout     io.Writer
	Stderr     io.Writer
}

// Build builds an image tagged for this workspace's identity and returns
// its resolved image id. The tag itself is not meaningful beyond letting
// a second `docker inspect` resolve the id BuildImage's CLI-shelling-out
// form doesn't return directly.
func (a *Adapter) Build(ctx context.Context, id identity.Identity, opts BuildOptions) (string, error) {
	tag := fmt.Sprintf("devctl-%s:%s", id.WorkspaceHash, id.ConfigHash)

	if err := a.cli.BuildImage(ctx, container.ImageBuildOptions{
		Tag:        tag,
		Dockerfile: opts.Dockerfile,
		Context:    opts.ContextDir,
		Args:       opts.Args,
		Target:     opts.Target,
		CacheFrom:  opts.CacheFrom,
		ConfigDir:  opts.ContextDir,
		Stdout:     opts.Stdout,
		Stderr:     opts.Stderr,
	}); err != nil {
		return "", fmt.Errorf("building image: %w", err)
	}

	imageID, err := a.cli.GetImageID(ctx, tag)
	if err != nil {
		return "", fmt.Errorf("resolving built image id: %w", err)
	}
	return imageID, nil
}

// SecurityOptions bundles the privileged/init/capAdd/securityOpt knobs
// §6.3 lists as part of the configuration file format.
type SecurityOptions struct {
	Privileged  bool
	Init        bool
	CapAdd      []string
	SecurityOpt []string
}

// UpOptions configures container creation or reuse.
type UpOptions struct {
	Identity        identity.Identity
	Image           string
	WorkspacePath   string
	WorkspaceFolder string
	RemoveExisting  bool

	// ExpectExistingContainer asserts that a container for Identity
	// already exists: Up returns a NotFound error instead of creating
	// one when no match is found. Mutually meaningful only when
	// RemoveExisting is false.
	ExpectExistingContainer bool

	GPU        string
	Security   SecurityOptions
	Mounts     []config.Mount
	Env        []string
	Entrypoint []string
	Cmd        []string
}

// UpResult reports what Up did: the running container, the image it
// runs, and whether an existing container was reused rather than
// created.
type UpResult struct {
	ContainerID string
	ImageID     string
	Reused      bool
}

// Up ensures a container matching opts.Identity exists and is running,
// reusing a matching container unless RemoveExisting is set, in which
// case any existing matches are torn down first. When
// ExpectExistingContainer is set and no match is found, Up fails with a
// NotFound error instead of creating one.
func (a *Adapter) Up(ctx context.Context, opts UpOptions) (UpResult, error) {
	if opts.RemoveExisting {
		if err := identity.RemoveAll(ctx, a, opts.Identity); err != nil {
			return UpResult{}, fmt.Errorf("removing existing containers: %w", err)
		}
	} else if opts.ExpectExistingContainer {
		candidate, err := identity.SelectExpectingExisting(ctx, a, opts.Identity)
		if err != nil {
			return UpResult{}, err
		}
		if !candidate.Running {
			if err := a.cli.StartContainer(ctx, candidate.ID); err != nil {
				return UpResult{}, fmt.Errorf("starting existing container: %w", err)
			}
		}
		imageID, _ := a.cli.GetImageID(ctx, opts.Image)
		return UpResult{ContainerID: candidate.ID, ImageID: imageID, Reused: true}, nil
	} else if candidate, err := identity.Select(ctx, a, opts.Identity); err != nil {
		return UpResult{}, fmt.Errorf("selecting existing container: %w", err)
	} else if candidate != nil {
		if !candidate.Running {
			if err := a.cli.StartContainer(ctx, candidate.ID); err != nil {
				return UpResult{}, fmt.Errorf("starting existing container: %w", err)
			}
		}
		imageID, _ := a.cli.GetImageID(ctx, opts.Image)
		return UpResult{ContainerID: candidate.ID, ImageID: imageID, Reused: true}, nil
	}

	containerID, err := a.cli.CreateContainer(ctx, container.CreateContainerOptions{
		Image:           opts.Image,
		WorkspacePath:   opts.WorkspacePath,
		WorkspaceFolder: opts.WorkspaceFolder,
		Labels:          opts.Identity.Labels(),
		Env:             opts.Env,
		Mounts:          convertMounts(opts.Mounts),
		Privileged:      opts.Security.Privileged,
		Init:            opts.Security.Init,
		CapAdd:          opts.Security.CapAdd,
		SecurityOpt:     opts.Security.SecurityOpt,
		Entrypoint:      opts.Entrypoint,
		Cmd:             opts.Cmd,
		GPURequest:      opts.GPU,
	})
	if err != nil {
		return UpResult{}, fmt.Errorf("creating container: %w", err)
	}

	imageID, err := a.cli.GetImageID(ctx, opts.Image)
	if err != nil {
		return UpResult{}, fmt.Errorf("resolving image id: %w", err)
	}
	return UpResult{ContainerID: containerID, ImageID: imageID, Reused: false}, nil
}

// convertMounts translates config.Mount (the parsed-config shape) into
// devcontainer.Mount (the shape internal/container's CLI builder takes);
// the two are structurally identical, just declared in different
// packages.
func convertMounts(mounts []config.Mount) []devcontainer.Mount {
	out := make([]devcontainer.Mount, len(mounts))
	for i, m := range mounts {
		out[i] = devcontainer.Mount{Source: m.Source, Target: m.Target, Type: m.Type, ReadOnly: m.ReadOnly, Raw: m.Raw}
	}
	return out
}

// ExecOptions configures a command run inside a container.
type ExecOptions struct {
	User       string
	WorkingDir string
	Env        []string
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	TTY        bool
	Detach     bool
}

// ExecResult reports how a container command finished.
type ExecResult struct {
	ExitCode int
	Success  bool
}

// Exec runs argv inside containerID.
func (a *Adapter) Exec(ctx context.Context, containerID string, argv []string, opts ExecOptions) (ExecResult, error) {
	exitCode, err := container.Exec(ctx, container.ExecConfig{
		ContainerID: containerID,
		Cmd:         argv,
		WorkingDir:  opts.WorkingDir,
		User:        opts.User,
		Env:         opts.Env,
		Stdin:       opts.Stdin,
		Stdout:      opts.Stdout,
		Stderr:      opts.Stderr,
		TTY:         opts.TTY,
		Detach:      opts.Detach,
	})
	if err != nil {
		return ExecResult{ExitCode: exitCode}, err
	}
	return ExecResult{ExitCode: exitCode, Success: exitCode == 0}, nil
}

// Cp copies src on the host into dest inside containerID.
func (a *Adapter) Cp(ctx context.Context, containerID, src, dest string) error {
	return a.cli.CopyToContainer(ctx, src, containerID, dest)
}

// InspectContainer returns the container's details, or nil if it
// doesn't exist.
func (a *Adapter) InspectContainer(ctx context.Context, containerID string) (*state.ContainerDetails, error) {
	return a.cli.InspectContainer(ctx, containerID)
}

// ImageInfo is the inspectImage verb's result shape.
type ImageInfo struct {
	ID     string
	Labels map[string]string
}

// InspectImage returns labels and resolved id for ref, or nil if the
// image doesn't exist locally.
func (a *Adapter) InspectImage(ctx context.Context, ref string) (*ImageInfo, error) {
	exists, err := a.cli.ImageExists(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("checking image existence: %w", err)
	}
	if !exists {
		return nil, nil
	}

	labels, err := a.cli.GetImageLabels(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("reading image labels: %w", err)
	}
	id, err := a.cli.GetImageID(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolving image id: %w", err)
	}
	return &ImageInfo{ID: id, Labels: labels}, nil
}

// ListContainersWithLabels satisfies state.ContainerClient.
func (a *Adapter) ListContainersWithLabels(ctx context.Context, labels map[string]string) ([]state.ContainerSummary, error) {
	return a.cli.ListContainersWithLabels(ctx, labels)
}

// ListContainers lists containers matching labelSelector, or all
// containers this tool manages when labelSelector is empty.
func (a *Adapter) ListContainers(ctx context.Context, labelSelector map[string]string) ([]state.ContainerSummary, error) {
	if labelSelector == nil {
		labelSelector = map[string]string{identity.LabelSource: identity.ToolName}
	}
	return a.cli.ListContainersWithLabels(ctx, labelSelector)
}

// StopContainer stops containerID, waiting up to timeoutSecs (docker's
// default grace period when nil) before sending SIGKILL.
func (a *Adapter) StopContainer(ctx context.Context, containerID string, timeoutSecs *int) error {
	var timeout *time.Duration
	if timeoutSecs != nil {
		d := time.Duration(*timeoutSecs) * time.Second
		timeout = &d
	}
	return a.cli.StopContainer(ctx, containerID, timeout)
}

// RemoveContainer satisfies state.ContainerClient.
func (a *Adapter) RemoveContainer(ctx context.Context, containerID string, force, removeVolumes bool) error {
	return a.cli.RemoveContainer(ctx, containerID, force, removeVolumes)
}
