package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/envprobe"
	"github.com/devctl/devctl/internal/featuremerge"
	"github.com/devctl/devctl/internal/features"
	"github.com/devctl/devctl/internal/xerrors"
)

// DefaultNonBlockingTimeout bounds postStart/postAttach execution.
const DefaultNonBlockingTimeout = 5 * time.Minute

// Options configures one Executor.Run invocation.
type Options struct {
	// Prebuild scopes markers to the prebuild/ subdirectory and stops
	// execution after updateContent.
	Prebuild bool

	SkipPostCreate          bool
	SkipNonBlockingCommands bool
	SkipPostAttach          bool

	// ProbeMode controls the environment prober invoked before
	// container-side phases. ModeNone disables probing.
	ProbeMode envprobe.Mode

	// NonBlockingTimeout bounds postStart/postAttach; zero means
	// DefaultNonBlockingTimeout.
	NonBlockingTimeout time.Duration
}

func (o Options) nonBlockingTimeout() time.Duration {
	if o.NonBlockingTimeout <= 0 {
		return DefaultNonBlockingTimeout
	}
	return o.NonBlockingTimeout
}

// Executor runs a devcontainer's lifecycle commands against one
// container, in phase order, skipping phases whose marker already
// records success.
type Executor struct {
	cfg           *config.DevcontainerConfig
	features      []featuremerge.Resolved
	workspacePath string
	containerID   string
	user          string
	markers       *MarkerStore
	prober        *envprobe.Prober
	opts          Options
}

// New builds an Executor for one container. features is the resolved
// feature set in installation order; their lifecycle hooks (if any) run
// after the corresponding devcontainer.json command, in that order.
func New(cfg *config.DevcontainerConfig, features []featuremerge.Resolved, workspacePath, containerID, user string, opts Options) *Executor {
	return &Executor{
		cfg:           cfg,
		features:      features,
		workspacePath: workspacePath,
		containerID:   containerID,
		user:          user,
		markers:       NewMarkerStore(workspacePath, opts.Prebuild),
		prober:        envprobe.New(),
		opts:          opts,
	}
}

// RunCreate runs the phases owed to a freshly created container:
// initialize, onCreate, updateContent, and (unless this is a prebuild
// or skipPostCreate is set) postCreate. It does not run postStart or
// postAttach; callers run those via RunStart/RunAttach once the
// container is actually up.
func (e *Executor) RunCreate(ctx context.Context) error {
	for _, phase := range []Phase{PhaseInitialize, PhaseOnCreate, PhaseUpdateContent} {
		if err := e.runPhase(ctx, phase); err != nil {
			return err
		}
	}

	if e.opts.Prebuild {
		return nil
	}
	if e.opts.SkipPostCreate {
		return nil
	}
	return e.runPhase(ctx, PhasePostCreate)
}

// RunStart runs postStart, owed on every container start including
// reuse, unless skipNonBlockingCommands is set.
func (e *Executor) RunStart(ctx context.Context) error {
	if e.opts.SkipNonBlockingCommands {
		return nil
	}
	return e.runPhase(ctx, PhasePostStart)
}

// RunAttach runs postAttach, owed on every attach, unless
// skipNonBlockingCommands or skipPostAttach is set.
func (e *Executor) RunAttach(ctx context.Context) error {
	if e.opts.SkipNonBlockingCommands || e.opts.SkipPostAttach {
		return nil
	}
	return e.runPhase(ctx, PhasePostAttach)
}

func (e *Executor) runPhase(ctx context.Context, phase Phase) error {
	if onceOnlyPhases[phase] {
		done, err := e.markers.Completed(phase)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if phase.nonBlocking() {
		runCtx, cancel = context.WithTimeout(ctx, e.opts.nonBlockingTimeout())
		defer cancel()
	}

	if err := e.runPhaseCommands(runCtx, phase); err != nil {
		return e.wrapFailure(phase, err)
	}

	if onceOnlyPhases[phase] {
		return e.markers.MarkSucceeded(phase)
	}
	return nil
}

func (e *Executor) wrapFailure(phase Phase, err error) error {
	var cmdErr *commandError
	if errors.As(err, &cmdErr) {
		return xerrors.LifecycleFailed(string(phase), cmdErr.display, cmdErr.exitCode, err)
	}
	return xerrors.LifecycleFailed(string(phase), "", -1, err)
}

func (e *Executor) runPhaseCommands(ctx context.Context, phase Phase) error {
	value := e.commandValue(phase)
	groups := ParseCommandValue(value)

	run := e.runnerFor(ctx, phase)
	if err := runGroups(ctx, groups, run); err != nil {
		return err
	}

	return e.runFeatureHooks(ctx, phase)
}

func (e *Executor) runnerFor(ctx context.Context, phase Phase) runner {
	if phase.runsOnHost() {
		env := e.hostEnvironment()
		return func(ctx context.Context, cmd CommandSpec) error {
			return runHost(ctx, cmd, e.workspacePath, env)
		}
	}

	workingDir := config.DetermineContainerWorkspaceFolder(e.cfg, e.workspacePath)
	env := e.containerEnvironment(ctx, phase)
	return func(ctx context.Context, cmd CommandSpec) error {
		return runInContainer(ctx, e.containerID, cmd, workingDir, e.user, env)
	}
}

func (e *Executor) commandValue(phase Phase) interface{} {
	switch phase {
	case PhaseInitialize:
		return e.cfg.InitializeCommand
	case PhaseOnCreate:
		return e.cfg.OnCreateCommand
	case PhaseUpdateContent:
		return e.cfg.UpdateContentCommand
	case PhasePostCreate:
		return e.cfg.PostCreateCommand
	case PhasePostStart:
		return e.cfg.PostStartCommand
	case PhasePostAttach:
		return e.cfg.PostAttachCommand
	default:
		return nil
	}
}

// runFeatureHooks runs each resolved feature's hook for phase, in
// installation order, after the devcontainer.json-level command for
// that phase has already run.
func (e *Executor) runFeatureHooks(ctx context.Context, phase Phase) error {
	if phase.runsOnHost() {
		return nil
	}

	workingDir := config.DetermineContainerWorkspaceFolder(e.cfg, e.workspacePath)
	env := e.containerEnvironment(ctx, phase)
	run := func(ctx context.Context, cmd CommandSpec) error {
		return runInContainer(ctx, e.containerID, cmd, workingDir, e.user, env)
	}

	for _, f := range e.features {
		if f.Metadata == nil {
			continue
		}
		value := featureCommandValue(f.Metadata, phase)
		groups := ParseCommandValue(value)
		if len(groups) == 0 {
			continue
		}
		if err := runGroups(ctx, groups, run); err != nil {
			return err
		}
	}
	return nil
}

func featureCommandValue(m *features.FeatureMetadata, phase Phase) interface{} {
	switch phase {
	case PhaseOnCreate:
		return m.OnCreateCommand
	case PhaseUpdateContent:
		return m.UpdateContentCommand
	case PhasePostCreate:
		return m.PostCreateCommand
	case PhasePostStart:
		return m.PostStartCommand
	case PhasePostAttach:
		return m.PostAttachCommand
	default:
		return nil
	}
}

// hostEnvironment is the environment passed to initializeCommand: the
// host's own environment plus remoteEnv overrides (there is no
// container to probe or apply containerEnv inside yet).
func (e *Executor) hostEnvironment() map[string]string {
	return e.cfg.RemoteEnv
}

// containerEnvironment builds the effective environment for a
// container-side phase: probed shell environment (if enabled) overlaid
// with feature-accumulated containerEnv, config containerEnv, and
// config remoteEnv, each layer overwriting the last.
func (e *Executor) containerEnvironment(ctx context.Context, phase Phase) map[string]string {
	var probed map[string]string
	if e.opts.ProbeMode != envprobe.ModeNone {
		if env, err := e.prober.Probe(ctx, e.containerID, e.opts.ProbeMode, e.user); err == nil {
			probed = env
		}
	}

	featureEnv := map[string]string{}
	for _, f := range e.features {
		if f.Metadata == nil {
			continue
		}
		for k, v := range f.Metadata.ContainerEnv {
			featureEnv[k] = v
		}
	}

	merged := envprobe.Merge(probed, featureEnv, e.cfg.ContainerEnv)
	return envprobe.Merge(merged, nil, e.cfg.RemoteEnv)
}
