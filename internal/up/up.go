// Package up is the top-level orchestrator: it wires every other
// package into the sequence a single invocation needs -- config
// loading, variable substitution, feature merging and resolution,
// dependency ordering, image build, container creation or reuse,
// feature installation, environment probing, and lifecycle execution --
// and returns the merged, caller-facing view of what happened.
package up

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devctl/devctl/internal/audit"
	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/container"
	"github.com/devctl/devctl/internal/depgraph"
	"github.com/devctl/devctl/internal/devcontainer"
	"github.com/devctl/devctl/internal/envprobe"
	"github.com/devctl/devctl/internal/featuremerge"
	"github.com/devctl/devctl/internal/features"
	"github.com/devctl/devctl/internal/identity"
	"github.com/devctl/devctl/internal/installer"
	"github.com/devctl/devctl/internal/lifecycle"
	"github.com/devctl/devctl/internal/lockfile"
	"github.com/devctl/devctl/internal/mergedconfig"
	"github.com/devctl/devctl/internal/mergeutil"
	"github.com/devctl/devctl/internal/oci"
	"github.com/devctl/devctl/internal/plugins"
	"github.com/devctl/devctl/internal/retry"
	compose "github.com/devctl/devctl/internal/runtime/compose"
	docker "github.com/devctl/devctl/internal/runtime/docker"
	"github.com/devctl/devctl/internal/state"
)

// Options configures a single Up invocation.
type Options struct {
	WorkspacePath string
	ConfigPath    string // overrides config discovery when non-empty

	CLIFeatures       map[string]map[string]features.OptionValue
	PreferCliFeatures bool

	RemoveExisting bool
	Pull           bool
	Rebuild        bool

	// ExpectExistingContainer asserts the workspace already has a
	// matching container: Run fails with NotFound instead of creating
	// one when none is found. Ignored for the compose path, which has
	// its own running-project check.
	ExpectExistingContainer bool

	ProbeMode envprobe.Mode

	// Emitter receives progress events; a nil Emitter discards them.
	Emitter *audit.Emitter
}

// Result is the merged, caller-facing outcome of an Up invocation.
type Result struct {
	ContainerID  string
	ImageID      string
	Reused       bool
	MergedConfig *mergedconfig.MergedConfig
	Warnings     []string
}

// containerOutcome is the shared shape both the single-container and
// compose paths produce: the id of the container lifecycle commands
// and feature installation run against, the image it runs, whether it
// was reused, and a CLI handle for the inspect/install/exec steps that
// follow regardless of which path created the container.
type containerOutcome struct {
	ContainerID string
	ImageID     string
	Reused      bool
	CLI         *container.Docker

	// Compose is set only for the docker-compose path, so Run can
	// persist a compose-shaped workspace state record rather than a
	// container-shaped one.
	Compose *compose.Project
}

// Run executes the full resolve-build-start-install-probe-lifecycle
// sequence for a single workspace.
func Run(ctx context.Context, opts Options) (*Result, error) {
	emit := opts.Emitter
	if emit == nil {
		emit = audit.NewEmitter(audit.NullSink{}, nil)
	}

	cfg, configPath, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	_ = emit.Emit("config", "loaded "+configPath, nil)

	id, err := identity.Derive(opts.WorkspacePath, cfg)
	if err != nil {
		return nil, fmt.Errorf("deriving container identity: %w", err)
	}
	_ = emit.Emit("identity", "workspaceHash="+id.WorkspaceHash, nil)

	resolvedFeatures, notices, err := resolveFeatures(ctx, cfg, configPath)
	if err != nil {
		return nil, err
	}
	for _, n := range notices {
		_ = emit.Emit("features", n, nil)
	}

	var outcome containerOutcome
	if len(cfg.GetDockerComposeFiles()) > 0 {
		outcome, err = runCompose(ctx, cfg, resolvedFeatures, opts, id)
	} else {
		outcome, err = runSingleContainer(ctx, cfg, resolvedFeatures, opts, id, configPath)
	}
	if err != nil {
		return nil, err
	}
	_ = emit.Emit("container", fmt.Sprintf("id=%s reused=%v", outcome.ContainerID, outcome.Reused), nil)

	if err := recordWorkspaceState(id.WorkspaceHash, cfg, outcome); err != nil {
		_ = emit.Emit("state", err.Error(), nil)
	}

	var warnings []string
	var installResult *installer.Result
	if !outcome.Reused {
		preInstallCfg := &config.DevcontainerConfig{}
		*preInstallCfg = *cfg
		if err := plugins.RunPreInstall(plugins.Context{WorkspaceRoot: opts.WorkspacePath}, preInstallCfg); err != nil {
			warnings = append(warnings, err.Error())
		}

		installResult, err = installer.InstallAll(ctx, outcome.CLI, resolvedFeatures, installer.Options{
			ContainerName: outcome.ContainerID,
			Identity: installer.Identity{
				ContainerUser: cfg.ContainerUser,
				RemoteUser:    cfg.RemoteUser,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("installing features: %w", err)
		}
		warnings = append(warnings, installResult.Warnings...)
	} else {
		installResult = &installer.Result{ContainerEnv: map[string]string{}}
	}

	prober := envprobe.New()
	probed, err := prober.Probe(ctx, outcome.ContainerID, opts.ProbeMode, cfg.RemoteUser)
	if err != nil {
		return nil, fmt.Errorf("probing container environment: %w", err)
	}
	mergedEnv := envprobe.Merge(probed, installResult.ContainerEnv, cfg.RemoteEnv)

	executor := lifecycle.New(cfg, resolvedFeatures, opts.WorkspacePath, outcome.ContainerID, cfg.RemoteUser, lifecycle.Options{
		ProbeMode: opts.ProbeMode,
	})

	var lifecycleErr error
	if outcome.Reused {
		lifecycleErr = executor.RunStart(ctx)
	} else {
		lifecycleErr = executor.RunCreate(ctx)
	}
	if lifecycleErr != nil {
		return nil, fmt.Errorf("running lifecycle commands: %w", lifecycleErr)
	}
	_ = plugins.RunPostLifecyclePhase(plugins.Context{WorkspaceRoot: opts.WorkspacePath, Phase: "postCreate"})

	var imageLabels map[string]string
	if exists, err := outcome.CLI.ImageExists(ctx, outcome.ImageID); err == nil && exists {
		if labels, err := outcome.CLI.GetImageLabels(ctx, outcome.ImageID); err == nil {
			imageLabels = labels
		}
	}

	effectiveCfg := cfg
	if metaConfigs, err := config.ParseImageMetadata(imageLabels[config.DevcontainerMetadataLabel]); err == nil && len(metaConfigs) > 0 {
		effectiveCfg = config.MergeMetadata(cfg, metaConfigs)
	}

	containerDetails, err := outcome.CLI.InspectContainer(ctx, outcome.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("inspecting container: %w", err)
	}
	var containerLabels map[string]string
	if containerDetails != nil {
		containerLabels = containerDetails.Labels
	}

	merged, err := mergedconfig.Build(
		[]mergedconfig.Layer{{Name: "base", Config: effectiveCfg}},
		resolvedFeatures,
		imageLabels,
		containerLabels,
	)
	if err != nil {
		return nil, fmt.Errorf("building merged config view: %w", err)
	}

	_ = mergedEnv // not used further: the lifecycle executor builds its own environment layering

	return &Result{
		ContainerID:  outcome.ContainerID,
		ImageID:      outcome.ImageID,
		Reused:       outcome.Reused,
		MergedConfig: merged,
		Warnings:     warnings,
	}, nil
}

// runSingleContainer drives the plain (non-compose) path: build-or-pull
// an image, then create or reuse a container matching id via
// internal/runtime/docker.
func runSingleContainer(ctx context.Context, cfg *config.DevcontainerConfig, resolvedFeatures []featuremerge.Resolved, opts Options, id identity.Identity, configPath string) (containerOutcome, error) {
	runtime, err := docker.New()
	if err != nil {
		return containerOutcome{}, fmt.Errorf("connecting to container runtime: %w", err)
	}
	if err := runtime.Ping(ctx); err != nil {
		return containerOutcome{}, fmt.Errorf("container runtime not reachable: %w", err)
	}

	imageRef, err := resolveImage(ctx, runtime, id, cfg, configPath)
	if err != nil {
		return containerOutcome{}, err
	}

	mounts, security, entrypointChain := mergeContainerOptions(cfg, resolvedFeatures)
	env := mergeContainerEnv(cfg, resolvedFeatures)

	containerWorkspaceFolder := config.DetermineContainerWorkspaceFolder(cfg, opts.WorkspacePath)
	upResult, err := runtime.Up(ctx, docker.UpOptions{
		Identity:                id,
		Image:                   imageRef,
		WorkspacePath:           opts.WorkspacePath,
		WorkspaceFolder:         containerWorkspaceFolder,
		RemoveExisting:          opts.RemoveExisting,
		ExpectExistingContainer: opts.ExpectExistingContainer,
		GPU:                     gpuRequest(cfg.HostRequirements),
		Security:                security,
		Mounts:                  mounts,
		Env:                     env,
		Entrypoint:              entrypointChain.Entrypoint,
	})
	if err != nil {
		return containerOutcome{}, fmt.Errorf("starting container: %w", err)
	}

	return containerOutcome{
		ContainerID: upResult.ContainerID,
		ImageID:     upResult.ImageID,
		Reused:      upResult.Reused,
		CLI:         runtime.CLI(),
	}, nil
}

// runCompose drives the docker-compose path: start (or confirm running)
// the project's services via internal/runtime/compose, then resolve
// the primary service's container id so the rest of Run can treat it
// exactly like a directly-created container.
func runCompose(ctx context.Context, cfg *config.DevcontainerConfig, resolvedFeatures []featuremerge.Resolved, opts Options, id identity.Identity) (containerOutcome, error) {
	project, err := compose.CreateProject(ctx, cfg, opts.WorkspacePath)
	if err != nil {
		return containerOutcome{}, fmt.Errorf("loading compose project: %w", err)
	}

	running, err := project.IsProjectRunning(ctx)
	if err != nil {
		return containerOutcome{}, fmt.Errorf("checking compose project state: %w", err)
	}

	if !running {
		if err := project.PopulateExternalVolumes(ctx); err != nil {
			return containerOutcome{}, fmt.Errorf("populating compose volumes: %w", err)
		}

		_, security, entrypointChain := mergeContainerOptions(cfg, resolvedFeatures)
		env := mergeContainerEnvMap(cfg, resolvedFeatures)

		override := compose.Override{
			Services: map[string]compose.ServiceOverride{
				project.PrimaryService: {
					Entrypoint:  entrypointChain.Entrypoint,
					Environment: env,
					Labels:      id.Labels(),
				},
			},
		}
		_ = security // compose services carry their own security settings in the base compose file; this core doesn't override them.

		if err := project.StartProject(ctx, override); err != nil {
			return containerOutcome{}, fmt.Errorf("starting compose project: %w", err)
		}
	}

	containerID, err := project.GetPrimaryContainerId(ctx)
	if err != nil {
		return containerOutcome{}, fmt.Errorf("resolving primary compose container: %w", err)
	}
	if containerID == "" {
		return containerOutcome{}, fmt.Errorf("compose project %s has no running %s container", project.Name, project.PrimaryService)
	}

	cli, err := container.NewDocker()
	if err != nil {
		return containerOutcome{}, fmt.Errorf("connecting to container runtime: %w", err)
	}

	details, err := cli.InspectContainer(ctx, containerID)
	if err != nil {
		return containerOutcome{}, fmt.Errorf("inspecting compose container: %w", err)
	}

	return containerOutcome{
		ContainerID: containerID,
		ImageID:     details.Image,
		Reused:      running,
		CLI:         cli,
		Compose:     project,
	}, nil
}

func loadConfig(opts Options) (*config.DevcontainerConfig, string, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		resolved, err := config.Resolve(opts.WorkspacePath)
		if err != nil {
			return nil, "", fmt.Errorf("locating devcontainer.json: %w", err)
		}
		configPath = resolved
	}

	cfg, err := config.ParseFile(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("parsing %s: %w", configPath, err)
	}

	cfg, err = config.ResolveExtends(cfg, filepath.Dir(configPath))
	if err != nil {
		return nil, "", fmt.Errorf("resolving extends chain for %s: %w", configPath, err)
	}

	substCtx := &config.SubstitutionContext{
		LocalWorkspaceFolder:     opts.WorkspacePath,
		ContainerWorkspaceFolder: config.DetermineContainerWorkspaceFolder(cfg, opts.WorkspacePath),
		ContainerEnv:             cfg.ContainerEnv,
	}
	config.SubstituteConfig(cfg, substCtx)

	return cfg, configPath, nil
}

func resolveFeatures(ctx context.Context, cfg *config.DevcontainerConfig, configPath string) ([]featuremerge.Resolved, []string, error) {
	configFeatures, err := convertFeatureOptions(cfg.Features)
	if err != nil {
		return nil, nil, fmt.Errorf("reading configured features: %w", err)
	}

	mergeResult := featuremerge.Merge(featuremerge.MergeInput{
		ConfigFeatures: configFeatures,
	})

	cacheDir, err := ociCacheDir()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving oci cache directory: %w", err)
	}
	client := oci.NewClient(cacheDir).WithRetry(retry.Default())

	resolved, err := featuremerge.FetchMetadata(ctx, client, mergeResult.Merged, oci.ClampConcurrency(len(mergeResult.Merged)))
	if err != nil {
		return nil, nil, fmt.Errorf("fetching feature metadata: %w", err)
	}

	nodes := make([]depgraph.Node, len(resolved))
	for i, r := range resolved {
		nodes[i] = depgraph.Node{
			ID:            r.Metadata.ID,
			DependsOn:     r.Metadata.DependsOn,
			InstallsAfter: r.Metadata.InstallsAfter,
		}
	}
	graph, err := depgraph.Build(nodes, cfg.OverrideFeatureInstallOrder)
	if err != nil {
		return nil, nil, fmt.Errorf("ordering feature dependencies: %w", err)
	}

	byID := make(map[string]featuremerge.Resolved, len(resolved))
	for _, r := range resolved {
		byID[r.Metadata.ID] = r
	}
	ordered := make([]featuremerge.Resolved, 0, len(resolved))
	for _, id := range graph.Order() {
		ordered = append(ordered, byID[id])
	}

	notices, err := syncLockfile(configPath, ordered, mergeResult.Notices)
	if err != nil {
		return nil, nil, err
	}

	return ordered, notices, nil
}

// syncLockfile loads any existing devcontainer-lock.json beside
// configPath, builds a fresh lockfile from the resolved feature set,
// and writes it back whenever it differs (including first creation, or
// filling in an empty "initialize on build" marker file). A drift
// notice is appended to notices when an existing lockfile disagreed
// with what actually got resolved.
func syncLockfile(configPath string, resolved []featuremerge.Resolved, notices []string) ([]string, error) {
	existing, initMarker, err := lockfile.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading lockfile: %w", err)
	}

	fresh := featuremerge.BuildLockfile(resolved)
	if fresh.IsEmpty() {
		return notices, nil
	}

	if existing != nil && !initMarker && !existing.Equals(fresh) {
		notices = append(notices, "devcontainer-lock.json is out of date with resolved features; rewriting it")
	}

	if existing == nil || initMarker || !existing.Equals(fresh) {
		if err := fresh.Save(configPath); err != nil {
			return nil, fmt.Errorf("writing lockfile: %w", err)
		}
	}

	return notices, nil
}

func convertFeatureOptions(raw map[string]interface{}) (map[string]map[string]features.OptionValue, error) {
	out := make(map[string]map[string]features.OptionValue, len(raw))
	for id, v := range raw {
		options := map[string]features.OptionValue{}
		switch opts := v.(type) {
		case map[string]interface{}:
			for k, val := range opts {
				options[k] = val
			}
		case bool, string:
			// a feature declared with a scalar shorthand (true, or a
			// version string) has no named options.
		default:
			return nil, fmt.Errorf("feature %q: unsupported options shape %T", id, v)
		}
		out[id] = options
	}
	return out, nil
}

func resolveImage(ctx context.Context, runtime *docker.Adapter, id identity.Identity, cfg *config.DevcontainerConfig, configPath string) (string, error) {
	imageRef, err := baseImageRef(ctx, runtime, id, cfg, configPath)
	if err != nil {
		return "", err
	}

	remoteUser := cfg.RemoteUser
	if remoteUser == "" {
		remoteUser = cfg.ContainerUser
	}
	if remoteUser == "" || !features.ShouldUpdateRemoteUserUID(cfg, remoteUser, os.Getuid()) {
		return imageRef, nil
	}

	uidTag := fmt.Sprintf("devctl-uid-%s:%s", id.WorkspaceHash, id.ConfigHash)
	if err := features.BuildUpdateUIDImage(ctx, imageRef, uidTag, remoteUser, cfg.ContainerUser, os.Getuid(), os.Getgid()); err != nil {
		return "", fmt.Errorf("matching remote user uid/gid to host: %w", err)
	}
	return uidTag, nil
}

func baseImageRef(ctx context.Context, runtime *docker.Adapter, id identity.Identity, cfg *config.DevcontainerConfig, configPath string) (string, error) {
	if cfg.Build != nil {
		imageID, err := runtime.Build(ctx, id, docker.BuildOptions{
			ContextDir: resolveBuildContext(cfg.Build, filepath.Dir(configPath)),
			Dockerfile: cfg.Build.Dockerfile,
			Args:       cfg.Build.Args,
			Target:     cfg.Build.Target,
			CacheFrom:  cfg.Build.CacheFrom,
		})
		if err != nil {
			return "", fmt.Errorf("building image: %w", err)
		}
		return imageID, nil
	}

	if cfg.Image != "" {
		return cfg.Image, nil
	}

	return "", fmt.Errorf("config declares neither image nor build")
}

func resolveBuildContext(b *config.BuildConfig, configDir string) string {
	if b.Context == "" {
		return configDir
	}
	if filepath.IsAbs(b.Context) {
		return b.Context
	}
	return filepath.Join(configDir, b.Context)
}

func mergeContainerOptions(cfg *config.DevcontainerConfig, resolved []featuremerge.Resolved) ([]config.Mount, docker.SecurityOptions, mergeutil.EntrypointChain) {
	baseMounts := make([]devcontainer.Mount, len(cfg.Mounts))
	for i, m := range cfg.Mounts {
		baseMounts[i] = devcontainer.Mount{Source: m.Source, Target: m.Target, Type: m.Type, ReadOnly: m.ReadOnly, Raw: m.Raw}
	}

	featureMounts := make([][]features.FeatureMount, len(resolved))
	securitySpecs := make([]mergeutil.SecuritySpec, len(resolved))
	var featureEntrypoints []string
	for i, r := range resolved {
		if r.Metadata == nil {
			continue
		}
		featureMounts[i] = r.Metadata.Mounts
		securitySpecs[i] = mergeutil.SecurityFromMetadata(r.Metadata)
		if r.Metadata.Entrypoint != "" {
			featureEntrypoints = append(featureEntrypoints, r.Metadata.Entrypoint)
		}
	}

	mergedMounts := mergeutil.MergeMounts(baseMounts, featureMounts)
	outMounts := make([]config.Mount, len(mergedMounts))
	for i, m := range mergedMounts {
		outMounts[i] = config.Mount{Source: m.Source, Target: m.Target, Type: m.Type, ReadOnly: m.ReadOnly, Raw: m.Raw}
	}

	security := mergeutil.MergeSecurity(mergeutil.SecuritySpec{
		CapAdd:      cfg.CapAdd,
		SecurityOpt: cfg.SecurityOpt,
		Privileged:  boolValue(cfg.Privileged),
		Init:        boolValue(cfg.Init),
	}, securitySpecs)

	entrypointChain := mergeutil.BuildEntrypointChain("", featureEntrypoints)

	return outMounts, docker.SecurityOptions{
		Privileged:  security.Privileged,
		Init:        security.Init,
		CapAdd:      security.CapAdd,
		SecurityOpt: security.SecurityOpt,
	}, entrypointChain
}

// mergeContainerEnvMap unions the base config's containerEnv with every
// feature's declared containerEnv, later features overwriting earlier
// ones on key conflict (installation order already reflects dependency
// order, so a later feature's override is assumed intentional).
func mergeContainerEnvMap(cfg *config.DevcontainerConfig, resolved []featuremerge.Resolved) map[string]string {
	env := make(map[string]string, len(cfg.ContainerEnv))
	for k, v := range cfg.ContainerEnv {
		env[k] = v
	}
	for _, r := range resolved {
		if r.Metadata == nil {
			continue
		}
		for k, v := range r.Metadata.ContainerEnv {
			env[k] = v
		}
	}
	return env
}

func mergeContainerEnv(cfg *config.DevcontainerConfig, resolved []featuremerge.Resolved) []string {
	merged := mergeContainerEnvMap(cfg, resolved)
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

// gpuRequest extracts a runtime-understood GPU request string ("all" or
// a count) from hostRequirements.gpu, which the devcontainer spec
// allows to be a bool, a count, or a requirement object: true yields
// "all", a number yields its integer count, a string is passed through
// as is, and false or a requirement object yields "". The result feeds
// internal/container.CreateContainerOptions.GPURequest.
func gpuRequest(hr *config.HostRequirements) string {
	if hr == nil {
		return ""
	}
	switch v := hr.GPU.(type) {
	case bool:
		if v {
			return "all"
		}
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int(v))
	}
	return ""
}

// recordWorkspaceState creates or updates the workspace state document's
// record for this workspace, per the data model: a container-shaped
// record for the single-container path, a compose-shaped one for the
// compose path, created on a workspace's first successful up and
// updated on every reuse.
func recordWorkspaceState(workspaceHash string, cfg *config.DevcontainerConfig, outcome containerOutcome) error {
	path, err := state.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving workspace state path: %w", err)
	}

	doc, err := state.Load(path)
	if err != nil {
		return fmt.Errorf("loading workspace state: %w", err)
	}

	if outcome.Compose != nil {
		doc.PutCompose(workspaceHash, state.ComposeState{
			ProjectName:    outcome.Compose.Name,
			ServiceName:    outcome.Compose.PrimaryService,
			BasePath:       outcome.Compose.WorkDir,
			ComposeFiles:   outcome.Compose.Files,
			ShutdownAction: cfg.ShutdownAction,
		})
	} else {
		doc.PutContainer(workspaceHash, state.ContainerState{
			ContainerID:    outcome.ContainerID,
			ImageID:        outcome.ImageID,
			ShutdownAction: cfg.ShutdownAction,
		})
	}

	if err := doc.Save(path); err != nil {
		return fmt.Errorf("saving workspace state: %w", err)
	}
	return nil
}

// Down processes the shutdownAction recorded for a workspace: stops the
// container or compose project the workspace's last up produced, then
// removes the workspace's state record. When the recorded action is
// "none" or absent, nothing is stopped and the record is kept. A
// workspace with no recorded state is a no-op.
func Down(ctx context.Context, workspacePath string) error {
	workspaceHash, err := identity.ComputeWorkspaceHash(workspacePath)
	if err != nil {
		return fmt.Errorf("computing workspace hash: %w", err)
	}

	path, err := state.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving workspace state path: %w", err)
	}

	doc, err := state.Load(path)
	if err != nil {
		return fmt.Errorf("loading workspace state: %w", err)
	}

	record, ok := doc.Get(workspaceHash)
	if !ok {
		return nil
	}

	switch record.ShutdownAction() {
	case state.ShutdownActionStopContainer:
		if record.Container == nil {
			break
		}
		cli, err := container.NewDocker()
		if err != nil {
			return fmt.Errorf("connecting to container runtime: %w", err)
		}
		if err := cli.StopContainer(ctx, record.Container.ContainerID, nil); err != nil {
			return fmt.Errorf("stopping container %s: %w", record.Container.ContainerID, err)
		}
	case state.ShutdownActionStopCompose:
		if record.Compose == nil {
			break
		}
		project := &compose.Project{
			Name:           record.Compose.ProjectName,
			Files:          record.Compose.ComposeFiles,
			WorkDir:        record.Compose.BasePath,
			PrimaryService: record.Compose.ServiceName,
		}
		if err := project.StopProject(ctx); err != nil {
			return fmt.Errorf("stopping compose project %s: %w", project.Name, err)
		}
	default:
		return nil
	}

	doc.Remove(workspaceHash)
	return doc.Save(path)
}

func ociCacheDir() (string, error) {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, "devctl", "oci"), nil
}
