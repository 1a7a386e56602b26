// Package compose adapts docker compose's CLI to the six orchestrator
// verbs this core treats as an injectable capability: createProject,
// startProject, stopProject, isProjectRunning, getPrimaryContainerId,
// populateExternalVolumes. Service-level mount and environment
// injection is done the way the original CLI documents it: generating
// a YAML override and piping it to `docker compose` on stdin via the
// `-f -` file argument, rather than writing a temp file to disk.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	teachercompose "github.com/devctl/devctl/internal/compose"
	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/identity"
	"gopkg.in/yaml.v3"
)

// Project is a resolved compose project: its base files, working
// directory, and the service this core treats as primary (the one
// named in the devcontainer config's `service` key).
type Project struct {
	Name           string
	Files          []string
	WorkDir        string
	PrimaryService string
}

// CreateProject resolves a devcontainer config's compose files into a
// Project, deriving a project name from the workspace identity so
// repeated invocations against the same workspace address the same
// compose project.
func CreateProject(ctx context.Context, cfg *config.DevcontainerConfig, workspacePath string) (*Project, error) {
	files := cfg.GetDockerComposeFiles()
	if len(files) == 0 {
		return nil, fmt.Errorf("config has no dockerComposeFile entries")
	}

	if _, err := teachercompose.LoadProject(ctx, teachercompose.LoadOptions{
		Files:        files,
		WorkDir:      workspacePath,
		Interpolate:  true,
		ResolvePaths: true,
	}); err != nil {
		return nil, fmt.Errorf("loading compose project: %w", err)
	}

	workspaceHash, err := identity.ComputeWorkspaceHash(workspacePath)
	if err != nil {
		return nil, fmt.Errorf("computing workspace hash: %w", err)
	}

	return &Project{
		Name:           "devctl_" + workspaceHash,
		Files:          files,
		WorkDir:        workspacePath,
		PrimaryService: cfg.Service,
	}, nil
}

// ServiceOverride is the per-service shape written into the generated
// override file, narrowed to the knobs the core actually injects
// (entrypoint/command/env/labels); mirrors docker compose's own
// override schema.
type ServiceOverride struct {
	Entrypoint  []string          `yaml:"entrypoint,omitempty"`
	Command     []string          `yaml:"command,omitempty"`
	Environment map[string]string `yaml:"environment,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty"`
	Volumes     []string          `yaml:"volumes,omitempty"`
}

// Override is the top-level override document shape docker compose
// expects from a `-f -` argument.
type Override struct {
	Services map[string]ServiceOverride `yaml:"services"`
}

// renderOverride serializes an override document to YAML for piping on
// stdin.
func renderOverride(o Override) ([]byte, error) {
	return yaml.Marshal(o)
}

func (p *Project) baseArgs() []string {
	args := []string{"-p", p.Name}
	for _, f := range p.Files {
		args = append(args, "-f", f)
	}
	return args
}

// StartProject brings the project's services up, piping override as a
// `-f -` override document.
func (p *Project) StartProject(ctx context.Context, override Override) error {
	args := append(p.baseArgs(), "-f", "-", "up", "-d")
	return p.runWithOverride(ctx, override, args)
}

// StopProject stops the project's services without removing them.
func (p *Project) StopProject(ctx context.Context) error {
	return p.run(ctx, append(p.baseArgs(), "stop"))
}

// IsProjectRunning reports whether the project has at least one
// running container.
func (p *Project) IsProjectRunning(ctx context.Context) (bool, error) {
	out, err := p.runOutput(ctx, append(p.baseArgs(), "ps", "--format", "json", "--status", "running"))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// GetPrimaryContainerId returns the container id of the project's
// primary service, or "" if it isn't running.
func (p *Project) GetPrimaryContainerId(ctx context.Context) (string, error) {
	args := append(p.baseArgs(), "ps", "-q", p.PrimaryService)
	out, err := p.runOutput(ctx, args)
	if err != nil {
		return "", err
	}
	id := strings.TrimSpace(out)
	if id == "" {
		return "", nil
	}
	// `compose ps -q` can print multiple ids (scaled services); this
	// core only ever targets the first.
	return strings.Fields(id)[0], nil
}

// PopulateExternalVolumes creates any named volumes the project
// references that don't already exist, mirroring what `docker compose
// up` does implicitly for volumes declared without `external: true`
// but which this core needs to pre-create when attaching to an
// already-running project without calling StartProject again.
func (p *Project) PopulateExternalVolumes(ctx context.Context) error {
	out, err := p.runOutput(ctx, append(p.baseArgs(), "config", "--volumes"))
	if err != nil {
		return fmt.Errorf("listing project volumes: %w", err)
	}

	for _, name := range strings.Fields(out) {
		volumeName := fmt.Sprintf("%s_%s", p.Name, name)
		if cmd := exec.CommandContext(ctx, "docker", "volume", "inspect", volumeName); cmd.Run() == nil {
			continue
		}
		create := exec.CommandContext(ctx, "docker", "volume", "create", volumeName)
		if out, err := create.CombinedOutput(); err != nil {
			return fmt.Errorf("creating volume %s: %w\n%s", volumeName, err, out)
		}
	}
	return nil
}

func (p *Project) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "docker", append([]string{"compose"}, args...)...)
	cmd.Dir = p.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker compose %s failed: %w\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return nil
}

func (p *Project) runOutput(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "docker", append([]string{"compose"}, args...)...)
	cmd.Dir = p.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("docker compose %s failed: %w\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return string(out), nil
}

func (p *Project) runWithOverride(ctx context.Context, override Override, args []string) error {
	content, err := renderOverride(override)
	if err != nil {
		return fmt.Errorf("rendering compose override: %w", err)
	}

	cmd := exec.CommandContext(ctx, "docker", append([]string{"compose"}, args...)...)
	cmd.Dir = p.WorkDir
	cmd.Stdin = bytes.NewReader(content)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("docker compose %s failed: %w\n%s", strings.Join(args, " "), err, stderr.String())
	}
	return nil
}
