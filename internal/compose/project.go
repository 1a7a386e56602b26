// Package compose loads docker-compose project definitions via
// compose-spec/compose-go, the same library internal/runtime/compose
// hands files to before driving the compose CLI.
package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compose-spec/compose-go/v2/cli"
	"github.com/compose-spec/compose-go/v2/types"
)

// LoadOptions configures how to load a compose project.
type LoadOptions struct {
	// Files is the list of compose files to load.
	Files []string

	// WorkDir is the working directory for relative paths.
	WorkDir string

	// ProjectName overrides the default project name.
	ProjectName string

	// Profiles is the list of profiles to enable.
	Profiles []string

	// EnvFiles is the list of additional env files to load.
	EnvFiles []string

	// Environment provides additional environment variables.
	Environment map[string]string

	// Interpolate enables variable interpolation.
	Interpolate bool

	// ResolvePaths resolves relative paths to absolute.
	ResolvePaths bool
}

// LoadProject loads a compose project from files.
func LoadProject(ctx context.Context, opts LoadOptions) (*types.Project, error) {
	workDir := opts.WorkDir
	if workDir == "" && len(opts.Files) > 0 {
		workDir = filepath.Dir(opts.Files[0])
	}
	if workDir == "" {
		var err error
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	projectOpts := []cli.ProjectOptionsFn{
		cli.WithWorkingDirectory(workDir),
		cli.WithOsEnv,
		cli.WithDotEnv,
		cli.WithInterpolation(opts.Interpolate),
		cli.WithResolvedPaths(opts.ResolvePaths),
	}

	if opts.ProjectName != "" {
		projectOpts = append(projectOpts, cli.WithName(opts.ProjectName))
	}

	if len(opts.Profiles) > 0 {
		projectOpts = append(projectOpts, cli.WithProfiles(opts.Profiles))
	}

	if len(opts.EnvFiles) > 0 {
		projectOpts = append(projectOpts, cli.WithEnvFiles(opts.EnvFiles...))
	}

	if len(opts.Environment) > 0 {
		env := make([]string, 0, len(opts.Environment))
		for k, v := range opts.Environment {
			env = append(env, k+"="+v)
		}
		projectOpts = append(projectOpts, cli.WithEnv(env))
	}

	options, err := cli.NewProjectOptions(opts.Files, projectOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create project options: %w", err)
	}

	project, err := options.LoadProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}

	return project, nil
}
