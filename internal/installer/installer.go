// Package installer executes a resolved, ordered feature set inside a
// running container: copying each feature's content to a deterministic
// path, making its install script executable, and running it with the
// environment variables the devcontainer features specification defines.
// Grounded on the teacher's internal/container.Docker helpers
// (CopyToContainer, MkdirInContainer, ChmodInContainer, Exec) -- the
// same docker-CLI-shelling-out style used throughout that package.
package installer

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/devctl/devctl/internal/container"
	"github.com/devctl/devctl/internal/featuremerge"
	"github.com/devctl/devctl/internal/features"
	"github.com/devctl/devctl/internal/xerrors"
)

// containerFeatureRoot is where feature content is staged inside the
// container before its install script runs.
const containerFeatureRoot = "/tmp/devcontainer-features"

// profileDPath is the profile.d fragment every installed feature's
// containerEnv exports accumulate into.
const profileDPath = "/etc/profile.d/00-devcontainer-features.sh"

// Identity names the users a feature's install script runs as and is
// told about via _CONTAINER_USER/_REMOTE_USER.
type Identity struct {
	ContainerUser string
	RemoteUser    string
}

// Options configures InstallAll.
type Options struct {
	ContainerName string
	Identity      Identity
}

// Result is the accumulated, cross-feature effect of installing a
// resolved feature set: merged containerEnv, the profile.d script body,
// and any non-fatal warnings raised along the way (e.g. a feature's
// install script leaving a setuid/setgid bit behind).
type Result struct {
	ContainerEnv   map[string]string
	ProfileDScript string
	Warnings       []string
}

// InstallAll installs every resolved feature, in order, inside the named
// container. Each feature's containerEnv accumulates into the result and
// into subsequent features' environments, matching how the devcontainer
// features spec lets later features see earlier ones' variables.
func InstallAll(ctx context.Context, docker *container.Docker, resolved []featuremerge.Resolved, opts Options) (*Result, error) {
	result := &Result{ContainerEnv: map[string]string{}}
	var profile strings.Builder

	for i, r := range resolved {
		if r.Metadata == nil {
			return nil, xerrors.InstallationFailed(r.ID, 0, fmt.Errorf("no metadata resolved"))
		}

		destPath := fmt.Sprintf("%s/%d-%s", containerFeatureRoot, i, sanitizeDirName(r.Metadata.ID))

		if err := docker.MkdirInContainer(ctx, opts.ContainerName, destPath, "root"); err != nil {
			return nil, xerrors.InstallationFailed(r.ID, 0, fmt.Errorf("creating feature directory: %w", err))
		}
		if err := docker.CopyToContainer(ctx, r.Path+"/.", opts.ContainerName, destPath); err != nil {
			return nil, xerrors.InstallationFailed(r.ID, 0, fmt.Errorf("copying feature content: %w", err))
		}
		if err := docker.ChmodInContainer(ctx, opts.ContainerName, destPath+"/install.sh", "755", "root"); err != nil {
			return nil, xerrors.InstallationFailed(r.ID, 0, fmt.Errorf("making install.sh executable: %w", err))
		}

		env := buildInstallEnv(r, opts.Identity, destPath, result.ContainerEnv)

		var out bytes.Buffer
		exitCode, err := container.Exec(ctx, container.ExecConfig{
			ContainerID: opts.ContainerName,
			Cmd:         []string{destPath + "/install.sh"},
			WorkingDir:  destPath,
			User:        "root",
			Env:         env,
			Stdout:      &out,
			Stderr:      &out,
		})
		if err != nil {
			return nil, xerrors.InstallationFailed(r.ID, exitCode, err)
		}
		if exitCode != 0 {
			return nil, xerrors.InstallationFailed(r.ID, exitCode, fmt.Errorf("%s", out.String()))
		}

		if warning := checkSecurityBits(ctx, docker, opts.ContainerName, destPath); warning != "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %s", r.ID, warning))
		}

		for k, v := range r.Metadata.ContainerEnv {
			result.ContainerEnv[k] = v
			profile.WriteString(fmt.Sprintf("export %s=%s\n", k, shQuote(v)))
		}
	}

	result.ProfileDScript = profile.String()
	return result, nil
}

// WriteProfileD installs the accumulated profile.d fragment so every new
// shell in the container picks up the features' containerEnv.
func WriteProfileD(ctx context.Context, docker *container.Docker, containerName, script string) error {
	if script == "" {
		return nil
	}
	return docker.WriteFileInContainer(ctx, containerName, profileDPath, []byte(script), "root")
}

// buildInstallEnv assembles an install.sh's environment: the feature's
// identity (FEATURE_ID, FEATURE_VERSION, FEATURE_PATH), the container's
// user identity, the feature's provided options normalized to
// environment-variable names, and every containerEnv var accumulated
// from features installed earlier in the order.
func buildInstallEnv(r featuremerge.Resolved, identity Identity, destPath string, accumulatedEnv map[string]string) []string {
	env := []string{
		"FEATURE_ID=" + r.Metadata.ID,
		"FEATURE_VERSION=" + r.Metadata.Version,
		"FEATURE_PATH=" + destPath,
		"_CONTAINER_USER=" + identity.ContainerUser,
		"_REMOTE_USER=" + identity.RemoteUser,
	}

	optNames := make([]string, 0, len(r.Metadata.Options))
	for name := range r.Metadata.Options {
		optNames = append(optNames, name)
	}
	sort.Strings(optNames)
	for _, name := range optNames {
		def := r.Metadata.Options[name]
		value := def.Default
		if v, ok := r.Options[name]; ok {
			value = v
		}
		env = append(env, features.NormalizeOptionName(name)+"="+optionEnvString(value))
	}

	envNames := make([]string, 0, len(accumulatedEnv))
	for name := range accumulatedEnv {
		envNames = append(envNames, name)
	}
	sort.Strings(envNames)
	for _, name := range envNames {
		env = append(env, name+"="+accumulatedEnv[name])
	}

	return env
}

func optionEnvString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// checkSecurityBits inspects a feature's staged directory for lingering
// setuid/setgid bits left by its install script. These are surfaced as
// warnings, not failures: a feature may legitimately need them (e.g.
// sudo), and refusing to proceed would make the feature uninstallable.
func checkSecurityBits(ctx context.Context, docker *container.Docker, containerName, destPath string) string {
	out, err := docker.SimpleExecInContainer(ctx, containerName, container.SimpleExecOptions{
		User: "root",
		Cmd:  []string{"find", destPath, "-perm", "-4000", "-o", "-perm", "-2000"},
	})
	if err != nil {
		return ""
	}
	if found := strings.TrimSpace(string(out)); found != "" {
		return "install script left setuid/setgid bits on: " + strings.ReplaceAll(found, "\n", ", ")
	}
	return ""
}

// sanitizeDirName makes a feature id safe to use as a single path
// segment inside the container.
func sanitizeDirName(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// shQuote produces a single-quoted POSIX shell literal, escaping any
// embedded single quotes per the standard '"'"' trick.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
