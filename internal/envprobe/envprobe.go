// Package envprobe captures the login/interactive shell environment from
// inside a running container, so lifecycle commands (which do not
// otherwise source ~/.bashrc, nvm, etc.) see the PATH and variables a
// user's real shell session would have.
package envprobe

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/devctl/devctl/internal/container"
)

// Mode selects how the shell environment is captured.
type Mode string

const (
	// ModeNone disables probing entirely.
	ModeNone Mode = "none"
	// ModeLoginShell invokes the detected shell as a login shell: `$SHELL -lc env`.
	ModeLoginShell Mode = "loginShell"
	// ModeLoginInteractiveShell invokes it as a login, interactive shell: `$SHELL -lic env`.
	ModeLoginInteractiveShell Mode = "loginInteractiveShell"
)

// ParseMode parses a configured probe mode string, defaulting to ModeNone
// for anything unrecognized.
func ParseMode(s string) Mode {
	switch Mode(s) {
	case ModeLoginShell:
		return ModeLoginShell
	case ModeLoginInteractiveShell:
		return ModeLoginInteractiveShell
	default:
		return ModeNone
	}
}

// fallbackShells is tried in order when neither $SHELL nor the /etc/passwd
// entry for the target user yields an executable shell.
var fallbackShells = []string{"/bin/zsh", "/usr/bin/zsh", "/bin/bash", "/bin/sh"}

var envKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type cacheKey struct {
	mode      Mode
	shellPath string
}

// Prober captures and memoizes shell environments for the lifetime of a
// single invocation. Not safe to persist across invocations: the cache
// lives only in the Prober value itself.
type Prober struct {
	mu    sync.Mutex
	cache map[cacheKey]map[string]string
}

// New returns a Prober with an empty cache.
func New() *Prober {
	return &Prober{cache: map[cacheKey]map[string]string{}}
}

// Probe runs the configured probe inside containerID as user and returns
// the resulting environment variables. Returns (nil, nil) for ModeNone.
// Results are memoized per (mode, detected shell path); calling Probe
// again with the same mode against a container where the same shell
// resolves returns the cached map without re-invoking the shell.
func (p *Prober) Probe(ctx context.Context, containerID string, mode Mode, user string) (map[string]string, error) {
	if mode == ModeNone || mode == "" {
		return nil, nil
	}

	shellPath, err := p.detectShell(ctx, containerID, user)
	if err != nil {
		return nil, fmt.Errorf("detecting shell: %w", err)
	}

	key := cacheKey{mode: mode, shellPath: shellPath}
	p.mu.Lock()
	if cached, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	p.mu.Unlock()

	cmd := probeCommand(mode, shellPath)
	output, exitCode, err := container.ExecOutput(ctx, containerID, cmd, user)
	if err != nil {
		return nil, fmt.Errorf("running environment probe: %w", err)
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("environment probe exited with code %d", exitCode)
	}

	env := parseEnv(output)

	p.mu.Lock()
	p.cache[key] = env
	p.mu.Unlock()
	return env, nil
}

func probeCommand(mode Mode, shellPath string) []string {
	switch mode {
	case ModeLoginShell:
		return []string{shellPath, "-lc", "env"}
	case ModeLoginInteractiveShell:
		return []string{shellPath, "-lic", "env"}
	default:
		return nil
	}
}

// detectShell resolves the shell to probe with, in the order: $SHELL if
// executable, the /etc/passwd entry for user, the fallback chain, then a
// final fallback of "sh".
func (p *Prober) detectShell(ctx context.Context, containerID, user string) (string, error) {
	if shell, ok := p.shellFromEnvVar(ctx, containerID, user); ok {
		return shell, nil
	}
	if shell, ok := p.shellFromPasswd(ctx, containerID, user); ok {
		return shell, nil
	}
	for _, candidate := range fallbackShells {
		if p.isExecutable(ctx, containerID, user, candidate) {
			return candidate, nil
		}
	}
	return "sh", nil
}

func (p *Prober) shellFromEnvVar(ctx context.Context, containerID, user string) (string, bool) {
	var buf bytes.Buffer
	exitCode, err := container.Exec(ctx, container.ExecConfig{
		ContainerID: containerID,
		Cmd:         []string{"sh", "-c", `[ -n "$SHELL" ] && [ -x "$SHELL" ] && printf '%s' "$SHELL"`},
		User:        user,
		Stdout:      &buf,
	})
	if err != nil || exitCode != 0 {
		return "", false
	}
	shell := strings.TrimSpace(buf.String())
	return shell, shell != ""
}

func (p *Prober) shellFromPasswd(ctx context.Context, containerID, user string) (string, bool) {
	var buf bytes.Buffer
	exitCode, err := container.Exec(ctx, container.ExecConfig{
		ContainerID: containerID,
		Cmd:         []string{"sh", "-c", `awk -F: -v u="$PROBE_USER" '$1==u{print $7; found=1} END{if(!found) exit 1}' /etc/passwd`},
		User:        user,
		Env:         []string{"PROBE_USER=" + user},
		Stdout:      &buf,
	})
	if err != nil || exitCode != 0 {
		return "", false
	}
	shell := strings.TrimSpace(buf.String())
	return shell, shell != ""
}

func (p *Prober) isExecutable(ctx context.Context, containerID, user, path string) bool {
	exitCode, err := container.Exec(ctx, container.ExecConfig{
		ContainerID: containerID,
		Cmd:         []string{"test", "-x", path},
		User:        user,
	})
	return err == nil && exitCode == 0
}

// parseEnv splits each line of `env` output on its first '=', keeping
// only keys matching [A-Za-z_][A-Za-z0-9_]* and discarding the rest.
// Values may be empty and may themselves contain '='.
func parseEnv(output string) map[string]string {
	env := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := line[:idx]
		if !envKeyPattern.MatchString(key) {
			continue
		}
		env[key] = line[idx+1:]
	}
	return env
}

// Merge folds probed, containerEnv, and remoteEnv into a single effective
// environment, later maps overwriting earlier ones on key conflict.
func Merge(probed, containerEnv, remoteEnv map[string]string) map[string]string {
	out := make(map[string]string, len(probed)+len(containerEnv)+len(remoteEnv))
	for k, v := range probed {
		out[k] = v
	}
	for k, v := range containerEnv {
		out[k] = v
	}
	for k, v := range remoteEnv {
		out[k] = v
	}
	return out
}
