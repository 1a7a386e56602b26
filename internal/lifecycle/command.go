package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/devctl/devctl/internal/container"
)

// CommandSpec is one runnable command: either a shell string (Shell
// true, Args holding the single command string) or an exec-form argv
// (Shell false, Args holding program + arguments).
type CommandSpec struct {
	Shell bool
	Args  []string
}

// Group is a set of commands that execute concurrently. Label is the
// map key this group was parsed from, empty for the string/array forms
// which have no label.
type Group struct {
	Label    string
	Commands []CommandSpec
}

// ParseCommandValue parses a lifecycle hook's raw JSON value into an
// ordered list of groups to execute. A string or array value produces
// a single unlabeled group holding one command. A map value produces
// one group per key, executed later in lexicographic key order; a
// string value in the map is one command for that group, an array
// value is multiple commands that run concurrently within the group.
func ParseCommandValue(value interface{}) []Group {
	if value == nil {
		return nil
	}

	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []Group{{Commands: []CommandSpec{{Shell: true, Args: []string{v}}}}}

	case []string:
		if len(v) == 0 {
			return nil
		}
		return []Group{{Commands: []CommandSpec{{Shell: false, Args: v}}}}

	case []interface{}:
		args := stringsFromInterfaceSlice(v)
		if len(args) == 0 {
			return nil
		}
		return []Group{{Commands: []CommandSpec{{Shell: false, Args: args}}}}

	case map[string]interface{}:
		labels := make([]string, 0, len(v))
		for label := range v {
			labels = append(labels, label)
		}
		sort.Strings(labels)

		groups := make([]Group, 0, len(labels))
		for _, label := range labels {
			groups = append(groups, Group{Label: label, Commands: parseGroupValue(v[label])})
		}
		return groups

	default:
		return nil
	}
}

func parseGroupValue(value interface{}) []CommandSpec {
	switch v := value.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []CommandSpec{{Shell: true, Args: []string{v}}}

	case []interface{}:
		var cmds []CommandSpec
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				cmds = append(cmds, CommandSpec{Shell: true, Args: []string{s}})
			}
		}
		return cmds

	case []string:
		var cmds []CommandSpec
		for _, s := range v {
			if s != "" {
				cmds = append(cmds, CommandSpec{Shell: true, Args: []string{s}})
			}
		}
		return cmds

	default:
		return nil
	}
}

func stringsFromInterfaceSlice(v []interface{}) []string {
	var out []string
	for _, item := range v {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Display renders a command for logging/audit purposes.
func (c CommandSpec) Display() string {
	if c.Shell {
		return c.Args[0]
	}
	return strings.Join(c.Args, " ")
}

// commandError reports which command failed, with what exit code, so a
// caller can build the structured phase/command/exit-code error the
// failure semantics require without re-parsing an error string.
type commandError struct {
	display  string
	exitCode int
	err      error
}

func (e *commandError) Error() string { return fmt.Sprintf("%s: %v", e.display, e.err) }
func (e *commandError) Unwrap() error { return e.err }

// runner abstracts where a command's argv is actually executed: the
// host (os/exec) or a container (internal/container.Exec).
type runner func(ctx context.Context, cmd CommandSpec) error

// runGroups executes every group in order, running each group's
// commands concurrently and failing the whole run on the first command
// failure within a group -- in-flight siblings are signalled to stop
// (their context is cancelled) and awaited before the error surfaces.
// The returned error is a *commandError when the failure can be pinned
// to a specific command.
func runGroups(ctx context.Context, groups []Group, run runner) error {
	for _, group := range groups {
		if err := runGroup(ctx, group, run); err != nil {
			return err
		}
	}
	return nil
}

func runGroup(ctx context.Context, group Group, run runner) error {
	if len(group.Commands) == 1 {
		return run(ctx, group.Commands[0])
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, cmd := range group.Commands {
		cmd := cmd
		g.Go(func() error {
			return run(gctx, cmd)
		})
	}
	return g.Wait()
}

func argvFor(cmd CommandSpec) []string {
	if cmd.Shell {
		return []string{"sh", "-c", cmd.Args[0]}
	}
	return cmd.Args
}

// runHost executes cmd on the host machine with the given working
// directory and environment.
func runHost(ctx context.Context, cmd CommandSpec, dir string, env map[string]string) error {
	argv := argvFor(cmd)
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Dir = dir
	c.Env = append(os.Environ(), envSlice(env)...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr

	if err := c.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &commandError{display: cmd.Display(), exitCode: exitCode, err: err}
	}
	return nil
}

// runInContainer executes cmd inside containerID as user with the
// given environment and working directory.
func runInContainer(ctx context.Context, containerID string, cmd CommandSpec, workingDir, user string, env map[string]string) error {
	exitCode, err := container.Exec(ctx, container.ExecConfig{
		ContainerID: containerID,
		Cmd:         argvFor(cmd),
		WorkingDir:  workingDir,
		User:        user,
		Env:         envSlice(env),
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	})
	if err != nil {
		return &commandError{display: cmd.Display(), exitCode: -1, err: err}
	}
	if exitCode != 0 {
		return &commandError{display: cmd.Display(), exitCode: exitCode, err: fmt.Errorf("command exited with code %d", exitCode)}
	}
	return nil
}

func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
