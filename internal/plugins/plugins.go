// Package plugins provides a small process-global registry that internal
// components can hook into at well-defined points: before feature
// installation and after the lifecycle commands run. It has no external plugin
// loading mechanism (no shared objects, no subprocess protocol) — it exists
// so that a handful of singleton concerns (audit emission, metrics,
// telemetry) can register callbacks without the orchestrator importing each
// of them by name.
package plugins

import (
	"fmt"
	"sync"

	"github.com/devctl/devctl/internal/config"
)

// Context carries the information a hook needs to act on.
type Context struct {
	WorkspaceRoot string
	Phase         string // set for PostLifecyclePhase hooks, empty otherwise
}

// Hook is the interface a registered plugin implements. All methods must be
// safe to call from a single goroutine; the registry does not run hooks
// concurrently with each other.
type Hook interface {
	// Name identifies the hook for logging and duplicate-registration
	// warnings. Must be unique within the registry.
	Name() string

	// PreInstall runs once, before feature installation begins. up.Run
	// calls it only for a newly created container, after creation, and
	// passes a copy of the config that it does not read back, so changes
	// a hook makes to cfg reach neither the container nor the install.
	PreInstall(ctx Context, cfg *config.DevcontainerConfig) error

	// PostLifecyclePhase runs after the lifecycle commands complete
	// successfully. up.Run calls it once per run, with ctx.Phase set to
	// "postCreate" on both the create path and the reuse (start) path.
	PostLifecyclePhase(ctx Context) error
}

type entry struct {
	hook Hook
}

var (
	mu       sync.Mutex
	registry []entry
)

// Register adds a hook to the registry. Hooks run in registration order for
// PreInstall/PostLifecyclePhase. Registering a name that's already present
// is allowed (later registrations can shadow earlier ones in practice) but
// is rarely what's intended, so callers should treat it as a programming
// error in normal operation.
func Register(hook Hook) {
	mu.Lock()
	defer mu.Unlock()
	registry = append(registry, entry{hook: hook})
}

// Reset clears the registry. Intended for tests that need a clean slate
// between cases; production code never calls this.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
}

// Names returns the registered hook names in registration order.
func Names() []string {
	mu.Lock()
	defer mu.Unlock()
	names := make([]string, len(registry))
	for i, e := range registry {
		names[i] = e.hook.Name()
	}
	return names
}

// Count returns the number of registered hooks.
func Count() int {
	mu.Lock()
	defer mu.Unlock()
	return len(registry)
}

// RunPreInstall invokes PreInstall on every registered hook in order. It
// keeps going after an error so that one misbehaving hook doesn't stop the
// rest, and returns the first error encountered (if any) after all hooks
// have run.
func RunPreInstall(ctx Context, cfg *config.DevcontainerConfig) error {
	mu.Lock()
	snapshot := make([]entry, len(registry))
	copy(snapshot, registry)
	mu.Unlock()

	var firstErr error
	for _, e := range snapshot {
		if err := e.hook.PreInstall(ctx, cfg); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("plugin %s: pre-install: %w", e.hook.Name(), err)
			}
		}
	}
	return firstErr
}

// RunPostLifecyclePhase invokes PostLifecyclePhase on every registered hook
// in order, for the phase named in ctx.Phase. Same all-hooks-run,
// first-error-returned semantics as RunPreInstall.
func RunPostLifecyclePhase(ctx Context) error {
	mu.Lock()
	snapshot := make([]entry, len(registry))
	copy(snapshot, registry)
	mu.Unlock()

	var firstErr error
	for _, e := range snapshot {
		if err := e.hook.PostLifecyclePhase(ctx); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("plugin %s: post-lifecycle-phase %s: %w", e.hook.Name(), ctx.Phase, err)
			}
		}
	}
	return firstErr
}
