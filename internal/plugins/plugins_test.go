package plugins

import (
	"errors"
	"testing"

	"github.com/devctl/devctl/internal/config"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	name       string
	preInstall func(Context, *config.DevcontainerConfig) error
	postPhase  func(Context) error
	calls      *[]string
}

func (h recordingHook) Name() string { return h.name }

func (h recordingHook) PreInstall(ctx Context, cfg *config.DevcontainerConfig) error {
	*h.calls = append(*h.calls, h.name+":pre-install")
	if h.preInstall != nil {
		return h.preInstall(ctx, cfg)
	}
	return nil
}

func (h recordingHook) PostLifecyclePhase(ctx Context) error {
	*h.calls = append(*h.calls, h.name+":post:"+ctx.Phase)
	if h.postPhase != nil {
		return h.postPhase(ctx)
	}
	return nil
}

func TestRegister_PreservesOrder(t *testing.T) {
	Reset()
	defer Reset()

	var calls []string
	Register(recordingHook{name: "first", calls: &calls})
	Register(recordingHook{name: "second", calls: &calls})

	require.Equal(t, []string{"first", "second"}, Names())
	require.Equal(t, 2, Count())
}

func TestRunPreInstall_AllHooksInjectIntoConfig(t *testing.T) {
	Reset()
	defer Reset()

	var calls []string
	Register(recordingHook{
		name:  "env-injector",
		calls: &calls,
		preInstall: func(ctx Context, cfg *config.DevcontainerConfig) error {
			if cfg.ContainerEnv == nil {
				cfg.ContainerEnv = map[string]string{}
			}
			cfg.ContainerEnv["PLUGIN_TEST"] = "test_value"
			return nil
		},
	})

	cfg := &config.DevcontainerConfig{}
	err := RunPreInstall(Context{WorkspaceRoot: "/workspace"}, cfg)
	require.NoError(t, err)
	require.Equal(t, "test_value", cfg.ContainerEnv["PLUGIN_TEST"])
}

func TestRunPreInstall_ContinuesAfterErrorAndReturnsFirst(t *testing.T) {
	Reset()
	defer Reset()

	var calls []string
	Register(recordingHook{name: "failing", calls: &calls, preInstall: func(Context, *config.DevcontainerConfig) error {
		return errors.New("boom")
	}})
	Register(recordingHook{name: "ok", calls: &calls})

	err := RunPreInstall(Context{}, &config.DevcontainerConfig{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failing")
	require.Equal(t, []string{"failing:pre-install", "ok:pre-install"}, calls)
}

func TestRunPostLifecyclePhase_PassesPhaseName(t *testing.T) {
	Reset()
	defer Reset()

	var gotPhase string
	var calls []string
	Register(recordingHook{name: "watcher", calls: &calls, postPhase: func(ctx Context) error {
		gotPhase = ctx.Phase
		return nil
	}})

	require.NoError(t, RunPostLifecyclePhase(Context{Phase: "postCreate"}))
	require.Equal(t, "postCreate", gotPhase)
}

func TestReset_ClearsRegistry(t *testing.T) {
	Reset()
	var calls []string
	Register(recordingHook{name: "temp", calls: &calls})
	require.Equal(t, 1, Count())

	Reset()
	require.Equal(t, 0, Count())
	require.Empty(t, Names())
}
