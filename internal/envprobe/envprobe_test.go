package envprobe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	require.Equal(t, ModeNone, ParseMode(""))
	require.Equal(t, ModeNone, ParseMode("bogus"))
	require.Equal(t, ModeLoginShell, ParseMode("loginShell"))
	require.Equal(t, ModeLoginInteractiveShell, ParseMode("loginInteractiveShell"))
}

func TestProbeCommand(t *testing.T) {
	require.Equal(t, []string{"/bin/zsh", "-lc", "env"}, probeCommand(ModeLoginShell, "/bin/zsh"))
	require.Equal(t, []string{"/bin/zsh", "-lic", "env"}, probeCommand(ModeLoginInteractiveShell, "/bin/zsh"))
	require.Nil(t, probeCommand(ModeNone, "/bin/zsh"))
}

func TestParseEnv(t *testing.T) {
	out := parseEnv("FOO=bar\nPATH=/usr/bin:/bin\nOPTS=--flag=value\nEMPTY=\n1BAD=x\n=noKey\nnoEquals\n")
	require.Equal(t, map[string]string{
		"FOO":   "bar",
		"PATH":  "/usr/bin:/bin",
		"OPTS":  "--flag=value",
		"EMPTY": "",
	}, out)
}

func TestMerge_LaterLayersWin(t *testing.T) {
	probed := map[string]string{"PATH": "/probed", "ONLY_PROBED": "1"}
	containerEnv := map[string]string{"PATH": "/container", "ONLY_CONTAINER": "1"}
	remoteEnv := map[string]string{"PATH": "/remote"}

	merged := Merge(probed, containerEnv, remoteEnv)
	require.Equal(t, "/remote", merged["PATH"])
	require.Equal(t, "1", merged["ONLY_PROBED"])
	require.Equal(t, "1", merged["ONLY_CONTAINER"])
}

func TestProbe_NoneModeShortCircuits(t *testing.T) {
	p := New()
	env, err := p.Probe(context.Background(), "container-id", ModeNone, "user")
	require.NoError(t, err)
	require.Nil(t, env)
}
