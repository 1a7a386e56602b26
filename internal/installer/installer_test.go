package installer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devctl/devctl/internal/featuremerge"
	"github.com/devctl/devctl/internal/features"
)

func TestBuildInstallEnv_IncludesIdentityAndFeatureFields(t *testing.T) {
	r := featuremerge.Resolved{
		ID:     "ghcr.io/x/go",
		Path:   "/cache/go",
		Options: map[string]features.OptionValue{"version": "1.22"},
		Metadata: &features.FeatureMetadata{
			ID:      "go",
			Version: "1.2.3",
			Options: map[string]features.OptionDefinition{
				"version": {Type: "string", Default: "latest"},
			},
		},
	}
	env := buildInstallEnv(r, Identity{ContainerUser: "root", RemoteUser: "vscode"}, "/tmp/devcontainer-features/0-go", nil)

	require.Contains(t, env, "FEATURE_ID=go")
	require.Contains(t, env, "FEATURE_VERSION=1.2.3")
	require.Contains(t, env, "FEATURE_PATH=/tmp/devcontainer-features/0-go")
	require.Contains(t, env, "_CONTAINER_USER=root")
	require.Contains(t, env, "_REMOTE_USER=vscode")
	require.Contains(t, env, "VERSION=1.22")
}

func TestBuildInstallEnv_FallsBackToOptionDefault(t *testing.T) {
	r := featuremerge.Resolved{
		Options: map[string]features.OptionValue{},
		Metadata: &features.FeatureMetadata{
			ID: "go",
			Options: map[string]features.OptionDefinition{
				"version": {Type: "string", Default: "1.22"},
			},
		},
	}
	env := buildInstallEnv(r, Identity{}, "/dest", nil)
	require.Contains(t, env, "VERSION=1.22")
}

func TestBuildInstallEnv_AccumulatesEarlierContainerEnv(t *testing.T) {
	r := featuremerge.Resolved{Metadata: &features.FeatureMetadata{ID: "b"}}
	env := buildInstallEnv(r, Identity{}, "/dest", map[string]string{"FOO": "bar"})
	require.Contains(t, env, "FOO=bar")
}

func TestShQuote_EscapesEmbeddedSingleQuotes(t *testing.T) {
	require.Equal(t, `'it'"'"'s'`, shQuote("it's"))
	require.Equal(t, "'plain'", shQuote("plain"))
}

func TestSanitizeDirName_ReplacesDisallowedCharacters(t *testing.T) {
	require.Equal(t, "ghcr-io-x-go", sanitizeDirName("ghcr.io/x/go"))
	require.Equal(t, "go_lang-1", sanitizeDirName("go_lang-1"))
}
