package mergedconfig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/featuremerge"
)

func TestBuild_MergesLayersAndTracksProvenance(t *testing.T) {
	base := &config.DevcontainerConfig{Name: "base", Image: "base-image"}
	override := &config.DevcontainerConfig{Image: "override-image", RunArgs: []string{"--cli-arg"}}

	result, err := Build([]Layer{
		{Name: "base", Config: base},
		{Name: "cli-override", Config: override},
	}, nil, nil, nil)
	require.NoError(t, err)

	require.Equal(t, "base", result.Config.Name)
	require.Equal(t, "override-image", result.Config.Image)
	require.Equal(t, []string{"--cli-arg"}, result.Config.RunArgs)

	require.Equal(t, "base", result.Provenance["name"])
	require.Equal(t, "cli-override", result.Provenance["image"])
	require.Equal(t, "cli-override", result.Provenance["runArgs"])
}

func TestBuild_PreservesFeatureOrderAndLabels(t *testing.T) {
	features := []featuremerge.Resolved{
		{ID: "alpha", Source: "ghcr.io/x/alpha:1"},
		{ID: "beta", Source: "ghcr.io/x/beta:1"},
	}
	imageLabels := map[string]string{"devcontainer.source": "devctl"}
	containerLabels := map[string]string{"devcontainer.workspaceHash": "abc123"}

	result, err := Build([]Layer{{Name: "base", Config: &config.DevcontainerConfig{Name: "x"}}}, features, imageLabels, containerLabels)
	require.NoError(t, err)

	require.Equal(t, []featuremerge.Resolved{
		{ID: "alpha", Source: "ghcr.io/x/alpha:1"},
		{ID: "beta", Source: "ghcr.io/x/beta:1"},
	}, result.Features)
	require.Equal(t, "devctl", result.ImageLabels["devcontainer.source"])
	require.Equal(t, "abc123", result.ContainerLabels["devcontainer.workspaceHash"])
}

func TestBuild_NilLayerConfigSkipped(t *testing.T) {
	result, err := Build([]Layer{
		{Name: "empty", Config: nil},
		{Name: "base", Config: &config.DevcontainerConfig{Name: "only-one"}},
	}, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "only-one", result.Config.Name)
	require.NotContains(t, result.Provenance, "empty")
}
