package docker

import (
	"testing"

	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/devcontainer"
	"github.com/stretchr/testify/require"
)

func TestConvertMounts_PreservesFields(t *testing.T) {
	in := []config.Mount{
		{Source: "/host/cache", Target: "/cache", Type: "bind", ReadOnly: true, Raw: "raw-spec"},
	}
	out := convertMounts(in)
	require.Equal(t, []devcontainer.Mount{
		{Source: "/host/cache", Target: "/cache", Type: "bind", ReadOnly: true, Raw: "raw-spec"},
	}, out)
}

func TestConvertMounts_Empty(t *testing.T) {
	require.Empty(t, convertMounts(nil))
}
