package mergeutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devctl/devctl/internal/devcontainer"
	"github.com/devctl/devctl/internal/features"
)

func TestMergeMounts_DedupsByTarget(t *testing.T) {
	base := []devcontainer.Mount{{Source: "/host/a", Target: "/a", Type: "bind"}}
	featureMounts := [][]features.FeatureMount{
		{{Source: "/host/a-override", Target: "/a"}, {Source: "/host/b", Target: "/b"}},
	}
	out := MergeMounts(base, featureMounts)
	require.Len(t, out, 2)
	require.Equal(t, "/host/a", out[0].Source)
	require.Equal(t, "/b", out[1].Target)
}

func TestMergeMounts_DedupsRawStrings(t *testing.T) {
	base := []devcontainer.Mount{{Raw: "source=a,target=/a"}}
	featureMounts := [][]features.FeatureMount{{{Raw: "source=a,target=/a"}}}
	out := MergeMounts(base, featureMounts)
	require.Len(t, out, 1)
}

func TestMergeSecurity_UnionsCapsAndOrsFlags(t *testing.T) {
	base := SecuritySpec{CapAdd: []string{"SYS_PTRACE"}}
	specs := []SecuritySpec{
		{CapAdd: []string{"SYS_PTRACE", "NET_ADMIN"}, Privileged: true},
		{SecurityOpt: []string{"seccomp=unconfined"}, Init: true},
	}
	merged := MergeSecurity(base, specs)
	require.Equal(t, []string{"SYS_PTRACE", "NET_ADMIN"}, merged.CapAdd)
	require.Equal(t, []string{"seccomp=unconfined"}, merged.SecurityOpt)
	require.True(t, merged.Privileged)
	require.True(t, merged.Init)
}

func TestBuildEntrypointChain_NoEntrypoints(t *testing.T) {
	chain := BuildEntrypointChain("", nil)
	require.Nil(t, chain.Entrypoint)
	require.Empty(t, chain.WrapperScript)
}

func TestBuildEntrypointChain_SingleEntrypointNoWrapper(t *testing.T) {
	chain := BuildEntrypointChain("/usr/local/bin/base-entrypoint.sh", nil)
	require.Equal(t, []string{"/bin/sh", "-c", "/usr/local/bin/base-entrypoint.sh"}, chain.Entrypoint)
	require.Empty(t, chain.WrapperScript)
}

func TestBuildEntrypointChain_MultipleEntrypointsGenerateWrapper(t *testing.T) {
	chain := BuildEntrypointChain("/base.sh", []string{"/feature-a.sh", "/feature-b.sh"})
	require.Equal(t, []string{"/bin/sh", EntrypointWrapperPath}, chain.Entrypoint)
	require.Contains(t, chain.WrapperScript, "/base.sh\n")
	require.Contains(t, chain.WrapperScript, "/feature-a.sh\n")
	require.Contains(t, chain.WrapperScript, "/feature-b.sh\nexec \"$@\"\n")
}
