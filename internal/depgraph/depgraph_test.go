package depgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devctl/devctl/internal/xerrors"
)

func TestBuild_OrdersByDependsOn(t *testing.T) {
	nodes := []Node{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b"},
	}
	g, err := Build(nodes, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"b", "a"}, g.Order())
}

func TestBuild_InstallsAfterIsSoftOnUnknown(t *testing.T) {
	nodes := []Node{
		{ID: "a", InstallsAfter: []string{"does-not-exist"}},
	}
	g, err := Build(nodes, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, g.Order())
}

func TestBuild_DependsOnUnknownIsInvalidDependency(t *testing.T) {
	nodes := []Node{
		{ID: "a", DependsOn: []string{"missing"}},
	}
	_, err := Build(nodes, nil)
	require.Error(t, err)
	xe, ok := xerrors.As(err)
	require.True(t, ok)
	require.Equal(t, xerrors.CategoryInvalidDependency, xe.Category)
}

func TestBuild_DetectsCycle(t *testing.T) {
	nodes := []Node{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}
	_, err := Build(nodes, nil)
	require.Error(t, err)
	xe, ok := xerrors.As(err)
	require.True(t, ok)
	require.Equal(t, xerrors.CategoryDependencyCycle, xe.Category)
}

func TestBuild_DeterministicTieBreak(t *testing.T) {
	nodes := []Node{
		{ID: "zeta"},
		{ID: "alpha"},
		{ID: "beta"},
	}
	g1, err := Build(nodes, nil)
	require.NoError(t, err)
	g2, err := Build(nodes, nil)
	require.NoError(t, err)
	require.Equal(t, g1.Order(), g2.Order())
	require.Equal(t, []string{"zeta", "alpha", "beta"}, g1.Order())
}

func TestBuild_OverrideOrderTakesPriority(t *testing.T) {
	nodes := []Node{
		{ID: "zeta"},
		{ID: "alpha"},
		{ID: "beta"},
	}
	g, err := Build(nodes, []string{"beta", "alpha"})
	require.NoError(t, err)
	require.Equal(t, []string{"beta", "alpha", "zeta"}, g.Order())
}

func TestBuild_OverrideOrderContradictingDependsOnFails(t *testing.T) {
	nodes := []Node{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b"},
	}
	_, err := Build(nodes, []string{"a", "b"})
	require.Error(t, err)
	xe, ok := xerrors.As(err)
	require.True(t, ok)
	require.Equal(t, xerrors.CodeOverrideOrder, xe.Code)
}
