package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolveExtends_ScalarOverrideAndListAppend(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "base.json", `{
		"name": "base",
		"image": "base-image",
		"runArgs": ["--base-arg"],
		"capAdd": ["SYS_PTRACE"],
		"containerEnv": {"FOO": "base", "ONLY_BASE": "1"}
	}`)
	childPath := writeJSON(t, dir, "devcontainer.json", `{
		"name": "child",
		"extends": "base.json",
		"runArgs": ["--child-arg"],
		"capAdd": ["NET_ADMIN"],
		"containerEnv": {"FOO": "child"}
	}`)

	cfg, err := ParseFile(childPath)
	require.NoError(t, err)

	merged, err := ResolveExtends(cfg, dir)
	require.NoError(t, err)

	require.Equal(t, "child", merged.Name)
	require.Equal(t, "base-image", merged.Image)
	require.Equal(t, []string{"--base-arg", "--child-arg"}, merged.RunArgs)
	require.Equal(t, []string{"SYS_PTRACE", "NET_ADMIN"}, merged.CapAdd)
	require.Equal(t, "child", merged.ContainerEnv["FOO"])
	require.Equal(t, "1", merged.ContainerEnv["ONLY_BASE"])
	require.Nil(t, merged.Extends)
}

func TestResolveExtends_MountsDedupByTarget(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "base.json", `{
		"mounts": ["source=/host/a,target=/a"]
	}`)
	childPath := writeJSON(t, dir, "devcontainer.json", `{
		"extends": "base.json",
		"mounts": ["source=/host/a,target=/a", "source=/host/b,target=/b"]
	}`)

	cfg, err := ParseFile(childPath)
	require.NoError(t, err)
	merged, err := ResolveExtends(cfg, dir)
	require.NoError(t, err)

	require.Len(t, merged.Mounts, 2)
}

func TestResolveExtends_MultiLevelChain(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "grandparent.json", `{"name": "grandparent", "image": "gp-image"}`)
	writeJSON(t, dir, "parent.json", `{"name": "parent", "extends": "grandparent.json"}`)
	childPath := writeJSON(t, dir, "devcontainer.json", `{"extends": "parent.json"}`)

	cfg, err := ParseFile(childPath)
	require.NoError(t, err)
	merged, err := ResolveExtends(cfg, dir)
	require.NoError(t, err)

	require.Equal(t, "parent", merged.Name)
	require.Equal(t, "gp-image", merged.Image)
}

func TestResolveExtends_ArrayForm(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "a.json", `{"runArgs": ["--a"]}`)
	writeJSON(t, dir, "b.json", `{"runArgs": ["--b"]}`)
	childPath := writeJSON(t, dir, "devcontainer.json", `{"extends": ["a.json", "b.json"]}`)

	cfg, err := ParseFile(childPath)
	require.NoError(t, err)
	merged, err := ResolveExtends(cfg, dir)
	require.NoError(t, err)

	require.Equal(t, []string{"--a", "--b"}, merged.RunArgs)
}

func TestResolveExtends_NoExtendsReturnsSameConfig(t *testing.T) {
	dir := t.TempDir()
	childPath := writeJSON(t, dir, "devcontainer.json", `{"name": "solo"}`)

	cfg, err := ParseFile(childPath)
	require.NoError(t, err)
	merged, err := ResolveExtends(cfg, dir)
	require.NoError(t, err)

	require.Same(t, cfg, merged)
}

func TestResolveExtends_MissingFileErrors(t *testing.T) {
	dir := t.TempDir()
	childPath := writeJSON(t, dir, "devcontainer.json", `{"extends": "missing.json"}`)

	cfg, err := ParseFile(childPath)
	require.NoError(t, err)
	_, err = ResolveExtends(cfg, dir)
	require.Error(t, err)
}

func TestResolveExtends_CycleErrors(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, dir, "a.json", `{"extends": "b.json"}`)
	writeJSON(t, dir, "b.json", `{"extends": "a.json"}`)
	childPath := writeJSON(t, dir, "devcontainer.json", `{"extends": "a.json"}`)

	cfg, err := ParseFile(childPath)
	require.NoError(t, err)
	_, err = ResolveExtends(cfg, dir)
	require.Error(t, err)
}
