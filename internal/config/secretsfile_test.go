package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devctl/devctl/internal/redact"
)

func TestApplySecrets_DoesNotOverrideExplicitRemoteEnv(t *testing.T) {
	cfg := &DevcontainerConfig{RemoteEnv: map[string]string{"API_KEY": "explicit-value"}}
	ApplySecrets(cfg, map[string]string{"API_KEY": "from-secret", "OTHER": "value"}, nil)

	require.Equal(t, "explicit-value", cfg.RemoteEnv["API_KEY"])
	require.Equal(t, "value", cfg.RemoteEnv["OTHER"])
}

func TestApplySecrets_RegistersValuesForRedaction(t *testing.T) {
	cfg := &DevcontainerConfig{}
	reg := redact.New()
	ApplySecrets(cfg, map[string]string{"TOKEN": "s3kr3t-literal"}, reg)

	require.Equal(t, 1, reg.Count())
	require.Equal(t, "****", reg.Scrub("s3kr3t-literal"))
}

func TestLoadAndApplySecretsFiles_FirstFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.json")
	second := filepath.Join(dir, "second.json")
	require.NoError(t, os.WriteFile(first, []byte(`{"SHARED":"first","ONLY_FIRST":"a"}`), 0o644))
	require.NoError(t, os.WriteFile(second, []byte(`{"SHARED":"second","ONLY_SECOND":"b"}`), 0o644))

	cfg := &DevcontainerConfig{}
	reg := redact.New()
	err := LoadAndApplySecretsFiles(cfg, []string{first, second}, reg)
	require.NoError(t, err)

	require.Equal(t, "first", cfg.RemoteEnv["SHARED"])
	require.Equal(t, "a", cfg.RemoteEnv["ONLY_FIRST"])
	require.Equal(t, "b", cfg.RemoteEnv["ONLY_SECOND"])
	require.Equal(t, 4, reg.Count())
}

func TestLoadSecretsFile_MissingFileErrors(t *testing.T) {
	_, err := LoadSecretsFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
