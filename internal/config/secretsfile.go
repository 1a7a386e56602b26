package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/devctl/devctl/internal/redact"
)

// LoadSecretsFile reads a secrets file (a flat JSON object of string keys
// to string values, as produced by `docker login`-style credential
// helpers or hand-written for CI) from path.
func LoadSecretsFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading secrets file %s: %w", path, err)
	}

	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing secrets file %s: %w", path, err)
	}
	return values, nil
}

// ApplySecrets merges secrets into cfg.RemoteEnv without overriding any
// key the config itself already set explicitly, and registers every
// secret value with reg so it is scrubbed out of subsequent logs and
// output. A nil reg skips redaction registration (used in tests that
// don't care about it).
func ApplySecrets(cfg *DevcontainerConfig, secrets map[string]string, reg *redact.Registry) {
	if len(secrets) == 0 {
		return
	}
	if cfg.RemoteEnv == nil {
		cfg.RemoteEnv = make(map[string]string, len(secrets))
	}

	for name, value := range secrets {
		if reg != nil {
			reg.Register(value)
		}
		if _, explicit := cfg.RemoteEnv[name]; explicit {
			continue
		}
		cfg.RemoteEnv[name] = value
	}
}

// LoadAndApplySecretsFiles loads each secrets file in paths, in order,
// and applies them to cfg. Earlier files in paths do not override
// explicit remoteEnv entries; later files in paths also do not override
// values contributed by earlier files, matching the "never override an
// explicit remoteEnv entry" rule applied cumulatively across files.
func LoadAndApplySecretsFiles(cfg *DevcontainerConfig, paths []string, reg *redact.Registry) error {
	for _, path := range paths {
		secrets, err := LoadSecretsFile(path)
		if err != nil {
			return err
		}
		ApplySecrets(cfg, secrets, reg)
	}
	return nil
}
