package config

import (
	"fmt"
	"path/filepath"

	"dario.cat/mergo"
)

// ResolveExtends walks cfg's extends chain (paths relative to dir, the
// directory containing the devcontainer.json cfg was parsed from),
// merging each referenced config in as a base layer with cfg's own
// fields taking precedence, then returns the flattened result. Extends
// chains may be nested: a parent's own extends entries are resolved
// relative to the parent's own directory before being merged in turn.
//
// Scalar fields follow override-wins: the more derived config's
// explicit value replaces the base's. Slice fields that accumulate
// rather than replace (Mounts, RunArgs, CapAdd, SecurityOpt) are
// appended base-then-derived instead, since a child's mounts or run
// args are additions to its parent's, not a replacement of them.
// ContainerEnv/RemoteEnv are merged key-by-key with the derived
// config's values winning on conflict.
func ResolveExtends(cfg *DevcontainerConfig, dir string) (*DevcontainerConfig, error) {
	return resolveExtends(cfg, dir, map[string]bool{})
}

// MergeLayers folds layers onto each other left-to-right into a single
// config, using the same merge semantics extends resolution uses:
// scalar/pointer/map fields override, Mounts/RunArgs/CapAdd/SecurityOpt
// accumulate, and ContainerEnv/RemoteEnv overlay per key. Nil layers
// are skipped. Used to combine a base config, an override config, and
// any further ad-hoc layers (e.g. CLI overrides) into one effective
// config for the merged-configuration-with-provenance view.
func MergeLayers(layers ...*DevcontainerConfig) (*DevcontainerConfig, error) {
	merged := &DevcontainerConfig{}
	for _, l := range layers {
		if l == nil {
			continue
		}
		if err := mergeConfigInto(merged, l); err != nil {
			return nil, err
		}
	}
	return merged, nil
}

func resolveExtends(cfg *DevcontainerConfig, dir string, visiting map[string]bool) (*DevcontainerConfig, error) {
	paths := extendsPaths(cfg)
	if len(paths) == 0 {
		return cfg, nil
	}

	merged := &DevcontainerConfig{}
	for _, rel := range paths {
		path := filepath.Clean(ResolveRelativePath(dir, rel))
		if visiting[path] {
			return nil, fmt.Errorf("extends cycle detected at %s", path)
		}

		parent, err := ParseFile(path)
		if err != nil {
			return nil, fmt.Errorf("resolving extends %q: %w", rel, err)
		}

		visiting[path] = true
		parent, err = resolveExtends(parent, filepath.Dir(path), visiting)
		delete(visiting, path)
		if err != nil {
			return nil, err
		}

		if err := mergeConfigInto(merged, parent); err != nil {
			return nil, fmt.Errorf("merging extends %q: %w", rel, err)
		}
	}

	if err := mergeConfigInto(merged, cfg); err != nil {
		return nil, err
	}
	merged.Extends = nil
	merged.SetRawJSON(cfg.GetRawJSON())
	return merged, nil
}

// mergeConfigInto merges src on top of dst in place, with src's
// explicit fields taking precedence over dst's (dst is the
// accumulated base, src the more derived layer).
func mergeConfigInto(dst, src *DevcontainerConfig) error {
	baseMounts := append([]Mount(nil), dst.Mounts...)
	baseRunArgs := append([]string(nil), dst.RunArgs...)
	baseCapAdd := append([]string(nil), dst.CapAdd...)
	baseSecurityOpt := append([]string(nil), dst.SecurityOpt...)
	baseContainerEnv := copyStringMap(dst.ContainerEnv)
	baseRemoteEnv := copyStringMap(dst.RemoteEnv)

	if err := mergo.Merge(dst, src, mergo.WithOverride); err != nil {
		return err
	}

	dst.Mounts = appendUniqueMounts(baseMounts, src.Mounts)
	dst.RunArgs = append(baseRunArgs, src.RunArgs...)
	dst.CapAdd = appendUniqueStrings(baseCapAdd, src.CapAdd)
	dst.SecurityOpt = appendUniqueStrings(baseSecurityOpt, src.SecurityOpt)
	dst.ContainerEnv = mergeStringMaps(baseContainerEnv, src.ContainerEnv)
	dst.RemoteEnv = mergeStringMaps(baseRemoteEnv, src.RemoteEnv)

	return nil
}

func extendsPaths(cfg *DevcontainerConfig) []string {
	switch v := cfg.Extends.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	default:
		return nil
	}
}

func appendUniqueMounts(base, more []Mount) []Mount {
	seen := make(map[string]bool, len(base))
	key := func(m Mount) string {
		if m.Raw != "" {
			return "raw:" + m.Raw
		}
		return "target:" + m.Target
	}
	out := make([]Mount, 0, len(base)+len(more))
	for _, m := range base {
		seen[key(m)] = true
		out = append(out, m)
	}
	for _, m := range more {
		k := key(m)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}
	return out
}

func appendUniqueStrings(base, more []string) []string {
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(more))
	for _, s := range base {
		seen[s] = true
		out = append(out, s)
	}
	for _, s := range more {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func copyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mergeStringMaps(base, overlay map[string]string) map[string]string {
	if base == nil && overlay == nil {
		return nil
	}
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
