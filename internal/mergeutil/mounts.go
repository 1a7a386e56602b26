// Package mergeutil combines the mount, security, and entrypoint
// settings declared across a base devcontainer.json and its resolved
// feature set into the single set of options a container create/start
// call needs. Grounded on internal/devcontainer.Mount and
// internal/features.FeatureMount (both already parse string-or-object
// mount specs the same way), with the merge logic written as reusable,
// order-preserving functions.
package mergeutil

import (
	"github.com/devctl/devctl/internal/devcontainer"
	"github.com/devctl/devctl/internal/features"
)

// MergeMounts unions the base configuration's mounts with every
// feature's declared mounts, in declaration order, deduping by mount
// target (or by raw string for mounts that aren't object-shaped) so a
// later source re-declaring the same target is dropped rather than
// creating a duplicate bind.
func MergeMounts(base []devcontainer.Mount, featureMounts [][]features.FeatureMount) []devcontainer.Mount {
	seen := make(map[string]bool)
	var out []devcontainer.Mount

	key := func(target, raw string) string {
		if target != "" {
			return "target:" + target
		}
		return "raw:" + raw
	}

	for _, m := range base {
		k := key(m.Target, m.Raw)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, m)
	}

	for _, mounts := range featureMounts {
		for _, fm := range mounts {
			k := key(fm.Target, fm.Raw)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, devcontainer.Mount{
				Source: fm.Source,
				Target: fm.Target,
				Type:   fm.Type,
				Raw:    fm.Raw,
			})
		}
	}

	return out
}
