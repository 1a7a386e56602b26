package mergeutil

import "github.com/devctl/devctl/internal/features"

// SecuritySpec is the subset of container security settings a
// devcontainer.json or a feature's metadata can contribute.
type SecuritySpec struct {
	CapAdd      []string
	SecurityOpt []string
	Privileged  bool
	Init        bool
}

// SecurityFromMetadata extracts the security-relevant fields from a
// feature's devcontainer-feature.json.
func SecurityFromMetadata(md *features.FeatureMetadata) SecuritySpec {
	if md == nil {
		return SecuritySpec{}
	}
	return SecuritySpec{
		CapAdd:      md.CapAdd,
		SecurityOpt: md.SecurityOpt,
		Privileged:  md.Privileged,
		Init:        md.Init,
	}
}

// MergeSecurity unions CapAdd and SecurityOpt across base and every
// feature's spec, preserving first-seen order and deduping exact
// duplicates; Privileged and Init are true if any source sets them,
// since a feature asking for privileged mode cannot be downgraded by a
// feature that doesn't need it.
func MergeSecurity(base SecuritySpec, featureSpecs []SecuritySpec) SecuritySpec {
	merged := SecuritySpec{Privileged: base.Privileged, Init: base.Init}
	merged.CapAdd = unionStrings(base.CapAdd, featureSpecs, func(s SecuritySpec) []string { return s.CapAdd })
	merged.SecurityOpt = unionStrings(base.SecurityOpt, featureSpecs, func(s SecuritySpec) []string { return s.SecurityOpt })

	for _, spec := range featureSpecs {
		if spec.Privileged {
			merged.Privileged = true
		}
		if spec.Init {
			merged.Init = true
		}
	}
	return merged
}

func unionStrings(base []string, specs []SecuritySpec, pick func(SecuritySpec) []string) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(vals []string) {
		for _, v := range vals {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	add(base)
	for _, spec := range specs {
		add(pick(spec))
	}
	return out
}
