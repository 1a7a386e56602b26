// Package featuremerge merges the features declared in devcontainer.json
// with features supplied on the CLI, then fetches metadata for the
// merged set under the OCI client's concurrency bound. Grounded on the
// teacher's internal/features package (the map-of-options feature model)
// and internal/oci's bounded concurrent fetch.
package featuremerge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/opencontainers/go-digest"

	"github.com/devctl/devctl/internal/features"
	"github.com/devctl/devctl/internal/lockfile"
	"github.com/devctl/devctl/internal/oci"
	"github.com/devctl/devctl/internal/xerrors"
)

// MergeInput holds the two feature sources and the flags controlling how
// they combine, per the core's CLI/config feature merge rules.
type MergeInput struct {
	// ConfigFeatures maps a (possibly tagged) feature id to its options,
	// as declared in devcontainer.json.
	ConfigFeatures map[string]map[string]features.OptionValue

	// CLIFeatures maps a (possibly tagged) feature id to its options, as
	// supplied on the command line. May be nil.
	CLIFeatures map[string]map[string]features.OptionValue

	// PreferCliFeatures makes the CLI's options win when both sources
	// declare the same canonical feature id.
	PreferCliFeatures bool

	// SkipFeatureAutoMapping, when true and CLIFeatures is non-empty,
	// drops the CLI features entirely rather than merging them.
	SkipFeatureAutoMapping bool
}

// MergeResult is the merged feature set plus any user-visible notices
// produced while merging (e.g. the auto-mapping skip notice).
type MergeResult struct {
	// Merged maps canonical feature id to its winning options: config
	// features first, then any CLI-only features, each group in
	// lexicographic order of the declared ids (the map-typed sources
	// carry no declaration order).
	Merged []MergedFeature
	Notices []string
}

// MergedFeature is one entry of a merged feature set, keyed by its
// canonical id with tag/digest stripped.
type MergedFeature struct {
	CanonicalID string
	Options     map[string]features.OptionValue
}

// Merge combines config and CLI features per the core's rules: CLI wins
// ties only when PreferCliFeatures is set, keys are canonicalized so
// "x:1" and "x" collide, and SkipFeatureAutoMapping drops CLI features
// outright (with a notice) rather than merging them.
func Merge(in MergeInput) MergeResult {
	var result MergeResult

	cli := in.CLIFeatures
	if in.SkipFeatureAutoMapping && len(in.CLIFeatures) > 0 {
		result.Notices = append(result.Notices,
			"skipFeatureAutoMapping is set: ignoring CLI-supplied features")
		cli = nil
	}

	order := make([]string, 0, len(in.ConfigFeatures)+len(cli))
	winning := make(map[string]map[string]features.OptionValue, len(in.ConfigFeatures)+len(cli))

	addInOrder := func(id string, opts map[string]features.OptionValue, overwrite bool) {
		canon := features.Canonicalize(id)
		if _, seen := winning[canon]; !seen {
			order = append(order, canon)
			winning[canon] = opts
			return
		}
		if overwrite {
			winning[canon] = opts
		}
	}

	sortedIDs := func(m map[string]map[string]features.OptionValue) []string {
		ids := make([]string, 0, len(m))
		for id := range m {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return ids
	}
	for _, id := range sortedIDs(in.ConfigFeatures) {
		addInOrder(id, in.ConfigFeatures[id], false)
	}
	for _, id := range sortedIDs(cli) {
		addInOrder(id, cli[id], in.PreferCliFeatures)
	}

	for _, id := range order {
		result.Merged = append(result.Merged, MergedFeature{CanonicalID: id, Options: winning[id]})
	}
	return result
}

// Resolved pairs a merged feature with its fetched metadata.
type Resolved struct {
	ID     string
	Source string
	// Path is the local, extracted cache directory holding the
	// feature's install.sh and devcontainer-feature.json.
	Path     string
	Options  map[string]features.OptionValue
	Metadata *features.FeatureMetadata

	// Ref is the parsed reference the feature was declared with,
	// carried through so lockfile generation can distinguish local,
	// OCI, and HTTP-tarball features.
	Ref features.FeatureRef

	// ManifestDigest is the OCI manifest digest the feature resolved
	// to. Empty for local and HTTP-tarball features.
	ManifestDigest digest.Digest
}

// FetchMetadata resolves metadata for every merged feature concurrently,
// with at most concurrency (clamped to [1,32]) resolutions in flight,
// then returns the results in the order of merged, not fetch-completion
// order.
func FetchMetadata(ctx context.Context, client *oci.Client, merged []MergedFeature, concurrency int) ([]Resolved, error) {
	refs := make([]features.FeatureRef, len(merged))
	for i, m := range merged {
		ref, err := features.ParseFeatureRef(m.CanonicalID)
		if err != nil {
			return nil, xerrors.FeatureParse(m.CanonicalID, err)
		}
		refs[i] = ref
	}

	resolved, err := client.ResolveAll(ctx, refs, concurrency)
	if err != nil {
		return nil, err
	}

	out := make([]Resolved, len(merged))
	for i, m := range merged {
		metadata, err := loadFeatureMetadata(resolved[i].Path)
		if err != nil {
			return nil, xerrors.FeatureParse(m.CanonicalID, err)
		}
		out[i] = Resolved{
			ID:             metadata.ID,
			Source:         refs[i].CanonicalID(),
			Path:           resolved[i].Path,
			Options:        m.Options,
			Metadata:       metadata,
			Ref:            refs[i],
			ManifestDigest: resolved[i].ManifestDigest,
		}
	}
	return out, nil
}

// BuildLockfile derives a devcontainer-lock.json document from a
// resolved, installed-order feature set. Local features are excluded
// per the lockfile format; HTTP tarball features are recorded by URL,
// OCI features by registry/repository/resource@digest.
func BuildLockfile(resolved []Resolved) *lockfile.Lockfile {
	lf := lockfile.New()

	for _, r := range resolved {
		if r.Ref.Type == features.RefTypeLocal {
			continue
		}

		var resolvedRef string
		switch r.Ref.Type {
		case features.RefTypeOCI:
			if r.ManifestDigest != "" {
				resolvedRef = fmt.Sprintf("%s/%s/%s@%s", r.Ref.Registry, r.Ref.Repository, r.Ref.Resource, r.ManifestDigest)
			} else {
				resolvedRef = r.Source
			}
		case features.RefTypeHTTP:
			resolvedRef = r.Source
		}

		version := ""
		var dependsOn []string
		if r.Metadata != nil {
			version = r.Metadata.Version
			dependsOn = dependencyIDs(r.Metadata.DependsOn)
		}

		lf.Set(r.ID, lockfile.LockedFeature{
			Version:   version,
			Resolved:  resolvedRef,
			Integrity: string(r.ManifestDigest),
			DependsOn: dependsOn,
		})
	}

	return lf
}

// dependencyIDs extracts and sorts the feature ids a dependsOn map
// names, matching the lockfile's deterministic dependsOn ordering.
func dependencyIDs(dependsOn []string) []string {
	if len(dependsOn) == 0 {
		return nil
	}
	deps := make([]string, len(dependsOn))
	copy(deps, dependsOn)
	sort.Strings(deps)
	return deps
}

// loadFeatureMetadata reads and parses a resolved feature's
// devcontainer-feature.json from its cache directory.
func loadFeatureMetadata(dir string) (*features.FeatureMetadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, "devcontainer-feature.json"))
	if err != nil {
		return nil, err
	}
	var metadata features.FeatureMetadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, err
	}
	return &metadata, nil
}
