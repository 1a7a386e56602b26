// Package mergedconfig produces the enriched "merged configuration"
// view of an invocation: the effective devcontainer config folded from
// its layers, which layer contributed each field, the resolved feature
// set in installation order, and the label sets read off the image and
// container by the runtime's inspect verb.
package mergedconfig

import (
	"encoding/json"
	"fmt"

	"github.com/devctl/devctl/internal/config"
	"github.com/devctl/devctl/internal/featuremerge"
)

// Layer is one contributor to the effective config, named for display
// in provenance output (e.g. "base", "extends:devcontainer.base.json",
// "cli-override", "secrets").
type Layer struct {
	Name   string
	Config *config.DevcontainerConfig
}

// MergedConfig is the enriched, caller-facing result of layering and
// resolving a devcontainer invocation's configuration.
type MergedConfig struct {
	// Config is the effective, fully-merged configuration.
	Config *config.DevcontainerConfig

	// Provenance maps a top-level devcontainer.json field name to the
	// name of the last layer that set it.
	Provenance map[string]string

	// Features is the resolved feature set in installation order.
	Features []featuremerge.Resolved

	// ImageLabels are the labels read off the built/pulled image via
	// the runtime's inspect verb.
	ImageLabels map[string]string

	// ContainerLabels are the labels read off the running container
	// via the runtime's inspect verb (empty before the container
	// exists, e.g. during planning).
	ContainerLabels map[string]string
}

// Build folds layers in order into one effective config, tracks which
// layer contributed each top-level field, and packages the result with
// the already-resolved feature set (installation order preserved) and
// the image/container label sets.
func Build(layers []Layer, features []featuremerge.Resolved, imageLabels, containerLabels map[string]string) (*MergedConfig, error) {
	configs := make([]*config.DevcontainerConfig, len(layers))
	for i, l := range layers {
		configs[i] = l.Config
	}
	merged, err := config.MergeLayers(configs...)
	if err != nil {
		return nil, fmt.Errorf("merging config layers: %w", err)
	}

	provenance := map[string]string{}
	for _, l := range layers {
		if l.Config == nil {
			continue
		}
		fields, err := topLevelFields(l.Config)
		if err != nil {
			return nil, fmt.Errorf("computing provenance for layer %q: %w", l.Name, err)
		}
		for field := range fields {
			provenance[field] = l.Name
		}
	}

	return &MergedConfig{
		Config:          merged,
		Provenance:      provenance,
		Features:        features,
		ImageLabels:     imageLabels,
		ContainerLabels: containerLabels,
	}, nil
}

// topLevelFields marshals cfg and returns the set of top-level JSON
// keys it serialized with a non-zero value (omitempty drops the rest),
// i.e. the fields this particular layer actually contributed.
func topLevelFields(cfg *config.DevcontainerConfig) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
