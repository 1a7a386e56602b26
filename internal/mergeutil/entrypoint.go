package mergeutil

import (
	"fmt"
	"strings"
)

// EntrypointWrapperPath is where a generated chaining wrapper script is
// bind-mounted into the container when more than one entrypoint needs
// to run.
const EntrypointWrapperPath = "/usr/local/share/devcontainer-entrypoint-chain.sh"

// EntrypointChain is the result of reconciling the base container's
// entrypoint with every feature's declared entrypoint.
type EntrypointChain struct {
	// Entrypoint is what the container should actually be started with.
	Entrypoint []string
	// WrapperScript is non-empty when two or more entrypoints must run
	// in sequence; its content should be written to a file bind-mounted
	// at WrapperPath and set as the container's entrypoint.
	WrapperScript string
	// WrapperPath is EntrypointWrapperPath, echoed here for callers that
	// only look at the result.
	WrapperPath string
}

// BuildEntrypointChain reconciles a base entrypoint (from
// devcontainer.json, may be empty) with the entrypoints declared by
// features, in feature install order. It has three outcomes:
//
//   - no entrypoints at all: the container's own (image) entrypoint is
//     left untouched.
//   - exactly one entrypoint (base's or a single feature's): that one
//     is used directly, with no wrapper needed.
//   - two or more: a wrapper script is generated that runs each
//     entrypoint in turn, each to completion, and then execs the
//     container's command ("$@"), replacing the wrapper process.
func BuildEntrypointChain(baseEntrypoint string, featureEntrypoints []string) EntrypointChain {
	var chain []string
	if baseEntrypoint != "" {
		chain = append(chain, baseEntrypoint)
	}
	for _, ep := range featureEntrypoints {
		if ep != "" {
			chain = append(chain, ep)
		}
	}

	switch len(chain) {
	case 0:
		return EntrypointChain{}
	case 1:
		return EntrypointChain{Entrypoint: []string{"/bin/sh", "-c", chain[0]}}
	default:
		return EntrypointChain{
			Entrypoint:    []string{"/bin/sh", EntrypointWrapperPath},
			WrapperScript: renderWrapperScript(chain),
			WrapperPath:   EntrypointWrapperPath,
		}
	}
}

// renderWrapperScript builds a POSIX shell script that runs every
// entrypoint in turn, each to completion, and then execs the
// container's command ("$@") so it replaces the wrapper process.
func renderWrapperScript(chain []string) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\nset -e\n")
	for _, ep := range chain {
		fmt.Fprintf(&b, "%s\n", ep)
	}
	b.WriteString("exec \"$@\"\n")
	return b.String()
}
