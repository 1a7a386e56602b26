// Package depgraph builds the feature installation dependency graph and
// derives a deterministic topological install order from it. Grounded on
// the brig example's BuildFeaturesInstallationGraph and its lifecycle
// root-peeling loop (internal/brig/features.go, internal/brig/lifecycle.go),
// generalized so both dependsOn and installsAfter are topological
// constraints, per this core's dependency model.
package depgraph

import (
	"sort"

	"github.com/heimdalr/dag"

	"github.com/devctl/devctl/internal/xerrors"
)

// Node is a single feature's dependency declaration, keyed by its
// canonicalized feature id (tag/digest stripped).
type Node struct {
	ID string

	// DependsOn lists feature ids that must be installed before this one
	// and must be resolved as part of the same installation (hard edges).
	// Referencing an unknown id is an error.
	DependsOn []string

	// InstallsAfter lists feature ids that must be installed before this
	// one, if and only if they are also present in the graph (soft
	// edges). Referencing an id absent from the graph is ignored.
	InstallsAfter []string
}

// Graph is a built, cycle-free feature dependency graph with a
// deterministic topological install order.
type Graph struct {
	order []string
}

// Order returns the deterministic install order: a topological ordering of
// feature ids consistent with every dependsOn/installsAfter edge, with
// ties broken by declaration order and then by canonical id.
func (g *Graph) Order() []string {
	return append([]string(nil), g.order...)
}

type edge struct{ from, to string }

// Build constructs the dependency graph for nodes and computes its
// install order. overrideOrder, if non-empty, is a full or partial
// ordering of feature ids (e.g. from devcontainer.json's
// overrideFeatureInstallOrder) that takes priority over the default
// tie-break whenever it does not contradict a hard topological
// constraint.
func Build(nodes []Node, overrideOrder []string) (*Graph, error) {
	declIndex := make(map[string]int, len(nodes))
	known := make(map[string]struct{}, len(nodes))
	for i, n := range nodes {
		declIndex[n.ID] = i
		known[n.ID] = struct{}{}
	}

	var edges []edge
	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, ok := known[dep]; !ok {
				return nil, xerrors.InvalidDependency(n.ID, dep)
			}
			edges = append(edges, edge{from: dep, to: n.ID})
		}
		for _, dep := range n.InstallsAfter {
			if _, ok := known[dep]; !ok {
				continue
			}
			edges = append(edges, edge{from: dep, to: n.ID})
		}
	}

	adj := make(map[string][]string, len(nodes))
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
	}

	if cycle := findCycle(nodes, adj); cycle != nil {
		return nil, xerrors.DependencyCycle(cycle)
	}

	overrideRank := make(map[string]int, len(overrideOrder))
	for i, id := range overrideOrder {
		overrideRank[id] = i
	}
	if err := validateOverride(overrideRank, edges); err != nil {
		return nil, err
	}

	d := dag.NewDAG()
	for _, n := range nodes {
		if err := d.AddVertexByID(n.ID, n.ID); err != nil {
			return nil, xerrors.Internal("building feature dependency graph", err)
		}
	}
	for _, e := range edges {
		if err := d.AddEdge(e.from, e.to); err != nil {
			return nil, xerrors.Internal("adding feature dependency edge", err)
		}
	}

	less := func(a, b string) bool {
		ra, hasA := overrideRank[a]
		rb, hasB := overrideRank[b]
		switch {
		case hasA && hasB:
			if ra != rb {
				return ra < rb
			}
		case hasA && !hasB:
			return true
		case !hasA && hasB:
			return false
		}
		if declIndex[a] != declIndex[b] {
			return declIndex[a] < declIndex[b]
		}
		return a < b
	}

	var order []string
	for {
		roots := d.GetRoots()
		if len(roots) == 0 {
			break
		}
		ids := make([]string, 0, len(roots))
		for id := range roots {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return less(ids[i], ids[j]) })

		next := ids[0]
		order = append(order, next)
		if err := d.DeleteVertex(next); err != nil {
			return nil, xerrors.Internal("walking feature dependency graph", err)
		}
	}

	return &Graph{order: order}, nil
}

// findCycle runs an iterative DFS over adj in declaration order and
// returns the participant chain of the first cycle found, or nil if the
// graph is acyclic.
func findCycle(nodes []Node, adj map[string][]string) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		stack = append(stack, id)
		for _, next := range adj[id] {
			switch color[next] {
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			case gray:
				start := 0
				for i, s := range stack {
					if s == next {
						start = i
						break
					}
				}
				cycle := append([]string(nil), stack[start:]...)
				return append(cycle, next)
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for _, n := range nodes {
		if color[n.ID] == white {
			if cycle := visit(n.ID); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// validateOverride rejects an override ordering that places a dependent
// before one of its hard or soft dependencies.
func validateOverride(rank map[string]int, edges []edge) error {
	if len(rank) == 0 {
		return nil
	}
	for _, e := range edges {
		ri, iok := rank[e.from]
		rj, jok := rank[e.to]
		if iok && jok && ri >= rj {
			return xerrors.Newf(xerrors.CategoryValidation, xerrors.CodeOverrideOrder,
				"overrideFeatureInstallOrder places %s before %s, but %s must install first",
				e.to, e.from, e.from).
				WithContext("before", e.to).
				WithContext("after", e.from)
		}
	}
	return nil
}
