// Package outputs maps output-producing nodes to the variable names their
// artifacts are reported under.
package outputs

import (
	"fmt"

	"github.com/dukex/oneapi/pkg/graph"
	"github.com/dukex/oneapi/pkg/marker"
)

// Registry maps node id to variable name.
type Registry map[string]string

// Variable returns the variable for a node, falling back to the node id.
func (r Registry) Variable(nodeID string) string {
	if variable, ok := r[nodeID]; ok {
		return variable
	}

	return nodeID
}

// Register scans every node title for output markers. When eligibleTypes is
// non-empty only nodes of those class types are registered; every eligible
// node without a marker is registered under its own id. A malformed output
// marker on any node fails the whole registration, eligible or not.
func Register(g graph.LinearGraph, eligibleTypes []string) (Registry, error) {
	eligible := make(map[string]struct{}, len(eligibleTypes))
	for _, t := range eligibleTypes {
		eligible[t] = struct{}{}
	}

	registry := make(Registry, len(g))

	for _, id := range g.IDs() {
		node := g[id]
		if node == nil {
			continue
		}

		directives, err := marker.Parse(node.Meta.Title)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}

		if len(eligible) > 0 {
			if _, ok := eligible[node.ClassType]; !ok {
				continue
			}
		}

		if variable, ok := directives.Output(); ok {
			registry[id] = variable

			continue
		}

		registry[id] = id
	}

	return registry, nil
}
