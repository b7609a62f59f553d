package graph

import (
	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/project"
)

// ReferenceInfo is one declared reference before it is resolved to a node.
type ReferenceInfo struct {
	ReferenceConfiguration configmeta.Metadata
	ProjectReferenceItem   *project.Item
}

// ParsedProject is the result of parsing one configuration: its fresh node
// and the references it declared.
type ParsedProject struct {
	Configuration configmeta.Metadata
	Node          *Node
	References    []ReferenceInfo
}

// Graph is a fully built, cycle-free project graph.
type Graph struct {
	// ProjectNodes holds every node, ordered by path and then configuration.
	ProjectNodes []*Node
	// EntryPointNodes are the nodes of the entry point configurations, in
	// entry point order.
	EntryPointNodes []*Node
	// RootNodes are the entry point nodes nothing references.
	RootNodes []*Node
	Edges     *Edges
}

// FindNodes returns every node whose project path matches path after
// normalization. One path may be present under several configurations.
func (g *Graph) FindNodes(path string) []*Node {
	normalized := configmeta.NormalizePath(path)
	var out []*Node
	for _, n := range g.ProjectNodes {
		if n.Configuration().ProjectFullPath() == normalized {
			out = append(out, n)
		}
	}
	return out
}

// FindNode returns the node for the exact configuration.
func (g *Graph) FindNode(cfg configmeta.Metadata) (*Node, bool) {
	for _, n := range g.ProjectNodes {
		if n.Configuration().Equal(cfg) {
			return n, true
		}
	}
	return nil, false
}

// ProjectNodesTopologicallySorted orders the nodes so that every node comes
// after all the nodes it references.
func (g *Graph) ProjectNodesTopologicallySorted() []*Node {
	visited := make(map[*Node]bool, len(g.ProjectNodes))
	sorted := make([]*Node, 0, len(g.ProjectNodes))

	var visit func(n *Node)
	visit = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		for _, ref := range n.references {
			visit(ref)
		}
		sorted = append(sorted, n)
	}

	for _, n := range g.ProjectNodes {
		visit(n)
	}
	return sorted
}
