package graph

import (
	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/project"
)

// Node is one evaluated project under one configuration.
type Node struct {
	configuration configmeta.Metadata
	instance      *project.Instance

	references     []*Node
	referenceSet   map[*Node]struct{}
	referencing    []*Node
	referencingSet map[*Node]struct{}
}

// NewNode creates a node with no edges.
func NewNode(configuration configmeta.Metadata, instance *project.Instance) *Node {
	return &Node{
		configuration:  configuration,
		instance:       instance,
		referenceSet:   make(map[*Node]struct{}),
		referencingSet: make(map[*Node]struct{}),
	}
}

// Configuration returns the identity the node was created for.
func (n *Node) Configuration() configmeta.Metadata { return n.configuration }

// ProjectInstance returns the evaluated project.
func (n *Node) ProjectInstance() *project.Instance { return n.instance }

// FullPath returns the path of the project file, as used in diagnostics.
func (n *Node) FullPath() string {
	if n.instance != nil && n.instance.FullPath() != "" {
		return n.instance.FullPath()
	}
	return n.configuration.ProjectFullPath()
}

// ProjectReferences returns the nodes this node references, in the order the
// edges were added.
func (n *Node) ProjectReferences() []*Node {
	return append([]*Node(nil), n.references...)
}

// ReferencingProjects returns the nodes that reference this node.
func (n *Node) ReferencingProjects() []*Node {
	return append([]*Node(nil), n.referencing...)
}

// AddProjectReference links n to reference. The edge item is recorded in
// edges under first-writer-wins semantics; adding an existing edge again
// keeps the original item. It is meant for edge assembly and
// Interpretation.PostProcess; once edges is frozen it does nothing.
func (n *Node) AddProjectReference(reference *Node, item *project.Item, edges *Edges) {
	if edges.Frozen() {
		return
	}
	if _, ok := n.referenceSet[reference]; !ok {
		n.referenceSet[reference] = struct{}{}
		n.references = append(n.references, reference)
	}
	if _, ok := reference.referencingSet[n]; !ok {
		reference.referencingSet[n] = struct{}{}
		reference.referencing = append(reference.referencing, n)
	}
	edges.Add(n, reference, item)
}

// RemoveReference unlinks n from reference and drops the edge. It reports
// whether the edge was removed, which never happens once edges is frozen.
func (n *Node) RemoveReference(reference *Node, edges *Edges) bool {
	if edges.Frozen() {
		return false
	}
	if _, ok := n.referenceSet[reference]; !ok {
		return false
	}
	delete(n.referenceSet, reference)
	n.references = without(n.references, reference)
	delete(reference.referencingSet, n)
	reference.referencing = without(reference.referencing, n)
	edges.Remove(n, reference)
	return true
}

func (n *Node) String() string {
	return n.configuration.String()
}

func without(nodes []*Node, drop *Node) []*Node {
	out := nodes[:0]
	for _, node := range nodes {
		if node != drop {
			out = append(out, node)
		}
	}
	return out
}
