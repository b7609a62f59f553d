package graph

import (
	"sync"

	"github.com/vk/projectgraph/internal/project"
)

type edgeKey struct {
	source *Node
	target *Node
}

// Edge is one directed reference together with the item that declared it.
type Edge struct {
	Source *Node
	Target *Node
	Item   *project.Item
}

// Edges maps (source, target) node pairs to the reference item that created
// the edge. At most one item is kept per ordered pair.
type Edges struct {
	mu     sync.RWMutex
	items  map[edgeKey]*project.Item
	order  []edgeKey
	frozen bool
}

// NewEdges returns an empty edge set.
func NewEdges() *Edges {
	return &Edges{items: make(map[edgeKey]*project.Item)}
}

// Add records item for the edge source -> target. It returns false and keeps
// the existing item when the edge is already present.
func (e *Edges) Add(source, target *Node, item *project.Item) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := edgeKey{source: source, target: target}
	if e.frozen {
		return false
	}
	if _, ok := e.items[key]; ok {
		return false
	}
	e.items[key] = item
	e.order = append(e.order, key)
	return true
}

// Get returns the item recorded for source -> target.
func (e *Edges) Get(source, target *Node) (*project.Item, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	item, ok := e.items[edgeKey{source: source, target: target}]
	return item, ok
}

// Has reports whether the edge source -> target exists.
func (e *Edges) Has(source, target *Node) bool {
	_, ok := e.Get(source, target)
	return ok
}

// Remove deletes the edge and reports whether it existed.
func (e *Edges) Remove(source, target *Node) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := edgeKey{source: source, target: target}
	if e.frozen {
		return false
	}
	if _, ok := e.items[key]; !ok {
		return false
	}
	delete(e.items, key)
	for i, k := range e.order {
		if k == key {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	return true
}

// Freeze makes the edge set and the nodes linked through it read-only. Later
// Add and Remove calls, and node reference changes made with this set, do
// nothing.
func (e *Edges) Freeze() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.frozen = true
}

// Frozen reports whether Freeze has been called.
func (e *Edges) Frozen() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.frozen
}

// Len returns the number of edges.
func (e *Edges) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// All returns every edge in insertion order.
func (e *Edges) All() []Edge {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Edge, 0, len(e.order))
	for _, k := range e.order {
		out = append(out, Edge{Source: k.source, Target: k.target, Item: e.items[k]})
	}
	return out
}
