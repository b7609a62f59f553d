// Package project holds the evaluated view of a single project file and the
// factory contract used to produce it.
package project

import (
	"context"
	"strings"

	"github.com/vk/projectgraph/internal/properties"
)

// ProjectReferenceItemType is the item type that declares a project-to-project
// reference.
const ProjectReferenceItemType = "ProjectReference"

// Factory evaluates the project file at path under the given global
// properties. Implementations must be safe for concurrent use. The evaluation
// context is shared by every evaluation of a single graph build.
type Factory func(ctx context.Context, path string, globalProperties *properties.Map, evalCtx *EvaluationContext) (*Instance, error)

// Item is a typed entry declared by a project, such as a ProjectReference.
// Metadata names are case-insensitive.
type Item struct {
	Type     string
	Include  string
	metadata *properties.Map
}

// NewItem creates an item. metadata is copied.
func NewItem(itemType, include string, metadata *properties.Map) *Item {
	return &Item{Type: itemType, Include: include, metadata: metadata.Clone()}
}

// Metadata returns the value of the named metadata, or "" when absent.
func (i *Item) Metadata(name string) string {
	if i == nil {
		return ""
	}
	v, _ := i.metadata.Get(name)
	return v
}

// HasMetadata reports whether the named metadata is declared, even if empty.
func (i *Item) HasMetadata(name string) bool {
	return i != nil && i.metadata.Has(name)
}

// MetadataNames returns the declared metadata names in declaration order.
func (i *Item) MetadataNames() []string {
	if i == nil {
		return nil
	}
	return i.metadata.Keys()
}

func (i *Item) String() string {
	if i == nil {
		return "<nil>"
	}
	return i.Type + "(" + i.Include + ")"
}

// Instance is an evaluated project.
type Instance struct {
	fullPath         string
	globalProperties *properties.Map
	properties       *properties.Map
	items            []*Item
}

// NewInstance creates an Instance. The property maps are copied; items are
// kept in declaration order.
func NewInstance(fullPath string, globalProperties, props *properties.Map, items []*Item) *Instance {
	return &Instance{
		fullPath:         fullPath,
		globalProperties: globalProperties.Clone(),
		properties:       props.Clone(),
		items:            append([]*Item(nil), items...),
	}
}

// FullPath returns the absolute path of the project file.
func (p *Instance) FullPath() string { return p.fullPath }

// GlobalProperties returns a copy of the global properties the project was
// evaluated under.
func (p *Instance) GlobalProperties() *properties.Map { return p.globalProperties.Clone() }

// Property returns the evaluated value of name. Global properties take
// precedence over values declared in the project file.
func (p *Instance) Property(name string) string {
	if v, ok := p.globalProperties.Get(name); ok {
		return v
	}
	v, _ := p.properties.Get(name)
	return v
}

// Properties returns a copy of the properties declared in the project file.
func (p *Instance) Properties() *properties.Map { return p.properties.Clone() }

// Items returns the items of the given type in declaration order. The type
// comparison is case-insensitive.
func (p *Instance) Items(itemType string) []*Item {
	var out []*Item
	for _, it := range p.items {
		if strings.EqualFold(it.Type, itemType) {
			out = append(out, it)
		}
	}
	return out
}

// AllItems returns every item in declaration order.
func (p *Instance) AllItems() []*Item {
	return append([]*Item(nil), p.items...)
}
