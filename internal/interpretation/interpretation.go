// Package interpretation decides what a project's references mean: which
// files they point at and which global properties each referenced project
// is evaluated under.
package interpretation

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/ctxlog"
	"github.com/vk/projectgraph/internal/graph"
	"github.com/vk/projectgraph/internal/project"
	"github.com/vk/projectgraph/internal/properties"
)

// Reference item metadata names.
const (
	MetadataProperties               = "Properties"
	MetadataAdditionalProperties     = "AdditionalProperties"
	MetadataUndefineProperties       = "UndefineProperties"
	MetadataGlobalPropertiesToRemove = "GlobalPropertiesToRemove"
	MetadataSetConfiguration         = "SetConfiguration"
	MetadataSetPlatform              = "SetPlatform"
	MetadataSetTargetFramework       = "SetTargetFramework"
	// MetadataBuildReference set to false keeps the referenced project in
	// the graph but drops the edge in PostProcess.
	MetadataBuildReference = "BuildReference"
	// MetadataSynthetic marks edges added by PostProcess.
	MetadataSynthetic = "Synthetic"
)

// AddTransitiveReferencesProperty opts a project into synthetic edges to
// everything it references transitively.
const AddTransitiveReferencesProperty = "AddTransitiveProjectReferencesInStaticGraph"

// Interpretation extracts references from evaluated projects and may adjust
// the assembled graph before it is validated.
type Interpretation interface {
	// GetReferences returns the declared references of p in declaration
	// order.
	GetReferences(ctx context.Context, p *project.Instance) ([]graph.ReferenceInfo, error)
	// PostProcess runs once after all edges are assembled and before cycle
	// detection.
	PostProcess(ctx context.Context, parsed map[configmeta.Key]*graph.ParsedProject, edges *graph.Edges) error
}

// Default reads ProjectReference items.
type Default struct{}

var _ Interpretation = Default{}

// GetReferences implements Interpretation.
func (Default) GetReferences(ctx context.Context, p *project.Instance) ([]graph.ReferenceInfo, error) {
	items := p.Items(project.ProjectReferenceItemType)
	refs := make([]graph.ReferenceInfo, 0, len(items))
	for _, item := range items {
		include := strings.TrimSpace(item.Include)
		if include == "" {
			return nil, fmt.Errorf("project %s declares a %s with an empty include", p.FullPath(), project.ProjectReferenceItemType)
		}
		target := include
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(p.FullPath()), target)
		}
		refs = append(refs, graph.ReferenceInfo{
			ReferenceConfiguration: configmeta.New(target, ReferenceGlobalProperties(p.GlobalProperties(), item)),
			ProjectReferenceItem:   item,
		})
	}
	ctxlog.FromContext(ctx).Debug("Interpretation: References extracted.", "project", p.FullPath(), "count", len(refs))
	return refs, nil
}

// ReferenceGlobalProperties derives the global properties of a referenced
// project from the referencing project's global properties and the metadata
// of the reference item:
//
//  1. GlobalPropertiesToRemove are removed.
//  2. Properties are applied. When Properties is blank, SetConfiguration,
//     SetPlatform and SetTargetFramework are applied instead.
//  3. AdditionalProperties are applied.
//  4. UndefineProperties are removed.
func ReferenceGlobalProperties(requester *properties.Map, item *project.Item) *properties.Map {
	out := requester.Clone()

	for _, name := range properties.SplitNames(item.Metadata(MetadataGlobalPropertiesToRemove)) {
		out.Remove(name)
	}

	props := item.Metadata(MetadataProperties)
	if strings.TrimSpace(props) == "" {
		props = strings.Join([]string{
			item.Metadata(MetadataSetConfiguration),
			item.Metadata(MetadataSetPlatform),
			item.Metadata(MetadataSetTargetFramework),
		}, ";")
	}
	merge(out, properties.ParseList(props))
	merge(out, properties.ParseList(item.Metadata(MetadataAdditionalProperties)))

	for _, name := range properties.SplitNames(item.Metadata(MetadataUndefineProperties)) {
		out.Remove(name)
	}
	return out
}

func merge(into, from *properties.Map) {
	for _, k := range from.Keys() {
		v, _ := from.Get(k)
		into.Set(k, v)
	}
}

// PostProcess implements Interpretation. Edges whose reference item sets
// BuildReference to false are dropped first. Projects that set
// AddTransitiveProjectReferencesInStaticGraph to true then get a synthetic
// edge to every project they reference indirectly.
func (Default) PostProcess(ctx context.Context, parsed map[configmeta.Key]*graph.ParsedProject, edges *graph.Edges) error {
	logger := ctxlog.FromContext(ctx)

	keys := make([]configmeta.Key, 0, len(parsed))
	for k := range parsed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	pruned := 0
	for _, k := range keys {
		node := parsed[k].Node
		for _, ref := range node.ProjectReferences() {
			item, ok := edges.Get(node, ref)
			if !ok || !strings.EqualFold(strings.TrimSpace(item.Metadata(MetadataBuildReference)), "false") {
				continue
			}
			if node.RemoveReference(ref, edges) {
				pruned++
			}
		}
	}
	if pruned > 0 {
		logger.Debug("Interpretation: Dropped non-build references.", "count", pruned)
	}

	added := 0
	for _, k := range keys {
		node := parsed[k].Node
		if !strings.EqualFold(node.ProjectInstance().Property(AddTransitiveReferencesProperty), "true") {
			continue
		}

		direct := make(map[*graph.Node]bool)
		for _, ref := range node.ProjectReferences() {
			direct[ref] = true
		}
		for _, t := range transitiveReferences(node) {
			if direct[t] || t == node {
				continue
			}
			meta := &properties.Map{}
			meta.Set(MetadataSynthetic, "true")
			node.AddProjectReference(t, project.NewItem(project.ProjectReferenceItemType, t.FullPath(), meta), edges)
			added++
		}
	}

	if added > 0 {
		logger.Debug("Interpretation: Added transitive references.", "count", added)
	}
	return nil
}

// transitiveReferences returns every node reachable from n in depth-first
// order, excluding n itself. Cycles are tolerated; cycle detection reports
// them later.
func transitiveReferences(n *graph.Node) []*graph.Node {
	visited := map[*graph.Node]bool{n: true}
	var out []*graph.Node

	var walk func(*graph.Node)
	walk = func(cur *graph.Node) {
		for _, ref := range cur.ProjectReferences() {
			if visited[ref] {
				continue
			}
			visited[ref] = true
			out = append(out, ref)
			walk(ref)
		}
	}
	walk(n)
	return out
}
