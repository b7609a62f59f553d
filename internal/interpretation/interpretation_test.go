package interpretation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/graph"
	"github.com/vk/projectgraph/internal/project"
	"github.com/vk/projectgraph/internal/properties"
)

func reference(include string, meta map[string]string) *project.Item {
	return project.NewItem(project.ProjectReferenceItemType, include, properties.New(meta))
}

func TestReferenceGlobalProperties(t *testing.T) {
	requester := properties.New(map[string]string{
		"Configuration":   "Debug",
		"IsGraphBuild":    "true",
		"TargetFramework": "net8.0",
	})

	testCases := []struct {
		name string
		meta map[string]string
		want map[string]string
	}{
		{
			name: "inherits requester properties",
			want: map[string]string{"Configuration": "Debug", "IsGraphBuild": "true", "TargetFramework": "net8.0"},
		},
		{
			name: "set metadata applies when properties is blank",
			meta: map[string]string{
				"SetConfiguration":         "Configuration=Release",
				"SetPlatform":              "Platform=x64",
				"GlobalPropertiesToRemove": "TargetFramework",
			},
			want: map[string]string{"Configuration": "Release", "IsGraphBuild": "true", "Platform": "x64"},
		},
		{
			name: "properties supersede set metadata",
			meta: map[string]string{
				"Properties":       "Flavor=fast",
				"SetConfiguration": "Configuration=Release",
			},
			want: map[string]string{"Configuration": "Debug", "Flavor": "fast", "IsGraphBuild": "true", "TargetFramework": "net8.0"},
		},
		{
			name: "additional properties then undefine",
			meta: map[string]string{
				"AdditionalProperties": "Extra=1;Flavor=slow",
				"UndefineProperties":   "Flavor;configuration",
			},
			want: map[string]string{"Extra": "1", "IsGraphBuild": "true", "TargetFramework": "net8.0"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ReferenceGlobalProperties(requester, reference("lib.proj.hcl", tc.meta))
			assert.True(t, properties.New(tc.want).Equal(got), "got %s", got)
		})
	}

	assert.Equal(t, 3, requester.Len(), "requester properties must not change")
}

func TestDefault_GetReferences(t *testing.T) {
	globals := properties.New(map[string]string{"Configuration": "Debug"})
	items := []*project.Item{
		project.NewItem("Compile", "main.go", nil),
		reference("../lib/lib.proj.hcl", map[string]string{"SetConfiguration": "Configuration=Release"}),
		reference("/abs/core.proj.hcl", nil),
	}
	p := project.NewInstance(configmeta.NormalizePath("/src/app/app.proj.hcl"), globals, nil, items)

	refs, err := Default{}.GetReferences(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	assert.Equal(t, configmeta.FromMap("/src/lib/lib.proj.hcl", map[string]string{"Configuration": "Release"}).Key(), refs[0].ReferenceConfiguration.Key())
	assert.Same(t, items[1], refs[0].ProjectReferenceItem)
	assert.Equal(t, configmeta.NormalizePath("/abs/core.proj.hcl"), refs[1].ReferenceConfiguration.ProjectFullPath())

	bad := project.NewInstance("/src/bad.proj.hcl", nil, nil, []*project.Item{reference("  ", nil)})
	_, err = Default{}.GetReferences(context.Background(), bad)
	assert.ErrorContains(t, err, "empty include")
}

func TestDefault_PostProcessAddsTransitiveReferences(t *testing.T) {
	newNode := func(name string, props map[string]string) *graph.Node {
		cfg := configmeta.FromMap("/src/"+name+".proj.hcl", nil)
		return graph.NewNode(cfg, project.NewInstance(cfg.ProjectFullPath(), nil, properties.New(props), nil))
	}

	edges := graph.NewEdges()
	app := newNode("app", map[string]string{AddTransitiveReferencesProperty: "True"})
	lib := newNode("lib", nil)
	core := newNode("core", nil)
	other := newNode("other", nil)
	app.AddProjectReference(lib, reference("lib.proj.hcl", nil), edges)
	lib.AddProjectReference(core, reference("core.proj.hcl", nil), edges)
	other.AddProjectReference(lib, reference("lib.proj.hcl", nil), edges)

	parsed := map[configmeta.Key]*graph.ParsedProject{}
	for _, n := range []*graph.Node{app, lib, core, other} {
		parsed[n.Configuration().Key()] = &graph.ParsedProject{Configuration: n.Configuration(), Node: n}
	}

	require.NoError(t, Default{}.PostProcess(context.Background(), parsed, edges))

	assert.Equal(t, []*graph.Node{lib, core}, app.ProjectReferences())
	item, ok := edges.Get(app, core)
	require.True(t, ok)
	assert.Equal(t, "true", item.Metadata(MetadataSynthetic))
	assert.Equal(t, []*graph.Node{lib}, other.ProjectReferences(), "projects without the property are untouched")
	assert.Equal(t, 4, edges.Len())
}

func TestDefault_PostProcessDropsNonBuildReferences(t *testing.T) {
	newNode := func(name string, props map[string]string) *graph.Node {
		cfg := configmeta.FromMap("/src/"+name+".proj.hcl", nil)
		return graph.NewNode(cfg, project.NewInstance(cfg.ProjectFullPath(), nil, properties.New(props), nil))
	}

	edges := graph.NewEdges()
	app := newNode("app", map[string]string{AddTransitiveReferencesProperty: "true"})
	lib := newNode("lib", nil)
	tool := newNode("tool", nil)
	core := newNode("core", nil)
	app.AddProjectReference(lib, reference("lib.proj.hcl", nil), edges)
	app.AddProjectReference(tool, reference("tool.proj.hcl", map[string]string{MetadataBuildReference: " False "}), edges)
	tool.AddProjectReference(core, reference("core.proj.hcl", nil), edges)

	parsed := map[configmeta.Key]*graph.ParsedProject{}
	for _, n := range []*graph.Node{app, lib, tool, core} {
		parsed[n.Configuration().Key()] = &graph.ParsedProject{Configuration: n.Configuration(), Node: n}
	}

	require.NoError(t, Default{}.PostProcess(context.Background(), parsed, edges))

	assert.Equal(t, []*graph.Node{lib}, app.ProjectReferences(), "pruned edges are not followed transitively")
	assert.Empty(t, tool.ReferencingProjects())
	assert.False(t, edges.Has(app, tool))
	assert.True(t, edges.Has(tool, core))
	assert.Equal(t, 2, edges.Len())
}
