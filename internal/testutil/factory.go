package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/project"
	"github.com/vk/projectgraph/internal/properties"
)

// FakeReference is one ProjectReference of a FakeProject.
type FakeReference struct {
	Path     string
	Metadata map[string]string
}

// FakeProject is an in-memory project definition.
type FakeProject struct {
	Properties map[string]string
	References []FakeReference
}

// Refs is shorthand for references without metadata.
func Refs(paths ...string) []FakeReference {
	out := make([]FakeReference, len(paths))
	for i, p := range paths {
		out[i] = FakeReference{Path: p}
	}
	return out
}

// FakeFactory evaluates FakeProjects and counts evaluations per
// configuration.
type FakeFactory struct {
	// Hook, when set, runs before every evaluation. A non-nil error fails the
	// evaluation.
	Hook func(ctx context.Context, path string, globals *properties.Map) error

	projects map[string]FakeProject
	nilFor   map[string]bool

	mu    sync.Mutex
	calls map[configmeta.Key]int
	paths map[string]int
}

// NewFakeFactory creates a factory serving projects keyed by path. Paths are
// normalized.
func NewFakeFactory(projects map[string]FakeProject) *FakeFactory {
	f := &FakeFactory{
		projects: make(map[string]FakeProject, len(projects)),
		calls:    make(map[configmeta.Key]int),
		paths:    make(map[string]int),
		nilFor:   make(map[string]bool),
	}
	for p, def := range projects {
		f.projects[configmeta.NormalizePath(p)] = def
	}
	return f
}

// Evaluate implements project.Factory.
func (f *FakeFactory) Evaluate(ctx context.Context, path string, globals *properties.Map, _ *project.EvaluationContext) (*project.Instance, error) {
	fullPath := configmeta.NormalizePath(path)

	f.mu.Lock()
	f.calls[configmeta.New(fullPath, globals).Key()]++
	f.paths[fullPath]++
	f.mu.Unlock()

	if f.Hook != nil {
		if err := f.Hook(ctx, fullPath, globals); err != nil {
			return nil, err
		}
	}
	if f.nilFor[fullPath] {
		return nil, nil
	}

	def, ok := f.projects[fullPath]
	if !ok {
		return nil, fmt.Errorf("project file %s does not exist", fullPath)
	}
	items := make([]*project.Item, 0, len(def.References))
	for _, ref := range def.References {
		items = append(items, project.NewItem(project.ProjectReferenceItemType, ref.Path, properties.New(ref.Metadata)))
	}
	return project.NewInstance(fullPath, globals, properties.New(def.Properties), items), nil
}

// ReturnNilFor makes evaluations of path return no instance and no error.
// It must be called before the factory is used.
func (f *FakeFactory) ReturnNilFor(path string) {
	f.nilFor[configmeta.NormalizePath(path)] = true
}

// Calls returns how many times path was evaluated, across configurations.
func (f *FakeFactory) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paths[configmeta.NormalizePath(path)]
}

// MaxCallsPerConfiguration returns the highest evaluation count of any
// single configuration.
func (f *FakeFactory) MaxCallsPerConfiguration() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	highest := 0
	for _, n := range f.calls {
		highest = max(highest, n)
	}
	return highest
}

// TotalCalls returns the number of evaluations.
func (f *FakeFactory) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}
