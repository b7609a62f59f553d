package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vk/projectgraph/internal/configmeta"
	"github.com/vk/projectgraph/internal/ctxlog"
	"github.com/vk/projectgraph/internal/events"
	"github.com/vk/projectgraph/internal/graph"
	"github.com/vk/projectgraph/internal/interpretation"
	"github.com/vk/projectgraph/internal/metrics"
	"github.com/vk/projectgraph/internal/project"
	"github.com/vk/projectgraph/internal/solution"
	"github.com/vk/projectgraph/internal/workset"
)

var tracer = otel.Tracer("projectgraph.builder")

// Options configures a Builder. Only Factory is required.
type Options struct {
	// Parallelism is the number of goroutines evaluating projects, including
	// the one calling BuildGraph. Values below one mean one.
	Parallelism int
	Factory     project.Factory
	// Interpretation defaults to interpretation.Default.
	Interpretation interpretation.Interpretation
	// SolutionParser is needed only when an entry point is a solution.
	SolutionParser solution.Parser
	// EvaluationContext is shared by every factory call. A fresh one is
	// created when nil.
	EvaluationContext *project.EvaluationContext
	Events            *events.Emitter
	Metrics           *metrics.Collector
}

// Builder builds one project graph. The graph is built on the first call to
// BuildGraph; later calls return the same result.
type Builder struct {
	opts        Options
	entryPoints []configmeta.Metadata

	mu       sync.Mutex
	finished bool
	graph    *graph.Graph
	err      error
}

// New validates the options and seeds the entry points. Seeding parses a
// solution entry point, so ctx must carry the logger to use.
func New(ctx context.Context, entryPoints []EntryPoint, opts Options) (*Builder, error) {
	if opts.Factory == nil {
		return nil, errors.New("builder requires a project factory")
	}
	if len(entryPoints) == 0 {
		return nil, configErrorf("at least one entry point is required")
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.Interpretation == nil {
		opts.Interpretation = interpretation.Default{}
	}
	if opts.EvaluationContext == nil {
		opts.EvaluationContext = project.NewEvaluationContext()
	}

	seeded, err := seed(ctx, entryPoints, opts.SolutionParser)
	if err != nil {
		return nil, err
	}
	return &Builder{opts: opts, entryPoints: dedupe(seeded)}, nil
}

// EntryPoints returns the seeded entry point configurations in order.
func (b *Builder) EntryPoints() []configmeta.Metadata {
	return append([]configmeta.Metadata(nil), b.entryPoints...)
}

// BuildGraph builds the graph, or returns the result of the build that
// already ran. A failed build is not retried; create a new Builder instead.
func (b *Builder) BuildGraph(ctx context.Context) (*graph.Graph, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return b.graph, b.err
	}
	b.graph, b.err = b.build(ctx)
	b.finished = true
	return b.graph, b.err
}

func (b *Builder) build(ctx context.Context) (*graph.Graph, error) {
	ctx, span := tracer.Start(ctx, "GraphBuilder.BuildGraph",
		trace.WithAttributes(
			attribute.Int("entry_points", len(b.entryPoints)),
			attribute.Int("parallelism", b.opts.Parallelism),
		),
	)
	defer span.End()
	logger := ctxlog.FromContext(ctx)

	logger.Info("Build: Starting graph construction.", "entryPoints", len(b.entryPoints), "parallelism", b.opts.Parallelism)
	b.opts.Events.Emit(ctx, events.Event{Type: events.BuildStarted})
	start := time.Now()

	g, err := b.construct(ctx)
	if err != nil {
		b.opts.Metrics.RecordBuild(time.Since(start), err, 0, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.opts.Events.Emit(ctx, events.Event{Type: events.GraphFailed, Message: err.Error()})
		logger.Error("Build: Graph construction failed.", "error", err)
		return nil, err
	}

	b.opts.Metrics.RecordBuild(time.Since(start), nil, len(g.ProjectNodes), g.Edges.Len())
	span.SetAttributes(
		attribute.Int("nodes", len(g.ProjectNodes)),
		attribute.Int("edges", g.Edges.Len()),
	)
	b.opts.Events.Emit(ctx, events.Event{
		Type:    events.GraphCompleted,
		Message: fmt.Sprintf("%d nodes, %d edges", len(g.ProjectNodes), g.Edges.Len()),
	})
	logger.Info("Build: Graph construction successful.",
		"nodes", len(g.ProjectNodes),
		"edges", g.Edges.Len(),
		"roots", len(g.RootNodes),
		"duration", time.Since(start),
	)
	return g, nil
}

func (b *Builder) construct(ctx context.Context) (*graph.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	parsed, err := b.discover(ctx)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build: Discovery complete.", "projects", len(parsed))

	edges := graph.NewEdges()
	if err := assembleEdges(parsed, edges); err != nil {
		return nil, err
	}
	logger.Debug("Build: Edge assembly complete.", "edges", edges.Len())

	if err := b.opts.Interpretation.PostProcess(ctx, parsed, edges); err != nil {
		return nil, fmt.Errorf("post-processing the graph failed: %w", err)
	}

	entryPointNodes := make([]*graph.Node, 0, len(b.entryPoints))
	for _, cfg := range b.entryPoints {
		pp, ok := parsed[cfg.Key()]
		if !ok {
			return nil, fmt.Errorf("entry point %s was not evaluated", cfg)
		}
		entryPointNodes = append(entryPointNodes, pp.Node)
	}

	if err := graph.DetectCycles(entryPointNodes); err != nil {
		return nil, err
	}
	logger.Debug("Build: Cycle detection passed.")

	var roots []*graph.Node
	for _, n := range entryPointNodes {
		if len(n.ReferencingProjects()) == 0 {
			roots = append(roots, n)
		}
	}

	edges.Freeze()
	return &graph.Graph{
		ProjectNodes:    sortedNodes(parsed),
		EntryPointNodes: entryPointNodes,
		RootNodes:       roots,
		Edges:           edges,
	}, nil
}

// discover runs the work set until every reachable configuration is parsed.
func (b *Builder) discover(ctx context.Context) (map[configmeta.Key]*graph.ParsedProject, error) {
	ctx, span := tracer.Start(ctx, "GraphBuilder.discover")
	defer span.End()

	// The goroutine waiting on the set is the remaining worker.
	work := workset.New[configmeta.Key, *graph.ParsedProject](ctx, b.opts.Parallelism-1)
	p := &projectParser{
		factory:        b.opts.Factory,
		interpretation: b.opts.Interpretation,
		evalCtx:        b.opts.EvaluationContext,
		events:         b.opts.Events,
		metrics:        b.opts.Metrics,
		work:           work,
	}
	for _, cfg := range b.entryPoints {
		p.submit(ctx, cfg)
	}

	if err := work.WaitForAllWork(); err != nil {
		_ = work.WaitForCompletion()
		return nil, err
	}
	work.Complete()
	if err := work.WaitForCompletion(); err != nil {
		return nil, err
	}

	parsed := work.CompletedWork()
	span.SetAttributes(attribute.Int("projects", len(parsed)))
	return parsed, nil
}

// assembleEdges links every parsed project to its references in a stable
// order so that first-writer-wins edges do not depend on worker timing.
func assembleEdges(parsed map[configmeta.Key]*graph.ParsedProject, edges *graph.Edges) error {
	keys := make([]configmeta.Key, 0, len(parsed))
	for k := range parsed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		pp := parsed[k]
		for _, ref := range pp.References {
			target, ok := parsed[ref.ReferenceConfiguration.Key()]
			if !ok {
				return fmt.Errorf("reference from %s to %s was never evaluated", pp.Configuration, ref.ReferenceConfiguration)
			}
			pp.Node.AddProjectReference(target.Node, ref.ProjectReferenceItem, edges)
		}
	}
	return nil
}

func sortedNodes(parsed map[configmeta.Key]*graph.ParsedProject) []*graph.Node {
	nodes := make([]*graph.Node, 0, len(parsed))
	for _, pp := range parsed {
		nodes = append(nodes, pp.Node)
	}
	sort.Slice(nodes, func(i, j int) bool {
		pi, pj := nodes[i].Configuration().ProjectFullPath(), nodes[j].Configuration().ProjectFullPath()
		if pi != pj {
			return pi < pj
		}
		return nodes[i].Configuration().Key() < nodes[j].Configuration().Key()
	})
	return nodes
}

// dedupe drops repeated entry point configurations, keeping the first.
func dedupe(cfgs []configmeta.Metadata) []configmeta.Metadata {
	seen := make(map[configmeta.Key]bool, len(cfgs))
	out := cfgs[:0]
	for _, c := range cfgs {
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}
