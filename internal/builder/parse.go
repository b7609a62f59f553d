package builder

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
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

// projectParser evaluates configurations and feeds their references back
// into the work set it belongs to.
type projectParser struct {
	factory        project.Factory
	interpretation interpretation.Interpretation
	evalCtx        *project.EvaluationContext
	events         *events.Emitter
	metrics        *metrics.Collector
	work           *workset.WorkSet[configmeta.Key, *graph.ParsedProject]
}

// submit schedules cfg for parsing unless it was claimed before or the set
// has stopped accepting work.
func (p *projectParser) submit(ctx context.Context, cfg configmeta.Metadata) {
	queued := p.work.AddWork(cfg.Key(), func(ctx context.Context) (*graph.ParsedProject, error) {
		return p.parse(ctx, cfg)
	})
	if !queued {
		if p.work.Err() == nil {
			p.metrics.RecordDuplicate()
		}
		return
	}
	p.events.Emit(ctx, events.Event{
		Type:             events.ProjectDiscovered,
		Project:          cfg.ProjectFullPath(),
		GlobalProperties: cfg.GlobalProperties().ToMap(),
	})
}

// parse evaluates one configuration. Factory and interpretation errors are
// returned unchanged.
func (p *projectParser) parse(ctx context.Context, cfg configmeta.Metadata) (*graph.ParsedProject, error) {
	ctx, span := tracer.Start(ctx, "GraphBuilder.parseProject",
		trace.WithAttributes(attribute.String("project", cfg.ProjectFullPath())),
	)
	defer span.End()
	logger := ctxlog.FromContext(ctx).With("project", cfg.ProjectFullPath())

	start := time.Now()
	instance, err := p.factory(ctx, cfg.ProjectFullPath(), cfg.GlobalProperties(), p.evalCtx)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, configErrorf("project factory returned no instance for %s", cfg)
	}
	elapsed := time.Since(start)
	p.metrics.RecordEvaluation(elapsed)

	refs, err := p.interpretation.GetReferences(ctx, instance)
	if err != nil {
		return nil, err
	}
	for _, ref := range refs {
		if solution.IsSolutionFilename(ref.ReferenceConfiguration.ProjectFullPath()) {
			return nil, configErrorf("project %s references solution file %s; solution files can only be entry points",
				cfg.ProjectFullPath(), ref.ReferenceConfiguration.ProjectFullPath())
		}
	}

	logger.Debug("Build: Project evaluated.", "references", len(refs), "elapsed", elapsed)
	p.events.Emit(ctx, events.Event{Type: events.ProjectEvaluated, Project: cfg.ProjectFullPath()})
	span.SetAttributes(attribute.Int("references", len(refs)))

	for _, ref := range refs {
		p.submit(ctx, ref.ReferenceConfiguration)
	}
	return &graph.ParsedProject{
		Configuration: cfg,
		Node:          graph.NewNode(cfg, instance),
		References:    refs,
	}, nil
}
