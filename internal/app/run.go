package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vk/projectgraph/internal/builder"
	"github.com/vk/projectgraph/internal/ctxlog"
	"github.com/vk/projectgraph/internal/events"
	"github.com/vk/projectgraph/internal/fsutil"
	"github.com/vk/projectgraph/internal/hclproject"
)

// Run builds the project graph for the configured entry points and writes it
// to the output writer.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.Run method started.")

	if _, err := a.healthCheckServer(); err != nil {
		return err
	}
	defer func() {
		if closeErr := a.closeHealthCheckServer(); err == nil {
			err = closeErr
		}
	}()

	buildID := uuid.NewString()
	ctx = ctxlog.With(ctx, "buildID", buildID)

	sink, err := a.eventSink(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sink.Close(ctx); closeErr != nil {
			ctxlog.FromContext(ctx).Warn("Failed to close event sink.", "error", closeErr)
		}
	}()

	paths, err := fsutil.ExpandDirectories(a.config.EntryPoints, hclproject.ProjectFileSuffix, fsutil.FindOptions{IgnoreFile: a.config.IgnoreFile})
	if err != nil {
		return fmt.Errorf("failed to resolve entry points: %w", err)
	}
	entryPoints := make([]builder.EntryPoint, len(paths))
	for i, p := range paths {
		entryPoints[i] = builder.EntryPoint{ProjectFile: p, GlobalProperties: a.config.GlobalProperties}
	}

	opts := a.builderOptions()
	opts.Events = events.NewEmitter(buildID, sink)
	b, err := builder.New(ctx, entryPoints, opts)
	if err != nil {
		return fmt.Errorf("failed to seed graph: %w", err)
	}
	g, err := b.BuildGraph(ctx)
	if err != nil {
		return fmt.Errorf("failed to build project graph: %w", err)
	}

	if err := render(a.outW, a.config.OutputFormat, buildID, g); err != nil {
		return fmt.Errorf("failed to write graph: %w", err)
	}
	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) eventSink(ctx context.Context) (events.Sink, error) {
	if a.config.EventsURL == "" {
		return events.LogSink{}, nil
	}
	remote, err := events.DialSocketIO(ctx, events.SocketIOConfig{
		URL:       a.config.EventsURL,
		Namespace: a.config.EventsNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect event stream: %w", err)
	}
	return events.Multi{events.LogSink{}, remote}, nil
}
