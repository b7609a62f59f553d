package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vk/projectgraph/internal/builder"
	"github.com/vk/projectgraph/internal/ctxlog"
	"github.com/vk/projectgraph/internal/hclproject"
	"github.com/vk/projectgraph/internal/metrics"
	"github.com/vk/projectgraph/internal/project"
	"github.com/vk/projectgraph/internal/solution"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	registry   *prometheus.Registry
	metrics    *metrics.Collector
	httpServer *http.Server

	factory        project.Factory
	solutionParser solution.Parser
}

// Option customizes an App.
type Option func(*App)

// WithFactory replaces the HCL project evaluator.
func WithFactory(f project.Factory) Option {
	return func(a *App) { a.factory = f }
}

// WithSolutionParser replaces the HCL solution parser.
func WithSolutionParser(p solution.Parser) Option {
	return func(a *App) { a.solutionParser = p }
}

// NewApp is the constructor for the main application. The graph is written
// to outW and logs to logW. Each App owns its logger and metrics registry.
func NewApp(outW, logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		ctx:            ctxlog.WithLogger(context.Background(), logger),
		outW:           outW,
		logger:         logger,
		config:         cfg,
		registry:       reg,
		metrics:        metrics.New(reg),
		factory:        hclproject.Evaluate,
		solutionParser: hclproject.SolutionParser{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Metrics returns the application's metrics. This is primarily for testing.
func (a *App) Metrics() *metrics.Collector {
	return a.metrics
}

func (a *App) builderOptions() builder.Options {
	return builder.Options{
		Parallelism:       a.config.Parallelism,
		Factory:           a.factory,
		SolutionParser:    a.solutionParser,
		EvaluationContext: project.NewEvaluationContext(),
		Metrics:           a.metrics,
	}
}
