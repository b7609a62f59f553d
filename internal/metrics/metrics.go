// Package metrics exposes Prometheus instrumentation for graph builds.
//
// A nil *Collector is valid: every Record method becomes a no-op, so callers
// never need to check whether metrics are enabled.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "projectgraph"

// Build results used as the result label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Collector holds the graph build metrics.
type Collector struct {
	ProjectsEvaluated    prometheus.Counter
	EvaluationDuration   prometheus.Histogram
	DuplicateSubmissions prometheus.Counter
	BuildsTotal          *prometheus.CounterVec
	BuildDuration        prometheus.Histogram
	GraphNodes           prometheus.Gauge
	GraphEdges           prometheus.Gauge
}

// New registers the metrics on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		ProjectsEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "projects_evaluated_total",
			Help:      "Total number of project configurations evaluated.",
		}),
		EvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "project_evaluation_seconds",
			Help:      "Time spent evaluating a single project configuration.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
		DuplicateSubmissions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_submissions_total",
			Help:      "References that resolved to an already claimed configuration.",
		}),
		BuildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Graph builds by result.",
		}, []string{"result"}),
		BuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of a graph build.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		GraphNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Number of nodes in the last built graph.",
		}),
		GraphEdges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Number of edges in the last built graph.",
		}),
	}
}

// RecordEvaluation records one project evaluation.
func (c *Collector) RecordEvaluation(d time.Duration) {
	if c == nil {
		return
	}
	c.ProjectsEvaluated.Inc()
	c.EvaluationDuration.Observe(d.Seconds())
}

// RecordDuplicate records a submission that was deduplicated.
func (c *Collector) RecordDuplicate() {
	if c == nil {
		return
	}
	c.DuplicateSubmissions.Inc()
}

// RecordBuild records a finished build. nodes and edges are only reported
// for successful builds.
func (c *Collector) RecordBuild(d time.Duration, err error, nodes, edges int) {
	if c == nil {
		return
	}
	c.BuildDuration.Observe(d.Seconds())
	if err != nil {
		c.BuildsTotal.WithLabelValues(ResultFailure).Inc()
		return
	}
	c.BuildsTotal.WithLabelValues(ResultSuccess).Inc()
	c.GraphNodes.Set(float64(nodes))
	c.GraphEdges.Set(float64(edges))
}
