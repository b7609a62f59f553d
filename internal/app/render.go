package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/vk/projectgraph/internal/graph"
)

type graphReport struct {
	BuildID     string          `json:"build_id"`
	Projects    []projectReport `json:"projects"`
	EntryPoints []string        `json:"entry_points"`
	Roots       []string        `json:"roots"`
	EdgeCount   int             `json:"edge_count"`
}

type projectReport struct {
	ID               string            `json:"id"`
	Path             string            `json:"path"`
	GlobalProperties map[string]string `json:"global_properties,omitempty"`
	References       []string          `json:"references"`
}

// render writes g with its projects in dependency order.
func render(w io.Writer, format, buildID string, g *graph.Graph) error {
	report := newReport(buildID, g)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return renderText(w, report)
}

func newReport(buildID string, g *graph.Graph) graphReport {
	ids := func(nodes []*graph.Node) []string {
		out := make([]string, len(nodes))
		for i, n := range nodes {
			out[i] = n.String()
		}
		return out
	}

	report := graphReport{
		BuildID:     buildID,
		EntryPoints: ids(g.EntryPointNodes),
		Roots:       ids(g.RootNodes),
		EdgeCount:   g.Edges.Len(),
	}
	for _, n := range g.ProjectNodesTopologicallySorted() {
		report.Projects = append(report.Projects, projectReport{
			ID:               n.String(),
			Path:             n.FullPath(),
			GlobalProperties: n.Configuration().GlobalProperties().ToMap(),
			References:       ids(n.ProjectReferences()),
		})
	}
	return report
}

func renderText(w io.Writer, r graphReport) error {
	ew := &errWriter{w: w}
	ew.printf("Build %s: %d projects, %d references\n", r.BuildID, len(r.Projects), r.EdgeCount)
	ew.printf("\nEntry points:\n")
	for _, id := range r.EntryPoints {
		ew.printf("  %s\n", id)
	}
	ew.printf("\nRoots:\n")
	for _, id := range r.Roots {
		ew.printf("  %s\n", id)
	}
	ew.printf("\nProjects (dependencies first):\n")
	for _, p := range r.Projects {
		ew.printf("  %s\n", p.ID)
		for _, ref := range p.References {
			ew.printf("    -> %s\n", ref)
		}
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
