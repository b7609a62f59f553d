// Package graph is the in-memory project graph: one Node per distinct
// project configuration, directed reference edges between nodes, and the
// item that produced each edge.
//
// # Lifecycle
//
//  1. **Created** by the builder, one Node per parsed configuration.
//  2. **Linked** during edge assembly with Node.AddProjectReference, which
//     records the edge on both endpoints and in Edges.
//  3. **Post-processed** by the interpretation, which may add or remove edges.
//  4. **Validated** by DetectCycles, starting from the entry point nodes.
//  5. **Frozen** with Edges.Freeze before the builder returns the Graph.
//     AddProjectReference and RemoveReference do nothing afterwards, so the
//     Graph is a read-only snapshot.
//
// # Thread-Safety
//
// Node mutation happens only during the single-threaded assembly phase and
// is not synchronized. Edges is safe for concurrent use.
package graph
