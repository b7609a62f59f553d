/*
Package builder constructs the static project graph from a set of entry
points.

A build runs through a fixed sequence of phases:

 1. Seeding: entry points are normalized. A single solution entry point is
    expanded into the projects it builds under the selected solution
    configuration. Every entry point receives the IsGraphBuild global
    property unless it already sets one.

 2. Discovery: each entry point configuration is submitted to a work set.
    Parsing a configuration evaluates the project through the injected
    factory, extracts its references through the interpretation, and submits
    every referenced configuration back into the same work set. The work set
    claims keys atomically, so each configuration is evaluated exactly once no
    matter how many projects reference it or how many workers race on it.

 3. Edge assembly: once the work set is quiescent, the completed parses are
    turned into edges on a single goroutine. When two references connect the
    same pair of nodes the first one assembled wins.

 4. Post-processing: the interpretation may add or remove edges.

 5. Cycle check: the graph is walked depth-first from the entry points and
    the first cycle found is reported as a *graph.CircularDependencyError.

 6. Finalization: entry point and root nodes are resolved and the graph is
    returned.

Any failure aborts the build. No partial graph is ever returned.

# Thread-Safety

Discovery runs on up to Options.Parallelism goroutines, one of which is the
goroutine that called BuildGraph. Every phase after discovery runs on the
calling goroutine only. A Builder is safe for concurrent use; concurrent
BuildGraph calls wait for the single build and share its result.
*/
package builder
