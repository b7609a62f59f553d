package graph

import (
	"fmt"
	"slices"
	"strings"
)

// CircularDependencyError reports a reference cycle. Cycle lists project
// paths in dependency order and ends with the path it started from; a
// project referencing itself yields [p, p].
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return "circular dependency detected in project graph:\n" + FormatCycle(e.Cycle)
}

// FormatCycle renders a cycle one project per line, each line but the last
// followed by " ->".
func FormatCycle(cycle []string) string {
	return strings.Join(cycle, " ->\n")
}

type visitState int

const (
	inProcess visitState = iota + 1
	processed
)

// visitResult carries a cycle upward through the DFS. trace is collected
// bottom-up, starting at the node that closed the cycle.
type visitResult struct {
	inCycle bool
	start   *Node
	trace   []string
}

// DetectCycles walks the graph depth-first from each entry point and returns
// a *CircularDependencyError for the first cycle found. Entry points already
// processed by an earlier traversal are skipped.
func DetectCycles(entryPoints []*Node) error {
	states := make(map[*Node]visitState)
	for _, entryPoint := range entryPoints {
		if state, seen := states[entryPoint]; seen {
			if state != processed {
				return fmt.Errorf("entry point %s was not fully processed by a previous traversal", entryPoint.FullPath())
			}
			continue
		}
		res, err := visit(entryPoint, states)
		if err != nil {
			return err
		}
		if res.inCycle {
			return &CircularDependencyError{Cycle: reversed(res.trace)}
		}
	}
	return nil
}

func visit(n *Node, states map[*Node]visitState) (visitResult, error) {
	states[n] = inProcess

	for _, ref := range n.references {
		if state, seen := states[ref]; seen {
			if state != inProcess {
				continue
			}
			if ref == n {
				return visitResult{}, &CircularDependencyError{Cycle: []string{n.FullPath(), n.FullPath()}}
			}
			return visitResult{inCycle: true, start: ref, trace: []string{ref.FullPath()}}, nil
		}

		res, err := visit(ref, states)
		if err != nil {
			return visitResult{}, err
		}
		if !res.inCycle {
			continue
		}

		res.trace = append(res.trace, ref.FullPath())
		if res.start == n {
			res.trace = append(res.trace, n.FullPath())
			return visitResult{}, &CircularDependencyError{Cycle: reversed(res.trace)}
		}
		return res, nil
	}

	states[n] = processed
	return visitResult{}, nil
}

func reversed(trace []string) []string {
	out := slices.Clone(trace)
	slices.Reverse(out)
	return out
}
