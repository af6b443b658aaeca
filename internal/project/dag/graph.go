// Package dag orders contracts by their factory dependencies. An edge runs
// from a dependency to the contract that deploys it, so a topological order
// links children before parents.
package dag

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type Graph struct {
	Edges   [][]NodeID // Edges[dep] = []dependents
	Indeg   []int      // входящие степени для Kahn (только присутствующие контракты)
	Present []bool     // контракт реально есть в проекте, а не только упомянут
}

// ProblemKind classifies a broken dependency.
type ProblemKind uint8

const (
	ProblemDuplicate ProblemKind = iota + 1
	ProblemMissing
	ProblemSelf
)

// Problem is a dependency the graph could not represent.
type Problem struct {
	Kind ProblemKind
	Path string
	Dep  string
}

func (p Problem) Error() string {
	switch p.Kind {
	case ProblemDuplicate:
		return fmt.Sprintf("duplicate contract %q", p.Path)
	case ProblemMissing:
		return fmt.Sprintf("contract %q depends on unknown contract %q", p.Path, p.Dep)
	case ProblemSelf:
		return fmt.Sprintf("contract %q depends on itself", p.Path)
	}
	return fmt.Sprintf("contract %q: broken dependency %q", p.Path, p.Dep)
}

func BuildGraph(idx Index, nodes []Node) (Graph, []Problem) {
	nodeCount := len(idx.IDToName)
	g := Graph{
		Edges:   make([][]NodeID, nodeCount),
		Indeg:   make([]int, nodeCount),
		Present: make([]bool, nodeCount),
	}
	var problems []Problem
	deps := make([][]string, nodeCount)

	for _, n := range nodes {
		if n.Path == "" {
			continue
		}
		id, ok := idx.NameToID[n.Path]
		if !ok {
			// не должно происходить, индекс строится на тех же узлах
			continue
		}
		if g.Present[id] {
			problems = append(problems, Problem{Kind: ProblemDuplicate, Path: n.Path})
			continue
		}
		g.Present[id] = true
		deps[id] = n.Deps
	}

	for to := range deps {
		if !g.Present[to] {
			continue
		}
		seen := make(map[NodeID]struct{}, len(deps[to]))
		for _, dep := range deps[to] {
			if dep == "" {
				continue
			}
			from := idx.NameToID[dep]
			if int(from) == to {
				problems = append(problems, Problem{Kind: ProblemSelf, Path: idx.IDToName[to], Dep: dep})
				continue
			}
			if !g.Present[from] {
				problems = append(problems, Problem{Kind: ProblemMissing, Path: idx.IDToName[to], Dep: dep})
				continue
			}
			if _, dup := seen[from]; dup {
				continue
			}
			seen[from] = struct{}{}
			g.Edges[from] = append(g.Edges[from], NodeID(to))
			g.Indeg[to]++
		}
	}
	for from := range g.Edges {
		if len(g.Edges[from]) > 1 {
			slices.Sort(g.Edges[from])
		}
	}
	return g, problems
}

// ErrCycle is wrapped by CycleError.
var ErrCycle = errors.New("factory dependency cycle")

// CycleError describes the contracts left in a cycle, or returns nil.
func CycleError(idx Index, o Order) error {
	if !o.Cyclic() {
		return nil
	}
	names := make([]string, 0, len(o.Stuck))
	for _, id := range o.Stuck {
		names = append(names, idx.IDToName[int(id)])
	}
	return fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> "))
}
