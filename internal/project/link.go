package project

import (
	"context"
	"fmt"
	"slices"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/project/dag"
	"github.com/paritytech/revive-sub000/internal/trace"
)

// link resolves factory dependencies after every contract has been built.
// Objects whose dependencies are all linked are linked in turn until nothing
// changes; whatever is left over is a missing dependency or a cycle.
func (p *Project) link(ctx context.Context, tasks []*task) {
	ctx, span := trace.Start(ctx, trace.ScopeProject, "link")
	defer span.End(nil)

	byPath := make(map[string]*task, len(tasks))
	for _, t := range tasks {
		byPath[t.contract.Path] = t
		if t.result.Err != nil || t.result.Artifact == nil {
			continue
		}
		t.deps = make(map[string]string, len(t.result.Artifact.Unresolved))
		for _, id := range t.result.Artifact.Unresolved {
			t.deps[id] = t.contract.dependencyPath(id)
		}
	}

	hashes := make(map[string]object.Hash, len(tasks))
	for _, t := range tasks {
		if t.ok() && t.result.Artifact.Linked() {
			hashes[t.contract.Path] = t.result.Artifact.Hash
		}
	}

	for round := 1; ; round++ {
		progress := false
		for _, t := range tasks {
			if !t.ok() || t.result.Artifact.Linked() {
				continue
			}
			symbols, ready := t.symbols(hashes)
			if !ready {
				continue
			}
			progress = true
			if err := buildpipeline.Relink(ctx, p.Toolchain, t.result.Artifact, symbols); err != nil {
				t.result.Err = err
				continue
			}
			if !t.result.Artifact.Linked() {
				t.result.Err = &buildpipeline.LinkError{Path: t.contract.Path, Err: fmt.Errorf("still unresolved: %v", t.result.Artifact.Unresolved)}
				continue
			}
			hashes[t.contract.Path] = t.result.Artifact.Hash
			trace.Point(trace.WithContract(ctx, t.contract.Path), trace.ScopeContract, "linked", fmt.Sprintf("round %d", round))
		}
		if !progress {
			break
		}
	}

	p.reportUnlinked(tasks, byPath)

	for _, t := range tasks {
		if !t.ok() || len(t.deps) == 0 {
			continue
		}
		art := t.result.Artifact
		art.FactoryDependencies = make(map[object.Hash]string, len(t.deps))
		for _, path := range t.deps {
			art.FactoryDependencies[hashes[path]] = path
		}
	}
}

// reportUnlinked turns every object the link loop could not finish into a
// link error naming the reason.
func (p *Project) reportUnlinked(tasks []*task, byPath map[string]*task) {
	var nodes []dag.Node
	var stuck []*task
	for _, t := range tasks {
		if !t.ok() || t.result.Artifact.Linked() {
			continue
		}
		stuck = append(stuck, t)
		deps := make([]string, 0, len(t.deps))
		for _, path := range t.deps {
			deps = append(deps, path)
		}
		slices.Sort(deps)
		nodes = append(nodes, dag.Node{Path: t.contract.Path, Deps: deps})
	}
	if len(stuck) == 0 {
		return
	}

	idx := dag.BuildIndex(nodes)
	graph, problems := dag.BuildGraph(idx, nodes)
	cycle := dag.CycleError(idx, dag.Sort(graph))
	for _, t := range stuck {
		var err error
		for _, pr := range problems {
			if pr.Path != t.contract.Path {
				continue
			}
			if pr.Kind == dag.ProblemMissing {
				if dep, ok := byPath[pr.Dep]; ok && dep.result.Err != nil {
					err = fmt.Errorf("dependency %s failed to build", pr.Dep)
					break
				}
			}
			err = pr
			break
		}
		if err == nil && cycle != nil {
			err = cycle
		}
		if err == nil {
			err = fmt.Errorf("unresolved factory dependencies %v", t.result.Artifact.Unresolved)
		}
		t.result.Err = &buildpipeline.LinkError{Path: t.contract.Path, Err: err}
	}
}

func (t *task) ok() bool {
	return t.result.Err == nil && t.result.Artifact != nil
}

// symbols returns the hashes of t's dependencies keyed by identifier, or
// false when one of them is not linked yet.
func (t *task) symbols(hashes map[string]object.Hash) (map[string]object.Hash, bool) {
	out := make(map[string]object.Hash, len(t.deps))
	for id, path := range t.deps {
		h, ok := hashes[path]
		if !ok {
			return nil, false
		}
		out[id] = h
	}
	return out, true
}

// dependencyPath maps a factory dependency identifier to a contract path.
func (c Contract) dependencyPath(id string) string {
	if path, ok := c.Dependencies[id]; ok {
		id = path
	}
	if path, err := NormalizeContractPath(id); err == nil {
		return path
	}
	return id
}
