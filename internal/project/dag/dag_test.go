package dag

import (
	"errors"
	"strings"
	"testing"
)

func idsToNames(idx Index, ids []NodeID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = idx.IDToName[int(id)]
	}
	return out
}

func wavesToNames(idx Index, waves [][]NodeID) [][]string {
	out := make([][]string, len(waves))
	for i, w := range waves {
		out[i] = idsToNames(idx, w)
	}
	return out
}

func TestBuildIndexIncludesDeps(t *testing.T) {
	nodes := []Node{
		{Path: "main.sol:Main", Deps: []string{"lib.sol:Math", "lib.sol:Util"}},
		{Path: "lib.sol:Util"},
	}

	idx := BuildIndex(nodes)

	wantNames := []string{"lib.sol:Math", "lib.sol:Util", "main.sol:Main"}
	if len(idx.IDToName) != len(wantNames) {
		t.Fatalf("unexpected node count: %d", len(idx.IDToName))
	}
	for i, want := range wantNames {
		if got := idx.IDToName[i]; got != want {
			t.Fatalf("idx.IDToName[%d] = %q, want %q", i, got, want)
		}
		if id, ok := idx.NameToID[want]; !ok || int(id) != i {
			t.Fatalf("idx.NameToID[%q] = %v, want %d", want, id, i)
		}
	}
}

func TestBuildGraphProblems(t *testing.T) {
	nodes := []Node{
		{Path: "app", Deps: []string{"core", "util", "app"}},
		{Path: "core", Deps: []string{"util"}},
		{Path: "core"},
	}
	idx := BuildIndex(nodes)
	graph, problems := BuildGraph(idx, nodes)

	appID, coreID, utilID := idx.NameToID["app"], idx.NameToID["core"], idx.NameToID["util"]
	if got := graph.Edges[int(coreID)]; len(got) != 1 || got[0] != appID {
		t.Fatalf("core dependents = %v, want [%v]", got, appID)
	}
	if !graph.Present[int(appID)] || !graph.Present[int(coreID)] || graph.Present[int(utilID)] {
		t.Fatalf("unexpected Present flags: %v", graph.Present)
	}

	kinds := map[ProblemKind]int{}
	for _, p := range problems {
		kinds[p.Kind]++
	}
	if kinds[ProblemDuplicate] != 1 || kinds[ProblemMissing] != 2 || kinds[ProblemSelf] != 1 {
		t.Fatalf("problems = %v", problems)
	}
}

func TestSortWaves(t *testing.T) {
	// b deploys c, so c links first.
	nodes := []Node{
		{Path: "b", Deps: []string{"c"}},
		{Path: "a"},
		{Path: "c"},
	}

	idx := BuildIndex(nodes)
	graph, problems := BuildGraph(idx, nodes)
	if len(problems) != 0 {
		t.Fatalf("problems: %v", problems)
	}

	order := Sort(graph)
	if order.Cyclic() {
		t.Fatalf("expected acyclic graph, stuck %v", order.Stuck)
	}

	orderNames := idsToNames(idx, order.Flat())
	wantOrder := []string{"a", "c", "b"}
	for i, want := range wantOrder {
		if orderNames[i] != want {
			t.Fatalf("order = %v, want %v", orderNames, wantOrder)
		}
	}

	waves := wavesToNames(idx, order.Waves)
	wantWaves := [][]string{{"a", "c"}, {"b"}}
	if len(waves) != len(wantWaves) {
		t.Fatalf("waves = %v, want %v", waves, wantWaves)
	}
	for i := range wantWaves {
		if strings.Join(waves[i], ",") != strings.Join(wantWaves[i], ",") {
			t.Fatalf("wave[%d] = %v, want %v", i, waves[i], wantWaves[i])
		}
	}
}

func TestCycleError(t *testing.T) {
	nodes := []Node{
		{Path: "a", Deps: []string{"b"}},
		{Path: "b", Deps: []string{"a"}},
		{Path: "c", Deps: []string{"a"}},
	}
	idx := BuildIndex(nodes)
	graph, _ := BuildGraph(idx, nodes)

	order := Sort(graph)
	if !order.Cyclic() {
		t.Fatalf("expected cycle, got %+v", order)
	}
	err := CycleError(idx, order)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "a -> b") {
		t.Fatalf("cycle message %q", err)
	}

	if err := CycleError(idx, Sort(Graph{})); err != nil {
		t.Fatalf("empty graph: %v", err)
	}
}
