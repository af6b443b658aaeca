package dag

import "slices"

// Order is a link order over a Graph.
type Order struct {
	// Waves groups contracts whose dependencies all sit in earlier waves.
	// Each wave is sorted by ID.
	Waves [][]NodeID
	// Stuck holds the contracts that never became ready.
	Stuck []NodeID
}

// Flat returns the waves concatenated.
func (o Order) Flat() []NodeID {
	var out []NodeID
	for _, w := range o.Waves {
		out = append(out, w...)
	}
	return out
}

// Cyclic reports whether some contracts are stuck in a cycle.
func (o Order) Cyclic() bool { return len(o.Stuck) > 0 }

// Sort peels off contracts with no pending dependencies until none are
// left or only cycles remain.
func Sort(g Graph) Order {
	pending := slices.Clone(g.Indeg)
	remaining := make(map[NodeID]bool)
	for i, present := range g.Present {
		if present {
			remaining[NodeID(i)] = true // #nosec G115 -- ids come from BuildIndex
		}
	}

	var o Order
	for len(remaining) > 0 {
		var wave []NodeID
		for id := range remaining {
			if pending[id] == 0 {
				wave = append(wave, id)
			}
		}
		if len(wave) == 0 {
			break
		}
		slices.Sort(wave)
		for _, id := range wave {
			delete(remaining, id)
			for _, to := range g.Edges[id] {
				pending[to]--
			}
		}
		o.Waves = append(o.Waves, wave)
	}
	for id := range remaining {
		o.Stuck = append(o.Stuck, id)
	}
	slices.Sort(o.Stuck)
	return o
}
