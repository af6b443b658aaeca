package optimizer

import "github.com/paritytech/revive-sub000/internal/lir"

// simplifyCFG resolves branches on constants, threads jumps through empty
// blocks, merges straight-line chains and drops unreachable blocks.
func simplifyCFG(f *lir.Func) bool {
	if f.IsDeclaration() {
		return false
	}
	changed := foldTerminators(f)
	if threadJumps(f) {
		changed = true
	}
	if removeUnreachable(f) {
		changed = true
	}
	if mergeBlocks(f) {
		changed = true
		removeUnreachable(f)
	}
	return changed
}

func foldTerminators(f *lir.Func) bool {
	changed := false
	for _, b := range f.Blocks {
		t := &b.Term
		switch t.Kind {
		case lir.TermCondBr:
			target := lir.NoBlock
			switch {
			case t.Then == t.Else:
				target = t.Then
			case t.Value.IsConst() && t.Value.Const.IsZero():
				target = t.Else
			case t.Value.IsConst():
				target = t.Then
			}
			if target != lir.NoBlock {
				*t = lir.Terminator{Kind: lir.TermBr, Target: target}
				changed = true
			}
		case lir.TermSwitch:
			if !t.Value.IsConst() && len(t.Cases) > 0 {
				continue
			}
			target := t.Default
			for _, c := range t.Cases {
				if c.Value.Eq(&t.Value.Const) {
					target = c.Target
					break
				}
			}
			*t = lir.Terminator{Kind: lir.TermBr, Target: target}
			changed = true
		}
	}
	return changed
}

func retarget(t *lir.Terminator, fn func(lir.BlockID) lir.BlockID) {
	switch t.Kind {
	case lir.TermBr:
		t.Target = fn(t.Target)
	case lir.TermCondBr:
		t.Then, t.Else = fn(t.Then), fn(t.Else)
	case lir.TermSwitch:
		t.Default = fn(t.Default)
		for i := range t.Cases {
			t.Cases[i].Target = fn(t.Cases[i].Target)
		}
	}
}

// threadJumps sends branches to empty forwarding blocks straight to their
// destination.
func threadJumps(f *lir.Func) bool {
	forward := make(map[lir.BlockID]lir.BlockID)
	for _, b := range f.Blocks[1:] {
		if len(b.Instrs) == 0 && b.Term.Kind == lir.TermBr && b.Term.Target != b.ID {
			forward[b.ID] = b.Term.Target
		}
	}
	if len(forward) == 0 {
		return false
	}
	resolve := func(id lir.BlockID) lir.BlockID {
		for range len(forward) {
			next, ok := forward[id]
			if !ok {
				break
			}
			id = next
		}
		return id
	}
	changed := false
	for _, b := range f.Blocks {
		before := b.Term.Successors()
		retarget(&b.Term, resolve)
		after := b.Term.Successors()
		for i := range before {
			if before[i] != after[i] {
				changed = true
			}
		}
	}
	return changed
}

func predecessors(f *lir.Func) []int {
	preds := make([]int, len(f.Blocks))
	for _, b := range f.Blocks {
		for _, s := range b.Term.Successors() {
			preds[s]++
		}
	}
	return preds
}

// mergeBlocks folds a block into its only predecessor when that predecessor
// branches to it unconditionally.
func mergeBlocks(f *lir.Func) bool {
	changed := false
	preds := predecessors(f)
	for _, a := range f.Blocks {
		for a.Term.Kind == lir.TermBr {
			next := a.Term.Target
			if next == a.ID || next == 0 || preds[next] != 1 {
				break
			}
			b := f.Blocks[next]
			a.Instrs = append(a.Instrs, b.Instrs...)
			a.Term = b.Term
			b.Instrs = nil
			b.Term = lir.Terminator{Kind: lir.TermUnreachable}
			preds[next] = 0
			changed = true
		}
	}
	return changed
}

// removeUnreachable deletes blocks the entry cannot reach and renumbers the
// rest in their original order.
func removeUnreachable(f *lir.Func) bool {
	reached := make([]bool, len(f.Blocks))
	work := []lir.BlockID{0}
	reached[0] = true
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range f.Blocks[id].Term.Successors() {
			if !reached[s] {
				reached[s] = true
				work = append(work, s)
			}
		}
	}
	remap := make([]lir.BlockID, len(f.Blocks))
	kept := f.Blocks[:0]
	for i, b := range f.Blocks {
		if !reached[i] {
			remap[i] = lir.NoBlock
			continue
		}
		remap[i] = lir.BlockID(len(kept))
		kept = append(kept, b)
	}
	if len(kept) == len(remap) {
		return false
	}
	for i := len(kept); i < len(f.Blocks); i++ {
		f.Blocks[i] = nil
	}
	f.Blocks = kept
	for _, b := range f.Blocks {
		b.ID = remap[b.ID]
		retarget(&b.Term, func(id lir.BlockID) lir.BlockID { return remap[id] })
	}
	return true
}
