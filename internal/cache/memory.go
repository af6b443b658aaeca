package cache

import (
	"slices"
	"sync"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
)

type entry struct {
	key Key
	art buildpipeline.Artifact
}

// Memory is a per-process cache. A contract keeps one entry; a new source
// or profile replaces it.
type Memory struct {
	mu         sync.RWMutex
	byContract map[string]entry
}

// NewMemory creates a Memory cache with the given capacity hint.
func NewMemory(capHint int) *Memory {
	return &Memory{byContract: make(map[string]entry, capHint)}
}

func (c *Memory) Get(key Key) (*buildpipeline.Artifact, bool, error) {
	c.mu.RLock()
	rec, ok := c.byContract[key.Contract]
	c.mu.RUnlock()
	if !ok || rec.key != key {
		return nil, false, nil
	}
	art := clone(&rec.art)
	return art, true, nil
}

func (c *Memory) Put(key Key, art *buildpipeline.Artifact) error {
	c.mu.Lock()
	c.byContract[key.Contract] = entry{key: key, art: *clone(art)}
	c.mu.Unlock()
	return nil
}

// Len returns the number of entries.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byContract)
}

// clone copies the slices callers may mutate during relinking.
func clone(art *buildpipeline.Artifact) *buildpipeline.Artifact {
	cp := *art
	cp.Bytecode = slices.Clone(art.Bytecode)
	cp.Unresolved = slices.Clone(art.Unresolved)
	cp.FactoryDependencies = nil
	return &cp
}
