// Package cache keeps build artifacts between compilations. Entries are keyed
// by contract path, source digest and optimizer profile, so any change to one
// of them misses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/optimizer"
)

// Key identifies a cached artifact.
type Key struct {
	Contract string
	Source   [32]byte
	// Profile renders the optimizer settings and anything else that changes
	// the output, such as the memory configuration.
	Profile string
}

// Digest hashes the key.
func (k Key) Digest() [32]byte {
	h := sha256.New()
	_, _ = h.Write([]byte(k.Contract))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(k.Source[:])
	_, _ = h.Write([]byte(k.Profile))
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func (k Key) String() string {
	d := k.Digest()
	return hex.EncodeToString(d[:])
}

// Cache stores artifacts. Implementations are safe for concurrent use.
type Cache interface {
	Get(key Key) (*buildpipeline.Artifact, bool, error)
	Put(key Key, art *buildpipeline.Artifact) error
}

// schemaVersion is bumped whenever payload changes.
const schemaVersion uint16 = 1

// payload is the stored form of an artifact. Timings and the build state are
// not kept.
type payload struct {
	Schema       uint16
	Contract     string
	Source       [32]byte
	Profile      string
	Bytecode     []byte
	Format       object.Format
	Hash         object.Hash
	Unresolved   []string
	MetadataHash []byte
	Assembly     string
	LLVMIR       string
	Level        optimizer.Level
	BackEnd      optimizer.Level
	Fallback     bool
	Attempts     int
}

func toPayload(key Key, art *buildpipeline.Artifact) *payload {
	return &payload{
		Schema:       schemaVersion,
		Contract:     key.Contract,
		Source:       key.Source,
		Profile:      key.Profile,
		Bytecode:     art.Bytecode,
		Format:       art.Format,
		Hash:         art.Hash,
		Unresolved:   art.Unresolved,
		MetadataHash: art.MetadataHash,
		Assembly:     art.Assembly,
		LLVMIR:       art.LLVMIR,
		Level:        art.Settings.Level,
		BackEnd:      art.Settings.BackEnd,
		Fallback:     art.Settings.FallbackToSize,
		Attempts:     art.Attempts,
	}
}

// artifact rebuilds the artifact, or returns nil when p belongs to another
// key or schema.
func (p *payload) artifact(key Key) *buildpipeline.Artifact {
	if p == nil || p.Schema != schemaVersion || p.Contract != key.Contract || p.Source != key.Source || p.Profile != key.Profile {
		return nil
	}
	art := &buildpipeline.Artifact{
		Path:         p.Contract,
		Bytecode:     p.Bytecode,
		Format:       p.Format,
		Hash:         p.Hash,
		Unresolved:   p.Unresolved,
		MetadataHash: p.MetadataHash,
		Assembly:     p.Assembly,
		LLVMIR:       p.LLVMIR,
		Settings:     optimizer.Settings{Level: p.Level, BackEnd: p.BackEnd, FallbackToSize: p.Fallback},
		Attempts:     p.Attempts,
		State:        buildpipeline.StateCodeEmitted,
	}
	if art.Linked() {
		art.State = buildpipeline.StateBuilt
	}
	return art
}
