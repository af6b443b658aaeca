// Package object is the container the code generator writes and the linker
// reads. A blob whose factory dependencies are all known is a PVM program;
// otherwise it is a relocatable object tagged with the ELF magic.
package object

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/crypto/sha3"

	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

// Format tells relocatable objects from linked programs.
type Format uint8

const (
	FormatELF Format = iota
	FormatPVM
)

var (
	magicELF = []byte("\x7fELF")
	magicPVM = []byte("PVM\x00")
)

// containerSchema is bumped whenever the encoded payload changes shape.
const containerSchema uint16 = 1

func (f Format) String() string {
	if f == FormatPVM {
		return "PVM"
	}
	return "ELF"
}

func (f Format) magic() []byte {
	if f == FormatPVM {
		return magicPVM
	}
	return magicELF
}

// ErrUnknownFormat is returned for data without a known magic.
var ErrUnknownFormat = errors.New("unknown object format")

// Detect returns the format of data by its magic.
func Detect(data []byte) (Format, error) {
	switch {
	case bytes.HasPrefix(data, magicPVM):
		return FormatPVM, nil
	case bytes.HasPrefix(data, magicELF):
		return FormatELF, nil
	}
	return 0, ErrUnknownFormat
}

// Hash is a keccak-256 digest.
type Hash [32]byte

func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// ParseHash reads a hex digest with an optional 0x prefix.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash has %d bytes, want %d", len(b), len(h))
	}
	copy(h[:], b)
	return h, nil
}

// Keccak256 hashes data.
func Keccak256(data []byte) Hash {
	var h Hash
	d := sha3.NewLegacyKeccak256()
	_, _ = d.Write(data)
	d.Sum(h[:0])
	return h
}

// Object is a decoded container.
type Object struct {
	Format Format
	Module *lir.Module
	// Unresolved lists the factory dependency symbols still to be linked.
	Unresolved []string
	// Metadata is the contract metadata hash, when one was requested.
	Metadata []byte
}

type payload struct {
	Schema     uint16
	Module     *lir.Module
	Unresolved []string
	Metadata   []byte
}

// Encode writes m as a container carrying the optional metadata hash. The
// format follows from the module's unresolved symbols.
func Encode(m *lir.Module, metadata []byte) ([]byte, error) {
	unresolved := m.Unresolved()
	slices.Sort(unresolved)
	format := FormatPVM
	if len(unresolved) > 0 {
		format = FormatELF
	}
	var buf bytes.Buffer
	buf.Write(format.magic())
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(&payload{Schema: containerSchema, Module: m, Unresolved: unresolved, Metadata: metadata}); err != nil {
		return nil, fmt.Errorf("encode %s: %w", m.Name, err)
	}
	return buf.Bytes(), nil
}

// Decode reads a container produced by Encode.
func Decode(data []byte) (*Object, error) {
	format, err := Detect(data)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := msgpack.Unmarshal(data[len(format.magic()):], &p); err != nil {
		return nil, fmt.Errorf("decode object: %w", err)
	}
	if p.Schema != containerSchema {
		return nil, fmt.Errorf("object schema %d, want %d", p.Schema, containerSchema)
	}
	if p.Module == nil {
		return nil, errors.New("object has no module")
	}
	return &Object{Format: format, Module: p.Module, Unresolved: p.Unresolved, Metadata: p.Metadata}, nil
}

// Link resolves the factory dependencies of data from symbols, keyed by
// contract path. Symbols that stay unknown keep the result relocatable.
// Linked programs are returned unchanged.
func Link(data []byte, symbols map[string]Hash) ([]byte, Format, error) {
	format, err := Detect(data)
	if err != nil {
		return nil, 0, err
	}
	if format == FormatPVM {
		return data, format, nil
	}
	obj, err := Decode(data)
	if err != nil {
		return nil, 0, err
	}
	for _, g := range obj.Module.Globals {
		if g.Linkage != lir.LinkExternal {
			continue
		}
		path, ok := runtimeabi.FactoryDependencyPath(g.Name)
		if !ok {
			return nil, 0, fmt.Errorf("undefined symbol %s", g.Name)
		}
		h, ok := symbols[path]
		if !ok {
			continue
		}
		if g.Type.Size() != len(h) {
			return nil, 0, fmt.Errorf("symbol %s has %d bytes, want %d", g.Name, g.Type.Size(), len(h))
		}
		g.Init = slices.Clone(h[:])
		g.Linkage = lir.LinkInternal
		g.Constant = true
	}
	out, err := Encode(obj.Module, obj.Metadata)
	if err != nil {
		return nil, 0, err
	}
	format, _ = Detect(out)
	return out, format, nil
}

// Unresolved lists the factory dependency paths data still needs.
func Unresolved(data []byte) ([]string, error) {
	obj, err := Decode(data)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(obj.Unresolved))
	for _, name := range obj.Unresolved {
		if path, ok := runtimeabi.FactoryDependencyPath(name); ok {
			out = append(out, path)
		}
	}
	return out, nil
}
