package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/paritytech/revive-sub000/internal/buildpipeline"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/optimizer"
)

func sample() *buildpipeline.Artifact {
	blob := []byte("PVM\x00payload")
	return &buildpipeline.Artifact{
		Path:         "a.sol:A",
		Bytecode:     blob,
		Format:       object.FormatPVM,
		Hash:         object.Keccak256(blob),
		MetadataHash: []byte{9},
		Settings:     optimizer.Default(),
		Attempts:     2,
		State:        buildpipeline.StateBuilt,
	}
}

func key() Key {
	return Key{Contract: "a.sol:A", Source: [32]byte{1}, Profile: "O3"}
}

func checkSame(t *testing.T, got, want *buildpipeline.Artifact) {
	t.Helper()
	if !bytes.Equal(got.Bytecode, want.Bytecode) || got.Hash != want.Hash || got.Format != want.Format {
		t.Fatalf("artifact differs: got %+v", got)
	}
	if got.Settings != want.Settings || got.Attempts != want.Attempts || !bytes.Equal(got.MetadataHash, want.MetadataHash) {
		t.Fatalf("artifact settings differ: got %+v", got)
	}
	if got.State != buildpipeline.StateBuilt {
		t.Fatalf("state %s", got.State)
	}
}

func TestCaches(t *testing.T) {
	disk, err := OpenDisk(t.TempDir(), "revive")
	if err != nil {
		t.Fatal(err)
	}
	caches := map[string]Cache{"memory": NewMemory(1), "disk": disk}
	for name, c := range caches {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := c.Get(key()); ok || err != nil {
				t.Fatalf("empty cache hit=%v err=%v", ok, err)
			}
			want := sample()
			if err := c.Put(key(), want); err != nil {
				t.Fatal(err)
			}
			got, ok, err := c.Get(key())
			if err != nil || !ok {
				t.Fatalf("hit=%v err=%v", ok, err)
			}
			checkSame(t, got, want)

			for _, miss := range []Key{
				{Contract: "b.sol:B", Source: [32]byte{1}, Profile: "O3"},
				{Contract: "a.sol:A", Source: [32]byte{2}, Profile: "O3"},
				{Contract: "a.sol:A", Source: [32]byte{1}, Profile: "Oz"},
			} {
				if _, ok, _ := c.Get(miss); ok {
					t.Errorf("key %+v hit", miss)
				}
			}
		})
	}
}

func TestMemoryReturnsCopies(t *testing.T) {
	c := NewMemory(1)
	if err := c.Put(key(), sample()); err != nil {
		t.Fatal(err)
	}
	got, _, _ := c.Get(key())
	got.Bytecode[0] = 'X'
	again, _, _ := c.Get(key())
	if again.Bytecode[0] != 'P' {
		t.Fatal("cached bytecode was modified through a returned artifact")
	}
}

func TestDiskIgnoresForeignPayload(t *testing.T) {
	c, err := OpenDisk(t.TempDir(), "revive")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Put(key(), sample()); err != nil {
		t.Fatal(err)
	}
	// Пишем чужой payload по пути ключа.
	other := Key{Contract: "b.sol:B", Profile: "O3"}
	if err := c.Put(other, sample()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(c.pathFor(other))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(c.pathFor(key()), data, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := c.Get(key()); ok || err != nil {
		t.Fatalf("foreign payload hit=%v err=%v", ok, err)
	}

	if err := os.WriteFile(c.pathFor(key()), []byte{0xc1}, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Get(key()); err == nil {
		t.Fatal("corrupt entry decoded")
	}

	if err := c.DropAll(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(c.Dir(), "blobs")); !os.IsNotExist(err) {
		t.Fatalf("blobs survived DropAll: %v", err)
	}
}
