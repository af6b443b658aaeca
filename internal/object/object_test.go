package object_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/paritytech/revive-sub000/internal/emit"
	"github.com/paritytech/revive-sub000/internal/interp"
	"github.com/paritytech/revive-sub000/internal/lir"
	"github.com/paritytech/revive-sub000/internal/object"
	"github.com/paritytech/revive-sub000/internal/runtimeabi"
)

func module(t *testing.T, deps ...string) *lir.Module {
	t.Helper()
	c := emit.NewContext("parent", emit.Options{Memory: runtimeabi.DefaultMemoryConfig()})
	if err := c.BeginCode(emit.CodeRuntime); err != nil {
		t.Fatal(err)
	}
	v := emit.Word(0)
	for _, d := range deps {
		v = c.Xor(v, c.DataOffset(d))
	}
	if err := c.MStore(emit.Word(0), v); err != nil {
		t.Fatal(err)
	}
	c.Return(emit.Word(0), emit.Word(32))
	c.EndCode()
	m, err := c.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if err := runtimeabi.Link(m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestKeccak256(t *testing.T) {
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"
	if got := object.Keccak256(nil).String(); got != want {
		t.Fatalf("keccak256(\"\") = %s", got)
	}
	h, err := object.ParseHash("0x" + want)
	if err != nil || h != object.Keccak256(nil) {
		t.Fatalf("ParseHash: %v", err)
	}
	if _, err := object.ParseHash("abcd"); err == nil {
		t.Fatal("short hash accepted")
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		data []byte
		want object.Format
		err  bool
	}{
		{[]byte("PVM\x00rest"), object.FormatPVM, false},
		{[]byte("\x7fELF\x01"), object.FormatELF, false},
		{[]byte("PVM"), 0, true},
		{nil, 0, true},
	}
	for _, tt := range tests {
		got, err := object.Detect(tt.data)
		if tt.err {
			if !errors.Is(err, object.ErrUnknownFormat) {
				t.Errorf("Detect(%q): err = %v", tt.data, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("Detect(%q) = %s, %v", tt.data, got, err)
		}
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	m := module(t)
	data, err := object.Encode(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	obj, err := object.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if obj.Format != object.FormatPVM || len(obj.Unresolved) != 0 {
		t.Fatalf("format %s, unresolved %v", obj.Format, obj.Unresolved)
	}
	if got, want := lir.Print(obj.Module), lir.Print(m); got != want {
		t.Fatalf("module changed:\n%s\nwant:\n%s", got, want)
	}
}

func TestLinkResolvesFactoryDependencies(t *testing.T) {
	data, err := object.Encode(module(t, "a.sol:A", "b.sol:B"), []byte{0xaa})
	if err != nil {
		t.Fatal(err)
	}
	if f, _ := object.Detect(data); f != object.FormatELF {
		t.Fatalf("unlinked object is %s", f)
	}
	deps, err := object.Unresolved(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 2 || deps[0] != "a.sol:A" || deps[1] != "b.sol:B" {
		t.Fatalf("unresolved %v", deps)
	}

	ha, hb := object.Keccak256([]byte("A")), object.Keccak256([]byte("B"))
	partial, format, err := object.Link(data, map[string]object.Hash{"a.sol:A": ha})
	if err != nil {
		t.Fatal(err)
	}
	if format != object.FormatELF {
		t.Fatalf("partially linked object is %s", format)
	}
	linked, format, err := object.Link(partial, map[string]object.Hash{"b.sol:B": hb})
	if err != nil {
		t.Fatal(err)
	}
	if format != object.FormatPVM {
		t.Fatalf("linked object is %s", format)
	}

	obj, err := object.Decode(linked)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(obj.Metadata, []byte{0xaa}) {
		t.Fatalf("metadata %x lost in linking", obj.Metadata)
	}
	if err := lir.Verify(obj.Module); err != nil {
		t.Fatal(err)
	}
	vm, err := interp.New(obj.Module, interp.NewMockHost(), interp.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := vm.Run(runtimeabi.ExportCall)
	if err != nil {
		t.Fatal(err)
	}
	want := make([]byte, 32)
	for i := range want {
		want[i] = ha[i] ^ hb[i]
	}
	if !bytes.Equal(res.Output, want) {
		t.Fatalf("output %x, want %x", res.Output, want)
	}
}

func TestLinkRejectsForeignSymbols(t *testing.T) {
	m := module(t)
	m.Globals = append(m.Globals, &lir.Global{Name: "mystery", Type: lir.Word, Linkage: lir.LinkExternal})
	data, err := object.Encode(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := object.Link(data, nil); err == nil {
		t.Fatal("undefined symbol linked")
	}
}
