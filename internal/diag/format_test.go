package diag

import "testing"

func TestFormatShortSortsAndRendersNotes(t *testing.T) {
	diags := []Diagnostic{
		NewError(EmitUnsupportedOpcode, At("b.evm", 4), "PC is not supported"),
		New(SevWarning, StackUnhandledOpcode, At("a.evm", 7), "opcode 0x0c").
			WithNote(At("a.evm", 0), "block starts here"),
		NewError(BuildLink, Location{Contract: "a.evm", Offset: NoOffset}, "unresolved symbol"),
	}
	got := FormatShort(diags, true)
	want := "error BLD4004 a.evm: unresolved symbol\n" +
		"warning STK2001 a.evm@0x0007: opcode 0x0c\n" +
		"  note a.evm@0x0000: block starts here\n" +
		"error EMT3001 b.evm@0x0004: PC is not supported\n"
	if got != want {
		t.Fatalf("FormatShort mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: bag})
	d := NewError(StackInvalidJump, At("c", 1), "bad jump")
	r.Report(d)
	r.Report(d)
	r.Report(NewError(StackInvalidJump, At("c", 2), "bad jump"))
	if bag.Len() != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", bag.Len())
	}
	if !bag.HasErrors() {
		t.Fatal("expected errors")
	}
}

func TestLocationString(t *testing.T) {
	tests := []struct {
		loc  Location
		want string
	}{
		{At("x", 0x1f), "x@0x001f"},
		{Location{Contract: "x", Line: 3, Column: 9}, "x:3:9"},
		{Location{Contract: "x", Offset: NoOffset}, "x"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
