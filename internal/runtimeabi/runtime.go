package runtimeabi

import (
	"fmt"

	"fortio.org/safecast"

	"github.com/paritytech/revive-sub000/internal/lir"
)

// Runtime emits the support code shared by every contract module: memory
// globals, helper functions and the exported entry points.
type Runtime struct {
	Memory MemoryConfig
	// Immutables is the number of immutable words the contract stores.
	Immutables int
}

type helper struct {
	name     string
	params   []lir.Type
	result   lir.Type
	noinline bool
	body     func(r Runtime, b *lir.Builder)
}

var ptr = lir.Ptr(lir.AddressSpaceStack)

var helpers = []helper{
	{Sbrk, []lir.Type{lir.I32, lir.I32}, ptr, true, Runtime.sbrk},
	{MSize, nil, lir.I32, false, Runtime.msize},
	{LoadHeapWord, []lir.Type{lir.I32}, lir.Word, true, Runtime.loadHeapWord},
	{StoreHeapWord, []lir.Type{lir.I32, lir.Word}, lir.Void, true, Runtime.storeHeapWord},
	{CallReentrancyProtector, []lir.Type{ptr, lir.Word, lir.I32}, lir.I32, false, Runtime.reentrancyProtector},
	{LoadImmutableData, nil, lir.Void, true, Runtime.loadImmutableData},
	{CallDataLoad, []lir.Type{lir.Word}, lir.Word, true, Runtime.callDataLoad},
	{CallDataCopy, []lir.Type{ptr, lir.Word, lir.I32}, lir.Void, true, Runtime.callDataCopy},
	{Exit, []lir.Type{lir.I32, lir.Word, lir.Word}, lir.Void, true, Runtime.exit},
}

var builtins = []struct {
	name   string
	params []lir.Type
}{
	{BuiltinAddMod, []lir.Type{lir.Word, lir.Word, lir.Word}},
	{BuiltinMulMod, []lir.Type{lir.Word, lir.Word, lir.Word}},
	{BuiltinExp, []lir.Type{lir.Word, lir.Word}},
}

// IsHelper reports whether name is a runtime helper function.
func IsHelper(name string) bool {
	for _, h := range helpers {
		if h.name == name {
			return true
		}
	}
	return false
}

// IsBuiltin reports whether name comes from the builtins library.
func IsBuiltin(name string) bool {
	for _, bi := range builtins {
		if bi.name == name {
			return true
		}
	}
	return false
}

// Validate rejects an immutable count whose data region does not fit the
// 32-bit address space.
func (r Runtime) Validate() error {
	_, err := r.immutableDataSize()
	return err
}

func (r Runtime) immutableDataSize() (uint32, error) {
	n, err := safecast.Conv[uint32](r.Immutables)
	if err != nil {
		return 0, fmt.Errorf("immutables: %w", err)
	}
	if n > (1<<32-1)/WordSize {
		return 0, fmt.Errorf("immutables: %d words overflow the address space", n)
	}
	return n * WordSize, nil
}

// ImmutableDataSize is the byte size of the immutable data region. It panics
// on a count Validate rejects.
func (r Runtime) ImmutableDataSize() uint32 {
	n, err := r.immutableDataSize()
	if err != nil {
		panic(err)
	}
	return n
}

// byteArray declares a byte array global of n bytes.
func byteArray(n uint32) lir.Type {
	length, err := safecast.Conv[int](n)
	if err != nil {
		panic(fmt.Errorf("byte array of %d: %w", n, err))
	}
	return lir.Array(8, length)
}

// Declare adds the runtime globals and the prototypes of helpers and builtins
// so code can call them before Define emits the bodies.
func (r Runtime) Declare(b *lir.Builder) {
	g := b.Globals
	g.Declare(lir.Global{Name: GlobalHeapMemory, Type: byteArray(r.Memory.HeapSize)})
	g.Declare(lir.Global{Name: GlobalHeapSize, Type: lir.I32})
	g.Declare(lir.Global{Name: GlobalCallData, Type: byteArray(r.Memory.CallDataSize)})
	g.Declare(lir.Global{Name: GlobalCallDataSize, Type: lir.I32})
	g.Declare(lir.Global{Name: GlobalImmutableData, Type: byteArray(r.ImmutableDataSize())})
	g.Declare(lir.Global{Name: GlobalImmutableDataSize, Type: lir.I32, Init: le32(r.ImmutableDataSize())})

	for _, h := range helpers {
		b.Funcs.Declare(h.name, h.params, h.result, lir.LinkInternal)
	}
	for _, bi := range builtins {
		b.Funcs.Declare(bi.name, bi.params, lir.Word, lir.LinkBuiltin)
	}
}

// Define emits the helper bodies. The builder's position is restored.
func (r Runtime) Define(b *lir.Builder) error {
	fn, block := b.Funcs.CurrentID(), b.InsertBlock()
	defer func() {
		b.Funcs.SetCurrent(fn)
		b.SetInsertPoint(block)
	}()
	for _, h := range helpers {
		id, err := b.Funcs.Define(h.name, h.params, h.result, lir.LinkInternal)
		if err != nil {
			return fmt.Errorf("runtime helper: %w", err)
		}
		b.EnterFunc(id)
		b.Func().NoInline = h.noinline
		h.body(r, b)
	}
	return nil
}

// DefineEntry emits an exported entry point that reads the call data, runs
// the code function and returns successfully with no data when it falls
// through.
func (r Runtime) DefineEntry(b *lir.Builder, export, code string) error {
	id, err := b.Funcs.Define(export, nil, lir.Void, lir.LinkExport)
	if err != nil {
		return fmt.Errorf("entry %s: %w", export, err)
	}
	b.EnterFunc(id)
	size := b.Globals.Pointer(GlobalCallDataSize, lir.I32)
	b.Store(size, lir.Const(lir.I32, uint64(r.Memory.CallDataSize)))
	data := b.Globals.Pointer(GlobalCallData, lir.I8)
	CallImport(b, Input, b.PtrToInt(data), b.PtrToInt(size))
	b.Call(code)
	zero := lir.Const(lir.I32, 0)
	CallImport(b, SealReturn, zero, zero, zero)
	b.Unreachable()
	return nil
}

func gep(b *lir.Builder, p lir.Pointer, index lir.Value) lir.Pointer {
	q, err := b.GEP(p, index)
	if err != nil {
		panic(err)
	}
	return q
}

func trapBlock(b *lir.Builder) lir.BlockID {
	cur := b.InsertBlock()
	trap := b.AppendBlock("trap")
	b.SetInsertPoint(trap)
	b.Trap()
	b.Unreachable()
	b.SetInsertPoint(cur)
	return trap
}

// sbrk returns a pointer to offset in the heap and grows the recorded heap
// size to cover size bytes from there, rounded up to whole words. Traps when
// the region leaves the configured heap.
func (r Runtime) sbrk(b *lir.Builder) {
	f := b.Func()
	offset, size := f.Param(0), f.Param(1)
	heapSize := lir.Const(lir.I32, uint64(r.Memory.HeapSize))

	ret := b.AppendBlock("return_pointer")
	body := b.AppendBlock("body")
	b.CondBr(b.ICmp(lir.PredEQ, size, lir.Const(lir.I32, 0)), ret, body)

	b.SetInsertPoint(body)
	trap := trapBlock(b)
	offsetOK := b.AppendBlock("offset_in_bounds")
	b.CondBr(b.ICmp(lir.PredUGE, offset, heapSize), trap, offsetOK)

	b.SetInsertPoint(offsetOK)
	sizeOK := b.AppendBlock("size_in_bounds")
	b.CondBr(b.ICmp(lir.PredUGT, size, heapSize), trap, sizeOK)

	b.SetInsertPoint(sizeOK)
	mask := lir.Const(lir.I32, WordSize-1)
	total := b.Add(offset, size)
	memorySize := b.And(b.Add(total, mask), b.Not(mask))
	totalOK := b.AppendBlock("total_size_in_bounds")
	b.CondBr(b.ICmp(lir.PredUGT, memorySize, heapSize), trap, totalOK)

	b.SetInsertPoint(totalOK)
	msize := b.Globals.Pointer(GlobalHeapSize, lir.I32)
	grow := b.AppendBlock("new_size")
	b.CondBr(b.ICmp(lir.PredUGT, memorySize, b.Load(msize)), grow, ret)

	b.SetInsertPoint(grow)
	b.Store(msize, memorySize)
	b.Br(ret)

	b.SetInsertPoint(ret)
	heap := b.Globals.Pointer(GlobalHeapMemory, lir.I8)
	b.Ret(gep(b, heap, offset).Value())
}

func (r Runtime) msize(b *lir.Builder) {
	b.Ret(b.Load(b.Globals.Pointer(GlobalHeapSize, lir.I32)))
}

// loadHeapWord reads the big-endian word at offset.
func (r Runtime) loadHeapWord(b *lir.Builder) {
	p := b.Call(Sbrk, b.Func().Param(0), lir.Const(lir.I32, WordSize))
	v := b.Load(lir.AsPointer(p, lir.Word))
	b.Ret(b.BSwap(v))
}

// storeHeapWord writes a word big-endian at offset.
func (r Runtime) storeHeapWord(b *lir.Builder) {
	f := b.Func()
	p := b.Call(Sbrk, f.Param(0), lir.Const(lir.I32, WordSize))
	b.Store(lir.AsPointer(p, lir.Word), b.BSwap(f.Param(1)))
	b.RetVoid()
}

// reentrancyProtector classifies a value-bearing call as a plain balance
// transfer when it has neither input nor output and at most the transfer gas
// stipend. Transfers get a zero deposit limit and no re-entrancy; every other
// call gets an unlimited deposit and the reentrant flag. Branch free.
func (r Runtime) reentrancyProtector(b *lir.Builder) {
	f := b.Func()
	deposit, gas, lengths := f.Param(0), f.Param(1), f.Param(2)

	noData := b.ICmp(lir.PredEQ, lengths, lir.Const(lir.I32, 0))
	stipend := b.ICmp(lir.PredULE, gas, lir.Const(lir.Word, TransferGasStipend))
	isTransfer := b.And(noData, stipend)
	isRegular := b.Not(isTransfer)

	flags := b.Shl(b.ZExt(isRegular, lir.I32), lir.Const(lir.I32, 3))
	b.Store(lir.AsPointer(deposit, lir.Word), b.SExt(isRegular, lir.Word))
	b.Ret(flags)
}

// loadImmutableData fetches the immutable data from the host on first use.
// The size global holds the expected size until then and zero afterwards.
func (r Runtime) loadImmutableData(b *lir.Builder) {
	sizePtr := b.Globals.Pointer(GlobalImmutableDataSize, lir.I32)
	expected := b.Load(sizePtr)

	ret := b.AppendBlock("return")
	fetch := b.AppendBlock("load_immutables")
	b.CondBr(b.ICmp(lir.PredEQ, expected, lir.Const(lir.I32, 0)), ret, fetch)

	b.SetInsertPoint(fetch)
	data := b.Globals.Pointer(GlobalImmutableData, lir.I8)
	CallImport(b, GetImmutableData, b.PtrToInt(data), b.PtrToInt(sizePtr))
	written := b.Load(sizePtr)
	b.Store(sizePtr, lir.Const(lir.I32, 0))
	overflow := b.AppendBlock("immutable_data_overflow")
	b.CondBr(b.ICmp(lir.PredUGT, expected, written), overflow, ret)

	b.SetInsertPoint(overflow)
	b.Trap()
	b.Unreachable()

	b.SetInsertPoint(ret)
	b.RetVoid()
}

// callDataLoad reads the big-endian word at offset, zero padded past the end
// of the call data.
func (r Runtime) callDataLoad(b *lir.Builder) {
	offset := b.Func().Param(0)
	size := b.Load(b.Globals.Pointer(GlobalCallDataSize, lir.I32))

	load := b.AppendBlock("load")
	zero := b.AppendBlock("out_of_bounds")
	b.CondBr(b.ICmp(lir.PredULT, offset, b.ZExt(size, lir.Word)), load, zero)

	b.SetInsertPoint(zero)
	b.Ret(lir.Const(lir.Word, 0))

	b.SetInsertPoint(load)
	buf := b.Alloca(lir.Word)
	b.Store(buf, lir.Const(lir.Word, 0))
	offset32 := b.Trunc(offset, lir.I32)
	available := b.Sub(size, offset32)
	word := lir.Const(lir.I32, WordSize)
	n := b.Select(b.ICmp(lir.PredULT, available, word), available, word)
	src := gep(b, b.Globals.Pointer(GlobalCallData, lir.I8), offset32)
	b.MemCpy(buf, src, n)
	b.Ret(b.BSwap(b.Load(buf)))
}

// callDataCopy copies size bytes of call data from offset to dst, zero
// filling whatever lies past the end of the call data. Branch free.
func (r Runtime) callDataCopy(b *lir.Builder) {
	f := b.Func()
	dst, offset, size := lir.AsPointer(f.Param(0), lir.I8), f.Param(1), f.Param(2)
	total := b.Load(b.Globals.Pointer(GlobalCallDataSize, lir.I32))

	inBounds := b.ICmp(lir.PredULT, offset, b.ZExt(total, lir.Word))
	start := b.Select(inBounds, b.Trunc(offset, lir.I32), total)
	available := b.Sub(total, start)
	n := b.Select(b.ICmp(lir.PredULT, available, size), available, size)

	src := gep(b, b.Globals.Pointer(GlobalCallData, lir.I8), start)
	b.MemCpy(dst, src, n)
	b.MemSet(gep(b, dst, n), lir.Const(lir.I8, 0), b.Sub(size, n))
	b.RetVoid()
}

// exit returns the heap region [offset, offset+length) to the host.
func (r Runtime) exit(b *lir.Builder) {
	f := b.Func()
	offset := SafeTruncate(b, f.Param(1))
	length := SafeTruncate(b, f.Param(2))
	p := b.Call(Sbrk, offset, length)
	CallImport(b, SealReturn, f.Param(0), b.PtrToInt(lir.AsPointer(p, lir.I8)), length)
	b.Unreachable()
}
