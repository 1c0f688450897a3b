// Package irtest builds small IR fixtures for the µTX hardener's test
// suites, mirroring the C-level scenarios spec §8 names (good_0, good_1,
// bad_0, bad_1, bad_2) without depending on a C front end — the front end
// is an external collaborator out of scope for this module (spec §1), so
// fixtures here are assembled directly with github.com/llir/llvm builders.
package irtest

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
)

// NewModule returns an empty module.
func NewModule() *ir.Module {
	return &ir.Module{}
}

// arrayI32x4 is the `int a[4]` type used by every scenario in spec §8.
func arrayI32x4() *types.ArrayType {
	return types.NewArray(4, types.I32)
}

// AppendFunc declares a void-returning, no-argument function named name
// in module and returns it with a single empty entry block appended.
func AppendFunc(module *ir.Module, name string) (*ir.Func, *ir.Block) {
	fn := module.NewFunc(name, types.Void)
	entry := ir.NewBlock("entry")
	entry.Parent = fn
	fn.Blocks = append(fn.Blocks, entry)
	return fn, entry
}

// Good0 builds: int a[4]; utx1(a, 32); a[0]=1; a[3]=4; utx0(); return.
func Good0(module *ir.Module, name string) *ir.Func {
	fn, entry := AppendFunc(module, name)
	arrTyp := arrayI32x4()
	arr := ir.NewAlloca(arrTyp)
	entry.Insts = append(entry.Insts, arr)

	utx1 := module.NewFunc("utx1", types.Void, ir.NewParam("", types.NewPointer(types.I8)), ir.NewParam("", types.I64))
	utx0 := module.NewFunc("utx0", types.Void)

	call1 := ir.NewCall(utx1, arr, constant.NewInt(types.I64, 32))
	entry.Insts = append(entry.Insts, call1)

	idx0 := ir.NewGetElementPtr(arrTyp, arr, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 0))
	store0 := ir.NewStore(constant.NewInt(types.I32, 1), idx0)
	idx0.Align = 4
	store0.Align = 4
	entry.Insts = append(entry.Insts, idx0, store0)

	idx3 := ir.NewGetElementPtr(arrTyp, arr, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 3))
	store3 := ir.NewStore(constant.NewInt(types.I32, 4), idx3)
	store3.Align = 4
	entry.Insts = append(entry.Insts, idx3, store3)

	call0 := ir.NewCall(utx0)
	entry.Insts = append(entry.Insts, call0)

	entry.Term = ir.NewRet(nil)
	return fn
}

// Bad0 builds a function that accesses memory with no utx1 ever called.
func Bad0(module *ir.Module, name string) *ir.Func {
	fn, entry := AppendFunc(module, name)
	arrTyp := arrayI32x4()
	arr := ir.NewAlloca(arrTyp)
	entry.Insts = append(entry.Insts, arr)

	// Simulate an access through an opaque pointer (not the local alloca
	// itself) so the stack_-prefix trust rule doesn't apply: a parameter.
	p := ir.NewParam("p", types.NewPointer(types.I32))
	fn.Params = append(fn.Params, p)
	store := ir.NewStore(constant.NewInt(types.I32, 0), p)
	store.Align = 4
	entry.Insts = append(entry.Insts, store)

	entry.Term = ir.NewRet(nil)
	return fn
}

// Bad1 builds: int a[4]; utx1(a, 16); a[4]=0;  (one past the end of both
// the 16-byte array and the 16-byte window).
func Bad1(module *ir.Module, name string) *ir.Func {
	fn, entry := AppendFunc(module, name)
	arrTyp := arrayI32x4()
	arr := ir.NewAlloca(arrTyp)
	entry.Insts = append(entry.Insts, arr)

	utx1 := module.NewFunc("utx1", types.Void, ir.NewParam("", types.NewPointer(types.I8)), ir.NewParam("", types.I64))
	call1 := ir.NewCall(utx1, arr, constant.NewInt(types.I64, 16))
	entry.Insts = append(entry.Insts, call1)

	idx4 := ir.NewGetElementPtr(arrTyp, arr, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 4))
	store4 := ir.NewStore(constant.NewInt(types.I32, 0), idx4)
	store4.Align = 4
	entry.Insts = append(entry.Insts, idx4, store4)

	entry.Term = ir.NewRet(nil)
	return fn
}

// Bad2 builds: int a[4]; utx1(a, 8); a[3]=0; (past the declared half-length:
// bytes 12..16 against an 8-byte window over a 16-byte array).
func Bad2(module *ir.Module, name string) *ir.Func {
	fn, entry := AppendFunc(module, name)
	arrTyp := arrayI32x4()
	arr := ir.NewAlloca(arrTyp)
	entry.Insts = append(entry.Insts, arr)

	utx1 := module.NewFunc("utx1", types.Void, ir.NewParam("", types.NewPointer(types.I8)), ir.NewParam("", types.I64))
	call1 := ir.NewCall(utx1, arr, constant.NewInt(types.I64, 8))
	entry.Insts = append(entry.Insts, call1)

	idx3 := ir.NewGetElementPtr(arrTyp, arr, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 3))
	store3 := ir.NewStore(constant.NewInt(types.I32, 0), idx3)
	store3.Align = 4
	entry.Insts = append(entry.Insts, idx3, store3)

	entry.Term = ir.NewRet(nil)
	return fn
}

// Good1 builds spec §8 scenario 2: int a[4]; utx1(a, 16); for (i = 0;
// i < 4; i++) a[i] = i; utx0(); return. The loop's induction variable is a
// genuine φ-node joining the entry and loop-body predecessors, so this
// fixture is what exercises the CFG Splitter's phi-rewrite path once the
// Instrumentation Pass splits loop.body at the store it contains.
func Good1(module *ir.Module, name string) *ir.Func {
	fn, entry := AppendFunc(module, name)
	arrTyp := arrayI32x4()
	arr := ir.NewAlloca(arrTyp)
	entry.Insts = append(entry.Insts, arr)

	utx1 := module.NewFunc("utx1", types.Void, ir.NewParam("", types.NewPointer(types.I8)), ir.NewParam("", types.I64))
	utx0 := module.NewFunc("utx0", types.Void)
	call1 := ir.NewCall(utx1, arr, constant.NewInt(types.I64, 16))
	entry.Insts = append(entry.Insts, call1)

	header := ir.NewBlock("loop.header")
	header.Parent = fn
	body := ir.NewBlock("loop.body")
	body.Parent = fn
	exit := ir.NewBlock("loop.exit")
	exit.Parent = fn

	entry.Term = ir.NewBr(header)

	iv := ir.NewPhi(
		ir.NewIncoming(constant.NewInt(types.I64, 0), entry),
	)
	header.Insts = append(header.Insts, iv)
	cmp := ir.NewICmp(enum.IPredSLT, iv, constant.NewInt(types.I64, 4))
	header.Insts = append(header.Insts, cmp)
	header.Term = ir.NewCondBr(cmp, body, exit)

	idx := ir.NewGetElementPtr(arrTyp, arr, constant.NewInt(types.I64, 0), iv)
	store := ir.NewStore(iv, idx)
	store.Align = 4
	next := ir.NewAdd(iv, constant.NewInt(types.I64, 1))
	body.Insts = append(body.Insts, idx, store, next)
	body.Term = ir.NewBr(header)

	iv.Incs = append(iv.Incs, ir.NewIncoming(next, body))

	call0 := ir.NewCall(utx0)
	exit.Insts = append(exit.Insts, call0)
	exit.Term = ir.NewRet(nil)

	fn.Blocks = append(fn.Blocks, header, body, exit)
	return fn
}

// globalArrayI32x4 declares a global `int g[4]` in module, named globalName.
func globalArrayI32x4(module *ir.Module, globalName string) *ir.Global {
	arrTyp := arrayI32x4()
	return module.NewGlobalDef(globalName, constant.NewZeroInitializer(arrTyp))
}

// Good2 builds: int g[4] (global); utx1(g, 16); g[2] = 9; utx0(); return.
// The access is a constant-index GEP rooted directly at a named global, the
// one shape parseConstantGEP recognises — this is the fixture spec §8 item
// 6's "verify(good_2) -> accept" case and the shadow pre-pass's case (b)
// exercise, since an alloca-rooted GEP never carries a `@symbol` in its
// printed form the way a global-rooted one does.
func Good2(module *ir.Module, name string) *ir.Func {
	fn, entry := AppendFunc(module, name)
	arrTyp := arrayI32x4()
	g := globalArrayI32x4(module, "g_"+name)

	utx1 := module.NewFunc("utx1", types.Void, ir.NewParam("", types.NewPointer(types.I8)), ir.NewParam("", types.I64))
	utx0 := module.NewFunc("utx0", types.Void)
	call1 := ir.NewCall(utx1, g, constant.NewInt(types.I64, 16))
	entry.Insts = append(entry.Insts, call1)

	idx2 := ir.NewGetElementPtr(arrTyp, g, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 2))
	store2 := ir.NewStore(constant.NewInt(types.I32, 9), idx2)
	store2.Align = 4
	entry.Insts = append(entry.Insts, idx2, store2)

	call0 := ir.NewCall(utx0)
	entry.Insts = append(entry.Insts, call0)

	entry.Term = ir.NewRet(nil)
	return fn
}
