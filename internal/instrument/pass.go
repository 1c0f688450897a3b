// Package instrument implements the Instrumentation Pass (spec §4.4,
// component D): it drives the IR Navigator, CFG Splitter, and Check
// Builder to rewrite a function's control-flow graph so that every memory
// access is preceded by a bounds check against the currently-active
// protected window.
package instrument

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"utxharden/internal/cfgsplit"
	"utxharden/internal/checkbuilder"
	"utxharden/internal/hardenerr"
	"utxharden/internal/irnav"
	"utxharden/internal/verify"
)

// Options configures a single run of the Instrumentation Pass.
type Options struct {
	// Static enables the suppression pre-pass (spec §4.5): accesses the
	// shadow window proves in-bounds skip their runtime check.
	Static bool

	// ResetOnClose selects the non-default reading of the spec §9 open
	// question on utx0() semantics: when true, utx0() re-establishes the
	// null sentinel (store null/0 to the globals) instead of merely being
	// erased. Default false, matching spec.md's literal text (see
	// DESIGN.md, "Open-question decisions").
	ResetOnClose bool

	// AbortSymbol names the external abort function (spec §6). Defaults
	// to "abort" when empty.
	AbortSymbol string
}

func (o Options) abortSymbol() string {
	if o.AbortSymbol == "" {
		return "abort"
	}
	return o.AbortSymbol
}

// pass carries the per-function state of the Instrumentation Pass: the
// load/store/alloca counters, the installed globals and abort block, and
// the shadow window. The block currently being scanned is walkBlock's
// local cursor, not a field here.
type pass struct {
	opts Options

	loadCounter   int
	storeCounter  int
	allocaCounter int

	globals checkbuilder.Globals
	abort   *ir.Block
	shadow  *verify.Shadow
}

// Harden runs the Instrumentation Pass over the named function of module,
// per spec §4.4. On success the module is mutated in place; on failure the
// caller must discard the (partially transformed) module, per spec §7.
func Harden(module *ir.Module, functionName string, opts Options) error {
	fn := findFunc(module, functionName)
	if fn == nil {
		return hardenerr.MissingFunctionf(functionName)
	}
	if len(fn.Blocks) == 0 {
		return hardenerr.MissingFunctionf(functionName)
	}

	p := &pass{opts: opts, shadow: verify.NewShadow()}

	// Block naming: assign deterministic names bb0, bb1, ... to every
	// pre-existing block before the sweep begins.
	original := append([]*ir.Block(nil), fn.Blocks...)
	for idx, b := range original {
		b.SetName(fmt.Sprintf("bb%d", idx))
	}

	if err := p.installAbortBlock(module, fn); err != nil {
		return err
	}
	p.installGlobals(module)

	for _, b := range original {
		if err := p.walkBlock(fn, b); err != nil {
			return err
		}
	}

	return nil
}

// installAbortBlock appends the abort block (spec §3/§4.4), declaring the
// external abort() function if it is not already present.
func (p *pass) installAbortBlock(module *ir.Module, fn *ir.Func) error {
	abortFn := findFunc(module, p.opts.abortSymbol())
	if abortFn == nil {
		abortFn = module.NewFunc(p.opts.abortSymbol(), types.Void)
	}

	block := ir.NewBlock("abort")
	block.Parent = fn
	block.Insts = append(block.Insts, ir.NewCall(abortFn))
	block.Term = ir.NewUnreachable()

	fn.Blocks = append(fn.Blocks, block)
	p.abort = block
	return nil
}

// installGlobals declares protected_base/protected_length if absent.
func (p *pass) installGlobals(module *ir.Module) {
	ptrType := types.NewPointer(types.I8)

	base := findGlobal(module, "protected_base")
	if base == nil {
		base = module.NewGlobalDef("protected_base", constant.NewNull(ptrType))
	}
	length := findGlobal(module, "protected_length")
	if length == nil {
		length = module.NewGlobalDef("protected_length", constant.NewInt(types.I64, 0))
	}

	p.globals = checkbuilder.Globals{ProtectedBase: base, ProtectedLength: length}
}

// walkBlock performs the forward sweep of spec §4.4 over block b and every
// block a split produces from it, following the chain until every
// instruction originally in b (and anything split off from it) has been
// handled.
func (p *pass) walkBlock(fn *ir.Func, b *ir.Block) error {
	cur := b
	i := 0
	for i < len(cur.Insts) {
		inst := cur.Insts[i]

		switch v := inst.(type) {
		case *ir.InstCall:
			name := calleeName(v)
			switch name {
			case "utx0":
				if p.opts.ResetOnClose {
					if err := p.emitReset(cur, i); err != nil {
						return err
					}
					// emitReset replaces the call in place with two
					// stores; advance past them.
					i += 2
					continue
				}
				cur.Insts = removeAt(cur.Insts, i)
				p.shadow.Clear()
				continue

			case "utx1":
				if len(v.Args) != 2 {
					return hardenerr.MalformedIRf(hardenerr.CodeBadOperand,
						"utx1 call %q does not have exactly two arguments", v.String())
				}
				ptr, length := v.Args[0], v.Args[1]
				store1 := ir.NewStore(ptr, p.globals.ProtectedBase)
				store2 := ir.NewStore(length, p.globals.ProtectedLength)
				cur.Insts = replaceAt(cur.Insts, i, store1, store2)
				if p.opts.Static {
					p.shadow.Open(ptr, length)
				}
				i += 2
				continue
			}
			i++

		case *ir.InstAlloca:
			v.SetName(fmt.Sprintf("stack_%d", p.allocaCounter))
			p.allocaCounter++
			i++

		case *ir.InstLoad:
			handled, next, err := p.maybeCheck(fn, cur, i, v.Src, loadKind)
			if err != nil {
				return err
			}
			if handled {
				cur = next.block
				i = next.index
				continue
			}
			i++

		case *ir.InstStore:
			handled, next, err := p.maybeCheck(fn, cur, i, v.Dst, storeKind)
			if err != nil {
				return err
			}
			if handled {
				cur = next.block
				i = next.index
				continue
			}
			i++

		default:
			i++
		}
	}
	return nil
}

type splitPoint struct {
	block *ir.Block
	index int
}

type accessKind int

const (
	loadKind accessKind = iota
	storeKind
)

// maybeCheck implements spec §4.4's load/store handling: skip trusted
// alloca-local accesses and provably-safe accesses, otherwise split and
// emit a runtime check. handled is false when the instruction needed no
// transformation and the sweep should simply advance past it.
func (p *pass) maybeCheck(fn *ir.Func, block *ir.Block, idx int, ptr value.Value, kind accessKind) (bool, splitPoint, error) {
	if isStackLocal(ptr) {
		return false, splitPoint{}, nil
	}

	width, err := irnav.GetAlignment(block.Insts[idx])
	if err != nil {
		return false, splitPoint{}, err
	}

	if p.opts.Static && p.shadow.SafeAccess(ptr, width) {
		return false, splitPoint{}, nil
	}

	var counter *int
	var namePrefix string
	if kind == loadKind {
		counter, namePrefix = &p.loadCounter, "load"
	} else {
		counter, namePrefix = &p.storeCounter, "store"
	}
	postName := cfgsplit.NamePostBlock(namePrefix, *counter)
	*counter++

	post, err := cfgsplit.Split(fn, block, idx, postName)
	if err != nil {
		return false, splitPoint{}, err
	}
	if err := checkbuilder.Build(block, post, p.abort, p.globals, ptr, width); err != nil {
		return false, splitPoint{}, err
	}

	// The checked access itself is post.Insts[0]; resume the sweep after it.
	return true, splitPoint{block: post, index: 1}, nil
}

// emitReset implements the non-default ResetOnClose reading of utx0():
// store null/0 back into the globals in place of the erased call.
func (p *pass) emitReset(block *ir.Block, idx int) error {
	ptrType := types.NewPointer(types.I8)
	store1 := ir.NewStore(constant.NewNull(ptrType), p.globals.ProtectedBase)
	store2 := ir.NewStore(constant.NewInt(types.I64, 0), p.globals.ProtectedLength)
	block.Insts = replaceAt(block.Insts, idx, store1, store2)
	p.shadow.Clear()
	return nil
}

func isStackLocal(v value.Value) bool {
	named, ok := v.(interface{ Name() string })
	if !ok {
		return false
	}
	return strings.HasPrefix(named.Name(), "stack_")
}

func calleeName(call *ir.InstCall) string {
	named, ok := call.Callee.(interface{ Name() string })
	if !ok {
		return ""
	}
	return named.Name()
}

func findFunc(module *ir.Module, name string) *ir.Func {
	for _, f := range module.Funcs {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

func findGlobal(module *ir.Module, name string) *ir.Global {
	for _, g := range module.Globals {
		if g.Name() == name {
			return g
		}
	}
	return nil
}

func removeAt(insts []ir.Instruction, idx int) []ir.Instruction {
	return append(insts[:idx], insts[idx+1:]...)
}

func replaceAt(insts []ir.Instruction, idx int, with ...ir.Instruction) []ir.Instruction {
	tail := append([]ir.Instruction(nil), insts[idx+1:]...)
	out := append(insts[:idx], with...)
	return append(out, tail...)
}
