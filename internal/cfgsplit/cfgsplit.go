// Package cfgsplit implements the CFG Splitter (spec §4.2, component B):
// given a block B and an instruction I inside it, it splits B into B_pre
// (everything before I) and B_post (I and everything after), then rewrites
// every phi in every successor of B_post whose incoming predecessor was B
// so it names B_post instead — without losing the carried value.
package cfgsplit

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"utxharden/internal/hardenerr"
)

// operandHolder mirrors irnav's unexported interface; every llir/llvm
// instruction and terminator satisfies it by exposing operands as
// pointers-to-interface for in-place rewriting.
type operandHolder interface {
	Operands() []*value.Value
}

// NamePostBlock returns the deterministic name for a split's second half,
// e.g. "load3" or "store7", keyed by a per-function counter the
// Instrumentation Pass (component D) owns.
func NamePostBlock(kind string, counter int) string {
	return fmt.Sprintf("%s%d", kind, counter)
}

// Split splits block b of function fn immediately before b.Insts[at],
// inserting the new B_post block right after b in fn.Blocks. The returned
// block has no instructions preceding I; b itself is left with no
// terminator — Build (checkbuilder) supplies one. Every phi in a successor
// of the returned block that listed b as a predecessor is rewritten to
// list the returned block instead, with its carried value unchanged.
func Split(fn *ir.Func, b *ir.Block, at int, postName string) (*ir.Block, error) {
	if at < 0 || at > len(b.Insts) {
		return nil, hardenerr.MalformedIRf(hardenerr.CodeBadOperand,
			"split index %d out of range for block %q with %d instructions", at, b.Ident(), len(b.Insts))
	}

	post := ir.NewBlock(postName)
	post.Parent = fn

	post.Insts = append(post.Insts, b.Insts[at:]...)
	b.Insts = b.Insts[:at]

	post.Term = b.Term
	b.Term = nil

	insertAfter(fn, b, post)

	for _, succ := range successors(post) {
		if err := rewritePhis(succ, b, post); err != nil {
			return nil, err
		}
	}

	return post, nil
}

// insertAfter places post immediately after b in fn's block list.
func insertAfter(fn *ir.Func, b, post *ir.Block) {
	idx := -1
	for i, blk := range fn.Blocks {
		if blk == b {
			idx = i
			break
		}
	}
	if idx == -1 {
		fn.Blocks = append(fn.Blocks, post)
		return
	}
	fn.Blocks = append(fn.Blocks, nil)
	copy(fn.Blocks[idx+2:], fn.Blocks[idx+1:])
	fn.Blocks[idx+1] = post
}

// successors returns the blocks directly reachable from block's terminator.
func successors(block *ir.Block) []*ir.Block {
	switch term := block.Term.(type) {
	case *ir.TermBr:
		return []*ir.Block{term.Target}
	case *ir.TermCondBr:
		return []*ir.Block{term.TargetTrue, term.TargetFalse}
	default:
		return nil
	}
}

// rewritePhis finds every phi in succ whose incoming predecessor is
// oldPred and rebuilds it so that entry instead names newPred, per spec
// §4.2/§9: build a fresh phi with the same type, copy every old entry
// (retargeting only the affected one), replace all uses of the old phi
// with the new one across the whole function, then erase the old phi.
//
// This works directly off InstPhi's structured Incs (each already carries
// its predecessor as an *ir.Block, not just a printed label) rather than
// irnav.ParsePhiEntries's textual form — the Splitter always knows the
// exact block being retargeted, so there is no name to parse or look back
// up; that textual-match machinery exists for component A's own contract
// (spec §4.1), not as the only way to inspect a phi's entries.
func rewritePhis(succ, oldPred, newPred *ir.Block) error {
	fn := succ.Parent

	for idx, inst := range succ.Insts {
		oldPhi, ok := inst.(*ir.InstPhi)
		if !ok {
			continue
		}

		affected := false
		incs := make([]*ir.Incoming, len(oldPhi.Incs))
		for i, old := range oldPhi.Incs {
			pred := old.Pred
			if pred == oldPred {
				pred = newPred
				affected = true
			}
			incs[i] = ir.NewIncoming(old.X, pred)
		}
		if !affected {
			continue
		}

		newPhi := ir.NewPhi(incs...)
		replaceAllUses(fn, oldPhi, newPhi)
		succ.Insts[idx] = newPhi
	}
	return nil
}

// replaceAllUses rewrites every operand across fn that points at oldVal so
// it points at newVal instead, mirroring the operand-pointer rewrite idiom
// used throughout the retrieval pack's llir/llvm-based optimizers.
func replaceAllUses(fn *ir.Func, oldVal, newVal value.Value) {
	for _, block := range fn.Blocks {
		for _, inst := range block.Insts {
			if holder, ok := inst.(operandHolder); ok {
				for _, operand := range holder.Operands() {
					if *operand == value.Value(oldVal) {
						*operand = newVal
					}
				}
			}
		}
		if block.Term != nil {
			if holder, ok := block.Term.(operandHolder); ok {
				for _, operand := range holder.Operands() {
					if *operand == value.Value(oldVal) {
						*operand = newVal
					}
				}
			}
		}
	}
}
