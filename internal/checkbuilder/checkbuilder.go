// Package checkbuilder implements the Check Builder (spec §4.3, component
// C): it emits, at the end of a pre-split block, the null/range bounds
// check sequence and terminates that block with a conditional branch to
// either the abort block or the post-split continuation.
package checkbuilder

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/enum"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"
)

// Globals bundles the two module-scope µTX state globals (spec §3).
type Globals struct {
	ProtectedBase   *ir.Global // i8*, initial null
	ProtectedLength *ir.Global // i64, initial 0
}

// Build emits the ten-step check described by spec §4.3 at the end of
// preBlock and terminates it with a conditional branch: violated jumps to
// abortBlock, anything else falls through to postBlock. accessed is the
// pointer being read or written; width is the access width in bytes
// (spec §4.1's Get-alignment result).
//
// The "below" comparison is a direct signed pointer compare (no ptrtoint
// needed for two pointers of the same type); ptrtoint is only used where
// arithmetic forces the value into the integer domain, for the "last
// protected"/"last accessed" additions — mirroring the original
// inkwell-based prototype's build order exactly (original_source's
// src/runtime.rs _build_check), which is the literal basis for spec §4.3.
func Build(preBlock, postBlock, abortBlock *ir.Block, globals Globals, accessed value.Value, width int64) error {
	ptrType := types.NewPointer(types.I8)

	// 0. a8 <- bitcast accessed to i8* (accessed may be typed, e.g. i32*;
	// the comparisons below need it in the same pointer type as pb).
	a8 := ir.NewBitCast(accessed, ptrType)
	preBlock.Insts = append(preBlock.Insts, a8)

	// 1. pb <- load protected_base
	pb := ir.NewLoad(ptrType, globals.ProtectedBase)
	preBlock.Insts = append(preBlock.Insts, pb)

	// 2. is_null <- pb == null
	isNull := ir.NewICmp(enum.IPredEQ, pb, constant.NewNull(ptrType))
	preBlock.Insts = append(preBlock.Insts, isNull)

	// 3. below <- a < pb (direct signed pointer compare)
	below := ir.NewICmp(enum.IPredSLT, a8, pb)
	preBlock.Insts = append(preBlock.Insts, below)

	// 4. pl <- load protected_length
	pl := ir.NewLoad(types.I64, globals.ProtectedLength)
	preBlock.Insts = append(preBlock.Insts, pl)

	// 5. pb_i <- ptr_to_int pb; last_p <- pb_i + pl
	pbInt := ir.NewPtrToInt(pb, types.I64)
	preBlock.Insts = append(preBlock.Insts, pbInt)
	lastP := ir.NewAdd(pbInt, pl)
	preBlock.Insts = append(preBlock.Insts, lastP)

	// 6. a_i <- ptr_to_int a; last_a <- a_i + w
	aInt := ir.NewPtrToInt(a8, types.I64)
	preBlock.Insts = append(preBlock.Insts, aInt)
	lastA := ir.NewAdd(aInt, constant.NewInt(types.I64, width))
	preBlock.Insts = append(preBlock.Insts, lastA)

	// 7. above <- last_a > last_p
	above := ir.NewICmp(enum.IPredSGT, lastA, lastP)
	preBlock.Insts = append(preBlock.Insts, above)

	// 8. range_bad <- below || above
	rangeBad := ir.NewOr(below, above)
	preBlock.Insts = append(preBlock.Insts, rangeBad)

	// 9. violated <- is_null || range_bad
	violated := ir.NewOr(isNull, rangeBad)
	preBlock.Insts = append(preBlock.Insts, violated)

	// 10. br violated, abort_block, post_block
	preBlock.Term = ir.NewCondBr(violated, abortBlock, postBlock)

	return nil
}
