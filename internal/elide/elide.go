// Package elide implements the Call-Elision Utility (spec §4.6, component
// F): remove named call sites from a function. It is a standalone
// transform; the Instrumentation Pass does not call it and removes the
// utx0/utx1 calls it lifts itself.
package elide

import (
	"strings"

	"github.com/llir/llvm/ir"

	"utxharden/internal/hardenerr"
)

// EraseCalls scans every instruction in every block of fn and erases any
// call whose printed form contains calleeName, per spec §4.6's literal
// text-match contract (grounded on original_source's
// remove_function_call, which matches `instr.to_string().contains(callee_name)`
// verbatim). It returns the number of calls erased.
//
// The match is against LLString, the instruction's full printed
// definition ("call void @utx0()") — Value.String() on an *ir.InstCall
// gives only the short "type-value pair" operand-reference form and
// would never contain the callee name.
//
// Running EraseCalls twice for the same callee name is idempotent (spec
// §8): the second run finds nothing left to match and erases zero calls.
func EraseCalls(fn *ir.Func, calleeName string) (int, error) {
	if fn == nil {
		return 0, hardenerr.MissingFunctionf("<nil>")
	}

	erased := 0
	for _, block := range fn.Blocks {
		kept := block.Insts[:0]
		for _, inst := range block.Insts {
			if call, ok := inst.(*ir.InstCall); ok && strings.Contains(call.LLString(), calleeName) {
				erased++
				continue
			}
			kept = append(kept, inst)
		}
		block.Insts = kept
	}
	return erased, nil
}
