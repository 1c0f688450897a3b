// Package irnav implements the IR Navigator (spec §4.1 component A): a set
// of pure, read-only query helpers over *ir.Module/*ir.Func values from
// github.com/llir/llvm. Every helper here either returns what was asked for
// or a *hardenerr.Error carrying the MalformedIR kind — it never mutates the
// module.
package irnav

import (
	"regexp"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"utxharden/internal/hardenerr"
)

// phiEntryPattern matches one phi incoming entry, either form (a) an
// SSA-value incoming " %name, %name" or form (b) an immediate incoming
// " literal, %name" — spec §4.1's two printed-form patterns, combined so a
// single pass over the text recovers entries in source order.
var phiEntryPattern = regexp.MustCompile(`\[\s*(?:%([A-Za-z0-9_.$"]+)|(-?\d+))\s*,\s*%([A-Za-z0-9_.$"]+)\s*\]`)

// PhiEntry is one (incoming_value, predecessor_block_name) pair, spec §3.
type PhiEntry struct {
	Value       value.Value
	Predecessor string
	IsImmediate bool
}

// operandHolder is satisfied by every llir/llvm instruction and terminator:
// each exposes its operands as pointers-to-interface so replace-all-uses
// can rewrite them in place. The Navigator only ever reads through it.
type operandHolder interface {
	Operands() []*value.Value
}

// OperandAsPointer returns the pointer operand at index k of instruction i.
func OperandAsPointer(i ir.Instruction, k int) (value.Value, error) {
	op, err := operandAt(i, k)
	if err != nil {
		return nil, err
	}
	if _, ok := op.Type().(*types.PointerType); !ok {
		return nil, hardenerr.MalformedIRf(hardenerr.CodeBadOperand,
			"operand %d of %q is not a pointer (got %s)", k, i.String(), op.Type())
	}
	return op, nil
}

// OperandAsInt returns the integer operand at index k of instruction i.
func OperandAsInt(i ir.Instruction, k int) (value.Value, error) {
	op, err := operandAt(i, k)
	if err != nil {
		return nil, err
	}
	if _, ok := op.Type().(*types.IntType); !ok {
		return nil, hardenerr.MalformedIRf(hardenerr.CodeBadOperand,
			"operand %d of %q is not an integer (got %s)", k, i.String(), op.Type())
	}
	return op, nil
}

func operandAt(i ir.Instruction, k int) (value.Value, error) {
	holder, ok := i.(operandHolder)
	if !ok {
		return nil, hardenerr.MalformedIRf(hardenerr.CodeBadOperand,
			"instruction %q exposes no operands", i.String())
	}
	ops := holder.Operands()
	if k < 0 || k >= len(ops) {
		return nil, hardenerr.MalformedIRf(hardenerr.CodeBadOperand,
			"instruction %q has no operand %d", i.String(), k)
	}
	return *ops[k], nil
}

// GetAlignment returns the natural access width in bytes of a load or
// store instruction. It fails with MalformedIR on any other opcode or on
// an instruction with no alignment recorded (an "opaque" access spec §4.1
// refuses to guess at).
func GetAlignment(i ir.Instruction) (int64, error) {
	switch inst := i.(type) {
	case *ir.InstLoad:
		if inst.Align <= 0 {
			return 0, hardenerr.MalformedIRf(hardenerr.CodeBadAlignment,
				"load %q has no alignment", inst.String())
		}
		return int64(inst.Align), nil
	case *ir.InstStore:
		if inst.Align <= 0 {
			return 0, hardenerr.MalformedIRf(hardenerr.CodeBadAlignment,
				"store %q has no alignment", inst.String())
		}
		return int64(inst.Align), nil
	default:
		return 0, hardenerr.MalformedIRf(hardenerr.CodeBadOpcode,
			"instruction %q is neither load nor store", i.String())
	}
}

// ParsePhiEntries returns the ordered (value, predecessor-name) list of a
// phi instruction. The predecessor label is read from the instruction's
// printed form (the structured binding does not expose it as cleanly as a
// plain string match); the carried value is recovered positionally from
// the k-th structured operand, per spec §4.1/§9.
func ParsePhiEntries(i ir.Instruction) ([]PhiEntry, error) {
	phi, ok := i.(*ir.InstPhi)
	if !ok {
		return nil, hardenerr.MalformedIRf(hardenerr.CodeBadOpcode,
			"instruction %q is not a phi", i.String())
	}

	// LLString, not String: String gives only the short "type-value pair"
	// operand-reference form (e.g. "i32 %3"); LLString gives the full
	// printed definition ("%3 = phi i32 [ %a, %bb0 ], [ %b, %bb1 ]") that
	// phiEntryPattern is written against.
	text := phi.LLString()
	matches := phiEntryPattern.FindAllStringSubmatch(text, -1)
	if len(matches) != len(phi.Incs) {
		return nil, hardenerr.MalformedIRf(hardenerr.CodeUnparseablePhi,
			"phi %q: parsed %d incoming entries from text but structure has %d",
			text, len(matches), len(phi.Incs))
	}

	entries := make([]PhiEntry, len(matches))
	for idx, m := range matches {
		ssaName, literal, pred := m[1], m[2], m[3]
		entries[idx] = PhiEntry{
			Value:       phi.Incs[idx].X,
			Predecessor: pred,
			IsImmediate: ssaName == "" && literal != "",
		}
	}
	return entries, nil
}
