package verify

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"

	"utxharden/internal/irnav"
)

// window is one accumulated (pointer, size) protected range. The
// standalone verifier keeps every window opened in the function rather
// than a single shadow (SPEC_FULL.md's supplemented feature, grounded on
// original_source/sandboxer/src/sandboxer.rs's `protected_ptrs: Vec<...>`)
// because a function may legitimately open more than one µTX region in
// sequence. Windows are never dropped: utx0 calls are not tracked.
type window struct {
	base value.Value
	size int64
}

// Verify runs the standalone Static Verifier over fn and returns true
// (accept) iff every load and store it contains is provably within some
// window opened by a preceding utx1 call with a constant length. It never
// returns an error: an unparseable or unprovable access simply makes the
// verdict reject, per spec §4.5/§7.
func Verify(fn *ir.Func) bool {
	var windows []window

	for _, block := range fn.Blocks {
		for _, inst := range block.Insts {
			switch i := inst.(type) {
			case *ir.InstCall:
				if calleeName(i) != "utx1" {
					continue
				}
				args := callOperands(i)
				if len(args) != 2 {
					continue
				}
				n, ok := constantInt(args[1])
				if !ok {
					continue
				}
				windows = append(windows, window{base: args[0], size: n})

			case *ir.InstLoad:
				w, err := irnav.GetAlignment(i)
				if err != nil || !protected(windows, i.Src, w) {
					return false
				}

			case *ir.InstStore:
				w, err := irnav.GetAlignment(i)
				if err != nil || !protected(windows, i.Dst, w) {
					return false
				}
			}
		}
	}
	return true
}

// protected mirrors the original prototype's _is_address_protected: exact
// pointer-value equality against an opened window whose declared size
// covers the access width, extended with the same constant-GEP-into-a-named-
// base reasoning as the shadow pre-pass's SafeAccess case (b), since spec
// §8's good_2 scenario is a constant-index array access rather than a bare
// pointer and must still verify.
func protected(windows []window, ptr value.Value, width int64) bool {
	for _, w := range windows {
		if w.base == ptr && w.size >= width {
			return true
		}
	}

	gep, ok := parseConstantGEP(ptr)
	if !ok {
		return false
	}
	for _, w := range windows {
		if gep.BaseSymbol != baseSymbol(w.base) {
			continue
		}
		if gep.OuterIndex != 0 {
			continue
		}
		offset := gep.InnerIndex * gep.ElemSize
		if offset+width <= w.size {
			return true
		}
	}
	return false
}

func calleeName(call *ir.InstCall) string {
	named, ok := call.Callee.(interface{ Name() string })
	if !ok {
		return ""
	}
	return named.Name()
}
