// Package verify implements the Static Verifier (spec §4.5, component E):
// a suppression pre-pass consulted by the Instrumentation Pass to skip
// provably-safe runtime checks, and a standalone accept/reject verdict
// over a whole function. Neither mode mutates the module; the verifier
// never fails — "unsafe" is a normal result, not an error (spec §7).
package verify

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/value"
)

// Shadow is the compile-time abstraction of the runtime protected window
// (spec §3's "Protected Window (static)"), mutated in step with utx1 calls
// in program order.
type Shadow struct {
	base   value.Value
	length int64
	known  bool
}

// NewShadow returns an empty shadow window (no utx1 has been seen yet).
func NewShadow() *Shadow { return &Shadow{} }

// Open updates the shadow on a utx1(p, n) call. If n is not a constant
// integer the shadow is cleared — later accesses fall back to runtime
// checking, per spec §4.5.
func (s *Shadow) Open(ptr value.Value, length value.Value) {
	n, ok := constantInt(length)
	if !ok {
		s.known = false
		return
	}
	s.base = ptr
	s.length = n
	s.known = true
}

// Clear discards the shadow. The pass calls it on every utx0(), under both
// readings of utx0() documented in DESIGN.md's Open Question (erase only,
// or ResetOnClose) — the shadow pre-pass is conservative either way: a
// cleared shadow only ever forgoes a suppression, never makes one unsound.
func (s *Shadow) Clear() {
	s.known = false
	s.base = nil
	s.length = 0
}

// SafeAccess reports whether an access to pointer q of width w bytes is
// provably within the shadow window, per spec §4.5(a)/(b). A false result
// means "couldn't prove it" — the caller must fall back to a runtime
// check, not that the access is actually unsafe.
func (s *Shadow) SafeAccess(q value.Value, w int64) bool {
	if !s.known {
		return false
	}

	// (a) q is literally the shadow base and w <= length.
	if q == s.base {
		return w <= s.length
	}

	// (b) q is a constant GEP expression into the shadow base.
	gep, ok := parseConstantGEP(q)
	if !ok {
		return false
	}
	if gep.BaseSymbol != baseSymbol(s.base) {
		return false
	}
	if gep.OuterIndex != 0 {
		// An outer index != 0 indicates a possible outer-dimension
		// overflow; spec §4.5 forces "unsafe" here.
		return false
	}
	offset := gep.InnerIndex * gep.ElemSize
	return offset+w <= s.length
}

// baseSymbol returns the bare global/local name of v (no leading sigil),
// matching the BaseSymbol parseConstantGEP recovers from printed GEP text.
func baseSymbol(v value.Value) string {
	named, ok := v.(interface{ Name() string })
	if !ok {
		return ""
	}
	return named.Name()
}

func constantInt(v value.Value) (int64, bool) {
	ci, ok := v.(*constant.Int)
	if !ok {
		return 0, false
	}
	return ci.X.Int64(), true
}

// callOperands returns the argument list of a call instruction, used by
// callers that need to inspect a utx1(p, n) call's pointer/length
// arguments without depending on call-site argument order elsewhere.
func callOperands(call *ir.InstCall) []value.Value {
	args := make([]value.Value, len(call.Args))
	copy(args, call.Args)
	return args
}
