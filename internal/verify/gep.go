package verify

import (
	"regexp"
	"strconv"

	"github.com/llir/llvm/ir/value"
)

// constantGEP is the parsed shape of a single-level-array constant GEP
// expression, recovered from its printed text per spec §4.5/§9: "the
// shadow analysis parses printed GEP text because structured access to
// constant-expression operands is inconvenient." Only the single-level
// array case the test suite exercises is handled, exactly as spec.md
// scopes it.
type constantGEP struct {
	ElemType   string
	ElemSize   int64
	BaseSymbol string
	OuterIndex int64
	InnerIndex int64
}

// gepPattern matches `getelementptr ... ([N x <type>], [N x <type>]*
// @<symbol>, i64 <outer>, i64 <inner>)` — the one constant-expression shape
// spec §4.5 names.
var gepPattern = regexp.MustCompile(
	`\[\d+ x ([a-zA-Z0-9]+)\][^@]*@([A-Za-z0-9_.]+),\s*i64\s+(-?\d+),\s*i64\s+(-?\d+)`)

var elemByteSize = map[string]int64{
	"i1":  1,
	"i8":  1,
	"i16": 2,
	"i32": 4,
	"i64": 8,
}

// llStringer is satisfied by every named instruction (and by top-level
// definitions generally): LLString returns the full printed definition,
// e.g. "%3 = getelementptr inbounds [4 x i32], [4 x i32]* @arr, i64 0,
// i64 2" — unlike Value.String(), which gives only the short "type-value
// pair" operand-reference form ("i32* %3"). An unnamed constant GEP
// expression has no separate definition line to abbreviate from, so its
// String() already is the full form; only the named-instruction case
// needs LLString().
type llStringer interface {
	LLString() string
}

// fullText returns the fullest printed form available for v: its
// definition line if it has one (an instruction), otherwise its value
// text (a constant expression, already unabbreviated).
func fullText(v value.Value) string {
	if s, ok := v.(llStringer); ok {
		return s.LLString()
	}
	return v.String()
}

// parseConstantGEP recovers a constantGEP from a value's printed form. It
// returns ok=false for anything that isn't a single-level-array constant
// GEP expression — including an unrecognised element type, which spec
// §4.5 treats as opaque and therefore unsafe.
func parseConstantGEP(v value.Value) (constantGEP, bool) {
	text := fullText(v)
	m := gepPattern.FindStringSubmatch(text)
	if m == nil {
		return constantGEP{}, false
	}

	size, known := elemByteSize[m[1]]
	if !known {
		return constantGEP{}, false
	}

	outer, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return constantGEP{}, false
	}
	inner, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return constantGEP{}, false
	}

	return constantGEP{
		ElemType:   m[1],
		ElemSize:   size,
		BaseSymbol: m[2],
		OuterIndex: outer,
		InnerIndex: inner,
	}, true
}
