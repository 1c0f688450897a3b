package verify

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
)

func TestShadowUnknownUntilOpened(t *testing.T) {
	s := NewShadow()
	assert.False(t, s.SafeAccess(constant.NewNull(types.NewPointer(types.I8)), 4))
}

func TestShadowSafeAccessLiteralBase(t *testing.T) {
	arr := ir.NewAlloca(types.NewArray(4, types.I32))
	s := NewShadow()
	s.Open(arr, constant.NewInt(types.I64, 16))

	assert.True(t, s.SafeAccess(arr, 16))
	assert.False(t, s.SafeAccess(arr, 17))
}

func TestShadowOpenWithNonConstantLengthStaysUnknown(t *testing.T) {
	arr := ir.NewAlloca(types.NewArray(4, types.I32))
	lengthParam := ir.NewParam("n", types.I64)

	s := NewShadow()
	s.Open(arr, lengthParam)

	assert.False(t, s.SafeAccess(arr, 4))
}

func TestShadowSafeAccessConstantGEPIntoGlobal(t *testing.T) {
	arrTyp := types.NewArray(4, types.I32)
	g := ir.NewGlobalDef("g_arr", constant.NewZeroInitializer(arrTyp))

	s := NewShadow()
	s.Open(g, constant.NewInt(types.I64, 16))

	inBounds := ir.NewGetElementPtr(arrTyp, g, constant.NewInt(types.I64, 0), constant.NewInt(types.I64, 3))
	assert.True(t, s.SafeAccess(inBounds, 4))

	outOfOuterRange := ir.NewGetElementPtr(arrTyp, g, constant.NewInt(types.I64, 1), constant.NewInt(types.I64, 0))
	assert.False(t, s.SafeAccess(outOfOuterRange, 4))
}

func TestShadowClearResetsState(t *testing.T) {
	arr := ir.NewAlloca(types.NewArray(4, types.I32))
	s := NewShadow()
	s.Open(arr, constant.NewInt(types.I64, 16))
	s.Clear()

	assert.False(t, s.SafeAccess(arr, 4))
}
