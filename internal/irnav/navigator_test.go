package irnav

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"utxharden/internal/irtest"
)

func TestOperandAsPointerRejectsNonPointer(t *testing.T) {
	add := ir.NewAdd(constant.NewInt(types.I32, 1), constant.NewInt(types.I32, 2))
	_, err := OperandAsPointer(add, 0)
	require.Error(t, err)
}

func TestOperandAsIntAcceptsIntOperand(t *testing.T) {
	add := ir.NewAdd(constant.NewInt(types.I32, 1), constant.NewInt(types.I32, 2))
	v, err := OperandAsInt(add, 0)
	require.NoError(t, err)
	assert.Equal(t, types.I32, v.Type())
}

func TestGetAlignmentRejectsNonMemoryOpcode(t *testing.T) {
	add := ir.NewAdd(constant.NewInt(types.I32, 1), constant.NewInt(types.I32, 2))
	_, err := GetAlignment(add)
	require.Error(t, err)
}

func TestGetAlignmentReadsStoreAlign(t *testing.T) {
	module := irtest.NewModule()
	fn := irtest.Good0(module, "good0")
	entry := fn.Blocks[0]

	var store *ir.InstStore
	for _, inst := range entry.Insts {
		if s, ok := inst.(*ir.InstStore); ok {
			store = s
			break
		}
	}
	require.NotNil(t, store)

	width, err := GetAlignment(store)
	require.NoError(t, err)
	assert.Equal(t, int64(4), width)
}

func TestParsePhiEntriesRecoversPredecessorNames(t *testing.T) {
	module := irtest.NewModule()
	fn := irtest.Good1(module, "good1")

	var header *ir.Block
	for _, b := range fn.Blocks {
		if b.Name() == "loop.header" {
			header = b
			break
		}
	}
	require.NotNil(t, header)

	phi, ok := header.Insts[0].(*ir.InstPhi)
	require.True(t, ok)

	entries, err := ParsePhiEntries(phi)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "entry", entries[0].Predecessor)
	assert.True(t, entries[0].IsImmediate)
	assert.Equal(t, "loop.body", entries[1].Predecessor)
	assert.False(t, entries[1].IsImmediate)
}
