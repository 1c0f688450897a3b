package verify

import (
	"testing"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"

	"utxharden/internal/irtest"
)

// TestVerifyAcceptsDirectWindowAccess exercises the exact-pointer-equality
// accept path of protected(): the access's pointer operand is literally the
// window's base value, with no GEP involved.
func TestVerifyAcceptsDirectWindowAccess(t *testing.T) {
	module := irtest.NewModule()
	fn, entry := irtest.AppendFunc(module, "direct")

	p := ir.NewParam("p", types.NewPointer(types.I32))
	fn.Params = append(fn.Params, p)

	utx1 := module.NewFunc("utx1", types.Void, ir.NewParam("", types.NewPointer(types.I8)), ir.NewParam("", types.I64))
	call1 := ir.NewCall(utx1, p, constant.NewInt(types.I64, 4))
	entry.Insts = append(entry.Insts, call1)

	store := ir.NewStore(constant.NewInt(types.I32, 1), p)
	store.Align = 4
	entry.Insts = append(entry.Insts, store)
	entry.Term = ir.NewRet(nil)

	assert.True(t, Verify(fn))
}

// TestVerifyAcceptsGood2ConstantGEPIntoGlobal is spec §8 item 6's
// "verify(good_2) -> accept" scenario: a constant-index GEP rooted at a
// named global, within the declared window.
func TestVerifyAcceptsGood2ConstantGEPIntoGlobal(t *testing.T) {
	module := irtest.NewModule()
	fn := irtest.Good2(module, "good2")

	assert.True(t, Verify(fn))
}

func TestVerifyRejectsBad0NoWindowOpened(t *testing.T) {
	module := irtest.NewModule()
	fn := irtest.Bad0(module, "bad0")
	assert.False(t, Verify(fn))
}

func TestVerifyRejectsBad1PastEnd(t *testing.T) {
	module := irtest.NewModule()
	fn := irtest.Bad1(module, "bad1")
	assert.False(t, Verify(fn))
}

func TestVerifyRejectsBad2PastDeclaredLength(t *testing.T) {
	module := irtest.NewModule()
	fn := irtest.Bad2(module, "bad2")
	assert.False(t, Verify(fn))
}
