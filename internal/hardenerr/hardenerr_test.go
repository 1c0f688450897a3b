package hardenerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingFunctionf(t *testing.T) {
	err := MissingFunctionf("transfer")

	assert.Equal(t, MissingFunction, err.Kind)
	assert.Equal(t, CodeMissingFunc, err.Code)
	assert.Contains(t, err.Error(), "transfer")
	assert.Contains(t, err.Error(), CodeMissingFunc)
}

func TestErrorLocationFormatting(t *testing.T) {
	bare := MalformedIRf(CodeBadOperand, "operand %d is not a pointer", 1)
	assert.Equal(t, "[H0001] operand 1 is not a pointer", bare.Error())

	withCtx := bare.WithContext("transfer", "bb2", "")
	assert.Equal(t, "[H0001] in transfer/bb2: operand 1 is not a pointer", withCtx.Error())
}

func TestWithContextDoesNotMutateReceiver(t *testing.T) {
	base := MalformedIRf(CodeBadAlignment, "bad alignment")
	_ = base.WithContext("fn", "bb0", "inst0")

	assert.Empty(t, base.Function)
	assert.Empty(t, base.Block)
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("builder rejected type")
	err := Wrap(cause, BuilderFailure, CodeBuilderRejected, "emitting or failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "emitting or failed", err.Message())
}

func TestBuilderFailuref(t *testing.T) {
	err := BuilderFailuref("rejected %s", "icmp")
	assert.Equal(t, BuilderFailure, err.Kind)
	assert.Equal(t, CodeBuilderRejected, err.Code)
}
