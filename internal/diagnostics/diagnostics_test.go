package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"utxharden/internal/hardenerr"
)

func TestFormatErrorIncludesCodeAndMessage(t *testing.T) {
	err := hardenerr.MalformedIRf(hardenerr.CodeBadAlignment, "store has no alignment").
		WithContext("transfer", "bb2", "")

	out := FormatError(err)
	assert.Contains(t, out, hardenerr.CodeBadAlignment)
	assert.Contains(t, out, "store has no alignment")
	assert.Contains(t, out, "transfer")
	assert.Contains(t, out, "bb2")
}

func TestFormatVerdict(t *testing.T) {
	assert.Contains(t, FormatVerdict("good0", true), "accept")
	assert.Contains(t, FormatVerdict("bad0", false), "reject")
}
