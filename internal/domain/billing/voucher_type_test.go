package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoucherTypeByCode(t *testing.T) {
	vt, ok := VoucherTypeByCode("NC_B")
	require.True(t, ok)
	assert.Equal(t, CategoryCreditNote, vt.Category)
	assert.Equal(t, "B", vt.Letter)
	assert.True(t, vt.RequiresAssociation)

	_, ok = VoucherTypeByCode("FC_Z")
	assert.False(t, ok)
}

func TestVoucherCategory_IsAdjustmentNote(t *testing.T) {
	assert.True(t, CategoryCreditNote.IsAdjustmentNote())
	assert.True(t, CategoryDebitNote.IsAdjustmentNote())
	assert.False(t, CategoryInvoice.IsAdjustmentNote())
	assert.False(t, CategoryReceipt.IsAdjustmentNote())
}

func TestKnownVoucherTypeCodes(t *testing.T) {
	codes := KnownVoucherTypeCodes()
	assert.Len(t, codes, 11)
	assert.Contains(t, codes, "FC_A")
	assert.Contains(t, codes, "RC_X")
}
