package billing

// VoucherCategory groups fiscal voucher types by their balance effect
type VoucherCategory string

const (
	CategoryInvoice    VoucherCategory = "INVOICE"     // Collectible/payable document
	CategoryCreditNote VoucherCategory = "CREDIT_NOTE" // Reduces a prior invoice's balance
	CategoryDebitNote  VoucherCategory = "DEBIT_NOTE"  // Increases a prior invoice's balance
	CategoryReceipt    VoucherCategory = "RECEIPT"     // Proof of payment, no balance of its own
)

// IsValid checks if the category is valid
func (c VoucherCategory) IsValid() bool {
	switch c {
	case CategoryInvoice, CategoryCreditNote, CategoryDebitNote, CategoryReceipt:
		return true
	}
	return false
}

// IsAdjustmentNote returns true for categories whose effect folds into a parent
// invoice instead of being individually collectible or payable
func (c VoucherCategory) IsAdjustmentNote() bool {
	return c == CategoryCreditNote || c == CategoryDebitNote
}

// VoucherType describes a fiscal voucher type code
type VoucherType struct {
	Code                string
	Name                string
	Letter              string
	Category            VoucherCategory
	RequiresAssociation bool // must reference a parent invoice
}

// Fiscal voucher type codes. Letters follow the Argentine invoicing regime:
// A between registered taxpayers, B to final consumers, C from monotributistas,
// E for exports.
var voucherTypes = map[string]VoucherType{
	"FC_A": {Code: "FC_A", Name: "Factura A", Letter: "A", Category: CategoryInvoice},
	"FC_B": {Code: "FC_B", Name: "Factura B", Letter: "B", Category: CategoryInvoice},
	"FC_C": {Code: "FC_C", Name: "Factura C", Letter: "C", Category: CategoryInvoice},
	"FC_E": {Code: "FC_E", Name: "Factura E", Letter: "E", Category: CategoryInvoice},
	"NC_A": {Code: "NC_A", Name: "Nota de Crédito A", Letter: "A", Category: CategoryCreditNote, RequiresAssociation: true},
	"NC_B": {Code: "NC_B", Name: "Nota de Crédito B", Letter: "B", Category: CategoryCreditNote, RequiresAssociation: true},
	"NC_C": {Code: "NC_C", Name: "Nota de Crédito C", Letter: "C", Category: CategoryCreditNote, RequiresAssociation: true},
	"ND_A": {Code: "ND_A", Name: "Nota de Débito A", Letter: "A", Category: CategoryDebitNote, RequiresAssociation: true},
	"ND_B": {Code: "ND_B", Name: "Nota de Débito B", Letter: "B", Category: CategoryDebitNote, RequiresAssociation: true},
	"ND_C": {Code: "ND_C", Name: "Nota de Débito C", Letter: "C", Category: CategoryDebitNote, RequiresAssociation: true},
	"RC_X": {Code: "RC_X", Name: "Recibo", Letter: "X", Category: CategoryReceipt},
}

// VoucherTypeByCode looks up a voucher type by its code
func VoucherTypeByCode(code string) (VoucherType, bool) {
	vt, ok := voucherTypes[code]
	return vt, ok
}

// KnownVoucherTypeCodes returns all registered voucher type codes
func KnownVoucherTypeCodes() []string {
	codes := make([]string, 0, len(voucherTypes))
	for code := range voucherTypes {
		codes = append(codes, code)
	}
	return codes
}
