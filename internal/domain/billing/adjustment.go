package billing

import (
	"fmt"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AppliedNote is one credit or debit note line inside a breakdown
type AppliedNote struct {
	ID              uuid.UUID       `json:"id"`
	VoucherTypeCode string          `json:"voucher_type_code"`
	Number          string          `json:"number"`
	Amount          decimal.Decimal `json:"amount"`
	IssueDate       time.Time       `json:"issue_date"`
}

// AdjustmentBreakdown is the derived balance view of an invoice after credit
// notes, debit notes and confirmed settlements are applied. It is recomputed
// on every read and never persisted.
type AdjustmentBreakdown struct {
	InvoiceID        uuid.UUID            `json:"invoice_id"`
	Currency         valueobject.Currency `json:"currency"`
	OriginalAmount   decimal.Decimal      `json:"original_amount"`
	CreditNotes      []AppliedNote        `json:"credit_notes"`
	TotalCreditNotes decimal.Decimal      `json:"total_credit_notes"`
	DebitNotes       []AppliedNote        `json:"debit_notes"`
	TotalDebitNotes  decimal.Decimal      `json:"total_debit_notes"`
	TotalSettled     decimal.Decimal      `json:"total_settled"`
	BalancePending   decimal.Decimal      `json:"balance_pending"`

	// OverCollected flags the data anomaly where confirmed settlements exceed
	// the adjusted amount. The balance is clamped at zero and the overshoot is
	// surfaced to the caller, never silently absorbed.
	OverCollected   bool            `json:"over_collected"`
	OverCollectedBy decimal.Decimal `json:"over_collected_by"`
}

// HasAdjustments reports whether any credit or debit note applies. The UI
// only renders the breakdown table when this is true.
func (b *AdjustmentBreakdown) HasAdjustments() bool {
	return len(b.CreditNotes) > 0 || len(b.DebitNotes) > 0
}

// BalancePendingMoney returns the pending balance as Money
func (b *AdjustmentBreakdown) BalancePendingMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(b.BalancePending, b.Currency)
	return m
}

// ComputeBreakdown derives the pending balance of an invoice:
//
//	balance = original − Σ credit notes + Σ debit notes − settled, floored at 0
//
// Only issued notes participate; notes in any other lifecycle status are
// skipped. Every note must be a valid association of the invoice; a currency
// mismatch is a validation error, not a skip. Pure function, no side effects.
func ComputeBreakdown(invoice *Invoice, creditNotes, debitNotes []*Invoice, settled valueobject.Money) (*AdjustmentBreakdown, error) {
	if invoice == nil {
		return nil, shared.NewValidationError("Invoice is required")
	}
	if invoice.IsAdjustmentNote() {
		return nil, shared.NewValidationError("Credit/debit notes do not carry a balance of their own")
	}
	if settled.Currency() != invoice.Currency {
		return nil, shared.NewCurrencyMismatchError(fmt.Sprintf(
			"Settled total currency %s does not match invoice currency %s", settled.Currency(), invoice.Currency))
	}
	if settled.IsNegative() {
		return nil, shared.NewValidationError("Settled total cannot be negative")
	}

	breakdown := &AdjustmentBreakdown{
		InvoiceID:        invoice.ID,
		Currency:         invoice.Currency,
		OriginalAmount:   invoice.TotalAmount,
		CreditNotes:      make([]AppliedNote, 0, len(creditNotes)),
		TotalCreditNotes: decimal.Zero,
		DebitNotes:       make([]AppliedNote, 0, len(debitNotes)),
		TotalDebitNotes:  decimal.Zero,
		TotalSettled:     settled.Amount(),
		OverCollectedBy:  decimal.Zero,
	}

	appendNote := func(note *Invoice, wantCategory VoucherCategory) (*AppliedNote, error) {
		if note.VoucherType().Category != wantCategory {
			return nil, shared.NewValidationError(fmt.Sprintf(
				"Voucher %s is not a %s", note.FormattedNumber(), wantCategory))
		}
		if err := note.ValidateAssociation(invoice); err != nil {
			return nil, err
		}
		if note.Status != StatusIssued {
			return nil, nil // non-issued notes have no balance effect
		}
		return &AppliedNote{
			ID:              note.ID,
			VoucherTypeCode: note.VoucherTypeCode,
			Number:          note.FormattedNumber(),
			Amount:          note.TotalAmount,
			IssueDate:       note.IssueDate,
		}, nil
	}

	for _, note := range creditNotes {
		applied, err := appendNote(note, CategoryCreditNote)
		if err != nil {
			return nil, err
		}
		if applied == nil {
			continue
		}
		breakdown.CreditNotes = append(breakdown.CreditNotes, *applied)
		breakdown.TotalCreditNotes = breakdown.TotalCreditNotes.Add(applied.Amount)
	}

	for _, note := range debitNotes {
		applied, err := appendNote(note, CategoryDebitNote)
		if err != nil {
			return nil, err
		}
		if applied == nil {
			continue
		}
		breakdown.DebitNotes = append(breakdown.DebitNotes, *applied)
		breakdown.TotalDebitNotes = breakdown.TotalDebitNotes.Add(applied.Amount)
	}

	raw := breakdown.OriginalAmount.
		Sub(breakdown.TotalCreditNotes).
		Add(breakdown.TotalDebitNotes).
		Sub(breakdown.TotalSettled)

	if raw.IsNegative() {
		breakdown.OverCollected = true
		breakdown.OverCollectedBy = raw.Neg()
		breakdown.BalancePending = decimal.Zero
	} else {
		breakdown.BalancePending = raw
	}

	return breakdown, nil
}
