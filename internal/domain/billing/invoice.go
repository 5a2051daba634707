package billing

import (
	"fmt"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LifecycleStatus represents the approval/issuance lifecycle of a voucher.
// Transitions are driven by the approval workflow and the tax authority
// acknowledgement; once issued the amounts are immutable.
type LifecycleStatus string

const (
	StatusPendingApproval LifecycleStatus = "PENDING_APPROVAL"
	StatusApproved        LifecycleStatus = "APPROVED"
	StatusRejected        LifecycleStatus = "REJECTED"
	StatusIssued          LifecycleStatus = "ISSUED"
	StatusCancelled       LifecycleStatus = "CANCELLED"
)

// IsValid checks if the status is a valid LifecycleStatus
func (s LifecycleStatus) IsValid() bool {
	switch s {
	case StatusPendingApproval, StatusApproved, StatusRejected, StatusIssued, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of LifecycleStatus
func (s LifecycleStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the lifecycle can no longer advance
func (s LifecycleStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusCancelled
}

// PaymentStatus is the settlement dimension of an invoice. It is the only
// dimension this engine mutates after issuance.
type PaymentStatus string

const (
	PaymentStatusNone      PaymentStatus = "NONE"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"      // Payable side fully settled
	PaymentStatusCollected PaymentStatus = "COLLECTED" // Receivable side fully settled
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusNone, PaymentStatusPending, PaymentStatusPaid, PaymentStatusCollected, PaymentStatusCancelled:
		return true
	}
	return false
}

// IsSettledOrCancelled returns true for payment statuses that exclude the
// invoice from collection/payment activity
func (s PaymentStatus) IsSettledOrCancelled() bool {
	return s == PaymentStatusPaid || s == PaymentStatusCollected || s == PaymentStatusCancelled
}

// InvoiceDirection tells apart receivables (sales) from payables (purchases)
type InvoiceDirection string

const (
	DirectionSale     InvoiceDirection = "SALE"     // Issued to a client, collected
	DirectionPurchase InvoiceDirection = "PURCHASE" // Received from a supplier, paid
)

// IsValid checks if the direction is valid
func (d InvoiceDirection) IsValid() bool {
	return d == DirectionSale || d == DirectionPurchase
}

// InvoiceTotals bundles the monetary fields of a voucher and enforces the
// additive invariant total = subtotal + taxes + perceptions.
type InvoiceTotals struct {
	Currency         valueobject.Currency
	Subtotal         decimal.Decimal
	TotalTaxes       decimal.Decimal
	TotalPerceptions decimal.Decimal
	TotalAmount      decimal.Decimal
}

// Validate checks the additive invariant within one minor unit of the currency
func (t InvoiceTotals) Validate() error {
	if !t.Currency.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Currency %s is not supported", t.Currency))
	}
	if t.Subtotal.IsNegative() || t.TotalTaxes.IsNegative() || t.TotalPerceptions.IsNegative() {
		return shared.NewValidationError("Voucher amounts cannot be negative")
	}
	if t.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Total amount must be positive")
	}
	sum := t.Subtotal.Add(t.TotalTaxes).Add(t.TotalPerceptions)
	tolerance := decimal.New(1, -t.Currency.MinorUnits())
	if t.TotalAmount.Sub(sum).Abs().GreaterThanOrEqual(tolerance) {
		return shared.NewValidationError(fmt.Sprintf(
			"Total %s does not equal subtotal + taxes + perceptions %s", t.TotalAmount, sum))
	}
	return nil
}

// Invoice represents a fiscal document aggregate root. Once issued the fiscal
// fields are immutable; only the payment status dimension changes afterwards.
type Invoice struct {
	shared.CompanyAggregateRoot
	VoucherTypeCode  string           `json:"voucher_type_code"`
	Direction        InvoiceDirection `json:"direction"`
	SalesPoint       int              `json:"sales_point"`
	VoucherNumber    int64            `json:"voucher_number"`
	Counterparty     Counterparty     `json:"counterparty" gorm:"embedded"`
	IssueDate        time.Time        `json:"issue_date"`
	DueDate          *time.Time       `json:"due_date"`
	Currency         valueobject.Currency `json:"currency"`
	Subtotal         decimal.Decimal  `json:"subtotal" gorm:"type:numeric(18,4)"`
	TotalTaxes       decimal.Decimal  `json:"total_taxes" gorm:"type:numeric(18,4)"`
	TotalPerceptions decimal.Decimal  `json:"total_perceptions" gorm:"type:numeric(18,4)"`
	TotalAmount      decimal.Decimal  `json:"total_amount" gorm:"type:numeric(18,4)"`
	Status           LifecycleStatus  `json:"status"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	RelatedInvoiceID *uuid.UUID       `json:"related_invoice_id"` // parent invoice for credit/debit notes
	Remark           string           `json:"remark"`
	CancelledAt      *time.Time       `json:"cancelled_at"`
	SettledAt        *time.Time       `json:"settled_at"` // when fully collected/paid
}

// NewInvoice creates a new invoice in PENDING_APPROVAL status
func NewInvoice(
	companyID uuid.UUID,
	voucherTypeCode string,
	direction InvoiceDirection,
	salesPoint int,
	voucherNumber int64,
	counterparty Counterparty,
	issueDate time.Time,
	dueDate *time.Time,
	totals InvoiceTotals,
	relatedInvoiceID *uuid.UUID,
) (*Invoice, error) {
	vt, ok := VoucherTypeByCode(voucherTypeCode)
	if !ok {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown voucher type code %q", voucherTypeCode))
	}
	if !direction.IsValid() {
		return nil, shared.NewValidationError("Invoice direction is not valid")
	}
	if salesPoint <= 0 {
		return nil, shared.NewValidationError("Sales point must be positive")
	}
	if voucherNumber <= 0 {
		return nil, shared.NewValidationError("Voucher number must be positive")
	}
	if err := counterparty.Validate(); err != nil {
		return nil, err
	}
	if issueDate.IsZero() {
		return nil, shared.NewValidationError("Issue date is required")
	}
	if err := totals.Validate(); err != nil {
		return nil, err
	}
	if vt.RequiresAssociation && relatedInvoiceID == nil {
		return nil, shared.NewValidationError(fmt.Sprintf("%s requires an associated parent invoice", vt.Name))
	}
	if !vt.RequiresAssociation && relatedInvoiceID != nil {
		return nil, shared.NewValidationError(fmt.Sprintf("%s cannot reference a parent invoice", vt.Name))
	}

	inv := &Invoice{
		CompanyAggregateRoot: shared.NewCompanyAggregateRoot(companyID),
		VoucherTypeCode:      voucherTypeCode,
		Direction:            direction,
		SalesPoint:           salesPoint,
		VoucherNumber:        voucherNumber,
		Counterparty:         counterparty,
		IssueDate:            issueDate,
		DueDate:              dueDate,
		Currency:             totals.Currency,
		Subtotal:             totals.Subtotal,
		TotalTaxes:           totals.TotalTaxes,
		TotalPerceptions:     totals.TotalPerceptions,
		TotalAmount:          totals.TotalAmount,
		Status:               StatusPendingApproval,
		PaymentStatus:        PaymentStatusNone,
		RelatedInvoiceID:     relatedInvoiceID,
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// VoucherType returns the invoice's voucher type descriptor
func (inv *Invoice) VoucherType() VoucherType {
	vt, _ := VoucherTypeByCode(inv.VoucherTypeCode)
	return vt
}

// IsAdjustmentNote returns true for credit and debit notes
func (inv *Invoice) IsAdjustmentNote() bool {
	return inv.VoucherType().Category.IsAdjustmentNote()
}

// FormattedNumber renders the fiscal number as "0001-00000042"
func (inv *Invoice) FormattedNumber() string {
	return fmt.Sprintf("%04d-%08d", inv.SalesPoint, inv.VoucherNumber)
}

// ValidateAssociation checks that an adjustment note may apply to the parent.
// A credit/debit note must reference an invoice of the same currency, company
// and counterparty direction.
func (inv *Invoice) ValidateAssociation(parent *Invoice) error {
	if !inv.IsAdjustmentNote() {
		return shared.NewValidationError("Only credit/debit notes carry an association")
	}
	if inv.RelatedInvoiceID == nil || *inv.RelatedInvoiceID != parent.ID {
		return shared.NewValidationError("Note does not reference this invoice")
	}
	if parent.VoucherType().Category != CategoryInvoice {
		return shared.NewValidationError("Notes can only be associated to invoices")
	}
	if inv.Currency != parent.Currency {
		return shared.NewCurrencyMismatchError(fmt.Sprintf(
			"Note currency %s does not match invoice currency %s", inv.Currency, parent.Currency))
	}
	if inv.CompanyID != parent.CompanyID || inv.Direction != parent.Direction {
		return shared.NewValidationError("Note and invoice belong to different ledgers")
	}
	return nil
}

// Approve moves a pending invoice to APPROVED
func (inv *Invoice) Approve() error {
	if inv.Status != StatusPendingApproval {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot approve invoice in %s status", inv.Status))
	}
	inv.Status = StatusApproved
	inv.touch()
	return nil
}

// RejectApproval rejects a pending invoice
func (inv *Invoice) RejectApproval() error {
	if inv.Status != StatusPendingApproval {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot reject invoice in %s status", inv.Status))
	}
	inv.Status = StatusRejected
	inv.touch()
	return nil
}

// MarkIssued records the tax authority acknowledgement. Amounts are frozen
// from this point on.
func (inv *Invoice) MarkIssued() error {
	if inv.Status != StatusApproved && inv.Status != StatusPendingApproval {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot issue invoice in %s status", inv.Status))
	}
	inv.Status = StatusIssued
	if !inv.IsAdjustmentNote() {
		inv.PaymentStatus = PaymentStatusPending
	}
	inv.touch()
	inv.AddDomainEvent(NewInvoiceIssuedEvent(inv))
	return nil
}

// Cancel voids the invoice. Settled invoices cannot be cancelled.
func (inv *Invoice) Cancel() error {
	if inv.Status == StatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidState, "Invoice is already cancelled")
	}
	if inv.PaymentStatus == PaymentStatusPaid || inv.PaymentStatus == PaymentStatusCollected {
		return shared.NewDomainError(shared.CodeInvalidState, "Cannot cancel a settled invoice")
	}
	now := time.Now()
	inv.Status = StatusCancelled
	inv.PaymentStatus = PaymentStatusCancelled
	inv.CancelledAt = &now
	inv.touch()
	inv.AddDomainEvent(NewInvoiceCancelledEvent(inv))
	return nil
}

// MarkSettled marks a fully collected/paid invoice according to its direction
func (inv *Invoice) MarkSettled() error {
	if inv.Status != StatusIssued {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot settle invoice in %s status", inv.Status))
	}
	if inv.PaymentStatus.IsSettledOrCancelled() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Invoice payment status %s is already final", inv.PaymentStatus))
	}
	now := time.Now()
	if inv.Direction == DirectionSale {
		inv.PaymentStatus = PaymentStatusCollected
	} else {
		inv.PaymentStatus = PaymentStatusPaid
	}
	inv.SettledAt = &now
	inv.touch()
	inv.AddDomainEvent(NewInvoiceSettledEvent(inv))
	return nil
}

// MarkPartiallySettled keeps the invoice pending after a partial settlement
func (inv *Invoice) MarkPartiallySettled() error {
	if inv.Status != StatusIssued {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot settle invoice in %s status", inv.Status))
	}
	if inv.PaymentStatus.IsSettledOrCancelled() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Invoice payment status %s is already final", inv.PaymentStatus))
	}
	inv.PaymentStatus = PaymentStatusPending
	inv.touch()
	return nil
}

// TotalAmountMoney returns the total as Money
func (inv *Invoice) TotalAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(inv.TotalAmount, inv.Currency)
	return m
}

func (inv *Invoice) touch() {
	inv.UpdatedAt = time.Now()
	inv.IncrementVersion()
}
