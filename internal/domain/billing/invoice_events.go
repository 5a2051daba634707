package billing

import (
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the billing domain
const (
	EventTypeInvoiceCreated   = "billing.invoice.created"
	EventTypeInvoiceIssued    = "billing.invoice.issued"
	EventTypeInvoiceCancelled = "billing.invoice.cancelled"
	EventTypeInvoiceSettled   = "billing.invoice.settled"
)

const aggregateTypeInvoice = "Invoice"

// InvoiceCreatedEvent is emitted when a voucher is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	VoucherTypeCode string          `json:"voucher_type_code"`
	Number          string          `json:"number"`
	Direction       string          `json:"direction"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`
}

// NewInvoiceCreatedEvent creates an InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, aggregateTypeInvoice, inv.ID, inv.CompanyID),
		VoucherTypeCode: inv.VoucherTypeCode,
		Number:          inv.FormattedNumber(),
		Direction:       string(inv.Direction),
		TotalAmount:     inv.TotalAmount,
		Currency:        string(inv.Currency),
	}
}

// InvoiceIssuedEvent is emitted when the tax authority acknowledges the voucher
type InvoiceIssuedEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
}

// NewInvoiceIssuedEvent creates an InvoiceIssuedEvent
func NewInvoiceIssuedEvent(inv *Invoice) *InvoiceIssuedEvent {
	return &InvoiceIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceIssued, aggregateTypeInvoice, inv.ID, inv.CompanyID),
		Number:          inv.FormattedNumber(),
	}
}

// InvoiceCancelledEvent is emitted when a voucher is voided
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	Number string `json:"number"`
}

// NewInvoiceCancelledEvent creates an InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, aggregateTypeInvoice, inv.ID, inv.CompanyID),
		Number:          inv.FormattedNumber(),
	}
}

// InvoiceSettledEvent is emitted when an invoice becomes fully collected/paid
type InvoiceSettledEvent struct {
	shared.BaseDomainEvent
	Number        string `json:"number"`
	PaymentStatus string `json:"payment_status"`
}

// NewInvoiceSettledEvent creates an InvoiceSettledEvent
func NewInvoiceSettledEvent(inv *Invoice) *InvoiceSettledEvent {
	return &InvoiceSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSettled, aggregateTypeInvoice, inv.ID, inv.CompanyID),
		Number:          inv.FormattedNumber(),
		PaymentStatus:   string(inv.PaymentStatus),
	}
}
