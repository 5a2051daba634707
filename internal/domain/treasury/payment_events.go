package treasury

import (
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentDeclared  = "treasury.payment.declared"
	EventTypePaymentConfirmed = "treasury.payment.confirmed"
	EventTypePaymentCancelled = "treasury.payment.cancelled"
	EventTypePaymentRejected  = "treasury.payment.rejected"
)

// PaymentDeclaredEvent is raised when a payment record is created
type PaymentDeclaredEvent struct {
	shared.BaseDomainEvent
	PaymentID   uuid.UUID       `json:"payment_id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	NetAmount   decimal.Decimal `json:"net_amount"`
	FromNetwork bool            `json:"from_network"`
}

func NewPaymentDeclaredEvent(p *Payment) *PaymentDeclaredEvent {
	return &PaymentDeclaredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentDeclared, "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		Amount:          p.Amount,
		NetAmount:       p.NetAmount,
		FromNetwork:     p.FromNetwork,
	}
}

// PaymentConfirmedEvent is raised when a payment reaches its confirmed state
type PaymentConfirmedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID       `json:"payment_id"`
	InvoiceID uuid.UUID       `json:"invoice_id"`
	NetAmount decimal.Decimal `json:"net_amount"`
}

func NewPaymentConfirmedEvent(p *Payment) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentConfirmed, "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		NetAmount:       p.NetAmount,
	}
}

// PaymentCancelledEvent is raised when the declaring company withdraws a payment
type PaymentCancelledEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID `json:"payment_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
}

func NewPaymentCancelledEvent(p *Payment) *PaymentCancelledEvent {
	return &PaymentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentCancelled, "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
	}
}

// PaymentRejectedEvent is raised when the balance owner rejects a
// network-declared payment
type PaymentRejectedEvent struct {
	shared.BaseDomainEvent
	PaymentID uuid.UUID `json:"payment_id"`
	InvoiceID uuid.UUID `json:"invoice_id"`
	Reason    string    `json:"reason"`
}

func NewPaymentRejectedEvent(p *Payment) *PaymentRejectedEvent {
	return &PaymentRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRejected, "Payment", p.ID, p.CompanyID),
		PaymentID:       p.ID,
		InvoiceID:       p.InvoiceID,
		Reason:          p.RejectedReason,
	}
}
