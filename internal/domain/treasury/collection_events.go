package treasury

import (
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types for collection records
const (
	EventTypeCollectionDeclared  = "treasury.collection.declared"
	EventTypeCollectionConfirmed = "treasury.collection.confirmed"
	EventTypeCollectionRejected  = "treasury.collection.rejected"
)

const aggregateTypeCollection = "Collection"

// CollectionDeclaredEvent is emitted when a counter-party declares a
// collection that the invoice owner must act on
type CollectionDeclaredEvent struct {
	shared.BaseDomainEvent
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	FromNetwork bool            `json:"from_network"`
	DeclaredBy  uuid.UUID       `json:"declared_by"`
}

// NewCollectionDeclaredEvent creates a CollectionDeclaredEvent
func NewCollectionDeclaredEvent(c *Collection) *CollectionDeclaredEvent {
	return &CollectionDeclaredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCollectionDeclared, aggregateTypeCollection, c.ID, c.CompanyID),
		InvoiceID:       c.InvoiceID,
		Amount:          c.Amount,
		Currency:        string(c.Currency),
		FromNetwork:     c.FromNetwork,
		DeclaredBy:      c.DeclaredBy,
	}
}

// CollectionConfirmedEvent is emitted when a collection becomes effective
type CollectionConfirmedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID       `json:"invoice_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// NewCollectionConfirmedEvent creates a CollectionConfirmedEvent
func NewCollectionConfirmedEvent(c *Collection) *CollectionConfirmedEvent {
	return &CollectionConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCollectionConfirmed, aggregateTypeCollection, c.ID, c.CompanyID),
		InvoiceID:       c.InvoiceID,
		Amount:          c.Amount,
		Currency:        string(c.Currency),
	}
}

// CollectionRejectedEvent is emitted when the invoice owner rejects a
// network-declared collection
type CollectionRejectedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Reason    string    `json:"reason,omitempty"`
}

// NewCollectionRejectedEvent creates a CollectionRejectedEvent
func NewCollectionRejectedEvent(c *Collection) *CollectionRejectedEvent {
	return &CollectionRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCollectionRejected, aggregateTypeCollection, c.ID, c.CompanyID),
		InvoiceID:       c.InvoiceID,
		Reason:          c.RejectedReason,
	}
}
