package treasury

import (
	"fmt"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectionStatus represents the status of a collection record
type CollectionStatus string

const (
	CollectionStatusPendingConfirmation CollectionStatus = "PENDING_CONFIRMATION"
	CollectionStatusConfirmed           CollectionStatus = "CONFIRMED"
	CollectionStatusRejected            CollectionStatus = "REJECTED"
)

// IsValid checks if the status is a valid CollectionStatus
func (s CollectionStatus) IsValid() bool {
	switch s {
	case CollectionStatusPendingConfirmation, CollectionStatusConfirmed, CollectionStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of CollectionStatus
func (s CollectionStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the record can never change again
func (s CollectionStatus) IsTerminal() bool {
	return s == CollectionStatusConfirmed || s == CollectionStatusRejected
}

// CollectionAction is an action requested against a collection record
type CollectionAction string

const (
	CollectionActionConfirm CollectionAction = "CONFIRM"
	CollectionActionReject  CollectionAction = "REJECT"
)

// collectionTransitions is the defensive state table. Any (state, action)
// pair missing here fails closed with INVALID_TRANSITION; it is never
// silently accepted. This is what makes retried network calls safe.
var collectionTransitions = map[CollectionStatus]map[CollectionAction]CollectionStatus{
	CollectionStatusPendingConfirmation: {
		CollectionActionConfirm: CollectionStatusConfirmed,
		CollectionActionReject:  CollectionStatusRejected,
	},
}

// nextCollectionStatus resolves a transition or fails closed
func nextCollectionStatus(from CollectionStatus, action CollectionAction) (CollectionStatus, error) {
	if actions, ok := collectionTransitions[from]; ok {
		if to, ok := actions[action]; ok {
			return to, nil
		}
	}
	if from.IsTerminal() {
		return "", shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Collection is already %s and cannot be modified", from))
	}
	return "", shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("Action %s is not defined for collection status %s", action, from))
}

// SettlementMethod is how the money moved
type SettlementMethod string

const (
	MethodTransfer SettlementMethod = "TRANSFER"
	MethodCheck    SettlementMethod = "CHECK"
	MethodCash     SettlementMethod = "CASH"
	MethodCard     SettlementMethod = "CARD"
	MethodOther    SettlementMethod = "OTHER"
)

// IsValid checks if the settlement method is valid
func (m SettlementMethod) IsValid() bool {
	switch m {
	case MethodTransfer, MethodCheck, MethodCash, MethodCard, MethodOther:
		return true
	}
	return false
}

// Collection records that an invoice was (declared to be) paid to its issuer.
// It is one side of a two-party declaration: either the issuer registers it
// directly, or the payer in a connected workspace declares it and the issuer
// confirms or rejects.
type Collection struct {
	shared.CompanyAggregateRoot
	InvoiceID       uuid.UUID        `json:"invoice_id" gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal  `json:"amount" gorm:"type:numeric(18,4)"`
	Currency        valueobject.Currency `json:"currency"`
	MovementDate    time.Time        `json:"movement_date"`
	Method          SettlementMethod `json:"method"`
	ReferenceNumber string           `json:"reference_number"`
	AttachmentRef   string           `json:"attachment_ref"`
	Notes           string           `json:"notes"`
	Status          CollectionStatus `json:"status"`
	FromNetwork     bool             `json:"from_network"` // declared by the payer in a connected workspace
	DeclaredBy      uuid.UUID        `json:"declared_by" gorm:"type:uuid"`
	DeclaredAt      time.Time        `json:"declared_at"`
	ConfirmedBy     *uuid.UUID       `json:"confirmed_by" gorm:"type:uuid"`
	ConfirmedAt     *time.Time       `json:"confirmed_at"`
	RejectedReason  string           `json:"rejected_reason"`
}

func validateCollectionFields(invoiceID uuid.UUID, amount valueobject.Money, movementDate time.Time, method SettlementMethod, declaredBy uuid.UUID) error {
	if invoiceID == uuid.Nil {
		return shared.NewValidationError("Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return shared.NewValidationError("Collection amount must be positive")
	}
	if movementDate.IsZero() {
		return shared.NewValidationError("Movement date is required")
	}
	if !method.IsValid() {
		return shared.NewValidationError("Settlement method is not valid")
	}
	if declaredBy == uuid.Nil {
		return shared.NewValidationError("Declaring actor is required")
	}
	return nil
}

// NewSelfDeclaredCollection registers a collection declared by the invoice
// owner itself. The declarer is also the balance owner, so no counter-party
// action is required and the record is confirmed immediately.
func NewSelfDeclaredCollection(
	companyID uuid.UUID,
	invoiceID uuid.UUID,
	amount valueobject.Money,
	movementDate time.Time,
	method SettlementMethod,
	declaredBy uuid.UUID,
) (*Collection, error) {
	if err := validateCollectionFields(invoiceID, amount, movementDate, method, declaredBy); err != nil {
		return nil, err
	}

	now := time.Now()
	c := &Collection{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, declaredBy),
		InvoiceID:            invoiceID,
		Amount:               amount.Amount(),
		Currency:             amount.Currency(),
		MovementDate:         movementDate,
		Method:               method,
		Status:               CollectionStatusConfirmed,
		FromNetwork:          false,
		DeclaredBy:           declaredBy,
		DeclaredAt:           now,
		ConfirmedBy:          &declaredBy,
		ConfirmedAt:          &now,
	}

	c.AddDomainEvent(NewCollectionConfirmedEvent(c))

	return c, nil
}

// NewNetworkDeclaredCollection declares a collection on behalf of the invoice
// owner, from the payer side of a connected workspace. The record waits for
// the owner to confirm or reject, and a notification obligation is created
// for the owning company.
func NewNetworkDeclaredCollection(
	companyID uuid.UUID,
	invoiceID uuid.UUID,
	amount valueobject.Money,
	movementDate time.Time,
	method SettlementMethod,
	declaredBy uuid.UUID,
) (*Collection, error) {
	if err := validateCollectionFields(invoiceID, amount, movementDate, method, declaredBy); err != nil {
		return nil, err
	}

	c := &Collection{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, declaredBy),
		InvoiceID:            invoiceID,
		Amount:               amount.Amount(),
		Currency:             amount.Currency(),
		MovementDate:         movementDate,
		Method:               method,
		Status:               CollectionStatusPendingConfirmation,
		FromNetwork:          true,
		DeclaredBy:           declaredBy,
		DeclaredAt:           time.Now(),
	}

	c.AddDomainEvent(NewCollectionDeclaredEvent(c))

	return c, nil
}

// Confirm finalizes a pending collection. Only the invoice-owning company may
// confirm; after this the settlement reduces the invoice's effective balance.
func (c *Collection) Confirm(confirmedBy uuid.UUID) error {
	if confirmedBy == uuid.Nil {
		return shared.NewValidationError("Confirming actor is required")
	}
	next, err := nextCollectionStatus(c.Status, CollectionActionConfirm)
	if err != nil {
		return err
	}

	now := time.Now()
	c.Status = next
	c.ConfirmedBy = &confirmedBy
	c.ConfirmedAt = &now
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewCollectionConfirmedEvent(c))

	return nil
}

// Reject finalizes a pending collection with no balance effect. The reason is
// optional and kept for the declaring party.
func (c *Collection) Reject(rejectedBy uuid.UUID, reason string) error {
	if rejectedBy == uuid.Nil {
		return shared.NewValidationError("Rejecting actor is required")
	}
	next, err := nextCollectionStatus(c.Status, CollectionActionReject)
	if err != nil {
		return err
	}

	now := time.Now()
	c.Status = next
	c.ConfirmedBy = &rejectedBy
	c.ConfirmedAt = &now
	c.RejectedReason = reason
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewCollectionRejectedEvent(c))

	return nil
}

// AmountMoney returns the collection amount as Money
func (c *Collection) AmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(c.Amount, c.Currency)
	return m
}

// IsConfirmed returns true if the collection is confirmed
func (c *Collection) IsConfirmed() bool {
	return c.Status == CollectionStatusConfirmed
}
