package treasury

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the status of a payment record
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusInProcess PaymentStatus = "IN_PROCESS"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusRejected  PaymentStatus = "REJECTED" // network-declared payments only
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusInProcess, PaymentStatusConfirmed,
		PaymentStatusCancelled, PaymentStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// IsTerminal returns true once the record can never change again
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusConfirmed || s == PaymentStatusCancelled || s == PaymentStatusRejected
}

// PaymentAction is an action requested against a payment record
type PaymentAction string

const (
	PaymentActionStartProcessing PaymentAction = "START_PROCESSING"
	PaymentActionConfirm         PaymentAction = "CONFIRM"
	PaymentActionCancel          PaymentAction = "CANCEL"
	PaymentActionReject          PaymentAction = "REJECT"
)

// paymentTransitions is the defensive state table. Undefined (state, action)
// pairs fail closed with INVALID_TRANSITION.
var paymentTransitions = map[PaymentStatus]map[PaymentAction]PaymentStatus{
	PaymentStatusPending: {
		PaymentActionStartProcessing: PaymentStatusInProcess,
		PaymentActionConfirm:         PaymentStatusConfirmed,
		PaymentActionCancel:          PaymentStatusCancelled,
		PaymentActionReject:          PaymentStatusRejected,
	},
	PaymentStatusInProcess: {
		PaymentActionConfirm: PaymentStatusConfirmed,
		PaymentActionCancel:  PaymentStatusCancelled,
		PaymentActionReject:  PaymentStatusRejected,
	},
}

// nextPaymentStatus resolves a transition or fails closed
func nextPaymentStatus(from PaymentStatus, action PaymentAction) (PaymentStatus, error) {
	if actions, ok := paymentTransitions[from]; ok {
		if to, ok := actions[action]; ok {
			return to, nil
		}
	}
	if from.IsTerminal() {
		return "", shared.NewDomainError(shared.CodeInvalidTransition,
			fmt.Sprintf("Payment is already %s and cannot be modified", from))
	}
	return "", shared.NewDomainError(shared.CodeInvalidTransition,
		fmt.Sprintf("Action %s is not defined for payment status %s", action, from))
}

// RetentionLine is one statutory withholding applied to a payment. Computed
// per payment by the retention calculator, stored only inside the payment
// record that embeds it.
type RetentionLine struct {
	TaxCode           string          `json:"tax_code"`
	Name              string          `json:"name"`
	Rate              decimal.Decimal `json:"rate"` // fractional, 0-1
	BaseAmount        decimal.Decimal `json:"base_amount"`
	Amount            decimal.Decimal `json:"amount"`
	CertificateNumber string          `json:"certificate_number,omitempty"`
}

// RetentionLines is stored as JSONB inside the payment row
type RetentionLines []RetentionLine

// Value implements driver.Valuer for JSONB storage
func (r RetentionLines) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB retrieval
func (r *RetentionLines) Scan(value interface{}) error {
	if value == nil {
		*r = RetentionLines{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan RetentionLines: unsupported type")
	}

	if len(bytes) == 0 {
		*r = RetentionLines{}
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// Total sums the line amounts
func (r RetentionLines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r {
		total = total.Add(line.Amount)
	}
	return total
}

// Payment records that the company paid (or declared paying) a supplier
// invoice. The gross amount may carry statutory retention lines; the net
// amount, gross minus retentions, is what settles the invoice balance.
type Payment struct {
	shared.CompanyAggregateRoot
	InvoiceID       uuid.UUID        `json:"invoice_id" gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal  `json:"amount" gorm:"type:numeric(18,4)"` // gross
	RetentionTotal  decimal.Decimal  `json:"retention_total" gorm:"type:numeric(18,4)"`
	NetAmount       decimal.Decimal  `json:"net_amount" gorm:"type:numeric(18,4)"`
	Currency        valueobject.Currency `json:"currency"`
	MovementDate    time.Time        `json:"movement_date"`
	Method          SettlementMethod `json:"method"`
	ReferenceNumber string           `json:"reference_number"`
	AttachmentRef   string           `json:"attachment_ref"`
	Notes           string           `json:"notes"`
	Status          PaymentStatus    `json:"status"`
	FromNetwork     bool             `json:"from_network"`
	Retentions      RetentionLines   `json:"retentions" gorm:"type:jsonb"`
	DeclaredBy      uuid.UUID        `json:"declared_by" gorm:"type:uuid"`
	DeclaredAt      time.Time        `json:"declared_at"`
	ConfirmedBy     *uuid.UUID       `json:"confirmed_by" gorm:"type:uuid"`
	ConfirmedAt     *time.Time       `json:"confirmed_at"`
	CancelledAt     *time.Time       `json:"cancelled_at"`
	RejectedReason  string           `json:"rejected_reason"`
}

// NewPayment declares a payment against a supplier invoice. Network-declared
// payments start pending and wait for the balance owner; otherwise the record
// starts pending and the declaring company drives it to confirmation.
func NewPayment(
	companyID uuid.UUID,
	invoiceID uuid.UUID,
	amount valueobject.Money,
	retentions RetentionLines,
	movementDate time.Time,
	method SettlementMethod,
	declaredBy uuid.UUID,
	fromNetwork bool,
) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewValidationError("Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be positive")
	}
	if movementDate.IsZero() {
		return nil, shared.NewValidationError("Movement date is required")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("Settlement method is not valid")
	}
	if declaredBy == uuid.Nil {
		return nil, shared.NewValidationError("Declaring actor is required")
	}
	if retentions == nil {
		retentions = RetentionLines{}
	}

	retentionTotal := retentions.Total()
	net := amount.Amount().Sub(retentionTotal)
	if net.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewValidationError("Retentions cannot consume the whole payment amount")
	}

	p := &Payment{
		CompanyAggregateRoot: shared.NewCompanyAggregateRootWithCreator(companyID, declaredBy),
		InvoiceID:            invoiceID,
		Amount:               amount.Amount(),
		RetentionTotal:       retentionTotal,
		NetAmount:            net,
		Currency:             amount.Currency(),
		MovementDate:         movementDate,
		Method:               method,
		Status:               PaymentStatusPending,
		FromNetwork:          fromNetwork,
		Retentions:           retentions,
		DeclaredBy:           declaredBy,
		DeclaredAt:           time.Now(),
	}

	p.AddDomainEvent(NewPaymentDeclaredEvent(p))

	return p, nil
}

// StartProcessing moves a pending payment into the in-process state, e.g.
// while a check clears
func (p *Payment) StartProcessing() error {
	next, err := nextPaymentStatus(p.Status, PaymentActionStartProcessing)
	if err != nil {
		return err
	}
	p.Status = next
	p.touch()
	return nil
}

// Confirm finalizes the payment. The net amount becomes the settled effect
// on the invoice balance.
func (p *Payment) Confirm(confirmedBy uuid.UUID) error {
	if confirmedBy == uuid.Nil {
		return shared.NewValidationError("Confirming actor is required")
	}
	next, err := nextPaymentStatus(p.Status, PaymentActionConfirm)
	if err != nil {
		return err
	}

	now := time.Now()
	p.Status = next
	p.ConfirmedBy = &confirmedBy
	p.ConfirmedAt = &now
	p.touch()

	p.AddDomainEvent(NewPaymentConfirmedEvent(p))

	return nil
}

// Cancel withdraws a not-yet-confirmed payment. This is a withdrawal by the
// declaring company, not a rejection; it carries no counter-party obligation.
func (p *Payment) Cancel(cancelledBy uuid.UUID) error {
	if cancelledBy == uuid.Nil {
		return shared.NewValidationError("Cancelling actor is required")
	}
	next, err := nextPaymentStatus(p.Status, PaymentActionCancel)
	if err != nil {
		return err
	}

	now := time.Now()
	p.Status = next
	p.CancelledAt = &now
	p.touch()

	p.AddDomainEvent(NewPaymentCancelledEvent(p))

	return nil
}

// Reject finalizes a network-declared payment with no balance effect
func (p *Payment) Reject(rejectedBy uuid.UUID, reason string) error {
	if rejectedBy == uuid.Nil {
		return shared.NewValidationError("Rejecting actor is required")
	}
	if !p.FromNetwork {
		return shared.NewDomainError(shared.CodeInvalidState,
			"Only network-declared payments can be rejected; withdraw the payment instead")
	}
	next, err := nextPaymentStatus(p.Status, PaymentActionReject)
	if err != nil {
		return err
	}

	now := time.Now()
	p.Status = next
	p.ConfirmedBy = &rejectedBy
	p.ConfirmedAt = &now
	p.RejectedReason = reason
	p.touch()

	p.AddDomainEvent(NewPaymentRejectedEvent(p))

	return nil
}

// AmountMoney returns the gross amount as Money
func (p *Payment) AmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.Amount, p.Currency)
	return m
}

// NetAmountMoney returns the net disbursed amount as Money
func (p *Payment) NetAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(p.NetAmount, p.Currency)
	return m
}

// IsConfirmed returns true if the payment is confirmed
func (p *Payment) IsConfirmed() bool {
	return p.Status == PaymentStatusConfirmed
}

func (p *Payment) touch() {
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
}
