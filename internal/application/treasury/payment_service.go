package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/facturacion/backend/internal/domain/billing"
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/facturacion/backend/internal/domain/treasury"
	"github.com/facturacion/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// AgentConfigProvider resolves the paying company's retention-agent standing
// and the withholding rules that apply to it
type AgentConfigProvider interface {
	RetentionConfig(ctx context.Context, companyID uuid.UUID) (treasury.AgentConfig, error)
}

// PaymentService registers and resolves payment records against purchase
// invoices. Retention lines are computed at declaration time from the
// company's agent configuration; the net amount settles the balance.
type PaymentService struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo treasury.PaymentRepository
	agentConfig AgentConfigProvider
	notifier    Notifier
	events      shared.EventPublisher
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo treasury.PaymentRepository,
	agentConfig AgentConfigProvider,
	notifier Notifier,
) *PaymentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &PaymentService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		agentConfig: agentConfig,
		notifier:    notifier,
	}
}

// SetEventPublisher injects the bus used to publish domain events after a
// successful save
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.events = publisher
}

// RegisterPaymentRequest carries the fields to declare a payment
type RegisterPaymentRequest struct {
	CompanyID       uuid.UUID
	InvoiceID       uuid.UUID
	Amount          valueobject.Money
	MovementDate    time.Time
	Method          treasury.SettlementMethod
	ReferenceNumber string
	AttachmentRef   string
	Notes           string
	DeclaredBy      uuid.UUID
}

// Register declares a payment by the paying company. The gross amount is
// validated against the live balance, retention lines are computed from the
// company's agent configuration and the record starts pending.
func (s *PaymentService) Register(ctx context.Context, req RegisterPaymentRequest) (*treasury.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "register")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrAmount, req.Amount.Amount().String(),
	)

	invoice, err := s.loadPayableInvoice(ctx, req.CompanyID, req.InvoiceID, req.Amount)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	retentions, err := s.computeRetentions(ctx, req.CompanyID, req.Amount, invoice)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payment, err := treasury.NewPayment(
		req.CompanyID, req.InvoiceID, req.Amount, retentions,
		req.MovementDate, req.Method, req.DeclaredBy, false)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payment.ReferenceNumber = req.ReferenceNumber
	payment.AttachmentRef = req.AttachmentRef
	payment.Notes = req.Notes

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	publishEvents(ctx, s.events, payment)

	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, payment.ID.String())
	return payment, nil
}

// DeclareFromNetwork records a payment declared by the supplier side of a
// connected workspace. No retention lines are attached; the paying company
// reviews the declaration before it settles anything.
func (s *PaymentService) DeclareFromNetwork(ctx context.Context, req RegisterPaymentRequest) (*treasury.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "declare_from_network")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrFromNetwork, true,
	)

	if _, err := s.loadPayableInvoice(ctx, req.CompanyID, req.InvoiceID, valueobject.Money{}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	payment, err := treasury.NewPayment(
		req.CompanyID, req.InvoiceID, req.Amount, nil,
		req.MovementDate, req.Method, req.DeclaredBy, true)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	payment.ReferenceNumber = req.ReferenceNumber
	payment.AttachmentRef = req.AttachmentRef
	payment.Notes = req.Notes

	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	s.notifier.PaymentDeclared(ctx, req.CompanyID, payment)
	publishEvents(ctx, s.events, payment)

	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentID, payment.ID.String())
	return payment, nil
}

// StartProcessing moves a pending payment into the in-process state. An
// in-process payment still does not settle anything.
func (s *PaymentService) StartProcessing(ctx context.Context, companyID, paymentID uuid.UUID) (*treasury.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "start_processing")
	defer span.End()

	payment, err := s.loadPayment(ctx, companyID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := payment.StartProcessing(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}
	return payment, nil
}

// Confirm finalizes a payment. The net amount is re-validated against the
// live balance before the record flips, then the invoice is settled.
func (s *PaymentService) Confirm(ctx context.Context, companyID, paymentID, confirmedBy uuid.UUID) (*treasury.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "confirm")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrPaymentID, paymentID.String(),
	)

	payment, err := s.loadPayment(ctx, companyID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoice, err := s.loadPayableInvoice(ctx, companyID, payment.InvoiceID, payment.NetAmountMoney())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := payment.Confirm(confirmedBy); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	if err := s.settleInvoice(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	publishEvents(ctx, s.events, payment, invoice)

	return payment, nil
}

// Cancel withdraws a not-yet-confirmed payment. Only the declaring user's
// company may withdraw; a confirmed payment is immutable.
func (s *PaymentService) Cancel(ctx context.Context, companyID, paymentID, cancelledBy uuid.UUID) (*treasury.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "cancel")
	defer span.End()

	payment, err := s.loadPayment(ctx, companyID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := payment.Cancel(cancelledBy); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	publishEvents(ctx, s.events, payment)

	return payment, nil
}

// Reject finalizes a network-declared payment with no balance effect
func (s *PaymentService) Reject(ctx context.Context, companyID, paymentID, rejectedBy uuid.UUID, reason string) (*treasury.Payment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "reject")
	defer span.End()

	payment, err := s.loadPayment(ctx, companyID, paymentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := payment.Reject(rejectedBy, reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.paymentRepo.SaveWithLock(ctx, payment); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	publishEvents(ctx, s.events, payment)

	return payment, nil
}

// ListByInvoice returns all payment records for one invoice
func (s *PaymentService) ListByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]*treasury.Payment, error) {
	records, err := s.paymentRepo.FindByInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payments: %w", err)
	}
	return records, nil
}

func (s *PaymentService) computeRetentions(ctx context.Context, companyID uuid.UUID, amount valueobject.Money, invoice *billing.Invoice) (treasury.RetentionLines, error) {
	if s.agentConfig == nil {
		return treasury.RetentionLines{}, nil
	}
	cfg, err := s.agentConfig.RetentionConfig(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load retention config: %w", err)
	}
	return treasury.CalculateRetentions(cfg, treasury.RetentionInput{
		Payment:         amount,
		InvoiceSubtotal: invoice.Subtotal,
		InvoiceTotal:    invoice.TotalAmount,
	})
}

func (s *PaymentService) loadPayment(ctx context.Context, companyID, paymentID uuid.UUID) (*treasury.Payment, error) {
	payment, err := s.paymentRepo.FindByIDForCompany(ctx, companyID, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	if payment == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Payment not found")
	}
	return payment, nil
}

// loadPayableInvoice loads a purchase invoice that can still receive
// settlements and, when amount carries a value, checks the net amount
// against the live pending balance
func (s *PaymentService) loadPayableInvoice(ctx context.Context, companyID, invoiceID uuid.UUID, amount valueobject.Money) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForCompany(ctx, companyID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Invoice not found")
	}
	if invoice.Direction != billing.DirectionPurchase {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Payments apply to purchase invoices only")
	}
	if invoice.Status != billing.StatusIssued {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Invoice in status %s cannot receive payments", invoice.Status))
	}
	if invoice.PaymentStatus.IsSettledOrCancelled() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Invoice balance is already settled")
	}

	if amount.Amount().IsZero() {
		return invoice, nil
	}

	breakdown, err := pendingBreakdown(ctx, s.invoiceRepo, nil, s.paymentRepo, invoice)
	if err != nil {
		return nil, err
	}
	pending := breakdown.BalancePendingMoney()
	if amount.Currency() != pending.Currency() {
		return nil, shared.NewCurrencyMismatchError(fmt.Sprintf(
			"Declared currency %s does not match invoice currency %s", amount.Currency(), pending.Currency()))
	}
	if amount.Amount().GreaterThan(pending.Amount()) {
		return nil, shared.NewDomainError(shared.CodeExceedsBalance, fmt.Sprintf(
			"Declared amount %s exceeds pending balance %s", amount.Amount(), pending.Amount()))
	}

	return invoice, nil
}

func (s *PaymentService) settleInvoice(ctx context.Context, invoice *billing.Invoice) error {
	breakdown, err := pendingBreakdown(ctx, s.invoiceRepo, nil, s.paymentRepo, invoice)
	if err != nil {
		return err
	}

	if breakdown.BalancePending.IsZero() {
		if err := invoice.MarkSettled(); err != nil {
			return err
		}
	} else {
		if err := invoice.MarkPartiallySettled(); err != nil {
			return err
		}
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		if shared.IsCode(err, shared.CodeStaleBalance) {
			return err
		}
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}
