package billing

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
	"github.com/shopspring/decimal"
)

// InvoiceService coordinates invoice lifecycle, balance breakdowns, due-date
// classification and portfolio summaries
type InvoiceService struct {
	invoiceRepo    billing.InvoiceRepository
	collectionRepo treasury.CollectionRepository
	paymentRepo    treasury.PaymentRepository
	events         shared.EventPublisher
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	collectionRepo treasury.CollectionRepository,
	paymentRepo treasury.PaymentRepository,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:    invoiceRepo,
		collectionRepo: collectionRepo,
		paymentRepo:    paymentRepo,
	}
}

// SetEventPublisher injects the bus used to publish domain events after a
// successful save
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.events = publisher
}

// publishEvents drains pending domain events onto the bus. Best effort; the
// state change is already durable when this runs.
func (s *InvoiceService) publishEvents(ctx context.Context, invoice *billing.Invoice) {
	if s.events == nil {
		return
	}
	events := invoice.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.events.Publish(ctx, events...)
	invoice.ClearDomainEvents()
}

// CreateInvoiceRequest carries the fields to register a new voucher
type CreateInvoiceRequest struct {
	CompanyID        uuid.UUID
	VoucherTypeCode  string
	Direction        billing.InvoiceDirection
	SalesPoint       int
	VoucherNumber    int64
	Counterparty     billing.Counterparty
	IssueDate        time.Time
	DueDate          *time.Time
	Totals           billing.InvoiceTotals
	RelatedInvoiceID *uuid.UUID
	CreatedBy        uuid.UUID
}

// CreateInvoice registers a voucher. Adjustment notes must reference an
// existing invoice of the same company, direction and currency.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrVoucherType, req.VoucherTypeCode,
	)

	exists, err := s.invoiceRepo.ExistsByNumber(ctx, req.CompanyID, req.VoucherTypeCode, req.SalesPoint, req.VoucherNumber)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to check voucher number: %w", err)
	}
	if exists {
		err := shared.NewDomainError(shared.CodeAlreadyExists,
			fmt.Sprintf("Voucher %s %04d-%08d already exists", req.VoucherTypeCode, req.SalesPoint, req.VoucherNumber))
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoice, err := billing.NewInvoice(
		req.CompanyID,
		req.VoucherTypeCode,
		req.Direction,
		req.SalesPoint,
		req.VoucherNumber,
		req.Counterparty,
		req.IssueDate,
		req.DueDate,
		req.Totals,
		req.RelatedInvoiceID,
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if req.CreatedBy != uuid.Nil {
		invoice.SetCreatedBy(req.CreatedBy)
	}

	if invoice.IsAdjustmentNote() {
		parent, err := s.invoiceRepo.FindByIDForCompany(ctx, req.CompanyID, *req.RelatedInvoiceID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to load related invoice: %w", err)
		}
		if parent == nil {
			err := shared.NewDomainError(shared.CodeNotFound, "Related invoice not found")
			telemetry.RecordError(span, err)
			return nil, err
		}
		if err := invoice.ValidateAssociation(parent); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save invoice: %w", err)
	}

	s.publishEvents(ctx, invoice)

	telemetry.SetAttribute(span, telemetry.SpanAttrInvoiceID, invoice.ID.String())
	return invoice, nil
}

// Approve moves a pending invoice into the approved state
func (s *InvoiceService) Approve(ctx context.Context, companyID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	return s.applyLifecycle(ctx, "approve", companyID, invoiceID, func(inv *billing.Invoice) error {
		return inv.Approve()
	})
}

// RejectApproval rejects a pending invoice
func (s *InvoiceService) RejectApproval(ctx context.Context, companyID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	return s.applyLifecycle(ctx, "reject_approval", companyID, invoiceID, func(inv *billing.Invoice) error {
		return inv.RejectApproval()
	})
}

// Issue marks an approved invoice as issued and opens its balance
func (s *InvoiceService) Issue(ctx context.Context, companyID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	return s.applyLifecycle(ctx, "issue", companyID, invoiceID, func(inv *billing.Invoice) error {
		return inv.MarkIssued()
	})
}

// Cancel voids an invoice that has no confirmed settlements
func (s *InvoiceService) Cancel(ctx context.Context, companyID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel")
	defer span.End()

	invoice, err := s.loadInvoice(ctx, companyID, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	settled, err := s.settledAmount(ctx, invoice)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if settled.IsPositive() {
		err := shared.NewDomainError(shared.CodeInvalidState,
			"Invoice has confirmed settlements and cannot be cancelled")
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := invoice.Cancel(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.saveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return invoice, nil
}

// GetBreakdown computes the live adjustment breakdown for one invoice:
// original total, applied credit and debit notes, settled amount and the
// pending balance
func (s *InvoiceService) GetBreakdown(ctx context.Context, companyID, invoiceID uuid.UUID) (*billing.AdjustmentBreakdown, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "get_breakdown")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	invoice, err := s.loadInvoice(ctx, companyID, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	breakdown, err := s.computeBreakdown(ctx, invoice)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrAmount, breakdown.BalancePending.String())
	return breakdown, nil
}

// ListByDueBucket classifies the outstanding portfolio into due-date buckets
func (s *InvoiceService) ListByDueBucket(ctx context.Context, companyID uuid.UUID, direction billing.InvoiceDirection, bucket billing.DueBucket, today time.Time) ([]*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "list_by_due_bucket")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrDueBucket, string(bucket),
	)

	invoices, err := s.invoiceRepo.FindOutstanding(ctx, companyID, direction)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}

	matched := make([]*billing.Invoice, 0, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		c := billing.Classify(inv, today)
		if c.Bucket == bucket {
			matched = append(matched, inv)
		}
	}
	return matched, nil
}

// GetSummary aggregates the outstanding portfolio into per-bucket counts and
// amounts for one currency
func (s *InvoiceService) GetSummary(ctx context.Context, companyID uuid.UUID, direction billing.InvoiceDirection, currency valueobject.Currency, today time.Time) (*billing.SummaryTotals, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "get_summary")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrCurrency, string(currency),
	)

	invoices, err := s.invoiceRepo.FindOutstanding(ctx, companyID, direction)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}

	items := make([]billing.InvoiceBalance, 0, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		if inv.Currency != currency {
			continue
		}
		breakdown, err := s.computeBreakdown(ctx, inv)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		items = append(items, billing.InvoiceBalance{Invoice: inv, Breakdown: breakdown})
	}

	summary, err := billing.Summarize(currency, items, today)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return summary, nil
}

// GetResolvedState reduces an invoice's lifecycle, payment and due-date
// signals into one display state
func (s *InvoiceService) GetResolvedState(ctx context.Context, companyID, invoiceID uuid.UUID, today time.Time) (billing.ResolvedInvoiceState, error) {
	invoice, err := s.loadInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return "", err
	}
	return billing.ResolveState(invoice, today), nil
}

func (s *InvoiceService) applyLifecycle(ctx context.Context, op string, companyID, invoiceID uuid.UUID, apply func(*billing.Invoice) error) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", op)
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
	)

	invoice, err := s.loadInvoice(ctx, companyID, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := apply(invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.saveWithLock(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publishEvents(ctx, invoice)

	return invoice, nil
}

func (s *InvoiceService) loadInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForCompany(ctx, companyID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Invoice not found")
	}
	return invoice, nil
}

func (s *InvoiceService) saveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		if shared.IsCode(err, shared.CodeStaleBalance) {
			return err
		}
		return fmt.Errorf("failed to save invoice: %w", err)
	}
	return nil
}

// computeBreakdown loads the adjustment notes and the confirmed settlement
// total and runs the pure breakdown computation
func (s *InvoiceService) computeBreakdown(ctx context.Context, invoice *billing.Invoice) (*billing.AdjustmentBreakdown, error) {
	notes, err := s.invoiceRepo.FindAdjustmentNotes(ctx, invoice.CompanyID, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load adjustment notes: %w", err)
	}

	creditNotes := make([]*billing.Invoice, 0, len(notes))
	debitNotes := make([]*billing.Invoice, 0, len(notes))
	for i := range notes {
		note := &notes[i]
		vt, ok := billing.VoucherTypeByCode(note.VoucherTypeCode)
		if !ok {
			continue
		}
		switch vt.Category {
		case billing.CategoryCreditNote:
			creditNotes = append(creditNotes, note)
		case billing.CategoryDebitNote:
			debitNotes = append(debitNotes, note)
		}
	}

	settled, err := s.settledAmount(ctx, invoice)
	if err != nil {
		return nil, err
	}

	return billing.ComputeBreakdown(invoice, creditNotes, debitNotes, settled)
}

// settledAmount sums the confirmed settlement records for the invoice: gross
// collections on the receivable side, net payments on the payable side
func (s *InvoiceService) settledAmount(ctx context.Context, invoice *billing.Invoice) (valueobject.Money, error) {
	var sum decimal.Decimal
	var err error
	switch invoice.Direction {
	case billing.DirectionSale:
		sum, err = s.collectionRepo.SumConfirmedByInvoice(ctx, invoice.CompanyID, invoice.ID)
	case billing.DirectionPurchase:
		sum, err = s.paymentRepo.SumConfirmedNetByInvoice(ctx, invoice.CompanyID, invoice.ID)
	default:
		return valueobject.Money{}, shared.NewValidationError("Invoice direction is not valid")
	}
	if err != nil {
		return valueobject.Money{}, fmt.Errorf("failed to sum settlements: %w", err)
	}
	return valueobject.NewMoney(sum, invoice.Currency)
}
