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

// CollectionService registers and resolves collection records against sale
// invoices. Every mutation re-validates the declared amount against the live
// balance; a version conflict on the invoice surfaces as STALE_BALANCE and is
// never retried on the caller's behalf.
type CollectionService struct {
	invoiceRepo    billing.InvoiceRepository
	collectionRepo treasury.CollectionRepository
	notifier       Notifier
	events         shared.EventPublisher
}

// NewCollectionService creates a new CollectionService
func NewCollectionService(
	invoiceRepo billing.InvoiceRepository,
	collectionRepo treasury.CollectionRepository,
	notifier Notifier,
) *CollectionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &CollectionService{
		invoiceRepo:    invoiceRepo,
		collectionRepo: collectionRepo,
		notifier:       notifier,
	}
}

// SetEventPublisher injects the bus used to publish domain events after a
// successful save
func (s *CollectionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.events = publisher
}

// RegisterCollectionRequest carries the fields to declare a collection
type RegisterCollectionRequest struct {
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

// Register declares a collection on behalf of the invoice owner. The record
// is confirmed immediately and the invoice balance is settled in the same
// operation.
func (s *CollectionService) Register(ctx context.Context, req RegisterCollectionRequest) (*treasury.Collection, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "collection", "register")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrAmount, req.Amount.Amount().String(),
	)

	invoice, err := s.loadCollectableInvoice(ctx, req.CompanyID, req.InvoiceID, req.Amount)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	collection, err := treasury.NewSelfDeclaredCollection(
		req.CompanyID, req.InvoiceID, req.Amount, req.MovementDate, req.Method, req.DeclaredBy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	collection.ReferenceNumber = req.ReferenceNumber
	collection.AttachmentRef = req.AttachmentRef
	collection.Notes = req.Notes

	if err := s.collectionRepo.Save(ctx, collection); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save collection: %w", err)
	}

	if err := s.settleInvoice(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	publishEvents(ctx, s.events, collection, invoice)

	telemetry.SetAttribute(span, telemetry.SpanAttrCollectionID, collection.ID.String())
	return collection, nil
}

// DeclareFromNetwork records a collection declared by the paying counterparty
// through the workspace network. The record stays pending until the invoice
// owner confirms or rejects it; the owner is notified.
func (s *CollectionService) DeclareFromNetwork(ctx context.Context, req RegisterCollectionRequest) (*treasury.Collection, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "collection", "declare_from_network")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, req.CompanyID.String(),
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrFromNetwork, true,
	)

	// pending declarations may exceed the balance; the owner decides at
	// confirmation time, against the balance of that moment
	if _, err := s.loadCollectableInvoice(ctx, req.CompanyID, req.InvoiceID, valueobject.Money{}); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	collection, err := treasury.NewNetworkDeclaredCollection(
		req.CompanyID, req.InvoiceID, req.Amount, req.MovementDate, req.Method, req.DeclaredBy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	collection.ReferenceNumber = req.ReferenceNumber
	collection.AttachmentRef = req.AttachmentRef
	collection.Notes = req.Notes

	if err := s.collectionRepo.Save(ctx, collection); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save collection: %w", err)
	}

	s.notifier.CollectionDeclared(ctx, req.CompanyID, collection)
	publishEvents(ctx, s.events, collection)

	telemetry.SetAttribute(span, telemetry.SpanAttrCollectionID, collection.ID.String())
	return collection, nil
}

// Confirm resolves a pending network-declared collection. The declared amount
// is re-validated against the live balance before the record flips, so a
// credit note issued after the declaration still caps what can be settled.
func (s *CollectionService) Confirm(ctx context.Context, companyID, collectionID, confirmedBy uuid.UUID) (*treasury.Collection, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "collection", "confirm")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrCollectionID, collectionID.String(),
	)

	collection, err := s.loadCollection(ctx, companyID, collectionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	invoice, err := s.loadCollectableInvoice(ctx, companyID, collection.InvoiceID, collection.AmountMoney())
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := collection.Confirm(confirmedBy); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.collectionRepo.SaveWithLock(ctx, collection); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save collection: %w", err)
	}

	if err := s.settleInvoice(ctx, invoice); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	publishEvents(ctx, s.events, collection, invoice)

	return collection, nil
}

// Reject resolves a pending network-declared collection with no balance
// effect
func (s *CollectionService) Reject(ctx context.Context, companyID, collectionID, rejectedBy uuid.UUID, reason string) (*treasury.Collection, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "collection", "reject")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrCompanyID, companyID.String(),
		telemetry.SpanAttrCollectionID, collectionID.String(),
	)

	collection, err := s.loadCollection(ctx, companyID, collectionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := collection.Reject(rejectedBy, reason); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.collectionRepo.SaveWithLock(ctx, collection); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save collection: %w", err)
	}

	publishEvents(ctx, s.events, collection)

	return collection, nil
}

// ListByInvoice returns all collection records for one invoice
func (s *CollectionService) ListByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]*treasury.Collection, error) {
	records, err := s.collectionRepo.FindByInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	return records, nil
}

func (s *CollectionService) loadCollection(ctx context.Context, companyID, collectionID uuid.UUID) (*treasury.Collection, error) {
	collection, err := s.collectionRepo.FindByIDForCompany(ctx, companyID, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}
	if collection == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Collection not found")
	}
	return collection, nil
}

// loadCollectableInvoice loads a sale invoice that can still receive
// settlements and, when amount carries a value, checks it against the live
// pending balance
func (s *CollectionService) loadCollectableInvoice(ctx context.Context, companyID, invoiceID uuid.UUID, amount valueobject.Money) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForCompany(ctx, companyID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if invoice == nil {
		return nil, shared.NewDomainError(shared.CodeNotFound, "Invoice not found")
	}
	if invoice.Direction != billing.DirectionSale {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Collections apply to sale invoices only")
	}
	if invoice.Status != billing.StatusIssued {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Invoice in status %s cannot receive collections", invoice.Status))
	}
	if invoice.PaymentStatus.IsSettledOrCancelled() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Invoice balance is already settled")
	}

	if amount.Amount().IsZero() {
		return invoice, nil
	}

	breakdown, err := pendingBreakdown(ctx, s.invoiceRepo, s.collectionRepo, nil, invoice)
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

// settleInvoice recomputes the balance after the settlement landed and marks
// the invoice settled or partially settled under optimistic locking
func (s *CollectionService) settleInvoice(ctx context.Context, invoice *billing.Invoice) error {
	breakdown, err := pendingBreakdown(ctx, s.invoiceRepo, s.collectionRepo, nil, invoice)
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
