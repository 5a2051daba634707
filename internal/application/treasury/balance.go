package treasury

import (
	"context"
	"fmt"

	"github.com/facturacion/backend/internal/domain/billing"
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/shared/valueobject"
	"github.com/facturacion/backend/internal/domain/treasury"
	"github.com/shopspring/decimal"
)

// publishEvents drains pending domain events onto the bus. Publishing is
// best effort; the transition is already durable when this runs.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, aggregates ...shared.AggregateRoot) {
	if publisher == nil {
		return
	}
	for _, agg := range aggregates {
		events := agg.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		_ = publisher.Publish(ctx, events...)
		agg.ClearDomainEvents()
	}
}

// pendingBreakdown recomputes an invoice's live balance from its adjustment
// notes and confirmed settlement records. Sale invoices settle from gross
// collections, purchase invoices from payment net amounts. Either repo may be
// nil when the direction cannot need it.
func pendingBreakdown(
	ctx context.Context,
	invoiceRepo billing.InvoiceRepository,
	collectionRepo treasury.CollectionRepository,
	paymentRepo treasury.PaymentRepository,
	invoice *billing.Invoice,
) (*billing.AdjustmentBreakdown, error) {
	notes, err := invoiceRepo.FindAdjustmentNotes(ctx, invoice.CompanyID, invoice.ID)
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

	var sum decimal.Decimal
	switch invoice.Direction {
	case billing.DirectionSale:
		if collectionRepo == nil {
			return nil, fmt.Errorf("collection repository is required for sale invoices")
		}
		sum, err = collectionRepo.SumConfirmedByInvoice(ctx, invoice.CompanyID, invoice.ID)
	case billing.DirectionPurchase:
		if paymentRepo == nil {
			return nil, fmt.Errorf("payment repository is required for purchase invoices")
		}
		sum, err = paymentRepo.SumConfirmedNetByInvoice(ctx, invoice.CompanyID, invoice.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sum settlements: %w", err)
	}

	settled, err := valueobject.NewMoney(sum, invoice.Currency)
	if err != nil {
		return nil, err
	}

	return billing.ComputeBreakdown(invoice, creditNotes, debitNotes, settled)
}
