package treasury

import (
	"context"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectionFilter narrows collection queries
type CollectionFilter struct {
	shared.Filter
	InvoiceID   *uuid.UUID
	Status      *CollectionStatus
	FromNetwork *bool
}

// CollectionRepository persists collection records
type CollectionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Collection, error)
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Collection, error)
	FindByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]*Collection, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter CollectionFilter) (*shared.Paginated[*Collection], error)
	Save(ctx context.Context, collection *Collection) error
	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, collection *Collection) error
	// SumConfirmedByInvoice totals confirmed collection amounts per invoice
	SumConfirmedByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (decimal.Decimal, error)
}

// PaymentFilter narrows payment queries
type PaymentFilter struct {
	shared.Filter
	InvoiceID   *uuid.UUID
	Status      *PaymentStatus
	FromNetwork *bool
}

// PaymentRepository persists payment records
type PaymentRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Payment, error)
	FindByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]*Payment, error)
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter PaymentFilter) (*shared.Paginated[*Payment], error)
	Save(ctx context.Context, payment *Payment) error
	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, payment *Payment) error
	// SumConfirmedNetByInvoice totals confirmed payment net amounts per invoice
	SumConfirmedNetByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (decimal.Decimal, error)
}
