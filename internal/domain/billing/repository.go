package billing

import (
	"context"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	Direction       *InvoiceDirection
	Status          *LifecycleStatus
	PaymentStatus   *PaymentStatus
	VoucherTypeCode *string
	IssuedFrom      *time.Time
	IssuedTo        *time.Time
	DueFrom         *time.Time
	DueTo           *time.Time
	MinAmount       *decimal.Decimal
	MaxAmount       *decimal.Decimal
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID finds an invoice by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByIDForCompany finds an invoice by ID scoped to a company workspace
	FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*Invoice, error)

	// FindByNumber finds by voucher type, sales point and number for a company
	FindByNumber(ctx context.Context, companyID uuid.UUID, voucherTypeCode string, salesPoint int, voucherNumber int64) (*Invoice, error)

	// FindAdjustmentNotes finds the credit/debit notes referencing an invoice
	FindAdjustmentNotes(ctx context.Context, companyID, relatedInvoiceID uuid.UUID) ([]Invoice, error)

	// FindAllForCompany finds invoices for a company with filtering
	FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)

	// FindOutstanding finds issued, unsettled, non-note invoices for a company
	FindOutstanding(ctx context.Context, companyID uuid.UUID, direction InvoiceDirection) ([]Invoice, error)

	// Save creates or updates an invoice
	Save(ctx context.Context, invoice *Invoice) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// CountForCompany counts invoices for a company with optional filters
	CountForCompany(ctx context.Context, companyID uuid.UUID, filter InvoiceFilter) (int64, error)

	// ExistsByNumber checks if a voucher number is already taken for a company
	ExistsByNumber(ctx context.Context, companyID uuid.UUID, voucherTypeCode string, salesPoint int, voucherNumber int64) (bool, error)
}
