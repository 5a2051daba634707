package persistence

import (
	"context"
	"errors"

	"github.com/facturacion/backend/internal/domain/billing"
	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByIDForCompany finds an invoice by ID scoped to a company workspace
func (r *GormInvoiceRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		First(&invoice, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindByNumber finds by voucher type, sales point and number for a company
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, voucherTypeCode string, salesPoint int, voucherNumber int64) (*billing.Invoice, error) {
	var invoice billing.Invoice
	if err := r.db.WithContext(ctx).
		First(&invoice, "company_id = ? AND voucher_type_code = ? AND sales_point = ? AND voucher_number = ?",
			companyID, voucherTypeCode, salesPoint, voucherNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

// FindAdjustmentNotes finds the credit/debit notes referencing an invoice
func (r *GormInvoiceRepository) FindAdjustmentNotes(ctx context.Context, companyID, relatedInvoiceID uuid.UUID) ([]billing.Invoice, error) {
	var notes []billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND related_invoice_id = ?", companyID, relatedInvoiceID).
		Order("issue_date ASC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// FindAllForCompany finds invoices for a company with filtering
func (r *GormInvoiceRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	query := r.applyFilter(r.db.WithContext(ctx).Where("company_id = ?", companyID), filter)

	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize)
		if filter.Page > 0 {
			query = query.Offset((filter.Page - 1) * filter.PageSize)
		}
	}

	if err := query.Order("issue_date DESC").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// FindOutstanding finds issued, unsettled, non-note invoices for a company
func (r *GormInvoiceRepository) FindOutstanding(ctx context.Context, companyID uuid.UUID, direction billing.InvoiceDirection) ([]billing.Invoice, error) {
	var invoices []billing.Invoice
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND direction = ? AND status = ?", companyID, direction, billing.StatusIssued).
		Where("payment_status NOT IN ?", []billing.PaymentStatus{
			billing.PaymentStatusPaid, billing.PaymentStatusCollected, billing.PaymentStatusCancelled,
		}).
		Where("related_invoice_id IS NULL").
		Order("due_date ASC NULLS LAST").
		Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// Save creates or updates an invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Save(invoice).Error
}

// SaveWithLock saves with optimistic locking (version check). A version
// mismatch surfaces as STALE_BALANCE; callers report it, never retry it.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	result := r.db.WithContext(ctx).
		Model(invoice).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(invoice)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeStaleBalance,
			"Invoice was modified concurrently, reload and retry")
	}
	return nil
}

// CountForCompany counts invoices for a company with optional filters
func (r *GormInvoiceRepository) CountForCompany(ctx context.Context, companyID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&billing.Invoice{}).Where("company_id = ?", companyID), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByNumber checks if a voucher number is already taken for a company
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, companyID uuid.UUID, voucherTypeCode string, salesPoint int, voucherNumber int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&billing.Invoice{}).
		Where("company_id = ? AND voucher_type_code = ? AND sales_point = ? AND voucher_number = ?",
			companyID, voucherTypeCode, salesPoint, voucherNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.VoucherTypeCode != nil {
		query = query.Where("voucher_type_code = ?", *filter.VoucherTypeCode)
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", *filter.IssuedFrom)
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", *filter.IssuedTo)
	}
	if filter.DueFrom != nil {
		query = query.Where("due_date >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("due_date <= ?", *filter.DueTo)
	}
	if filter.MinAmount != nil {
		query = query.Where("total_amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("total_amount <= ?", *filter.MaxAmount)
	}
	return query
}

// Ensure GormInvoiceRepository implements the interface
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
