package persistence

import (
	"context"
	"errors"

	"github.com/facturacion/backend/internal/domain/shared"
	"github.com/facturacion/backend/internal/domain/treasury"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Payment, error) {
	var payment treasury.Payment
	if err := r.db.WithContext(ctx).
		First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindByIDForCompany finds a payment by ID scoped to a company workspace
func (r *GormPaymentRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*treasury.Payment, error) {
	var payment treasury.Payment
	if err := r.db.WithContext(ctx).
		First(&payment, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

// FindByInvoice finds all payment records for one invoice
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]*treasury.Payment, error) {
	var payments []*treasury.Payment
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND invoice_id = ?", companyID, invoiceID).
		Order("movement_date ASC").
		Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// FindAllForCompany finds payments for a company with filtering and pagination
func (r *GormPaymentRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter treasury.PaymentFilter) (*shared.Paginated[*treasury.Payment], error) {
	query := r.db.WithContext(ctx).
		Model(&treasury.Payment{}).
		Where("company_id = ?", companyID)

	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromNetwork != nil {
		query = query.Where("from_network = ?", *filter.FromNetwork)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	var payments []*treasury.Payment
	if err := query.
		Order("movement_date DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&payments).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(payments, total, page, pageSize)
	return &result, nil
}

// Save creates or updates a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *treasury.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *treasury.Payment) error {
	result := r.db.WithContext(ctx).
		Model(payment).
		Where("id = ? AND version = ?", payment.ID, payment.Version-1).
		Updates(payment)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeStaleBalance,
			"Payment was modified concurrently, reload and retry")
	}
	return nil
}

// SumConfirmedNetByInvoice totals confirmed payment net amounts per invoice
func (r *GormPaymentRepository) SumConfirmedNetByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&treasury.Payment{}).
		Select("COALESCE(SUM(net_amount), 0)").
		Where("company_id = ? AND invoice_id = ? AND status = ?",
			companyID, invoiceID, treasury.PaymentStatusConfirmed).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// Ensure GormPaymentRepository implements the interface
var _ treasury.PaymentRepository = (*GormPaymentRepository)(nil)
