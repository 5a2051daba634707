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

// GormCollectionRepository implements CollectionRepository using GORM
type GormCollectionRepository struct {
	db *gorm.DB
}

// NewGormCollectionRepository creates a new GormCollectionRepository
func NewGormCollectionRepository(db *gorm.DB) *GormCollectionRepository {
	return &GormCollectionRepository{db: db}
}

// FindByID finds a collection by ID
func (r *GormCollectionRepository) FindByID(ctx context.Context, id uuid.UUID) (*treasury.Collection, error) {
	var collection treasury.Collection
	if err := r.db.WithContext(ctx).
		First(&collection, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &collection, nil
}

// FindByIDForCompany finds a collection by ID scoped to a company workspace
func (r *GormCollectionRepository) FindByIDForCompany(ctx context.Context, companyID, id uuid.UUID) (*treasury.Collection, error) {
	var collection treasury.Collection
	if err := r.db.WithContext(ctx).
		First(&collection, "id = ? AND company_id = ?", id, companyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &collection, nil
}

// FindByInvoice finds all collection records for one invoice
func (r *GormCollectionRepository) FindByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) ([]*treasury.Collection, error) {
	var collections []*treasury.Collection
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND invoice_id = ?", companyID, invoiceID).
		Order("movement_date ASC").
		Find(&collections).Error; err != nil {
		return nil, err
	}
	return collections, nil
}

// FindAllForCompany finds collections for a company with filtering and pagination
func (r *GormCollectionRepository) FindAllForCompany(ctx context.Context, companyID uuid.UUID, filter treasury.CollectionFilter) (*shared.Paginated[*treasury.Collection], error) {
	query := r.db.WithContext(ctx).
		Model(&treasury.Collection{}).
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

	var collections []*treasury.Collection
	if err := query.
		Order("movement_date DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&collections).Error; err != nil {
		return nil, err
	}

	result := shared.NewPaginated(collections, total, page, pageSize)
	return &result, nil
}

// Save creates or updates a collection
func (r *GormCollectionRepository) Save(ctx context.Context, collection *treasury.Collection) error {
	return r.db.WithContext(ctx).Save(collection).Error
}

// SaveWithLock saves with optimistic locking (version check)
func (r *GormCollectionRepository) SaveWithLock(ctx context.Context, collection *treasury.Collection) error {
	result := r.db.WithContext(ctx).
		Model(collection).
		Where("id = ? AND version = ?", collection.ID, collection.Version-1).
		Updates(collection)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeStaleBalance,
			"Collection was modified concurrently, reload and retry")
	}
	return nil
}

// SumConfirmedByInvoice totals confirmed collection amounts per invoice
func (r *GormCollectionRepository) SumConfirmedByInvoice(ctx context.Context, companyID, invoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&treasury.Collection{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("company_id = ? AND invoice_id = ? AND status = ?",
			companyID, invoiceID, treasury.CollectionStatusConfirmed).
		Scan(&sum).Error; err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

// Ensure GormCollectionRepository implements the interface
var _ treasury.CollectionRepository = (*GormCollectionRepository)(nil)
