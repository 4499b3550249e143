package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLotRepository implements inventory.LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

// FindByIDs finds lots by their IDs
func (r *GormLotRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.Lot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.LotModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return lotsToDomain(rows), nil
}

// FindByProductAndSupplier finds the lot of a (product, supplier) pair.
// It returns nil without error when the pair has no lot yet.
func (r *GormLotRepository) FindByProductAndSupplier(ctx context.Context, productID, supplierID uuid.UUID) (*inventory.Lot, error) {
	var model models.LotModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ? AND supplier_id = ?", productID, supplierID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProduct finds every lot of a product, oldest first
func (r *GormLotRepository) FindByProduct(ctx context.Context, productID uuid.UUID) ([]*inventory.Lot, error) {
	var rows []models.LotModel
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return lotsToDomain(rows), nil
}

// Create inserts new lots
func (r *GormLotRepository) Create(ctx context.Context, lots ...*inventory.Lot) error {
	if len(lots) == 0 {
		return nil
	}
	rows := make([]*models.LotModel, len(lots))
	for i, l := range lots {
		rows[i] = models.LotModelFromDomain(l)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormLotRepository) SaveWithLock(ctx context.Context, lot *inventory.Lot) error {
	result := r.db.WithContext(ctx).
		Model(&models.LotModel{}).
		Where("id = ? AND version = ?", lot.ID, lot.Version-1).
		Updates(map[string]any{
			"stock_on_hand":     lot.StockOnHand,
			"purchase_quantity": lot.PurchaseQuantity,
			"quantity_sold":     lot.QuantitySold,
			"reorder_level":     lot.ReorderLevel,
			"unit_cost":         lot.UnitCost,
			"version":           lot.Version,
			"updated_at":        lot.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage(fmt.Sprintf("Lot %s was modified by another transaction", lot.ID))
	}
	return nil
}

// Delete deletes lots
func (r *GormLotRepository) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.LotModel{}).Error
}

func lotsToDomain(rows []models.LotModel) []*inventory.Lot {
	lots := make([]*inventory.Lot, len(rows))
	for i := range rows {
		lots[i] = rows[i].ToDomain()
	}
	return lots
}

// GormHistoryRepository implements inventory.HistoryRepository using GORM
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new GormHistoryRepository
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// FindByInvoiceAndProduct finds the rows an invoice wrote for a product
func (r *GormHistoryRepository) FindByInvoiceAndProduct(ctx context.Context, invoiceID, productID uuid.UUID) ([]*inventory.HistoryEntry, error) {
	var rows []models.HistoryEntryModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ? AND product_id = ?", invoiceID, productID).
		Order("transaction_date ASC, created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return historyToDomain(rows), nil
}

// FindByDocument finds the rows a document wrote, oldest first
func (r *GormHistoryRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*inventory.HistoryEntry, error) {
	var rows []models.HistoryEntryModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("transaction_date ASC, created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return historyToDomain(rows), nil
}

// CountByLot counts history rows per lot
func (r *GormHistoryRepository) CountByLot(ctx context.Context, lotIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(lotIDs))
	if len(lotIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		LotID uuid.UUID
		Count int
	}
	if err := r.db.WithContext(ctx).
		Model(&models.HistoryEntryModel{}).
		Select("lot_id, count(*) AS count").
		Where("lot_id IN ?", lotIDs).
		Group("lot_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.LotID] = row.Count
	}
	return counts, nil
}

// FirstTransactionByLot returns the earliest transaction date per lot
func (r *GormHistoryRepository) FirstTransactionByLot(ctx context.Context, lotIDs []uuid.UUID) (map[uuid.UUID]time.Time, error) {
	first := make(map[uuid.UUID]time.Time, len(lotIDs))
	if len(lotIDs) == 0 {
		return first, nil
	}
	var rows []models.HistoryEntryModel
	if err := r.db.WithContext(ctx).
		Select("lot_id, transaction_date").
		Where("lot_id IN ?", lotIDs).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		if seen, ok := first[row.LotID]; !ok || row.TransactionDate.Before(seen) {
			first[row.LotID] = row.TransactionDate
		}
	}
	return first, nil
}

// Create appends rows
func (r *GormHistoryRepository) Create(ctx context.Context, entries ...*inventory.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]*models.HistoryEntryModel, len(entries))
	for i, e := range entries {
		rows[i] = models.HistoryEntryModelFromDomain(e)
	}
	return r.db.WithContext(ctx).Create(rows).Error
}

// Update rewrites the quantity of a row
func (r *GormHistoryRepository) Update(ctx context.Context, entry *inventory.HistoryEntry) error {
	result := r.db.WithContext(ctx).
		Model(&models.HistoryEntryModel{}).
		Where("id = ?", entry.ID).
		Update("quantity", entry.Quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound.WithMessage(fmt.Sprintf("History row %s not found", entry.ID))
	}
	return nil
}

// Delete deletes rows
func (r *GormHistoryRepository) Delete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.HistoryEntryModel{}).Error
}

func historyToDomain(rows []models.HistoryEntryModel) []*inventory.HistoryEntry {
	entries := make([]*inventory.HistoryEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries
}

var (
	_ inventory.LotRepository     = (*GormLotRepository)(nil)
	_ inventory.HistoryRepository = (*GormHistoryRepository)(nil)
)
