package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements ledger.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// FindByID loads a document with its lines in entry order
func (r *GormDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrDocumentNotFound.WithMessage(fmt.Sprintf("Document %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber loads a document by kind and number
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, kind ledger.DocumentKind, number string) (*ledger.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Where("kind = ? AND number = ?", kind, number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrDocumentNotFound.WithMessage(fmt.Sprintf("Document %s %s not found", kind, number))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or replaces a document and its lines
func (r *GormDocumentRepository) Save(ctx context.Context, doc *ledger.Document) error {
	model := models.DocumentModelFromDomain(doc)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("document_id = ?", doc.ID).Delete(&models.DocumentLineModel{}).Error; err != nil {
			return err
		}
		if len(model.Lines) == 0 {
			return nil
		}
		return tx.Create(&model.Lines).Error
	})
}

// SaveWithLock persists status, due amount and the stock movement flag with
// optimistic locking (checks version)
func (r *GormDocumentRepository) SaveWithLock(ctx context.Context, doc *ledger.Document) error {
	result := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("id = ? AND version = ?", doc.ID, doc.Version-1).
		Updates(map[string]any{
			"status":      doc.Status,
			"due_amount":  doc.DueAmount,
			"stock_moved": doc.StockMoved,
			"version":     doc.Version,
			"updated_at":  doc.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage(fmt.Sprintf("Document %s was modified by another transaction", doc.Number))
	}
	return nil
}

// ListDues returns the due-amount view of every document
func (r *GormDocumentRepository) ListDues(ctx context.Context) ([]ledger.DocumentDue, error) {
	var rows []struct {
		ID          uuid.UUID
		Number      string
		Status      ledger.DocumentStatus
		TotalAmount decimal.Decimal
		DueAmount   decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Select("id, number, status, total_amount, due_amount").
		Order("number ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	dues := make([]ledger.DocumentDue, len(rows))
	for i, row := range rows {
		dues[i] = ledger.DocumentDue{
			DocumentID:  row.ID,
			Number:      row.Number,
			Status:      row.Status,
			TotalAmount: row.TotalAmount,
			DueAmount:   row.DueAmount,
		}
	}
	return dues, nil
}

var _ ledger.DocumentRepository = (*GormDocumentRepository)(nil)
