package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBankAccountRepository implements ledger.BankAccountRepository using GORM
type GormBankAccountRepository struct {
	db *gorm.DB
}

// NewGormBankAccountRepository creates a new GormBankAccountRepository
func NewGormBankAccountRepository(db *gorm.DB) *GormBankAccountRepository {
	return &GormBankAccountRepository{db: db}
}

// FindByID finds a bank account by its ID
func (r *GormBankAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.BankAccount, error) {
	var model models.BankAccountModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrBankAccountNotFound.WithMessage(fmt.Sprintf("Bank account %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCategoryID returns the account linked to a ledger category
func (r *GormBankAccountRepository) FindByCategoryID(ctx context.Context, categoryID uuid.UUID) (*ledger.BankAccount, error) {
	var model models.BankAccountModel
	if err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrBankAccountNotFound.WithMessage(fmt.Sprintf("No bank account is linked to category %s", categoryID))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a bank account without a version check
func (r *GormBankAccountRepository) Save(ctx context.Context, account *ledger.BankAccount) error {
	return r.db.WithContext(ctx).Save(models.BankAccountModelFromDomain(account)).Error
}

// SaveWithLock saves the running balance with optimistic locking (checks version)
func (r *GormBankAccountRepository) SaveWithLock(ctx context.Context, account *ledger.BankAccount) error {
	result := r.db.WithContext(ctx).
		Model(&models.BankAccountModel{}).
		Where("id = ? AND version = ?", account.ID, account.Version-1).
		Updates(map[string]any{
			"current_balance": account.CurrentBalance,
			"version":         account.Version,
			"updated_at":      account.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage(fmt.Sprintf("Bank account %s was modified by another transaction", account.Name))
	}
	return nil
}

// GormSettlementRepository implements ledger.SettlementRepository using GORM
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewGormSettlementRepository creates a new GormSettlementRepository
func NewGormSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// Create appends a settlement audit record
func (r *GormSettlementRepository) Create(ctx context.Context, event *ledger.SettlementEvent) error {
	return r.db.WithContext(ctx).Create(models.SettlementEventModelFromDomain(event)).Error
}

// FindByDocument returns the settlements of a document, oldest first
func (r *GormSettlementRepository) FindByDocument(ctx context.Context, documentID uuid.UUID) ([]ledger.SettlementEvent, error) {
	var rows []models.SettlementEventModel
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("settled_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	events := make([]ledger.SettlementEvent, len(rows))
	for i := range rows {
		events[i] = rows[i].ToDomain()
	}
	return events, nil
}

var (
	_ ledger.BankAccountRepository = (*GormBankAccountRepository)(nil)
	_ ledger.SettlementRepository  = (*GormSettlementRepository)(nil)
)
