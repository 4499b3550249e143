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

// GormJournalRepository implements ledger.JournalRepository using GORM
type GormJournalRepository struct {
	db *gorm.DB
}

// NewGormJournalRepository creates a new GormJournalRepository
func NewGormJournalRepository(db *gorm.DB) *GormJournalRepository {
	return &GormJournalRepository{db: db}
}

// Create inserts a journal and its lines
func (r *GormJournalRepository) Create(ctx context.Context, journal *ledger.Journal) error {
	model := models.JournalModelFromDomain(journal)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		return tx.Create(&model.Lines).Error
	})
}

// FindByID loads a journal with its lines
func (r *GormJournalRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Journal, error) {
	var model models.JournalModel
	err := r.withLines(r.db.WithContext(ctx)).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrJournalNotFound.WithMessage(fmt.Sprintf("Journal %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByReference returns the non-reversed journals for a reference, oldest first
func (r *GormJournalRepository) FindActiveByReference(ctx context.Context, refType ledger.ReferenceType, refID uuid.UUID) ([]*ledger.Journal, error) {
	return r.findByReference(ctx, refType, refID, true)
}

// FindByReference returns every journal for a reference, oldest first
func (r *GormJournalRepository) FindByReference(ctx context.Context, refType ledger.ReferenceType, refID uuid.UUID) ([]*ledger.Journal, error) {
	return r.findByReference(ctx, refType, refID, false)
}

func (r *GormJournalRepository) findByReference(ctx context.Context, refType ledger.ReferenceType, refID uuid.UUID, activeOnly bool) ([]*ledger.Journal, error) {
	query := r.withLines(r.db.WithContext(ctx)).
		Where("reference_type = ? AND reference_id = ?", refType, refID)
	if activeOnly {
		query = query.Where("reversed = ?", false)
	}

	var rows []models.JournalModel
	if err := query.Order("journal_date ASC, number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	journals := make([]*ledger.Journal, len(rows))
	for i := range rows {
		journals[i] = rows[i].ToDomain()
	}
	return journals, nil
}

// MarkReversed flags journals as reversed. Every id must still be active,
// otherwise nothing is flagged and a concurrency conflict is returned.
func (r *GormJournalRepository) MarkReversed(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.JournalModel{}).
			Where("id IN ? AND reversed = ?", ids, false).
			Updates(map[string]any{
				"reversed": true,
				"version":  gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != int64(len(ids)) {
			return shared.ErrConcurrencyConflict.WithMessage(
				fmt.Sprintf("Expected to reverse %d journals, %d were still active", len(ids), result.RowsAffected))
		}
		return nil
	})
}

// SumByCategory aggregates debit and credit per category
func (r *GormJournalRepository) SumByCategory(ctx context.Context, filter ledger.TrialBalanceFilter) ([]ledger.CategoryBalance, error) {
	var rows []struct {
		CategoryID   uuid.UUID
		CategoryCode string
		Debit        decimal.Decimal
		Credit       decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Table("ledger_journal_lines AS l").
		Select("l.category_id AS category_id, MAX(l.category_code) AS category_code, " +
			"COALESCE(SUM(l.debit_amount), 0) AS debit, COALESCE(SUM(l.credit_amount), 0) AS credit").
		Joins("JOIN ledger_journals AS j ON j.id = l.journal_id")
	query = applyPeriod(query, filter).Group("l.category_id").Order("category_code ASC")

	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	balances := make([]ledger.CategoryBalance, len(rows))
	for i, row := range rows {
		balances[i] = ledger.CategoryBalance{
			CategoryID:   row.CategoryID,
			CategoryCode: row.CategoryCode,
			Debit:        row.Debit,
			Credit:       row.Credit,
		}
	}
	return balances, nil
}

// SumByJournal aggregates debit and credit per journal
func (r *GormJournalRepository) SumByJournal(ctx context.Context, filter ledger.TrialBalanceFilter) ([]ledger.JournalBalance, error) {
	var rows []struct {
		JournalID uuid.UUID
		Number    string
		Debit     decimal.Decimal
		Credit    decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Table("ledger_journal_lines AS l").
		Select("j.id AS journal_id, j.number AS number, " +
			"COALESCE(SUM(l.debit_amount), 0) AS debit, COALESCE(SUM(l.credit_amount), 0) AS credit").
		Joins("JOIN ledger_journals AS j ON j.id = l.journal_id")
	query = applyPeriod(query, filter).Group("j.id, j.number").Order("j.number ASC")

	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	balances := make([]ledger.JournalBalance, len(rows))
	for i, row := range rows {
		balances[i] = ledger.JournalBalance{
			JournalID: row.JournalID,
			Number:    row.Number,
			Debit:     row.Debit,
			Credit:    row.Credit,
		}
	}
	return balances, nil
}

func (r *GormJournalRepository) withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") })
}

// applyPeriod restricts a query joined on ledger_journals AS j to the filter window
func applyPeriod(query *gorm.DB, filter ledger.TrialBalanceFilter) *gorm.DB {
	if filter.From != nil {
		query = query.Where("j.journal_date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("j.journal_date <= ?", filter.To.UTC())
	}
	return query
}

var _ ledger.JournalRepository = (*GormJournalRepository)(nil)
