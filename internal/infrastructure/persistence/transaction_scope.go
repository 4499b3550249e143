package persistence

import (
	"context"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Domain events raised inside Execute are written to the outbox by the same
// transaction.
type GormTransactionScope struct {
	db    *gorm.DB
	saver shared.OutboxEventSaver
}

// NewGormTransactionScope creates a new GormTransactionScope. A nil saver
// discards events.
func NewGormTransactionScope(db *gorm.DB, saver shared.OutboxEventSaver) *GormTransactionScope {
	return &GormTransactionScope{db: db, saver: saver}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, saver: s.saver})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

func (r *gormTransactionalRepositories) Documents() ledger.DocumentRepository {
	return NewGormDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Categories() ledger.CategoryDirectory {
	return NewGormCategoryDirectory(r.tx)
}

func (r *gormTransactionalRepositories) ContactCategories() ledger.ContactCategoryRepository {
	return NewGormContactCategoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Products() ledger.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Journals() ledger.JournalRepository {
	return NewGormJournalRepository(r.tx)
}

func (r *gormTransactionalRepositories) BankAccounts() ledger.BankAccountRepository {
	return NewGormBankAccountRepository(r.tx)
}

func (r *gormTransactionalRepositories) Settlements() ledger.SettlementRepository {
	return NewGormSettlementRepository(r.tx)
}

func (r *gormTransactionalRepositories) Lots() inventory.LotRepository {
	return NewGormLotRepository(r.tx)
}

func (r *gormTransactionalRepositories) History() inventory.HistoryRepository {
	return NewGormHistoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) Events() appledger.EventSink {
	return txEventSink{tx: r.tx, saver: r.saver}
}

// txEventSink binds the outbox saver to the open transaction
type txEventSink struct {
	tx    *gorm.DB
	saver shared.OutboxEventSaver
}

func (s txEventSink) SaveEvents(ctx context.Context, events ...shared.DomainEvent) error {
	if s.saver == nil || len(events) == 0 {
		return nil
	}
	return s.saver.SaveEvents(ctx, s.tx, events...)
}

var (
	_ appledger.TransactionScope          = (*GormTransactionScope)(nil)
	_ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
