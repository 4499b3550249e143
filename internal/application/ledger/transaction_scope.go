package ledger

import (
	"context"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
)

// TransactionScope defines an interface for executing operations within a transaction.
// Every ledger operation commits its journal, document, bank, inventory and
// outbox writes together or not at all.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	Documents() ledger.DocumentRepository
	Categories() ledger.CategoryDirectory
	ContactCategories() ledger.ContactCategoryRepository
	Products() ledger.ProductRepository
	Journals() ledger.JournalRepository
	BankAccounts() ledger.BankAccountRepository
	Settlements() ledger.SettlementRepository
	Lots() inventory.LotRepository
	History() inventory.HistoryRepository
	// Events returns the outbox writer bound to the current transaction
	Events() EventSink
}

// EventSink stores domain events so they are relayed after commit
type EventSink interface {
	SaveEvents(ctx context.Context, events ...shared.DomainEvent) error
}

// DocumentLocker serializes operations on the same document across processes
type DocumentLocker interface {
	// Acquire blocks until the lock on key is held or ctx is done. The
	// returned release function is safe to call once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LockKey returns the locker key for a document
func LockKey(documentID string) string {
	return "ledger:document:" + documentID
}

// noopLocker relies on optimistic version checks alone
type noopLocker struct{}

func (noopLocker) Acquire(context.Context, string) (func(), error) {
	return func() {}, nil
}

// NoopLocker returns a DocumentLocker that never blocks
func NoopLocker() DocumentLocker {
	return noopLocker{}
}

// Clock returns the current time. Tests replace it to pin journal dates.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
