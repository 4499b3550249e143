package ledger

import (
	"context"

	"github.com/google/uuid"
)

// DocumentRepository loads documents and persists the status and due amount
// the engine writes back
type DocumentRepository interface {
	// FindByID loads a document with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// Save creates or replaces a document and its lines
	Save(ctx context.Context, doc *Document) error

	// SaveWithLock persists status and due amount with optimistic locking (version check)
	SaveWithLock(ctx context.Context, doc *Document) error

	// ListDues returns the due-amount view of every posted or pending document
	ListDues(ctx context.Context) ([]DocumentDue, error)
}

// CategoryDirectory resolves ledger categories
type CategoryDirectory interface {
	FindByCodes(ctx context.Context, codes []CategoryCode) ([]Category, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Category, error)
	// Upsert creates the category or updates the name of an existing code
	Upsert(ctx context.Context, category *Category) error
}

// ContactCategoryRepository resolves a contact's receivable or payable category
type ContactCategoryRepository interface {
	FindCategoryID(ctx context.Context, contactID uuid.UUID, role ContactRole) (uuid.UUID, error)
	Save(ctx context.Context, mapping *ContactCategory) error
}

// ProductRepository loads the products referenced by document lines
type ProductRepository interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)
	Save(ctx context.Context, product *Product) error
}

// JournalRepository persists journals
type JournalRepository interface {
	// Create inserts a journal and its lines
	Create(ctx context.Context, journal *Journal) error

	// FindActiveByReference returns the non-reversed journals for a reference, oldest first
	FindActiveByReference(ctx context.Context, refType ReferenceType, refID uuid.UUID) ([]*Journal, error)

	// FindByReference returns every journal for a reference, oldest first
	FindByReference(ctx context.Context, refType ReferenceType, refID uuid.UUID) ([]*Journal, error)

	// MarkReversed flags journals as reversed
	MarkReversed(ctx context.Context, ids []uuid.UUID) error

	// SumByCategory aggregates debit and credit per category
	SumByCategory(ctx context.Context, filter TrialBalanceFilter) ([]CategoryBalance, error)

	// SumByJournal aggregates debit and credit per journal
	SumByJournal(ctx context.Context, filter TrialBalanceFilter) ([]JournalBalance, error)
}

// BankAccountRepository persists bank accounts
type BankAccountRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*BankAccount, error)

	// FindByCategoryID returns the account linked to a ledger category
	FindByCategoryID(ctx context.Context, categoryID uuid.UUID) (*BankAccount, error)

	Save(ctx context.Context, account *BankAccount) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, account *BankAccount) error
}

// SettlementRepository appends settlement audit records
type SettlementRepository interface {
	Create(ctx context.Context, event *SettlementEvent) error
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]SettlementEvent, error)
}
