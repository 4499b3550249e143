package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LotRepository defines the interface for lot persistence
type LotRepository interface {
	// FindByIDs finds lots by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Lot, error)

	// FindByProductAndSupplier finds the lot of a (product, supplier) pair
	FindByProductAndSupplier(ctx context.Context, productID, supplierID uuid.UUID) (*Lot, error)

	// FindByProduct finds every lot of a product
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]*Lot, error)

	// Create inserts new lots
	Create(ctx context.Context, lots ...*Lot) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, lot *Lot) error

	// Delete deletes lots
	Delete(ctx context.Context, ids []uuid.UUID) error
}

// HistoryRepository defines the interface for inventory history persistence
type HistoryRepository interface {
	// FindByInvoiceAndProduct finds the rows an invoice wrote for a product
	FindByInvoiceAndProduct(ctx context.Context, invoiceID, productID uuid.UUID) ([]*HistoryEntry, error)

	// FindByDocument finds the rows a document wrote, oldest first
	FindByDocument(ctx context.Context, documentID uuid.UUID) ([]*HistoryEntry, error)

	// CountByLot counts history rows per lot
	CountByLot(ctx context.Context, lotIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// FirstTransactionByLot returns the earliest transaction date per lot
	FirstTransactionByLot(ctx context.Context, lotIDs []uuid.UUID) (map[uuid.UUID]time.Time, error)

	// Create appends rows
	Create(ctx context.Context, entries ...*HistoryEntry) error

	// Update rewrites the quantity of a row
	Update(ctx context.Context, entry *HistoryEntry) error

	// Delete deletes rows
	Delete(ctx context.Context, ids []uuid.UUID) error
}
