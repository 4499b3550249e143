package inventory

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType tags a history row with the document that caused it
type MovementType string

const (
	MovementInvoice           MovementType = "INVOICE"
	MovementCreditNote        MovementType = "CREDIT_NOTE"
	MovementDebitNote         MovementType = "DEBIT_NOTE"
	MovementExpense           MovementType = "EXPENSE"
	MovementReverseCreditNote MovementType = "REVERSE_CREDIT_NOTE"
	MovementReverseDebitNote  MovementType = "REVERSE_DEBIT_NOTE"
	MovementReverseExpense    MovementType = "REVERSE_EXPENSE"
)

// Lot is the stock record of one product bought from one supplier
type Lot struct {
	shared.BaseAggregateRoot
	ProductID        uuid.UUID
	SupplierID       uuid.UUID
	StockOnHand      int
	PurchaseQuantity int
	QuantitySold     int
	ReorderLevel     int
	UnitCost         decimal.Decimal
}

// NewLot creates an empty lot for a (product, supplier) pair first seen on
// a document line of quantity units at unitPrice
func NewLot(productID, supplierID uuid.UUID, quantity int, unitPrice decimal.Decimal) (*Lot, error) {
	if productID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Product ID cannot be empty")
	}
	if quantity < 0 {
		return nil, shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Lot quantity %d cannot be negative", quantity))
	}
	return &Lot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		SupplierID:        supplierID,
		ReorderLevel:      quantity / 10,
		UnitCost:          unitPrice,
	}, nil
}

// holdsOnly reports whether the lot carries nothing but qty units on hand
func (l *Lot) holdsOnly(qty int) bool {
	return l.StockOnHand == qty && l.PurchaseQuantity == 0 && l.QuantitySold == 0
}

// IsBelowReorderLevel returns true when stock has fallen to the reorder level
func (l *Lot) IsBelowReorderLevel() bool {
	return l.StockOnHand <= l.ReorderLevel
}

// HistoryEntry is an append-only record of a stock delta on a lot
type HistoryEntry struct {
	ID               uuid.UUID
	LotID            uuid.UUID
	ProductID        uuid.UUID
	SupplierID       uuid.UUID
	InvoiceID        *uuid.UUID
	DocumentID       uuid.UUID
	ReferenceType    MovementType
	Quantity         int // Signed change of stock on hand
	UnitCost         decimal.Decimal
	UnitSellingPrice decimal.Decimal
	TransactionDate  time.Time
	CreatedAt        time.Time
}

// NewHistoryEntry creates a history row for lot
func NewHistoryEntry(lot *Lot, m Movement, refType MovementType, quantity int) *HistoryEntry {
	entry := &HistoryEntry{
		ID:              uuid.New(),
		LotID:           lot.ID,
		ProductID:       lot.ProductID,
		SupplierID:      lot.SupplierID,
		InvoiceID:       m.InvoiceID,
		DocumentID:      m.DocumentID,
		ReferenceType:   refType,
		Quantity:        quantity,
		UnitCost:        lot.UnitCost,
		TransactionDate: m.Date.UTC(),
		CreatedAt:       time.Now().UTC(),
	}
	if refType == MovementCreditNote || refType == MovementReverseCreditNote || refType == MovementInvoice {
		entry.UnitSellingPrice = m.UnitPrice
	}
	return entry
}

// Magnitude returns the absolute quantity of the row
func (h *HistoryEntry) Magnitude() int {
	if h.Quantity < 0 {
		return -h.Quantity
	}
	return h.Quantity
}

// Shortfall reports quantity a movement could not apply without driving
// stock negative
type Shortfall struct {
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Applied   int       `json:"applied"`
	Missing   int       `json:"missing"`
}

// ErrInventoryShortfall classifies a shortfall for callers that treat it as an error
var ErrInventoryShortfall = shared.NewKindedError(shared.KindInventoryShortfall, "INVENTORY_SHORTFALL", "Not enough stock to apply the movement")

// Err returns the shortfall as a kinded domain error
func (s Shortfall) Err() error {
	return ErrInventoryShortfall.WithMessage(fmt.Sprintf(
		"Product %s: requested %d, applied %d, short by %d", s.ProductID, s.Requested, s.Applied, s.Missing))
}
