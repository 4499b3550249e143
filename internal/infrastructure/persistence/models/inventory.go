package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotModel is the persistence model for the Lot aggregate root.
type LotModel struct {
	AggregateModel
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_lot_product_supplier,priority:1"`
	SupplierID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_inventory_lot_product_supplier,priority:2"`
	StockOnHand      int             `gorm:"not null;default:0"`
	PurchaseQuantity int             `gorm:"not null;default:0"`
	QuantitySold     int             `gorm:"not null;default:0"`
	ReorderLevel     int             `gorm:"not null;default:0"`
	UnitCost         decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (LotModel) TableName() string {
	return "inventory_lots"
}

// ToDomain converts the persistence model to a domain Lot
func (m *LotModel) ToDomain() *inventory.Lot {
	return &inventory.Lot{
		BaseAggregateRoot: m.ToAggregateRoot(),
		ProductID:         m.ProductID,
		SupplierID:        m.SupplierID,
		StockOnHand:       m.StockOnHand,
		PurchaseQuantity:  m.PurchaseQuantity,
		QuantitySold:      m.QuantitySold,
		ReorderLevel:      m.ReorderLevel,
		UnitCost:          m.UnitCost,
	}
}

// FromDomain populates the persistence model from a domain Lot
func (m *LotModel) FromDomain(l *inventory.Lot) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.ProductID = l.ProductID
	m.SupplierID = l.SupplierID
	m.StockOnHand = l.StockOnHand
	m.PurchaseQuantity = l.PurchaseQuantity
	m.QuantitySold = l.QuantitySold
	m.ReorderLevel = l.ReorderLevel
	m.UnitCost = l.UnitCost
}

// LotModelFromDomain creates a new persistence model from a domain Lot
func LotModelFromDomain(l *inventory.Lot) *LotModel {
	m := &LotModel{}
	m.FromDomain(l)
	return m
}

// HistoryEntryModel is the persistence model for an inventory history row.
type HistoryEntryModel struct {
	ID               uuid.UUID              `gorm:"type:uuid;primary_key"`
	LotID            uuid.UUID              `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID              `gorm:"type:uuid;not null;index:idx_inventory_history_invoice_product,priority:2"`
	SupplierID       uuid.UUID              `gorm:"type:uuid;not null"`
	InvoiceID        *uuid.UUID             `gorm:"type:uuid;index:idx_inventory_history_invoice_product,priority:1"`
	DocumentID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	ReferenceType    inventory.MovementType `gorm:"type:varchar(30);not null"`
	Quantity         int                    `gorm:"not null"`
	UnitCost         decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	UnitSellingPrice decimal.Decimal        `gorm:"type:decimal(18,4);not null;default:0"`
	TransactionDate  time.Time              `gorm:"not null"`
	CreatedAt        time.Time              `gorm:"not null"`
}

// TableName returns the table name for GORM
func (HistoryEntryModel) TableName() string {
	return "inventory_history"
}

// ToDomain converts the persistence model to a domain HistoryEntry
func (m *HistoryEntryModel) ToDomain() *inventory.HistoryEntry {
	return &inventory.HistoryEntry{
		ID:               m.ID,
		LotID:            m.LotID,
		ProductID:        m.ProductID,
		SupplierID:       m.SupplierID,
		InvoiceID:        m.InvoiceID,
		DocumentID:       m.DocumentID,
		ReferenceType:    m.ReferenceType,
		Quantity:         m.Quantity,
		UnitCost:         m.UnitCost,
		UnitSellingPrice: m.UnitSellingPrice,
		TransactionDate:  m.TransactionDate,
		CreatedAt:        m.CreatedAt,
	}
}

// HistoryEntryModelFromDomain creates a persistence model from a domain HistoryEntry
func HistoryEntryModelFromDomain(h *inventory.HistoryEntry) *HistoryEntryModel {
	return &HistoryEntryModel{
		ID:               h.ID,
		LotID:            h.LotID,
		ProductID:        h.ProductID,
		SupplierID:       h.SupplierID,
		InvoiceID:        h.InvoiceID,
		DocumentID:       h.DocumentID,
		ReferenceType:    h.ReferenceType,
		Quantity:         h.Quantity,
		UnitCost:         h.UnitCost,
		UnitSellingPrice: h.UnitSellingPrice,
		TransactionDate:  h.TransactionDate,
		CreatedAt:        h.CreatedAt,
	}
}
