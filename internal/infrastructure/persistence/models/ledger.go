package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryModel is the persistence model for a ledger category.
type CategoryModel struct {
	BaseModel
	Code string `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "ledger_categories"
}

// ToDomain converts the persistence model to a domain Category
func (m *CategoryModel) ToDomain() ledger.Category {
	return ledger.Category{ID: m.ID, Code: m.Code, Name: m.Name}
}

// CategoryModelFromDomain creates a persistence model from a domain Category
func CategoryModelFromDomain(c *ledger.Category) *CategoryModel {
	now := time.Now().UTC()
	return &CategoryModel{
		BaseModel: BaseModel{ID: c.ID, CreatedAt: now, UpdatedAt: now},
		Code:      c.Code,
		Name:      c.Name,
	}
}

// ContactCategoryModel maps a contact in a role to its receivable or payable category.
type ContactCategoryModel struct {
	ContactID  uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Role       ledger.ContactRole `gorm:"type:varchar(20);primaryKey"`
	CategoryID uuid.UUID          `gorm:"type:uuid;not null"`
	UpdatedAt  time.Time          `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ContactCategoryModel) TableName() string {
	return "ledger_contact_categories"
}

// ToDomain converts the persistence model to a domain ContactCategory
func (m *ContactCategoryModel) ToDomain() *ledger.ContactCategory {
	return &ledger.ContactCategory{ContactID: m.ContactID, Role: m.Role, CategoryID: m.CategoryID}
}

// ProductModel is the ledger's view of a catalog product.
type ProductModel struct {
	BaseModel
	Name               string           `gorm:"type:varchar(200);not null"`
	InventoryEnabled   bool             `gorm:"not null;default:false"`
	SalesCategoryID    *uuid.UUID       `gorm:"type:uuid"`
	PurchaseCategoryID *uuid.UUID       `gorm:"type:uuid"`
	AvgPurchaseCost    *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "ledger_products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() ledger.Product {
	return ledger.Product{
		ID:                 m.ID,
		Name:               m.Name,
		InventoryEnabled:   m.InventoryEnabled,
		SalesCategoryID:    m.SalesCategoryID,
		PurchaseCategoryID: m.PurchaseCategoryID,
		AvgPurchaseCost:    m.AvgPurchaseCost,
	}
}

// ProductModelFromDomain creates a persistence model from a domain Product
func ProductModelFromDomain(p *ledger.Product) *ProductModel {
	now := time.Now().UTC()
	return &ProductModel{
		BaseModel:          BaseModel{ID: p.ID, CreatedAt: now, UpdatedAt: now},
		Name:               p.Name,
		InventoryEnabled:   p.InventoryEnabled,
		SalesCategoryID:    p.SalesCategoryID,
		PurchaseCategoryID: p.PurchaseCategoryID,
		AvgPurchaseCost:    p.AvgPurchaseCost,
	}
}

// DocumentModel is the persistence model for credit notes, debit notes and expenses.
type DocumentModel struct {
	AggregateModel
	Kind              ledger.DocumentKind   `gorm:"type:varchar(20);not null;uniqueIndex:idx_ledger_document_kind_number,priority:1"`
	Number            string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_ledger_document_kind_number,priority:2"`
	ContactID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	Currency          string                `gorm:"type:varchar(3);not null"`
	ExchangeRate      decimal.Decimal       `gorm:"type:decimal(18,6);not null;default:1"`
	TaxInclusive      bool                  `gorm:"not null;default:false"`
	ReverseCharge     bool                  `gorm:"not null;default:false"`
	VATCategoryID     *uuid.UUID            `gorm:"type:uuid"`
	TotalAmount       decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TotalVATAmount    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TotalExciseAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount    decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountType      ledger.DiscountType   `gorm:"type:varchar(20)"`
	DueAmount         decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	StockMoved        bool                  `gorm:"not null;default:false"`
	Status            ledger.DocumentStatus `gorm:"type:varchar(20);not null;index"`
	OriginInvoiceID   *uuid.UUID            `gorm:"type:uuid"`
	PayMode           ledger.PayMode        `gorm:"type:varchar(20)"`
	BankAccountID     *uuid.UUID            `gorm:"type:uuid"`
	DocumentDate      time.Time             `gorm:"not null"`
	Lines             []DocumentLineModel   `gorm:"foreignKey:DocumentID;references:ID"`
}

// TableName returns the table name for GORM
func (DocumentModel) TableName() string {
	return "ledger_documents"
}

// ToDomain converts the persistence model to a domain Document
func (m *DocumentModel) ToDomain() *ledger.Document {
	doc := &ledger.Document{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Kind:              m.Kind,
		Number:            m.Number,
		ContactID:         m.ContactID,
		Currency:          valueobject.Currency(m.Currency),
		ExchangeRate:      m.ExchangeRate,
		TaxInclusive:      m.TaxInclusive,
		ReverseCharge:     m.ReverseCharge,
		VATCategoryID:     m.VATCategoryID,
		TotalAmount:       m.TotalAmount,
		TotalVATAmount:    m.TotalVATAmount,
		TotalExciseAmount: m.TotalExciseAmount,
		DiscountAmount:    m.DiscountAmount,
		DiscountType:      m.DiscountType,
		DueAmount:         m.DueAmount,
		StockMoved:        m.StockMoved,
		Status:            m.Status,
		OriginInvoiceID:   m.OriginInvoiceID,
		PayMode:           m.PayMode,
		BankAccountID:     m.BankAccountID,
		DocumentDate:      m.DocumentDate,
		Lines:             make([]ledger.DocumentLine, len(m.Lines)),
	}
	for i := range m.Lines {
		doc.Lines[i] = m.Lines[i].ToDomain()
	}
	return doc
}

// FromDomain populates the persistence model from a domain Document
func (m *DocumentModel) FromDomain(d *ledger.Document) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.Kind = d.Kind
	m.Number = d.Number
	m.ContactID = d.ContactID
	m.Currency = d.Currency.String()
	m.ExchangeRate = d.ExchangeRate
	m.TaxInclusive = d.TaxInclusive
	m.ReverseCharge = d.ReverseCharge
	m.VATCategoryID = d.VATCategoryID
	m.TotalAmount = d.TotalAmount
	m.TotalVATAmount = d.TotalVATAmount
	m.TotalExciseAmount = d.TotalExciseAmount
	m.DiscountAmount = d.DiscountAmount
	m.DiscountType = d.DiscountType
	m.DueAmount = d.DueAmount
	m.StockMoved = d.StockMoved
	m.Status = d.Status
	m.OriginInvoiceID = d.OriginInvoiceID
	m.PayMode = d.PayMode
	m.BankAccountID = d.BankAccountID
	m.DocumentDate = d.DocumentDate.UTC()
	m.Lines = make([]DocumentLineModel, len(d.Lines))
	for i := range d.Lines {
		m.Lines[i] = *DocumentLineModelFromDomain(&d.Lines[i], i+1)
	}
}

// DocumentModelFromDomain creates a new persistence model from a domain Document
func DocumentModelFromDomain(d *ledger.Document) *DocumentModel {
	m := &DocumentModel{}
	m.FromDomain(d)
	return m
}

// DocumentLineModel is the persistence model for a document line.
type DocumentLineModel struct {
	ID           uuid.UUID           `gorm:"type:uuid;primary_key"`
	DocumentID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	LineNo       int                 `gorm:"not null"`
	Description  string              `gorm:"type:varchar(500)"`
	Quantity     int                 `gorm:"not null"`
	UnitPrice    decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	CategoryID   uuid.UUID           `gorm:"type:uuid;not null"`
	ProductID    *uuid.UUID          `gorm:"type:uuid;index"`
	DiscountType ledger.DiscountType `gorm:"type:varchar(20)"`
	Discount     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	VATAmount    decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	ExciseAmount decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (DocumentLineModel) TableName() string {
	return "ledger_document_lines"
}

// ToDomain converts the persistence model to a domain DocumentLine
func (m *DocumentLineModel) ToDomain() ledger.DocumentLine {
	return ledger.DocumentLine{
		ID:           m.ID,
		DocumentID:   m.DocumentID,
		Description:  m.Description,
		Quantity:     m.Quantity,
		UnitPrice:    m.UnitPrice,
		CategoryID:   m.CategoryID,
		ProductID:    m.ProductID,
		DiscountType: m.DiscountType,
		Discount:     m.Discount,
		VATAmount:    m.VATAmount,
		ExciseAmount: m.ExciseAmount,
	}
}

// DocumentLineModelFromDomain creates a persistence model for the lineNo-th line
func DocumentLineModelFromDomain(l *ledger.DocumentLine, lineNo int) *DocumentLineModel {
	return &DocumentLineModel{
		ID:           l.ID,
		DocumentID:   l.DocumentID,
		LineNo:       lineNo,
		Description:  l.Description,
		Quantity:     l.Quantity,
		UnitPrice:    l.UnitPrice,
		CategoryID:   l.CategoryID,
		ProductID:    l.ProductID,
		DiscountType: l.DiscountType,
		Discount:     l.Discount,
		VATAmount:    l.VATAmount,
		ExciseAmount: l.ExciseAmount,
	}
}

// BankAccountModel is the persistence model for a bank or cash account.
type BankAccountModel struct {
	AggregateModel
	Name           string          `gorm:"type:varchar(200);not null"`
	CategoryID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (BankAccountModel) TableName() string {
	return "ledger_bank_accounts"
}

// ToDomain converts the persistence model to a domain BankAccount
func (m *BankAccountModel) ToDomain() *ledger.BankAccount {
	return &ledger.BankAccount{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		CategoryID:        m.CategoryID,
		Currency:          valueobject.Currency(m.Currency),
		CurrentBalance:    m.CurrentBalance,
	}
}

// FromDomain populates the persistence model from a domain BankAccount
func (m *BankAccountModel) FromDomain(b *ledger.BankAccount) {
	m.FromDomainAggregateRoot(b.BaseAggregateRoot)
	m.Name = b.Name
	m.CategoryID = b.CategoryID
	m.Currency = b.Currency.String()
	m.CurrentBalance = b.CurrentBalance
}

// BankAccountModelFromDomain creates a new persistence model from a domain BankAccount
func BankAccountModelFromDomain(b *ledger.BankAccount) *BankAccountModel {
	m := &BankAccountModel{}
	m.FromDomain(b)
	return m
}

// SettlementEventModel is the append-only audit row of a settlement.
type SettlementEventModel struct {
	ID              uuid.UUID              `gorm:"type:uuid;primary_key"`
	DocumentID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	JournalID       uuid.UUID              `gorm:"type:uuid;not null;index"`
	BankAccountID   *uuid.UUID             `gorm:"type:uuid"`
	Amount          decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	BaseAmount      decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	DebitCreditFlag ledger.DebitCreditFlag `gorm:"type:varchar(1);not null"`
	DueBefore       decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	DueAfter        decimal.Decimal        `gorm:"type:decimal(18,4);not null"`
	StatusAfter     ledger.DocumentStatus  `gorm:"type:varchar(20);not null"`
	SettledAt       time.Time              `gorm:"not null"`
	CreatedBy       uuid.UUID              `gorm:"type:uuid;not null"`
	Description     string                 `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (SettlementEventModel) TableName() string {
	return "ledger_settlements"
}

// ToDomain converts the persistence model to a domain SettlementEvent
func (m *SettlementEventModel) ToDomain() ledger.SettlementEvent {
	return ledger.SettlementEvent{
		ID:              m.ID,
		DocumentID:      m.DocumentID,
		JournalID:       m.JournalID,
		BankAccountID:   m.BankAccountID,
		Amount:          m.Amount,
		BaseAmount:      m.BaseAmount,
		DebitCreditFlag: m.DebitCreditFlag,
		DueBefore:       m.DueBefore,
		DueAfter:        m.DueAfter,
		StatusAfter:     m.StatusAfter,
		SettledAt:       m.SettledAt,
		CreatedBy:       m.CreatedBy,
		Description:     m.Description,
	}
}

// SettlementEventModelFromDomain creates a persistence model from a domain SettlementEvent
func SettlementEventModelFromDomain(e *ledger.SettlementEvent) *SettlementEventModel {
	return &SettlementEventModel{
		ID:              e.ID,
		DocumentID:      e.DocumentID,
		JournalID:       e.JournalID,
		BankAccountID:   e.BankAccountID,
		Amount:          e.Amount,
		BaseAmount:      e.BaseAmount,
		DebitCreditFlag: e.DebitCreditFlag,
		DueBefore:       e.DueBefore,
		DueAfter:        e.DueAfter,
		StatusAfter:     e.StatusAfter,
		SettledAt:       e.SettledAt,
		CreatedBy:       e.CreatedBy,
		Description:     e.Description,
	}
}
