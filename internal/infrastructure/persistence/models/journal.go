package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JournalModel is the persistence model for the Journal aggregate root.
type JournalModel struct {
	AggregateModel
	Number        string               `gorm:"type:varchar(40);not null;uniqueIndex"`
	ReferenceType ledger.ReferenceType `gorm:"type:varchar(30);not null;index:idx_ledger_journal_reference,priority:1"`
	ReferenceID   uuid.UUID            `gorm:"type:uuid;not null;index:idx_ledger_journal_reference,priority:2"`
	JournalDate   time.Time            `gorm:"not null;index"`
	Description   string               `gorm:"type:varchar(500)"`
	CreatedBy     uuid.UUID            `gorm:"type:uuid;not null"`
	Reversed      bool                 `gorm:"not null;default:false"`
	Lines         []JournalLineModel   `gorm:"foreignKey:JournalID;references:ID"`
}

// TableName returns the table name for GORM
func (JournalModel) TableName() string {
	return "ledger_journals"
}

// ToDomain converts the persistence model to a domain Journal
func (m *JournalModel) ToDomain() *ledger.Journal {
	j := &ledger.Journal{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Number:            m.Number,
		ReferenceType:     m.ReferenceType,
		ReferenceID:       m.ReferenceID,
		JournalDate:       m.JournalDate,
		Description:       m.Description,
		CreatedBy:         m.CreatedBy,
		Reversed:          m.Reversed,
		Lines:             make([]ledger.JournalLineItem, len(m.Lines)),
	}
	for i := range m.Lines {
		j.Lines[i] = m.Lines[i].ToDomain()
	}
	return j
}

// FromDomain populates the persistence model from a domain Journal
func (m *JournalModel) FromDomain(j *ledger.Journal) {
	m.FromDomainAggregateRoot(j.BaseAggregateRoot)
	m.Number = j.Number
	m.ReferenceType = j.ReferenceType
	m.ReferenceID = j.ReferenceID
	m.JournalDate = j.JournalDate.UTC()
	m.Description = j.Description
	m.CreatedBy = j.CreatedBy
	m.Reversed = j.Reversed
	m.Lines = make([]JournalLineModel, len(j.Lines))
	for i := range j.Lines {
		m.Lines[i] = *JournalLineModelFromDomain(&j.Lines[i], j.CreatedAt)
	}
}

// JournalModelFromDomain creates a new persistence model from a domain Journal
func JournalModelFromDomain(j *ledger.Journal) *JournalModel {
	m := &JournalModel{}
	m.FromDomain(j)
	return m
}

// JournalLineModel is the persistence model for a single debit or credit.
type JournalLineModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primary_key"`
	JournalID     uuid.UUID            `gorm:"type:uuid;not null;index"`
	Sequence      int                  `gorm:"not null"`
	CategoryID    uuid.UUID            `gorm:"type:uuid;not null;index"`
	CategoryCode  string               `gorm:"type:varchar(50)"`
	ContactID     *uuid.UUID           `gorm:"type:uuid"`
	Description   string               `gorm:"type:varchar(500)"`
	DebitAmount   decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	CreditAmount  decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	ExchangeRate  decimal.Decimal      `gorm:"type:decimal(18,6);not null;default:1"`
	ReferenceType ledger.ReferenceType `gorm:"type:varchar(30);not null"`
	ReferenceID   uuid.UUID            `gorm:"type:uuid;not null"`
	CreatedBy     uuid.UUID            `gorm:"type:uuid;not null"`
	CreatedAt     time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (JournalLineModel) TableName() string {
	return "ledger_journal_lines"
}

// ToDomain converts the persistence model to a domain JournalLineItem
func (m *JournalLineModel) ToDomain() ledger.JournalLineItem {
	return ledger.JournalLineItem{
		ID:            m.ID,
		JournalID:     m.JournalID,
		Sequence:      m.Sequence,
		CategoryID:    m.CategoryID,
		CategoryCode:  m.CategoryCode,
		ContactID:     m.ContactID,
		Description:   m.Description,
		DebitAmount:   m.DebitAmount,
		CreditAmount:  m.CreditAmount,
		ExchangeRate:  m.ExchangeRate,
		ReferenceType: m.ReferenceType,
		ReferenceID:   m.ReferenceID,
		CreatedBy:     m.CreatedBy,
	}
}

// JournalLineModelFromDomain creates a persistence model from a domain JournalLineItem
func JournalLineModelFromDomain(l *ledger.JournalLineItem, createdAt time.Time) *JournalLineModel {
	return &JournalLineModel{
		ID:            l.ID,
		JournalID:     l.JournalID,
		Sequence:      l.Sequence,
		CategoryID:    l.CategoryID,
		CategoryCode:  l.CategoryCode,
		ContactID:     l.ContactID,
		Description:   l.Description,
		DebitAmount:   l.DebitAmount,
		CreditAmount:  l.CreditAmount,
		ExchangeRate:  l.ExchangeRate,
		ReferenceType: l.ReferenceType,
		ReferenceID:   l.ReferenceID,
		CreatedBy:     l.CreatedBy,
		CreatedAt:     createdAt,
	}
}
