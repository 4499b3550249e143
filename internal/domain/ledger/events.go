package ledger

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeJournal  = "Journal"
	AggregateTypeDocument = "Document"

	EventTypeJournalPosted   = "ledger.journal.posted"
	EventTypeJournalReversed = "ledger.journal.reversed"
	EventTypeDocumentSettled = "ledger.document.settled"
)

// JournalPostedEvent is raised when a document's journal is committed
type JournalPostedEvent struct {
	shared.BaseDomainEvent
	JournalNumber string          `json:"journal_number"`
	ReferenceType ReferenceType   `json:"reference_type"`
	DocumentID    uuid.UUID       `json:"document_id"`
	DocumentKind  DocumentKind    `json:"document_kind"`
	TotalDebit    decimal.Decimal `json:"total_debit"`
	LineCount     int             `json:"line_count"`
	PostedBy      uuid.UUID       `json:"posted_by"`
}

// NewJournalPostedEvent creates the event for a posted journal
func NewJournalPostedEvent(j *Journal, doc *Document) *JournalPostedEvent {
	debit, _ := j.Totals()
	return &JournalPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeJournalPosted, AggregateTypeJournal, j.ID),
		JournalNumber:   j.Number,
		ReferenceType:   j.ReferenceType,
		DocumentID:      doc.ID,
		DocumentKind:    doc.Kind,
		TotalDebit:      debit,
		LineCount:       len(j.Lines),
		PostedBy:        j.CreatedBy,
	}
}

// JournalReversedEvent is raised for each reversal journal
type JournalReversedEvent struct {
	shared.BaseDomainEvent
	JournalNumber     string        `json:"journal_number"`
	OriginalJournalID uuid.UUID     `json:"original_journal_id"`
	ReferenceType     ReferenceType `json:"reference_type"`
	ReferenceID       uuid.UUID     `json:"reference_id"`
	ReversedBy        uuid.UUID     `json:"reversed_by"`
}

// NewJournalReversedEvent creates the event for a reversal journal
func NewJournalReversedEvent(reversal, original *Journal) *JournalReversedEvent {
	return &JournalReversedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeJournalReversed, AggregateTypeJournal, reversal.ID),
		JournalNumber:     reversal.Number,
		OriginalJournalID: original.ID,
		ReferenceType:     reversal.ReferenceType,
		ReferenceID:       reversal.ReferenceID,
		ReversedBy:        reversal.CreatedBy,
	}
}

// DocumentSettledEvent is raised when money is applied against a document
type DocumentSettledEvent struct {
	shared.BaseDomainEvent
	DocumentNumber string          `json:"document_number"`
	JournalID      uuid.UUID       `json:"journal_id"`
	Amount         decimal.Decimal `json:"amount"`
	DueAfter       decimal.Decimal `json:"due_after"`
	StatusAfter    DocumentStatus  `json:"status_after"`
}

// NewDocumentSettledEvent creates the event for a settlement
func NewDocumentSettledEvent(doc *Document, s *SettlementEvent) *DocumentSettledEvent {
	return &DocumentSettledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDocumentSettled, AggregateTypeDocument, doc.ID),
		DocumentNumber:  doc.Number,
		JournalID:       s.JournalID,
		Amount:          s.Amount,
		DueAfter:        s.DueAfter,
		StatusAfter:     s.StatusAfter,
	}
}
