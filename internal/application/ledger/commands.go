package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostCommand posts a PENDING document
type PostCommand struct {
	DocumentID uuid.UUID `json:"document_id" validate:"required"`
	UserID     uuid.UUID `json:"user_id" validate:"required"`
}

// ReverseCommand reverses the live journals of a reference
type ReverseCommand struct {
	ReferenceType string    `json:"reference_type" validate:"required,oneof=CREDIT_NOTE DEBIT_NOTE EXPENSE"`
	ReferenceID   uuid.UUID `json:"reference_id" validate:"required"`
	UserID        uuid.UUID `json:"user_id" validate:"required"`
}

// SettleCommand applies money against a posted document
type SettleCommand struct {
	DocumentID        uuid.UUID       `json:"document_id" validate:"required"`
	Amount            decimal.Decimal `json:"amount"`
	DepositCategoryID uuid.UUID       `json:"deposit_category_id" validate:"required"`
	UserID            uuid.UUID       `json:"user_id" validate:"required"`
	Description       string          `json:"description" validate:"max=500"`
}

// ReverseInventoryCommand undoes the stock movement of a document
type ReverseInventoryCommand struct {
	DocumentID uuid.UUID `json:"document_id" validate:"required"`
	UserID     uuid.UUID `json:"user_id" validate:"required"`
}

// TrialBalanceQuery selects the journal window of a trial balance
type TrialBalanceQuery struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// PostResult is returned by PostingService.Post
type PostResult struct {
	JournalID     uuid.UUID
	JournalNumber string
	Settled       bool
	Shortfalls    []ShortfallReport
}

// ReverseResult is returned by PostingService.Reverse
type ReverseResult struct {
	JournalID        uuid.UUID // Last reversal journal
	ReversalIDs      []uuid.UUID
	DocumentReset    bool
	RestoredBankFund bool
}

// SettleResult is returned by SettlementService.Settle
type SettleResult struct {
	JournalID   uuid.UUID
	DueAfter    decimal.Decimal
	StatusAfter string
}
