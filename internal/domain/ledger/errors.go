package ledger

import (
	"fmt"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Missing references abort a posting before anything is written.
var (
	ErrDocumentNotFound        = shared.NewKindedError(shared.KindMissingReference, "DOCUMENT_NOT_FOUND", "Document not found")
	ErrCategoryNotFound        = shared.NewKindedError(shared.KindMissingReference, "CATEGORY_NOT_FOUND", "Transaction category not found")
	ErrContactCategoryNotFound = shared.NewKindedError(shared.KindMissingReference, "CONTACT_CATEGORY_NOT_FOUND", "Contact has no receivable/payable category")
	ErrBankAccountNotFound     = shared.NewKindedError(shared.KindMissingReference, "BANK_ACCOUNT_NOT_FOUND", "Bank account not found")
	ErrProductNotFound         = shared.NewKindedError(shared.KindMissingReference, "PRODUCT_NOT_FOUND", "Product not found")
	ErrJournalNotFound         = shared.NewKindedError(shared.KindMissingReference, "JOURNAL_NOT_FOUND", "No active journal for reference")
)

var (
	ErrUnbalancedJournal  = shared.NewKindedError(shared.KindInvariantViolation, "UNBALANCED_JOURNAL", "Journal debits and credits do not balance")
	ErrInvalidJournalLine = shared.NewKindedError(shared.KindInvariantViolation, "INVALID_JOURNAL_LINE", "Journal line must carry exactly one non-negative amount")
)

var (
	ErrDocumentNotPending     = shared.NewKindedError(shared.KindStateConflict, "DOCUMENT_NOT_PENDING", "Document has already been posted")
	ErrDocumentNotPosted      = shared.NewKindedError(shared.KindStateConflict, "DOCUMENT_NOT_POSTED", "Document must be posted before it can be settled")
	ErrDocumentClosed         = shared.NewKindedError(shared.KindStateConflict, "DOCUMENT_CLOSED", "Document is already fully settled")
	ErrSettlementExceedsDue   = shared.NewKindedError(shared.KindStateConflict, "SETTLEMENT_EXCEEDS_DUE", "Settlement amount exceeds the due amount")
	ErrHasSettlements         = shared.NewKindedError(shared.KindStateConflict, "DOCUMENT_HAS_SETTLEMENTS", "Document has settlements and cannot be reversed")
	ErrJournalAlreadyReversed = shared.NewKindedError(shared.KindStateConflict, "JOURNAL_ALREADY_REVERSED", "Journal has already been reversed")
	ErrNoStockMovement        = shared.NewKindedError(shared.KindStateConflict, "NO_STOCK_MOVEMENT", "Document has no inventory movement to reverse")
	ErrStockNotReversed       = shared.NewKindedError(shared.KindStateConflict, "STOCK_NOT_REVERSED", "Inventory movement of the previous posting is still applied")
)

var (
	ErrInvalidAmount     = shared.NewKindedError(shared.KindInvalidInput, "INVALID_AMOUNT", "Amount must be greater than zero")
	ErrNotReversible     = shared.NewKindedError(shared.KindInvalidInput, "NOT_REVERSIBLE", "Reference type cannot be reversed")
	ErrInvalidDocument   = shared.NewKindedError(shared.KindInvalidInput, "INVALID_DOCUMENT", "Document is invalid")
	ErrDuplicateCategory = shared.NewKindedError(shared.KindInvalidInput, "DUPLICATE_CATEGORY", "Category code is listed more than once")
)

// UnbalancedJournalError carries the totals of a journal that failed the
// balance check. It matches ErrUnbalancedJournal with errors.Is.
type UnbalancedJournalError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *UnbalancedJournalError) Error() string {
	return fmt.Sprintf("journal is unbalanced: debit %s, credit %s", e.Debit.String(), e.Credit.String())
}

func (e *UnbalancedJournalError) Unwrap() error {
	return ErrUnbalancedJournal
}

// ErrorKind classifies err into one of the ledger failure kinds
func ErrorKind(err error) shared.ErrorKind {
	if err == nil {
		return ""
	}
	return shared.KindOf(err)
}
