package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BankAccount is a bank or cash account whose running balance follows settlements
type BankAccount struct {
	shared.BaseAggregateRoot
	Name           string
	CategoryID     uuid.UUID
	Currency       valueobject.Currency
	CurrentBalance decimal.Decimal
}

// NewBankAccount creates a bank account linked to its ledger category
func NewBankAccount(name string, categoryID uuid.UUID, currency string, opening decimal.Decimal) (*BankAccount, error) {
	if name == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Bank account name cannot be empty")
	}
	if categoryID == uuid.Nil {
		return nil, shared.ErrInvalidInput.WithMessage("Bank account category cannot be empty")
	}
	cur, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return nil, shared.ErrInvalidInput.WithMessage(err.Error())
	}
	return &BankAccount{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		CategoryID:        categoryID,
		Currency:          cur,
		CurrentBalance:    opening,
	}, nil
}

// AmountFor picks the amount to book on this account: the document amount
// when currencies match, the base amount otherwise.
func (b *BankAccount) AmountFor(docCurrency valueobject.Currency, amount, base decimal.Decimal) decimal.Decimal {
	if b.Currency == docCurrency {
		return amount
	}
	return base
}

// Apply moves the running balance. D takes money out, C brings it in.
func (b *BankAccount) Apply(flag DebitCreditFlag, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount.WithMessage(fmt.Sprintf("Bank movement %s must be greater than zero", amount.String()))
	}
	switch flag {
	case FlagDebit:
		b.CurrentBalance = b.CurrentBalance.Sub(amount)
	case FlagCredit:
		b.CurrentBalance = b.CurrentBalance.Add(amount)
	default:
		return shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Unknown debit/credit flag %q", flag))
	}
	b.IncrementVersion()
	return nil
}

// Opposite returns the flag that undoes a movement
func (f DebitCreditFlag) Opposite() DebitCreditFlag {
	if f == FlagDebit {
		return FlagCredit
	}
	return FlagDebit
}

// SettlementEvent is the audit record of money applied against a document
type SettlementEvent struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	JournalID       uuid.UUID
	BankAccountID   *uuid.UUID
	Amount          decimal.Decimal
	BaseAmount      decimal.Decimal
	DebitCreditFlag DebitCreditFlag
	DueBefore       decimal.Decimal
	DueAfter        decimal.Decimal
	StatusAfter     DocumentStatus
	SettledAt       time.Time
	CreatedBy       uuid.UUID
	Description     string
}

// NewSettlementEvent records a settlement transition of doc
func NewSettlementEvent(doc *Document, journalID uuid.UUID, bankAccountID *uuid.UUID, amount decimal.Decimal, t SettlementTransition, createdBy uuid.UUID, description string) *SettlementEvent {
	return &SettlementEvent{
		ID:              uuid.New(),
		DocumentID:      doc.ID,
		JournalID:       journalID,
		BankAccountID:   bankAccountID,
		Amount:          amount,
		BaseAmount:      doc.Rate().ToBase(amount),
		DebitCreditFlag: doc.Kind.SettlementFlag(),
		DueBefore:       t.DueBefore,
		DueAfter:        t.DueAfter,
		StatusAfter:     t.StatusAfter,
		SettledAt:       time.Now().UTC(),
		CreatedBy:       createdBy,
		Description:     description,
	}
}
