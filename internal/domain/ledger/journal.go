package ledger

import (
	"fmt"
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// JournalLineItem is one debit or credit against a ledger category
type JournalLineItem struct {
	ID            uuid.UUID
	JournalID     uuid.UUID
	Sequence      int
	CategoryID    uuid.UUID
	CategoryCode  string
	ContactID     *uuid.UUID
	Description   string
	DebitAmount   decimal.Decimal
	CreditAmount  decimal.Decimal
	ExchangeRate  decimal.Decimal
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	CreatedBy     uuid.UUID
}

// Side returns the column the line posts to
func (l JournalLineItem) Side() Side {
	if l.CreditAmount.IsPositive() {
		return Credit
	}
	return Debit
}

// Amount returns the non-zero amount of the line
func (l JournalLineItem) Amount() decimal.Decimal {
	if l.CreditAmount.IsPositive() {
		return l.CreditAmount
	}
	return l.DebitAmount
}

func (l JournalLineItem) validate() error {
	if l.CategoryID == uuid.Nil {
		return ErrInvalidJournalLine.WithMessage(fmt.Sprintf("Journal line %d has no category", l.Sequence))
	}
	if l.DebitAmount.IsNegative() || l.CreditAmount.IsNegative() {
		return ErrInvalidJournalLine.WithMessage(fmt.Sprintf("Journal line %d has a negative amount", l.Sequence))
	}
	if l.DebitAmount.IsPositive() && l.CreditAmount.IsPositive() {
		return ErrInvalidJournalLine.WithMessage(fmt.Sprintf("Journal line %d has both debit and credit", l.Sequence))
	}
	return nil
}

// Journal is a balanced set of journal lines produced by one posting,
// reversal or settlement
type Journal struct {
	shared.BaseAggregateRoot
	Number        string
	ReferenceType ReferenceType
	ReferenceID   uuid.UUID
	JournalDate   time.Time
	Description   string
	CreatedBy     uuid.UUID
	Reversed      bool
	Lines         []JournalLineItem
}

// NewJournal builds a journal and enforces that total debits equal total
// credits. Nothing that fails this check may be persisted.
func NewJournal(refType ReferenceType, refID uuid.UUID, date time.Time, description string, createdBy uuid.UUID, lines []JournalLineItem) (*Journal, error) {
	if len(lines) == 0 {
		return nil, ErrInvalidJournalLine.WithMessage("Journal must have at least one line")
	}

	j := &Journal{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            NewJournalNumber(),
		ReferenceType:     refType,
		ReferenceID:       refID,
		JournalDate:       date,
		Description:       description,
		CreatedBy:         createdBy,
		Lines:             make([]JournalLineItem, len(lines)),
	}
	for i, line := range lines {
		line.ID = uuid.New()
		line.JournalID = j.ID
		line.Sequence = i + 1
		line.ReferenceType = refType
		line.ReferenceID = refID
		line.CreatedBy = createdBy
		if err := line.validate(); err != nil {
			return nil, err
		}
		j.Lines[i] = line
	}

	debit, credit := j.Totals()
	if !debit.Equal(credit) {
		return nil, &UnbalancedJournalError{Debit: debit, Credit: credit}
	}
	return j, nil
}

// Totals returns the summed debit and credit amounts
func (j *Journal) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range j.Lines {
		debit = debit.Add(l.DebitAmount)
		credit = credit.Add(l.CreditAmount)
	}
	return debit, credit
}

// NetByCategory returns debit minus credit per category
func (j *Journal) NetByCategory() map[uuid.UUID]decimal.Decimal {
	net := make(map[uuid.UUID]decimal.Decimal)
	for _, l := range j.Lines {
		net[l.CategoryID] = net[l.CategoryID].Add(l.DebitAmount).Sub(l.CreditAmount)
	}
	return net
}

// MarkReversed flags the journal so it is not reversed twice
func (j *Journal) MarkReversed() error {
	if j.Reversed {
		return ErrJournalAlreadyReversed.WithMessage(fmt.Sprintf("Journal %s has already been reversed", j.Number))
	}
	j.Reversed = true
	j.IncrementVersion()
	return nil
}

// AssembleReversal builds the mirror of original: same categories and
// metadata, debit and credit swapped, tagged with the REVERSE_* type.
func AssembleReversal(original *Journal, createdBy uuid.UUID, date time.Time) (*Journal, error) {
	if original.Reversed {
		return nil, ErrJournalAlreadyReversed.WithMessage(fmt.Sprintf("Journal %s has already been reversed", original.Number))
	}
	refType, err := original.ReferenceType.Reverse()
	if err != nil {
		return nil, err
	}

	lines := make([]JournalLineItem, 0, len(original.Lines))
	for _, l := range original.Lines {
		lines = append(lines, JournalLineItem{
			CategoryID:   l.CategoryID,
			CategoryCode: l.CategoryCode,
			ContactID:    l.ContactID,
			Description:  l.Description,
			DebitAmount:  l.CreditAmount,
			CreditAmount: l.DebitAmount,
			ExchangeRate: l.ExchangeRate,
		})
	}
	description := fmt.Sprintf("Reversal of %s", original.Number)
	return NewJournal(refType, original.ReferenceID, date, description, createdBy, lines)
}

// DistinctJournals drops repeated journals, keeping first occurrence order
func DistinctJournals(journals []*Journal) []*Journal {
	seen := make(map[uuid.UUID]struct{}, len(journals))
	out := make([]*Journal, 0, len(journals))
	for _, j := range journals {
		if _, ok := seen[j.ID]; ok {
			continue
		}
		seen[j.ID] = struct{}{}
		out = append(out, j)
	}
	return out
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// NewJournalNumber returns a lexicographically sortable journal number
func NewJournalNumber() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "JV-" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
