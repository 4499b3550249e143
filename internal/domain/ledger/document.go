package ledger

import (
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentLine is one priced line of a credit note, debit note or expense
type DocumentLine struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	Description  string
	Quantity     int
	UnitPrice    decimal.Decimal
	CategoryID   uuid.UUID
	ProductID    *uuid.UUID
	DiscountType DiscountType
	Discount     decimal.Decimal // Flat amount or percentage, depending on DiscountType
	VATAmount    decimal.Decimal
	ExciseAmount decimal.Decimal
}

// Subtotal returns unit price times quantity
func (l DocumentLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// DiscountValue returns the amount removed from the subtotal by the line discount
func (l DocumentLine) DiscountValue() decimal.Decimal {
	switch l.DiscountType {
	case DiscountFixed:
		return l.Discount
	case DiscountPercentage:
		return l.Subtotal().Mul(l.Discount).Div(decimal.NewFromInt(100))
	}
	return decimal.Zero
}

// DiscountIn returns the line discount rounded half-even to the minor unit
// of cur, the amount the discount line posts
func (l DocumentLine) DiscountIn(cur valueobject.Currency) decimal.Decimal {
	return valueobject.NewMoney(l.DiscountValue(), cur).Round().Amount()
}

// Product is the read-only view of a catalog product the engine needs
type Product struct {
	ID                 uuid.UUID
	Name               string
	InventoryEnabled   bool
	SalesCategoryID    *uuid.UUID
	PurchaseCategoryID *uuid.UUID
	AvgPurchaseCost    *decimal.Decimal
}

// Document is a credit note, debit note or expense awaiting or carrying a journal
type Document struct {
	shared.BaseAggregateRoot
	Kind              DocumentKind
	Number            string
	ContactID         uuid.UUID
	Currency          valueobject.Currency
	ExchangeRate      decimal.Decimal
	TaxInclusive      bool
	ReverseCharge     bool
	VATCategoryID     *uuid.UUID // nil disables VAT lines
	TotalAmount       decimal.Decimal
	TotalVATAmount    decimal.Decimal
	TotalExciseAmount decimal.Decimal
	DiscountAmount    decimal.Decimal // Summed line discounts as entered; zero skips the cross-check
	DiscountType      DiscountType
	DueAmount         decimal.Decimal
	Status            DocumentStatus
	OriginInvoiceID   *uuid.UUID
	PayMode           PayMode
	BankAccountID     *uuid.UUID
	DocumentDate      time.Time
	StockMoved        bool // Inventory movement applied and not yet reversed
	Lines             []DocumentLine
}

// NewDocument creates a PENDING document. Lines and totals are filled in by
// the caller before posting.
func NewDocument(kind DocumentKind, number string, contactID uuid.UUID, currency string, rate decimal.Decimal) (*Document, error) {
	if !kind.IsValid() {
		return nil, ErrInvalidDocument.WithMessage(fmt.Sprintf("Unknown document kind %q", kind))
	}
	if number == "" {
		return nil, ErrInvalidDocument.WithMessage("Document number cannot be empty")
	}
	if contactID == uuid.Nil {
		return nil, ErrInvalidDocument.WithMessage("Contact ID cannot be empty")
	}
	cur, err := valueobject.ParseCurrency(currency)
	if err != nil {
		return nil, ErrInvalidDocument.WithMessage(err.Error())
	}
	if _, err := valueobject.NewExchangeRate(rate); err != nil {
		return nil, ErrInvalidDocument.WithMessage(err.Error())
	}

	doc := &Document{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Kind:              kind,
		Number:            number,
		ContactID:         contactID,
		Currency:          cur,
		ExchangeRate:      rate,
		Status:            StatusPending,
		DocumentDate:      time.Now().UTC(),
	}
	if kind == KindExpense {
		doc.PayMode = PayModeCredit
	}
	return doc, nil
}

// AddLine appends a line and assigns it to the document
func (d *Document) AddLine(line DocumentLine) {
	if line.ID == uuid.Nil {
		line.ID = uuid.New()
	}
	line.DocumentID = d.ID
	d.Lines = append(d.Lines, line)
}

// Direction returns the ledger direction of the document
func (d *Document) Direction() Direction {
	return d.Kind.Direction()
}

// Rate returns the document exchange rate, defaulting to 1
func (d *Document) Rate() valueobject.ExchangeRate {
	rate, err := valueobject.NewExchangeRate(d.ExchangeRate)
	if err != nil {
		return valueobject.IdentityRate()
	}
	return rate
}

// Validate checks the fields posting depends on
func (d *Document) Validate() error {
	if !d.Kind.IsValid() {
		return ErrInvalidDocument.WithMessage(fmt.Sprintf("Unknown document kind %q", d.Kind))
	}
	if len(d.Lines) == 0 {
		return ErrInvalidDocument.WithMessage(fmt.Sprintf("Document %s has no lines", d.Number))
	}
	if !d.ExchangeRate.IsPositive() {
		return ErrInvalidDocument.WithMessage(fmt.Sprintf("Document %s has a non-positive exchange rate", d.Number))
	}
	if !d.DiscountType.IsValid() {
		return ErrInvalidDocument.WithMessage(fmt.Sprintf("Document %s has unknown discount type %q", d.Number, d.DiscountType))
	}
	if d.TotalAmount.IsNegative() {
		return ErrInvalidDocument.WithMessage(fmt.Sprintf("Document %s has a negative total", d.Number))
	}
	if d.Kind == KindExpense {
		if !d.PayMode.IsValid() {
			return ErrInvalidDocument.WithMessage(fmt.Sprintf("Expense %s has unknown pay mode %q", d.Number, d.PayMode))
		}
		if d.PayMode == PayModeBank && d.BankAccountID == nil {
			return ErrInvalidDocument.WithMessage(fmt.Sprintf("Expense %s is paid by bank but has no bank account", d.Number))
		}
	}
	for _, line := range d.Lines {
		if line.Quantity <= 0 {
			return ErrInvalidDocument.WithMessage(fmt.Sprintf("Document %s has a line with non-positive quantity", d.Number))
		}
		if !line.DiscountType.IsValid() {
			return ErrInvalidDocument.WithMessage(fmt.Sprintf("Document %s has a line with unknown discount type %q", d.Number, line.DiscountType))
		}
	}
	return nil
}

// ProductIDs returns the distinct products referenced by the lines
func (d *Document) ProductIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0)
	for _, line := range d.Lines {
		if line.ProductID == nil {
			continue
		}
		if _, ok := seen[*line.ProductID]; ok {
			continue
		}
		seen[*line.ProductID] = struct{}{}
		ids = append(ids, *line.ProductID)
	}
	return ids
}

// EnsurePending rejects posting anything but a PENDING document
func (d *Document) EnsurePending() error {
	if d.Status != StatusPending {
		return ErrDocumentNotPending.WithMessage(fmt.Sprintf("Document %s is %s, only PENDING documents can be posted", d.Number, d.Status))
	}
	return nil
}

// MarkPosted moves a PENDING document to OPEN with the full total due
func (d *Document) MarkPosted() error {
	if err := d.EnsurePending(); err != nil {
		return err
	}
	d.Status = StatusOpen
	d.DueAmount = d.TotalAmount
	d.IncrementVersion()
	return nil
}

// EnsureStockSettled rejects posting while the stock movement of an earlier
// posting is still in place
func (d *Document) EnsureStockSettled() error {
	if d.StockMoved {
		return ErrStockNotReversed.WithMessage(fmt.Sprintf("Inventory movement of document %s must be reversed before it is posted again", d.Number))
	}
	return nil
}

// ReleaseStock clears the stock movement flag before the movement is undone.
// A document whose movement was never applied, or was already reversed, is
// rejected.
func (d *Document) ReleaseStock() error {
	if !d.StockMoved {
		return ErrNoStockMovement.WithMessage(fmt.Sprintf("Document %s has no inventory movement to reverse", d.Number))
	}
	d.StockMoved = false
	d.IncrementVersion()
	return nil
}

// SettlementTransition records the due amount and status around one settlement
type SettlementTransition struct {
	DueBefore    decimal.Decimal
	DueAfter     decimal.Decimal
	StatusBefore DocumentStatus
	StatusAfter  DocumentStatus
}

// ApplySettlement reduces the due amount by amount and advances the status.
// Settling the exact due closes the document; less leaves it partially paid.
func (d *Document) ApplySettlement(amount decimal.Decimal) (SettlementTransition, error) {
	if !amount.IsPositive() {
		return SettlementTransition{}, ErrInvalidAmount.WithMessage(fmt.Sprintf("Settlement amount %s must be greater than zero", amount.String()))
	}
	if !d.Status.CanSettle() {
		if d.Status == StatusClosed {
			return SettlementTransition{}, ErrDocumentClosed.WithMessage(fmt.Sprintf("Document %s is already closed", d.Number))
		}
		return SettlementTransition{}, ErrDocumentNotPosted.WithMessage(fmt.Sprintf("Document %s has not been posted", d.Number))
	}
	if amount.GreaterThan(d.DueAmount) {
		return SettlementTransition{}, ErrSettlementExceedsDue.WithMessage(
			fmt.Sprintf("Settlement amount %s exceeds due amount %s of document %s", amount.String(), d.DueAmount.String(), d.Number))
	}

	t := SettlementTransition{DueBefore: d.DueAmount, StatusBefore: d.Status}
	d.DueAmount = d.DueAmount.Sub(amount)
	if d.DueAmount.IsZero() {
		d.Status = StatusClosed
	} else {
		d.Status = StatusPartiallyPaid
	}
	t.DueAfter = d.DueAmount
	t.StatusAfter = d.Status
	d.IncrementVersion()
	return t, nil
}

// ResetToPending returns a reversed document to PENDING so it can be posted
// again. Documents that have been settled keep their status, except expenses
// that were paid when recorded, whose settlement is undone with the journal.
func (d *Document) ResetToPending() error {
	if d.Status == StatusPending {
		return nil
	}
	paidOnPost := d.Status == StatusClosed && d.SettledOnPost()
	if d.Status.HasSettlements() && !paidOnPost {
		return ErrHasSettlements.WithMessage(fmt.Sprintf("Document %s is %s and cannot be reversed", d.Number, d.Status))
	}
	d.Status = StatusPending
	d.DueAmount = decimal.Zero
	d.IncrementVersion()
	return nil
}

// SettledOnPost returns true for expenses paid in cash or by bank when recorded
func (d *Document) SettledOnPost() bool {
	return d.Kind == KindExpense && d.PayMode.SettlesOnPost()
}

