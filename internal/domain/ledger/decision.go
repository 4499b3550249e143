package ledger

import (
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// PostingDecision captures every flag that shapes a posting, computed once
// per document. Emission reads these fields instead of re-testing the
// document at each step.
type PostingDecision struct {
	Kind          DocumentKind
	Direction     Direction
	ReferenceType ReferenceType
	ContraSide    Side
	TaxInclusive  bool
	EmitVAT       bool
	ReverseCharge bool
	EmitExcise    bool
	Rate          decimal.Decimal
	Currency      valueobject.Currency
	PayMode       PayMode
	SettleOnPost  bool
}

// NewPostingDecision derives the decision record for doc
func NewPostingDecision(doc *Document) PostingDecision {
	d := PostingDecision{
		Kind:          doc.Kind,
		Direction:     doc.Direction(),
		ReferenceType: doc.Kind.ReferenceType(),
		TaxInclusive:  doc.TaxInclusive,
		EmitVAT:       doc.VATCategoryID != nil && doc.TotalVATAmount.IsPositive(),
		EmitExcise:    doc.TotalExciseAmount.IsPositive(),
		Rate:          doc.Rate().Decimal(),
		Currency:      doc.Currency,
		PayMode:       doc.PayMode,
		SettleOnPost:  doc.SettledOnPost(),
	}
	d.ReverseCharge = doc.ReverseCharge && d.EmitVAT

	// A debit note returns goods to the vendor, so the payable is debited.
	// Credit notes and expenses credit the contra party.
	if doc.Kind == KindDebitNote {
		d.ContraSide = Debit
	} else {
		d.ContraSide = Credit
	}
	return d
}

// CategorySide is the column of the per-category lines
func (d PostingDecision) CategorySide() Side {
	return d.ContraSide.Opposite()
}

// TaxSide is the column of the VAT and excise lines
func (d PostingDecision) TaxSide() Side {
	return d.CategorySide()
}

// DiscountSide is the column of the discount line
func (d PostingDecision) DiscountSide() Side {
	return d.ContraSide
}

// VATCode is the VAT category for the document direction
func (d PostingDecision) VATCode() CategoryCode {
	if d.Direction.IsSale() {
		return CodeOutputVAT
	}
	return CodeInputVAT
}

// MirrorVATCode is the self-assessed counterpart of VATCode under reverse charge
func (d PostingDecision) MirrorVATCode() CategoryCode {
	if d.Direction.IsSale() {
		return CodeInputVAT
	}
	return CodeOutputVAT
}

// DiscountCode is the discount category for the document direction
func (d PostingDecision) DiscountCode() CategoryCode {
	if d.Direction.IsSale() {
		return CodeSalesDiscount
	}
	return CodePurchaseDiscount
}

// ExciseCode is the excise category for the document direction
func (d PostingDecision) ExciseCode() CategoryCode {
	if d.Direction.IsSale() {
		return CodeOutputExciseTax
	}
	return CodeInputExciseTax
}

// EmitInventoryPair reports whether the Inventory Asset / COGS pair applies
func (d PostingDecision) EmitInventoryPair(participated bool) bool {
	return participated && d.Direction.IsSale()
}

// ToBase converts a document-currency amount to base currency
func (d PostingDecision) ToBase(amount decimal.Decimal) decimal.Decimal {
	if d.Rate.IsZero() {
		return amount
	}
	return amount.Mul(d.Rate)
}
