package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostingInput is everything the assembler reads. All lookups have already
// been resolved by the caller.
type PostingInput struct {
	Decision       PostingDecision
	Document       *Document
	ContraCategory *Category
	Aggregates     []CategoryAggregate
	Categories     CategoryIndex
	Set            CategorySet
	InventoryCost  decimal.Decimal // Historical cost of returned stock, base currency
}

// emitter appends journal lines in emission order
type emitter struct {
	rate  decimal.Decimal
	lines []JournalLineItem
}

func (e *emitter) emit(category *Category, side Side, amount decimal.Decimal, description string, contactID *uuid.UUID) {
	if amount.IsNegative() {
		side = side.Opposite()
		amount = amount.Neg()
	}
	line := JournalLineItem{
		CategoryID:   category.ID,
		CategoryCode: category.Code,
		ContactID:    contactID,
		Description:  description,
		DebitAmount:  decimal.Zero,
		CreditAmount: decimal.Zero,
		ExchangeRate: e.rate,
	}
	if side == Debit {
		line.DebitAmount = amount
	} else {
		line.CreditAmount = amount
	}
	e.lines = append(e.lines, line)
}

// AssemblePosting emits the journal lines of a posting in fixed order:
// contra, categories, inventory asset/COGS, VAT, reverse-charge mirror,
// discount, excise. Zero tax and discount lines are omitted. A document
// whose total disagrees with its lines is rejected before anything is emitted.
func AssemblePosting(in PostingInput) ([]JournalLineItem, error) {
	d := in.Decision
	doc := in.Document
	e := &emitter{rate: d.Rate}

	if in.ContraCategory == nil {
		return nil, ErrContactCategoryNotFound.WithMessage(fmt.Sprintf("No contra category for document %s", doc.Number))
	}
	if err := CheckTotals(d, doc, in.Aggregates); err != nil {
		return nil, err
	}
	contactID := doc.ContactID
	e.emit(in.ContraCategory, d.ContraSide, d.ToBase(doc.TotalAmount), doc.Number, &contactID)

	for _, agg := range in.Aggregates {
		category, err := in.Categories.Get(agg.CategoryID)
		if err != nil {
			return nil, err
		}
		e.emit(category, d.CategorySide(), d.ToBase(agg.Total), doc.Number, nil)
	}

	if d.EmitInventoryPair(HasInventory(in.Aggregates)) && in.InventoryCost.IsPositive() {
		asset, err := in.Set.Get(CodeInventoryAsset)
		if err != nil {
			return nil, err
		}
		cogs, err := in.Set.Get(CodeCostOfGoodsSold)
		if err != nil {
			return nil, err
		}
		e.emit(asset, Debit, in.InventoryCost, "Returned stock "+doc.Number, nil)
		e.emit(cogs, Credit, in.InventoryCost, "Returned stock "+doc.Number, nil)
	}

	if d.EmitVAT {
		vat, err := in.Set.Get(d.VATCode())
		if err != nil {
			return nil, err
		}
		amount := d.ToBase(doc.TotalVATAmount)
		e.emit(vat, d.TaxSide(), amount, "VAT "+doc.Number, nil)

		if d.ReverseCharge {
			mirror, err := in.Set.Get(d.MirrorVATCode())
			if err != nil {
				return nil, err
			}
			e.emit(mirror, d.TaxSide().Opposite(), amount, "Reverse charge VAT "+doc.Number, nil)
		}
	}

	if discount := TotalDiscount(in.Aggregates); discount.IsPositive() {
		category, err := in.Set.Get(d.DiscountCode())
		if err != nil {
			return nil, err
		}
		e.emit(category, d.DiscountSide(), d.ToBase(discount), "Discount "+doc.Number, nil)
	}

	if d.EmitExcise {
		excise, err := in.Set.Get(d.ExciseCode())
		if err != nil {
			return nil, err
		}
		e.emit(excise, d.TaxSide(), d.ToBase(doc.TotalExciseAmount), "Excise "+doc.Number, nil)
	}

	return e.lines, nil
}

// AssembleSettlement emits the two-line journal applying amount (document
// currency) against the contra category. Money leaves the deposit category
// for credit notes and expenses and arrives in it for debit notes.
func AssembleSettlement(doc *Document, contra, deposit *Category, amount decimal.Decimal) ([]JournalLineItem, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount.WithMessage(fmt.Sprintf("Settlement amount %s must be greater than zero", amount.String()))
	}
	if contra == nil {
		return nil, ErrContactCategoryNotFound.WithMessage(fmt.Sprintf("No contra category for document %s", doc.Number))
	}
	if deposit == nil {
		return nil, ErrCategoryNotFound.WithMessage("Deposit category is required")
	}

	d := NewPostingDecision(doc)
	e := &emitter{rate: d.Rate}
	base := d.ToBase(amount)
	contactID := doc.ContactID
	description := "Settlement " + doc.Number

	contraSide := d.ContraSide.Opposite()
	e.emit(contra, contraSide, base, description, &contactID)
	e.emit(deposit, contraSide.Opposite(), base, description, nil)
	return e.lines, nil
}
