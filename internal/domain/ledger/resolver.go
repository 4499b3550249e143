package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CategoryAggregate is the resolved amount posted to one ledger category
type CategoryAggregate struct {
	CategoryID        uuid.UUID
	Subtotal          decimal.Decimal // Adjusted line subtotals, after discount and inclusive tax
	Discount          decimal.Decimal // Discount removed from the lines, posted separately
	Total             decimal.Decimal // Subtotal + Discount
	HasInventory      bool
	InventoryQuantity int
}

// ResolveCategories groups document lines into per-category aggregates,
// ordered by the first line that references each category. Line discounts
// are rounded to the document currency's minor unit.
func ResolveCategories(decision PostingDecision, lines []DocumentLine, products map[uuid.UUID]*Product, inventoryAsset *Category) ([]CategoryAggregate, error) {
	order := make([]uuid.UUID, 0)
	byCategory := make(map[uuid.UUID]*CategoryAggregate)

	for _, line := range lines {
		var product *Product
		if line.ProductID != nil {
			p, ok := products[*line.ProductID]
			if !ok {
				return nil, ErrProductNotFound.WithMessage(fmt.Sprintf("Product %s not found", *line.ProductID))
			}
			product = p
		}

		categoryID, err := lineCategory(decision, line, product, inventoryAsset)
		if err != nil {
			return nil, err
		}

		agg, ok := byCategory[categoryID]
		if !ok {
			agg = &CategoryAggregate{
				CategoryID: categoryID,
				Subtotal:   decimal.Zero,
				Discount:   decimal.Zero,
			}
			byCategory[categoryID] = agg
			order = append(order, categoryID)
		}

		discount := line.DiscountIn(decision.Currency)
		adjusted := line.Subtotal().Sub(discount)
		if decision.TaxInclusive {
			adjusted = adjusted.Sub(line.VATAmount).Sub(line.ExciseAmount)
		}
		agg.Subtotal = agg.Subtotal.Add(adjusted)
		agg.Discount = agg.Discount.Add(discount)

		if product != nil && product.InventoryEnabled {
			agg.HasInventory = true
			agg.InventoryQuantity += line.Quantity
		}
	}

	result := make([]CategoryAggregate, 0, len(order))
	for _, id := range order {
		agg := *byCategory[id]
		agg.Total = agg.Subtotal.Add(agg.Discount)
		result = append(result, agg)
	}
	return result, nil
}

// lineCategory picks the category a line posts to. Product configuration
// wins over the line's own category.
func lineCategory(decision PostingDecision, line DocumentLine, product *Product, inventoryAsset *Category) (uuid.UUID, error) {
	if product != nil {
		switch {
		case decision.Direction.IsSale() && product.SalesCategoryID != nil:
			return *product.SalesCategoryID, nil
		case !decision.Direction.IsSale() && product.InventoryEnabled:
			if inventoryAsset == nil {
				return uuid.Nil, ErrCategoryNotFound.WithMessage(fmt.Sprintf("Category %s is not configured", CodeInventoryAsset))
			}
			return inventoryAsset.ID, nil
		case !decision.Direction.IsSale() && product.PurchaseCategoryID != nil:
			return *product.PurchaseCategoryID, nil
		}
	}
	if line.CategoryID == uuid.Nil {
		return uuid.Nil, ErrCategoryNotFound.WithMessage(fmt.Sprintf("Line %s has no category", line.ID))
	}
	return line.CategoryID, nil
}

// TotalDiscount sums the discount across aggregates
func TotalDiscount(aggregates []CategoryAggregate) decimal.Decimal {
	total := decimal.Zero
	for _, a := range aggregates {
		total = total.Add(a.Discount)
	}
	return total
}

// HasInventory reports whether any aggregate carries inventory lines
func HasInventory(aggregates []CategoryAggregate) bool {
	for _, a := range aggregates {
		if a.HasInventory {
			return true
		}
	}
	return false
}

// ExpectedTotal is the document total the aggregates balance against: the
// adjusted subtotals plus excise, plus VAT unless it is self-assessed.
func ExpectedTotal(decision PostingDecision, doc *Document, aggregates []CategoryAggregate) decimal.Decimal {
	total := decimal.Zero
	for _, a := range aggregates {
		total = total.Add(a.Subtotal)
	}
	if decision.EmitExcise {
		total = total.Add(doc.TotalExciseAmount)
	}
	if decision.EmitVAT && !decision.ReverseCharge {
		total = total.Add(doc.TotalVATAmount)
	}
	return total
}

// CheckTotals rejects a document whose stored totals disagree with its lines
func CheckTotals(decision PostingDecision, doc *Document, aggregates []CategoryAggregate) error {
	if discount := TotalDiscount(aggregates); !doc.DiscountAmount.IsZero() && !doc.DiscountAmount.Equal(discount) {
		return ErrInvalidDocument.WithMessage(fmt.Sprintf("Document %s discount %s does not match line discounts %s",
			doc.Number, doc.DiscountAmount.String(), discount.String()))
	}
	expected := ExpectedTotal(decision, doc, aggregates)
	if !doc.TotalAmount.Equal(expected) {
		msg := fmt.Sprintf("Document %s total %s does not match its lines and taxes (%s)", doc.Number, doc.TotalAmount.String(), expected.String())
		if decision.ReverseCharge {
			msg += "; a reverse-charge total excludes the self-assessed VAT"
		}
		return ErrInvalidDocument.WithMessage(msg)
	}
	return nil
}
