package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	set        CategorySet
	index      CategoryIndex
	contra     *Category
	revenue    *Category
	expense    *Category
	vatID      uuid.UUID
	categories map[CategoryCode]*Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{categories: make(map[CategoryCode]*Category)}

	var all []Category
	for _, code := range AllCategoryCodes() {
		c, err := NewCategory(string(code), string(code))
		require.NoError(t, err)
		f.categories[code] = c
		all = append(all, *c)
	}
	var err error
	f.contra, err = NewCategory("ACCOUNTS_RECEIVABLE", "Accounts Receivable")
	require.NoError(t, err)
	f.revenue, err = NewCategory("SALES_REVENUE", "Sales Revenue")
	require.NoError(t, err)
	f.expense, err = NewCategory("OFFICE_EXPENSE", "Office Expense")
	require.NoError(t, err)

	f.set = NewCategorySet(all)
	f.index = NewCategoryIndex(append(all, *f.contra, *f.revenue, *f.expense))
	f.vatID = f.categories[CodeOutputVAT].ID
	return f
}

func (f *fixture) document(t *testing.T, kind DocumentKind, rate string) *Document {
	t.Helper()
	doc, err := NewDocument(kind, "DOC-001", uuid.New(), "USD", dec(rate))
	require.NoError(t, err)
	return doc
}

func (f *fixture) post(t *testing.T, doc *Document, products map[uuid.UUID]*Product, inventoryCost decimal.Decimal) (*Journal, error) {
	t.Helper()
	decision := NewPostingDecision(doc)
	asset, _ := f.set.Get(CodeInventoryAsset)
	aggregates, err := ResolveCategories(decision, doc.Lines, products, asset)
	if err != nil {
		return nil, err
	}
	lines, err := AssemblePosting(PostingInput{
		Decision:       decision,
		Document:       doc,
		ContraCategory: f.contra,
		Aggregates:     aggregates,
		Categories:     f.index,
		Set:            f.set,
		InventoryCost:  inventoryCost,
	})
	if err != nil {
		return nil, err
	}
	return NewJournal(decision.ReferenceType, doc.ID, time.Now().UTC(), doc.Number, uuid.New(), lines)
}

func linesByCode(j *Journal) map[string][]JournalLineItem {
	out := make(map[string][]JournalLineItem)
	for _, l := range j.Lines {
		out[l.CategoryCode] = append(out[l.CategoryCode], l)
	}
	return out
}

func requireBalanced(t *testing.T, j *Journal) {
	t.Helper()
	debit, credit := j.Totals()
	require.True(t, debit.Equal(credit), "debit %s != credit %s", debit, credit)
}
