package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanceDiscrepancyType_Description(t *testing.T) {
	assert.NotEmpty(t, JournalImbalance.Description())
	assert.NotEmpty(t, DueAmountMismatch.Description())
	assert.Equal(t, "Unknown discrepancy", BalanceDiscrepancyType("UNKNOWN").Description())
}

func TestNewBalanceDiscrepancy_Severity(t *testing.T) {
	tolerance := dec("0.01")
	warn := NewBalanceDiscrepancy(JournalImbalance, "Journal", uuid.New(), "JV-1", dec("100"), dec("99.995"), tolerance)
	assert.Equal(t, "WARNING", warn.Severity)
	assert.True(t, warn.Difference.Equal(dec("0.005")))

	crit := NewBalanceDiscrepancy(JournalImbalance, "Journal", uuid.New(), "JV-2", dec("100"), dec("90"), tolerance)
	assert.Equal(t, "CRITICAL", crit.Severity)
}

func TestBuildTrialBalance(t *testing.T) {
	tolerance := dec("0.01")

	t.Run("balanced ledger", func(t *testing.T) {
		categories := []CategoryBalance{
			{CategoryID: uuid.New(), CategoryCode: "AR", Debit: dec("0"), Credit: dec("1050")},
			{CategoryID: uuid.New(), CategoryCode: "SALES", Debit: dec("1000"), Credit: dec("0")},
			{CategoryID: uuid.New(), CategoryCode: "OUTPUT_VAT", Debit: dec("50"), Credit: dec("0")},
		}
		journals := []JournalBalance{{JournalID: uuid.New(), Number: "JV-1", Debit: dec("1050"), Credit: dec("1050")}}
		documents := []DocumentDue{
			{DocumentID: uuid.New(), Status: StatusOpen, TotalAmount: dec("1050"), DueAmount: dec("1050")},
			{DocumentID: uuid.New(), Status: StatusPartiallyPaid, TotalAmount: dec("100"), DueAmount: dec("40")},
			{DocumentID: uuid.New(), Status: StatusClosed, TotalAmount: dec("100"), DueAmount: decimal.Zero},
			{DocumentID: uuid.New(), Status: StatusPending, TotalAmount: dec("100"), DueAmount: decimal.Zero},
		}

		r := BuildTrialBalance(TrialBalanceFilter{}, categories, journals, documents, tolerance)
		assert.True(t, r.IsBalanced())
		assert.True(t, r.TotalDebits.Equal(dec("1050")))
		assert.True(t, r.TotalCredits.Equal(dec("1050")))
		assert.Len(t, r.Categories, 3)
		assert.True(t, r.Categories[0].Net().Equal(dec("-1050")))
	})

	t.Run("reports unbalanced journals and due mismatches", func(t *testing.T) {
		categories := []CategoryBalance{
			{CategoryID: uuid.New(), Debit: dec("100"), Credit: dec("90")},
		}
		journals := []JournalBalance{
			{JournalID: uuid.New(), Number: "JV-1", Debit: dec("100"), Credit: dec("90")},
			{JournalID: uuid.New(), Number: "JV-2", Debit: dec("5"), Credit: dec("5")},
		}
		documents := []DocumentDue{
			{DocumentID: uuid.New(), Number: "CN-1", Status: StatusClosed, TotalAmount: dec("100"), DueAmount: dec("10")},
			{DocumentID: uuid.New(), Number: "CN-2", Status: StatusPartiallyPaid, TotalAmount: dec("100"), DueAmount: dec("100")},
		}

		r := BuildTrialBalance(TrialBalanceFilter{}, categories, journals, documents, tolerance)
		assert.False(t, r.IsBalanced())
		assert.Equal(t, TrialBalanceStatusUnbalanced, r.Status)
		require.Equal(t, 3, r.DiscrepancyCount)
		assert.Equal(t, JournalImbalance, r.Discrepancies[0].Type)
		assert.Equal(t, "JV-1", r.Discrepancies[0].EntityNumber)
		assert.Equal(t, DueAmountMismatch, r.Discrepancies[1].Type)
		assert.True(t, r.Discrepancies[1].ExpectedAmount.IsZero())
		assert.Equal(t, DueAmountMismatch, r.Discrepancies[2].Type)
		assert.True(t, r.NetBalance.Equal(dec("10")))
	})
}
