package inventory

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestLot(t *testing.T, productID uuid.UUID, stock, purchased, sold int, cost string) *Lot {
	t.Helper()
	lot, err := NewLot(productID, uuid.New(), purchased, dec(cost))
	require.NoError(t, err)
	lot.StockOnHand = stock
	lot.PurchaseQuantity = purchased
	lot.QuantitySold = sold
	return lot
}

func saleRow(lot *Lot, invoiceID uuid.UUID, qty int, cost string, at time.Time) *HistoryEntry {
	return &HistoryEntry{
		ID:              uuid.New(),
		LotID:           lot.ID,
		ProductID:       lot.ProductID,
		InvoiceID:       &invoiceID,
		ReferenceType:   MovementInvoice,
		Quantity:        -qty,
		UnitCost:        dec(cost),
		TransactionDate: at,
		CreatedAt:       at,
	}
}

func TestNewLot(t *testing.T) {
	lot, err := NewLot(uuid.New(), uuid.New(), 25, dec("4.5"))
	require.NoError(t, err)
	assert.Equal(t, 2, lot.ReorderLevel)
	assert.True(t, lot.UnitCost.Equal(dec("4.5")))
	assert.True(t, lot.holdsOnly(0), "a new lot starts with zero counters")

	_, err = NewLot(uuid.Nil, uuid.New(), 1, dec("1"))
	assert.Error(t, err)
}

func TestPlanSaleReturn(t *testing.T) {
	productID := uuid.New()
	invoiceID := uuid.New()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("restores stock oldest row first and prices at row cost", func(t *testing.T) {
		older := newTestLot(t, productID, 10, 20, 10, "3")
		newer := newTestLot(t, productID, 0, 5, 5, "4")
		rows := []*HistoryEntry{
			saleRow(newer, invoiceID, 5, "4", t0.Add(time.Hour)),
			saleRow(older, invoiceID, 4, "3", t0),
		}
		lots := map[uuid.UUID]*Lot{older.ID: older, newer.ID: newer}
		counts := map[uuid.UUID]int{older.ID: 3, newer.ID: 2}

		plan := PlanSaleReturn(Movement{ProductID: productID, Quantity: 6}, rows, lots, counts)

		assert.Equal(t, 14, older.StockOnHand)
		assert.Equal(t, 6, older.QuantitySold)
		assert.Equal(t, 2, newer.StockOnHand)
		assert.Equal(t, 3, newer.QuantitySold)
		assert.True(t, plan.RestoredCost.Equal(dec("20")), "4*3 + 2*4")
		assert.Nil(t, plan.Shortfall)

		assert.Equal(t, []uuid.UUID{rows[1].ID}, plan.DeletedHistory)
		require.Len(t, plan.UpdatedHistory, 1)
		assert.Equal(t, -3, plan.UpdatedHistory[0].Quantity)
		assert.Len(t, plan.Updated, 2)
		assert.Empty(t, plan.DeletedLots)
		assert.Equal(t, 2, older.Version)
	})

	t.Run("conserves quantity", func(t *testing.T) {
		lot := newTestLot(t, productID, 7, 10, 3, "2")
		rows := []*HistoryEntry{saleRow(lot, invoiceID, 3, "2", t0)}
		before := lot.StockOnHand
		soldBefore := lot.QuantitySold

		plan := PlanSaleReturn(Movement{ProductID: productID, Quantity: 3}, rows, map[uuid.UUID]*Lot{lot.ID: lot}, map[uuid.UUID]int{lot.ID: 2})

		assert.Equal(t, before+3, lot.StockOnHand)
		assert.Equal(t, soldBefore-3, lot.QuantitySold)
		assert.Nil(t, plan.Shortfall)
	})

	t.Run("average purchase cost overrides row cost", func(t *testing.T) {
		lot := newTestLot(t, productID, 0, 2, 2, "9")
		rows := []*HistoryEntry{saleRow(lot, invoiceID, 2, "9", t0)}
		avg := dec("5.5")

		plan := PlanSaleReturn(Movement{ProductID: productID, Quantity: 2, AvgPurchaseCost: &avg}, rows, map[uuid.UUID]*Lot{lot.ID: lot}, map[uuid.UUID]int{lot.ID: 2})
		assert.True(t, plan.RestoredCost.Equal(dec("11")))
	})

	t.Run("single-consumption lot is deleted once its stock is returned", func(t *testing.T) {
		lot := newTestLot(t, productID, 0, 0, 4, "2")
		rows := []*HistoryEntry{saleRow(lot, invoiceID, 4, "2", t0)}

		plan := PlanSaleReturn(Movement{ProductID: productID, Quantity: 4}, rows, map[uuid.UUID]*Lot{lot.ID: lot}, map[uuid.UUID]int{lot.ID: 1})

		assert.Equal(t, []uuid.UUID{lot.ID}, plan.DeletedLots)
		assert.Equal(t, []uuid.UUID{rows[0].ID}, plan.DeletedHistory)
		assert.Empty(t, plan.Updated, "a deleted lot is not also saved")
		assert.True(t, plan.RestoredCost.Equal(dec("8")))
		assert.Nil(t, plan.Shortfall)
		assert.True(t, plan.HasChanges())
	})

	t.Run("lot keeps other content after a single-consumption return", func(t *testing.T) {
		tests := []struct {
			name                   string
			stock, purchased, sold int
			returned               int
		}{
			{"purchase on record", 0, 4, 4, 4},
			{"stock left on hand", 1, 0, 4, 4},
			{"partial return", 0, 0, 4, 3},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				lot := newTestLot(t, productID, tt.stock, tt.purchased, tt.sold, "2")
				rows := []*HistoryEntry{saleRow(lot, invoiceID, 4, "2", t0)}

				plan := PlanSaleReturn(Movement{ProductID: productID, Quantity: tt.returned}, rows, map[uuid.UUID]*Lot{lot.ID: lot}, map[uuid.UUID]int{lot.ID: 1})
				assert.Empty(t, plan.DeletedLots)
				require.Len(t, plan.Updated, 1)
				assert.Equal(t, tt.stock+tt.returned, lot.StockOnHand)
			})
		}
	})

	t.Run("lot with more history is kept", func(t *testing.T) {
		lot := newTestLot(t, productID, 0, 0, 4, "2")
		rows := []*HistoryEntry{saleRow(lot, invoiceID, 4, "2", t0)}

		plan := PlanSaleReturn(Movement{ProductID: productID, Quantity: 4}, rows, map[uuid.UUID]*Lot{lot.ID: lot}, map[uuid.UUID]int{lot.ID: 2})
		assert.Empty(t, plan.DeletedLots)
		assert.Equal(t, 4, lot.StockOnHand)
	})

	t.Run("unmatched quantity is reported as shortfall", func(t *testing.T) {
		lot := newTestLot(t, productID, 0, 2, 2, "1")
		rows := []*HistoryEntry{
			saleRow(lot, invoiceID, 2, "1", t0),
			{ID: uuid.New(), LotID: lot.ID, ProductID: uuid.New(), Quantity: -50, TransactionDate: t0},
		}

		plan := PlanSaleReturn(Movement{ProductID: productID, Quantity: 5}, rows, map[uuid.UUID]*Lot{lot.ID: lot}, map[uuid.UUID]int{lot.ID: 1})
		require.NotNil(t, plan.Shortfall)
		assert.Equal(t, 3, plan.Shortfall.Missing)
		assert.Equal(t, 2, plan.Shortfall.Applied)
		assert.Equal(t, 2, lot.StockOnHand)

		err := plan.Shortfall.Err()
		assert.True(t, errors.Is(err, ErrInventoryShortfall))
		assert.Equal(t, shared.KindInventoryShortfall, shared.KindOf(err))
	})
}

func TestPlanPurchaseReturn(t *testing.T) {
	productID := uuid.New()

	t.Run("decreases stock and purchase quantity", func(t *testing.T) {
		lot := newTestLot(t, productID, 10, 10, 0, "2")
		plan, err := PlanPurchaseReturn(Movement{ProductID: productID, Quantity: 4, Date: time.Now()}, lot, MovementDebitNote)
		require.NoError(t, err)

		assert.Equal(t, 6, lot.StockOnHand)
		assert.Equal(t, 6, lot.PurchaseQuantity)
		require.Len(t, plan.Appended, 1)
		assert.Equal(t, -4, plan.Appended[0].Quantity)
		assert.Equal(t, MovementDebitNote, plan.Appended[0].ReferenceType)
		assert.Nil(t, plan.Shortfall)
	})

	t.Run("caps at zero and reports shortfall", func(t *testing.T) {
		lot := newTestLot(t, productID, 3, 3, 0, "2")
		plan, err := PlanPurchaseReturn(Movement{ProductID: productID, Quantity: 5}, lot, MovementDebitNote)
		require.NoError(t, err)

		assert.Equal(t, 0, lot.StockOnHand)
		assert.Equal(t, 0, lot.PurchaseQuantity)
		require.NotNil(t, plan.Shortfall)
		assert.Equal(t, 2, plan.Shortfall.Missing)
	})

	t.Run("creates a missing lot", func(t *testing.T) {
		supplier := uuid.New()
		plan, err := PlanPurchaseReturn(Movement{ProductID: productID, SupplierID: supplier, Quantity: 30, UnitPrice: dec("7")}, nil, MovementDebitNote)
		require.NoError(t, err)

		require.Len(t, plan.Created, 1)
		lot := plan.Created[0]
		assert.Equal(t, supplier, lot.SupplierID)
		assert.Equal(t, 3, lot.ReorderLevel)
		assert.True(t, lot.UnitCost.Equal(dec("7")))
		assert.Empty(t, plan.Updated)
		require.NotNil(t, plan.Shortfall)
		assert.Equal(t, 30, plan.Shortfall.Missing)
	})
}

func TestPlanPurchaseReceipt(t *testing.T) {
	productID := uuid.New()

	t.Run("adds to an existing lot", func(t *testing.T) {
		lot := newTestLot(t, productID, 1, 1, 0, "2")
		plan, err := PlanPurchaseReceipt(Movement{ProductID: productID, Quantity: 9}, lot, MovementExpense)
		require.NoError(t, err)
		assert.Equal(t, 10, lot.StockOnHand)
		assert.Equal(t, 10, lot.PurchaseQuantity)
		assert.Equal(t, 9, plan.Appended[0].Quantity)
		assert.True(t, plan.HasChanges())
	})

	t.Run("creates a lot once and does not bump its version", func(t *testing.T) {
		plan, err := PlanPurchaseReceipt(Movement{ProductID: productID, Quantity: 12, UnitPrice: dec("3")}, nil, MovementExpense)
		require.NoError(t, err)
		require.Len(t, plan.Created, 1)
		assert.Empty(t, plan.Updated)
		assert.Equal(t, 12, plan.Created[0].StockOnHand)
		assert.Equal(t, 1, plan.Created[0].ReorderLevel)
		assert.Equal(t, 1, plan.Created[0].Version)
	})
}

func TestPlanReverseConsumption(t *testing.T) {
	productID := uuid.New()
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a := newTestLot(t, productID, 2, 2, 0, "1")
	b := newTestLot(t, productID, 5, 5, 0, "1")
	c := newTestLot(t, productID, 9, 9, 0, "1")
	firstSeen := map[uuid.UUID]time.Time{b.ID: t0, a.ID: t0.Add(time.Hour)}

	plan := PlanReverseConsumption(Movement{ProductID: productID, Quantity: 8}, []*Lot{c, a, b}, firstSeen)

	// b (oldest history), then a, then c (no history)
	assert.Equal(t, 0, b.StockOnHand)
	assert.Equal(t, 5, b.QuantitySold)
	assert.Equal(t, 0, a.StockOnHand)
	assert.Equal(t, 2, a.QuantitySold)
	assert.Equal(t, 8, c.StockOnHand)
	assert.Equal(t, 1, c.QuantitySold)
	require.Len(t, plan.Appended, 3)
	for _, h := range plan.Appended {
		assert.Equal(t, MovementReverseCreditNote, h.ReferenceType)
		assert.Negative(t, h.Quantity)
	}
	assert.Nil(t, plan.Shortfall)

	t.Run("never drives stock negative", func(t *testing.T) {
		lot := newTestLot(t, productID, 3, 3, 0, "1")
		plan := PlanReverseConsumption(Movement{ProductID: productID, Quantity: 10}, []*Lot{lot}, nil)
		assert.Equal(t, 0, lot.StockOnHand)
		require.NotNil(t, plan.Shortfall)
		assert.Equal(t, 7, plan.Shortfall.Missing)
	})
}
