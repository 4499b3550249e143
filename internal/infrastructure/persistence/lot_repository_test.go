package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormLotRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormLotRepository(db)
	ctx := context.Background()

	productID, supplierID := uuid.New(), uuid.New()

	missing, err := repo.FindByProductAndSupplier(ctx, productID, supplierID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	lot, err := inventory.NewLot(productID, supplierID, 40, dec("12.5"))
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, lot))

	lot.StockOnHand = 40
	lot.PurchaseQuantity = 40
	lot.IncrementVersion()
	require.NoError(t, repo.SaveWithLock(ctx, lot))

	found, err := repo.FindByProductAndSupplier(ctx, productID, supplierID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 40, found.StockOnHand)
	assert.Equal(t, 4, found.ReorderLevel)
	assert.True(t, dec("12.5").Equal(found.UnitCost))

	found.IncrementVersion()
	require.NoError(t, repo.SaveWithLock(ctx, found))
	assert.ErrorIs(t, repo.SaveWithLock(ctx, lot), shared.ErrConcurrencyConflict)

	byProduct, err := repo.FindByProduct(ctx, productID)
	require.NoError(t, err)
	assert.Len(t, byProduct, 1)

	require.NoError(t, repo.Delete(ctx, []uuid.UUID{lot.ID}))
	byIDs, err := repo.FindByIDs(ctx, []uuid.UUID{lot.ID})
	require.NoError(t, err)
	assert.Empty(t, byIDs)
}

func TestGormHistoryRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormHistoryRepository(db)
	ctx := context.Background()

	lot, err := inventory.NewLot(uuid.New(), uuid.New(), 10, dec("3"))
	require.NoError(t, err)

	invoiceID, documentID := uuid.New(), uuid.New()
	early := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 1, 0)

	sale := inventory.NewHistoryEntry(lot, inventory.Movement{
		DocumentID: invoiceID,
		InvoiceID:  &invoiceID,
		Quantity:   4,
		UnitPrice:  dec("9"),
		Date:       early,
	}, inventory.MovementInvoice, -4)
	ret := inventory.NewHistoryEntry(lot, inventory.Movement{
		DocumentID: documentID,
		InvoiceID:  &invoiceID,
		Quantity:   1,
		UnitPrice:  dec("9"),
		Date:       late,
	}, inventory.MovementCreditNote, 1)
	require.NoError(t, repo.Create(ctx, ret, sale))

	rows, err := repo.FindByInvoiceAndProduct(ctx, invoiceID, lot.ProductID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, inventory.MovementInvoice, rows[0].ReferenceType, "oldest first")

	byDoc, err := repo.FindByDocument(ctx, documentID)
	require.NoError(t, err)
	require.Len(t, byDoc, 1)
	assert.True(t, dec("9").Equal(byDoc[0].UnitSellingPrice))

	counts, err := repo.CountByLot(ctx, []uuid.UUID{lot.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[lot.ID])

	first, err := repo.FirstTransactionByLot(ctx, []uuid.UUID{lot.ID})
	require.NoError(t, err)
	assert.True(t, first[lot.ID].Equal(early))

	byDoc[0].Quantity = 2
	require.NoError(t, repo.Update(ctx, byDoc[0]))
	require.NoError(t, repo.Delete(ctx, []uuid.UUID{sale.ID}))

	counts, err = repo.CountByLot(ctx, []uuid.UUID{lot.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[lot.ID])
}
