package ledger_test

import (
	"context"
	"testing"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func TestCategoryService_Seed(t *testing.T) {
	h := newHarness(t)
	svc := appledger.NewCategoryService(persistence.NewGormTransactionScope(h.db, nil))

	result, err := svc.Seed(h.ctx, appledger.SeedCategoriesCommand{
		Categories: []appledger.CategorySeed{
			{Code: "sales_revenue", Name: "Sales"},
			{Code: "RENT_EXPENSE", Name: "Rent"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Upserted, 2)
	assert.Empty(t, result.MissingWellKnown)

	assert.Equal(t, "SALES_REVENUE", result.Upserted[0].Code)
	assert.Equal(t, h.category("SALES_REVENUE"), result.Upserted[0].ID)

	stored, err := persistence.NewGormCategoryDirectory(h.db).FindByIDs(h.ctx, []uuid.UUID{result.Upserted[0].ID, result.Upserted[1].ID})
	require.NoError(t, err)
	names := map[string]string{}
	for _, c := range stored {
		names[c.Code] = c.Name
	}
	assert.Equal(t, map[string]string{"SALES_REVENUE": "Sales", "RENT_EXPENSE": "Rent"}, names)
}

func TestCategoryService_SeedRejectsDuplicates(t *testing.T) {
	h := newHarness(t)
	svc := appledger.NewCategoryService(persistence.NewGormTransactionScope(h.db, nil))

	_, err := svc.Seed(h.ctx, appledger.SeedCategoriesCommand{
		Categories: []appledger.CategorySeed{
			{Code: "UTILITIES", Name: "Utilities"},
			{Code: "utilities", Name: "Again"},
		},
	})
	require.ErrorIs(t, err, ledger.ErrDuplicateCategory)
	assert.Equal(t, shared.KindInvalidInput, ledger.ErrorKind(err))

	found, err := persistence.NewGormCategoryDirectory(h.db).FindByCodes(h.ctx, []ledger.CategoryCode{"UTILITIES"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestCategoryService_SeedReportsMissingWellKnown(t *testing.T) {
	db, err := persistence.Open(sqlite.Open("file::memory:"), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, (&persistence.Database{DB: db}).AutoMigrate())

	svc := appledger.NewCategoryService(persistence.NewGormTransactionScope(db, nil))
	result, err := svc.Seed(context.Background(), appledger.SeedCategoriesCommand{
		Categories: []appledger.CategorySeed{{Code: string(ledger.CodeOutputVAT)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "OUTPUT_VAT", result.Upserted[0].Name)
	assert.Len(t, result.MissingWellKnown, len(ledger.AllCategoryCodes())-1)
	assert.NotContains(t, result.MissingWellKnown, ledger.CodeOutputVAT)
}

func TestCategoryService_SeedValidatesCommand(t *testing.T) {
	h := newHarness(t)
	svc := appledger.NewCategoryService(persistence.NewGormTransactionScope(h.db, nil))

	_, err := svc.Seed(h.ctx, appledger.SeedCategoriesCommand{})
	require.Error(t, err)
	assert.Equal(t, shared.KindInvalidInput, ledger.ErrorKind(err))

	_, err = svc.Seed(h.ctx, appledger.SeedCategoriesCommand{
		Categories: []appledger.CategorySeed{{Name: "no code"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code")
}
