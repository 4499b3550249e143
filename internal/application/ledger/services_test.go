package ledger_test

import (
	"context"
	"testing"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/event"
	"github.com/erp/ledger/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// harness wires the ledger services to an in-memory SQLite database
type harness struct {
	t          *testing.T
	ctx        context.Context
	db         *gorm.DB
	posting    *appledger.PostingService
	settlement *appledger.SettlementService
	inventory  *appledger.InventoryService
	trial      *appledger.TrialBalanceService
	categories map[string]*ledger.Category
	contactID  uuid.UUID
	userID     uuid.UUID
	bank       *ledger.BankAccount
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := persistence.Open(sqlite.Open("file::memory:"), nil)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, (&persistence.Database{DB: db}).AutoMigrate())
	return newHarnessOn(t, db)
}

// newHarnessOn wires the services to an already migrated database
func newHarnessOn(t *testing.T, db *gorm.DB, opts ...appledger.ServiceOption) *harness {
	t.Helper()
	publisher := event.NewOutboxPublisher(event.NewLedgerSerializer(), 3)
	scope := persistence.NewGormTransactionScope(db, publisher)
	opts = append(opts, appledger.WithClock(func() time.Time {
		return time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	}))
	stock := appledger.NewInventoryService(scope, opts...)

	h := &harness{
		t:          t,
		ctx:        context.Background(),
		db:         db,
		posting:    appledger.NewPostingService(scope, stock, opts...),
		settlement: appledger.NewSettlementService(scope, opts...),
		inventory:  stock,
		trial:      appledger.NewTrialBalanceService(scope, dec("0.01"), opts...),
		categories: make(map[string]*ledger.Category),
		contactID:  uuid.New(),
		userID:     uuid.New(),
	}
	h.seed()
	return h
}

func (h *harness) seed() {
	codes := []string{"ACCOUNTS_RECEIVABLE", "ACCOUNTS_PAYABLE", "SALES_REVENUE", "OFFICE_EXPENSE", "BANK_OPERATING"}
	for _, c := range ledger.AllCategoryCodes() {
		codes = append(codes, string(c))
	}
	dir := persistence.NewGormCategoryDirectory(h.db)
	for _, code := range codes {
		c, err := ledger.NewCategory(code, code)
		require.NoError(h.t, err)
		require.NoError(h.t, dir.Upsert(h.ctx, c))
		h.categories[code] = c
	}

	contacts := persistence.NewGormContactCategoryRepository(h.db)
	require.NoError(h.t, contacts.Save(h.ctx, &ledger.ContactCategory{
		ContactID: h.contactID, Role: ledger.RoleCustomer, CategoryID: h.categories["ACCOUNTS_RECEIVABLE"].ID,
	}))
	require.NoError(h.t, contacts.Save(h.ctx, &ledger.ContactCategory{
		ContactID: h.contactID, Role: ledger.RoleVendor, CategoryID: h.categories["ACCOUNTS_PAYABLE"].ID,
	}))

	bank, err := ledger.NewBankAccount("Operating", h.categories["BANK_OPERATING"].ID, "USD", dec("1000"))
	require.NoError(h.t, err)
	require.NoError(h.t, persistence.NewGormBankAccountRepository(h.db).Save(h.ctx, bank))
	h.bank = bank
}

func (h *harness) category(code string) uuid.UUID {
	return h.categories[code].ID
}

// document saves a PENDING document with a single line of amount
func (h *harness) document(kind ledger.DocumentKind, number, amount, vat string, lineCategory string) *ledger.Document {
	h.t.Helper()
	doc, err := ledger.NewDocument(kind, number, h.contactID, "USD", decimal.NewFromInt(1))
	require.NoError(h.t, err)
	doc.AddLine(ledger.DocumentLine{
		Description: number,
		Quantity:    1,
		UnitPrice:   dec(amount),
		CategoryID:  h.category(lineCategory),
		VATAmount:   dec(vat),
	})
	doc.TotalVATAmount = dec(vat)
	doc.TotalAmount = dec(amount).Add(dec(vat))
	if doc.TotalVATAmount.IsPositive() {
		vatID := h.category(string(ledger.CodeOutputVAT))
		doc.VATCategoryID = &vatID
	}
	return doc
}

// product saves an inventory-enabled product
func (h *harness) product(name string) *ledger.Product {
	h.t.Helper()
	p := &ledger.Product{ID: uuid.New(), Name: name, InventoryEnabled: true}
	require.NoError(h.t, persistence.NewGormProductRepository(h.db).Save(h.ctx, p))
	return p
}

func (h *harness) lot(productID uuid.UUID) *inventory.Lot {
	h.t.Helper()
	lot, err := persistence.NewGormLotRepository(h.db).FindByProductAndSupplier(h.ctx, productID, h.contactID)
	require.NoError(h.t, err)
	return lot
}

func (h *harness) save(doc *ledger.Document) {
	h.t.Helper()
	require.NoError(h.t, persistence.NewGormDocumentRepository(h.db).Save(h.ctx, doc))
}

func (h *harness) reload(id uuid.UUID) *ledger.Document {
	h.t.Helper()
	doc, err := persistence.NewGormDocumentRepository(h.db).FindByID(h.ctx, id)
	require.NoError(h.t, err)
	return doc
}

func (h *harness) journals(refType ledger.ReferenceType, id uuid.UUID) []*ledger.Journal {
	h.t.Helper()
	js, err := persistence.NewGormJournalRepository(h.db).FindByReference(h.ctx, refType, id)
	require.NoError(h.t, err)
	return js
}

func (h *harness) bankBalance() decimal.Decimal {
	h.t.Helper()
	bank, err := persistence.NewGormBankAccountRepository(h.db).FindByID(h.ctx, h.bank.ID)
	require.NoError(h.t, err)
	return bank.CurrentBalance
}

func (h *harness) pendingOutbox() int64 {
	h.t.Helper()
	counts, err := event.NewGormOutboxRepository(h.db).CountByStatus(h.ctx)
	require.NoError(h.t, err)
	return counts[shared.OutboxStatusPending]
}

// amounts returns the signed amount per category code, debit positive
func amounts(j *ledger.Journal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, l := range j.Lines {
		out[l.CategoryCode] = out[l.CategoryCode].Add(l.DebitAmount).Sub(l.CreditAmount)
	}
	return out
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestPostingService_CreditNoteWithVAT(t *testing.T) {
	h := newHarness(t)
	doc := h.document(ledger.KindCreditNote, "CN-001", "1000", "50", "SALES_REVENUE")
	h.save(doc)

	result, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	assert.False(t, result.Settled)
	assert.NotEmpty(t, result.JournalNumber)

	journals := h.journals(ledger.RefCreditNote, doc.ID)
	require.Len(t, journals, 1)
	j := journals[0]
	require.Len(t, j.Lines, 3)
	assert.Equal(t, "ACCOUNTS_RECEIVABLE", j.Lines[0].CategoryCode, "contra line comes first")
	got := amounts(j)
	assertAmount(t, "-1050", got["ACCOUNTS_RECEIVABLE"])
	assertAmount(t, "1000", got["SALES_REVENUE"])
	assertAmount(t, "50", got["OUTPUT_VAT"])

	posted := h.reload(doc.ID)
	assert.Equal(t, ledger.StatusOpen, posted.Status)
	assertAmount(t, "1050", posted.DueAmount)
	assert.Equal(t, int64(1), h.pendingOutbox())
}

func TestPostingService_RejectsRepost(t *testing.T) {
	h := newHarness(t)
	doc := h.document(ledger.KindCreditNote, "CN-002", "100", "0", "SALES_REVENUE")
	h.save(doc)

	_, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)

	_, err = h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrDocumentNotPending)
	assert.Equal(t, shared.KindStateConflict, ledger.ErrorKind(err))
	assert.Len(t, h.journals(ledger.RefCreditNote, doc.ID), 1, "a rejected post writes nothing")
}

func TestPostingService_MissingDocument(t *testing.T) {
	h := newHarness(t)
	_, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: uuid.New(), UserID: h.userID})
	assert.ErrorIs(t, err, ledger.ErrDocumentNotFound)
	assert.Equal(t, shared.KindMissingReference, ledger.ErrorKind(err))
}

func TestPostingService_InvalidCommand(t *testing.T) {
	h := newHarness(t)
	_, err := h.posting.Post(h.ctx, appledger.PostCommand{})
	assert.Equal(t, shared.KindInvalidInput, ledger.ErrorKind(err))
}

func TestPostingService_ReverseChargeDebitNote(t *testing.T) {
	h := newHarness(t)
	doc := h.document(ledger.KindDebitNote, "DN-001", "200", "20", "OFFICE_EXPENSE")
	doc.ReverseCharge = true
	// the supplier does not charge the VAT it self-assesses
	doc.TotalAmount = dec("200")
	h.save(doc)

	_, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)

	journals := h.journals(ledger.RefDebitNote, doc.ID)
	require.Len(t, journals, 1)
	got := amounts(journals[0])
	assertAmount(t, "200", got["ACCOUNTS_PAYABLE"])
	assertAmount(t, "-200", got["OFFICE_EXPENSE"])
	assertAmount(t, "-20", got["INPUT_VAT"])
	assertAmount(t, "20", got["OUTPUT_VAT"])
}

func TestPostingService_ReverseIsSymmetric(t *testing.T) {
	h := newHarness(t)
	doc := h.document(ledger.KindCreditNote, "CN-003", "1000", "50", "SALES_REVENUE")
	h.save(doc)

	_, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)

	result, err := h.posting.Reverse(h.ctx, appledger.ReverseCommand{
		ReferenceType: "CREDIT_NOTE",
		ReferenceID:   doc.ID,
		UserID:        h.userID,
	})
	require.NoError(t, err)
	assert.True(t, result.DocumentReset)
	require.Len(t, result.ReversalIDs, 1)

	originals := h.journals(ledger.RefCreditNote, doc.ID)
	reversals := h.journals(ledger.RefReverseCreditNote, doc.ID)
	require.Len(t, originals, 1)
	require.Len(t, reversals, 1)
	assert.True(t, originals[0].Reversed)

	orig, rev := amounts(originals[0]), amounts(reversals[0])
	require.Len(t, rev, len(orig))
	for code, amount := range orig {
		assert.True(t, amount.Add(rev[code]).IsZero(), "category %s does not net to zero", code)
	}

	reset := h.reload(doc.ID)
	assert.Equal(t, ledger.StatusPending, reset.Status)
	assert.True(t, reset.DueAmount.IsZero())

	// the reset document can be posted again and reversed a second time
	_, err = h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)

	_, err = h.posting.Reverse(h.ctx, appledger.ReverseCommand{ReferenceType: "CREDIT_NOTE", ReferenceID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	_, err = h.posting.Reverse(h.ctx, appledger.ReverseCommand{ReferenceType: "CREDIT_NOTE", ReferenceID: doc.ID, UserID: h.userID})
	assert.ErrorIs(t, err, ledger.ErrJournalNotFound)
}

func TestSettlementService_PartialThenClose(t *testing.T) {
	h := newHarness(t)
	doc := h.document(ledger.KindCreditNote, "CN-004", "1000", "50", "SALES_REVENUE")
	h.save(doc)
	_, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)

	settle := func(amount string) (*appledger.SettleResult, error) {
		return h.settlement.Settle(h.ctx, appledger.SettleCommand{
			DocumentID:        doc.ID,
			Amount:            dec(amount),
			DepositCategoryID: h.category("BANK_OPERATING"),
			UserID:            h.userID,
		})
	}

	result, err := settle("400")
	require.NoError(t, err)
	assert.Equal(t, string(ledger.StatusPartiallyPaid), result.StatusAfter)
	assertAmount(t, "650", result.DueAfter)
	assertAmount(t, "600", h.bankBalance()) // refunds take money out of the bank

	_, err = settle("700")
	assert.ErrorIs(t, err, ledger.ErrSettlementExceedsDue)
	assertAmount(t, "600", h.bankBalance())

	_, err = settle("0")
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	result, err = settle("650")
	require.NoError(t, err)
	assert.Equal(t, string(ledger.StatusClosed), result.StatusAfter)
	assert.True(t, result.DueAfter.IsZero())

	refunds := h.journals(ledger.RefRefund, doc.ID)
	require.Len(t, refunds, 2)
	first := amounts(refunds[0])
	assertAmount(t, "400", first["ACCOUNTS_RECEIVABLE"])
	assertAmount(t, "-400", first["BANK_OPERATING"])

	_, err = settle("1")
	assert.ErrorIs(t, err, ledger.ErrDocumentClosed)

	_, err = h.posting.Reverse(h.ctx, appledger.ReverseCommand{ReferenceType: "CREDIT_NOTE", ReferenceID: doc.ID, UserID: h.userID})
	assert.ErrorIs(t, err, ledger.ErrHasSettlements)
}

func TestSettlementService_RequiresPostedDocument(t *testing.T) {
	h := newHarness(t)
	doc := h.document(ledger.KindCreditNote, "CN-005", "100", "0", "SALES_REVENUE")
	h.save(doc)

	_, err := h.settlement.Settle(h.ctx, appledger.SettleCommand{
		DocumentID:        doc.ID,
		Amount:            dec("10"),
		DepositCategoryID: h.category("BANK_OPERATING"),
		UserID:            h.userID,
	})
	assert.ErrorIs(t, err, ledger.ErrDocumentNotPosted)
}

func TestPostingService_ExpensePaidByBank(t *testing.T) {
	h := newHarness(t)
	doc := h.document(ledger.KindExpense, "EX-001", "300", "0", "OFFICE_EXPENSE")
	doc.PayMode = ledger.PayModeBank
	doc.BankAccountID = &h.bank.ID
	h.save(doc)

	result, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	assert.True(t, result.Settled)

	journals := h.journals(ledger.RefExpense, doc.ID)
	require.Len(t, journals, 1)
	got := amounts(journals[0])
	assertAmount(t, "-300", got["BANK_OPERATING"])
	assertAmount(t, "300", got["OFFICE_EXPENSE"])

	closed := h.reload(doc.ID)
	assert.Equal(t, ledger.StatusClosed, closed.Status)
	assertAmount(t, "700", h.bankBalance())
	assert.Equal(t, int64(2), h.pendingOutbox(), "posted and settled events")

	reversed, err := h.posting.Reverse(h.ctx, appledger.ReverseCommand{ReferenceType: "EXPENSE", ReferenceID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	assert.True(t, reversed.RestoredBankFund)
	assert.True(t, reversed.DocumentReset)
	assertAmount(t, "1000", h.bankBalance())
	assert.Equal(t, ledger.StatusPending, h.reload(doc.ID).Status)
}

func TestPostingService_ExpenseOnCredit(t *testing.T) {
	h := newHarness(t)
	doc := h.document(ledger.KindExpense, "EX-002", "80", "0", "OFFICE_EXPENSE")
	h.save(doc)

	result, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	assert.False(t, result.Settled)

	got := amounts(h.journals(ledger.RefExpense, doc.ID)[0])
	assertAmount(t, "-80", got["ACCOUNTS_PAYABLE"])
	assert.Equal(t, ledger.StatusOpen, h.reload(doc.ID).Status)
	assertAmount(t, "1000", h.bankBalance())
}

func TestTrialBalanceService(t *testing.T) {
	h := newHarness(t)
	cn := h.document(ledger.KindCreditNote, "CN-006", "1000", "50", "SALES_REVENUE")
	dn := h.document(ledger.KindDebitNote, "DN-002", "200", "0", "OFFICE_EXPENSE")
	h.save(cn)
	h.save(dn)
	for _, id := range []uuid.UUID{cn.ID, dn.ID} {
		_, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: id, UserID: h.userID})
		require.NoError(t, err)
	}
	_, err := h.settlement.Settle(h.ctx, appledger.SettleCommand{
		DocumentID:        cn.ID,
		Amount:            dec("50"),
		DepositCategoryID: h.category("BANK_OPERATING"),
		UserID:            h.userID,
	})
	require.NoError(t, err)

	result, err := h.trial.Execute(h.ctx, appledger.TrialBalanceQuery{})
	require.NoError(t, err)
	assert.True(t, result.IsBalanced())
	assert.Equal(t, 0, result.CriticalCount)
	assert.False(t, result.CheckedAt.IsZero())

	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 1, 0)
	_, err = h.trial.Execute(h.ctx, appledger.TrialBalanceQuery{From: &from, To: &to})
	assert.Equal(t, shared.KindInvalidInput, ledger.ErrorKind(err))
}

func TestInventoryService_ExpenseReceiptThenReverse(t *testing.T) {
	h := newHarness(t)
	widget := h.product("widget")
	doc := h.document(ledger.KindExpense, "EX-010", "20", "0", "OFFICE_EXPENSE")
	doc.Lines[0].ProductID = &widget.ID
	doc.Lines[0].Quantity = 5
	doc.Lines[0].UnitPrice = dec("4")
	h.save(doc)

	result, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	assert.Empty(t, result.Shortfalls)

	got := amounts(h.journals(ledger.RefExpense, doc.ID)[0])
	assertAmount(t, "20", got[string(ledger.CodeInventoryAsset)])
	assertAmount(t, "-20", got["ACCOUNTS_PAYABLE"])

	lot := h.lot(widget.ID)
	require.NotNil(t, lot)
	assert.Equal(t, 5, lot.StockOnHand)
	assert.Equal(t, 5, lot.PurchaseQuantity)
	assertAmount(t, "4", lot.UnitCost)

	assert.True(t, h.reload(doc.ID).StockMoved)

	outcome, err := h.inventory.ReverseMovement(h.ctx, appledger.ReverseInventoryCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	assert.True(t, outcome.Participated)
	assert.Empty(t, outcome.Shortfalls)
	assert.Equal(t, 0, h.lot(widget.ID).StockOnHand)
	assert.False(t, h.reload(doc.ID).StockMoved)

	_, err = h.inventory.ReverseMovement(h.ctx, appledger.ReverseInventoryCommand{DocumentID: doc.ID, UserID: h.userID})
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNoStockMovement)
	assert.Equal(t, shared.KindStateConflict, ledger.ErrorKind(err))
	assert.Equal(t, 0, h.lot(widget.ID).StockOnHand)
	assert.Equal(t, 5, h.lot(widget.ID).PurchaseQuantity)
}

// Stock taken off by a second reversal would belong to other documents.
func TestInventoryService_ReverseRepeatedKeepsOtherStock(t *testing.T) {
	h := newHarness(t)
	widget := h.product("widget")
	for _, number := range []string{"EX-011", "EX-012"} {
		doc := h.document(ledger.KindExpense, number, "20", "0", "OFFICE_EXPENSE")
		doc.Lines[0].ProductID = &widget.ID
		doc.Lines[0].Quantity = 5
		doc.Lines[0].UnitPrice = dec("4")
		h.save(doc)
		_, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
		require.NoError(t, err)
	}
	assert.Equal(t, 10, h.lot(widget.ID).StockOnHand)

	first, err := persistence.NewGormDocumentRepository(h.db).FindByNumber(h.ctx, ledger.KindExpense, "EX-011")
	require.NoError(t, err)
	cmd := appledger.ReverseInventoryCommand{DocumentID: first.ID, UserID: h.userID}
	_, err = h.inventory.ReverseMovement(h.ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, 5, h.lot(widget.ID).StockOnHand)

	for i := 0; i < 2; i++ {
		_, err = h.inventory.ReverseMovement(h.ctx, cmd)
		assert.ErrorIs(t, err, ledger.ErrNoStockMovement)
	}
	assert.Equal(t, 5, h.lot(widget.ID).StockOnHand, "EX-012's receipt is untouched")
}

func TestInventoryService_ReverseUnpostedDocument(t *testing.T) {
	h := newHarness(t)
	widget := h.product("widget")
	receipt := h.document(ledger.KindExpense, "EX-013", "40", "0", "OFFICE_EXPENSE")
	receipt.Lines[0].ProductID = &widget.ID
	receipt.Lines[0].Quantity = 10
	receipt.Lines[0].UnitPrice = dec("4")
	h.save(receipt)
	_, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: receipt.ID, UserID: h.userID})
	require.NoError(t, err)

	pending := h.document(ledger.KindCreditNote, "CN-014", "30", "0", "SALES_REVENUE")
	pending.Lines[0].ProductID = &widget.ID
	pending.Lines[0].Quantity = 3
	pending.Lines[0].UnitPrice = dec("10")
	h.save(pending)

	for i := 0; i < 3; i++ {
		_, err = h.inventory.ReverseMovement(h.ctx, appledger.ReverseInventoryCommand{DocumentID: pending.ID, UserID: h.userID})
		require.Error(t, err)
		assert.ErrorIs(t, err, ledger.ErrNoStockMovement)
		assert.Equal(t, shared.KindStateConflict, ledger.ErrorKind(err))
	}
	lot := h.lot(widget.ID)
	assert.Equal(t, 10, lot.StockOnHand)
	assert.Equal(t, 0, lot.QuantitySold)
	assert.Equal(t, ledger.StatusPending, h.reload(pending.ID).Status)
}

func TestPostingService_RepostRequiresInventoryReversal(t *testing.T) {
	h := newHarness(t)
	widget := h.product("widget")
	doc := h.document(ledger.KindExpense, "EX-015", "20", "0", "OFFICE_EXPENSE")
	doc.Lines[0].ProductID = &widget.ID
	doc.Lines[0].Quantity = 5
	doc.Lines[0].UnitPrice = dec("4")
	h.save(doc)

	post := appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID}
	_, err := h.posting.Post(h.ctx, post)
	require.NoError(t, err)
	_, err = h.posting.Reverse(h.ctx, appledger.ReverseCommand{ReferenceType: "EXPENSE", ReferenceID: doc.ID, UserID: h.userID})
	require.NoError(t, err)

	_, err = h.posting.Post(h.ctx, post)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrStockNotReversed)
	assert.Equal(t, shared.KindStateConflict, ledger.ErrorKind(err))
	assert.Equal(t, 5, h.lot(widget.ID).StockOnHand, "a rejected post moves no stock")

	_, err = h.inventory.ReverseMovement(h.ctx, appledger.ReverseInventoryCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	_, err = h.posting.Post(h.ctx, post)
	require.NoError(t, err)
	assert.Equal(t, 5, h.lot(widget.ID).StockOnHand)
	assert.True(t, h.reload(doc.ID).StockMoved)
}

func TestInventoryService_DebitNoteWithoutStock(t *testing.T) {
	h := newHarness(t)
	widget := h.product("widget")
	doc := h.document(ledger.KindDebitNote, "DN-010", "30", "0", "OFFICE_EXPENSE")
	doc.Lines[0].ProductID = &widget.ID
	doc.Lines[0].Quantity = 3
	doc.Lines[0].UnitPrice = dec("10")
	h.save(doc)

	result, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	require.Len(t, result.Shortfalls, 1)
	assert.Equal(t, inventory.MovementDebitNote, result.Shortfalls[0].Movement)
	assert.Equal(t, 3, result.Shortfalls[0].Missing)

	lot := h.lot(widget.ID)
	require.NotNil(t, lot, "lot is created for the supplier")
	assert.Equal(t, 0, lot.StockOnHand)
	assert.Equal(t, ledger.StatusOpen, h.reload(doc.ID).Status)
}

func TestInventoryService_ReverseMissingDocument(t *testing.T) {
	h := newHarness(t)
	_, err := h.inventory.ReverseMovement(h.ctx, appledger.ReverseInventoryCommand{DocumentID: uuid.New(), UserID: h.userID})
	assert.Equal(t, shared.KindMissingReference, ledger.ErrorKind(err))
}

func TestInventoryService_SaleReturnRestoresInvoicedLot(t *testing.T) {
	h := newHarness(t)
	widget := h.product("widget")
	invoiceID := uuid.New()

	lot, err := inventory.NewLot(widget.ID, h.contactID, 4, dec("3"))
	require.NoError(t, err)
	lot.PurchaseQuantity = 4
	lot.QuantitySold = 4
	require.NoError(t, persistence.NewGormLotRepository(h.db).Create(h.ctx, lot))
	sold := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, persistence.NewGormHistoryRepository(h.db).Create(h.ctx, &inventory.HistoryEntry{
		ID:              uuid.New(),
		LotID:           lot.ID,
		ProductID:       widget.ID,
		SupplierID:      h.contactID,
		InvoiceID:       &invoiceID,
		DocumentID:      invoiceID,
		ReferenceType:   inventory.MovementInvoice,
		Quantity:        -4,
		UnitCost:        dec("3"),
		TransactionDate: sold,
		CreatedAt:       sold,
	}))

	doc := h.document(ledger.KindCreditNote, "CN-020", "30", "0", "SALES_REVENUE")
	doc.OriginInvoiceID = &invoiceID
	doc.Lines[0].ProductID = &widget.ID
	doc.Lines[0].Quantity = 3
	doc.Lines[0].UnitPrice = dec("10")
	h.save(doc)

	result, err := h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	assert.Empty(t, result.Shortfalls)

	got := amounts(h.journals(ledger.RefCreditNote, doc.ID)[0])
	assertAmount(t, "9", got[string(ledger.CodeInventoryAsset)])
	assertAmount(t, "-9", got[string(ledger.CodeCostOfGoodsSold)])
	assertAmount(t, "-30", got["ACCOUNTS_RECEIVABLE"])

	restored := h.lot(widget.ID)
	assert.Equal(t, 3, restored.StockOnHand)
	assert.Equal(t, 1, restored.QuantitySold)

	_, err = h.inventory.ReverseMovement(h.ctx, appledger.ReverseInventoryCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)
	consumed := h.lot(widget.ID)
	assert.Equal(t, 0, consumed.StockOnHand)
	assert.Equal(t, 4, consumed.QuantitySold)
}

func TestInventoryService_SaleReturnDeletesSingleUseLot(t *testing.T) {
	h := newHarness(t)
	widget := h.product("widget")
	invoiceID := uuid.New()

	lot, err := inventory.NewLot(widget.ID, h.contactID, 0, dec("2"))
	require.NoError(t, err)
	lot.QuantitySold = 4
	require.NoError(t, persistence.NewGormLotRepository(h.db).Create(h.ctx, lot))
	sold := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, persistence.NewGormHistoryRepository(h.db).Create(h.ctx, &inventory.HistoryEntry{
		ID:              uuid.New(),
		LotID:           lot.ID,
		ProductID:       widget.ID,
		SupplierID:      h.contactID,
		InvoiceID:       &invoiceID,
		DocumentID:      invoiceID,
		ReferenceType:   inventory.MovementInvoice,
		Quantity:        -4,
		UnitCost:        dec("2"),
		TransactionDate: sold,
		CreatedAt:       sold,
	}))

	doc := h.document(ledger.KindCreditNote, "CN-021", "40", "0", "SALES_REVENUE")
	doc.OriginInvoiceID = &invoiceID
	doc.Lines[0].ProductID = &widget.ID
	doc.Lines[0].Quantity = 4
	doc.Lines[0].UnitPrice = dec("10")
	h.save(doc)

	_, err = h.posting.Post(h.ctx, appledger.PostCommand{DocumentID: doc.ID, UserID: h.userID})
	require.NoError(t, err)

	assert.Nil(t, h.lot(widget.ID), "the lot's only consumption was returned")
	got := amounts(h.journals(ledger.RefCreditNote, doc.ID)[0])
	assertAmount(t, "8", got[string(ledger.CodeInventoryAsset)])
}
