package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShortfallReport describes stock a movement could not apply
type ShortfallReport struct {
	ProductID uuid.UUID
	Movement  inventory.MovementType
	Requested int
	Applied   int
	Missing   int
}

// MovementOutcome is the result of applying the stock movements of a document
type MovementOutcome struct {
	RestoredCost decimal.Decimal // Historical cost of stock put back by sale returns
	Participated bool            // At least one inventory-enabled line was processed
	Shortfalls   []ShortfallReport
}

// InventoryService applies the stock side effects of ledger documents
type InventoryService struct {
	scope TransactionScope
	serviceConfig
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(scope TransactionScope, opts ...ServiceOption) *InventoryService {
	return &InventoryService{
		scope:         scope,
		serviceConfig: newServiceConfig(opts),
	}
}

// ApplyPosting runs the movement of every inventory-enabled line of doc
// inside the caller's transaction. Lines without an inventory product are
// skipped.
func (s *InventoryService) ApplyPosting(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, products map[uuid.UUID]*ledger.Product) (*MovementOutcome, error) {
	return s.apply(ctx, repos, doc, products, false)
}

// ReverseMovement undoes the stock movement of a posted document in its own
// transaction. Sale returns are consumed again from the product's lots,
// purchase returns are put back and expense receipts are taken off. A
// document without an applied movement is rejected, so a movement is undone
// at most once per posting.
func (s *InventoryService) ReverseMovement(ctx context.Context, cmd ReverseInventoryCommand) (outcome *MovementOutcome, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "reverse_movement")
	defer span.End()
	ctx = s.actingAs(ctx, cmd.UserID)
	started := time.Now()
	defer func() { s.finish(ctx, span, "reverse_inventory", started, err) }()

	if err = validateCommand(cmd); err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentID, cmd.DocumentID.String())

	err = s.withDocumentLock(ctx, cmd.DocumentID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			doc, err := repos.Documents().FindByID(ctx, cmd.DocumentID)
			if err != nil {
				return err
			}
			if err := doc.ReleaseStock(); err != nil {
				return err
			}
			products, err := loadProducts(ctx, repos, doc)
			if err != nil {
				return err
			}
			if outcome, err = s.apply(ctx, repos, doc, products, true); err != nil {
				return err
			}
			return repos.Documents().SaveWithLock(ctx, doc)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reverse inventory of document %s: %w", cmd.DocumentID, err)
	}

	logger.L(ctx).Info("inventory movement reversed",
		zap.String("document_id", cmd.DocumentID.String()),
		zap.Int("shortfalls", len(outcome.Shortfalls)),
	)
	return outcome, nil
}

func (s *InventoryService) apply(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, products map[uuid.UUID]*ledger.Product, reverse bool) (*MovementOutcome, error) {
	outcome := &MovementOutcome{RestoredCost: decimal.Zero}
	for _, line := range doc.Lines {
		if line.ProductID == nil {
			continue
		}
		product, ok := products[*line.ProductID]
		if !ok {
			return nil, ledger.ErrProductNotFound.WithMessage(fmt.Sprintf("Product %s not found", *line.ProductID))
		}
		if !product.InventoryEnabled {
			continue
		}
		outcome.Participated = true

		m := inventory.Movement{
			ProductID:       product.ID,
			SupplierID:      doc.ContactID,
			DocumentID:      doc.ID,
			InvoiceID:       doc.OriginInvoiceID,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			AvgPurchaseCost: product.AvgPurchaseCost,
			Date:            doc.DocumentDate,
		}
		plan, movement, err := s.plan(ctx, repos, doc.Kind, m, reverse)
		if err != nil {
			return nil, err
		}
		if err := applyPlan(ctx, repos, plan); err != nil {
			return nil, err
		}
		for _, lot := range plan.Updated {
			if lot.IsBelowReorderLevel() {
				logger.L(ctx).Info("lot at reorder level",
					zap.String("product_id", lot.ProductID.String()),
					zap.String("supplier_id", lot.SupplierID.String()),
					zap.Int("stock_on_hand", lot.StockOnHand),
					zap.Int("reorder_level", lot.ReorderLevel),
				)
			}
		}
		outcome.RestoredCost = outcome.RestoredCost.Add(plan.RestoredCost)

		if plan.Shortfall != nil {
			report := ShortfallReport{
				ProductID: plan.Shortfall.ProductID,
				Movement:  movement,
				Requested: plan.Shortfall.Requested,
				Applied:   plan.Shortfall.Applied,
				Missing:   plan.Shortfall.Missing,
			}
			outcome.Shortfalls = append(outcome.Shortfalls, report)
			logger.L(ctx).Warn("inventory shortfall",
				zap.String("document_id", doc.ID.String()),
				zap.String("document_number", doc.Number),
				zap.String("product_id", report.ProductID.String()),
				zap.String("movement", string(movement)),
				zap.Int("requested", report.Requested),
				zap.Int("missing", report.Missing),
			)
			s.metrics.RecordShortfall(ctx, string(movement))
			event := inventory.NewStockShortfallEvent(*plan.Shortfall, doc.ID, movement)
			if err := repos.Events().SaveEvents(ctx, event); err != nil {
				return nil, err
			}
		}
	}
	return outcome, nil
}

// plan loads the lots and history a movement reads and returns its plan
func (s *InventoryService) plan(ctx context.Context, repos TransactionalRepositories, kind ledger.DocumentKind, m inventory.Movement, reverse bool) (*inventory.MovementPlan, inventory.MovementType, error) {
	switch {
	case kind == ledger.KindCreditNote && !reverse:
		plan, err := s.planSaleReturn(ctx, repos, m)
		return plan, inventory.MovementCreditNote, err

	case kind == ledger.KindCreditNote && reverse:
		lots, err := repos.Lots().FindByProduct(ctx, m.ProductID)
		if err != nil {
			return nil, "", err
		}
		firstSeen, err := repos.History().FirstTransactionByLot(ctx, lotIDs(lots))
		if err != nil {
			return nil, "", err
		}
		return inventory.PlanReverseConsumption(m, lots, firstSeen), inventory.MovementReverseCreditNote, nil
	}

	lot, err := repos.Lots().FindByProductAndSupplier(ctx, m.ProductID, m.SupplierID)
	if err != nil {
		return nil, "", err
	}
	var (
		plan     *inventory.MovementPlan
		movement inventory.MovementType
	)
	switch {
	case kind == ledger.KindDebitNote && !reverse:
		movement = inventory.MovementDebitNote
		plan, err = inventory.PlanPurchaseReturn(m, lot, movement)
	case kind == ledger.KindDebitNote && reverse:
		movement = inventory.MovementReverseDebitNote
		plan, err = inventory.PlanPurchaseReceipt(m, lot, movement)
	case kind == ledger.KindExpense && !reverse:
		movement = inventory.MovementExpense
		plan, err = inventory.PlanPurchaseReceipt(m, lot, movement)
	case kind == ledger.KindExpense && reverse:
		movement = inventory.MovementReverseExpense
		plan, err = inventory.PlanPurchaseReturn(m, lot, movement)
	default:
		return nil, "", shared.ErrInvalidInput.WithMessage(fmt.Sprintf("Document kind %s has no inventory movement", kind))
	}
	return plan, movement, err
}

func (s *InventoryService) planSaleReturn(ctx context.Context, repos TransactionalRepositories, m inventory.Movement) (*inventory.MovementPlan, error) {
	var history []*inventory.HistoryEntry
	if m.InvoiceID != nil {
		rows, err := repos.History().FindByInvoiceAndProduct(ctx, *m.InvoiceID, m.ProductID)
		if err != nil {
			return nil, err
		}
		history = rows
	}

	ids := make([]uuid.UUID, 0, len(history))
	seen := make(map[uuid.UUID]bool, len(history))
	for _, h := range history {
		if !seen[h.LotID] {
			seen[h.LotID] = true
			ids = append(ids, h.LotID)
		}
	}
	lots, err := repos.Lots().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*inventory.Lot, len(lots))
	for _, l := range lots {
		byID[l.ID] = l
	}
	counts, err := repos.History().CountByLot(ctx, ids)
	if err != nil {
		return nil, err
	}
	return inventory.PlanSaleReturn(m, history, byID, counts), nil
}

// applyPlan writes a movement plan. Lots are created before the history
// rows that reference them and deleted after the rows are gone.
func applyPlan(ctx context.Context, repos TransactionalRepositories, plan *inventory.MovementPlan) error {
	if !plan.HasChanges() {
		return nil
	}
	if err := repos.Lots().Create(ctx, plan.Created...); err != nil {
		return fmt.Errorf("failed to create lots: %w", err)
	}
	for _, lot := range plan.Updated {
		if err := repos.Lots().SaveWithLock(ctx, lot); err != nil {
			return err
		}
	}
	if err := repos.History().Create(ctx, plan.Appended...); err != nil {
		return fmt.Errorf("failed to append inventory history: %w", err)
	}
	for _, row := range plan.UpdatedHistory {
		if err := repos.History().Update(ctx, row); err != nil {
			return err
		}
	}
	if err := repos.History().Delete(ctx, plan.DeletedHistory); err != nil {
		return fmt.Errorf("failed to delete inventory history: %w", err)
	}
	if err := repos.Lots().Delete(ctx, plan.DeletedLots); err != nil {
		return fmt.Errorf("failed to delete lots: %w", err)
	}
	return nil
}

// loadProducts loads the products referenced by doc's lines, indexed by ID
func loadProducts(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document) (map[uuid.UUID]*ledger.Product, error) {
	ids := doc.ProductIDs()
	products := make(map[uuid.UUID]*ledger.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}
	found, err := repos.Products().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range found {
		products[found[i].ID] = &found[i]
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, ledger.ErrProductNotFound.WithMessage(fmt.Sprintf("Product %s not found", id))
		}
	}
	return products, nil
}

func lotIDs(lots []*inventory.Lot) []uuid.UUID {
	ids := make([]uuid.UUID, len(lots))
	for i, l := range lots {
		ids[i] = l.ID
	}
	return ids
}
