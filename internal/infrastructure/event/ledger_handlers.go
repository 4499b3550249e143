package event

import (
	"context"

	"github.com/erp/ledger/internal/domain/inventory"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// LedgerAuditHandler writes relayed ledger events to the audit log
type LedgerAuditHandler struct {
	logger *zap.Logger
}

// NewLedgerAuditHandler creates the audit handler
func NewLedgerAuditHandler(logger *zap.Logger) *LedgerAuditHandler {
	return &LedgerAuditHandler{logger: logger.Named("audit")}
}

// EventTypes returns the ledger event types
func (h *LedgerAuditHandler) EventTypes() []string {
	return []string{
		ledger.EventTypeJournalPosted,
		ledger.EventTypeJournalReversed,
		ledger.EventTypeDocumentSettled,
		inventory.EventTypeStockShortfall,
	}
}

// Handle logs one event with its business fields
func (h *LedgerAuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *ledger.JournalPostedEvent:
		fields = append(fields,
			zap.String("journal_number", e.JournalNumber),
			zap.String("reference_type", e.ReferenceType.String()),
			zap.String("document_id", e.DocumentID.String()),
			zap.String("total", e.TotalDebit.String()),
			zap.Int("lines", e.LineCount),
		)
	case *ledger.JournalReversedEvent:
		fields = append(fields,
			zap.String("journal_number", e.JournalNumber),
			zap.String("original_journal_id", e.OriginalJournalID.String()),
			zap.String("reference_type", e.ReferenceType.String()),
		)
	case *ledger.DocumentSettledEvent:
		fields = append(fields,
			zap.String("document_number", e.DocumentNumber),
			zap.String("amount", e.Amount.String()),
			zap.String("due_after", e.DueAfter.String()),
			zap.String("status_after", e.StatusAfter.String()),
		)
	case *inventory.StockShortfallEvent:
		fields = append(fields,
			zap.String("product_id", e.ProductID.String()),
			zap.String("movement", string(e.Movement)),
			zap.Int("requested", e.Requested),
			zap.Int("missing", e.Missing),
		)
		h.logger.Warn("stock shortfall", fields...)
		return nil
	}

	h.logger.Info("ledger event", fields...)
	return nil
}

// Ensure LedgerAuditHandler implements EventHandler
var _ shared.EventHandler = (*LedgerAuditHandler)(nil)
