package inventory

import (
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

const (
	AggregateTypeLot = "InventoryLot"

	EventTypeStockShortfall = "inventory.stock.shortfall"
)

// StockShortfallEvent is raised when a movement could not be fully applied
type StockShortfallEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID    `json:"product_id"`
	DocumentID uuid.UUID    `json:"document_id"`
	Movement   MovementType `json:"movement"`
	Requested  int          `json:"requested"`
	Missing    int          `json:"missing"`
}

// NewStockShortfallEvent creates a shortfall event for a document movement
func NewStockShortfallEvent(s Shortfall, documentID uuid.UUID, movement MovementType) *StockShortfallEvent {
	return &StockShortfallEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockShortfall, AggregateTypeLot, s.ProductID),
		ProductID:       s.ProductID,
		DocumentID:      documentID,
		Movement:        movement,
		Requested:       s.Requested,
		Missing:         s.Missing,
	}
}
