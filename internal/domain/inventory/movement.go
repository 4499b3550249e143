package inventory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement describes one inventory-enabled document line
type Movement struct {
	ProductID       uuid.UUID
	SupplierID      uuid.UUID // Contact of the document
	DocumentID      uuid.UUID
	InvoiceID       *uuid.UUID // Originating invoice, sale returns only
	Quantity        int
	UnitPrice       decimal.Decimal
	AvgPurchaseCost *decimal.Decimal
	Date            time.Time
}

// MovementPlan is the set of lot and history changes one movement needs.
// Lots in Updated are mutated in place and carry an incremented version.
type MovementPlan struct {
	Created        []*Lot
	Updated        []*Lot
	DeletedLots    []uuid.UUID
	Appended       []*HistoryEntry
	UpdatedHistory []*HistoryEntry
	DeletedHistory []uuid.UUID
	RestoredCost   decimal.Decimal
	Shortfall      *Shortfall

	touched map[uuid.UUID]bool
}

func newPlan() *MovementPlan {
	return &MovementPlan{RestoredCost: decimal.Zero, touched: make(map[uuid.UUID]bool)}
}

func (p *MovementPlan) touch(lot *Lot) {
	if p.touched[lot.ID] {
		return
	}
	p.touched[lot.ID] = true
	lot.IncrementVersion()
	p.Updated = append(p.Updated, lot)
}

func (p *MovementPlan) create(lot *Lot) {
	p.touched[lot.ID] = true
	p.Created = append(p.Created, lot)
}

func (p *MovementPlan) deleteLot(lot *Lot) {
	p.DeletedLots = append(p.DeletedLots, lot.ID)
	for i, l := range p.Updated {
		if l.ID == lot.ID {
			p.Updated = append(p.Updated[:i], p.Updated[i+1:]...)
			break
		}
	}
}

func (p *MovementPlan) short(m Movement, applied int) {
	if applied >= m.Quantity {
		return
	}
	p.Shortfall = &Shortfall{
		ProductID: m.ProductID,
		Requested: m.Quantity,
		Applied:   applied,
		Missing:   m.Quantity - applied,
	}
}

// HasChanges reports whether applying the plan writes anything
func (p *MovementPlan) HasChanges() bool {
	return len(p.Created)+len(p.Updated)+len(p.DeletedLots)+len(p.Appended)+len(p.UpdatedHistory)+len(p.DeletedHistory) > 0
}

// SortHistoryOldestFirst orders rows by transaction date, then creation time, then ID
func SortHistoryOldestFirst(rows []*HistoryEntry) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.Before(b.TransactionDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

// PlanSaleReturn puts returned stock back on the lots the originating
// invoice consumed. history holds the invoice's rows for the product;
// historyCount holds the total number of history rows per lot.
func PlanSaleReturn(m Movement, history []*HistoryEntry, lots map[uuid.UUID]*Lot, historyCount map[uuid.UUID]int) *MovementPlan {
	p := newPlan()
	rows := make([]*HistoryEntry, 0, len(history))
	for _, h := range history {
		if h.ProductID == m.ProductID {
			rows = append(rows, h)
		}
	}
	SortHistoryOldestFirst(rows)

	remaining := m.Quantity
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		lot, ok := lots[row.LotID]
		if !ok {
			continue
		}
		rowQty := row.Magnitude()
		restore := min(remaining, rowQty)
		if restore == 0 {
			continue
		}

		lot.StockOnHand += restore
		lot.QuantitySold = max(lot.QuantitySold-restore, 0)
		p.touch(lot)

		unitCost := row.UnitCost
		if m.AvgPurchaseCost != nil {
			unitCost = *m.AvgPurchaseCost
		}
		p.RestoredCost = p.RestoredCost.Add(unitCost.Mul(decimal.NewFromInt(int64(restore))))

		if restore == rowQty {
			p.DeletedHistory = append(p.DeletedHistory, row.ID)
			if historyCount[lot.ID] == 1 && lot.holdsOnly(restore) {
				p.deleteLot(lot)
			}
		} else if row.Quantity < 0 {
			row.Quantity += restore
			p.UpdatedHistory = append(p.UpdatedHistory, row)
		} else {
			row.Quantity -= restore
			p.UpdatedHistory = append(p.UpdatedHistory, row)
		}
		remaining -= restore
	}

	p.short(m, m.Quantity-remaining)
	return p
}

// PlanPurchaseReturn takes goods sent back to the supplier off the
// (product, supplier) lot. Stock never goes below zero.
func PlanPurchaseReturn(m Movement, lot *Lot, refType MovementType) (*MovementPlan, error) {
	p := newPlan()
	if lot == nil {
		created, err := NewLot(m.ProductID, m.SupplierID, m.Quantity, m.UnitPrice)
		if err != nil {
			return nil, err
		}
		lot = created
		p.create(lot)
	}

	take := min(m.Quantity, lot.StockOnHand)
	if take > 0 {
		lot.StockOnHand -= take
		lot.PurchaseQuantity = max(lot.PurchaseQuantity-take, 0)
		p.touch(lot)
		p.Appended = append(p.Appended, NewHistoryEntry(lot, m, refType, -take))
	}
	p.short(m, take)
	return p, nil
}

// PlanPurchaseReceipt adds purchased goods to the (product, supplier) lot
func PlanPurchaseReceipt(m Movement, lot *Lot, refType MovementType) (*MovementPlan, error) {
	p := newPlan()
	if lot == nil {
		created, err := NewLot(m.ProductID, m.SupplierID, m.Quantity, m.UnitPrice)
		if err != nil {
			return nil, err
		}
		lot = created
		p.create(lot)
	}

	lot.StockOnHand += m.Quantity
	lot.PurchaseQuantity += m.Quantity
	p.touch(lot)
	p.Appended = append(p.Appended, NewHistoryEntry(lot, m, refType, m.Quantity))
	return p, nil
}

// PlanReverseConsumption consumes the quantity of a reversed sale return
// from the product's lots, oldest history first. firstSeen holds the
// earliest history date per lot; lots without history sort last, then by
// creation time, then ID. Each lot gives at most its stock on hand.
func PlanReverseConsumption(m Movement, lots []*Lot, firstSeen map[uuid.UUID]time.Time) *MovementPlan {
	p := newPlan()
	ordered := make([]*Lot, 0, len(lots))
	for _, l := range lots {
		if l.ProductID == m.ProductID {
			ordered = append(ordered, l)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		fa, okA := firstSeen[a.ID]
		fb, okB := firstSeen[b.ID]
		if okA != okB {
			return okA
		}
		if okA && !fa.Equal(fb) {
			return fa.Before(fb)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	remaining := m.Quantity
	for _, lot := range ordered {
		if remaining == 0 {
			break
		}
		take := min(remaining, lot.StockOnHand)
		if take == 0 {
			continue
		}
		lot.StockOnHand -= take
		lot.QuantitySold += take
		p.touch(lot)
		p.Appended = append(p.Appended, NewHistoryEntry(lot, m, MovementReverseCreditNote, -take))
		remaining -= take
	}

	p.short(m, m.Quantity-remaining)
	return p
}
