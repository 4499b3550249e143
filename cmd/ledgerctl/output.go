package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// printer renders command results as text or JSON
type printer struct {
	w        io.Writer
	json     bool
	currency valueobject.Currency
}

func newPrinter(w io.Writer, asJSON bool, baseCurrency string) *printer {
	return &printer{w: w, json: asJSON, currency: valueobject.Currency(baseCurrency)}
}

// money formats an amount at the minor-unit scale of the base currency.
// Stored amounts keep their full precision.
func (p *printer) money(d decimal.Decimal) string {
	return valueobject.NewMoney(d, p.currency).Format()
}

func (p *printer) emitJSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) shortfalls(reports []appledger.ShortfallReport) {
	for _, s := range reports {
		fmt.Fprintf(p.w, "shortfall: product %s %s requested %d applied %d missing %d\n",
			s.ProductID, s.Movement, s.Requested, s.Applied, s.Missing)
	}
}

func (p *printer) posted(r *appledger.PostResult) error {
	if p.json {
		return p.emitJSON(r)
	}
	fmt.Fprintf(p.w, "posted journal %s (%s)\n", r.JournalNumber, r.JournalID)
	if r.Settled {
		fmt.Fprintln(p.w, "settled on posting")
	}
	p.shortfalls(r.Shortfalls)
	return nil
}

func (p *printer) reversed(r *appledger.ReverseResult) error {
	if p.json {
		return p.emitJSON(r)
	}
	for _, id := range r.ReversalIDs {
		fmt.Fprintf(p.w, "reversal journal %s\n", id)
	}
	if r.DocumentReset {
		fmt.Fprintln(p.w, "document reset to PENDING")
	}
	if r.RestoredBankFund {
		fmt.Fprintln(p.w, "bank balance restored")
	}
	return nil
}

func (p *printer) settled(r *appledger.SettleResult) error {
	if p.json {
		return p.emitJSON(r)
	}
	fmt.Fprintf(p.w, "settlement journal %s\ndue after %s, status %s\n", r.JournalID, p.money(r.DueAfter), r.StatusAfter)
	return nil
}

func (p *printer) movement(r *appledger.MovementOutcome) error {
	if p.json {
		return p.emitJSON(r)
	}
	if !r.Participated {
		fmt.Fprintln(p.w, "no inventory lines")
		return nil
	}
	fmt.Fprintf(p.w, "inventory movement reversed, restored cost %s\n", p.money(r.RestoredCost))
	p.shortfalls(r.Shortfalls)
	return nil
}

func (p *printer) seeded(r *appledger.SeedResult) error {
	if p.json {
		return p.emitJSON(r)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tID")
	for _, c := range r.Upserted {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Code, c.Name, c.ID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, code := range r.MissingWellKnown {
		fmt.Fprintf(p.w, "warning: well-known category %s is not configured\n", code)
	}
	return nil
}

func (p *printer) trialBalance(r *ledger.TrialBalanceResult) error {
	if p.json {
		return p.emitJSON(r)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CATEGORY\tDEBIT\tCREDIT\tNET\t")
	for _, c := range r.Categories {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", c.CategoryCode, p.money(c.Debit), p.money(c.Credit), p.money(c.Net()))
	}
	fmt.Fprintf(tw, "TOTAL\t%s\t%s\t%s\t\n", p.money(r.TotalDebits), p.money(r.TotalCredits), p.money(r.NetBalance))
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(p.w, "\nstatus %s, %d discrepancies (%d critical, %d warning)\n",
		r.Status, r.DiscrepancyCount, r.CriticalCount, r.WarningCount)
	for _, d := range r.Discrepancies {
		fmt.Fprintf(p.w, "  [%s] %s %s: %s (expected %s, actual %s)\n",
			d.Severity, d.EntityType, d.EntityNumber, d.Description,
			p.money(d.ExpectedAmount), p.money(d.ActualAmount))
	}
	return nil
}
