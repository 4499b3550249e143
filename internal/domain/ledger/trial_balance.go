package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TrialBalanceStatus represents the result status of a trial balance check
type TrialBalanceStatus string

const (
	TrialBalanceStatusBalanced   TrialBalanceStatus = "BALANCED"   // Debit equals Credit
	TrialBalanceStatusUnbalanced TrialBalanceStatus = "UNBALANCED" // Debit does not equal Credit
)

// IsBalanced returns true if the trial balance is balanced
func (s TrialBalanceStatus) IsBalanced() bool {
	return s == TrialBalanceStatusBalanced
}

// BalanceDiscrepancyType represents the type of balance discrepancy
type BalanceDiscrepancyType string

const (
	// JournalImbalance occurs when a persisted journal's debits differ from its credits
	JournalImbalance BalanceDiscrepancyType = "JOURNAL_IMBALANCE"
	// DueAmountMismatch occurs when a document's due amount contradicts its status or total
	DueAmountMismatch BalanceDiscrepancyType = "DUE_AMOUNT_MISMATCH"
)

// Description returns a human-readable description of the discrepancy type
func (t BalanceDiscrepancyType) Description() string {
	switch t {
	case JournalImbalance:
		return "Journal debit total doesn't equal credit total"
	case DueAmountMismatch:
		return "Document due amount doesn't match its status and total"
	default:
		return "Unknown discrepancy"
	}
}

// BalanceDiscrepancy represents a specific balance discrepancy found during trial balance check
type BalanceDiscrepancy struct {
	Type           BalanceDiscrepancyType `json:"type"`
	EntityType     string                 `json:"entity_type"` // "Journal" or "Document"
	EntityID       uuid.UUID              `json:"entity_id"`
	EntityNumber   string                 `json:"entity_number"`
	ExpectedAmount decimal.Decimal        `json:"expected_amount"`
	ActualAmount   decimal.Decimal        `json:"actual_amount"`
	Difference     decimal.Decimal        `json:"difference"`
	Description    string                 `json:"description"`
	Severity       string                 `json:"severity"` // "CRITICAL" or "WARNING"
	DetectedAt     time.Time              `json:"detected_at"`
}

// NewBalanceDiscrepancy creates a new balance discrepancy
func NewBalanceDiscrepancy(
	discrepancyType BalanceDiscrepancyType,
	entityType string,
	entityID uuid.UUID,
	entityNumber string,
	expected, actual decimal.Decimal,
	tolerance decimal.Decimal,
) *BalanceDiscrepancy {
	diff := expected.Sub(actual)
	severity := "WARNING"
	if diff.Abs().GreaterThan(tolerance) {
		severity = "CRITICAL"
	}

	return &BalanceDiscrepancy{
		Type:           discrepancyType,
		EntityType:     entityType,
		EntityID:       entityID,
		EntityNumber:   entityNumber,
		ExpectedAmount: expected,
		ActualAmount:   actual,
		Difference:     diff,
		Description:    discrepancyType.Description(),
		Severity:       severity,
		DetectedAt:     time.Now(),
	}
}

// CategoryBalance is the summed activity of one category
type CategoryBalance struct {
	CategoryID   uuid.UUID       `json:"category_id"`
	CategoryCode string          `json:"category_code"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
}

// Net returns debit minus credit
func (b CategoryBalance) Net() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}

// JournalBalance is the debit and credit total of a single journal
type JournalBalance struct {
	JournalID uuid.UUID
	Number    string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// DocumentDue is the subset of a document the due-amount check reads
type DocumentDue struct {
	DocumentID  uuid.UUID
	Number      string
	Status      DocumentStatus
	TotalAmount decimal.Decimal
	DueAmount   decimal.Decimal
}

// TrialBalanceFilter limits the journals included by journal date
type TrialBalanceFilter struct {
	From *time.Time
	To   *time.Time
}

// TrialBalanceResult represents the result of a trial balance check
type TrialBalanceResult struct {
	ID           uuid.UUID          `json:"id"`
	CheckedAt    time.Time          `json:"checked_at"`
	Status       TrialBalanceStatus `json:"status"`
	TotalDebits  decimal.Decimal    `json:"total_debits"`
	TotalCredits decimal.Decimal    `json:"total_credits"`
	NetBalance   decimal.Decimal    `json:"net_balance"` // Debits - Credits (should be 0)

	Categories []CategoryBalance `json:"categories"`

	// Discrepancies found
	Discrepancies    []BalanceDiscrepancy `json:"discrepancies"`
	DiscrepancyCount int                  `json:"discrepancy_count"`
	CriticalCount    int                  `json:"critical_count"`
	WarningCount     int                  `json:"warning_count"`

	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`

	ExecutionDurationMs int64 `json:"execution_duration_ms"`
}

// NewTrialBalanceResult creates a new trial balance result
func NewTrialBalanceResult() *TrialBalanceResult {
	return &TrialBalanceResult{
		ID:            uuid.New(),
		CheckedAt:     time.Now(),
		Status:        TrialBalanceStatusBalanced,
		TotalDebits:   decimal.Zero,
		TotalCredits:  decimal.Zero,
		NetBalance:    decimal.Zero,
		Categories:    make([]CategoryBalance, 0),
		Discrepancies: make([]BalanceDiscrepancy, 0),
	}
}

// AddDiscrepancy adds a discrepancy to the result
func (r *TrialBalanceResult) AddDiscrepancy(d *BalanceDiscrepancy) {
	r.Discrepancies = append(r.Discrepancies, *d)
	r.DiscrepancyCount++
	if d.Severity == "CRITICAL" {
		r.CriticalCount++
	} else {
		r.WarningCount++
	}
	r.Status = TrialBalanceStatusUnbalanced
}

// SetTotals sets the debit and credit totals and calculates net balance
func (r *TrialBalanceResult) SetTotals(debits, credits decimal.Decimal) {
	r.TotalDebits = debits
	r.TotalCredits = credits
	r.NetBalance = debits.Sub(credits)
	if !r.NetBalance.IsZero() {
		r.Status = TrialBalanceStatusUnbalanced
	}
}

// IsBalanced returns true if the trial balance is balanced (no discrepancies and net balance is 0)
func (r *TrialBalanceResult) IsBalanced() bool {
	return r.Status.IsBalanced() && r.DiscrepancyCount == 0 && r.NetBalance.IsZero()
}

// BuildTrialBalance sums category activity and records every unbalanced
// journal and every document whose due amount contradicts its status.
func BuildTrialBalance(filter TrialBalanceFilter, categories []CategoryBalance, journals []JournalBalance, documents []DocumentDue, tolerance decimal.Decimal) *TrialBalanceResult {
	r := NewTrialBalanceResult()
	r.PeriodStart = filter.From
	r.PeriodEnd = filter.To
	r.Categories = append(r.Categories, categories...)

	debits, credits := decimal.Zero, decimal.Zero
	for _, c := range categories {
		debits = debits.Add(c.Debit)
		credits = credits.Add(c.Credit)
	}

	for _, j := range journals {
		if j.Debit.Equal(j.Credit) {
			continue
		}
		r.AddDiscrepancy(NewBalanceDiscrepancy(JournalImbalance, AggregateTypeJournal, j.JournalID, j.Number, j.Debit, j.Credit, tolerance))
	}

	for _, d := range documents {
		expected, ok := expectedDue(d)
		if ok && expected.Equal(d.DueAmount) {
			continue
		}
		disc := NewBalanceDiscrepancy(DueAmountMismatch, AggregateTypeDocument, d.DocumentID, d.Number, expected, d.DueAmount, tolerance)
		disc.Description = fmt.Sprintf("%s (status %s)", disc.Description, d.Status)
		r.AddDiscrepancy(disc)
	}

	r.SetTotals(debits, credits)
	return r
}

// expectedDue returns the due amount a document must carry in its status.
// For PARTIALLY_PAID only the open interval (0, total) is valid, reported
// with ok=false when violated.
func expectedDue(d DocumentDue) (decimal.Decimal, bool) {
	switch d.Status {
	case StatusPending, StatusClosed:
		return decimal.Zero, true
	case StatusOpen:
		return d.TotalAmount, true
	case StatusPartiallyPaid:
		if d.DueAmount.IsPositive() && d.DueAmount.LessThan(d.TotalAmount) {
			return d.DueAmount, true
		}
		return d.TotalAmount, false
	}
	return d.TotalAmount, false
}
