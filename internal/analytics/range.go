package analytics

import (
	"time"

	"github.com/dvloznov/finance-analytics/internal/records"
)

// AllAccounts selects every account.
const AllAccounts = "all"

// Range is an inclusive time window. The zero Range matches every instant.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the range is unbounded.
func (r Range) IsZero() bool {
	return r.Start.IsZero() || r.End.IsZero()
}

// Contains reports whether t falls within [Start, End].
func (r Range) Contains(t time.Time) bool {
	if r.IsZero() {
		return true
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// StartOfMonth returns the first instant of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last millisecond of t's month in t's location.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Millisecond)
}

// MonthRange builds a month-aligned range covering start's month through
// end's month.
func MonthRange(start, end time.Time) Range {
	return Range{Start: StartOfMonth(start), End: EndOfMonth(end)}
}

// QuickRange returns the last monthsBack months ending with the month
// containing now. monthsBack below 1 is treated as 1.
func QuickRange(now time.Time, monthsBack int) Range {
	if monthsBack < 1 {
		monthsBack = 1
	}
	first := time.Date(now.Year(), now.Month()-time.Month(monthsBack-1), 1, 0, 0, 0, 0, now.Location())
	return Range{Start: first, End: EndOfMonth(now)}
}

// DefaultRange is the six-month window shown when no range is requested.
func DefaultRange(now time.Time) Range {
	return QuickRange(now, DefaultMonths)
}

// FilterTransactions keeps transactions inside r whose account matches
// accountID. An empty accountID or AllAccounts matches every account.
// Input order is preserved.
func FilterTransactions(txns []records.Transaction, r Range, accountID string) []records.Transaction {
	out := make([]records.Transaction, 0, len(txns))
	for _, t := range txns {
		if !r.Contains(t.Date) {
			continue
		}
		if accountID != "" && accountID != AllAccounts && t.AccountID != accountID {
			continue
		}
		out = append(out, t)
	}
	return out
}
