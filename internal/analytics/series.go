package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-analytics/internal/records"
)

const (
	// DefaultMonthCap bounds the number of months in a series.
	DefaultMonthCap = 24

	// DefaultMonths is the width of the default reporting window.
	DefaultMonths = 6
)

// MonthlySeries holds per-month income and expense sums. All slices have
// the same length.
type MonthlySeries struct {
	Labels   []string  `json:"labels"`
	Keys     []string  `json:"keys"`
	Income   []float64 `json:"income"`
	Expenses []float64 `json:"expenses"`
	Net      []float64 `json:"net"`
	// Truncated is set when the range held more months than the cap allowed.
	Truncated bool `json:"truncated"`
}

// Len returns the number of months in the series.
func (s MonthlySeries) Len() int { return len(s.Labels) }

func monthKey(t time.Time) string { return t.Format("2006-01") }

func monthLabel(t time.Time) string { return t.Format("Jan") }

// BuildMonthlySeries enumerates every calendar month of r and sums txns into
// it. At most monthCap months are produced; monthCap <= 0 disables the cap.
// An unbounded range yields an empty series.
func BuildMonthlySeries(txns []records.Transaction, r Range, monthCap int) MonthlySeries {
	s := MonthlySeries{
		Labels:   []string{},
		Keys:     []string{},
		Income:   []float64{},
		Expenses: []float64{},
		Net:      []float64{},
	}
	if r.IsZero() {
		return s
	}

	loc := r.Start.Location()
	var months []time.Time
	cur := time.Date(r.Start.Year(), r.Start.Month(), 1, 0, 0, 0, 0, loc)
	for !cur.After(r.End) {
		if monthCap > 0 && len(months) >= monthCap {
			s.Truncated = true
			break
		}
		months = append(months, cur)
		cur = cur.AddDate(0, 1, 0)
	}

	income := make(map[string]decimal.Decimal)
	expenses := make(map[string]decimal.Decimal)
	for _, t := range txns {
		key := monthKey(t.Date.In(loc))
		if t.IsIncome() {
			income[key] = income[key].Add(t.Amount)
		} else {
			expenses[key] = expenses[key].Add(t.Amount)
		}
	}

	for _, m := range months {
		key := monthKey(m)
		in := income[key]
		out := expenses[key]
		s.Labels = append(s.Labels, monthLabel(m))
		s.Keys = append(s.Keys, key)
		s.Income = append(s.Income, in.InexactFloat64())
		s.Expenses = append(s.Expenses, out.InexactFloat64())
		s.Net = append(s.Net, in.Sub(out).InexactFloat64())
	}
	return s
}
