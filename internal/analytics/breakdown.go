package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-analytics/internal/records"
)

// Totals are the headline sums of the filtered set.
type Totals struct {
	Income        float64 `json:"income"`
	Expenses      float64 `json:"expenses"`
	Net           float64 `json:"net"`
	ActiveBudgets int     `json:"active_budgets"`
	GoalsCount    int     `json:"goals_count"`
}

// CategoryAmount is the expense total for one category.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// CategorySpend groups expenses by category, largest first.
type CategorySpend struct {
	Total float64          `json:"total"`
	Items []CategoryAmount `json:"items"`
}

// IncomeStream is the income total for one label.
type IncomeStream struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// IncomeStreams groups income by label, largest first.
type IncomeStreams struct {
	Total float64        `json:"total"`
	Items []IncomeStream `json:"items"`
}

// CategoryChange compares this month's spend in a category with last month's.
type CategoryChange struct {
	Category  string  `json:"category"`
	ThisMonth float64 `json:"this_month"`
	LastMonth float64 `json:"last_month"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"change_pct"`
}

// ComputeTotals sums income and expenses. Every transaction lands in exactly
// one of the two.
func ComputeTotals(txns []records.Transaction, budgets []records.Budget, goals []records.Goal) Totals {
	income, expenses := decimal.Zero, decimal.Zero
	for _, t := range txns {
		if t.IsIncome() {
			income = income.Add(t.Amount)
		} else {
			expenses = expenses.Add(t.Amount)
		}
	}
	return Totals{
		Income:        income.InexactFloat64(),
		Expenses:      expenses.InexactFloat64(),
		Net:           income.Sub(expenses).InexactFloat64(),
		ActiveBudgets: len(budgets),
		GoalsCount:    len(goals),
	}
}

// grouped accumulates decimal sums per key and remembers first-seen order.
type grouped struct {
	order []string
	sums  map[string]decimal.Decimal
	total decimal.Decimal
}

func newGrouped() *grouped {
	return &grouped{sums: make(map[string]decimal.Decimal), total: decimal.Zero}
}

func (g *grouped) add(key string, amount decimal.Decimal) {
	cur, ok := g.sums[key]
	if !ok {
		g.order = append(g.order, key)
		cur = decimal.Zero
	}
	g.sums[key] = cur.Add(amount)
	g.total = g.total.Add(amount)
}

// sorted returns keys by descending sum, ties broken by key.
func (g *grouped) sorted() []string {
	keys := append([]string(nil), g.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := g.sums[keys[i]], g.sums[keys[j]]
		if c := a.Cmp(b); c != 0 {
			return c > 0
		}
		return keys[i] < keys[j]
	})
	return keys
}

// ComputeCategorySpend sums expense amounts per category.
func ComputeCategorySpend(txns []records.Transaction) CategorySpend {
	g := newGrouped()
	for _, t := range txns {
		if t.IsIncome() {
			continue
		}
		g.add(t.Category, t.Amount)
	}

	out := CategorySpend{Total: g.total.InexactFloat64(), Items: []CategoryAmount{}}
	for _, k := range g.sorted() {
		out.Items = append(out.Items, CategoryAmount{Category: k, Amount: g.sums[k].InexactFloat64()})
	}
	return out
}

// ComputeIncomeStreams sums income amounts per income label.
func ComputeIncomeStreams(txns []records.Transaction) IncomeStreams {
	g := newGrouped()
	for _, t := range txns {
		if !t.IsIncome() {
			continue
		}
		label := t.IncomeLabel
		if label == "" {
			label = records.DefaultIncomeLabel
		}
		g.add(label, t.Amount)
	}

	out := IncomeStreams{Total: g.total.InexactFloat64(), Items: []IncomeStream{}}
	for _, k := range g.sorted() {
		out.Items = append(out.Items, IncomeStream{Label: k, Amount: g.sums[k].InexactFloat64()})
	}
	return out
}

// ComputeComparative compares per-category expenses of the month containing
// now against the previous month. Rows are ordered by this month's spend.
func ComputeComparative(txns []records.Transaction, now time.Time) []CategoryChange {
	current := MonthRange(now, now)
	prevMonth := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
	previous := MonthRange(prevMonth, prevMonth)

	this, last := newGrouped(), newGrouped()
	for _, t := range txns {
		if t.IsIncome() {
			continue
		}
		switch {
		case current.Contains(t.Date):
			this.add(t.Category, t.Amount)
		case previous.Contains(t.Date):
			last.add(t.Category, t.Amount)
		}
	}

	seen := make(map[string]bool)
	var cats []string
	for _, k := range append(append([]string(nil), this.order...), last.order...) {
		if !seen[k] {
			seen[k] = true
			cats = append(cats, k)
		}
	}

	rows := make([]CategoryChange, 0, len(cats))
	for _, c := range cats {
		a, b := this.sums[c], last.sums[c]
		diff := a.Sub(b)
		pct := 100.0
		if !b.IsZero() {
			pct = diff.Div(b).Mul(decimal.NewFromInt(100)).InexactFloat64()
		}
		rows = append(rows, CategoryChange{
			Category:  c,
			ThisMonth: a.InexactFloat64(),
			LastMonth: b.InexactFloat64(),
			Change:    diff.InexactFloat64(),
			ChangePct: pct,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ThisMonth != rows[j].ThisMonth {
			return rows[i].ThisMonth > rows[j].ThisMonth
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}
