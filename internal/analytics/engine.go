// Package analytics derives financial reports from normalized records:
// monthly series, category and income breakdowns, income stability, the
// financial health score, the simulated credit score and goal projections.
// Every function is pure; the clock is injected through Options.
package analytics

import (
	"time"

	"github.com/dvloznov/finance-analytics/internal/records"
)

// Options configures an Engine.
type Options struct {
	// MonthCap bounds the monthly series. Zero means DefaultMonthCap and a
	// negative value disables the cap.
	MonthCap int
	// DefaultMonths is the width of the range used when a query has none.
	DefaultMonths int
	Clock         records.Clock
	Location      *time.Location
	Scoring       *ScoringConfig
}

// Input is one snapshot of raw backend records.
type Input struct {
	Accounts     []records.Record
	Transactions []records.Record
	Budgets      []records.Record
	Goals        []records.Record
}

// Query selects the slice of the snapshot a report covers.
type Query struct {
	Range     Range
	AccountID string
}

// Report is the full set of derived analytics for one query.
type Report struct {
	GeneratedAt      time.Time        `json:"generated_at"`
	Range            Range            `json:"range"`
	AccountID        string           `json:"account_id"`
	TransactionCount int              `json:"transaction_count"`
	DefaultedDates   int              `json:"defaulted_dates"`
	Totals           Totals           `json:"totals"`
	Monthly          MonthlySeries    `json:"monthly"`
	CategorySpend    CategorySpend    `json:"category_spend"`
	IncomeStreams    IncomeStreams    `json:"income_streams"`
	IncomeStability  IncomeStability  `json:"income_stability"`
	FinancialHealth  FinancialHealth  `json:"financial_health"`
	CreditScore      CreditScore      `json:"credit_score"`
	Comparative      []CategoryChange `json:"comparative"`
	Goals            []GoalInsight    `json:"goals"`
	Hints            []string         `json:"hints"`
	AccountOptions   []AccountOption  `json:"account_options"`
}

// Engine runs the analytics pipeline.
type Engine struct {
	opts       Options
	normalizer *records.Normalizer
}

// NewEngine builds an Engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	if opts.MonthCap == 0 {
		opts.MonthCap = DefaultMonthCap
	}
	if opts.DefaultMonths <= 0 {
		opts.DefaultMonths = DefaultMonths
	}
	if opts.Clock == nil {
		opts.Clock = records.SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Scoring == nil {
		s := DefaultScoring()
		opts.Scoring = &s
	}
	return &Engine{
		opts:       opts,
		normalizer: records.NewNormalizer(opts.Clock, opts.Location),
	}
}

// Now returns the engine clock's time in the engine location.
func (e *Engine) Now() time.Time {
	return e.opts.Clock.Now().In(e.opts.Location)
}

// DefaultRange is the range used for queries without one.
func (e *Engine) DefaultRange() Range {
	return QuickRange(e.Now(), e.opts.DefaultMonths)
}

// Run normalizes in and computes the report for q. A zero q.Range is
// replaced by the default range.
func (e *Engine) Run(in Input, q Query) *Report {
	now := e.Now()
	r := q.Range
	if r.IsZero() {
		r = e.DefaultRange()
	}

	accounts := e.normalizer.Accounts(in.Accounts)
	txns := e.normalizer.Transactions(in.Transactions)
	budgets := e.normalizer.Budgets(in.Budgets)
	goals := e.normalizer.Goals(in.Goals)

	filtered := FilterTransactions(txns, r, q.AccountID)
	var defaulted int
	for _, t := range filtered {
		if t.DateDefaulted {
			defaulted++
		}
	}

	totals := ComputeTotals(filtered, budgets, goals)
	series := BuildMonthlySeries(filtered, r, e.opts.MonthCap)
	spend := ComputeCategorySpend(filtered)
	stability := ComputeIncomeStability(series.Income)
	health := ComputeFinancialHealth(e.opts.Scoring.Health, totals, stability, series.Expenses, budgets)
	credit := ComputeCreditScore(e.opts.Scoring.Credit, totals, stability, health, accounts)

	accountID := q.AccountID
	if accountID == "" {
		accountID = AllAccounts
	}

	return &Report{
		GeneratedAt:      now,
		Range:            r,
		AccountID:        accountID,
		TransactionCount: len(filtered),
		DefaultedDates:   defaulted,
		Totals:           totals,
		Monthly:          series,
		CategorySpend:    spend,
		IncomeStreams:    ComputeIncomeStreams(filtered),
		IncomeStability:  stability,
		FinancialHealth:  health,
		CreditScore:      credit,
		Comparative:      ComputeComparative(filtered, now),
		Goals:            ProjectGoals(goals, series, now),
		Hints:            OptimizationHints(spend, series, stability, budgets),
		AccountOptions:   AccountOptions(accounts),
	}
}
