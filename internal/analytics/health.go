package analytics

import (
	"math"
	"strconv"

	"github.com/dvloznov/finance-analytics/internal/records"
)

// HealthFactors are the unrounded points of each health component.
type HealthFactors struct {
	SavingsRate     float64 `json:"savings_rate"`
	IncomeStability float64 `json:"income_stability"`
	IncomeGrowth    float64 `json:"income_growth"`
	ExpenseControl  float64 `json:"expense_control"`
	BudgetAdherence float64 `json:"budget_adherence"`
}

// Sum adds up all factor points.
func (f HealthFactors) Sum() float64 {
	return f.SavingsRate + f.IncomeStability + f.IncomeGrowth + f.ExpenseControl + f.BudgetAdherence
}

// HealthBreakdown is the human-readable rendering of each factor.
type HealthBreakdown struct {
	SavingsRate     string `json:"savings_rate"`
	IncomeStability string `json:"income_stability"`
	IncomeGrowth    string `json:"income_growth"`
	ExpenseControl  string `json:"expense_control"`
	BudgetAdherence string `json:"budget_adherence"`
}

// FinancialHealth is the 0-100 composite health score.
type FinancialHealth struct {
	Score           int             `json:"score"`
	RawScore        float64         `json:"raw_score"`
	SavingsRate     float64         `json:"savings_rate"`
	Message         string          `json:"message"`
	Recommendations []string        `json:"recommendations"`
	Factors         HealthFactors   `json:"factors"`
	Breakdown       HealthBreakdown `json:"breakdown"`
}

type healthBand struct {
	min             float64
	message         string
	recommendations []string
}

var healthBands = []healthBand{
	{85, "Outstanding financial health! 🎉", []string{"Maintain your excellent habits", "Consider investment opportunities", "You're ready for major financial goals"}},
	{70, "Excellent financial health! 💪", []string{"Keep up the great work", "Consider increasing savings rate", "Look for ways to optimize further"}},
	{55, "Good financial health 👍", []string{"Focus on improving savings rate", "Work on income stability", "Monitor spending patterns"}},
	{40, "Fair financial health ⚠️", []string{"Reduce expenses where possible", "Build emergency fund", "Create and stick to budgets"}},
	{25, "Poor financial health 🚨", []string{"Prioritize debt reduction", "Cut unnecessary expenses", "Increase income if possible"}},
	{math.Inf(-1), "Critical financial health 🆘", []string{"Seek financial counseling", "Emergency budget review", "Focus on basic needs first"}},
}

// Targeted recommendations added when a factor is weak.
const (
	NudgeSavings        = "💡 Increase your savings rate to at least 20%"
	NudgeStability      = "📈 Work on stabilizing your income sources"
	NudgeGrowth         = "🚀 Look for ways to increase your income"
	NudgeExpenseControl = "📊 Better control your spending patterns"
	NudgeBudget         = "📋 Stick to your budget limits"
)

// SavingsRate is (income-expenses)/income floored at 0, and 0 without income.
func SavingsRate(t Totals) float64 {
	if t.Income <= 0 {
		return 0
	}
	return math.Max(0, (t.Income-t.Expenses)/t.Income)
}

// ComputeFinancialHealth scores totals, stability, the monthly expense
// series and budgets.
func ComputeFinancialHealth(cfg HealthScoring, totals Totals, stability IncomeStability, expenses []float64, budgets []records.Budget) FinancialHealth {
	rate := SavingsRate(totals)

	var f HealthFactors
	f.SavingsRate = math.Min(cfg.SavingsWeight, rate*cfg.SavingsWeight)
	f.IncomeStability = math.Min(cfg.StabilityWeight, stability.Consistency*cfg.StabilityWeight)
	if stability.HasIncome() {
		f.IncomeGrowth = cfg.Growth.Above(stability.GrowthRate)
	}
	f.ExpenseControl = expenseControl(cfg, expenses)
	f.BudgetAdherence = budgetAdherence(cfg, budgets)

	raw := clamp(f.Sum(), 0, cfg.MaxScore)
	band := healthBandFor(raw)

	recs := append([]string(nil), band.recommendations...)
	if f.SavingsRate < cfg.SavingsNudge {
		recs = append(recs, NudgeSavings)
	}
	if f.IncomeStability < cfg.StabilityNudge {
		recs = append(recs, NudgeStability)
	}
	if f.IncomeGrowth < cfg.GrowthNudge {
		recs = append(recs, NudgeGrowth)
	}
	if f.ExpenseControl < cfg.ExpenseControlNudge {
		recs = append(recs, NudgeExpenseControl)
	}
	if f.BudgetAdherence < cfg.BudgetNudge {
		recs = append(recs, NudgeBudget)
	}
	if cfg.MaxRecommendations > 0 && len(recs) > cfg.MaxRecommendations {
		recs = recs[:cfg.MaxRecommendations]
	}

	return FinancialHealth{
		Score:           int(math.Round(raw)),
		RawScore:        raw,
		SavingsRate:     rate,
		Message:         band.message,
		Recommendations: recs,
		Factors:         f,
		Breakdown: HealthBreakdown{
			SavingsRate:     fixed1(rate*100) + "%",
			IncomeStability: fixed1(stability.VariabilityPct) + "% variability",
			IncomeGrowth:    fixed1(stability.GrowthRate) + "% growth",
			ExpenseControl:  grade(f.ExpenseControl, "Good", "Fair", "Needs Work"),
			BudgetAdherence: grade(f.BudgetAdherence, "Excellent", "Good", "Needs Improvement"),
		},
	}
}

// expenseControl rates the variability of the trailing expense window.
func expenseControl(cfg HealthScoring, expenses []float64) float64 {
	if len(expenses) < 2 {
		return cfg.ExpenseControlDefault
	}
	window := expenses
	if cfg.ExpenseWindow > 0 && len(window) > cfg.ExpenseWindow {
		window = window[len(window)-cfg.ExpenseWindow:]
	}
	return cfg.ExpenseControl.Above(variabilityPct(window))
}

// budgetAdherence averages per-budget adherence over budgets with a
// positive limit.
func budgetAdherence(cfg HealthScoring, budgets []records.Budget) float64 {
	var sum float64
	var counted int
	for _, b := range budgets {
		if b.Limit <= 0 {
			continue
		}
		sum += math.Max(0, 1-math.Abs(b.Spent-b.Limit)/b.Limit)
		counted++
	}
	if counted == 0 {
		return cfg.BudgetDefault
	}
	return math.Min(cfg.BudgetWeight, sum/float64(counted)*cfg.BudgetWeight)
}

func healthBandFor(score float64) healthBand {
	for _, b := range healthBands {
		if score >= b.min {
			return b
		}
	}
	return healthBands[len(healthBands)-1]
}

func grade(points float64, high, mid, low string) string {
	switch {
	case points >= 8:
		return high
	case points >= 6:
		return mid
	default:
		return low
	}
}

func fixed1(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
