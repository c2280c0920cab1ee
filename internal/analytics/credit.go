package analytics

import (
	"math"

	"github.com/dvloznov/finance-analytics/internal/records"
)

// SimulatedLabel marks credit scores derived from in-app signals only.
const SimulatedLabel = "Simulated score based on your in-app activity. This is not a credit bureau score."

// CreditCategory names a credit score band.
type CreditCategory string

const (
	CreditExcellent CreditCategory = "Excellent"
	CreditGood      CreditCategory = "Good"
	CreditFair      CreditCategory = "Fair"
	CreditPoor      CreditCategory = "Poor"
	CreditVeryPoor  CreditCategory = "Very Poor"
)

// CreditFactors are the points awarded per component.
type CreditFactors struct {
	PaymentHistory    float64 `json:"payment_history"`
	CreditUtilization float64 `json:"credit_utilization"`
	DebtToIncome      float64 `json:"debt_to_income"`
	CreditHistory     float64 `json:"credit_history"`
	StabilityBonus    float64 `json:"stability_bonus"`
}

// Sum adds up all factor points.
func (f CreditFactors) Sum() float64 {
	return f.PaymentHistory + f.CreditUtilization + f.DebtToIncome + f.CreditHistory + f.StabilityBonus
}

// CreditMetrics are the ratios the factors were derived from.
type CreditMetrics struct {
	DebtToIncomeRatio float64 `json:"debt_to_income_ratio"`
	CreditUtilization float64 `json:"credit_utilization"`
	AccountAgeMonths  float64 `json:"account_age_months"`
	// Display renderings: percentages with one decimal, age in whole months.
	DebtToIncomePct   string `json:"debt_to_income_pct"`
	UtilizationPct    string `json:"utilization_pct"`
	AccountAgeDisplay int    `json:"account_age"`
}

// CreditScore is a heuristic score in the conventional 300-850 range.
type CreditScore struct {
	Score           int            `json:"score"`
	Category        CreditCategory `json:"category"`
	Message         string         `json:"message"`
	Recommendations []string       `json:"recommendations"`
	Factors         CreditFactors  `json:"factors"`
	Metrics         CreditMetrics  `json:"metrics"`
	Simulated       bool           `json:"simulated"`
	Label           string         `json:"label"`
}

type creditBand struct {
	min             float64
	category        CreditCategory
	message         string
	recommendations []string
}

var creditBands = []creditBand{
	{750, CreditExcellent, "Outstanding credit profile!", []string{"Maintain current habits", "Consider premium credit cards", "You qualify for best rates"}},
	{700, CreditGood, "Good credit standing.", []string{"Keep payments consistent", "Monitor credit utilization", "Consider credit limit increases"}},
	{650, CreditFair, "Fair credit - room for improvement.", []string{"Reduce credit utilization", "Pay bills on time", "Avoid new credit applications"}},
	{600, CreditPoor, "Credit needs attention.", []string{"Focus on payment history", "Reduce outstanding debt", "Consider credit counseling"}},
	{math.Inf(-1), CreditVeryPoor, "Credit requires immediate attention.", []string{"Prioritize debt repayment", "Establish payment history", "Consider secured credit options"}},
}

// ComputeCreditScore derives the simulated credit score.
func ComputeCreditScore(cfg CreditScoring, totals Totals, stability IncomeStability, health FinancialHealth, accounts []records.Account) CreditScore {
	var dti float64
	utilization := 1.0
	if totals.Income > 0 {
		dti = totals.Expenses / totals.Income
		if cfg.UtilizationIncomeShare > 0 {
			utilization = math.Min(1, totals.Expenses/(totals.Income*cfg.UtilizationIncomeShare))
		}
	}
	age := averageAccountAge(cfg, accounts)

	f := CreditFactors{
		PaymentHistory:    cfg.PaymentHistory.AtLeast(stability.Consistency),
		CreditUtilization: cfg.Utilization.AtMost(utilization),
		DebtToIncome:      cfg.DebtToIncome.AtMost(dti),
		CreditHistory:     cfg.History.AtLeast(age),
		StabilityBonus:    cfg.Stability.AtLeast(float64(health.Score)),
	}

	score := clamp(cfg.Base+f.Sum(), cfg.Min, cfg.Max)
	band := creditBandFor(score)

	return CreditScore{
		Score:           int(math.Round(score)),
		Category:        band.category,
		Message:         band.message,
		Recommendations: append([]string(nil), band.recommendations...),
		Factors:         f,
		Metrics: CreditMetrics{
			DebtToIncomeRatio: dti,
			CreditUtilization: utilization,
			AccountAgeMonths:  age,
			DebtToIncomePct:   fixed1(dti * 100),
			UtilizationPct:    fixed1(utilization * 100),
			AccountAgeDisplay: int(math.Round(age)),
		},
		Simulated: true,
		Label:     SimulatedLabel,
	}
}

// averageAccountAge averages account ages, capped at MaxAccountAgeMonths.
// Without accounts the default age is assumed.
func averageAccountAge(cfg CreditScoring, accounts []records.Account) float64 {
	if len(accounts) == 0 {
		return records.DefaultAccountAgeMonths
	}
	var sum float64
	for _, a := range accounts {
		age := a.AgeMonths
		if age <= 0 {
			age = records.DefaultAccountAgeMonths
		}
		sum += age
	}
	avg := sum / float64(len(accounts))
	if cfg.MaxAccountAgeMonths > 0 {
		avg = math.Min(avg, cfg.MaxAccountAgeMonths)
	}
	return avg
}

func creditBandFor(score float64) creditBand {
	for _, b := range creditBands {
		if score >= b.min {
			return b
		}
	}
	return creditBands[len(creditBands)-1]
}
