package analytics

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dvloznov/finance-analytics/internal/records"
)

// Hint thresholds.
const (
	leaderShareThreshold   = 0.35
	negativeMonthsWarning  = 2
	variabilityHintPercent = 40
)

var moneyPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatUSD renders v as US dollars with thousands separators.
func FormatUSD(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	if v < 0 {
		return moneyPrinter.Sprintf("-$%.2f", -v)
	}
	return moneyPrinter.Sprintf("$%.2f", v)
}

// BudgetCaps maps each category to the largest budget amount recorded for it.
func BudgetCaps(budgets []records.Budget) map[string]float64 {
	caps := make(map[string]float64, len(budgets))
	for _, b := range budgets {
		if b.Amount > caps[b.Category] {
			caps[b.Category] = b.Amount
		}
	}
	return caps
}

// OptimizationHints derives spending suggestions from the report parts.
func OptimizationHints(spend CategorySpend, series MonthlySeries, stability IncomeStability, budgets []records.Budget) []string {
	hints := []string{}

	if spend.Total > 0 && len(spend.Items) > 0 {
		leader := spend.Items[0]
		if share := leader.Amount / spend.Total; share >= leaderShareThreshold {
			hints = append(hints, fmt.Sprintf(
				"Your %q spends are %d%% of expenses. Consider setting a tighter budget or finding alternatives.",
				leader.Category, int(math.Round(share*100))))
		}
	}

	var negative int
	for _, v := range series.Net {
		if v < 0 {
			negative++
		}
	}
	if negative >= negativeMonthsWarning {
		hints = append(hints, fmt.Sprintf(
			"You ran a negative net balance in %d month(s) in this range. Review recurring subscriptions or large tickets.",
			negative))
	}

	if stability.VariabilityPct > variabilityHintPercent {
		hints = append(hints, fmt.Sprintf(
			"Income variability is %s%%. Consider building a larger emergency fund or smoothing income sources.",
			fixed1(stability.VariabilityPct)))
	}

	if len(budgets) > 0 {
		caps := BudgetCaps(budgets)
		for _, item := range spend.Items {
			limit := caps[item.Category]
			if limit > 0 && item.Amount > limit {
				hints = append(hints, fmt.Sprintf(
					"Category %q exceeded its budget (%s vs %s). Adjust your budget or spending.",
					item.Category, FormatUSD(item.Amount), FormatUSD(limit)))
			}
		}
	}
	return hints
}

// AccountOption is one entry of the account selector.
type AccountOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// AccountOptions lists the "all" selector followed by every account.
func AccountOptions(accounts []records.Account) []AccountOption {
	opts := make([]AccountOption, 0, len(accounts)+1)
	opts = append(opts, AccountOption{Value: AllAccounts, Label: "All Accounts"})
	for _, a := range accounts {
		opts = append(opts, AccountOption{Value: a.ID, Label: a.Name})
	}
	return opts
}
