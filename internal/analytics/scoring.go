package analytics

// Band awards Points when a value crosses Threshold. How the comparison is
// made depends on the Bands method used.
type Band struct {
	Threshold float64
	Points    float64
}

// Bands is an ordered step function with a fallback.
type Bands struct {
	Steps []Band
	Else  float64
}

// Above returns the points of the first step with v > Threshold.
func (b Bands) Above(v float64) float64 {
	for _, s := range b.Steps {
		if v > s.Threshold {
			return s.Points
		}
	}
	return b.Else
}

// AtLeast returns the points of the first step with v >= Threshold.
func (b Bands) AtLeast(v float64) float64 {
	for _, s := range b.Steps {
		if v >= s.Threshold {
			return s.Points
		}
	}
	return b.Else
}

// AtMost returns the points of the first step with v <= Threshold.
func (b Bands) AtMost(v float64) float64 {
	for _, s := range b.Steps {
		if v <= s.Threshold {
			return s.Points
		}
	}
	return b.Else
}

// Max returns the largest value the bands can award.
func (b Bands) Max() float64 {
	m := b.Else
	for _, s := range b.Steps {
		if s.Points > m {
			m = s.Points
		}
	}
	return m
}

// HealthScoring holds the weights of the financial health score.
type HealthScoring struct {
	SavingsWeight   float64
	StabilityWeight float64
	// Growth is evaluated with Above on the income growth rate (percent).
	Growth Bands
	// ExpenseControl is evaluated with Above on the expense variability
	// (percent) of the last ExpenseWindow months.
	ExpenseControl        Bands
	ExpenseWindow         int
	ExpenseControlDefault float64
	BudgetWeight          float64
	BudgetDefault         float64
	MaxScore              float64

	// Factor thresholds below which a targeted recommendation is added.
	SavingsNudge        float64
	StabilityNudge      float64
	GrowthNudge         float64
	ExpenseControlNudge float64
	BudgetNudge         float64
	MaxRecommendations  int
}

// CreditScoring holds the weights of the simulated credit score.
type CreditScoring struct {
	Base float64
	Min  float64
	Max  float64
	// PaymentHistory is evaluated with AtLeast on income consistency.
	PaymentHistory Bands
	// Utilization and DebtToIncome are evaluated with AtMost on ratios.
	Utilization  Bands
	DebtToIncome Bands
	// History is evaluated with AtLeast on average account age in months.
	History Bands
	// Stability is evaluated with AtLeast on the rounded health score.
	Stability Bands
	// UtilizationIncomeShare is the share of income treated as a credit line.
	UtilizationIncomeShare float64
	MaxAccountAgeMonths    float64
}

// ScoringConfig groups every tunable constant used by the composite scores.
type ScoringConfig struct {
	Health HealthScoring
	Credit CreditScoring
}

// DefaultScoring returns the stock weights and bands.
func DefaultScoring() ScoringConfig {
	return ScoringConfig{
		Health: HealthScoring{
			SavingsWeight:   40,
			StabilityWeight: 25,
			Growth: Bands{
				Steps: []Band{{10, 15}, {5, 12}, {0, 8}, {-5, 5}},
				Else:  0,
			},
			ExpenseControl: Bands{
				Steps: []Band{{30, 5}, {20, 7}},
				Else:  10,
			},
			ExpenseWindow:         3,
			ExpenseControlDefault: 10,
			BudgetWeight:          10,
			BudgetDefault:         5,
			MaxScore:              100,

			SavingsNudge:        20,
			StabilityNudge:      15,
			GrowthNudge:         8,
			ExpenseControlNudge: 7,
			BudgetNudge:         7,
			MaxRecommendations:  5,
		},
		Credit: CreditScoring{
			Base: 300,
			Min:  300,
			Max:  850,
			PaymentHistory: Bands{
				Steps: []Band{{0.8, 35}, {0.6, 25}, {0.4, 15}},
				Else:  5,
			},
			Utilization: Bands{
				Steps: []Band{{0.1, 30}, {0.3, 25}, {0.5, 20}, {0.7, 15}},
				Else:  10,
			},
			DebtToIncome: Bands{
				Steps: []Band{{0.2, 20}, {0.3, 18}, {0.4, 15}, {0.5, 12}},
				Else:  8,
			},
			History: Bands{
				Steps: []Band{{60, 15}, {36, 12}, {24, 10}},
				Else:  8,
			},
			Stability: Bands{
				Steps: []Band{{80, 20}, {60, 15}, {40, 10}},
				Else:  5,
			},
			UtilizationIncomeShare: 0.3,
			MaxAccountAgeMonths:    84,
		},
	}
}
