package analytics

import "math"

// Trend classifies the direction of monthly income.
type Trend string

const (
	TrendGrowing   Trend = "growing"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// trendThreshold is the growth rate (percent) separating stable from growing
// or declining.
const trendThreshold = 5

// IncomeStability characterizes volatility and trend of monthly income.
type IncomeStability struct {
	Average           float64 `json:"average"`
	VariabilityPct    float64 `json:"variability_pct"`
	Consistency       float64 `json:"consistency"`
	MonthsWithIncome  int     `json:"months_with_income"`
	Highest           float64 `json:"highest"`
	HighestMonthIndex int     `json:"highest_month_index"`
	GrowthRate        float64 `json:"growth_rate"`
	Trend             Trend   `json:"trend"`
}

// HasIncome reports whether any month carried income.
func (s IncomeStability) HasIncome() bool { return s.Average > 0 }

// ComputeIncomeStability derives stability statistics from a monthly income
// series. An empty or all-zero series yields the neutral result with
// consistency 0.
func ComputeIncomeStability(income []float64) IncomeStability {
	s := IncomeStability{HighestMonthIndex: -1, Trend: TrendStable}
	if len(income) == 0 {
		return s
	}

	// Amounts are non-negative, so an all-zero series peaks at index 0.
	s.HighestMonthIndex = 0
	for i, v := range income {
		if v > 0 {
			s.MonthsWithIncome++
		}
		if v > s.Highest {
			s.Highest = v
			s.HighestMonthIndex = i
		}
	}

	s.Average = mean(income)
	if s.Average == 0 {
		return s
	}

	s.VariabilityPct = math.Min(100, stddev(income, s.Average)/s.Average*100)
	s.Consistency = clamp(1-s.VariabilityPct/100, 0, 1)

	if len(income) >= 2 {
		half := len(income) / 2
		first := mean(income[:half])
		second := mean(income[half:])
		if first > 0 {
			s.GrowthRate = (second - first) / first * 100
		}
		switch {
		case s.GrowthRate > trendThreshold:
			s.Trend = TrendGrowing
		case s.GrowthRate < -trendThreshold:
			s.Trend = TrendDeclining
		}
	}
	return s
}

// variabilityPct returns stddev/mean as a percentage, 0 when the mean is 0.
func variabilityPct(values []float64) float64 {
	m := mean(values)
	if m <= 0 {
		return 0
	}
	return stddev(values, m) / m * 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the population standard deviation around m.
func stddev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
