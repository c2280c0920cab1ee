package analytics

import (
	"math"
	"time"

	"github.com/dvloznov/finance-analytics/internal/records"
)

// GoalStatus summarizes a goal projection.
type GoalStatus string

const (
	GoalNoDeadline GoalStatus = "no_deadline"
	GoalOnTrack    GoalStatus = "on_track"
	GoalAtRisk     GoalStatus = "at_risk"
)

// Projection messages.
const (
	MessageNoDeadline = "No deadline set."
	MessageOnTrack    = "On track to reach this goal before the deadline."
	MessageAtRisk     = "At current savings rate, you may miss the deadline."
)

const (
	msPerDay    = 24 * 60 * 60 * 1000
	daysInMonth = 30
)

// GoalInsight is the progress and deadline projection of one goal.
type GoalInsight struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	Target             float64    `json:"target"`
	Saved              float64    `json:"saved"`
	Remaining          float64    `json:"remaining"`
	ProgressPct        float64    `json:"progress_pct"`
	Deadline           *time.Time `json:"deadline,omitempty"`
	DaysRemaining      *int       `json:"days_remaining,omitempty"`
	MonthsToGo         *int       `json:"months_to_go,omitempty"`
	AvgMonthlySavings  float64    `json:"avg_monthly_savings"`
	Projected          float64    `json:"projected"`
	ProjectedShortfall float64    `json:"projected_shortfall"`
	Status             GoalStatus `json:"status"`
	Message            string     `json:"message"`
}

// AverageMonthlySavings is net savings over the series divided by its month
// count, 0 for an empty series.
func AverageMonthlySavings(s MonthlySeries) float64 {
	if s.Len() == 0 {
		return 0
	}
	var income, expenses float64
	for i := range s.Income {
		income += s.Income[i]
		expenses += s.Expenses[i]
	}
	return (income - expenses) / float64(s.Len())
}

// ProjectGoal projects g against avgSavings as of now.
func ProjectGoal(g records.Goal, avgSavings float64, now time.Time) GoalInsight {
	in := GoalInsight{
		ID:                g.ID,
		Name:              g.Name,
		Target:            g.Target,
		Saved:             g.Saved,
		Remaining:         math.Max(0, g.Target-g.Saved),
		AvgMonthlySavings: avgSavings,
		Deadline:          g.Deadline,
		Status:            GoalNoDeadline,
		Message:           MessageNoDeadline,
	}
	if g.Target > 0 {
		in.ProgressPct = math.Min(100, g.Saved/g.Target*100)
	}
	if g.Deadline == nil {
		return in
	}

	// Duration saturates near 292 years, so subtract epoch milliseconds.
	days := int(math.Ceil(float64(g.Deadline.UnixMilli()-now.UnixMilli()) / msPerDay))
	months := int(math.Max(0, math.Ceil(float64(days)/daysInMonth)))
	in.DaysRemaining = &days
	in.MonthsToGo = &months

	in.Projected = float64(months) * math.Max(0, avgSavings)
	if in.Projected >= in.Remaining {
		in.Status = GoalOnTrack
		in.Message = MessageOnTrack
	} else {
		in.ProjectedShortfall = in.Remaining - in.Projected
		in.Status = GoalAtRisk
		in.Message = MessageAtRisk
	}
	return in
}

// ProjectGoals projects every goal, preserving order.
func ProjectGoals(goals []records.Goal, s MonthlySeries, now time.Time) []GoalInsight {
	avg := AverageMonthlySavings(s)
	out := make([]GoalInsight, 0, len(goals))
	for _, g := range goals {
		out = append(out, ProjectGoal(g, avg, now))
	}
	return out
}
