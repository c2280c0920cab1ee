package bigquery

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-analytics/internal/analytics"
)

// SnapshotRow is one persisted report in the snapshots table.
type SnapshotRow struct {
	SnapshotID string `bigquery:"snapshot_id"` // REQUIRED
	UserID     string `bigquery:"user_id"`     // REQUIRED
	AccountID  string `bigquery:"account_id"`  // REQUIRED

	PeriodStart civil.Date `bigquery:"period_start"` // REQUIRED
	PeriodEnd   civil.Date `bigquery:"period_end"`   // REQUIRED

	Income      float64 `bigquery:"income"`
	Expenses    float64 `bigquery:"expenses"`
	Net         float64 `bigquery:"net"`
	HealthScore int64   `bigquery:"health_score"`
	CreditScore int64   `bigquery:"credit_score"`

	Report    bigquery.NullJSON `bigquery:"report"`     // REQUIRED (JSON)
	CreatedTS time.Time         `bigquery:"created_ts"` // REQUIRED
}

// NewSnapshotRow flattens report into a row. The full report is kept as JSON.
func NewSnapshotRow(id, userID string, report *analytics.Report, createdAt time.Time) (*SnapshotRow, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("NewSnapshotRow: marshal report: %w", err)
	}

	return &SnapshotRow{
		SnapshotID:  id,
		UserID:      userID,
		AccountID:   report.AccountID,
		PeriodStart: civil.DateOf(report.Range.Start),
		PeriodEnd:   civil.DateOf(report.Range.End),
		Income:      report.Totals.Income,
		Expenses:    report.Totals.Expenses,
		Net:         report.Totals.Net,
		HealthScore: int64(report.FinancialHealth.Score),
		CreditScore: int64(report.CreditScore.Score),
		Report:      bigquery.NullJSON{JSONVal: string(raw), Valid: true},
		CreatedTS:   createdAt.UTC(),
	}, nil
}

// DecodeReport unmarshals the stored report JSON.
func (r *SnapshotRow) DecodeReport() (*analytics.Report, error) {
	if !r.Report.Valid {
		return nil, fmt.Errorf("DecodeReport: snapshot %s has no report", r.SnapshotID)
	}
	var report analytics.Report
	if err := json.Unmarshal([]byte(r.Report.JSONVal), &report); err != nil {
		return nil, fmt.Errorf("DecodeReport: %w", err)
	}
	return &report, nil
}
