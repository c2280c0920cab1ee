package bigquery

import (
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/finance-analytics/internal/analytics"
)

func TestNewSnapshotRow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	report := &analytics.Report{
		AccountID: "acc-1",
		Range:     analytics.MonthRange(start, start.AddDate(0, 2, 0)),
		Totals:    analytics.Totals{Income: 3000, Expenses: 1200.5, Net: 1799.5},
	}
	report.FinancialHealth.Score = 72
	report.CreditScore.Score = 640

	created := time.Date(2024, 3, 15, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	row, err := NewSnapshotRow("snap-1", "u-1", report, created)
	if err != nil {
		t.Fatalf("NewSnapshotRow() error = %v", err)
	}

	if row.PeriodStart != (civil.Date{Year: 2024, Month: time.January, Day: 1}) {
		t.Errorf("PeriodStart = %v", row.PeriodStart)
	}
	if row.PeriodEnd != (civil.Date{Year: 2024, Month: time.March, Day: 31}) {
		t.Errorf("PeriodEnd = %v", row.PeriodEnd)
	}
	if row.HealthScore != 72 || row.CreditScore != 640 || row.Net != 1799.5 {
		t.Errorf("row = %+v", row)
	}
	if row.CreatedTS.Location() != time.UTC {
		t.Errorf("CreatedTS not UTC: %v", row.CreatedTS)
	}
	if !row.Report.Valid || !strings.Contains(row.Report.JSONVal, `"account_id":"acc-1"`) {
		t.Errorf("Report JSON = %s", row.Report.JSONVal)
	}

	decoded, err := row.DecodeReport()
	if err != nil {
		t.Fatalf("DecodeReport() error = %v", err)
	}
	if decoded.Totals.Expenses != 1200.5 || decoded.CreditScore.Score != 640 {
		t.Errorf("decoded = %+v", decoded.Totals)
	}
}

func TestDecodeReportInvalid(t *testing.T) {
	row := &SnapshotRow{SnapshotID: "s"}
	if _, err := row.DecodeReport(); err == nil {
		t.Error("DecodeReport() on empty JSON returned nil error")
	}
}

func TestTableRef(t *testing.T) {
	ref := TableRef{ProjectID: "proj", DatasetID: "finance", Table: "report_snapshots"}
	if got := ref.FullName(); got != "`proj.finance.report_snapshots`" {
		t.Errorf("FullName() = %s", got)
	}
	sql := createSnapshotTableSQL(ref)
	if !strings.Contains(sql, "CREATE TABLE IF NOT EXISTS `proj.finance.report_snapshots`") {
		t.Errorf("create SQL = %s", sql)
	}
}
