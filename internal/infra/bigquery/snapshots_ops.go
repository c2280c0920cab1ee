package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// DefaultListLimit bounds ListSnapshots when no limit is given.
const DefaultListLimit = 20

// TableRef identifies the snapshots table.
type TableRef struct {
	ProjectID string
	DatasetID string
	Table     string
}

// FullName returns the backtick-quoted project.dataset.table name.
func (t TableRef) FullName() string {
	return "`" + t.ProjectID + "." + t.DatasetID + "." + t.Table + "`"
}

// createSnapshotTableSQL is partitioned by period start so per-user history
// scans stay cheap.
func createSnapshotTableSQL(t TableRef) string {
	return `
		CREATE TABLE IF NOT EXISTS ` + t.FullName() + ` (
			snapshot_id   STRING NOT NULL,
			user_id       STRING NOT NULL,
			account_id    STRING NOT NULL,
			period_start  DATE NOT NULL,
			period_end    DATE NOT NULL,
			income        FLOAT64,
			expenses      FLOAT64,
			net           FLOAT64,
			health_score  INT64,
			credit_score  INT64,
			report        JSON NOT NULL,
			created_ts    TIMESTAMP NOT NULL
		)
		PARTITION BY period_start
		CLUSTER BY user_id
	`
}

// EnsureSnapshotTableWithClient creates the snapshots table if it does not exist.
func EnsureSnapshotTableWithClient(ctx context.Context, client *bigquery.Client, t TableRef) error {
	if err := runDML(ctx, client.Query(createSnapshotTableSQL(t))); err != nil {
		return fmt.Errorf("EnsureSnapshotTable: %w", err)
	}
	return nil
}

// InsertSnapshotWithClient inserts a single SnapshotRow. Uses DML INSERT to
// avoid streaming buffer issues on immediate reads.
func InsertSnapshotWithClient(ctx context.Context, client *bigquery.Client, t TableRef, row *SnapshotRow) error {
	q := client.Query(`
		INSERT INTO ` + t.FullName() + ` (
			snapshot_id, user_id, account_id,
			period_start, period_end,
			income, expenses, net,
			health_score, credit_score,
			report, created_ts
		)
		VALUES (
			@snapshot_id, @user_id, @account_id,
			@period_start, @period_end,
			@income, @expenses, @net,
			@health_score, @credit_score,
			PARSE_JSON(@report), @created_ts
		)
	`)

	q.Parameters = []bigquery.QueryParameter{
		{Name: "snapshot_id", Value: row.SnapshotID},
		{Name: "user_id", Value: row.UserID},
		{Name: "account_id", Value: row.AccountID},
		{Name: "period_start", Value: row.PeriodStart},
		{Name: "period_end", Value: row.PeriodEnd},
		{Name: "income", Value: row.Income},
		{Name: "expenses", Value: row.Expenses},
		{Name: "net", Value: row.Net},
		{Name: "health_score", Value: row.HealthScore},
		{Name: "credit_score", Value: row.CreditScore},
		{Name: "report", Value: row.Report.JSONVal},
		{Name: "created_ts", Value: row.CreatedTS},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertSnapshot: %w", err)
	}
	return nil
}

// ListSnapshotsWithClient returns a user's snapshots, newest first.
func ListSnapshotsWithClient(ctx context.Context, client *bigquery.Client, t TableRef, userID string, limit int) ([]*SnapshotRow, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := client.Query(`
		SELECT
			snapshot_id,
			user_id,
			account_id,
			period_start,
			period_end,
			income,
			expenses,
			net,
			health_score,
			credit_score,
			report,
			created_ts
		FROM ` + t.FullName() + `
		WHERE user_id = @user_id
		ORDER BY created_ts DESC
		LIMIT @limit
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: userID},
		{Name: "limit", Value: limit},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListSnapshots: query read: %w", err)
	}

	var rows []*SnapshotRow
	for {
		var r SnapshotRow
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListSnapshots: iter next: %w", err)
		}
		rows = append(rows, &r)
	}

	return rows, nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
