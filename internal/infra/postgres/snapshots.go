// Package postgres stores report snapshots in PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// DefaultListLimit bounds ListSnapshots when no limit is given.
const DefaultListLimit = 20

const createSnapshotsTable = `
	CREATE TABLE IF NOT EXISTS report_snapshots (
		snapshot_id   UUID PRIMARY KEY,
		user_id       TEXT NOT NULL,
		account_id    TEXT NOT NULL,
		period_start  DATE NOT NULL,
		period_end    DATE NOT NULL,
		income        NUMERIC(14, 2) NOT NULL,
		expenses      NUMERIC(14, 2) NOT NULL,
		net           NUMERIC(14, 2) NOT NULL,
		health_score  INTEGER NOT NULL,
		credit_score  INTEGER NOT NULL,
		report        JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS report_snapshots_user_created_idx
		ON report_snapshots (user_id, created_at DESC);`

const insertSnapshot = `
	INSERT INTO report_snapshots (
		snapshot_id, user_id, account_id, period_start, period_end,
		income, expenses, net, health_score, credit_score, report, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const selectSnapshots = `
	SELECT snapshot_id::text AS snapshot_id, user_id, account_id, period_start, period_end,
		income, expenses, net, health_score, credit_score, report, created_at
	FROM report_snapshots
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2`

// DB is the subset of *pgxpool.Pool the repository needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Snapshot is a stored report row.
type Snapshot struct {
	SnapshotID  string          `db:"snapshot_id"`
	UserID      string          `db:"user_id"`
	AccountID   string          `db:"account_id"`
	PeriodStart time.Time       `db:"period_start"`
	PeriodEnd   time.Time       `db:"period_end"`
	Income      decimal.Decimal `db:"income"`
	Expenses    decimal.Decimal `db:"expenses"`
	Net         decimal.Decimal `db:"net"`
	HealthScore int             `db:"health_score"`
	CreditScore int             `db:"credit_score"`
	Report      []byte          `db:"report"`
	CreatedAt   time.Time       `db:"created_at"`
}

// NewSnapshot flattens report into a row. Money columns are rounded to cents.
func NewSnapshot(id, userID string, report *analytics.Report, createdAt time.Time) (*Snapshot, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("NewSnapshot: marshal report: %w", err)
	}
	return &Snapshot{
		SnapshotID:  id,
		UserID:      userID,
		AccountID:   report.AccountID,
		PeriodStart: dateOnly(report.Range.Start),
		PeriodEnd:   dateOnly(report.Range.End),
		Income:      decimal.NewFromFloat(report.Totals.Income).Round(2),
		Expenses:    decimal.NewFromFloat(report.Totals.Expenses).Round(2),
		Net:         decimal.NewFromFloat(report.Totals.Net).Round(2),
		HealthScore: report.FinancialHealth.Score,
		CreditScore: report.CreditScore.Score,
		Report:      raw,
		CreatedAt:   createdAt.UTC(),
	}, nil
}

// DecodeReport unmarshals the stored report JSON.
func (s *Snapshot) DecodeReport() (*analytics.Report, error) {
	var report analytics.Report
	if err := json.Unmarshal(s.Report, &report); err != nil {
		return nil, fmt.Errorf("DecodeReport: snapshot %s: %w", s.SnapshotID, err)
	}
	return &report, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SnapshotRepository persists reports in the report_snapshots table.
type SnapshotRepository struct {
	db  DB
	now func() time.Time
}

// NewSnapshotRepository wraps an existing connection pool or test double.
func NewSnapshotRepository(db DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

// Connect opens a pgxpool for databaseURL and checks it with a ping.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("Connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("Connect: ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the snapshots table and index if needed.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, createSnapshotsTable); err != nil {
		return fmt.Errorf("EnsureSchema: %w", err)
	}
	return nil
}

// SaveSnapshot stores report and returns the new snapshot ID.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, userID string, report *analytics.Report) (string, error) {
	s, err := NewSnapshot(uuid.New().String(), userID, report, r.now())
	if err != nil {
		return "", err
	}

	_, err = r.db.Exec(ctx, insertSnapshot,
		s.SnapshotID, s.UserID, s.AccountID, s.PeriodStart, s.PeriodEnd,
		s.Income, s.Expenses, s.Net, s.HealthScore, s.CreditScore, s.Report, s.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("SaveSnapshot: insert: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("snapshot_id", s.SnapshotID).
		Msg("Saved report snapshot to Postgres")
	return s.SnapshotID, nil
}

// ListSnapshots returns a user's snapshots, newest first.
func (r *SnapshotRepository) ListSnapshots(ctx context.Context, userID string, limit int) ([]*Snapshot, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(ctx, selectSnapshots, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ListSnapshots: query: %w", err)
	}
	snapshots, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[Snapshot])
	if err != nil {
		return nil, fmt.Errorf("ListSnapshots: scan: %w", err)
	}
	return snapshots, nil
}
