package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// MockDB is a mock implementation of DB.
type MockDB struct {
	ExecFunc  func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryFunc func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (m *MockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (m *MockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.QueryFunc != nil {
		return m.QueryFunc(ctx, sql, args...)
	}
	return nil, errors.New("not implemented")
}

func sampleReport() *analytics.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &analytics.Report{
		AccountID: "all",
		Range:     analytics.MonthRange(start, start.AddDate(0, 5, 0)),
		Totals:    analytics.Totals{Income: 1000.126, Expenses: 400.5, Net: 599.626},
	}
	r.FinancialHealth.Score = 55
	r.CreditScore.Score = 610
	return r
}

func TestNewSnapshot(t *testing.T) {
	s, err := NewSnapshot("id-1", "u-1", sampleReport(), time.Date(2024, 6, 30, 23, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	if !s.Income.Equal(decimal.RequireFromString("1000.13")) {
		t.Errorf("Income = %s, want 1000.13", s.Income)
	}
	if got := s.PeriodEnd.Format("2006-01-02"); got != "2024-06-30" {
		t.Errorf("PeriodEnd = %s", got)
	}
	if s.PeriodEnd.Hour() != 0 {
		t.Errorf("PeriodEnd carries a time of day: %v", s.PeriodEnd)
	}

	decoded, err := s.DecodeReport()
	if err != nil {
		t.Fatalf("DecodeReport() error = %v", err)
	}
	if decoded.CreditScore.Score != 610 {
		t.Errorf("decoded credit score = %d", decoded.CreditScore.Score)
	}
}

func TestSaveSnapshot(t *testing.T) {
	ctx := logger.WithContext(context.Background(), zerolog.Nop())

	var gotSQL string
	var gotArgs []any
	db := &MockDB{ExecFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
		gotSQL, gotArgs = sql, args
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}}
	repo := NewSnapshotRepository(db)

	id, err := repo.SaveSnapshot(ctx, "u-1", sampleReport())
	if err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if !strings.Contains(gotSQL, "INSERT INTO report_snapshots") {
		t.Errorf("sql = %s", gotSQL)
	}
	if len(gotArgs) != 12 || gotArgs[0] != id || gotArgs[1] != "u-1" {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestRepositoryErrors(t *testing.T) {
	ctx := logger.WithContext(context.Background(), zerolog.Nop())
	dbErr := errors.New("connection refused")
	db := &MockDB{
		ExecFunc: func(context.Context, string, ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, dbErr
		},
		QueryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
			return nil, dbErr
		},
	}
	repo := NewSnapshotRepository(db)

	if err := repo.EnsureSchema(ctx); !errors.Is(err, dbErr) {
		t.Errorf("EnsureSchema() error = %v", err)
	}
	if _, err := repo.SaveSnapshot(ctx, "u-1", sampleReport()); !errors.Is(err, dbErr) {
		t.Errorf("SaveSnapshot() error = %v", err)
	}
	if _, err := repo.ListSnapshots(ctx, "u-1", 0); !errors.Is(err, dbErr) {
		t.Errorf("ListSnapshots() error = %v", err)
	}
}

func TestListSnapshotsDefaultLimit(t *testing.T) {
	var gotLimit any
	db := &MockDB{QueryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		gotLimit = args[1]
		return nil, errors.New("stop")
	}}
	_, _ = NewSnapshotRepository(db).ListSnapshots(context.Background(), "u-1", -1)
	if gotLimit != DefaultListLimit {
		t.Errorf("limit = %v, want %d", gotLimit, DefaultListLimit)
	}
}
