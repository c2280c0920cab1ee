package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// SnapshotRepository persists computed reports in BigQuery. It holds a
// shared client to avoid creating a new connection for each operation.
type SnapshotRepository struct {
	client *bigquery.Client
	table  TableRef
	now    func() time.Time
}

// NewSnapshotRepository creates a SnapshotRepository for the given table.
func NewSnapshotRepository(ctx context.Context, table TableRef) (*SnapshotRepository, error) {
	if table.ProjectID == "" {
		return nil, fmt.Errorf("NewSnapshotRepository: project ID is required")
	}
	client, err := bigquery.NewClient(ctx, table.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewSnapshotRepository: creating client: %w", err)
	}
	return &SnapshotRepository{
		client: client,
		table:  table,
		now:    time.Now,
	}, nil
}

// Close closes the BigQuery client connection.
func (r *SnapshotRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EnsureSchema creates the snapshots table if needed.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	return EnsureSnapshotTableWithClient(ctx, r.client, r.table)
}

// SaveSnapshot stores report and returns the new snapshot ID.
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, userID string, report *analytics.Report) (string, error) {
	row, err := NewSnapshotRow(uuid.New().String(), userID, report, r.now())
	if err != nil {
		return "", err
	}
	if err := InsertSnapshotWithClient(ctx, r.client, r.table, row); err != nil {
		return "", err
	}

	log := logger.FromContext(ctx)
	log.Info().
		Str("snapshot_id", row.SnapshotID).
		Str("table", r.table.Table).
		Msg("Saved report snapshot to BigQuery")
	return row.SnapshotID, nil
}

// ListSnapshots delegates to ListSnapshotsWithClient with the shared client.
func (r *SnapshotRepository) ListSnapshots(ctx context.Context, userID string, limit int) ([]*SnapshotRow, error) {
	return ListSnapshotsWithClient(ctx, r.client, r.table, userID, limit)
}
