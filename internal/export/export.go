// Package export routes computed reports to their destinations and runs as
// the export job handler.
package export

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/backend"
	"github.com/dvloznov/finance-analytics/internal/jobs"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// Sink receives a report and returns where it ended up (object URI, row id,
// page id, or the generated text).
type Sink interface {
	Export(ctx context.Context, userID string, report *analytics.Report) (string, error)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, userID string, report *analytics.Report) (string, error)

// Export implements Sink.
func (f SinkFunc) Export(ctx context.Context, userID string, report *analytics.Report) (string, error) {
	return f(ctx, userID, report)
}

// ReportSource computes reports for a session.
type ReportSource interface {
	Report(ctx context.Context, session backend.SessionContext, q analytics.Query) (*analytics.Report, error)
}

// Dispatcher maps export targets to sinks.
type Dispatcher struct {
	source ReportSource
	sinks  map[jobs.ExportTarget]Sink
}

// NewDispatcher creates a Dispatcher drawing reports from source.
func NewDispatcher(source ReportSource) *Dispatcher {
	return &Dispatcher{source: source, sinks: make(map[jobs.ExportTarget]Sink)}
}

// Register installs sink for target, replacing any previous one.
func (d *Dispatcher) Register(target jobs.ExportTarget, sink Sink) {
	d.sinks[target] = sink
}

// Enabled reports whether target has a sink.
func (d *Dispatcher) Enabled(target jobs.ExportTarget) bool {
	_, ok := d.sinks[target]
	return ok
}

// Export sends report to target directly.
func (d *Dispatcher) Export(ctx context.Context, target jobs.ExportTarget, userID string, report *analytics.Report) (string, error) {
	sink, ok := d.sinks[target]
	if !ok {
		return "", fmt.Errorf("Export: target %q is not configured", target)
	}
	result, err := sink.Export(ctx, userID, report)
	if err != nil {
		return "", fmt.Errorf("Export: %s: %w", target, err)
	}
	return result, nil
}

// Handle implements jobs.JobHandler for export jobs.
func (d *Dispatcher) Handle(ctx context.Context, job jobs.Job) error {
	exportJob, ok := job.(*jobs.ExportJob)
	if !ok {
		return fmt.Errorf("Handle: unexpected job type %s", job.GetType())
	}

	log := logger.FromContext(ctx).With().
		Str("job_id", exportJob.JobID).
		Str("target", string(exportJob.Target)).
		Logger()
	ctx = logger.WithContext(ctx, log)

	report, err := d.source.Report(ctx, exportJob.Session, exportJob.Query)
	if err != nil {
		return fmt.Errorf("Handle: compute report: %w", err)
	}

	result, err := d.Export(ctx, exportJob.Target, exportJob.UserID, report)
	if err != nil {
		return err
	}
	exportJob.Result = result
	return nil
}
