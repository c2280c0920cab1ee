package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-analytics/internal/jobs"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

func quietContext() context.Context {
	return logger.WithContext(context.Background(), zerolog.Nop())
}

// waitForStatus polls the store until the job reaches status or times out.
func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.ExportJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == status {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach %s, last state %+v", jobID, status, job)
	return nil
}

func TestQueueProcessesJob(t *testing.T) {
	ctx := quietContext()
	store := NewStore()
	q := NewQueue(10, 2, store)
	defer q.Close()

	err := q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		job.(*jobs.ExportJob).Result = "gs://bucket/report.json"
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ExportJob{UserID: "u-1", Target: jobs.TargetGCS}
	if err := q.PublishExport(ctx, job); err != nil {
		t.Fatalf("PublishExport() error = %v", err)
	}
	if job.JobID == "" || job.MaxRetries != DefaultMaxRetries || job.CreatedAt.IsZero() {
		t.Errorf("defaults not applied: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.Result != "gs://bucket/report.json" || done.CompletedAt == nil {
		t.Errorf("completed job = %+v", done)
	}
}

func TestQueueRetriesThenFails(t *testing.T) {
	ctx := quietContext()
	store := NewStore()
	q := NewQueue(10, 1, store)
	q.Backoff = time.Millisecond
	defer q.Close()

	var attempts int32
	_ = q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("sink unavailable")
	})

	job := &jobs.ExportJob{UserID: "u-1", Target: jobs.TargetNotion, MaxRetries: 2}
	if err := q.PublishExport(ctx, job); err != nil {
		t.Fatalf("PublishExport() error = %v", err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.RetryCount != 2 || failed.Error != "sink unavailable" {
		t.Errorf("failed job = %+v", failed)
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("handler called %d times, want 3", got)
	}
}

func TestQueueRetrySucceeds(t *testing.T) {
	ctx := quietContext()
	store := NewStore()
	q := NewQueue(10, 1, store)
	q.Backoff = time.Millisecond
	defer q.Close()

	var attempts int32
	_ = q.Start(ctx, func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	})

	job := &jobs.ExportJob{UserID: "u-1", Target: jobs.TargetSnapshot}
	_ = q.PublishExport(ctx, job)

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.RetryCount != 1 || done.Error != "" {
		t.Errorf("job = %+v", done)
	}
}

func TestQueueRejects(t *testing.T) {
	ctx := quietContext()
	q := NewQueue(1, 1, NewStore())

	if err := q.PublishExport(ctx, &jobs.ExportJob{Target: "fax"}); err == nil {
		t.Error("PublishExport() accepted an unknown target")
	}

	_ = q.Close()
	if err := q.PublishExport(ctx, &jobs.ExportJob{Target: jobs.TargetGCS}); err == nil {
		t.Error("PublishExport() accepted a job after Close")
	}
	if err := q.Start(ctx, func(context.Context, jobs.Job) error { return nil }); err == nil {
		t.Error("Start() succeeded after Close")
	}
}
