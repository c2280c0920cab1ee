package jobs

import (
	"context"
	"time"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/backend"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeExportReport represents a report export job.
	JobTypeExportReport JobType = "export_report"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job completed successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ExportTarget names where a report is sent.
type ExportTarget string

const (
	// TargetGCS writes the report JSON to Cloud Storage.
	TargetGCS ExportTarget = "gcs"
	// TargetSnapshot saves the report to the snapshot store.
	TargetSnapshot ExportTarget = "snapshot"
	// TargetNotion publishes a summary page to Notion.
	TargetNotion ExportTarget = "notion"
	// TargetNarrative asks Gemini for a written summary.
	TargetNarrative ExportTarget = "narrative"
)

// Targets lists every supported export target.
var Targets = []ExportTarget{TargetGCS, TargetSnapshot, TargetNotion, TargetNarrative}

// Valid reports whether t is a known export target.
func (t ExportTarget) Valid() bool {
	for _, known := range Targets {
		if t == known {
			return true
		}
	}
	return false
}

// ExportJob represents a job to compute a report and send it to a target.
type ExportJob struct {
	// JobID is the unique identifier for this job.
	JobID string `json:"job_id"`

	// UserID is the owner of the report.
	UserID string `json:"user_id"`

	// Target is where the report is exported.
	Target ExportTarget `json:"target"`

	// Query selects the report range and account.
	Query analytics.Query `json:"query"`

	// Session carries the credentials used to reload data. Never serialized.
	Session backend.SessionContext `json:"-"`

	// Result is the target-specific location of the exported report.
	Result string `json:"result,omitempty"`

	// Status is the current status of the job.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was created.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job started processing.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job completed (success or failure).
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Error contains error details if the job failed.
	Error string `json:"error,omitempty"`

	// RetryCount is the number of times this job has been retried.
	RetryCount int `json:"retry_count"`

	// MaxRetries is the maximum number of retries allowed.
	MaxRetries int `json:"max_retries"`
}

// Job is a generic interface for all job types.
type Job interface {
	// GetID returns the unique job identifier.
	GetID() string

	// GetType returns the job type.
	GetType() JobType

	// GetStatus returns the current job status.
	GetStatus() JobStatus
}

// GetID implements the Job interface.
func (j *ExportJob) GetID() string {
	return j.JobID
}

// GetType implements the Job interface.
func (j *ExportJob) GetType() JobType {
	return JobTypeExportReport
}

// GetStatus implements the Job interface.
func (j *ExportJob) GetStatus() JobStatus {
	return j.Status
}

// Publisher defines the interface for publishing jobs to a queue.
type Publisher interface {
	// PublishExport publishes a report export job.
	PublishExport(ctx context.Context, job *ExportJob) error

	// Close closes the publisher and releases resources.
	Close() error
}

// Consumer defines the interface for consuming jobs from a queue.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler is a function that processes a job.
// It should return an error if the job failed and should be retried.
type JobHandler func(ctx context.Context, job Job) error

// JobStore defines the interface for storing and retrieving job status.
type JobStore interface {
	// SaveJob saves or updates a job's state.
	SaveJob(ctx context.Context, job *ExportJob) error

	// GetJob retrieves a job by ID.
	GetJob(ctx context.Context, jobID string) (*ExportJob, error)

	// ListJobs retrieves jobs with optional filtering.
	ListJobs(ctx context.Context, filter JobFilter) ([]*ExportJob, error)

	// UpdateJobStatus updates the status of a job.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errorMsg string) error
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	// UserID filters jobs by owner.
	UserID string

	// Target filters jobs by export target.
	Target ExportTarget

	// Status filters jobs by status.
	Status JobStatus

	// Limit limits the number of results.
	Limit int

	// Offset for pagination.
	Offset int
}
