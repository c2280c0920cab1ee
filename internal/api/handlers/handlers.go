package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/api/middleware"
	"github.com/dvloznov/finance-analytics/internal/backend"
	"github.com/dvloznov/finance-analytics/internal/jobs"
	"github.com/dvloznov/finance-analytics/internal/loader"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// monthLayout is the query parameter format for range bounds.
const monthLayout = "2006-01"

// ReportService computes reports from cached datasets.
type ReportService interface {
	Report(ctx context.Context, session backend.SessionContext, q analytics.Query) (*analytics.Report, error)
	Reload(ctx context.Context, session backend.SessionContext) (*backend.Dataset, error)
	Snapshot(userID string) (loader.Snapshot, bool)
}

// TargetChecker reports which export targets are configured.
type TargetChecker interface {
	Enabled(target jobs.ExportTarget) bool
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	var httpErr *backend.HTTPError
	switch {
	case errors.Is(err, backend.ErrNotLoggedIn):
		return http.StatusUnauthorized
	case errors.As(err, &httpErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage strips the operation prefix the loader adds.
func publicMessage(err error) string {
	if inner := errors.Unwrap(err); inner != nil {
		return inner.Error()
	}
	return err.Error()
}

// ParseQuery reads start, end (YYYY-MM) and account_id. Both bounds must be
// given together; without them the engine's default range applies.
func ParseQuery(values map[string][]string) (analytics.Query, error) {
	get := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}

	q := analytics.Query{AccountID: get("account_id")}
	startStr, endStr := get("start"), get("end")

	if startStr == "" && endStr == "" {
		return q, nil
	}
	if startStr == "" || endStr == "" {
		return q, fmt.Errorf("start and end must be given together")
	}

	start, err := time.Parse(monthLayout, startStr)
	if err != nil {
		return q, fmt.Errorf("invalid start %q, expected YYYY-MM", startStr)
	}
	end, err := time.Parse(monthLayout, endStr)
	if err != nil {
		return q, fmt.Errorf("invalid end %q, expected YYYY-MM", endStr)
	}
	if end.Before(start) {
		return q, fmt.Errorf("end %s is before start %s", endStr, startStr)
	}

	q.Range = analytics.MonthRange(start, end)
	return q, nil
}

// AnalyticsHandler serves computed reports.
type AnalyticsHandler struct {
	reports ReportService
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(reports ReportService) *AnalyticsHandler {
	return &AnalyticsHandler{reports: reports}
}

// GetReport handles GET /api/analytics
func (h *AnalyticsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.SessionFromContext(ctx)

	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.reports.Report(ctx, session, q)
	if err != nil {
		status := errorStatus(err)
		if status != http.StatusUnauthorized {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Msg("Failed to compute report")
		}
		middleware.WriteError(w, status, publicMessage(err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report)
}

// Reload handles POST /api/analytics/reload
func (h *AnalyticsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.SessionFromContext(ctx)

	ds, err := h.reports.Reload(ctx, session)
	if err != nil {
		snap, _ := h.reports.Snapshot(session.UserID)
		middleware.WriteJSON(w, errorStatus(err), map[string]interface{}{
			"error":        err.Error(),
			"has_previous": snap.Dataset != nil,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "reloaded",
		"fetched_at":   ds.FetchedAt,
		"accounts":     len(ds.Accounts),
		"transactions": len(ds.Transactions),
		"budgets":      len(ds.Budgets),
		"goals":        len(ds.Goals),
	})
}

// ExportsHandler enqueues report exports.
type ExportsHandler struct {
	publisher jobs.Publisher
	targets   TargetChecker
}

// NewExportsHandler creates a new exports handler. A nil targets accepts
// every known target.
func NewExportsHandler(publisher jobs.Publisher, targets TargetChecker) *ExportsHandler {
	return &ExportsHandler{publisher: publisher, targets: targets}
}

// CreateExport handles POST /api/exports
func (h *ExportsHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	session := middleware.SessionFromContext(ctx)
	if err := session.Validate(); err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req struct {
		Target    string `json:"target"`
		Start     string `json:"start"`
		End       string `json:"end"`
		AccountID string `json:"account_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	target := jobs.ExportTarget(req.Target)
	if !target.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Unknown export target %q", req.Target))
		return
	}
	if h.targets != nil && !h.targets.Enabled(target) {
		middleware.WriteError(w, http.StatusBadRequest, fmt.Sprintf("Export target %q is not configured", req.Target))
		return
	}

	q, err := ParseQuery(map[string][]string{
		"start":      {req.Start},
		"end":        {req.End},
		"account_id": {req.AccountID},
	})
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.ExportJob{
		UserID:  session.UserID,
		Target:  target,
		Query:   q,
		Session: session,
	}
	if err := h.publisher.PublishExport(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("target", req.Target).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"target": string(job.Target),
		"status": string(job.Status),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/{id}. Jobs of other users are reported as
// not found.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()
	session := middleware.SessionFromContext(ctx)
	if err := session.Validate(); err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil || job.UserID != session.UserID {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	session := middleware.SessionFromContext(ctx)
	if err := session.Validate(); err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, err.Error())
		return
	}

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: session.UserID,
		Target: jobs.ExportTarget(query.Get("target")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
