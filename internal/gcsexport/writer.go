// Package gcsexport writes computed reports as JSON objects to Cloud Storage.
package gcsexport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// DefaultPrefix is the object prefix used when the Writer has none.
const DefaultPrefix = "reports"

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// ObjectOpener opens a writer for bucket/object.
type ObjectOpener func(ctx context.Context, bucket, object string) io.WriteCloser

// Writer uploads reports to a bucket.
type Writer struct {
	bucket string
	prefix string
	open   ObjectOpener
	client *storage.Client
	now    func() time.Time
}

// NewWriter creates a Writer backed by a Cloud Storage client. It assumes
// Application Default Credentials are configured.
func NewWriter(ctx context.Context, bucket string) (*Writer, error) {
	if bucket == "" {
		return nil, fmt.Errorf("NewWriter: bucket is required")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewWriter: create storage client: %w", err)
	}

	w := NewWriterWithOpener(bucket, func(ctx context.Context, bucket, object string) io.WriteCloser {
		ow := client.Bucket(bucket).Object(object).NewWriter(ctx)
		ow.ContentType = "application/json"
		return ow
	})
	w.client = client
	return w, nil
}

// NewWriterWithOpener creates a Writer that opens objects through open.
func NewWriterWithOpener(bucket string, open ObjectOpener) *Writer {
	return &Writer{bucket: bucket, prefix: DefaultPrefix, open: open, now: time.Now}
}

// Close releases the storage client, if any.
func (w *Writer) Close() error {
	if w.client != nil {
		return w.client.Close()
	}
	return nil
}

// ObjectName builds the object path for a report:
// <prefix>/<user>/<start>_<end>/<account>-<timestamp>.json with months as YYYY-MM.
func ObjectName(prefix, userID string, report *analytics.Report, at time.Time) string {
	period := report.Range.Start.Format("2006-01") + "_" + report.Range.End.Format("2006-01")
	account := report.AccountID
	if account == "" {
		account = analytics.AllAccounts
	}
	file := url.PathEscape(account) + "-" + at.UTC().Format("20060102T150405Z") + ".json"
	return path.Join(strings.Trim(prefix, "/"), url.PathEscape(userID), period, file)
}

// WriteReport uploads report as JSON and returns its gs:// URI.
func (w *Writer) WriteReport(ctx context.Context, userID string, report *analytics.Report) (string, error) {
	object := ObjectName(w.prefix, userID, report, w.now())

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	ow := w.open(ctx, w.bucket, object)

	enc := json.NewEncoder(ow)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		_ = ow.Close()
		return "", fmt.Errorf("WriteReport: encode report: %w", err)
	}

	// Close is what actually commits the object.
	if err := ow.Close(); err != nil {
		return "", fmt.Errorf("WriteReport: close writer for %s: %w", object, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", w.bucket, object)
	log := logger.FromContext(ctx)
	log.Info().Str("uri", uri).Msg("Exported report to GCS")
	return uri, nil
}
