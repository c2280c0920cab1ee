package gcsexport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

type bufferObject struct {
	bytes.Buffer
	closeErr error
	closed   bool
}

func (b *bufferObject) Close() error {
	b.closed = true
	return b.closeErr
}

func testReport() *analytics.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &analytics.Report{
		AccountID: "acc 7",
		Range:     analytics.MonthRange(start, start.AddDate(0, 5, 0)),
		Totals:    analytics.Totals{Income: 100, Expenses: 40, Net: 60},
	}
}

func TestObjectName(t *testing.T) {
	at := time.Date(2024, 6, 30, 8, 5, 9, 0, time.UTC)

	tests := []struct {
		name    string
		prefix  string
		user    string
		account string
		want    string
	}{
		{"escapes account", "reports", "u-1", "acc 7", "reports/u-1/2024-01_2024-06/acc%207-20240630T080509Z.json"},
		{"empty account is all", "/exports/", "u-2", "", "exports/u-2/2024-01_2024-06/all-20240630T080509Z.json"},
		{"escapes user", "reports", "a/b", "all", "reports/a%2Fb/2024-01_2024-06/all-20240630T080509Z.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := testReport()
			r.AccountID = tt.account
			if got := ObjectName(tt.prefix, tt.user, r, at); got != tt.want {
				t.Errorf("ObjectName() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWriteReport(t *testing.T) {
	ctx := logger.WithContext(context.Background(), zerolog.Nop())
	obj := &bufferObject{}
	var gotBucket, gotObject string

	w := NewWriterWithOpener("finance-exports", func(ctx context.Context, bucket, object string) io.WriteCloser {
		gotBucket, gotObject = bucket, object
		return obj
	})
	w.now = func() time.Time { return time.Date(2024, 6, 30, 8, 5, 9, 0, time.UTC) }

	uri, err := w.WriteReport(ctx, "u-1", testReport())
	if err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	if gotBucket != "finance-exports" {
		t.Errorf("bucket = %s", gotBucket)
	}
	if uri != "gs://finance-exports/"+gotObject {
		t.Errorf("uri = %s, object = %s", uri, gotObject)
	}
	if !obj.closed {
		t.Error("writer was not closed")
	}

	var decoded analytics.Report
	if err := json.Unmarshal(obj.Bytes(), &decoded); err != nil {
		t.Fatalf("uploaded body is not JSON: %v", err)
	}
	if decoded.Totals.Net != 60 {
		t.Errorf("decoded net = %v", decoded.Totals.Net)
	}
}

func TestWriteReportCloseError(t *testing.T) {
	ctx := logger.WithContext(context.Background(), zerolog.Nop())
	closeErr := errors.New("precondition failed")
	w := NewWriterWithOpener("b", func(context.Context, string, string) io.WriteCloser {
		return &bufferObject{closeErr: closeErr}
	})

	if _, err := w.WriteReport(ctx, "u-1", testReport()); !errors.Is(err, closeErr) {
		t.Errorf("WriteReport() error = %v, want %v", err, closeErr)
	}
}
