package notionsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// MockNotionService is a mock implementation of NotionService.
type MockNotionService struct {
	CreatePageFunc    func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
	UpdatePageFunc    func(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)
	QueryDatabaseFunc func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	return &notionapi.Page{ID: "new-page"}, nil
}

func (m *MockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.UpdatePageFunc != nil {
		return m.UpdatePageFunc(ctx, pageID, properties)
	}
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if m.QueryDatabaseFunc != nil {
		return m.QueryDatabaseFunc(ctx, databaseID, req)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func quietCtx() context.Context {
	return logger.WithContext(context.Background(), zerolog.Nop())
}

func publishReport() *analytics.Report {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &analytics.Report{
		AccountID: "all",
		Range:     analytics.MonthRange(start, start.AddDate(0, 5, 0)),
		Totals:    analytics.Totals{Income: 5000, Expenses: 3200, Net: 1800},
		CategorySpend: analytics.CategorySpend{
			Total: 3200,
			Items: []analytics.CategoryAmount{{Category: "Rent", Amount: 2000}, {Category: "Food", Amount: 1200}},
		},
	}
	r.CreditScore.Category = analytics.CreditFair
	r.CreditScore.Score = 610
	return r
}

func pageWithKey(id, key string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			PropReportKey: &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: key}},
			},
		},
	}
}

func TestReportToNotionProperties(t *testing.T) {
	props := ReportToNotionProperties("u-1", publishReport())

	title, ok := props[PropTitle].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "Jan 2024 to Jun 2024 (all)" {
		t.Errorf("title = %+v", props[PropTitle])
	}
	if net, ok := props[PropNet].(notionapi.NumberProperty); !ok || net.Number != 1800 {
		t.Errorf("net = %+v", props[PropNet])
	}
	if top, ok := props[PropTopCategory].(notionapi.RichTextProperty); !ok || top.RichText[0].Text.Content != "Rent" {
		t.Errorf("top category = %+v", props[PropTopCategory])
	}
	if _, ok := props[PropGeneratedAt]; ok {
		t.Error("Generated At set for a zero timestamp")
	}
	if got := ReportKey("u-1", publishReport()); got != "u-1|all|2024-01|2024-06" {
		t.Errorf("ReportKey() = %s", got)
	}
}

func TestPublishReport(t *testing.T) {
	key := ReportKey("u-1", publishReport())

	tests := []struct {
		name        string
		pages       []notionapi.Page
		dryRun      bool
		wantID      string
		wantCreated bool
		wantUpdated bool
	}{
		{"creates new page", []notionapi.Page{pageWithKey("other", "u-2|all|2024-01|2024-06")}, false, "new-page", true, false},
		{"updates existing page", []notionapi.Page{pageWithKey("p-1", key)}, false, "p-1", false, true},
		{"dry run writes nothing", []notionapi.Page{pageWithKey("p-1", key)}, true, "p-1", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created, updated bool
			svc := &MockNotionService{
				QueryDatabaseFunc: func(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
					return &notionapi.DatabaseQueryResponse{Results: tt.pages}, nil
				},
				CreatePageFunc: func(ctx context.Context, databaseID string, props notionapi.Properties) (*notionapi.Page, error) {
					created = true
					if databaseID != "db-1" {
						t.Errorf("databaseID = %s", databaseID)
					}
					return &notionapi.Page{ID: "new-page"}, nil
				},
				UpdatePageFunc: func(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
					updated = true
					return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
				},
			}

			id, err := NewReportPublisher(svc, "db-1", tt.dryRun).PublishReport(quietCtx(), "u-1", publishReport())
			if err != nil {
				t.Fatalf("PublishReport() error = %v", err)
			}
			if id != tt.wantID || created != tt.wantCreated || updated != tt.wantUpdated {
				t.Errorf("id = %s created = %v updated = %v", id, created, updated)
			}
		})
	}
}

func TestQueryAllPagesFollowsCursor(t *testing.T) {
	calls := 0
	svc := &MockNotionService{
		QueryDatabaseFunc: func(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			calls++
			if calls == 1 {
				if req.StartCursor != "" {
					t.Errorf("first request has cursor %q", req.StartCursor)
				}
				return &notionapi.DatabaseQueryResponse{
					Results:    []notionapi.Page{pageWithKey("a", "k1")},
					HasMore:    true,
					NextCursor: "c2",
				}, nil
			}
			if req.StartCursor != "c2" {
				t.Errorf("second cursor = %q", req.StartCursor)
			}
			return &notionapi.DatabaseQueryResponse{Results: []notionapi.Page{pageWithKey("b", "k2")}}, nil
		},
	}

	pages, err := queryAllPages(quietCtx(), svc, "db")
	if err != nil {
		t.Fatalf("queryAllPages() error = %v", err)
	}
	if len(pages) != 2 || calls != 2 {
		t.Errorf("pages = %d calls = %d", len(pages), calls)
	}
}

func TestPublishReportQueryError(t *testing.T) {
	queryErr := errors.New("rate limited")
	svc := &MockNotionService{
		QueryDatabaseFunc: func(context.Context, string, *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
			return nil, queryErr
		},
	}
	if _, err := NewReportPublisher(svc, "db", false).PublishReport(quietCtx(), "u-1", publishReport()); !errors.Is(err, queryErr) {
		t.Errorf("PublishReport() error = %v", err)
	}
}
