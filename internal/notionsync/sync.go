// Package notionsync publishes report summaries as pages of a Notion
// database. Pages are keyed so republishing a period updates in place.
package notionsync

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// ReportPublisher writes reports to one Notion database.
type ReportPublisher struct {
	service    NotionService
	databaseID string
	dryRun     bool
}

// NewReportPublisher creates a publisher. In dry-run mode no pages are
// created or updated.
func NewReportPublisher(service NotionService, databaseID string, dryRun bool) *ReportPublisher {
	return &ReportPublisher{service: service, databaseID: databaseID, dryRun: dryRun}
}

// PublishReport creates or updates the page for report and returns its ID.
func (p *ReportPublisher) PublishReport(ctx context.Context, userID string, report *analytics.Report) (string, error) {
	key := ReportKey(userID, report)
	log := logger.FromContext(ctx).With().Str("report_key", key).Logger()

	pages, err := queryAllPages(ctx, p.service, p.databaseID)
	if err != nil {
		return "", fmt.Errorf("PublishReport: query existing pages: %w", err)
	}

	var existing string
	for _, page := range pages {
		if extractReportKey(page) == key {
			existing = string(page.ID)
			break
		}
	}

	if p.dryRun {
		log.Info().Str("page_id", existing).Bool("update", existing != "").Msg("[DRY RUN] Would publish report to Notion")
		return existing, nil
	}

	props := ReportToNotionProperties(userID, report)

	if existing != "" {
		if _, err := p.service.UpdatePage(ctx, existing, props); err != nil {
			return "", fmt.Errorf("PublishReport: update page %s: %w", existing, err)
		}
		log.Info().Str("page_id", existing).Msg("Updated report page in Notion")
		return existing, nil
	}

	page, err := p.service.CreatePage(ctx, p.databaseID, props)
	if err != nil {
		return "", fmt.Errorf("PublishReport: create page: %w", err)
	}
	log.Info().Str("page_id", string(page.ID)).Msg("Created report page in Notion")
	return string(page.ID), nil
}
