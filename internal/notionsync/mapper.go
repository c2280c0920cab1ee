package notionsync

import (
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/dvloznov/finance-analytics/internal/analytics"
)

// Property names of the Notion reports database.
const (
	PropTitle          = "Report"
	PropReportKey      = "Report Key"
	PropUserID         = "User ID"
	PropAccount        = "Account"
	PropPeriodStart    = "Period Start"
	PropPeriodEnd      = "Period End"
	PropIncome         = "Income"
	PropExpenses       = "Expenses"
	PropNet            = "Net"
	PropHealthScore    = "Health Score"
	PropCreditScore    = "Credit Score"
	PropCreditCategory = "Credit Category"
	PropTopCategory    = "Top Category"
	PropGeneratedAt    = "Generated At"
)

// ReportKey identifies a report page: one per user, account and period.
func ReportKey(userID string, report *analytics.Report) string {
	account := report.AccountID
	if account == "" {
		account = analytics.AllAccounts
	}
	return strings.Join([]string{
		userID,
		account,
		report.Range.Start.Format("2006-01"),
		report.Range.End.Format("2006-01"),
	}, "|")
}

// ReportTitle renders the page title, e.g. "Jan 2024 to Jun 2024 (all)".
func ReportTitle(report *analytics.Report) string {
	start := report.Range.Start.Format("Jan 2006")
	end := report.Range.End.Format("Jan 2006")
	account := report.AccountID
	if account == "" {
		account = analytics.AllAccounts
	}
	if start == end {
		return start + " (" + account + ")"
	}
	return start + " to " + end + " (" + account + ")"
}

// ReportToNotionProperties converts a computed report to page properties.
func ReportToNotionProperties(userID string, report *analytics.Report) notionapi.Properties {
	props := notionapi.Properties{
		PropTitle: notionapi.TitleProperty{
			Title: richText(ReportTitle(report)),
		},
		PropReportKey: notionapi.RichTextProperty{
			RichText: richText(ReportKey(userID, report)),
		},
		PropUserID: notionapi.RichTextProperty{
			RichText: richText(userID),
		},
		PropIncome:      notionapi.NumberProperty{Number: report.Totals.Income},
		PropExpenses:    notionapi.NumberProperty{Number: report.Totals.Expenses},
		PropNet:         notionapi.NumberProperty{Number: report.Totals.Net},
		PropHealthScore: notionapi.NumberProperty{Number: float64(report.FinancialHealth.Score)},
		PropCreditScore: notionapi.NumberProperty{Number: float64(report.CreditScore.Score)},
	}

	account := report.AccountID
	if account == "" {
		account = analytics.AllAccounts
	}
	props[PropAccount] = notionapi.SelectProperty{Select: notionapi.Option{Name: account}}

	if report.CreditScore.Category != "" {
		props[PropCreditCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(report.CreditScore.Category)},
		}
	}

	if !report.Range.IsZero() {
		props[PropPeriodStart] = dateProperty(report.Range.Start)
		props[PropPeriodEnd] = dateProperty(report.Range.End)
	}
	if !report.GeneratedAt.IsZero() {
		props[PropGeneratedAt] = dateProperty(report.GeneratedAt)
	}

	// Largest expense category
	if len(report.CategorySpend.Items) > 0 {
		props[PropTopCategory] = notionapi.RichTextProperty{
			RichText: richText(report.CategorySpend.Items[0].Category),
		}
	}

	return props
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

func dateProperty(t time.Time) notionapi.DateProperty {
	d := notionapi.Date(t)
	return notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
}

// extractReportKey returns the Report Key of a page, or "" if missing.
func extractReportKey(page notionapi.Page) string {
	if prop, ok := page.Properties[PropReportKey]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
