package narrative

import (
	"fmt"
	"strings"

	"github.com/dvloznov/finance-analytics/internal/analytics"
)

// maxPromptCategories bounds the category lines in the prompt.
const maxPromptCategories = 5

const rulesPrompt = "Rules:\n" +
	"- Write three short paragraphs: overall picture, spending, next steps.\n" +
	"- Use only the figures given above. Do not invent numbers.\n" +
	"- Mention that the credit score is a simulated estimate, not a bureau score.\n" +
	"- Plain text only. Do NOT use Markdown, headings or bullet lists.\n"

// BuildPrompt renders the report figures the model summarizes.
func BuildPrompt(report *analytics.Report) string {
	var b strings.Builder

	b.WriteString("You are a personal finance assistant. Summarize this report for its owner.\n\n")

	fmt.Fprintf(&b, "Period: %s to %s\n",
		report.Range.Start.Format("January 2006"), report.Range.End.Format("January 2006"))
	fmt.Fprintf(&b, "Account: %s\n", report.AccountID)
	fmt.Fprintf(&b, "Income: %s\n", analytics.FormatUSD(report.Totals.Income))
	fmt.Fprintf(&b, "Expenses: %s\n", analytics.FormatUSD(report.Totals.Expenses))
	fmt.Fprintf(&b, "Net: %s\n", analytics.FormatUSD(report.Totals.Net))

	fh := report.FinancialHealth
	fmt.Fprintf(&b, "Financial health: %d/100 (%s), savings rate %s\n",
		fh.Score, fh.Message, fh.Breakdown.SavingsRate)

	cs := report.CreditScore
	fmt.Fprintf(&b, "Credit score (simulated): %d, %s\n", cs.Score, cs.Category)

	if s := report.IncomeStability; s.HasIncome() {
		fmt.Fprintf(&b, "Income trend: %s, consistency %.0f%%\n", s.Trend, s.Consistency)
	}

	if items := report.CategorySpend.Items; len(items) > 0 {
		b.WriteString("\nTop expense categories:\n")
		for i, item := range items {
			if i == maxPromptCategories {
				break
			}
			fmt.Fprintf(&b, "- %s: %s\n", item.Category, analytics.FormatUSD(item.Amount))
		}
	}

	if len(report.Hints) > 0 {
		b.WriteString("\nObservations:\n")
		for _, h := range report.Hints {
			b.WriteString("- " + h + "\n")
		}
	}

	b.WriteString("\n" + rulesPrompt)
	return b.String()
}

// cleanModelText strips Markdown fences the model may add despite the rules.
func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		// Drop the opening fence line (``` or ```text).
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return strings.Trim(s, "`")
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}
