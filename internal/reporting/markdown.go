package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders a report as a Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Campaign Signal Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Campaigns: %d | Rows: %d\n\n", r.CampaignCount, r.RowCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rows | %d |\n", r.RowCount))
	sb.WriteString(fmt.Sprintf("| Campaigns | %d |\n", r.CampaignCount))
	if r.RowCount > 0 {
		sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", r.DateRangeStart))
		sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", r.DateRangeEnd))
	}
	sb.WriteString("\n")

	// Severity Distribution
	sb.WriteString("## Severity Distribution\n\n")
	sb.WriteString("| Severity | Rows |\n")
	sb.WriteString("|----------|------|\n")
	sb.WriteString(fmt.Sprintf("| critical | %d |\n", r.CriticalRows))
	sb.WriteString(fmt.Sprintf("| warning | %d |\n", r.WarningRows))
	sb.WriteString(fmt.Sprintf("| normal | %d |\n", r.NormalRows))
	sb.WriteString(fmt.Sprintf("| unknown | %d |\n", r.UnknownRows))
	sb.WriteString("\n")

	// Metric Breakdown
	sb.WriteString("## Metric Breakdown\n\n")
	if len(r.MetricBreakdown) > 0 {
		sb.WriteString("| Metric | Evaluated | Flagged | Critical | Warning |\n")
		sb.WriteString("|--------|-----------|---------|----------|--------|\n")
		for _, m := range r.MetricBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d |\n",
				m.Metric, m.Evaluated, m.Flagged, m.Critical, m.Warning))
		}
	} else {
		sb.WriteString("No metrics were evaluated this run.\n")
	}
	sb.WriteString("\n")

	// Alerts
	sb.WriteString("## Alerts\n\n")
	if len(r.Alerts) > 0 {
		sb.WriteString("| Date | Campaign | Name | Metric | Predicted | Baseline | Ratio | Severity |\n")
		sb.WriteString("|------|----------|------|--------|-----------|----------|-------|----------|\n")
		for _, a := range r.Alerts {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %.4f | %.4f | %.4f | %s |\n",
				a.Date, a.CampaignID, a.CampaignName, a.Metric,
				a.Predicted, a.Baseline, a.Ratio, a.Severity))
		}
	} else {
		sb.WriteString("No alerts fired this run.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
