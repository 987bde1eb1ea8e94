// Package reporting renders signal tables into operator-facing artifacts:
// a wide CSV export and a Markdown daily summary.
package reporting

import (
	"time"

	"campaign-signal-lab/internal/domain"
)

// Report is the daily refresh summary handed to operators.
type Report struct {
	GeneratedAt time.Time

	// Data summary
	RowCount       int
	CampaignCount  int
	DateRangeStart domain.Date
	DateRangeEnd   domain.Date

	// Severity distribution over row-level max_severity.
	CriticalRows int
	WarningRows  int
	NormalRows   int
	UnknownRows  int

	// MetricBreakdown has one row per evaluated metric, in evaluation order.
	MetricBreakdown []MetricBreakdownRow

	// Alerts lists every flagged (row, metric) pair, sorted by severity rank
	// descending, then (date, campaign_id, metric).
	Alerts []AlertRow
}

// MetricBreakdownRow summarizes one evaluated metric across all rows.
type MetricBreakdownRow struct {
	Metric    domain.Metric
	Evaluated int // rows where the metric produced a defined ratio
	Flagged   int
	Critical  int
	Warning   int
}

// AlertRow is one flagged (row, metric) pair.
type AlertRow struct {
	Date         domain.Date
	CampaignID   string
	CampaignName string // empty when the column is absent or the cell is nil
	Metric       domain.Metric
	Predicted    float64
	Baseline     float64
	Ratio        float64
	Severity     domain.Severity
}
