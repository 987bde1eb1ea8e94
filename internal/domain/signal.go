package domain

// Severity is a discrete priority bucket derived from a deviation ratio.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityNormal   Severity = "normal"
	SeverityUnknown  Severity = "unknown"
)

// Rank orders severities for cross-metric aggregation:
// critical(3) > warning(2) > normal(1) > unknown(0).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityNormal:
		return 1
	default:
		return 0
	}
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// MetricSignal is the per-metric classification output for one row.
type MetricSignal struct {
	// Ratio is predicted / baseline, nil when the baseline is zero or
	// either side is undefined.
	Ratio    *float64
	Severity Severity
	// Flag is 1 when the ratio crosses the metric's alert threshold in the
	// adverse direction, 0 otherwise (including undefined ratios).
	Flag int
}

// SignalRecord extends a FeatureRecord with per-metric anomaly signals and
// the cross-metric summary fields. Signals holds entries only for metrics
// that were evaluable this run (prediction and baseline both present).
type SignalRecord struct {
	FeatureRecord

	Signals map[Metric]*MetricSignal

	// SignalCount is the sum of binary flags across evaluated metrics;
	// 0 when no metric could be evaluated.
	SignalCount int

	// MaxSeverity is the highest-ranked severity across evaluated metrics.
	// A row with zero evaluable metrics defaults to normal: absence of
	// signal is not itself an alert.
	MaxSeverity Severity
}

// SignalOf returns the signal for metric m, nil if m was not evaluated.
func (r *SignalRecord) SignalOf(m Metric) *MetricSignal {
	if r.Signals == nil {
		return nil
	}
	return r.Signals[m]
}

// SignalTable is the final signal artifact handed to the dashboard and
// explanation collaborators. SignalCount and MaxSeverity are guaranteed
// present on every row regardless of how many metrics were evaluable.
type SignalTable struct {
	Metrics         []Metric
	HasCampaignName bool

	// Evaluated lists the metrics that produced ratio/severity/flag columns
	// this run, in BaseMetrics order.
	Evaluated []Metric

	Rows []*SignalRecord
}

// WasEvaluated reports whether signal columns exist for m.
func (t *SignalTable) WasEvaluated(m Metric) bool {
	return HasMetric(t.Evaluated, m)
}
