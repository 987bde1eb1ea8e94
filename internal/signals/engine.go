// Package signals classifies predicted-vs-baseline deviations into
// prioritized anomaly signals. The engine performs no prediction itself: it
// is a deterministic classifier over externally supplied predictions and
// internally derived rolling baselines, parameterized by an immutable rule
// table.
package signals

import (
	"math"

	"campaign-signal-lab/internal/domain"
)

// Severity band cutoffs. Bands are fixed; only the binary alert threshold is
// per-metric configuration.
const (
	downCritical = 0.70
	downWarning  = 0.85
	upCritical   = 1.50
	upWarning    = 1.20
)

// Engine evaluates a feature table against a rule table.
type Engine struct {
	rules domain.RuleTable
}

// NewEngine creates a signal engine. The rule table is treated as immutable
// configuration; callers must not mutate it after construction.
func NewEngine(rules domain.RuleTable) *Engine {
	return &Engine{rules: rules}
}

// Generate computes per-metric ratio/severity/flag columns plus the
// cross-metric signal_count and max_severity summary for every row.
//
// A metric is evaluated only when both its prediction column and its
// configured baseline column exist in the input; anything else is silently
// skipped for the run, since not every metric is always modeled. The two
// summary fields are present on every row regardless.
func (e *Engine) Generate(in *domain.FeatureTable) *domain.SignalTable {
	out := &domain.SignalTable{}
	if in == nil {
		return out
	}
	out.Metrics = append([]domain.Metric(nil), in.Metrics...)
	out.HasCampaignName = in.HasCampaignName
	out.Evaluated = e.evaluableMetrics(in)

	out.Rows = make([]*domain.SignalRecord, len(in.Rows))
	for i, row := range in.Rows {
		out.Rows[i] = e.evaluateRow(row, out.Evaluated)
	}
	return out
}

// evaluableMetrics selects configured metrics whose prediction and baseline
// columns both exist, in canonical metric order.
func (e *Engine) evaluableMetrics(in *domain.FeatureTable) []domain.Metric {
	var out []domain.Metric
	for _, m := range domain.BaseMetrics {
		rule, ok := e.rules[m]
		if !ok {
			continue
		}
		if !in.HasPrediction(m) {
			continue
		}
		// The baseline column exists iff the metric was selected for
		// feature derivation; nil cells are handled per row.
		if !in.HasMetric(m) || !validWindow(rule.BaselineWindow) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (e *Engine) evaluateRow(row *domain.FeatureRecord, evaluated []domain.Metric) *domain.SignalRecord {
	rec := &domain.SignalRecord{
		FeatureRecord: *row,
		Signals:       make(map[domain.Metric]*domain.MetricSignal, len(evaluated)),
		MaxSeverity:   domain.SeverityNormal,
	}

	best := domain.SeverityUnknown
	any := false

	for _, m := range evaluated {
		rule := e.rules[m]
		baseline := row.FeatureOf(m).Roll(rule.BaselineWindow)
		ratio := ratioOf(row.Prediction(m), baseline)

		sig := &domain.MetricSignal{
			Ratio:    ratio,
			Severity: SeverityFromRatio(ratio, rule.Direction),
			Flag:     alertFlag(ratio, rule),
		}
		rec.Signals[m] = sig
		rec.SignalCount += sig.Flag

		best = domain.MaxSeverity(best, sig.Severity)
		any = true
	}

	if any {
		rec.MaxSeverity = best
	}
	return rec
}

// SeverityFromRatio classifies a deviation ratio into a severity band for
// the given direction. An undefined ratio is unknown, which is distinct
// from normal: it means the metric could not be judged, not that it is fine.
func SeverityFromRatio(ratio *float64, direction domain.Direction) domain.Severity {
	if ratio == nil {
		return domain.SeverityUnknown
	}
	r := *ratio
	switch direction {
	case domain.DirectionDown:
		if r < downCritical {
			return domain.SeverityCritical
		}
		if r < downWarning {
			return domain.SeverityWarning
		}
		return domain.SeverityNormal
	case domain.DirectionUp:
		if r > upCritical {
			return domain.SeverityCritical
		}
		if r > upWarning {
			return domain.SeverityWarning
		}
		return domain.SeverityNormal
	}
	return domain.SeverityNormal
}

// alertFlag is 1 when the ratio crosses the configured threshold in the
// adverse direction. Undefined ratios never raise the flag.
func alertFlag(ratio *float64, rule domain.Rule) int {
	if ratio == nil {
		return 0
	}
	switch rule.Direction {
	case domain.DirectionDown:
		if *ratio < rule.Threshold {
			return 1
		}
	case domain.DirectionUp:
		if *ratio > rule.Threshold {
			return 1
		}
	}
	return 0
}

// ratioOf divides prediction by baseline, routing zero baselines and
// undefined operands to nil.
func ratioOf(pred, baseline *float64) *float64 {
	if pred == nil || baseline == nil || *baseline == 0 {
		return nil
	}
	v := *pred / *baseline
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func validWindow(w int) bool {
	return w == 7 || w == 14 || w == 28
}
