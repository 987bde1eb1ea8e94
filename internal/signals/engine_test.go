package signals

import (
	"testing"

	"campaign-signal-lab/internal/domain"
)

// featureRow builds a single-metric feature row with the given roll_7
// baseline and prediction.
func featureRow(m domain.Metric, baseline, pred *float64) *domain.FeatureRecord {
	return &domain.FeatureRecord{
		DailyRecord: domain.DailyRecord{
			Date:       domain.NewDate(2025, 6, 10),
			CampaignID: "c1",
		},
		Features:    map[domain.Metric]*domain.MetricFeatures{m: {Roll7: baseline}},
		Predictions: map[domain.Metric]*float64{m: pred},
	}
}

func featureTable(m domain.Metric, rows ...*domain.FeatureRecord) *domain.FeatureTable {
	return &domain.FeatureTable{
		Metrics:   []domain.Metric{m},
		Predicted: []domain.Metric{m},
		Rows:      rows,
	}
}

func TestSeverityFromRatio_Down(t *testing.T) {
	cases := []struct {
		ratio float64
		want  domain.Severity
	}{
		{0.60, domain.SeverityCritical},
		{0.69, domain.SeverityCritical},
		{0.70, domain.SeverityWarning},
		{0.80, domain.SeverityWarning},
		{0.85, domain.SeverityNormal},
		{0.95, domain.SeverityNormal},
		{1.20, domain.SeverityNormal},
	}
	for _, c := range cases {
		if got := SeverityFromRatio(domain.Float(c.ratio), domain.DirectionDown); got != c.want {
			t.Errorf("down ratio %.2f: got %s, want %s", c.ratio, got, c.want)
		}
	}
}

func TestSeverityFromRatio_Up(t *testing.T) {
	cases := []struct {
		ratio float64
		want  domain.Severity
	}{
		{1.60, domain.SeverityCritical},
		{1.51, domain.SeverityCritical},
		{1.50, domain.SeverityWarning},
		{1.30, domain.SeverityWarning},
		{1.20, domain.SeverityNormal},
		{1.05, domain.SeverityNormal},
		{0.50, domain.SeverityNormal},
	}
	for _, c := range cases {
		if got := SeverityFromRatio(domain.Float(c.ratio), domain.DirectionUp); got != c.want {
			t.Errorf("up ratio %.2f: got %s, want %s", c.ratio, got, c.want)
		}
	}
}

func TestSeverityFromRatio_NilIsUnknown(t *testing.T) {
	if got := SeverityFromRatio(nil, domain.DirectionDown); got != domain.SeverityUnknown {
		t.Errorf("nil ratio: got %s, want unknown", got)
	}
}

func TestGenerate_FlagsAdverseDeviation(t *testing.T) {
	engine := NewEngine(domain.DefaultRuleTable())

	// ctr_link predicted at 60% of baseline: below the 0.85 alert threshold
	// and inside the critical band.
	in := featureTable(domain.MetricCTRLink,
		featureRow(domain.MetricCTRLink, domain.Float(5), domain.Float(3)))

	out := engine.Generate(in)
	sig := out.Rows[0].SignalOf(domain.MetricCTRLink)

	if sig == nil {
		t.Fatal("expected a ctr_link signal")
	}
	if sig.Ratio == nil || *sig.Ratio != 0.6 {
		t.Errorf("ratio = %v, want 0.6", sig.Ratio)
	}
	if sig.Flag != 1 {
		t.Errorf("flag = %d, want 1", sig.Flag)
	}
	if sig.Severity != domain.SeverityCritical {
		t.Errorf("severity = %s, want critical", sig.Severity)
	}
	if out.Rows[0].SignalCount != 1 {
		t.Errorf("signal_count = %d, want 1", out.Rows[0].SignalCount)
	}
	if out.Rows[0].MaxSeverity != domain.SeverityCritical {
		t.Errorf("max_severity = %s, want critical", out.Rows[0].MaxSeverity)
	}
}

func TestGenerate_FavorableDeviationDoesNotFlag(t *testing.T) {
	engine := NewEngine(domain.DefaultRuleTable())

	// ctr_link 40% above baseline is good news for a down metric.
	in := featureTable(domain.MetricCTRLink,
		featureRow(domain.MetricCTRLink, domain.Float(0.02), domain.Float(0.028)))

	out := engine.Generate(in)
	sig := out.Rows[0].SignalOf(domain.MetricCTRLink)

	if sig.Flag != 0 {
		t.Errorf("flag = %d, want 0", sig.Flag)
	}
	if sig.Severity != domain.SeverityNormal {
		t.Errorf("severity = %s, want normal", sig.Severity)
	}
}

func TestGenerate_ZeroBaselineIsUnknown(t *testing.T) {
	engine := NewEngine(domain.DefaultRuleTable())

	in := featureTable(domain.MetricCPA,
		featureRow(domain.MetricCPA, domain.Float(0), domain.Float(3)))

	out := engine.Generate(in)
	sig := out.Rows[0].SignalOf(domain.MetricCPA)

	if sig.Ratio != nil {
		t.Errorf("ratio over zero baseline should be nil, got %v", *sig.Ratio)
	}
	if sig.Severity != domain.SeverityUnknown {
		t.Errorf("severity = %s, want unknown", sig.Severity)
	}
	if sig.Flag != 0 {
		t.Errorf("flag = %d, want 0", sig.Flag)
	}
	// unknown ranks below normal, so the row summary stays normal... but the
	// metric was evaluated, so max severity reflects the unknown outcome
	// being outranked by nothing else: unknown.
	if out.Rows[0].MaxSeverity != domain.SeverityUnknown {
		t.Errorf("max_severity = %s, want unknown", out.Rows[0].MaxSeverity)
	}
}

func TestGenerate_SkipsUnpredictedMetrics(t *testing.T) {
	engine := NewEngine(domain.DefaultRuleTable())

	in := &domain.FeatureTable{
		Metrics: []domain.Metric{domain.MetricCTRLink, domain.MetricCPA},
		// Only ctr_link carries a prediction column this run.
		Predicted: []domain.Metric{domain.MetricCTRLink},
		Rows: []*domain.FeatureRecord{
			{
				DailyRecord: domain.DailyRecord{Date: domain.NewDate(2025, 6, 10), CampaignID: "c1"},
				Features: map[domain.Metric]*domain.MetricFeatures{
					domain.MetricCTRLink: {Roll7: domain.Float(0.02)},
					domain.MetricCPA:     {Roll7: domain.Float(2)},
				},
				Predictions: map[domain.Metric]*float64{domain.MetricCTRLink: domain.Float(0.019)},
			},
		},
	}

	out := engine.Generate(in)

	if len(out.Evaluated) != 1 || out.Evaluated[0] != domain.MetricCTRLink {
		t.Fatalf("evaluated = %v, want [ctr_link]", out.Evaluated)
	}
	if sig := out.Rows[0].SignalOf(domain.MetricCPA); sig != nil {
		t.Error("cpa must not be evaluated without a prediction column")
	}
}

func TestGenerate_UnconfiguredMetricNeverEvaluated(t *testing.T) {
	engine := NewEngine(domain.DefaultRuleTable())

	// spend has no rule even when predicted.
	in := featureTable(domain.MetricSpend,
		featureRow(domain.MetricSpend, domain.Float(100), domain.Float(300)))

	out := engine.Generate(in)
	if len(out.Evaluated) != 0 {
		t.Fatalf("evaluated = %v, want none", out.Evaluated)
	}
	if out.Rows[0].MaxSeverity != domain.SeverityNormal {
		t.Errorf("row with no evaluable metrics: max_severity = %s, want normal", out.Rows[0].MaxSeverity)
	}
	if out.Rows[0].SignalCount != 0 {
		t.Errorf("signal_count = %d, want 0", out.Rows[0].SignalCount)
	}
}

func TestGenerate_SignalCountAndMaxSeverityAcrossMetrics(t *testing.T) {
	engine := NewEngine(domain.DefaultRuleTable())

	row := &domain.FeatureRecord{
		DailyRecord: domain.DailyRecord{Date: domain.NewDate(2025, 6, 10), CampaignID: "c1"},
		// ctr_link at 0.8x and cpa at 1.3x are both warnings and both
		// flagged; cpm at 1.0x stays normal.
		Features: map[domain.Metric]*domain.MetricFeatures{
			domain.MetricCTRLink: {Roll7: domain.Float(0.02)},
			domain.MetricCPA:     {Roll7: domain.Float(2)},
			domain.MetricCPM:     {Roll7: domain.Float(8)},
		},
		Predictions: map[domain.Metric]*float64{
			domain.MetricCTRLink: domain.Float(0.016),
			domain.MetricCPA:     domain.Float(2.6),
			domain.MetricCPM:     domain.Float(8),
		},
	}
	in := &domain.FeatureTable{
		Metrics:   []domain.Metric{domain.MetricCTRLink, domain.MetricCPA, domain.MetricCPM},
		Predicted: []domain.Metric{domain.MetricCTRLink, domain.MetricCPA, domain.MetricCPM},
		Rows:      []*domain.FeatureRecord{row},
	}

	out := engine.Generate(in)
	rec := out.Rows[0]

	if rec.SignalCount != 2 {
		t.Errorf("signal_count = %d, want 2", rec.SignalCount)
	}
	if rec.MaxSeverity != domain.SeverityWarning {
		t.Errorf("max_severity = %s, want warning", rec.MaxSeverity)
	}
}

func TestGenerate_CustomRuleTable(t *testing.T) {
	rules := domain.RuleTable{
		domain.MetricSpend: {Direction: domain.DirectionUp, Threshold: 1.25, BaselineWindow: 7},
	}
	engine := NewEngine(rules)

	in := featureTable(domain.MetricSpend,
		featureRow(domain.MetricSpend, domain.Float(100), domain.Float(180)))

	out := engine.Generate(in)
	sig := out.Rows[0].SignalOf(domain.MetricSpend)

	if sig == nil || sig.Flag != 1 {
		t.Fatalf("expected spend flagged under custom rule, got %+v", sig)
	}
	if sig.Severity != domain.SeverityCritical {
		t.Errorf("severity = %s, want critical (1.8 > 1.5)", sig.Severity)
	}
}

func TestGenerate_EmptyInput(t *testing.T) {
	engine := NewEngine(domain.DefaultRuleTable())
	out := engine.Generate(&domain.FeatureTable{})
	if len(out.Rows) != 0 || len(out.Evaluated) != 0 {
		t.Fatalf("expected empty output, got %d rows, %v evaluated", len(out.Rows), out.Evaluated)
	}
}
