package reporting

import (
	"strings"
	"testing"
	"time"

	"campaign-signal-lab/internal/domain"
)

func testSignalTable() *domain.SignalTable {
	name := "Summer Sale"
	return &domain.SignalTable{
		Metrics:         []domain.Metric{domain.MetricSpend, domain.MetricCTRLink},
		HasCampaignName: true,
		Evaluated:       []domain.Metric{domain.MetricCTRLink},
		Rows: []*domain.SignalRecord{
			{
				FeatureRecord: domain.FeatureRecord{
					DailyRecord: domain.DailyRecord{
						Date:         domain.NewDate(2025, 6, 10),
						CampaignID:   "c1",
						CampaignName: &name,
						Values: map[domain.Metric]*float64{
							domain.MetricSpend:   domain.Float(80),
							domain.MetricCTRLink: domain.Float(0.01),
						},
					},
					Features: map[domain.Metric]*domain.MetricFeatures{
						domain.MetricCTRLink: {Roll7: domain.Float(0.02)},
					},
					Predictions: map[domain.Metric]*float64{
						domain.MetricCTRLink: domain.Float(0.012),
					},
				},
				Signals: map[domain.Metric]*domain.MetricSignal{
					domain.MetricCTRLink: {
						Ratio:    domain.Float(0.6),
						Severity: domain.SeverityCritical,
						Flag:     1,
					},
				},
				SignalCount: 1,
				MaxSeverity: domain.SeverityCritical,
			},
			{
				FeatureRecord: domain.FeatureRecord{
					DailyRecord: domain.DailyRecord{
						Date:       domain.NewDate(2025, 6, 10),
						CampaignID: "c2",
						Values: map[domain.Metric]*float64{
							domain.MetricSpend:   domain.Float(40),
							domain.MetricCTRLink: nil,
						},
					},
				},
				Signals: map[domain.Metric]*domain.MetricSignal{
					domain.MetricCTRLink: {Severity: domain.SeverityUnknown},
				},
				SignalCount: 0,
				MaxSeverity: domain.SeverityUnknown,
			},
		},
	}
}

func TestGenerator_Generate(t *testing.T) {
	gen := NewGenerator(nil).WithClock(func() time.Time {
		return time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC)
	})

	r := gen.Generate(testSignalTable())

	if r.RowCount != 2 || r.CampaignCount != 2 {
		t.Errorf("rows/campaigns = %d/%d, want 2/2", r.RowCount, r.CampaignCount)
	}
	if r.CriticalRows != 1 || r.UnknownRows != 1 {
		t.Errorf("severity distribution = %+v", r)
	}
	if r.DateRangeStart != domain.NewDate(2025, 6, 10) || r.DateRangeEnd != r.DateRangeStart {
		t.Errorf("date range = %s..%s", r.DateRangeStart, r.DateRangeEnd)
	}

	if len(r.MetricBreakdown) != 1 {
		t.Fatalf("breakdown rows = %d, want 1", len(r.MetricBreakdown))
	}
	br := r.MetricBreakdown[0]
	if br.Metric != domain.MetricCTRLink || br.Evaluated != 1 || br.Flagged != 1 || br.Critical != 1 {
		t.Errorf("breakdown = %+v", br)
	}

	if len(r.Alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(r.Alerts))
	}
	a := r.Alerts[0]
	if a.CampaignID != "c1" || a.Metric != domain.MetricCTRLink {
		t.Errorf("alert key = %s/%s", a.CampaignID, a.Metric)
	}
	if a.Ratio != 0.6 || a.Predicted != 0.012 || a.Baseline != 0.02 {
		t.Errorf("alert values = %+v", a)
	}
	if a.CampaignName != "Summer Sale" {
		t.Errorf("alert name = %q", a.CampaignName)
	}
}

func TestGenerator_EmptyTable(t *testing.T) {
	r := NewGenerator(nil).Generate(&domain.SignalTable{})
	if r.RowCount != 0 || len(r.Alerts) != 0 || len(r.MetricBreakdown) != 0 {
		t.Errorf("empty table report = %+v", r)
	}
}

func TestRenderSignalsCSV(t *testing.T) {
	out := RenderSignalsCSV(testSignalTable())
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}

	wantHeader := "date,campaign_id,campaign_name,spend,ctr_link," +
		"pred_ctr_link,ctr_link_ratio,ctr_link_severity,ctr_link_flag," +
		"signal_count,max_severity"
	if lines[0] != wantHeader {
		t.Errorf("header = %q, want %q", lines[0], wantHeader)
	}

	if !strings.HasPrefix(lines[1], "2025-06-10,c1,Summer Sale,") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[1], ",critical,1,1,critical") {
		t.Errorf("row 1 missing signal columns: %q", lines[1])
	}

	// Undefined cells render empty; the unknown row carries no flag.
	if !strings.Contains(lines[2], ",unknown,0,0,unknown") {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestRenderSignalsCSV_QuotesDelimiters(t *testing.T) {
	table := testSignalTable()
	name := `Promo "A", phase 2`
	table.Rows[0].CampaignName = &name

	out := RenderSignalsCSV(table)
	if !strings.Contains(out, `"Promo ""A"", phase 2"`) {
		t.Errorf("name not quoted: %q", out)
	}
}

func TestRenderMarkdown(t *testing.T) {
	gen := NewGenerator(nil).WithClock(func() time.Time {
		return time.Date(2025, 6, 11, 6, 0, 0, 0, time.UTC)
	})
	md := RenderMarkdown(gen.Generate(testSignalTable()))

	for _, want := range []string{
		"# Campaign Signal Report",
		"## Severity Distribution",
		"## Metric Breakdown",
		"## Alerts",
		"| ctr_link | 1 | 1 | 1 | 0 |",
		"Summer Sale",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdown_NoAlerts(t *testing.T) {
	md := RenderMarkdown(NewGenerator(nil).Generate(&domain.SignalTable{}))
	if !strings.Contains(md, "No alerts fired this run.") {
		t.Error("missing empty-alerts message")
	}
	if !strings.Contains(md, "No metrics were evaluated this run.") {
		t.Error("missing empty-breakdown message")
	}
}
