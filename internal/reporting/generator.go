package reporting

import (
	"sort"
	"time"

	"campaign-signal-lab/internal/domain"
)

// Generator produces reports from a signal table.
type Generator struct {
	rules domain.RuleTable
	now   func() time.Time // injectable clock for deterministic output
}

// NewGenerator creates a report generator. A nil rule table falls back to
// the built-in rules.
func NewGenerator(rules domain.RuleTable) *Generator {
	if rules == nil {
		rules = domain.DefaultRuleTable()
	}
	return &Generator{
		rules: rules,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a Report from one refresh run's signal table.
func (g *Generator) Generate(t *domain.SignalTable) *Report {
	r := &Report{GeneratedAt: g.now(), RowCount: len(t.Rows)}

	campaigns := make(map[string]struct{})
	for i, row := range t.Rows {
		campaigns[row.CampaignID] = struct{}{}
		if i == 0 || row.Date.Before(r.DateRangeStart) {
			r.DateRangeStart = row.Date
		}
		if i == 0 || r.DateRangeEnd.Before(row.Date) {
			r.DateRangeEnd = row.Date
		}

		switch row.MaxSeverity {
		case domain.SeverityCritical:
			r.CriticalRows++
		case domain.SeverityWarning:
			r.WarningRows++
		case domain.SeverityNormal:
			r.NormalRows++
		default:
			r.UnknownRows++
		}
	}
	r.CampaignCount = len(campaigns)

	r.MetricBreakdown = g.breakdown(t)
	r.Alerts = g.alerts(t)

	return r
}

func (g *Generator) breakdown(t *domain.SignalTable) []MetricBreakdownRow {
	rows := make([]MetricBreakdownRow, 0, len(t.Evaluated))
	for _, m := range t.Evaluated {
		br := MetricBreakdownRow{Metric: m}
		for _, row := range t.Rows {
			sig := row.SignalOf(m)
			if sig == nil || sig.Ratio == nil {
				continue
			}
			br.Evaluated++
			br.Flagged += sig.Flag
			switch sig.Severity {
			case domain.SeverityCritical:
				br.Critical++
			case domain.SeverityWarning:
				br.Warning++
			}
		}
		rows = append(rows, br)
	}
	return rows
}

func (g *Generator) alerts(t *domain.SignalTable) []AlertRow {
	var alerts []AlertRow
	for _, row := range t.Rows {
		for _, m := range t.Evaluated {
			sig := row.SignalOf(m)
			if sig == nil || sig.Flag == 0 || sig.Ratio == nil {
				continue
			}
			a := AlertRow{
				Date:       row.Date,
				CampaignID: row.CampaignID,
				Metric:     m,
				Ratio:      *sig.Ratio,
				Severity:   sig.Severity,
			}
			if row.CampaignName != nil {
				a.CampaignName = *row.CampaignName
			}
			if pred := row.Prediction(m); pred != nil {
				a.Predicted = *pred
			}
			if rule, ok := g.rules[m]; ok {
				if baseline := row.FeatureOf(m).Roll(rule.BaselineWindow); baseline != nil {
					a.Baseline = *baseline
				}
			}
			alerts = append(alerts, a)
		}
	}

	order := make(map[domain.Metric]int, len(t.Evaluated))
	for i, m := range t.Evaluated {
		order[m] = i
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if c := a.Date.Compare(b.Date); c != 0 {
			return c < 0
		}
		if a.CampaignID != b.CampaignID {
			return a.CampaignID < b.CampaignID
		}
		return order[a.Metric] < order[b.Metric]
	})

	return alerts
}
