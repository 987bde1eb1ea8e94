// Package aggregation collapses row-level export records into the
// daily × campaign grain and recomputes rate metrics from aggregated sums.
package aggregation

import (
	"errors"
	"math"
	"sort"

	"campaign-signal-lab/internal/domain"
)

// ErrNoAggregatableColumns is returned when the input table carries none of
// the expected sum/mean/first columns. This indicates malformed upstream
// input, not a recoverable condition.
var ErrNoAggregatableColumns = errors.New("no aggregatable columns found in input table")

// AggregateDaily reduces a row-level export table to one row per
// (date, campaign_id[, campaign_name]).
//
// Aggregation rules:
//   - sum for volume counters (impressions, clicks, clicks_all, spend, actions)
//   - mean for upstream-reported rates (cpa, cpm, cost_per_1000_reach),
//     kept only as fallback display values
//   - first for descriptive fields (status, objective, start/end dates)
//
// After grouping, every rate metric that can be recomputed from aggregated
// components is recomputed (never averaged): ctr_link, ctr_all, cpc_link,
// cpc_all, cpm, cpa. Zero denominators yield nil, never zero or infinity.
// A component pair absent from the input leaves that derived metric out of
// the output column set entirely.
//
// Pure function: the input table is not modified. Empty input returns an
// empty table of the same shape.
func AggregateDaily(in *domain.RawTable) (*domain.DailyTable, error) {
	if in == nil || len(in.Rows) == 0 {
		out := &domain.DailyTable{}
		if in != nil {
			out.Metrics = append([]domain.Metric(nil), in.Metrics...)
			out.HasCampaignName = in.HasCampaignName
		}
		return out, nil
	}

	sumCols := intersect(domain.SumMetrics, in.Metrics)
	meanCols := intersect(domain.MeanMetrics, in.Metrics)

	if len(sumCols) == 0 && len(meanCols) == 0 && !hasDescriptiveColumns(in.Rows) {
		return nil, ErrNoAggregatableColumns
	}

	groups := groupRows(in)

	// Deterministic output order: (date, campaign_id, campaign_name).
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if c := a.key.date.Compare(b.key.date); c != 0 {
			return c < 0
		}
		if a.key.campaignID != b.key.campaignID {
			return a.key.campaignID < b.key.campaignID
		}
		return a.key.campaignName < b.key.campaignName
	})

	rows := make([]*domain.DailyRecord, len(groups))
	for i, g := range groups {
		rows[i] = g.finalize(sumCols, meanCols)
	}

	out := &domain.DailyTable{
		Metrics:         append(append([]domain.Metric(nil), sumCols...), meanCols...),
		HasCampaignName: in.HasCampaignName,
		Rows:            rows,
	}

	recomputeRates(out, in)

	return out, nil
}

type groupKey struct {
	date         domain.Date
	campaignID   string
	campaignName string
	nameDefined  bool
}

type group struct {
	key groupKey

	sums      map[domain.Metric]float64
	meanSums  map[domain.Metric]float64
	meanCount map[domain.Metric]int

	firstStatus    *string
	firstObjective *string
	firstStart     *domain.Date
	firstEnd       *domain.Date
}

func groupRows(in *domain.RawTable) []*group {
	byKey := make(map[groupKey]*group)
	var ordered []*group

	for _, r := range in.Rows {
		key := groupKey{date: r.Date, campaignID: r.CampaignID}
		if in.HasCampaignName {
			if r.CampaignName != nil {
				key.campaignName = *r.CampaignName
				key.nameDefined = true
			}
		}

		g, ok := byKey[key]
		if !ok {
			g = &group{
				key:       key,
				sums:      make(map[domain.Metric]float64),
				meanSums:  make(map[domain.Metric]float64),
				meanCount: make(map[domain.Metric]int),
			}
			byKey[key] = g
			ordered = append(ordered, g)
		}

		g.accumulate(r, in.Metrics)
	}

	return ordered
}

func (g *group) accumulate(r *domain.RawRecord, cols []domain.Metric) {
	for _, m := range cols {
		v := r.Value(m)
		if v == nil {
			continue
		}
		if domain.HasMetric(domain.SumMetrics, m) {
			g.sums[m] += *v
		} else if domain.HasMetric(domain.MeanMetrics, m) {
			g.meanSums[m] += *v
			g.meanCount[m]++
		}
	}

	// First non-nil descriptive value wins, in group order.
	if g.firstStatus == nil {
		g.firstStatus = r.CampaignStatus
	}
	if g.firstObjective == nil {
		g.firstObjective = r.CampaignObjective
	}
	if g.firstStart == nil {
		g.firstStart = r.CampaignStartDate
	}
	if g.firstEnd == nil {
		g.firstEnd = r.CampaignEndDate
	}
}

func (g *group) finalize(sumCols, meanCols []domain.Metric) *domain.DailyRecord {
	rec := &domain.DailyRecord{
		Date:              g.key.date,
		CampaignID:        g.key.campaignID,
		CampaignStatus:    g.firstStatus,
		CampaignObjective: g.firstObjective,
		CampaignStartDate: g.firstStart,
		CampaignEndDate:   g.firstEnd,
		Values:            make(map[domain.Metric]*float64, len(sumCols)+len(meanCols)),
	}
	if g.key.nameDefined {
		name := g.key.campaignName
		rec.CampaignName = &name
	}

	// Summed volume metrics are always defined: a group with only undefined
	// cells sums to zero.
	for _, m := range sumCols {
		v := g.sums[m]
		rec.Values[m] = &v
	}

	for _, m := range meanCols {
		if n := g.meanCount[m]; n > 0 {
			v := g.meanSums[m] / float64(n)
			rec.Values[m] = &v
		} else {
			rec.Values[m] = nil
		}
	}

	return rec
}

// recomputeRates derives each rate metric directly from its aggregated
// components. Recomputed values overwrite any mean-carried cell; a metric
// whose component pair is absent keeps the mean fallback when the source
// carried one and is otherwise left out of the column set.
func recomputeRates(out *domain.DailyTable, in *domain.RawTable) {
	type rate struct {
		metric domain.Metric
		num    domain.Metric
		den    domain.Metric
		scale  float64
	}

	rates := []rate{
		{domain.MetricCTRLink, domain.MetricClicks, domain.MetricImpressions, 1},
		{domain.MetricCTRAll, domain.MetricClicksAll, domain.MetricImpressions, 1},
		{domain.MetricCPCLink, domain.MetricSpend, domain.MetricClicks, 1},
		{domain.MetricCPCAll, domain.MetricSpend, domain.MetricClicksAll, 1},
		{domain.MetricCPM, domain.MetricSpend, domain.MetricImpressions, 1000},
		{domain.MetricCPA, domain.MetricSpend, domain.MetricActions, 1},
	}

	for _, rt := range rates {
		if !in.HasMetric(rt.num) || !in.HasMetric(rt.den) {
			continue
		}
		if !out.HasMetric(rt.metric) {
			out.Metrics = append(out.Metrics, rt.metric)
		}
		for _, row := range out.Rows {
			row.Values[rt.metric] = scaleVal(safeDiv(row.Value(rt.num), row.Value(rt.den)), rt.scale)
		}
	}
}

// safeDiv divides two nullable cells. Undefined operands and zero
// denominators yield nil; residual infinities are also routed to nil.
func safeDiv(num, den *float64) *float64 {
	if num == nil || den == nil || *den == 0 {
		return nil
	}
	v := *num / *den
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func scaleVal(v *float64, scale float64) *float64 {
	if v == nil || scale == 1 {
		return v
	}
	s := *v * scale
	if math.IsInf(s, 0) || math.IsNaN(s) {
		return nil
	}
	return &s
}

func intersect(candidates, present []domain.Metric) []domain.Metric {
	var out []domain.Metric
	for _, m := range candidates {
		if domain.HasMetric(present, m) {
			out = append(out, m)
		}
	}
	return out
}

func hasDescriptiveColumns(rows []*domain.RawRecord) bool {
	for _, r := range rows {
		if r.CampaignStatus != nil || r.CampaignObjective != nil ||
			r.CampaignStartDate != nil || r.CampaignEndDate != nil {
			return true
		}
	}
	return false
}
