// Package features derives lag, rolling-window, momentum, cumulative and
// calendar features from the daily × campaign table. Each campaign's series
// is an independent chronologically ordered partition; no feature ever reads
// another campaign's rows or a future row.
package features

import (
	"math"
	"sort"

	"campaign-signal-lab/internal/domain"
)

// DefaultMinHistoryDays is the default per-campaign retention floor.
const DefaultMinHistoryDays = 7

var (
	lagOffsets  = []int{1, 7}
	rollWindows = []int{7, 14, 28}
)

// minObservations is the minimum non-nil observation count for a rolling
// window of size w. Windows with fewer qualifying observations yield nil so
// statistically unstable means never masquerade as baselines.
func minObservations(w int) int {
	if m := w / 2; m > 3 {
		return m
	}
	return 3
}

// Build produces the feature table from an aggregated daily table.
//
// Steps, per campaign series sorted by date ascending:
//  1. lag features at offsets {1, 7}
//  2. trailing rolling means over windows {7, 14, 28}, current row excluded
//  3. momentum: (current - lag_1) / lag_1, nil when lag_1 is nil or zero
//  4. retargeting_pool: running cumulative sum of actions, nil cells
//     counted as zero so gaps never break the chain
//  5. calendar: day_of_week (Monday=0) and ISO week number
//
// Rows missing any lag_1 or roll_7 value over the selected metrics are
// dropped; when minHistoryDays > 1, campaigns retaining fewer rows than that
// are dropped entirely. Empty input yields an empty, shape-preserving table.
func Build(in *domain.DailyTable, minHistoryDays int) *domain.FeatureTable {
	out := &domain.FeatureTable{}
	if in != nil {
		out.Metrics = selectMetrics(in.Metrics)
		out.HasCampaignName = in.HasCampaignName
		out.HasRetargetingPool = in.HasMetric(domain.MetricActions)
	}
	if in == nil || len(in.Rows) == 0 {
		return out
	}

	partitions := partitionByCampaign(in.Rows)

	for _, part := range partitions {
		rows := buildPartition(part, out.Metrics, out.HasRetargetingPool)
		rows = dropInsufficientHistory(rows, out.Metrics)
		if minHistoryDays > 1 && len(rows) < minHistoryDays {
			continue
		}
		out.Rows = append(out.Rows, rows...)
	}

	return out
}

// selectMetrics restricts the fixed candidate list to columns actually
// present, preserving the canonical order.
func selectMetrics(present []domain.Metric) []domain.Metric {
	var out []domain.Metric
	for _, m := range domain.BaseMetrics {
		if domain.HasMetric(present, m) {
			out = append(out, m)
		}
	}
	return out
}

// partitionByCampaign splits rows into per-campaign series sorted by date
// ascending. Partitions are ordered by campaign id so output is
// deterministic; each partition is independent and safe to process in
// parallel.
func partitionByCampaign(rows []*domain.DailyRecord) [][]*domain.DailyRecord {
	byCampaign := make(map[string][]*domain.DailyRecord)
	var ids []string
	for _, r := range rows {
		if _, ok := byCampaign[r.CampaignID]; !ok {
			ids = append(ids, r.CampaignID)
		}
		byCampaign[r.CampaignID] = append(byCampaign[r.CampaignID], r)
	}
	sort.Strings(ids)

	parts := make([][]*domain.DailyRecord, 0, len(ids))
	for _, id := range ids {
		series := byCampaign[id]
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})
		parts = append(parts, series)
	}
	return parts
}

// buildPartition computes all derived columns for one campaign's ordered
// series. Ordering is a correctness precondition: lags and rolling windows
// are defined over the chronological sequence.
func buildPartition(series []*domain.DailyRecord, metrics []domain.Metric, withPool bool) []*domain.FeatureRecord {
	out := make([]*domain.FeatureRecord, len(series))

	var pool float64

	for i, rec := range series {
		fr := &domain.FeatureRecord{
			DailyRecord: *rec,
			Features:    make(map[domain.Metric]*domain.MetricFeatures, len(metrics)),
			DayOfWeek:   rec.Date.DayOfWeek(),
			WeekNumber:  rec.Date.ISOWeek(),
		}

		for _, m := range metrics {
			mf := &domain.MetricFeatures{}

			for _, lag := range lagOffsets {
				if i-lag >= 0 {
					setLag(mf, lag, series[i-lag].Value(m))
				}
			}

			for _, w := range rollWindows {
				setRoll(mf, w, trailingMean(series, m, i, w))
			}

			mf.PctChange = pctChange(rec.Value(m), mf.Lag1)

			fr.Features[m] = mf
		}

		if withPool {
			if v := rec.Value(domain.MetricActions); v != nil {
				pool += *v
			}
			p := pool
			fr.RetargetingPool = &p
		}

		out[i] = fr
	}

	return out
}

// trailingMean averages metric m over the window of rows strictly before
// index i (shift by one, then window), returning nil when fewer than
// minObservations(w) non-nil values qualify.
func trailingMean(series []*domain.DailyRecord, m domain.Metric, i, w int) *float64 {
	start := i - w
	if start < 0 {
		start = 0
	}

	var sum float64
	var n int
	for j := start; j < i; j++ {
		if v := series[j].Value(m); v != nil {
			sum += *v
			n++
		}
	}

	if n < minObservations(w) {
		return nil
	}
	mean := sum / float64(n)
	if math.IsInf(mean, 0) || math.IsNaN(mean) {
		return nil
	}
	return &mean
}

// pctChange computes relative change versus the previous period. A zero or
// undefined previous value yields nil, never infinity.
func pctChange(cur, lag1 *float64) *float64 {
	if cur == nil || lag1 == nil || *lag1 == 0 {
		return nil
	}
	v := (*cur - *lag1) / *lag1
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

// dropInsufficientHistory removes rows lacking a defined lag_1 or roll_7 for
// any selected metric. Retained rows are exactly those that carry the
// minimal lookback; consumers never see partially populated feature rows.
func dropInsufficientHistory(rows []*domain.FeatureRecord, metrics []domain.Metric) []*domain.FeatureRecord {
	if len(metrics) == 0 {
		return rows
	}
	kept := rows[:0]
	for _, r := range rows {
		if hasFullHistory(r, metrics) {
			kept = append(kept, r)
		}
	}
	return kept
}

func hasFullHistory(r *domain.FeatureRecord, metrics []domain.Metric) bool {
	for _, m := range metrics {
		f := r.FeatureOf(m)
		if f == nil || f.Lag1 == nil || f.Roll7 == nil {
			return false
		}
	}
	return true
}

func setLag(f *domain.MetricFeatures, lag int, v *float64) {
	switch lag {
	case 1:
		f.Lag1 = v
	case 7:
		f.Lag7 = v
	}
}

func setRoll(f *domain.MetricFeatures, w int, v *float64) {
	switch w {
	case 7:
		f.Roll7 = v
	case 14:
		f.Roll14 = v
	case 28:
		f.Roll28 = v
	}
}
