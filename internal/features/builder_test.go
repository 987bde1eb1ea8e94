package features

import (
	"testing"

	"campaign-signal-lab/internal/domain"
)

// dailySeries builds one campaign's series with consecutive dates starting
// 2025-06-01 and the given spend values (nil cells allowed).
func dailySeries(id string, spend []*float64) *domain.DailyTable {
	start := domain.NewDate(2025, 6, 1)
	t := &domain.DailyTable{Metrics: []domain.Metric{domain.MetricSpend}}
	for i, v := range spend {
		t.Rows = append(t.Rows, &domain.DailyRecord{
			Date:       start.AddDays(i),
			CampaignID: id,
			Values:     map[domain.Metric]*float64{domain.MetricSpend: v},
		})
	}
	return t
}

func spendVals(vals ...float64) []*float64 {
	out := make([]*float64, len(vals))
	for i, v := range vals {
		out[i] = domain.Float(v)
	}
	return out
}

func featureByDay(t *testing.T, table *domain.FeatureTable, day int) *domain.FeatureRecord {
	t.Helper()
	date := domain.NewDate(2025, 6, day)
	for _, r := range table.Rows {
		if r.Date == date {
			return r
		}
	}
	t.Fatalf("no feature row for day %d", day)
	return nil
}

func TestBuild_TrailingMeanExcludesCurrentRow(t *testing.T) {
	in := dailySeries("c1", spendVals(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	out := Build(in, 1)

	// Day 10: window is days 3..9, mean = 6. The current value 10 must not
	// contribute.
	f := featureByDay(t, out, 10).FeatureOf(domain.MetricSpend)
	if f.Roll7 == nil || *f.Roll7 != 6 {
		t.Fatalf("roll_7 on day 10 = %v, want 6", f.Roll7)
	}
}

func TestBuild_Lags(t *testing.T) {
	in := dailySeries("c1", spendVals(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	out := Build(in, 1)
	f := featureByDay(t, out, 10).FeatureOf(domain.MetricSpend)

	if f.Lag1 == nil || *f.Lag1 != 9 {
		t.Errorf("lag_1 = %v, want 9", f.Lag1)
	}
	if f.Lag7 == nil || *f.Lag7 != 3 {
		t.Errorf("lag_7 = %v, want 3", f.Lag7)
	}
}

func TestBuild_PctChange(t *testing.T) {
	in := dailySeries("c1", spendVals(1, 2, 3, 4, 5, 6, 7, 8, 4, 10))

	out := Build(in, 1)

	// Day 9: (4 - 8) / 8 = -0.5
	f := featureByDay(t, out, 9).FeatureOf(domain.MetricSpend)
	if f.PctChange == nil || *f.PctChange != -0.5 {
		t.Errorf("pct_change = %v, want -0.5", f.PctChange)
	}
}

func TestBuild_PctChangeZeroLagIsNil(t *testing.T) {
	in := dailySeries("c1", spendVals(1, 2, 3, 4, 5, 6, 7, 0, 5, 10))

	out := Build(in, 1)

	// Day 9 has lag_1 == 0; the ratio is undefined, not infinite.
	f := featureByDay(t, out, 9).FeatureOf(domain.MetricSpend)
	if f.PctChange != nil {
		t.Errorf("pct_change over zero lag should be nil, got %v", *f.PctChange)
	}
}

func TestBuild_DropsRowsWithoutHistory(t *testing.T) {
	in := dailySeries("c1", spendVals(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	out := Build(in, 1)

	// roll_7 needs at least 3 trailing observations, so days 1-3 drop and
	// days 4-10 survive.
	if len(out.Rows) != 7 {
		t.Fatalf("expected 7 rows, got %d", len(out.Rows))
	}
	if out.Rows[0].Date != domain.NewDate(2025, 6, 4) {
		t.Errorf("first retained row = %s, want 2025-06-04", out.Rows[0].Date)
	}
}

func TestBuild_MinHistoryDropsShortCampaigns(t *testing.T) {
	in := dailySeries("c1", spendVals(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	// 7 rows survive history gating; a floor of 8 removes the whole campaign.
	out := Build(in, 8)
	if len(out.Rows) != 0 {
		t.Fatalf("expected campaign dropped, got %d rows", len(out.Rows))
	}

	out = Build(in, DefaultMinHistoryDays)
	if len(out.Rows) != 7 {
		t.Fatalf("expected 7 rows at the default floor, got %d", len(out.Rows))
	}
}

func TestBuild_RollingWindowSkipsNilCells(t *testing.T) {
	// Days 4-7 undefined: day 10's window (days 3..9) has only 3 defined
	// observations, exactly the minimum.
	in := dailySeries("c1", []*float64{
		domain.Float(1), domain.Float(2), domain.Float(3),
		nil, nil, nil, nil,
		domain.Float(8), domain.Float(9), domain.Float(10),
	})

	out := Build(in, 1)
	f := featureByDay(t, out, 10).FeatureOf(domain.MetricSpend)

	// mean(3, 8, 9) = 20/3
	want := 20.0 / 3.0
	if f.Roll7 == nil || *f.Roll7 != want {
		t.Fatalf("roll_7 = %v, want %v", f.Roll7, want)
	}
}

func TestBuild_RollingWindowBelowMinObservationsIsNil(t *testing.T) {
	in := dailySeries("c1", []*float64{
		domain.Float(1), domain.Float(2),
		nil, nil, nil, nil, nil,
		domain.Float(8), domain.Float(9), domain.Float(10),
	})

	out := Build(in, 1)

	// Day 9's window covers days 2..8 with only 2 defined values.
	for _, r := range out.Rows {
		if r.Date == domain.NewDate(2025, 6, 9) {
			t.Fatal("row without a stable roll_7 should have been dropped")
		}
	}
}

func TestBuild_CampaignsAreIndependent(t *testing.T) {
	a := dailySeries("a", spendVals(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	b := dailySeries("b", spendVals(100, 200, 300, 400, 500, 600, 700, 800, 900, 1000))
	in := &domain.DailyTable{
		Metrics: a.Metrics,
		Rows:    append(append([]*domain.DailyRecord(nil), a.Rows...), b.Rows...),
	}

	out := Build(in, 1)

	for _, r := range out.Rows {
		if r.CampaignID != "a" {
			continue
		}
		f := r.FeatureOf(domain.MetricSpend)
		if f.Lag1 != nil && *f.Lag1 >= 100 {
			t.Fatalf("campaign a lag_1 leaked a value from campaign b: %v", *f.Lag1)
		}
	}
}

func TestBuild_RetargetingPool(t *testing.T) {
	start := domain.NewDate(2025, 6, 1)
	in := &domain.DailyTable{
		Metrics: []domain.Metric{domain.MetricSpend, domain.MetricActions},
	}
	actions := []*float64{
		domain.Float(5), domain.Float(3), nil, domain.Float(2), domain.Float(1),
		domain.Float(4), domain.Float(6), domain.Float(2), domain.Float(1), domain.Float(3),
	}
	for i := 0; i < 10; i++ {
		in.Rows = append(in.Rows, &domain.DailyRecord{
			Date:       start.AddDays(i),
			CampaignID: "c1",
			Values: map[domain.Metric]*float64{
				domain.MetricSpend:   domain.Float(float64(i + 1)),
				domain.MetricActions: actions[i],
			},
		})
	}

	out := Build(in, 1)
	if !out.HasRetargetingPool {
		t.Fatal("actions column present but HasRetargetingPool is false")
	}

	// Day 10 pool: 5+3+0+2+1+4+6+2+1+3 = 27; the nil on day 3 counts as zero.
	r := featureByDay(t, out, 10)
	if r.RetargetingPool == nil || *r.RetargetingPool != 27 {
		t.Errorf("retargeting_pool = %v, want 27", r.RetargetingPool)
	}
}

func TestBuild_Calendar(t *testing.T) {
	in := dailySeries("c1", spendVals(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))

	out := Build(in, 1)

	// 2025-06-09 is a Monday in ISO week 24.
	r := featureByDay(t, out, 9)
	if r.DayOfWeek != 0 {
		t.Errorf("day_of_week = %d, want 0 (Monday)", r.DayOfWeek)
	}
	if r.WeekNumber != 24 {
		t.Errorf("week_number = %d, want 24", r.WeekNumber)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	out := Build(&domain.DailyTable{Metrics: []domain.Metric{domain.MetricSpend}}, DefaultMinHistoryDays)
	if len(out.Rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(out.Rows))
	}
	if !domain.HasMetric(out.Metrics, domain.MetricSpend) {
		t.Error("empty output should preserve the selected metric set")
	}
}

func TestMinObservations(t *testing.T) {
	cases := []struct{ w, want int }{
		{7, 3},
		{14, 7},
		{28, 14},
	}
	for _, c := range cases {
		if got := minObservations(c.w); got != c.want {
			t.Errorf("minObservations(%d) = %d, want %d", c.w, got, c.want)
		}
	}
}
