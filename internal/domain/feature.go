package domain

// MetricFeatures holds the derived time-series columns for one base metric
// on one row. All fields are nullable: a nil value means the row lacked the
// trailing history (or the window lacked enough observations) to compute it.
type MetricFeatures struct {
	Lag1      *float64 // value 1 period earlier in the campaign's series
	Lag7      *float64 // value 7 periods earlier
	Roll7     *float64 // trailing 7-period mean, current row excluded
	Roll14    *float64 // trailing 14-period mean, current row excluded
	Roll28    *float64 // trailing 28-period mean, current row excluded
	PctChange *float64 // (current - lag_1) / lag_1, nil when lag_1 is nil or zero
}

// Roll returns the trailing mean for the given window size, nil for windows
// that are not computed.
func (f *MetricFeatures) Roll(window int) *float64 {
	if f == nil {
		return nil
	}
	switch window {
	case 7:
		return f.Roll7
	case 14:
		return f.Roll14
	case 28:
		return f.Roll28
	}
	return nil
}

// FeatureRecord extends a DailyRecord with derived time-series features.
// Predictions is populated by the external model collaborator before signal
// generation; it stays nil for metrics that were not modeled this run.
type FeatureRecord struct {
	DailyRecord

	Features map[Metric]*MetricFeatures

	// RetargetingPool is the per-campaign running cumulative sum of actions,
	// an audience-size proxy. nil only when the actions column is absent.
	RetargetingPool *float64

	DayOfWeek  int // Monday=0 .. Sunday=6
	WeekNumber int // ISO 8601 week

	Predictions map[Metric]*float64
}

// FeatureOf returns the derived features for metric m, nil if m was not a
// selected base metric.
func (r *FeatureRecord) FeatureOf(m Metric) *MetricFeatures {
	if r.Features == nil {
		return nil
	}
	return r.Features[m]
}

// Prediction returns the externally supplied predicted value for m, nil if
// the metric was not modeled or the cell is undefined.
func (r *FeatureRecord) Prediction(m Metric) *float64 {
	if r.Predictions == nil {
		return nil
	}
	return r.Predictions[m]
}

// FeatureTable is the feature-augmented daily table. Rows are a strict
// subset of the aggregated rows: every retained row has a defined lag_1 and
// roll_7 for every selected metric.
type FeatureTable struct {
	// Metrics is the selected base metric set, in BaseMetrics order.
	Metrics []Metric

	HasCampaignName    bool
	HasRetargetingPool bool

	// Predicted lists metrics with an attached prediction column.
	Predicted []Metric

	Rows []*FeatureRecord
}

// HasMetric reports whether m is a selected base metric.
func (t *FeatureTable) HasMetric(m Metric) bool {
	return HasMetric(t.Metrics, m)
}

// HasPrediction reports whether a prediction column exists for m.
func (t *FeatureTable) HasPrediction(m Metric) bool {
	return HasMetric(t.Predicted, m)
}
