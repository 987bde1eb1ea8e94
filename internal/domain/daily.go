package domain

// DailyRecord is one row of the daily × campaign grain: the unit every
// downstream computation operates on. Key is (Date, CampaignID) plus
// CampaignName when the source carried one, so identical campaign ids with
// inconsistent names do not silently collapse.
type DailyRecord struct {
	Date         Date
	CampaignID   string
	CampaignName *string

	CampaignStatus    *string
	CampaignObjective *string
	CampaignStartDate *Date
	CampaignEndDate   *Date

	// Values holds summed volume metrics, mean-carried fallback rates and
	// recomputed rate metrics. nil is the undefined sentinel: zero
	// denominators never produce zero or infinity.
	Values map[Metric]*float64
}

// Value returns the cell for metric m, nil if undefined.
func (r *DailyRecord) Value(m Metric) *float64 {
	if r.Values == nil {
		return nil
	}
	return r.Values[m]
}

// DailyTable is the aggregated daily × campaign table. At most one row per
// (Date, CampaignID[, CampaignName]).
type DailyTable struct {
	Metrics         []Metric
	HasCampaignName bool
	Rows            []*DailyRecord
}

// HasMetric reports whether the table carries a column for m.
func (t *DailyTable) HasMetric(m Metric) bool {
	return HasMetric(t.Metrics, m)
}
