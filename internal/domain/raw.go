package domain

// RawRecord is one row of an analytics export: a single (date, campaign)
// observation at whatever grain the platform delivered (ad, ad set, ...).
// Metric cells are nullable; a nil cell is an undefined value, distinct from
// the column being absent from the export (tracked on RawTable).
type RawRecord struct {
	Date         Date
	CampaignID   string
	CampaignName *string

	CampaignStatus    *string
	CampaignObjective *string
	CampaignStartDate *Date
	CampaignEndDate   *Date

	Values map[Metric]*float64
}

// Value returns the cell for metric m, nil if undefined.
func (r *RawRecord) Value(m Metric) *float64 {
	if r.Values == nil {
		return nil
	}
	return r.Values[m]
}

// RawTable is a row-level export table. Metrics lists the metric columns the
// export actually carries, in order; cells for metrics outside this set do
// not exist.
type RawTable struct {
	Metrics         []Metric
	HasCampaignName bool
	Rows            []*RawRecord
}

// HasMetric reports whether the table carries a column for m.
func (t *RawTable) HasMetric(m Metric) bool {
	return HasMetric(t.Metrics, m)
}
