package domain

// BuildRawTable assembles a RawTable from loaded records. A metric column is
// considered present when any record carries a cell for it (defined or not);
// persisted artifacts omit cells for fully undefined columns, so an
// all-undefined column degrades to an absent one across a round trip, which
// is information-preserving for every downstream computation.
func BuildRawTable(rows []*RawRecord) *RawTable {
	t := &RawTable{Rows: rows}

	seen := make(map[Metric]bool)
	for _, r := range rows {
		for m := range r.Values {
			seen[m] = true
		}
		if r.CampaignName != nil {
			t.HasCampaignName = true
		}
	}

	for _, m := range BaseMetrics {
		if seen[m] {
			t.Metrics = append(t.Metrics, m)
		}
	}
	return t
}
