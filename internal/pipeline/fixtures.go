package pipeline

import (
	"context"
	"math"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// FixtureDays is the length of the generated demo history.
const FixtureDays = 42

// LoadFixtures populates the raw store with deterministic demo data: two
// campaigns, six weeks of daily rows, two ad-level rows per campaign-day so
// the aggregation stage has real work to do. The second campaign's link
// clicks collapse over the final week, visible downstream as a sharp
// negative ctr_link momentum.
func LoadFixtures(ctx context.Context, rawStore storage.RawExportStore) error {
	start := domain.NewDate(2025, 6, 1)

	var rows []*domain.RawRecord
	rows = append(rows, fixtureCampaign(start, "120210000000000001", "prospecting_broad_v2", false)...)
	rows = append(rows, fixtureCampaign(start, "120210000000000002", "retargeting_30d", true)...)

	return rawStore.InsertBulk(ctx, rows)
}

func fixtureCampaign(start domain.Date, id, name string, degrade bool) []*domain.RawRecord {
	rows := make([]*domain.RawRecord, 0, FixtureDays*2)

	for day := 0; day < FixtureDays; day++ {
		date := start.AddDays(day)

		// Weekly seasonality around a stable base.
		season := 1 + 0.15*math.Sin(2*math.Pi*float64(day)/7)
		impressions := 20000 * season
		clickRate := 0.012
		if degrade && day >= FixtureDays-7 {
			// Creative fatigue: link clicks fall off while delivery holds.
			clickRate *= 0.5
		}
		clicks := impressions * clickRate
		clicksAll := clicks * 1.6
		spend := impressions * 0.0082
		actions := clicks * 0.11

		// Two ad-level rows per campaign-day; aggregation sums them back.
		for _, share := range []float64{0.6, 0.4} {
			row := &domain.RawRecord{
				Date:         date,
				CampaignID:   id,
				CampaignName: strPtr(name),
				Values: map[domain.Metric]*float64{
					domain.MetricImpressions: floatPtr(impressions * share),
					domain.MetricClicks:      floatPtr(clicks * share),
					domain.MetricClicksAll:   floatPtr(clicksAll * share),
					domain.MetricSpend:       floatPtr(spend * share),
					domain.MetricActions:     floatPtr(actions * share),
				},
			}
			rows = append(rows, row)
		}
	}

	return rows
}

func strPtr(s string) *string     { return &s }
func floatPtr(v float64) *float64 { return &v }
