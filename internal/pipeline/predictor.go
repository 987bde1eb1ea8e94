package pipeline

import (
	"context"

	"campaign-signal-lab/internal/domain"
)

// Predictor is the seam for the external model collaborator. It attaches a
// pred_<metric> column to the feature table for each metric it models and
// records those metrics in table.Predicted. Metrics it does not model are
// simply left without a prediction column; the signal engine skips them.
type Predictor interface {
	Predict(ctx context.Context, table *domain.FeatureTable) error
}

// StubPredictor is a deterministic stand-in for fixture runs and tests:
// each modeled metric is predicted as Factor × its 7-day rolling baseline,
// so the resulting deviation ratio is exactly Factor wherever the baseline
// is defined.
type StubPredictor struct {
	Metrics []domain.Metric
	Factor  float64
}

// Predict attaches stub prediction columns.
func (p *StubPredictor) Predict(_ context.Context, table *domain.FeatureTable) error {
	for _, m := range p.Metrics {
		if !table.HasMetric(m) {
			continue
		}
		for _, row := range table.Rows {
			if row.Predictions == nil {
				row.Predictions = make(map[domain.Metric]*float64)
			}
			if baseline := row.FeatureOf(m).Roll7; baseline != nil {
				v := *baseline * p.Factor
				row.Predictions[m] = &v
			} else {
				row.Predictions[m] = nil
			}
		}
		if !table.HasPrediction(m) {
			table.Predicted = append(table.Predicted, m)
		}
	}
	return nil
}
