package clickhouse

import (
	"context"
	"fmt"
	"time"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// FeatureStore implements storage.FeatureStore using ClickHouse. The
// campaign_features table is long-format: one row per
// (date, campaign_id, metric) carrying the metric value and its six derived
// feature columns, with the row-level scalars (retargeting pool, calendar
// fields) denormalized onto every metric row.
type FeatureStore struct {
	conn *Conn
}

// NewFeatureStore creates a new FeatureStore.
func NewFeatureStore(conn *Conn) *FeatureStore {
	return &FeatureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.FeatureStore = (*FeatureStore)(nil)

const featureColumns = `
	date, campaign_id, campaign_name, metric,
	value, lag_1, lag_7, roll_7, roll_14, roll_28, pct_change,
	retargeting_pool, day_of_week, week_number
`

// InsertBulk adds records, exploding each into one row per derived metric.
// Fails the entire batch on any duplicate (date, campaign) key.
func (s *FeatureStore) InsertBulk(ctx context.Context, recs []*domain.FeatureRecord) error {
	if len(recs) == 0 {
		return nil
	}

	type key struct {
		campaignID string
		date       domain.Date
		name       string
	}
	seen := make(map[key]struct{}, len(recs))
	for _, r := range recs {
		if r == nil || r.CampaignID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		k := key{r.CampaignID, r.Date, strVal(r.CampaignName)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, r := range recs {
		exists, err := s.exists(ctx, r.CampaignID, r.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO campaign_features (`+featureColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range recs {
		for _, m := range orderedFeatureMetrics(r) {
			f := r.Features[m]
			err := batch.Append(
				r.Date.Time(), r.CampaignID, r.CampaignName, string(m),
				r.Value(m), f.Lag1, f.Lag7, f.Roll7, f.Roll14, f.Roll28, f.PctChange,
				r.RetargetingPool, uint8(r.DayOfWeek), uint16(r.WeekNumber),
			)
			if err != nil {
				return fmt.Errorf("append to batch: %w", err)
			}
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByCampaignID retrieves records for a campaign, ordered by date ASC,
// reassembling per-metric rows into FeatureRecords.
func (s *FeatureStore) GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.FeatureRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+featureColumns+`
		FROM campaign_features
		WHERE campaign_id = ?
		ORDER BY date ASC, metric ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query by campaign id: %w", err)
	}
	defer rows.Close()

	var (
		out []*domain.FeatureRecord
		cur *domain.FeatureRecord
	)

	for rows.Next() {
		var (
			date         time.Time
			cID          string
			name         *string
			metric       string
			value        *float64
			f            domain.MetricFeatures
			pool         *float64
			dayOfWeek    uint8
			weekNumber   uint16
		)

		err := rows.Scan(
			&date, &cID, &name, &metric,
			&value, &f.Lag1, &f.Lag7, &f.Roll7, &f.Roll14, &f.Roll28, &f.PctChange,
			&pool, &dayOfWeek, &weekNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan feature row: %w", err)
		}

		d := domain.DateOf(date)
		if cur == nil || cur.Date.Compare(d) != 0 {
			cur = &domain.FeatureRecord{
				DailyRecord: domain.DailyRecord{
					Date:         d,
					CampaignID:   cID,
					CampaignName: name,
					Values:       make(map[domain.Metric]*float64),
				},
				Features:        make(map[domain.Metric]*domain.MetricFeatures),
				RetargetingPool: pool,
				DayOfWeek:       int(dayOfWeek),
				WeekNumber:      int(weekNumber),
			}
			out = append(out, cur)
		}

		m := domain.Metric(metric)
		if value != nil {
			cur.Values[m] = value
		}
		fc := f
		cur.Features[m] = &fc
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return out, nil
}

// TruncateAll removes every record.
func (s *FeatureStore) TruncateAll(ctx context.Context) error {
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE campaign_features`); err != nil {
		return fmt.Errorf("truncate campaign_features: %w", err)
	}
	return nil
}

func (s *FeatureStore) exists(ctx context.Context, campaignID string, date domain.Date) (bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM campaign_features
		WHERE campaign_id = ? AND date = ?
	`, campaignID, date.Time())

	var count uint64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// orderedFeatureMetrics returns the record's feature metrics in canonical
// order for deterministic inserts.
func orderedFeatureMetrics(r *domain.FeatureRecord) []domain.Metric {
	var out []domain.Metric
	for _, m := range domain.BaseMetrics {
		if _, ok := r.Features[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
