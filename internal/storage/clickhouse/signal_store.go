package clickhouse

import (
	"context"
	"fmt"
	"time"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using ClickHouse across two
// tables: campaign_signal_summary holds the guaranteed per-row fields
// (signal_count, max_severity), campaign_signal_metrics holds one row per
// evaluated metric. A row with zero evaluable metrics still gets a summary
// row, so the downstream contract holds regardless of coverage.
//
// Reads reassemble the signal fields; full feature lineage lives in
// campaign_features and is not duplicated here.
type SignalStore struct {
	conn *Conn
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(conn *Conn) *SignalStore {
	return &SignalStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

const summaryColumns = `
	date, campaign_id, campaign_name,
	signal_count, max_severity,
	retargeting_pool, day_of_week, week_number
`

const signalMetricColumns = `
	date, campaign_id, metric,
	predicted, ratio, severity, flag
`

// InsertBulk adds records. Fails the entire batch on any duplicate key.
func (s *SignalStore) InsertBulk(ctx context.Context, recs []*domain.SignalRecord) error {
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

	summary, err := s.conn.PrepareBatch(ctx, `INSERT INTO campaign_signal_summary (`+summaryColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare summary batch: %w", err)
	}

	for _, r := range recs {
		err := summary.Append(
			r.Date.Time(), r.CampaignID, r.CampaignName,
			uint32(r.SignalCount), string(r.MaxSeverity),
			r.RetargetingPool, uint8(r.DayOfWeek), uint16(r.WeekNumber),
		)
		if err != nil {
			return fmt.Errorf("append summary: %w", err)
		}
	}

	if err := summary.Send(); err != nil {
		return fmt.Errorf("send summary batch: %w", err)
	}

	metrics, err := s.conn.PrepareBatch(ctx, `INSERT INTO campaign_signal_metrics (`+signalMetricColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare metrics batch: %w", err)
	}

	for _, r := range recs {
		for _, m := range orderedSignalMetrics(r) {
			sig := r.Signals[m]
			err := metrics.Append(
				r.Date.Time(), r.CampaignID, string(m),
				r.Prediction(m), sig.Ratio, string(sig.Severity), uint8(sig.Flag),
			)
			if err != nil {
				return fmt.Errorf("append signal metric: %w", err)
			}
		}
	}

	if err := metrics.Send(); err != nil {
		return fmt.Errorf("send metrics batch: %w", err)
	}
	return nil
}

// GetByCampaignID retrieves records for a campaign, ordered by date ASC.
func (s *SignalStore) GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.SignalRecord, error) {
	return s.query(ctx, `campaign_id = ?`, `date ASC`, campaignID)
}

// GetByDate retrieves records for one day, ordered by campaign_id.
func (s *SignalStore) GetByDate(ctx context.Context, date domain.Date) ([]*domain.SignalRecord, error) {
	return s.query(ctx, `date = ?`, `campaign_id ASC`, date.Time())
}

// TruncateAll removes every record from both tables.
func (s *SignalStore) TruncateAll(ctx context.Context) error {
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE campaign_signal_summary`); err != nil {
		return fmt.Errorf("truncate campaign_signal_summary: %w", err)
	}
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE campaign_signal_metrics`); err != nil {
		return fmt.Errorf("truncate campaign_signal_metrics: %w", err)
	}
	return nil
}

func (s *SignalStore) query(ctx context.Context, where, order string, arg any) ([]*domain.SignalRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM campaign_signal_summary
		WHERE `+where+`
		ORDER BY `+order,
		arg)
	if err != nil {
		return nil, fmt.Errorf("query signal summary: %w", err)
	}
	defer rows.Close()

	var out []*domain.SignalRecord
	index := make(map[string]*domain.SignalRecord)

	for rows.Next() {
		var (
			date        time.Time
			rec         domain.SignalRecord
			signalCount uint32
			maxSeverity string
			pool        *float64
			dayOfWeek   uint8
			weekNumber  uint16
		)

		err := rows.Scan(
			&date, &rec.CampaignID, &rec.CampaignName,
			&signalCount, &maxSeverity,
			&pool, &dayOfWeek, &weekNumber,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal summary: %w", err)
		}

		rec.Date = domain.DateOf(date)
		rec.SignalCount = int(signalCount)
		rec.MaxSeverity = domain.Severity(maxSeverity)
		rec.RetargetingPool = pool
		rec.DayOfWeek = int(dayOfWeek)
		rec.WeekNumber = int(weekNumber)
		rec.Signals = make(map[domain.Metric]*domain.MetricSignal)
		rec.Predictions = make(map[domain.Metric]*float64)

		out = append(out, &rec)
		index[signalKey(rec.CampaignID, rec.Date)] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal summary: %w", err)
	}

	if len(out) == 0 {
		return nil, nil
	}

	mrows, err := s.conn.Query(ctx, `
		SELECT `+signalMetricColumns+`
		FROM campaign_signal_metrics
		WHERE `+where+`
		ORDER BY date ASC, campaign_id ASC, metric ASC
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("query signal metrics: %w", err)
	}
	defer mrows.Close()

	for mrows.Next() {
		var (
			date     time.Time
			cID      string
			metric   string
			pred     *float64
			ratio    *float64
			severity string
			flag     uint8
		)

		if err := mrows.Scan(&date, &cID, &metric, &pred, &ratio, &severity, &flag); err != nil {
			return nil, fmt.Errorf("scan signal metric: %w", err)
		}

		rec, ok := index[signalKey(cID, domain.DateOf(date))]
		if !ok {
			continue
		}
		m := domain.Metric(metric)
		rec.Signals[m] = &domain.MetricSignal{
			Ratio:    ratio,
			Severity: domain.Severity(severity),
			Flag:     int(flag),
		}
		if pred != nil {
			rec.Predictions[m] = pred
		}
	}
	if err := mrows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal metrics: %w", err)
	}

	return out, nil
}

func (s *SignalStore) exists(ctx context.Context, campaignID string, date domain.Date) (bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM campaign_signal_summary
		WHERE campaign_id = ? AND date = ?
	`, campaignID, date.Time())

	var count uint64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func signalKey(campaignID string, date domain.Date) string {
	return campaignID + "|" + date.String()
}

// orderedSignalMetrics returns the record's evaluated metrics in canonical
// order for deterministic inserts.
func orderedSignalMetrics(r *domain.SignalRecord) []domain.Metric {
	var out []domain.Metric
	for _, m := range domain.BaseMetrics {
		if _, ok := r.Signals[m]; ok {
			out = append(out, m)
		}
	}
	return out
}
