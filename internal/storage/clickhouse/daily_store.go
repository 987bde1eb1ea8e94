package clickhouse

import (
	"context"
	"fmt"
	"time"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// DailyStore implements storage.DailyStore using ClickHouse. The
// daily_campaign table is wide: one Nullable column per base metric, one row
// per (date, campaign_id, campaign_name).
type DailyStore struct {
	conn *Conn
}

// NewDailyStore creates a new DailyStore.
func NewDailyStore(conn *Conn) *DailyStore {
	return &DailyStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyStore = (*DailyStore)(nil)

// metricColumns lists metric columns in table order.
var metricColumns = []domain.Metric{
	domain.MetricImpressions,
	domain.MetricClicks,
	domain.MetricClicksAll,
	domain.MetricSpend,
	domain.MetricActions,
	domain.MetricCPA,
	domain.MetricCPM,
	domain.MetricCostPer1000Reach,
	domain.MetricCTRLink,
	domain.MetricCTRAll,
	domain.MetricCPCLink,
	domain.MetricCPCAll,
}

const dailyColumns = `
	date, campaign_id, campaign_name,
	campaign_status, campaign_objective, campaign_start_date, campaign_end_date,
	impressions, clicks, clicks_all, spend, actions,
	cpa, cpm, cost_per_1000_reach, ctr_link, ctr_all, cpc_link, cpc_all
`

// InsertBulk adds records. Fails the entire batch on any duplicate key,
// checked explicitly since MergeTree does not enforce uniqueness.
func (s *DailyStore) InsertBulk(ctx context.Context, recs []*domain.DailyRecord) error {
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

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO daily_campaign (`+dailyColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range recs {
		args := []any{
			r.Date.Time(), r.CampaignID, r.CampaignName,
			r.CampaignStatus, r.CampaignObjective,
			nullableDate(r.CampaignStartDate), nullableDate(r.CampaignEndDate),
		}
		for _, m := range metricColumns {
			args = append(args, r.Value(m))
		}
		if err := batch.Append(args...); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByCampaignID retrieves records for a campaign, ordered by date ASC.
func (s *DailyStore) GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.DailyRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+dailyColumns+`
		FROM daily_campaign
		WHERE campaign_id = ?
		ORDER BY date ASC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query by campaign id: %w", err)
	}
	defer rows.Close()

	return scanDailyRecords(rows)
}

// GetAll retrieves all records, ordered by (campaign_id, date).
func (s *DailyStore) GetAll(ctx context.Context) ([]*domain.DailyRecord, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT `+dailyColumns+`
		FROM daily_campaign
		ORDER BY campaign_id ASC, date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()

	return scanDailyRecords(rows)
}

// TruncateAll removes every record.
func (s *DailyStore) TruncateAll(ctx context.Context) error {
	if err := s.conn.Exec(ctx, `TRUNCATE TABLE daily_campaign`); err != nil {
		return fmt.Errorf("truncate daily_campaign: %w", err)
	}
	return nil
}

func (s *DailyStore) exists(ctx context.Context, campaignID string, date domain.Date) (bool, error) {
	row := s.conn.QueryRow(ctx, `
		SELECT count() FROM daily_campaign
		WHERE campaign_id = ? AND date = ?
	`, campaignID, date.Time())

	var count uint64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanDailyRecords(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*domain.DailyRecord, error) {
	var out []*domain.DailyRecord

	for rows.Next() {
		var (
			rec       domain.DailyRecord
			date      time.Time
			startDate *time.Time
			endDate   *time.Time
			vals      = make([]*float64, len(metricColumns))
		)

		dest := []any{
			&date, &rec.CampaignID, &rec.CampaignName,
			&rec.CampaignStatus, &rec.CampaignObjective, &startDate, &endDate,
		}
		for i := range vals {
			dest = append(dest, &vals[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan daily record: %w", err)
		}

		rec.Date = domain.DateOf(date)
		if startDate != nil {
			d := domain.DateOf(*startDate)
			rec.CampaignStartDate = &d
		}
		if endDate != nil {
			d := domain.DateOf(*endDate)
			rec.CampaignEndDate = &d
		}

		rec.Values = make(map[domain.Metric]*float64)
		for i, m := range metricColumns {
			if vals[i] != nil {
				rec.Values[m] = vals[i]
			}
		}

		out = append(out, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily records: %w", err)
	}
	return out, nil
}

func nullableDate(d *domain.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
