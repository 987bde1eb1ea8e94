package postgres

import (
	"context"
	"fmt"
	"time"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// RawExportStore implements storage.RawExportStore using PostgreSQL.
type RawExportStore struct {
	pool *Pool
}

// NewRawExportStore creates a new PostgreSQL raw export store.
func NewRawExportStore(pool *Pool) *RawExportStore {
	return &RawExportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawExportStore = (*RawExportStore)(nil)

// metricColumns maps table columns to metrics in insert/select order.
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

const rawExportColumns = `
	date, campaign_id, campaign_name,
	campaign_status, campaign_objective, campaign_start_date, campaign_end_date,
	impressions, clicks, clicks_all, spend, actions,
	cpa, cpm, cost_per_1000_reach, ctr_link, ctr_all, cpc_link, cpc_all
`

// InsertBulk appends export rows.
func (s *RawExportStore) InsertBulk(ctx context.Context, rows []*domain.RawRecord) error {
	if len(rows) == 0 {
		return nil
	}

	for _, r := range rows {
		if r == nil || r.CampaignID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range rows {
		args := []any{
			r.Date.Time(), r.CampaignID, r.CampaignName,
			r.CampaignStatus, r.CampaignObjective,
			dateArg(r.CampaignStartDate), dateArg(r.CampaignEndDate),
		}
		for _, m := range metricColumns {
			args = append(args, r.Value(m))
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO raw_export_rows (`+rawExportColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			        $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, args...)
		if err != nil {
			return fmt.Errorf("insert raw export row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByDateRange retrieves rows with date in [start, end], ordered by
// (campaign_id, date).
func (s *RawExportStore) GetByDateRange(ctx context.Context, start, end domain.Date) ([]*domain.RawRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+rawExportColumns+`
		FROM raw_export_rows
		WHERE date >= $1 AND date <= $2
		ORDER BY campaign_id ASC, date ASC, id ASC
	`, start.Time(), end.Time())
	if err != nil {
		return nil, fmt.Errorf("query raw rows by date range: %w", err)
	}
	defer rows.Close()

	return scanRawRecords(rows)
}

// GetAll retrieves every stored row, ordered by (campaign_id, date).
func (s *RawExportStore) GetAll(ctx context.Context) ([]*domain.RawRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+rawExportColumns+`
		FROM raw_export_rows
		ORDER BY campaign_id ASC, date ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query all raw rows: %w", err)
	}
	defer rows.Close()

	return scanRawRecords(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRawRecords(rows pgxRows) ([]*domain.RawRecord, error) {
	var out []*domain.RawRecord

	for rows.Next() {
		var (
			date       time.Time
			rec        domain.RawRecord
			startDate  *time.Time
			endDate    *time.Time
			metricVals = make([]*float64, len(metricColumns))
		)

		dest := []any{
			&date, &rec.CampaignID, &rec.CampaignName,
			&rec.CampaignStatus, &rec.CampaignObjective, &startDate, &endDate,
		}
		for i := range metricVals {
			dest = append(dest, &metricVals[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan raw export row: %w", err)
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

		// NULL cells stay absent from the map: a fully undefined column
		// degrades to an absent one (see domain.BuildRawTable).
		rec.Values = make(map[domain.Metric]*float64)
		for i, m := range metricColumns {
			if metricVals[i] != nil {
				rec.Values[m] = metricVals[i]
			}
		}

		out = append(out, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw export rows: %w", err)
	}
	return out, nil
}

func dateArg(d *domain.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time()
	return &t
}
