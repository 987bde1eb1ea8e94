package storage

import (
	"context"

	"campaign-signal-lab/internal/domain"
)

// RawExportStore provides access to row-level export rows. Rows are not
// unique per (date, campaign): several ad-level rows may share the key.
type RawExportStore interface {
	// InsertBulk appends export rows.
	InsertBulk(ctx context.Context, rows []*domain.RawRecord) error

	// GetByDateRange retrieves rows with date in [start, end] (inclusive),
	// ordered by (campaign_id, date).
	GetByDateRange(ctx context.Context, start, end domain.Date) ([]*domain.RawRecord, error)

	// GetAll retrieves every stored row, ordered by (campaign_id, date).
	GetAll(ctx context.Context) ([]*domain.RawRecord, error)
}

// DailyStore provides access to the aggregated daily × campaign table.
type DailyStore interface {
	// InsertBulk adds records. Returns ErrDuplicateKey if a
	// (date, campaign_id, campaign_name) key repeats.
	InsertBulk(ctx context.Context, recs []*domain.DailyRecord) error

	// GetByCampaignID retrieves records for a campaign, ordered by date ASC.
	GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.DailyRecord, error)

	// GetAll retrieves all records, ordered by (campaign_id, date).
	GetAll(ctx context.Context) ([]*domain.DailyRecord, error)

	// TruncateAll removes every record. Pipeline runs recompute artifacts
	// in full; there is no incremental update.
	TruncateAll(ctx context.Context) error
}

// FeatureStore provides access to the feature-augmented table.
type FeatureStore interface {
	// InsertBulk adds records. Returns ErrDuplicateKey on a repeated key.
	InsertBulk(ctx context.Context, recs []*domain.FeatureRecord) error

	// GetByCampaignID retrieves records for a campaign, ordered by date ASC.
	GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.FeatureRecord, error)

	// TruncateAll removes every record.
	TruncateAll(ctx context.Context) error
}

// SignalStore provides access to the signal artifact.
type SignalStore interface {
	// InsertBulk adds records. Returns ErrDuplicateKey on a repeated key.
	InsertBulk(ctx context.Context, recs []*domain.SignalRecord) error

	// GetByCampaignID retrieves records for a campaign, ordered by date ASC.
	GetByCampaignID(ctx context.Context, campaignID string) ([]*domain.SignalRecord, error)

	// GetByDate retrieves records for one day, ordered by campaign_id.
	GetByDate(ctx context.Context, date domain.Date) ([]*domain.SignalRecord, error)

	// TruncateAll removes every record.
	TruncateAll(ctx context.Context) error
}

// RefreshCheckpoint records how far ingestion has advanced for an account.
type RefreshCheckpoint struct {
	AccountID    string
	LastDate     domain.Date
	RowsIngested int64
}

// CheckpointStore persists ingestion progress between refresh runs.
type CheckpointStore interface {
	// GetLastIngested returns the checkpoint for an account.
	// Returns ErrNotFound if no checkpoint exists yet.
	GetLastIngested(ctx context.Context, accountID string) (*RefreshCheckpoint, error)

	// SetLastIngested upserts the checkpoint for an account.
	SetLastIngested(ctx context.Context, cp *RefreshCheckpoint) error
}
