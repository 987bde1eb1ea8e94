package postgres

import (
	"context"
	"fmt"
	"time"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// CheckpointStore is a PostgreSQL implementation of storage.CheckpointStore.
// One row per ad account, upserted after every successful ingestion.
type CheckpointStore struct {
	pool *Pool
}

// NewCheckpointStore creates a new PostgreSQL checkpoint store.
func NewCheckpointStore(pool *Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// GetLastIngested returns the checkpoint for an account.
func (s *CheckpointStore) GetLastIngested(ctx context.Context, accountID string) (*storage.RefreshCheckpoint, error) {
	if accountID == "" {
		return nil, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT account_id, last_date, rows_ingested
		FROM refresh_checkpoint
		WHERE account_id = $1
	`, accountID)

	var (
		cp       storage.RefreshCheckpoint
		lastDate time.Time
	)
	if err := row.Scan(&cp.AccountID, &lastDate, &cp.RowsIngested); err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("scan checkpoint: %w", err)
	}

	cp.LastDate = domain.DateOf(lastDate)
	return &cp, nil
}

// SetLastIngested upserts the checkpoint for an account.
func (s *CheckpointStore) SetLastIngested(ctx context.Context, cp *storage.RefreshCheckpoint) error {
	if cp == nil || cp.AccountID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_checkpoint (account_id, last_date, rows_ingested, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (account_id) DO UPDATE
		SET last_date = EXCLUDED.last_date,
		    rows_ingested = EXCLUDED.rows_ingested,
		    updated_at = NOW()
	`, cp.AccountID, cp.LastDate.Time(), cp.RowsIngested)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}
