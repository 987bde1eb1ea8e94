package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/storage"
)

// Ingestor loads export files into the raw row store and advances the
// per-account refresh checkpoint.
type Ingestor struct {
	rawStore    storage.RawExportStore
	checkpoints storage.CheckpointStore
	log         zerolog.Logger
}

// NewIngestor creates a new Ingestor.
func NewIngestor(rawStore storage.RawExportStore, checkpoints storage.CheckpointStore, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		rawStore:    rawStore,
		checkpoints: checkpoints,
		log:         log,
	}
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	RowsLoaded  int
	RowsSkipped int
	LastDate    domain.Date
}

// IngestFile parses one export file, appends its rows to the raw store and
// upserts the account checkpoint to the latest date seen.
func (in *Ingestor) IngestFile(ctx context.Context, accountID, path string) (*IngestResult, error) {
	res, err := LoadExportFile(path)
	if err != nil {
		return nil, err
	}

	table := res.Table
	if len(table.Rows) == 0 {
		in.log.Warn().Str("path", path).Int("skipped", res.SkippedRows).
			Msg("export contained no usable rows")
		return &IngestResult{RowsSkipped: res.SkippedRows}, nil
	}

	if err := in.rawStore.InsertBulk(ctx, table.Rows); err != nil {
		return nil, fmt.Errorf("store raw rows: %w", err)
	}

	last := table.Rows[0].Date
	for _, r := range table.Rows[1:] {
		if last.Before(r.Date) {
			last = r.Date
		}
	}

	if err := in.advanceCheckpoint(ctx, accountID, last, int64(len(table.Rows))); err != nil {
		return nil, err
	}

	in.log.Info().
		Str("account_id", accountID).
		Str("path", path).
		Int("rows", len(table.Rows)).
		Int("skipped", res.SkippedRows).
		Str("last_date", last.String()).
		Msg("export ingested")

	return &IngestResult{
		RowsLoaded:  len(table.Rows),
		RowsSkipped: res.SkippedRows,
		LastDate:    last,
	}, nil
}

// advanceCheckpoint moves the checkpoint forward, never backward: re-running
// an older export must not regress progress.
func (in *Ingestor) advanceCheckpoint(ctx context.Context, accountID string, last domain.Date, rows int64) error {
	cp, err := in.checkpoints.GetLastIngested(ctx, accountID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("load checkpoint: %w", err)
	}

	next := storage.RefreshCheckpoint{AccountID: accountID, LastDate: last, RowsIngested: rows}
	if cp != nil {
		next.RowsIngested += cp.RowsIngested
		if last.Before(cp.LastDate) {
			next.LastDate = cp.LastDate
		}
	}

	if err := in.checkpoints.SetLastIngested(ctx, &next); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}
