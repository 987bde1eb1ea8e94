// Package pipeline orchestrates the daily refresh:
// raw rows → aggregation → features → predictions → signals, with each
// derived artifact recomputed in full and persisted between stages.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"campaign-signal-lab/internal/aggregation"
	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/features"
	"campaign-signal-lab/internal/observability"
	"campaign-signal-lab/internal/signals"
	"campaign-signal-lab/internal/storage"
)

// ErrNoInputRows is returned when the raw store is empty: every downstream
// stage requires a non-empty table, so an empty store means ingestion never
// ran or the schema contract broke.
var ErrNoInputRows = errors.New("no raw export rows available for refresh")

// Runner executes the full refresh pipeline over injected stores.
type Runner struct {
	rawStore     storage.RawExportStore
	dailyStore   storage.DailyStore
	featureStore storage.FeatureStore
	signalStore  storage.SignalStore

	predictor      Predictor
	rules          domain.RuleTable
	minHistoryDays int

	obs   *observability.Metrics
	log   zerolog.Logger
	clock func() time.Time
}

// Options configures a Runner. All stores and the predictor are required;
// Rules defaults to the built-in rule table and MinHistoryDays to the
// standard 7-day floor.
type Options struct {
	RawStore     storage.RawExportStore
	DailyStore   storage.DailyStore
	FeatureStore storage.FeatureStore
	SignalStore  storage.SignalStore

	Predictor      Predictor
	Rules          domain.RuleTable
	MinHistoryDays int

	Observability *observability.Metrics
	Logger        zerolog.Logger
}

// New creates a Runner.
func New(opts Options) *Runner {
	rules := opts.Rules
	if rules == nil {
		rules = domain.DefaultRuleTable()
	}
	minHistory := opts.MinHistoryDays
	if minHistory == 0 {
		minHistory = features.DefaultMinHistoryDays
	}
	return &Runner{
		rawStore:       opts.RawStore,
		dailyStore:     opts.DailyStore,
		featureStore:   opts.FeatureStore,
		signalStore:    opts.SignalStore,
		predictor:      opts.Predictor,
		rules:          rules,
		minHistoryDays: minHistory,
		obs:            opts.Observability,
		log:            opts.Logger,
		clock:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock for deterministic tests.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// RunResult summarizes one refresh run.
type RunResult struct {
	RawRows      int
	DailyRows    int
	FeatureRows  int
	SignalRows   int
	AlertRows    int // rows with signal_count > 0
	CriticalRows int // rows with max_severity == critical

	Signals *domain.SignalTable
}

// Run executes the pipeline end to end. Each stage is all-or-nothing: the
// run either produces fully valid artifacts or fails with an error; derived
// tables are truncated and rewritten, never incrementally patched.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	started := r.clock()

	res, err := r.run(ctx)

	if r.obs != nil {
		r.obs.ObserveRefresh(r.clock().Sub(started), err == nil)
	}
	if err != nil {
		r.log.Error().Err(err).Msg("refresh failed")
		return nil, err
	}

	r.log.Info().
		Int("raw_rows", res.RawRows).
		Int("daily_rows", res.DailyRows).
		Int("feature_rows", res.FeatureRows).
		Int("alert_rows", res.AlertRows).
		Int("critical_rows", res.CriticalRows).
		Dur("elapsed", r.clock().Sub(started)).
		Msg("refresh complete")

	return res, nil
}

func (r *Runner) run(ctx context.Context) (*RunResult, error) {
	rawRows, err := r.rawStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load raw rows: %w", err)
	}
	if len(rawRows) == 0 {
		return nil, ErrNoInputRows
	}

	rawTable := domain.BuildRawTable(rawRows)

	daily, err := aggregation.AggregateDaily(rawTable)
	if err != nil {
		return nil, fmt.Errorf("aggregate daily grain: %w", err)
	}
	if err := r.replaceDaily(ctx, daily); err != nil {
		return nil, err
	}

	featureTable := features.Build(daily, r.minHistoryDays)

	if err := r.predictor.Predict(ctx, featureTable); err != nil {
		return nil, fmt.Errorf("attach predictions: %w", err)
	}

	if err := r.replaceFeatures(ctx, featureTable); err != nil {
		return nil, err
	}

	signalTable := signals.NewEngine(r.rules).Generate(featureTable)

	if err := r.replaceSignals(ctx, signalTable); err != nil {
		return nil, err
	}

	res := &RunResult{
		RawRows:     len(rawRows),
		DailyRows:   len(daily.Rows),
		FeatureRows: len(featureTable.Rows),
		SignalRows:  len(signalTable.Rows),
		Signals:     signalTable,
	}
	for _, row := range signalTable.Rows {
		if row.SignalCount > 0 {
			res.AlertRows++
		}
		if row.MaxSeverity == domain.SeverityCritical {
			res.CriticalRows++
		}
		if r.obs != nil {
			r.obs.CountSeverity(string(row.MaxSeverity))
		}
	}
	if r.obs != nil {
		r.obs.RowsAggregated.Add(float64(res.DailyRows))
		r.obs.FeaturesBuilt.Add(float64(res.FeatureRows))
		r.obs.AlertRows.Set(float64(res.AlertRows))
	}

	return res, nil
}

func (r *Runner) replaceDaily(ctx context.Context, t *domain.DailyTable) error {
	if err := r.dailyStore.TruncateAll(ctx); err != nil {
		return fmt.Errorf("truncate daily table: %w", err)
	}
	if err := r.dailyStore.InsertBulk(ctx, t.Rows); err != nil {
		return fmt.Errorf("store daily table: %w", err)
	}
	return nil
}

func (r *Runner) replaceFeatures(ctx context.Context, t *domain.FeatureTable) error {
	if err := r.featureStore.TruncateAll(ctx); err != nil {
		return fmt.Errorf("truncate feature table: %w", err)
	}
	if err := r.featureStore.InsertBulk(ctx, t.Rows); err != nil {
		return fmt.Errorf("store feature table: %w", err)
	}
	return nil
}

func (r *Runner) replaceSignals(ctx context.Context, t *domain.SignalTable) error {
	if err := r.signalStore.TruncateAll(ctx); err != nil {
		return fmt.Errorf("truncate signal table: %w", err)
	}
	if err := r.signalStore.InsertBulk(ctx, t.Rows); err != nil {
		return fmt.Errorf("store signal table: %w", err)
	}
	return nil
}
