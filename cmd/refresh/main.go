// Command refresh runs the full pipeline over the stored raw rows:
// aggregation → features → predictions → signals, then writes the signal
// CSV and Markdown report. With a cron schedule it keeps running refreshes
// until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"campaign-signal-lab/internal/config"
	"campaign-signal-lab/internal/domain"
	"campaign-signal-lab/internal/observability"
	"campaign-signal-lab/internal/pipeline"
	"campaign-signal-lab/internal/reporting"
	"campaign-signal-lab/internal/storage"
	chstore "campaign-signal-lab/internal/storage/clickhouse"
	"campaign-signal-lab/internal/storage/memory"
	pgstore "campaign-signal-lab/internal/storage/postgres"
)

func main() {
	fixtures := flag.Bool("fixtures", false, "Run on in-memory stores seeded with demo data")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage for all stores")
	once := flag.Bool("once", false, "Run a single refresh even when a schedule is configured")
	outputDir := flag.String("output-dir", "out", "Output directory for signal CSV and report")
	rulesPath := flag.String("rules", "", "TOML rule table path (overrides CSL_RULES_PATH)")
	stubFactor := flag.Float64("stub-factor", 1.0, "Prediction factor for the stub predictor")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "refresh").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if *rulesPath != "" {
		cfg.RulesPath = *rulesPath
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load rules")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	obs := observability.NewMetrics("")
	if cfg.MetricsAddr != "" {
		go serveMetrics(logger, cfg.MetricsAddr)
	}

	stores, cleanup, err := buildStores(ctx, cfg, *fixtures || *useMemory, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect storage")
	}
	defer cleanup()

	if *fixtures {
		if err := pipeline.LoadFixtures(ctx, stores.raw); err != nil {
			logger.Fatal().Err(err).Msg("load fixtures")
		}
		logger.Info().Msg("fixture data loaded")
	}

	runner := pipeline.New(pipeline.Options{
		RawStore:       stores.raw,
		DailyStore:     stores.daily,
		FeatureStore:   stores.features,
		SignalStore:    stores.signals,
		Predictor:      &pipeline.StubPredictor{Metrics: ruleMetrics(rules), Factor: *stubFactor},
		Rules:          rules,
		MinHistoryDays: cfg.MinHistoryDays,
		Observability:  obs,
		Logger:         logger,
	})

	refresh := func() error {
		result, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		return writeArtifacts(*outputDir, rules, result, logger)
	}

	if cfg.Schedule == "" || *once {
		if err := refresh(); err != nil {
			logger.Fatal().Err(err).Msg("refresh failed")
		}
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := refresh(); err != nil {
			logger.Error().Err(err).Msg("scheduled refresh failed")
		}
	}); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.Schedule).Msg("invalid schedule")
	}
	logger.Info().Str("schedule", cfg.Schedule).Msg("scheduler started")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
}

type storeSet struct {
	raw      storage.RawExportStore
	daily    storage.DailyStore
	features storage.FeatureStore
	signals  storage.SignalStore
}

func buildStores(ctx context.Context, cfg *config.Config, forceMemory bool, logger zerolog.Logger) (*storeSet, func(), error) {
	cleanup := func() {}

	if forceMemory || (cfg.PostgresDSN == "" && cfg.ClickHouseDSN == "") {
		logger.Info().Msg("using in-memory storage")
		return &storeSet{
			raw:      memory.NewRawExportStore(),
			daily:    memory.NewDailyStore(),
			features: memory.NewFeatureStore(),
			signals:  memory.NewSignalStore(),
		}, cleanup, nil
	}

	set := &storeSet{
		raw:      memory.NewRawExportStore(),
		daily:    memory.NewDailyStore(),
		features: memory.NewFeatureStore(),
		signals:  memory.NewSignalStore(),
	}
	var closers []func()

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		set.raw = pgstore.NewRawExportStore(pool)
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN)
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, cleanup, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { _ = conn.Close() })
		set.daily = chstore.NewDailyStore(conn)
		set.features = chstore.NewFeatureStore(conn)
		set.signals = chstore.NewSignalStore(conn)
	}

	return set, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// ruleMetrics lists monitored metrics in stable column order.
func ruleMetrics(rules domain.RuleTable) []domain.Metric {
	var out []domain.Metric
	for _, m := range domain.BaseMetrics {
		if _, ok := rules[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

func writeArtifacts(dir string, rules domain.RuleTable, result *pipeline.RunResult, logger zerolog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	csvPath := filepath.Join(dir, "signals.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderSignalsCSV(result.Signals)), 0o644); err != nil {
		return fmt.Errorf("write signals csv: %w", err)
	}

	report := reporting.NewGenerator(rules).Generate(result.Signals)
	mdPath := filepath.Join(dir, "report.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.Info().Str("csv", csvPath).Str("report", mdPath).Msg("artifacts written")
	return nil
}

func serveMetrics(logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	logger.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
