// Command ingest loads analytics export CSV files into the raw row store
// and advances the per-account refresh checkpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"campaign-signal-lab/internal/config"
	"campaign-signal-lab/internal/ingestion"
	"campaign-signal-lab/internal/observability"
	"campaign-signal-lab/internal/storage"
	"campaign-signal-lab/internal/storage/memory"
	pgstore "campaign-signal-lab/internal/storage/postgres"
)

func main() {
	accountID := flag.String("account", "", "Account ID for checkpoint tracking (overrides CSL_ACCOUNT_ID)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides CSL_POSTGRES_DSN)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "ingest").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if *accountID != "" {
		cfg.AccountID = *accountID
	}
	if *postgresDSN != "" {
		cfg.PostgresDSN = *postgresDSN
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	files := flag.Args()
	if len(files) == 0 {
		logger.Fatal().Msg("no export files given; usage: ingest [flags] file.csv ...")
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

	var rawStore storage.RawExportStore
	var checkpoints storage.CheckpointStore
	if *useMemory || cfg.PostgresDSN == "" {
		logger.Info().Msg("using in-memory storage")
		rawStore = memory.NewRawExportStore()
		checkpoints = memory.NewCheckpointStore()
	} else {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to postgres")
		}
		defer pool.Close()
		rawStore = pgstore.NewRawExportStore(pool)
		checkpoints = pgstore.NewCheckpointStore(pool)
	}

	ing := ingestion.NewIngestor(rawStore, checkpoints, logger)

	var loaded, skipped int
	for _, path := range files {
		res, err := ing.IngestFile(ctx, cfg.AccountID, path)
		if err != nil {
			if errors.Is(err, ctx.Err()) {
				break
			}
			logger.Fatal().Err(err).Str("path", path).Msg("ingest failed")
		}
		loaded += res.RowsLoaded
		skipped += res.RowsSkipped
	}
	obs.ObserveIngestion(loaded, skipped)

	logger.Info().Int("files", len(files)).Int("rows", loaded).Int("skipped", skipped).
		Msg("ingestion finished")
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
