package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"policy-shock-lab/internal/config"
	"policy-shock-lab/internal/pipeline"
	"policy-shock-lab/internal/storage"
	chstore "policy-shock-lab/internal/storage/clickhouse"
	"policy-shock-lab/internal/storage/memory"
	"policy-shock-lab/internal/storage/migrations"
	pgstore "policy-shock-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores with fixture data")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "pipeline").Logger()

	ctx := context.Background()

	var (
		runnerCfg pipeline.Config
		stores    *labStores
		err       error
	)
	if *useMemory {
		runnerCfg = pipeline.FixtureConfig()
		stores, err = memoryStores(ctx)
	} else {
		if *configPath == "" {
			fmt.Fprintln(os.Stderr, "Error: --config is required (or pass --use-memory for demo data)")
			os.Exit(1)
		}
		var cfg *config.Config
		cfg, err = config.LoadWithEnv(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("load config")
		}
		if *postgresDSN != "" {
			cfg.Postgres.DSN = *postgresDSN
		}
		if *clickhouseDSN != "" {
			cfg.Clickhouse.DSN = *clickhouseDSN
		}
		runnerCfg = cfg.RunnerConfig()
		stores, err = databaseStores(ctx, cfg.Postgres.DSN, cfg.Clickhouse.DSN)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("initialize stores")
	}
	defer stores.close()

	checker := pipeline.NewSufficiencyChecker(
		stores.metadata, stores.observations, stores.anchors,
		runnerCfg.Series, runnerCfg.AnchorCalendar)

	runner, err := pipeline.NewRunner(
		stores.metadata, stores.observations, stores.anchors,
		stores.events, stores.models, runnerCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure runner")
	}

	result, err := runner.WithSufficiencyChecker(checker).Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("pipeline run failed")
	}

	fmt.Printf("Pipeline complete: %d shock events (%d anchors skipped), model %s\n",
		len(result.Events), len(result.Skipped), result.Model.ModelID)
	fmt.Printf("  threshold=%.4f n_obs=%d excluded_rows=%d r_squared=%.4f\n",
		result.Threshold, result.Model.NObs, result.Model.ExcludedRows, result.Model.RSquared)
}

// labStores bundles the five store interfaces with their cleanup.
type labStores struct {
	metadata     storage.SeriesMetadataStore
	observations storage.ObservationStore
	anchors      storage.AnchorStore
	events       storage.ShockEventStore
	models       storage.FittedModelStore
	close        func()
}

func memoryStores(ctx context.Context) (*labStores, error) {
	metadata := memory.NewSeriesMetadataStore()
	observations := memory.NewObservationStore()
	anchors := memory.NewAnchorStore()

	if err := pipeline.LoadFixtures(ctx, metadata, observations, anchors); err != nil {
		return nil, fmt.Errorf("load fixtures: %w", err)
	}
	return &labStores{
		metadata:     metadata,
		observations: observations,
		anchors:      anchors,
		events:       memory.NewShockEventStore(),
		models:       memory.NewFittedModelStore(),
		close:        func() {},
	}, nil
}

func databaseStores(ctx context.Context, postgresDSN, clickhouseDSN string) (*labStores, error) {
	if postgresDSN == "" || clickhouseDSN == "" {
		return nil, fmt.Errorf("postgres and clickhouse DSNs are required without --use-memory")
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	return &labStores{
		metadata:     pgstore.NewSeriesMetadataStore(pool),
		observations: chstore.NewObservationStore(conn),
		anchors:      pgstore.NewAnchorStore(pool),
		events:       pgstore.NewShockEventStore(pool),
		models:       pgstore.NewFittedModelStore(pool),
		close: func() {
			pool.Close()
			conn.Close()
		},
	}, nil
}
