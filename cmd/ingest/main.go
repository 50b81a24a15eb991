package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/ingest"
	"policy-shock-lab/internal/storage"
	chstore "policy-shock-lab/internal/storage/clickhouse"
	"policy-shock-lab/internal/storage/memory"
	"policy-shock-lab/internal/storage/migrations"
	pgstore "policy-shock-lab/internal/storage/postgres"
)

func main() {
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory stores (dry run: validates input, persists nothing)")

	seriesCSV := flag.String("series-csv", "", "Path to observation CSV (header: date,value)")
	seriesID := flag.String("series-id", "", "Series identifier, e.g. DFF")
	seriesName := flag.String("series-name", "", "Human-readable series name")
	frequency := flag.String("frequency", "monthly", "Native frequency: daily, monthly, or quarterly")
	units := flag.String("units", "", "Series units, e.g. percent")
	source := flag.String("source", "", "Data source, e.g. FRED")

	anchorsCSV := flag.String("anchors-csv", "", "Path to anchor calendar CSV (header: date[,note])")
	calendar := flag.String("calendar", "FOMC", "Anchor calendar name")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "ingest").Logger()

	if *seriesCSV == "" && *anchorsCSV == "" {
		fmt.Fprintln(os.Stderr, "Error: nothing to ingest; pass --series-csv and/or --anchors-csv")
		os.Exit(1)
	}
	if *seriesCSV != "" && *seriesID == "" {
		fmt.Fprintln(os.Stderr, "Error: --series-id is required with --series-csv")
		os.Exit(1)
	}

	ctx := context.Background()

	var (
		metadata     storage.SeriesMetadataStore
		observations storage.ObservationStore
		anchors      storage.AnchorStore
		cleanup      = func() {}
	)
	if *useMemory {
		metadata = memory.NewSeriesMetadataStore()
		observations = memory.NewObservationStore()
		anchors = memory.NewAnchorStore()
	} else {
		if *postgresDSN == "" || *clickhouseDSN == "" {
			fmt.Fprintln(os.Stderr, "Error: --postgres-dsn and --clickhouse-dsn are required without --use-memory")
			os.Exit(1)
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect postgres")
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatal().Err(err).Msg("postgres migrations")
		}
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("clickhouse migrations")
		}
		metadata = pgstore.NewSeriesMetadataStore(pool)
		observations = chstore.NewObservationStore(conn)
		anchors = pgstore.NewAnchorStore(pool)
		cleanup = func() {
			pool.Close()
			conn.Close()
		}
	}
	defer cleanup()

	loader := ingest.NewLoader(metadata, observations, anchors, logger)

	if *seriesCSV != "" {
		freq, err := domain.ParseFrequency(*frequency)
		if err != nil {
			logger.Fatal().Err(err).Msg("parse frequency")
		}
		f, err := os.Open(*seriesCSV)
		if err != nil {
			logger.Fatal().Err(err).Msg("open series CSV")
		}
		result, err := loader.LoadSeries(ctx, f, &domain.SeriesMetadata{
			SeriesID:  *seriesID,
			Name:      *seriesName,
			Frequency: freq,
			Units:     *units,
			Source:    *source,
		})
		f.Close()
		if err != nil {
			logger.Fatal().Err(err).Msg("ingest series")
		}
		fmt.Printf("Ingested %d observations for %s\n", result.ObservationsIngested, *seriesID)
	}

	if *anchorsCSV != "" {
		f, err := os.Open(*anchorsCSV)
		if err != nil {
			logger.Fatal().Err(err).Msg("open anchors CSV")
		}
		result, err := loader.LoadAnchors(ctx, f, *calendar)
		f.Close()
		if err != nil {
			logger.Fatal().Err(err).Msg("ingest anchors")
		}
		fmt.Printf("Ingested %d anchors on calendar %s\n", result.AnchorsIngested, *calendar)
	}
}
