package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/pipeline"
	"policy-shock-lab/internal/reporting"
	"policy-shock-lab/internal/simulate"
	"policy-shock-lab/internal/storage"
	"policy-shock-lab/internal/storage/memory"
	"policy-shock-lab/internal/storage/migrations"
	pgstore "policy-shock-lab/internal/storage/postgres"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Path to scenario YAML")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	useMemory := flag.Bool("use-memory", false, "Fit a model on fixture data in memory instead of loading one")
	modelID := flag.String("model-id", "", "Model to simulate from (default: most recently fitted)")
	entityID := flag.String("entity", "", "Project a single panel entity instead of the average")
	noise := flag.Bool("noise", false, "Add seeded N(0, residual variance) draws per step")
	seed := flag.Int64("seed", 1, "Noise seed")
	format := flag.String("format", "md", "Output format: md or csv")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("component", "simulate").Logger()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --scenario is required")
		os.Exit(1)
	}
	if *format != "md" && *format != "csv" {
		fmt.Fprintln(os.Stderr, "Error: --format must be md or csv")
		os.Exit(1)
	}

	path, err := loadScenario(*scenarioPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load scenario")
	}

	ctx := context.Background()
	model, err := resolveModel(ctx, logger, *useMemory, *postgresDSN, *modelID)
	if err != nil {
		logger.Fatal().Err(err).Msg("resolve model")
	}

	sim, err := simulate.New(model)
	if err != nil {
		logger.Fatal().Err(err).Msg("build simulator")
	}

	noiseCfg := simulate.NoiseConfig{Enabled: *noise, Seed: *seed}
	var projection *domain.Projection
	if *entityID != "" {
		projection, err = sim.ProjectEntity(*entityID, path, noiseCfg)
	} else {
		projection, err = sim.Project(path, noiseCfg)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("project scenario")
	}

	if *format == "csv" {
		fmt.Print(reporting.RenderProjectionCSV(projection))
	} else {
		fmt.Print(reporting.RenderProjectionMarkdown(projection))
	}
}

// scenarioFile is the YAML form of a scenario path.
type scenarioFile struct {
	Name      string `yaml:"name"`
	Frequency string `yaml:"frequency"`
	Steps     []struct {
		Date      string  `yaml:"date"`
		Decision  string  `yaml:"decision"`
		DeltaRate float64 `yaml:"delta_rate"`
	} `yaml:"steps"`
}

func loadScenario(path string) (*domain.ScenarioPath, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var f scenarioFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	p := &domain.ScenarioPath{
		Name:      f.Name,
		Frequency: domain.Frequency(f.Frequency),
	}
	for i, s := range f.Steps {
		date, err := time.ParseInLocation("2006-01-02", s.Date, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("step %d: parse date %q: %w", i+1, s.Date, err)
		}
		p.Steps = append(p.Steps, domain.ScenarioStep{
			Date:      date,
			Decision:  domain.Decision(s.Decision),
			DeltaRate: s.DeltaRate,
		})
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// resolveModel loads the requested model, or fits one from fixtures in
// memory mode.
func resolveModel(ctx context.Context, logger zerolog.Logger, useMemory bool, postgresDSN, modelID string) (*domain.FittedModel, error) {
	if useMemory {
		metadata := memory.NewSeriesMetadataStore()
		observations := memory.NewObservationStore()
		anchors := memory.NewAnchorStore()
		if err := pipeline.LoadFixtures(ctx, metadata, observations, anchors); err != nil {
			return nil, fmt.Errorf("load fixtures: %w", err)
		}
		runner, err := pipeline.NewRunner(metadata, observations, anchors,
			memory.NewShockEventStore(), memory.NewFittedModelStore(),
			pipeline.FixtureConfig(), logger)
		if err != nil {
			return nil, err
		}
		result, err := runner.Run(ctx)
		if err != nil {
			return nil, fmt.Errorf("fit fixture model: %w", err)
		}
		return result.Model, nil
	}

	if postgresDSN == "" {
		return nil, fmt.Errorf("--postgres-dsn is required without --use-memory")
	}
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}

	store := pgstore.NewFittedModelStore(pool)
	if modelID != "" {
		return store.GetByID(ctx, modelID)
	}
	return latestModel(ctx, store)
}

func latestModel(ctx context.Context, store storage.FittedModelStore) (*domain.FittedModel, error) {
	models, err := store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("no fitted models stored; run the pipeline first")
	}
	return models[len(models)-1], nil
}
