package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"policy-shock-lab/internal/align"
	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/pipeline"
)

var validate = validator.New()

// Config is the full lab configuration: store DSNs plus one pipeline run.
type Config struct {
	Postgres   PostgresConfig   `yaml:"postgres"`
	Clickhouse ClickhouseConfig `yaml:"clickhouse"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Report     ReportConfig     `yaml:"report"`
}

// PostgresConfig holds the metadata/anchor/shock/model store connection.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ClickhouseConfig holds the observation store connection.
type ClickhouseConfig struct {
	DSN string `yaml:"dsn"`
}

// PipelineConfig mirrors pipeline.Config in YAML form.
type PipelineConfig struct {
	Series         []string          `yaml:"series" validate:"required,min=1"`
	Target         string            `yaml:"target" default:"monthly" validate:"oneof=daily monthly quarterly"`
	Fill           string            `yaml:"fill" default:"ffill" validate:"oneof=ffill interpolate"`
	MaxGap         int               `yaml:"max_gap" default:"3" validate:"gte=0"`
	AllowUpsample  bool              `yaml:"allow_upsample"`
	AnchorCalendar string            `yaml:"anchor_calendar" validate:"required"`
	RateSeries     string            `yaml:"rate_series" validate:"required"`
	Threshold      float64           `yaml:"threshold"` // <= 0 derives from the rate series
	ModelType      string            `yaml:"model_type" default:"OLS" validate:"oneof=OLS PANEL_FE"`
	OutcomeSeries  string            `yaml:"outcome_series" validate:"required"`
	ShockLags      []int             `yaml:"shock_lags" default:"[0]"`
	Controls       []string          `yaml:"controls"`
	EntityOutcomes map[string]string `yaml:"entity_outcomes"`
	WindowBefore   int               `yaml:"window_before" default:"3" validate:"gte=0"`
	WindowAfter    int               `yaml:"window_after" default:"6" validate:"gte=0"`
}

// ReportConfig controls where rendered reports go.
type ReportConfig struct {
	OutputDir string `yaml:"output_dir" default:"reports"`
}

// Load reads, defaults, and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes into a validated Config.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads the file and overrides DSNs from the environment.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("CLICKHOUSE_DSN"); v != "" {
		c.Clickhouse.DSN = v
	}
	return c, nil
}

// Validate checks tag rules plus the cross-field constraints tags can't express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Pipeline.ModelType == domain.ModelTypePanelFE && len(c.Pipeline.EntityOutcomes) == 0 {
		return fmt.Errorf("pipeline.entity_outcomes is required for model_type PANEL_FE")
	}
	return nil
}

// RunnerConfig converts the YAML form into the typed pipeline configuration.
func (c *Config) RunnerConfig() pipeline.Config {
	return pipeline.Config{
		Series:         c.Pipeline.Series,
		Target:         domain.Frequency(c.Pipeline.Target),
		Fill:           align.FillPolicy(c.Pipeline.Fill),
		MaxGap:         c.Pipeline.MaxGap,
		AllowUpsample:  c.Pipeline.AllowUpsample,
		AnchorCalendar: c.Pipeline.AnchorCalendar,
		RateSeries:     c.Pipeline.RateSeries,
		Threshold:      c.Pipeline.Threshold,
		ModelType:      c.Pipeline.ModelType,
		OutcomeSeries:  c.Pipeline.OutcomeSeries,
		ShockLags:      c.Pipeline.ShockLags,
		Controls:       c.Pipeline.Controls,
		EntityOutcomes: c.Pipeline.EntityOutcomes,
		WindowBefore:   c.Pipeline.WindowBefore,
		WindowAfter:    c.Pipeline.WindowAfter,
	}
}
