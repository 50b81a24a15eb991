package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"policy-shock-lab/internal/domain"
	"policy-shock-lab/internal/storage"
)

// FittedModelStore implements storage.FittedModelStore using PostgreSQL.
// Coefficient maps are stored as JSONB; the spec fields are flattened into
// columns so models can be filtered without decoding JSON.
type FittedModelStore struct {
	pool *Pool
}

// NewFittedModelStore creates a new FittedModelStore.
func NewFittedModelStore(pool *Pool) *FittedModelStore {
	return &FittedModelStore{pool: pool}
}

// Compile-time interface check.
var _ storage.FittedModelStore = (*FittedModelStore)(nil)

const fittedModelColumns = `
	model_id, model_type, frequency, outcome_series, rate_series,
	shock_lags, controls, sample_start, sample_end,
	coefficients, fixed_effects, residual_variance, r_squared,
	n_obs, excluded_rows, control_baseline, created_at
`

// Insert adds a new model. Returns ErrDuplicateKey if model_id exists.
func (s *FittedModelStore) Insert(ctx context.Context, m *domain.FittedModel) error {
	if m == nil || m.ModelID == "" {
		return storage.ErrInvalidInput
	}

	coeffs, err := json.Marshal(m.Coefficients)
	if err != nil {
		return fmt.Errorf("marshal coefficients: %w", err)
	}
	effects, err := marshalNullable(m.FixedEffects)
	if err != nil {
		return fmt.Errorf("marshal fixed effects: %w", err)
	}
	baseline, err := marshalNullable(m.ControlBaseline)
	if err != nil {
		return fmt.Errorf("marshal control baseline: %w", err)
	}

	lags := make([]int32, len(m.Spec.ShockLags))
	for i, l := range m.Spec.ShockLags {
		lags[i] = int32(l)
	}

	query := `
		INSERT INTO fitted_models (` + fittedModelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err = s.pool.Exec(ctx, query,
		m.ModelID,
		m.Spec.ModelType,
		string(m.Spec.Frequency),
		m.Spec.OutcomeSeries,
		m.Spec.RateSeries,
		lags,
		m.Spec.Controls,
		m.Spec.SampleStart,
		m.Spec.SampleEnd,
		coeffs,
		effects,
		m.ResidualVariance,
		m.RSquared,
		m.NObs,
		m.ExcludedRows,
		baseline,
		m.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert fitted model: %w", err)
	}
	return nil
}

// GetByID retrieves a model by its ID. Returns ErrNotFound if not exists.
func (s *FittedModelStore) GetByID(ctx context.Context, modelID string) (*domain.FittedModel, error) {
	query := `SELECT ` + fittedModelColumns + ` FROM fitted_models WHERE model_id = $1`

	row := s.pool.QueryRow(ctx, query, modelID)
	m, err := scanFittedModel(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get fitted model by id: %w", err)
	}
	return m, nil
}

// GetAll retrieves all models, ordered by created_at ASC.
func (s *FittedModelStore) GetAll(ctx context.Context) ([]*domain.FittedModel, error) {
	query := `SELECT ` + fittedModelColumns + ` FROM fitted_models ORDER BY created_at ASC, model_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all fitted models: %w", err)
	}
	defer rows.Close()

	var models []*domain.FittedModel
	for rows.Next() {
		m, err := scanFittedModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fitted model row: %w", err)
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fitted model rows: %w", err)
	}
	return models, nil
}

func scanFittedModel(row pgx.Row) (*domain.FittedModel, error) {
	var (
		m           domain.FittedModel
		freqStr     string
		lags        []int32
		sampleStart time.Time
		sampleEnd   time.Time
		coeffs      []byte
		effects     []byte
		baseline    []byte
	)

	err := row.Scan(
		&m.ModelID,
		&m.Spec.ModelType,
		&freqStr,
		&m.Spec.OutcomeSeries,
		&m.Spec.RateSeries,
		&lags,
		&m.Spec.Controls,
		&sampleStart,
		&sampleEnd,
		&coeffs,
		&effects,
		&m.ResidualVariance,
		&m.RSquared,
		&m.NObs,
		&m.ExcludedRows,
		&baseline,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Spec.Frequency = domain.Frequency(freqStr)
	m.Spec.ShockLags = make([]int, len(lags))
	for i, l := range lags {
		m.Spec.ShockLags[i] = int(l)
	}
	m.Spec.SampleStart = domain.Date(sampleStart.Year(), sampleStart.Month(), sampleStart.Day())
	m.Spec.SampleEnd = domain.Date(sampleEnd.Year(), sampleEnd.Month(), sampleEnd.Day())

	if err := json.Unmarshal(coeffs, &m.Coefficients); err != nil {
		return nil, fmt.Errorf("unmarshal coefficients: %w", err)
	}
	if len(effects) > 0 {
		if err := json.Unmarshal(effects, &m.FixedEffects); err != nil {
			return nil, fmt.Errorf("unmarshal fixed effects: %w", err)
		}
	}
	if len(baseline) > 0 {
		if err := json.Unmarshal(baseline, &m.ControlBaseline); err != nil {
			return nil, fmt.Errorf("unmarshal control baseline: %w", err)
		}
	}

	return &m, nil
}

// marshalNullable returns nil (SQL NULL) for empty maps instead of "null" JSON.
func marshalNullable(m map[string]float64) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
