package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/models"
	"water-savings-platform/pkg/database"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// TariffRepository provides access to the calculation_constants table
type TariffRepository interface {
	// GetCurrent resolves the table into typed constants, defaulting missing keys
	GetCurrent(ctx context.Context) (calculator.TariffConstants, error)
	List(ctx context.Context) ([]models.TariffEntry, error)
	Set(ctx context.Context, key string, value float64) (*models.TariffEntry, error)
	// SetMany writes several constants in one transaction
	SetMany(ctx context.Context, entries []models.TariffEntry) error
}

type tariffRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewTariffRepository creates a new tariff repository
func NewTariffRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) TariffRepository {
	return &tariffRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const upsertTariffQuery = `
	INSERT INTO calculation_constants (key, value, description, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (key) DO UPDATE SET
		value = EXCLUDED.value,
		description = CASE WHEN EXCLUDED.description = '' THEN calculation_constants.description ELSE EXCLUDED.description END,
		updated_at = EXCLUDED.updated_at
	RETURNING key, value, description, updated_at
`

// GetCurrent loads every row and resolves it into typed constants
func (r *tariffRepository) GetCurrent(ctx context.Context) (calculator.TariffConstants, error) {
	rows, err := r.List(ctx)
	if err != nil {
		return calculator.TariffConstants{}, err
	}

	tariffs, unknown := models.ResolveTariffs(rows)
	if len(unknown) > 0 {
		r.logger.Warn(ctx, "[REPO_TARIFFS] Ignoring unknown calculation constants", logging.Fields{
			"keys": unknown,
		})
	}

	return tariffs, nil
}

// List returns the raw table rows ordered by key
func (r *tariffRepository) List(ctx context.Context) ([]models.TariffEntry, error) {
	query := `
		SELECT key, value, description, updated_at
		FROM calculation_constants
		ORDER BY key
	`

	entries := []models.TariffEntry{}
	if err := r.db.SelectContext(ctx, "list_tariffs", &entries, query); err != nil {
		return nil, fmt.Errorf("failed to list calculation constants: %w", err)
	}

	return entries, nil
}

// Set validates and writes one constant
func (r *tariffRepository) Set(ctx context.Context, key string, value float64) (*models.TariffEntry, error) {
	if err := models.ValidateTariff(key, value); err != nil {
		return nil, err
	}

	var entry models.TariffEntry
	if err := r.db.GetContext(ctx, "set_tariff", &entry, upsertTariffQuery, key, value, ""); err != nil {
		return nil, fmt.Errorf("failed to set calculation constant %s: %w", key, err)
	}

	r.logger.Info(ctx, "[REPO_SET_TARIFF] Calculation constant updated", logging.Fields{
		"key":   key,
		"value": value,
	})

	return &entry, nil
}

// SetMany validates every entry before writing any of them
func (r *tariffRepository) SetMany(ctx context.Context, entries []models.TariffEntry) error {
	for _, e := range entries {
		if err := models.ValidateTariff(e.Key, e.Value); err != nil {
			return err
		}
	}
	if len(entries) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, "set_tariffs", func(tx *sqlx.Tx) error {
		for _, e := range entries {
			if _, err := tx.ExecContext(ctx, upsertTariffQuery, e.Key, e.Value, e.Description); err != nil {
				return fmt.Errorf("failed to set calculation constant %s: %w", e.Key, err)
			}
		}
		return nil
	})
}
