package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"water-savings-platform/internal/models"
	"water-savings-platform/pkg/database"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// CityRepository provides data access for the city catalog
type CityRepository interface {
	Create(ctx context.Context, city *models.City) error
	Get(ctx context.Context, id int64) (*models.City, error)
	List(ctx context.Context, filter CityFilter) ([]*models.City, int, error)
	Update(ctx context.Context, city *models.City) error
	Delete(ctx context.Context, id int64) error
	// Upsert inserts or updates by (name, state); used by catalog seeding
	Upsert(ctx context.Context, city *models.City) error
}

// CityFilter defines filters for listing cities
type CityFilter struct {
	State  *string
	Active *bool
	Limit  int
	Offset int
}

const cityColumns = `id, name, state, active, module_capacity_kw, nominal_water_flow_l_per_min,
		       evaporation_fan_logic_percent, yearly_consumption_dry_cooler_liters,
		       water_consumption_year_temp_liters, water_consumption_year_fan_liters,
		       yearly_consumption_tower_liters, average_temperature_c, delta_t,
		       created_at, updated_at`

// cityRepository implements CityRepository
type cityRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCityRepository creates a new city repository
func NewCityRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) CityRepository {
	return &cityRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func cityArgs(c *models.City) []interface{} {
	return []interface{}{
		c.Name,
		c.State,
		c.Active,
		c.ModuleCapacityKW,
		c.NominalWaterFlowLPerMin,
		c.EvaporationFanLogicPercent,
		c.YearlyConsumptionDryCoolerLiters,
		c.WaterConsumptionYearTempLiters,
		c.WaterConsumptionYearFanLiters,
		c.YearlyConsumptionTowerLiters,
		c.AverageTemperatureC,
		c.DeltaT,
	}
}

// Create inserts a new city and fills its id and timestamps
func (r *cityRepository) Create(ctx context.Context, city *models.City) error {
	query := `
		INSERT INTO cities (
			name, state, active, module_capacity_kw, nominal_water_flow_l_per_min,
			evaporation_fan_logic_percent, yearly_consumption_dry_cooler_liters,
			water_consumption_year_temp_liters, water_consumption_year_fan_liters,
			yearly_consumption_tower_liters, average_temperature_c, delta_t
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.GetContext(ctx, "insert_city", city, query, cityArgs(city)...)
	if err != nil {
		if conflict := conflictFrom("city", err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to create city: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_CITY] City created", logging.Fields{
		"city_id": city.ID,
		"name":    city.Name,
		"state":   city.State,
	})

	return nil
}

// Get retrieves a city by id
func (r *cityRepository) Get(ctx context.Context, id int64) (*models.City, error) {
	query := `SELECT ` + cityColumns + ` FROM cities WHERE id = $1`

	var city models.City
	err := r.db.GetContext(ctx, "get_city", &city, query, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{
			Resource: "city",
			ID:       strconv.FormatInt(id, 10),
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get city: %w", err)
	}

	return &city, nil
}

// List retrieves cities with filtering and pagination
func (r *cityRepository) List(ctx context.Context, filter CityFilter) ([]*models.City, int, error) {
	query := `SELECT ` + cityColumns + ` FROM cities WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.State != nil {
		query += fmt.Sprintf(" AND state = $%d", argNum)
		args = append(args, *filter.State)
		argNum++
	}

	if filter.Active != nil {
		query += fmt.Sprintf(" AND active = $%d", argNum)
		args = append(args, *filter.Active)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_cities", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count cities: %w", err)
	}

	query += " ORDER BY state, name"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
		args = append(args, filter.Limit, filter.Offset)
	}

	cities := []*models.City{}
	if err := r.db.SelectContext(ctx, "list_cities", &cities, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list cities: %w", err)
	}

	return cities, totalCount, nil
}

// Update overwrites every editable column of an existing city
func (r *cityRepository) Update(ctx context.Context, city *models.City) error {
	query := `
		UPDATE cities SET
			name = $1, state = $2, active = $3, module_capacity_kw = $4,
			nominal_water_flow_l_per_min = $5, evaporation_fan_logic_percent = $6,
			yearly_consumption_dry_cooler_liters = $7, water_consumption_year_temp_liters = $8,
			water_consumption_year_fan_liters = $9, yearly_consumption_tower_liters = $10,
			average_temperature_c = $11, delta_t = $12, updated_at = $13
		WHERE id = $14
		RETURNING created_at, updated_at
	`

	args := append(cityArgs(city), time.Now().UTC(), city.ID)
	err := r.db.GetContext(ctx, "update_city", city, query, args...)

	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Resource: "city", ID: strconv.FormatInt(city.ID, 10)}
	}
	if err != nil {
		if conflict := conflictFrom("city", err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to update city: %w", err)
	}

	return nil
}

// Delete removes a city. Cities referenced by leads cannot be deleted; deactivate them instead.
func (r *cityRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "delete_city", `DELETE FROM cities WHERE id = $1`, id)
	if err != nil {
		if conflict := conflictFrom("city", err); conflict != nil {
			return conflict
		}
		return fmt.Errorf("failed to delete city: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete city: %w", err)
	}
	if rows == 0 {
		return &NotFoundError{Resource: "city", ID: strconv.FormatInt(id, 10)}
	}

	return nil
}

// Upsert creates or updates a city keyed by (name, state)
func (r *cityRepository) Upsert(ctx context.Context, city *models.City) error {
	query := `
		INSERT INTO cities (
			name, state, active, module_capacity_kw, nominal_water_flow_l_per_min,
			evaporation_fan_logic_percent, yearly_consumption_dry_cooler_liters,
			water_consumption_year_temp_liters, water_consumption_year_fan_liters,
			yearly_consumption_tower_liters, average_temperature_c, delta_t
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (name, state) DO UPDATE SET
			active = EXCLUDED.active,
			module_capacity_kw = EXCLUDED.module_capacity_kw,
			nominal_water_flow_l_per_min = EXCLUDED.nominal_water_flow_l_per_min,
			evaporation_fan_logic_percent = EXCLUDED.evaporation_fan_logic_percent,
			yearly_consumption_dry_cooler_liters = EXCLUDED.yearly_consumption_dry_cooler_liters,
			water_consumption_year_temp_liters = EXCLUDED.water_consumption_year_temp_liters,
			water_consumption_year_fan_liters = EXCLUDED.water_consumption_year_fan_liters,
			yearly_consumption_tower_liters = EXCLUDED.yearly_consumption_tower_liters,
			average_temperature_c = EXCLUDED.average_temperature_c,
			delta_t = EXCLUDED.delta_t,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	if err := r.db.GetContext(ctx, "upsert_city", city, query, cityArgs(city)...); err != nil {
		return fmt.Errorf("failed to upsert city: %w", err)
	}

	return nil
}
