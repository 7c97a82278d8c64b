package services

import (
	"context"
	"fmt"
	"time"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/catalog"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// CatalogService manages cities and calculation constants
type CatalogService struct {
	cities  repository.CityRepository
	tariffs repository.TariffRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// ImportResult contains catalog import statistics
type ImportResult struct {
	Cities   int           `json:"cities"`
	Tariffs  int           `json:"tariffs"`
	Duration time.Duration `json:"duration"`
	Errors   []string      `json:"errors,omitempty"`
}

// NewCatalogService creates a new catalog service
func NewCatalogService(cities repository.CityRepository, tariffs repository.TariffRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CatalogService {
	return &CatalogService{
		cities:  cities,
		tariffs: tariffs,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreateCity validates and stores a new city
func (s *CatalogService) CreateCity(ctx context.Context, city *models.City) error {
	city.ID = 0
	city.Normalize()
	if err := city.Validate(); err != nil {
		return err
	}
	return s.cities.Create(ctx, city)
}

// GetCity retrieves a city by id
func (s *CatalogService) GetCity(ctx context.Context, id int64) (*models.City, error) {
	return s.cities.Get(ctx, id)
}

// ListCities retrieves cities with filtering
func (s *CatalogService) ListCities(ctx context.Context, filter repository.CityFilter) ([]*models.City, int, error) {
	return s.cities.List(ctx, filter)
}

// ActiveCities lists every city the wizard may offer
func (s *CatalogService) ActiveCities(ctx context.Context) ([]*models.City, error) {
	active := true
	cities, _, err := s.cities.List(ctx, repository.CityFilter{Active: &active})
	return cities, err
}

// UpdateCity validates and overwrites an existing city
func (s *CatalogService) UpdateCity(ctx context.Context, city *models.City) error {
	city.Normalize()
	if err := city.Validate(); err != nil {
		return err
	}
	if err := s.cities.Update(ctx, city); err != nil {
		return err
	}

	s.logger.Info(ctx, "[CATALOG_CITY_UPDATED] City updated", logging.Fields{
		"city_id": city.ID,
		"active":  city.Active,
	})
	return nil
}

// DeleteCity removes a city that no lead references
func (s *CatalogService) DeleteCity(ctx context.Context, id int64) error {
	return s.cities.Delete(ctx, id)
}

// CurrentTariffs returns the typed constants the calculator would use now
func (s *CatalogService) CurrentTariffs(ctx context.Context) (calculator.TariffConstants, error) {
	return s.tariffs.GetCurrent(ctx)
}

// ListTariffs returns the raw constant rows
func (s *CatalogService) ListTariffs(ctx context.Context) ([]models.TariffEntry, error) {
	return s.tariffs.List(ctx)
}

// SetTariffs writes every given constant or none of them
func (s *CatalogService) SetTariffs(ctx context.Context, values map[string]float64) (calculator.TariffConstants, error) {
	entries := make([]models.TariffEntry, 0, len(values))
	for _, key := range models.TariffKeys {
		if v, ok := values[key]; ok {
			entries = append(entries, models.TariffEntry{Key: key, Value: v})
		}
	}
	for key := range values {
		if !models.IsTariffKey(key) {
			return calculator.TariffConstants{}, &models.ValidationError{Field: "key", Value: key, Message: "unknown calculation constant"}
		}
	}

	if err := s.tariffs.SetMany(ctx, entries); err != nil {
		return calculator.TariffConstants{}, err
	}

	s.logger.Info(ctx, "[CATALOG_TARIFFS_UPDATED] Calculation constants updated", logging.Fields{
		"count": len(entries),
	})
	return s.tariffs.GetCurrent(ctx)
}

// ImportFile seeds the database from a YAML catalog file
func (s *CatalogService) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	cat, err := catalog.Load(path)
	if err != nil {
		return nil, err
	}
	return s.Import(ctx, cat)
}

// Import upserts every city by (name, state) and writes the catalog's tariffs.
// A failing city is recorded and skipped; a failing tariff write aborts the import.
func (s *CatalogService) Import(ctx context.Context, cat *catalog.Catalog) (*ImportResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[IMPORT_START] Starting catalog import", logging.Fields{
		"cities":  len(cat.Cities),
		"tariffs": len(cat.Tariffs),
		"stage":   "INITIALIZATION",
	})

	result := &ImportResult{
		Errors: make([]string, 0),
	}

	entries := cat.TariffEntries()
	if err := s.tariffs.SetMany(ctx, entries); err != nil {
		return nil, fmt.Errorf("failed to import calculation constants: %w", err)
	}
	result.Tariffs = len(entries)
	s.metrics.CatalogRecordsTotal.WithLabelValues("tariff").Add(float64(len(entries)))

	for i := range cat.Cities {
		city := cat.Cities[i]
		city.ID = 0
		if err := s.cities.Upsert(ctx, &city); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s/%s: %v", city.Name, city.State, err))
			s.logger.Error(ctx, "[IMPORT_CITY_ERROR] City import failed", logging.Fields{
				"name":  city.Name,
				"state": city.State,
				"stage": "CITY_UPSERT",
			}, err)
			continue
		}
		result.Cities++
		s.metrics.CatalogRecordsTotal.WithLabelValues("city").Inc()
	}

	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[IMPORT_COMPLETE] Catalog import completed", logging.Fields{
		"cities":           result.Cities,
		"tariffs":          result.Tariffs,
		"error_count":      len(result.Errors),
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}
