package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// CityLookup resolves catalog cities by id
type CityLookup interface {
	Get(ctx context.Context, id int64) (*models.City, error)
}

// TariffSource provides the current cost constants
type TariffSource interface {
	GetCurrent(ctx context.Context) (calculator.TariffConstants, error)
}

// SimulationService resolves a city and tariffs and runs the calculator
type SimulationService struct {
	cities  CityLookup
	tariffs TariffSource
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// Simulation is a computed result with the inputs it was computed from
type Simulation struct {
	Input   calculator.SimulationInput   `json:"input"`
	City    *models.City                 `json:"city"`
	Tariffs calculator.TariffConstants   `json:"tariffs"`
	Result  *calculator.SimulationResult `json:"result"`
}

// NewSimulationService creates a new simulation service
func NewSimulationService(cities CityLookup, tariffs TariffSource, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SimulationService {
	return &SimulationService{
		cities:  cities,
		tariffs: tariffs,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Simulate runs one calculation. Unknown or inactive cities are reported as an
// *calculator.InvalidInputError on city_id, like any other bad input.
func (s *SimulationService) Simulate(ctx context.Context, in calculator.SimulationInput) (*Simulation, error) {
	timer := s.metrics.NewTimer(s.metrics.SimulationDuration)
	in = in.WithDefaults()

	sim, err := s.simulate(ctx, in)
	timer.ObserveDuration()

	var invalid *calculator.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		s.metrics.RecordSimulation("invalid_input")
		s.logger.Debug(ctx, "[SIMULATION_INVALID] Simulation input rejected", logging.Fields{
			"field":   invalid.Field,
			"reason":  invalid.Message,
			"city_id": in.CityID,
		})
		return nil, err
	case err != nil:
		s.metrics.RecordSimulation("error")
		s.logger.Error(ctx, "[SIMULATION_ERROR] Simulation failed", logging.Fields{
			"city_id": in.CityID,
		}, err)
		return nil, err
	}

	s.metrics.RecordSimulation("ok")
	s.metrics.SimulatedModules.Observe(float64(sim.Result.DryCooler.Modules))
	s.metrics.SimulatedYearlySavings.Observe(sim.Result.Comparison.YearlyDifferenceLiters)

	return sim, nil
}

func (s *SimulationService) simulate(ctx context.Context, in calculator.SimulationInput) (*Simulation, error) {
	if in.CityID <= 0 {
		return nil, &calculator.InvalidInputError{Field: "city_id", Message: "is required"}
	}

	city, err := s.cities.Get(ctx, in.CityID)
	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		return nil, &calculator.InvalidInputError{Field: "city_id", Message: fmt.Sprintf("city %d does not exist", in.CityID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve city: %w", err)
	}
	if !city.Active {
		return nil, &calculator.InvalidInputError{Field: "city_id", Message: fmt.Sprintf("city %d is not available", in.CityID)}
	}

	tariffs, err := s.tariffs.GetCurrent(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load calculation constants: %w", err)
	}

	start := time.Now()
	result, err := calculator.Compute(in, city.Parameters(), tariffs)
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "[SIMULATION_COMPUTED] Simulation computed", logging.Fields{
		"city_id":      city.ID,
		"capacity_kw":  in.CapacityKW,
		"modules":      result.DryCooler.Modules,
		"savings_l":    result.Comparison.YearlyDifferenceLiters,
		"compute_usec": time.Since(start).Microseconds(),
	})

	return &Simulation{
		Input:   in,
		City:    city,
		Tariffs: tariffs,
		Result:  result,
	}, nil
}
