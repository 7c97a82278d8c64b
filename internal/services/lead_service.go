package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// EventDispatcher forwards domain events to subscribers without blocking the caller
type EventDispatcher interface {
	Dispatch(ctx context.Context, event string, payload interface{})
}

// LeadService captures wizard leads and serves them to the back-office
type LeadService struct {
	simulations *SimulationService
	repo        repository.LeadRepository
	dispatcher  EventDispatcher
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewLeadService creates a new lead service
func NewLeadService(simulations *SimulationService, repo repository.LeadRepository, dispatcher EventDispatcher, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *LeadService {
	return &LeadService{
		simulations: simulations,
		repo:        repo,
		dispatcher:  dispatcher,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// Submit validates the contact, recomputes the simulation server-side, stores both and
// emits lead.created. The simulation is never taken from the client.
func (s *LeadService) Submit(ctx context.Context, contact models.Lead, in calculator.SimulationInput) (*models.LeadRecord, error) {
	contact.ID = uuid.Nil
	contact.CreatedAt = time.Time{}
	contact.CityID = in.CityID
	contact.Normalize()
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	sim, err := s.simulations.Simulate(ctx, in)
	if err != nil {
		return nil, err
	}

	stored := models.NewSimulation(sim.Input, sim.Tariffs, sim.Result)
	if err := s.repo.Save(ctx, &contact, stored); err != nil {
		return nil, fmt.Errorf("failed to save lead: %w", err)
	}

	record := &models.LeadRecord{
		Lead:       contact,
		CityName:   sim.City.Name,
		Simulation: stored,
	}

	s.logger.Info(ctx, "[LEAD_CREATED] Lead captured", logging.Fields{
		"lead_id": contact.ID.String(),
		"city_id": contact.CityID,
		"modules": stored.Modules,
		"source":  contact.Source,
	})

	s.dispatcher.Dispatch(ctx, models.EventLeadCreated, record)

	return record, nil
}

// Get retrieves a lead with its simulation
func (s *LeadService) Get(ctx context.Context, id uuid.UUID) (*models.LeadRecord, error) {
	return s.repo.Get(ctx, id)
}

// List retrieves lead summaries with filtering
func (s *LeadService) List(ctx context.Context, filter repository.LeadFilter) ([]*models.LeadSummary, int, error) {
	return s.repo.List(ctx, filter)
}

// Delete removes a lead
func (s *LeadService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
