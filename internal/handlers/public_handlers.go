package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/services"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// PublicHandler serves the wizard: city list, simulation preview and lead capture
type PublicHandler struct {
	responder
	simulations *services.SimulationService
	leads       *services.LeadService
	catalog     *services.CatalogService
	health      HealthChecker
}

// NewPublicHandler creates a new public handler. health may be nil.
func NewPublicHandler(
	simulations *services.SimulationService,
	leads *services.LeadService,
	catalog *services.CatalogService,
	health HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *PublicHandler {
	return &PublicHandler{
		responder:   responder{logger: logger, metrics: metricsCollector},
		simulations: simulations,
		leads:       leads,
		catalog:     catalog,
		health:      health,
	}
}

// LeadRequest is the wizard's final submission
type LeadRequest struct {
	Contact models.Lead                `json:"contact"`
	Input   calculator.SimulationInput `json:"input"`
}

// CityOption is the public projection of a city for the wizard's picker
type CityOption struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	State               string  `json:"state"`
	AverageTemperatureC float64 `json:"average_temperature_c"`
}

// Simulate handles POST /api/simulations
func (h *PublicHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var in calculator.SimulationInput
	if !h.decodeJSON(w, r, &in) {
		return
	}

	sim, err := h.simulations.Simulate(r.Context(), in)
	if err != nil {
		h.handleError(w, r, "API_SIMULATE_ERROR", "failed to run simulation", err)
		return
	}

	h.sendJSON(w, sim, http.StatusOK)
}

// SubmitLead handles POST /api/leads
func (h *PublicHandler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	record, err := h.leads.Submit(r.Context(), req.Contact, req.Input)
	if err != nil {
		h.handleError(w, r, "API_SUBMIT_LEAD_ERROR", "failed to store lead", err)
		return
	}

	h.sendJSON(w, record, http.StatusCreated)
}

// ListCities handles GET /api/cities
func (h *PublicHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.catalog.ActiveCities(r.Context())
	if err != nil {
		h.handleError(w, r, "API_LIST_CITIES_ERROR", "failed to retrieve cities", err)
		return
	}

	options := make([]CityOption, 0, len(cities))
	for _, c := range cities {
		options = append(options, CityOption{
			ID:                  c.ID,
			Name:                c.Name,
			State:               c.State,
			AverageTemperatureC: c.AverageTemperatureC,
		})
	}

	h.sendJSON(w, options, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *PublicHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if h.health != nil {
		if err := h.health.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Database unreachable", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "unhealthy"
			status["database"] = "unreachable"
			code = http.StatusServiceUnavailable
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

// RegisterRoutes registers the public wizard routes
func (h *PublicHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/simulations", h.Simulate).Methods("POST")
	router.HandleFunc("/api/leads", h.SubmitLead).Methods("POST")
	router.HandleFunc("/api/cities", h.ListCities).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
