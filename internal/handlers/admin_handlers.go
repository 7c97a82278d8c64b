package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"water-savings-platform/internal/services"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// AdminHandler serves the back-office: cities, calculation constants, leads and webhooks
type AdminHandler struct {
	responder
	catalog  *services.CatalogService
	leads    *services.LeadService
	exports  *services.ExportService
	stats    *services.StatisticsService
	webhooks *services.WebhookService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	catalog *services.CatalogService,
	leads *services.LeadService,
	exports *services.ExportService,
	stats *services.StatisticsService,
	webhooks *services.WebhookService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *AdminHandler {
	return &AdminHandler{
		responder: responder{logger: logger, metrics: metricsCollector},
		catalog:   catalog,
		leads:     leads,
		exports:   exports,
		stats:     stats,
		webhooks:  webhooks,
	}
}

// RegisterRoutes registers every /api/admin route
func (h *AdminHandler) RegisterRoutes(router *mux.Router) {
	admin := router.PathPrefix("/api/admin").Subrouter()

	admin.HandleFunc("/cities", h.ListCities).Methods("GET")
	admin.HandleFunc("/cities", h.CreateCity).Methods("POST")
	admin.HandleFunc("/cities/{id:[0-9]+}", h.GetCity).Methods("GET")
	admin.HandleFunc("/cities/{id:[0-9]+}", h.UpdateCity).Methods("PUT")
	admin.HandleFunc("/cities/{id:[0-9]+}", h.DeleteCity).Methods("DELETE")

	admin.HandleFunc("/tariffs", h.GetTariffs).Methods("GET")
	admin.HandleFunc("/tariffs", h.UpdateTariffs).Methods("PUT")

	admin.HandleFunc("/leads", h.ListLeads).Methods("GET")
	admin.HandleFunc("/leads/stats", h.LeadStatistics).Methods("GET")
	admin.HandleFunc("/leads/export.xlsx", h.ExportLeads).Methods("GET")
	admin.HandleFunc("/leads/{id}", h.GetLead).Methods("GET")
	admin.HandleFunc("/leads/{id}", h.DeleteLead).Methods("DELETE")

	admin.HandleFunc("/webhooks", h.ListWebhooks).Methods("GET")
	admin.HandleFunc("/webhooks", h.CreateWebhook).Methods("POST")
	admin.HandleFunc("/webhooks/{id:[0-9]+}", h.GetWebhook).Methods("GET")
	admin.HandleFunc("/webhooks/{id:[0-9]+}", h.UpdateWebhook).Methods("PUT")
	admin.HandleFunc("/webhooks/{id:[0-9]+}", h.DeleteWebhook).Methods("DELETE")
	admin.HandleFunc("/webhooks/{id:[0-9]+}/logs", h.WebhookLogs).Methods("GET")
	admin.HandleFunc("/webhooks/{id:[0-9]+}/test", h.TestWebhook).Methods("POST")
}

// int64Var reads a numeric path variable; routes constrain it to digits
func (h *AdminHandler) int64Var(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, r, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) uuidVar(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		h.sendError(w, r, "invalid "+name+", expected a UUID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
