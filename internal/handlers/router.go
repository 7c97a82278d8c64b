package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// NewRouter mounts the public and admin APIs plus the API docs behind the request id
// and metrics middleware. /metrics is left to the caller, which owns the registry.
func NewRouter(public *PublicHandler, admin *AdminHandler, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *mux.Router {
	router := mux.NewRouter()
	router.Use(RequestID, Metrics(metricsCollector, logger))

	public.RegisterRoutes(router)
	admin.RegisterRoutes(router)

	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public.sendError(w, r, "no route for "+r.Method+" "+r.URL.Path, http.StatusNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public.sendError(w, r, "method "+r.Method+" not allowed", http.StatusMethodNotAllowed)
	})

	return router
}
