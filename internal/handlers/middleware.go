package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// RequestIDHeader carries the request id in and out
const RequestIDHeader = "X-Request-ID"

// RequestID reuses an inbound X-Request-ID or mints a uuid, stores it in the context
// for the logger and echoes it on the response
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Metrics records request count and latency per route template
func Metrics(collector *metrics.Collector, logger *logging.StructuredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			endpoint := routeTemplate(r)
			duration := time.Since(start)
			collector.APIRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
			collector.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(rec.status))

			logger.Debug(r.Context(), "[API_REQUEST] Request served", logging.Fields{
				"method":      r.Method,
				"endpoint":    endpoint,
				"status":      rec.status,
				"duration_ms": duration.Milliseconds(),
			})
		})
	}
}

// routeTemplate keeps metric label cardinality bounded by using the mux template
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
