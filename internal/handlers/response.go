package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Field   string `json:"field,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// responder holds what every handler needs to write responses
type responder struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// sendJSON sends a JSON response
func (h *responder) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *responder) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.sendFieldError(w, r, "", message, statusCode)
}

func (h *responder) sendFieldError(w http.ResponseWriter, r *http.Request, field, message string, statusCode int) {
	h.metrics.RecordAPIError(errorType(statusCode), routeTemplate(r))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
		Field:   field,
	}

	h.sendJSON(w, response, statusCode)
}

// handleError maps domain errors to HTTP statuses. Anything unrecognised is logged and
// reported as a 500 with a generic message.
func (h *responder) handleError(w http.ResponseWriter, r *http.Request, tag, message string, err error) {
	var (
		invalid    *calculator.InvalidInputError
		validation *models.ValidationError
		notFound   *repository.NotFoundError
		conflict   *repository.ConflictError
	)

	switch {
	case errors.As(err, &invalid):
		h.sendFieldError(w, r, invalid.Field, invalid.Error(), http.StatusBadRequest)
	case errors.As(err, &validation):
		h.sendFieldError(w, r, validation.Field, validation.Error(), http.StatusBadRequest)
	case errors.As(err, &notFound):
		h.sendError(w, r, notFound.Error(), http.StatusNotFound)
	case errors.As(err, &conflict):
		h.sendError(w, r, conflict.Error(), http.StatusConflict)
	default:
		h.logger.Error(r.Context(), fmt.Sprintf("[%s] %s", tag, message), logging.Fields{
			"path":   r.URL.Path,
			"method": r.Method,
		}, err)
		h.sendError(w, r, message, http.StatusInternalServerError)
	}
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields
func (h *responder) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body: " + err.Error()
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		h.sendError(w, r, msg, http.StatusBadRequest)
		return false
	}
	if dec.More() {
		h.sendError(w, r, "request body must contain a single JSON object", http.StatusBadRequest)
		return false
	}
	return true
}

func errorType(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "internal_error"
	case statusCode == http.StatusNotFound:
		return "not_found"
	case statusCode == http.StatusConflict:
		return "conflict"
	default:
		return "bad_request"
	}
}

// pagination parses page and limit query parameters
func pagination(r *http.Request, defaultLimit, maxLimit int) (page, limit, offset int) {
	page = 1
	limit = defaultLimit

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= maxLimit {
		limit = l
	}

	return page, limit, (page - 1) * limit
}

func paginated(data interface{}, total, page, limit int) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}
}
