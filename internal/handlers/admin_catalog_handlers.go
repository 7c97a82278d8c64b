package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
)

// TariffsResponse carries both the typed constants and the raw rows
type TariffsResponse struct {
	Current calculator.TariffConstants `json:"current"`
	Entries []models.TariffEntry       `json:"entries"`
}

// ListCities handles GET /api/admin/cities
func (h *AdminHandler) ListCities(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r, 50, 500)

	filter := repository.CityFilter{
		Limit:  limit,
		Offset: offset,
	}

	if state := strings.TrimSpace(r.URL.Query().Get("state")); state != "" {
		state = strings.ToUpper(state)
		filter.State = &state
	}

	if activeStr := r.URL.Query().Get("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			h.sendError(w, r, "invalid active, expected true or false", http.StatusBadRequest)
			return
		}
		filter.Active = &active
	}

	cities, total, err := h.catalog.ListCities(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_LIST_CITIES_ERROR", "failed to retrieve cities", err)
		return
	}

	h.sendJSON(w, paginated(cities, total, page, limit), http.StatusOK)
}

// CreateCity handles POST /api/admin/cities
func (h *AdminHandler) CreateCity(w http.ResponseWriter, r *http.Request) {
	var city models.City
	if !h.decodeJSON(w, r, &city) {
		return
	}

	if err := h.catalog.CreateCity(r.Context(), &city); err != nil {
		h.handleError(w, r, "API_ADMIN_CREATE_CITY_ERROR", "failed to create city", err)
		return
	}

	h.sendJSON(w, city, http.StatusCreated)
}

// GetCity handles GET /api/admin/cities/{id}
func (h *AdminHandler) GetCity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Var(w, r, "id")
	if !ok {
		return
	}

	city, err := h.catalog.GetCity(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_GET_CITY_ERROR", "failed to retrieve city", err)
		return
	}

	h.sendJSON(w, city, http.StatusOK)
}

// UpdateCity handles PUT /api/admin/cities/{id}
func (h *AdminHandler) UpdateCity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Var(w, r, "id")
	if !ok {
		return
	}

	var city models.City
	if !h.decodeJSON(w, r, &city) {
		return
	}
	city.ID = id

	if err := h.catalog.UpdateCity(r.Context(), &city); err != nil {
		h.handleError(w, r, "API_ADMIN_UPDATE_CITY_ERROR", "failed to update city", err)
		return
	}

	h.sendJSON(w, city, http.StatusOK)
}

// DeleteCity handles DELETE /api/admin/cities/{id}
func (h *AdminHandler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Var(w, r, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteCity(r.Context(), id); err != nil {
		h.handleError(w, r, "API_ADMIN_DELETE_CITY_ERROR", "failed to delete city", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTariffs handles GET /api/admin/tariffs
func (h *AdminHandler) GetTariffs(w http.ResponseWriter, r *http.Request) {
	h.sendTariffs(w, r, http.StatusOK)
}

// UpdateTariffs handles PUT /api/admin/tariffs with a {"key": value} object.
// Keys left out keep their stored value.
func (h *AdminHandler) UpdateTariffs(w http.ResponseWriter, r *http.Request) {
	var values map[string]float64
	if !h.decodeJSON(w, r, &values) {
		return
	}
	if len(values) == 0 {
		h.sendError(w, r, "at least one calculation constant is required", http.StatusBadRequest)
		return
	}

	if _, err := h.catalog.SetTariffs(r.Context(), values); err != nil {
		h.handleError(w, r, "API_ADMIN_UPDATE_TARIFFS_ERROR", "failed to update calculation constants", err)
		return
	}

	h.sendTariffs(w, r, http.StatusOK)
}

func (h *AdminHandler) sendTariffs(w http.ResponseWriter, r *http.Request, status int) {
	ctx := r.Context()

	entries, err := h.catalog.ListTariffs(ctx)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_TARIFFS_ERROR", "failed to retrieve calculation constants", err)
		return
	}
	current, _ := models.ResolveTariffs(entries)

	h.sendJSON(w, TariffsResponse{Current: current, Entries: entries}, status)
}
