package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// leadFilter parses the city_id, from and until query parameters shared by the list, stats
// and export endpoints. Dates accept RFC3339 or YYYY-MM-DD. until is exclusive; a bare
// until date covers that whole day.
func (h *AdminHandler) leadFilter(w http.ResponseWriter, r *http.Request) (repository.LeadFilter, bool) {
	var filter repository.LeadFilter
	query := r.URL.Query()

	if cityStr := query.Get("city_id"); cityStr != "" {
		cityID, err := strconv.ParseInt(cityStr, 10, 64)
		if err != nil || cityID <= 0 {
			h.sendError(w, r, "invalid city_id", http.StatusBadRequest)
			return filter, false
		}
		filter.CityID = &cityID
	}

	if fromStr := query.Get("from"); fromStr != "" {
		from, _, err := parseDate(fromStr)
		if err != nil {
			h.sendError(w, r, "invalid from, expected RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return filter, false
		}
		filter.CreatedFrom = &from
	}

	if untilStr := query.Get("until"); untilStr != "" {
		until, dateOnly, err := parseDate(untilStr)
		if err != nil {
			h.sendError(w, r, "invalid until, expected RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
			return filter, false
		}
		if dateOnly {
			until = until.AddDate(0, 0, 1)
		}
		filter.CreatedUntil = &until
	}

	if filter.CreatedFrom != nil && filter.CreatedUntil != nil && filter.CreatedUntil.Before(*filter.CreatedFrom) {
		h.sendError(w, r, "until must not be before from", http.StatusBadRequest)
		return filter, false
	}

	return filter, true
}

func parseDate(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), false, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// ListLeads handles GET /api/admin/leads
func (h *AdminHandler) ListLeads(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.leadFilter(w, r)
	if !ok {
		return
	}

	page, limit, offset := pagination(r, 50, 500)
	filter.Limit = limit
	filter.Offset = offset

	leads, total, err := h.leads.List(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_LIST_LEADS_ERROR", "failed to retrieve leads", err)
		return
	}

	h.sendJSON(w, paginated(leads, total, page, limit), http.StatusOK)
}

// GetLead handles GET /api/admin/leads/{id}
func (h *AdminHandler) GetLead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidVar(w, r, "id")
	if !ok {
		return
	}

	lead, err := h.leads.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_GET_LEAD_ERROR", "failed to retrieve lead", err)
		return
	}

	h.sendJSON(w, lead, http.StatusOK)
}

// DeleteLead handles DELETE /api/admin/leads/{id}
func (h *AdminHandler) DeleteLead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.uuidVar(w, r, "id")
	if !ok {
		return
	}

	if err := h.leads.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, "API_ADMIN_DELETE_LEAD_ERROR", "failed to delete lead", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LeadStatistics handles GET /api/admin/leads/stats with the same filters as the list
func (h *AdminHandler) LeadStatistics(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.leadFilter(w, r)
	if !ok {
		return
	}

	stats, err := h.stats.LeadStatistics(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_LEAD_STATS_ERROR", "failed to calculate lead statistics", err)
		return
	}

	h.sendJSON(w, stats, http.StatusOK)
}

// ExportLeads handles GET /api/admin/leads/export.xlsx. Filters apply, pagination does not.
func (h *AdminHandler) ExportLeads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, ok := h.leadFilter(w, r)
	if !ok {
		return
	}

	// The workbook is only written once fully built, so errors can still become a JSON 500.
	var buf bytes.Buffer
	rows, err := h.exports.LeadsXLSX(ctx, filter, &buf)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_EXPORT_LEADS_ERROR", "failed to export leads", err)
		return
	}

	filename := fmt.Sprintf("leads-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn(ctx, "[API_ADMIN_EXPORT_WRITE_ERROR] Client went away during export", logging.Fields{
			"error": err.Error(),
		})
		return
	}

	h.logger.Info(ctx, "[API_ADMIN_EXPORT_LEADS] Lead export served", logging.Fields{
		"rows":  rows,
		"bytes": buf.Len(),
	})
}
