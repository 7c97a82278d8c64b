package handlers

import (
	"net/http"
	"strconv"

	"water-savings-platform/internal/models"
)

// ListWebhooks handles GET /api/admin/webhooks
func (h *AdminHandler) ListWebhooks(w http.ResponseWriter, r *http.Request) {
	hooks, err := h.webhooks.List(r.Context())
	if err != nil {
		h.handleError(w, r, "API_ADMIN_LIST_WEBHOOKS_ERROR", "failed to retrieve webhooks", err)
		return
	}

	h.sendJSON(w, hooks, http.StatusOK)
}

// CreateWebhook handles POST /api/admin/webhooks
func (h *AdminHandler) CreateWebhook(w http.ResponseWriter, r *http.Request) {
	var hook models.Webhook
	if !h.decodeJSON(w, r, &hook) {
		return
	}

	if err := h.webhooks.Create(r.Context(), &hook); err != nil {
		h.handleError(w, r, "API_ADMIN_CREATE_WEBHOOK_ERROR", "failed to create webhook", err)
		return
	}

	h.sendJSON(w, hook, http.StatusCreated)
}

// GetWebhook handles GET /api/admin/webhooks/{id}
func (h *AdminHandler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Var(w, r, "id")
	if !ok {
		return
	}

	hook, err := h.webhooks.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_GET_WEBHOOK_ERROR", "failed to retrieve webhook", err)
		return
	}

	h.sendJSON(w, hook, http.StatusOK)
}

// UpdateWebhook handles PUT /api/admin/webhooks/{id}
func (h *AdminHandler) UpdateWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Var(w, r, "id")
	if !ok {
		return
	}

	var hook models.Webhook
	if !h.decodeJSON(w, r, &hook) {
		return
	}
	hook.ID = id

	if err := h.webhooks.Update(r.Context(), &hook); err != nil {
		h.handleError(w, r, "API_ADMIN_UPDATE_WEBHOOK_ERROR", "failed to update webhook", err)
		return
	}

	h.sendJSON(w, hook, http.StatusOK)
}

// DeleteWebhook handles DELETE /api/admin/webhooks/{id}
func (h *AdminHandler) DeleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Var(w, r, "id")
	if !ok {
		return
	}

	if err := h.webhooks.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, "API_ADMIN_DELETE_WEBHOOK_ERROR", "failed to delete webhook", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// WebhookLogs handles GET /api/admin/webhooks/{id}/logs?limit=N, newest first
func (h *AdminHandler) WebhookLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Var(w, r, "id")
	if !ok {
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			h.sendError(w, r, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = l
	}

	logs, err := h.webhooks.Logs(r.Context(), id, limit)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_WEBHOOK_LOGS_ERROR", "failed to retrieve webhook logs", err)
		return
	}

	h.sendJSON(w, logs, http.StatusOK)
}

// TestWebhook handles POST /api/admin/webhooks/{id}/test. The delivery runs synchronously
// and its log entry is returned whether or not the receiver accepted it.
func (h *AdminHandler) TestWebhook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.int64Var(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.webhooks.Test(r.Context(), id)
	if err != nil {
		h.handleError(w, r, "API_ADMIN_TEST_WEBHOOK_ERROR", "failed to test webhook", err)
		return
	}

	h.sendJSON(w, entry, http.StatusOK)
}
