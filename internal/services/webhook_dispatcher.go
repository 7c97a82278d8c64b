package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"water-savings-platform/internal/config"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// Delivery results used as metric labels
const (
	deliverySuccess        = "success"
	deliveryHTTPError      = "http_error"
	deliveryTransportError = "transport_error"
)

// WebhookDispatcher posts events to subscribed webhooks. Deliveries run in the background,
// are attempted exactly once and always leave a webhook_logs row.
type WebhookDispatcher struct {
	repo    repository.WebhookRepository
	client  *http.Client
	cfg     config.WebhookConfig
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	wg  sync.WaitGroup
	sem chan struct{}
}

// NewWebhookDispatcher creates a dispatcher. A nil client gets one with cfg.Timeout.
func NewWebhookDispatcher(repo repository.WebhookRepository, client *http.Client, cfg config.WebhookConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WebhookDispatcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 1
	}
	return &WebhookDispatcher{
		repo:    repo,
		client:  client,
		cfg:     cfg,
		logger:  logger,
		metrics: metricsCollector,
		sem:     make(chan struct{}, cfg.MaxInFlight),
	}
}

// Dispatch returns immediately. Matching webhooks are resolved and called in the
// background; cancellation of ctx does not abort deliveries already started.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, event string, payload interface{}) {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		body, err := encodeEvent(event, payload)
		if err != nil {
			d.logger.Error(ctx, "[WEBHOOK_ENCODE_ERROR] Failed to encode event", logging.Fields{
				"event": event,
			}, err)
			return
		}

		hooks, err := d.repo.ListActiveForEvent(ctx, event)
		if err != nil {
			d.logger.Error(ctx, "[WEBHOOK_LOOKUP_ERROR] Failed to list webhooks", logging.Fields{
				"event": event,
			}, err)
			return
		}

		for _, hook := range hooks {
			d.wg.Add(1)
			go func(hook *models.Webhook) {
				defer d.wg.Done()
				d.deliver(ctx, hook, event, body)
			}(hook)
		}
	}()
}

// Test sends a synthetic webhook.test event to one webhook and waits for the outcome.
// Inactive webhooks and event subscriptions are ignored so admins can verify a URL first.
func (d *WebhookDispatcher) Test(ctx context.Context, id int64) (*models.WebhookLog, error) {
	hook, err := d.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := encodeEvent(models.EventWebhookTest, map[string]interface{}{
		"webhook_id": hook.ID,
		"name":       hook.Name,
		"message":    "Test delivery from the water savings back-office",
	})
	if err != nil {
		return nil, err
	}

	return d.deliver(ctx, hook, models.EventWebhookTest, body), nil
}

// Wait blocks until every background delivery has finished
func (d *WebhookDispatcher) Wait() {
	d.wg.Wait()
}

func encodeEvent(event string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(models.WebhookEvent{
		Event:     event,
		Timestamp: time.Now().UTC(),
		Data:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", event, err)
	}
	return body, nil
}

func (d *WebhookDispatcher) deliver(ctx context.Context, hook *models.Webhook, event string, body []byte) *models.WebhookLog {
	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	d.metrics.WebhooksInFlight.Inc()
	defer d.metrics.WebhooksInFlight.Dec()

	entry := &models.WebhookLog{
		WebhookID: hook.ID,
		Event:     event,
	}

	start := time.Now()
	status, respBody, err := d.post(ctx, hook.URL, event, body)
	duration := time.Since(start)
	entry.DurationMS = duration.Milliseconds()
	entry.ResponseBody = respBody

	result := deliverySuccess
	switch {
	case err != nil:
		result = deliveryTransportError
		msg := err.Error()
		entry.Error = &msg
	default:
		entry.StatusCode = &status
		if status < 200 || status >= 300 {
			result = deliveryHTTPError
			msg := fmt.Sprintf("unexpected status %d", status)
			entry.Error = &msg
		}
	}
	d.metrics.RecordWebhookDelivery(event, result, duration)

	fields := logging.Fields{
		"webhook_id":  hook.ID,
		"event":       event,
		"result":      result,
		"duration_ms": entry.DurationMS,
	}
	if entry.StatusCode != nil {
		fields["status_code"] = *entry.StatusCode
	}
	if result == deliverySuccess {
		d.logger.Info(ctx, "[WEBHOOK_DELIVERED] Webhook delivered", fields)
	} else {
		d.logger.Warn(ctx, "[WEBHOOK_FAILED] Webhook delivery failed", fields)
	}

	if logErr := d.repo.LogDelivery(ctx, entry); logErr != nil {
		d.logger.Error(ctx, "[WEBHOOK_LOG_ERROR] Failed to record webhook delivery", logging.Fields{
			"webhook_id": hook.ID,
			"event":      event,
		}, logErr)
	}

	return entry
}

func (d *WebhookDispatcher) post(ctx context.Context, url, event string, body []byte) (int, string, error) {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", event)
	req.Header.Set("X-Webhook-Delivery", uuid.NewString())
	if d.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", d.cfg.UserAgent)
	}
	if id := logging.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	return resp.StatusCode, readLimited(resp.Body, d.cfg.MaxLogBody), nil
}

// readLimited keeps at most limit bytes of the response for the delivery log
func readLimited(r io.Reader, limit int) string {
	if limit <= 0 {
		_, _ = io.Copy(io.Discard, r)
		return ""
	}
	buf, _ := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	_, _ = io.Copy(io.Discard, r)
	if len(buf) > limit {
		return strings.ToValidUTF8(string(buf[:limit]), "") + "…"
	}
	return string(buf)
}
