package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"water-savings-platform/internal/models"
	"water-savings-platform/pkg/database"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// WebhookRepository provides data access for webhook subscriptions and their delivery log
type WebhookRepository interface {
	Create(ctx context.Context, hook *models.Webhook) error
	Get(ctx context.Context, id int64) (*models.Webhook, error)
	List(ctx context.Context) ([]*models.Webhook, error)
	ListActiveForEvent(ctx context.Context, event string) ([]*models.Webhook, error)
	Update(ctx context.Context, hook *models.Webhook) error
	Delete(ctx context.Context, id int64) error

	LogDelivery(ctx context.Context, entry *models.WebhookLog) error
	ListLogs(ctx context.Context, webhookID int64, limit int) ([]*models.WebhookLog, error)
}

const webhookColumns = `id, name, url, events, active, created_at, updated_at`

type webhookRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) WebhookRepository {
	return &webhookRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Create inserts a subscription and fills its id and timestamps
func (r *webhookRepository) Create(ctx context.Context, hook *models.Webhook) error {
	query := `
		INSERT INTO webhooks (name, url, events, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.GetContext(ctx, "insert_webhook", hook, query, hook.Name, hook.URL, hook.Events, hook.Active); err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}

	r.logger.Info(ctx, "[REPO_CREATE_WEBHOOK] Webhook created", logging.Fields{
		"webhook_id": hook.ID,
		"url":        hook.URL,
		"events":     []string(hook.Events),
	})

	return nil
}

// Get retrieves a subscription by id
func (r *webhookRepository) Get(ctx context.Context, id int64) (*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`

	var hook models.Webhook
	err := r.db.GetContext(ctx, "get_webhook", &hook, query, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "webhook", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}

	return &hook, nil
}

// List returns every subscription ordered by id
func (r *webhookRepository) List(ctx context.Context) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks ORDER BY id`

	hooks := []*models.Webhook{}
	if err := r.db.SelectContext(ctx, "list_webhooks", &hooks, query); err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}

	return hooks, nil
}

// ListActiveForEvent returns the active subscriptions that include event
func (r *webhookRepository) ListActiveForEvent(ctx context.Context, event string) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE active AND $1 = ANY(events) ORDER BY id`

	hooks := []*models.Webhook{}
	if err := r.db.SelectContext(ctx, "list_webhooks_for_event", &hooks, query, event); err != nil {
		return nil, fmt.Errorf("failed to list webhooks for %s: %w", event, err)
	}

	return hooks, nil
}

// Update overwrites the editable columns of a subscription
func (r *webhookRepository) Update(ctx context.Context, hook *models.Webhook) error {
	query := `
		UPDATE webhooks
		SET name = $1, url = $2, events = $3, active = $4, updated_at = $5
		WHERE id = $6
		RETURNING created_at, updated_at
	`

	err := r.db.GetContext(ctx, "update_webhook", hook, query,
		hook.Name,
		hook.URL,
		hook.Events,
		hook.Active,
		time.Now().UTC(),
		hook.ID,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return &NotFoundError{Resource: "webhook", ID: strconv.FormatInt(hook.ID, 10)}
	}
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}

	return nil
}

// Delete removes a subscription and its delivery log
func (r *webhookRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "delete_webhook", `DELETE FROM webhooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if rows == 0 {
		return &NotFoundError{Resource: "webhook", ID: strconv.FormatInt(id, 10)}
	}

	return nil
}

// LogDelivery appends one delivery attempt
func (r *webhookRepository) LogDelivery(ctx context.Context, entry *models.WebhookLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO webhook_logs (webhook_id, event, status_code, response_body, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.GetContext(ctx, "insert_webhook_log", &entry.ID, query,
		entry.WebhookID,
		entry.Event,
		entry.StatusCode,
		entry.ResponseBody,
		entry.Error,
		entry.DurationMS,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to log webhook delivery: %w", err)
	}

	return nil
}

// ListLogs returns the most recent delivery attempts for a subscription
func (r *webhookRepository) ListLogs(ctx context.Context, webhookID int64, limit int) ([]*models.WebhookLog, error) {
	query := `
		SELECT id, webhook_id, event, status_code, response_body, error, duration_ms, created_at
		FROM webhook_logs
		WHERE webhook_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	logs := []*models.WebhookLog{}
	if err := r.db.SelectContext(ctx, "list_webhook_logs", &logs, query, webhookID, limit); err != nil {
		return nil, fmt.Errorf("failed to list webhook logs: %w", err)
	}

	return logs, nil
}
