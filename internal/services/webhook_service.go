package services

import (
	"context"

	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
)

const (
	defaultLogLimit = 50
	maxLogLimit     = 500
)

// WebhookService manages webhook subscriptions for the back-office
type WebhookService struct {
	repo       repository.WebhookRepository
	dispatcher *WebhookDispatcher
	logger     *logging.StructuredLogger
}

// NewWebhookService creates a new webhook service
func NewWebhookService(repo repository.WebhookRepository, dispatcher *WebhookDispatcher, logger *logging.StructuredLogger) *WebhookService {
	return &WebhookService{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Create validates and stores a subscription
func (s *WebhookService) Create(ctx context.Context, hook *models.Webhook) error {
	hook.ID = 0
	hook.Normalize()
	if err := hook.Validate(); err != nil {
		return err
	}
	return s.repo.Create(ctx, hook)
}

// Get retrieves a subscription
func (s *WebhookService) Get(ctx context.Context, id int64) (*models.Webhook, error) {
	return s.repo.Get(ctx, id)
}

// List returns every subscription
func (s *WebhookService) List(ctx context.Context) ([]*models.Webhook, error) {
	return s.repo.List(ctx)
}

// Update validates and overwrites a subscription
func (s *WebhookService) Update(ctx context.Context, hook *models.Webhook) error {
	hook.Normalize()
	if err := hook.Validate(); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, hook); err != nil {
		return err
	}

	s.logger.Info(ctx, "[WEBHOOK_UPDATED] Webhook updated", logging.Fields{
		"webhook_id": hook.ID,
		"active":     hook.Active,
	})
	return nil
}

// Delete removes a subscription and its log
func (s *WebhookService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Logs returns recent deliveries, newest first. limit is clamped to a sane page.
func (s *WebhookService) Logs(ctx context.Context, id int64, limit int) ([]*models.WebhookLog, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLogLimit
	}
	limit = min(limit, maxLogLimit)
	return s.repo.ListLogs(ctx, id, limit)
}

// Test delivers a webhook.test event synchronously
func (s *WebhookService) Test(ctx context.Context, id int64) (*models.WebhookLog, error) {
	return s.dispatcher.Test(ctx, id)
}
