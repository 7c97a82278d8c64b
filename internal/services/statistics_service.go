package services

import (
	"context"
	"fmt"
	"time"

	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
	"water-savings-platform/pkg/logging"
	"water-savings-platform/pkg/metrics"
)

// StatisticsService summarizes the captured lead pipeline for the back-office
type StatisticsService struct {
	repo    repository.LeadRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	now     func() time.Time
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repository.LeadRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *StatisticsService {
	return &StatisticsService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// LeadStatistics aggregates leads matching filter. Pagination fields are ignored.
func (s *StatisticsService) LeadStatistics(ctx context.Context, filter repository.LeadFilter) (*models.LeadStatistics, error) {
	startTime := time.Now()

	filter.Limit = 0
	filter.Offset = 0

	rows, err := s.repo.Statistics(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate lead statistics: %w", err)
	}

	stats := models.Summarize(rows, s.now())

	s.logger.Info(ctx, "[STATS_CALC_COMPLETE] Lead statistics calculated", logging.Fields{
		"cities":           len(rows),
		"lead_count":       stats.LeadCount,
		"duration_seconds": time.Since(startTime).Seconds(),
	})

	return stats, nil
}
