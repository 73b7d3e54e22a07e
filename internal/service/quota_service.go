package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/studyvault-api/internal/models"
	"github.com/noah-isme/studyvault-api/pkg/config"
)

// bytesPerMB is the decimal megabyte used in user-facing sizes.
const bytesPerMB = 1_000_000

type usageReader interface {
	MonthlyUsage(ctx context.Context, userID string) (int64, error)
}

type quotaMetrics interface {
	RecordQuotaDecision(outcome string)
}

// QuotaConfig configures the monthly gate.
type QuotaConfig struct {
	MonthlyBytes int64
	FailOpen     bool
}

// QuotaService admits or rejects previews and downloads against the monthly byte ceiling.
type QuotaService struct {
	usage   usageReader
	metrics quotaMetrics
	logger  *zap.Logger
	cfg     QuotaConfig
}

// NewQuotaService constructs the quota gate.
func NewQuotaService(usage usageReader, metrics quotaMetrics, logger *zap.Logger, cfg QuotaConfig) *QuotaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MonthlyBytes <= 0 {
		cfg.MonthlyBytes = config.DefaultMonthlyQuotaBytes
	}
	return &QuotaService{usage: usage, metrics: metrics, logger: logger, cfg: cfg}
}

// Limit returns the configured ceiling.
func (s *QuotaService) Limit() int64 {
	return s.cfg.MonthlyBytes
}

// Check reports whether additionalBytes fit into the caller's remaining monthly
// allowance. A failed usage read is reported through the error only when the
// gate is configured to fail closed.
func (s *QuotaService) Check(ctx context.Context, userID string, additionalBytes int64) (models.QuotaStatus, error) {
	if additionalBytes < 0 {
		additionalBytes = 0
	}
	limit := s.cfg.MonthlyBytes

	current, err := s.usage.MonthlyUsage(ctx, userID)
	if err != nil {
		if !s.cfg.FailOpen {
			s.logger.Error("quota usage lookup failed", zap.String("user_id", userID), zap.Error(err))
			s.record("error")
			return models.QuotaStatus{}, fmt.Errorf("read monthly usage: %w", err)
		}
		s.logger.Warn("quota usage lookup failed, allowing request", zap.String("user_id", userID), zap.Error(err))
		s.record("degraded")
		return models.QuotaStatus{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			Requested: additionalBytes,
			Degraded:  true,
		}, nil
	}

	status := models.QuotaStatus{
		CurrentUsage: current,
		Limit:        limit,
		Requested:    additionalBytes,
	}

	projected := current + additionalBytes
	if projected > limit {
		remaining := limit - current
		if remaining < 0 {
			remaining = 0
		}
		status.Remaining = remaining
		status.Message = fmt.Sprintf("Monthly preview/download limit reached. You have %.2f MB remaining this month.", float64(remaining)/bytesPerMB)
		s.record("rejected")
		return status, nil
	}

	status.Allowed = true
	status.Remaining = limit - projected
	s.record("allowed")
	return status, nil
}

func (s *QuotaService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.RecordQuotaDecision(outcome)
	}
}
