package thresholds

import (
	"context"
	"database/sql"

	"github.com/pvewatch/pvewatch/pkg/db"
	apperrors "github.com/pvewatch/pvewatch/pkg/errors"
	"github.com/pvewatch/pvewatch/pkg/logger"
	"github.com/pvewatch/pvewatch/pkg/proxmox"
)

// Defaults are the thresholds seeded at initialization. Operator changes
// are never overwritten by reseeding.
var Defaults = map[string]float64{
	proxmox.MetricCPU:    80,
	proxmox.MetricMemory: 85,
	proxmox.MetricDisk:   90,
}

// Service manages the per-metric alert thresholds.
type Service struct {
	queries *db.Queries
	logger  *logger.Logger
}

func NewService(queries *db.Queries, logger *logger.Logger) *Service {
	return &Service{
		queries: queries,
		logger:  logger,
	}
}

// EnsureDefaults seeds the default threshold rows for any metric that does
// not have one yet.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	for _, metric := range proxmox.MetricNames {
		if err := s.queries.SeedAlertThreshold(ctx, metric, Defaults[metric]); err != nil {
			return apperrors.NewDatabaseError("failed to seed threshold", err, map[string]interface{}{
				"metric": metric,
			})
		}
	}
	return nil
}

// List returns every threshold row.
func (s *Service) List(ctx context.Context) ([]db.AlertThreshold, error) {
	thresholds, err := s.queries.ListAlertThresholds(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to list thresholds", err, nil)
	}
	return thresholds, nil
}

// Get returns the threshold for one metric.
func (s *Service) Get(ctx context.Context, metric string) (*db.AlertThreshold, error) {
	threshold, err := s.queries.GetAlertThreshold(ctx, metric)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("threshold not found", map[string]interface{}{
			"metric": metric,
		})
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to get threshold", err, nil)
	}
	return threshold, nil
}

// Update mutates the threshold percent and enabled flag for a known metric.
func (s *Service) Update(ctx context.Context, metric string, thresholdPercent float64, enabled bool) (*db.AlertThreshold, error) {
	if _, ok := Defaults[metric]; !ok {
		return nil, apperrors.NewValidationError("unknown metric", map[string]interface{}{
			"metric": metric,
		})
	}
	if thresholdPercent < 0 || thresholdPercent > 100 {
		return nil, apperrors.NewValidationError("threshold percent must be between 0 and 100", map[string]interface{}{
			"threshold_percent": thresholdPercent,
		})
	}

	updated, err := s.queries.UpdateAlertThreshold(ctx, db.UpdateAlertThresholdParams{
		Metric:           metric,
		ThresholdPercent: thresholdPercent,
		Enabled:          enabled,
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to update threshold", err, map[string]interface{}{
			"metric": metric,
		})
	}

	s.logger.Info("Updated alert threshold", "metric", metric, "threshold", thresholdPercent, "enabled", enabled)
	return updated, nil
}
