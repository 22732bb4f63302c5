package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/pvewatch/pvewatch/pkg/db"
	"github.com/pvewatch/pvewatch/pkg/logger"
)

// DefaultRetentionDays bounds the metric history; older points are deleted
// as a maintenance side-effect of each collection tick.
const DefaultRetentionDays = 7

// Service is the bounded time-series store for per-node metric samples.
type Service struct {
	queries       *db.Queries
	logger        *logger.Logger
	retentionDays int
	now           func() time.Time
}

func NewService(queries *db.Queries, logger *logger.Logger, retentionDays int) *Service {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Service{
		queries:       queries,
		logger:        logger,
		retentionDays: retentionDays,
		now:           time.Now,
	}
}

// Append writes one immutable metric point.
func (s *Service) Append(ctx context.Context, node, metric string, value float64, ts time.Time) error {
	err := s.queries.CreateMetricPoint(ctx, db.CreateMetricPointParams{
		Node:      node,
		Metric:    metric,
		Value:     value,
		Timestamp: ts,
	})
	if err != nil {
		return fmt.Errorf("failed to append metric point %s/%s: %w", node, metric, err)
	}
	return nil
}

// Range returns the points for (node, metric) since the given time, ordered
// by timestamp ascending.
func (s *Service) Range(ctx context.Context, node, metric string, since time.Time) ([]db.MetricPoint, error) {
	points, err := s.queries.ListMetricPointsSince(ctx, node, metric, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric points %s/%s: %w", node, metric, err)
	}
	return points, nil
}

// Cleanup deletes points older than the retention window.
func (s *Service) Cleanup(ctx context.Context) error {
	cutoff := s.now().UTC().AddDate(0, 0, -s.retentionDays)
	deleted, err := s.queries.DeleteMetricPointsBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to delete expired metric points: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("Deleted expired metric points", "count", deleted, "cutoff", cutoff)
	}
	return nil
}
