package alerts

import (
	"context"
	"time"

	"github.com/pvewatch/pvewatch/pkg/db"
	apperrors "github.com/pvewatch/pvewatch/pkg/errors"
	"github.com/pvewatch/pvewatch/pkg/logger"
)

// HistoryLimit bounds the persisted alert history; older entries are pruned.
const HistoryLimit = 1000

// Store persists fired alerts.
type Store struct {
	queries *db.Queries
	logger  *logger.Logger
	now     func() time.Time
}

func NewStore(queries *db.Queries, logger *logger.Logger) *Store {
	return &Store{
		queries: queries,
		logger:  logger,
		now:     time.Now,
	}
}

// Record appends a fired alert to the history.
func (s *Store) Record(ctx context.Context, node, metric string, value, threshold float64, message string) error {
	_, err := s.queries.CreateAlertHistoryEntry(ctx, db.CreateAlertHistoryEntryParams{
		Node:      node,
		Metric:    metric,
		Value:     value,
		Threshold: threshold,
		Message:   message,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return apperrors.NewDatabaseError("failed to record alert", err, map[string]interface{}{
			"node":   node,
			"metric": metric,
		})
	}
	return nil
}

// List returns the most recent alerts, newest first. The limit is clamped to
// HistoryLimit.
func (s *Store) List(ctx context.Context, limit int) ([]db.AlertHistoryEntry, error) {
	if limit <= 0 || limit > HistoryLimit {
		limit = HistoryLimit
	}
	entries, err := s.queries.ListAlertHistory(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to list alert history", err, nil)
	}
	return entries, nil
}

// Prune drops history beyond HistoryLimit.
func (s *Store) Prune(ctx context.Context) error {
	deleted, err := s.queries.PruneAlertHistory(ctx, HistoryLimit)
	if err != nil {
		return apperrors.NewDatabaseError("failed to prune alert history", err, nil)
	}
	if deleted > 0 {
		s.logger.Debug("Pruned alert history", "deleted", deleted)
	}
	return nil
}
