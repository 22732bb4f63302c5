package settings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pvewatch/pvewatch/pkg/db"
	"github.com/pvewatch/pvewatch/pkg/logger"
)

// Service is a generic key/value configuration store. Values are opaque
// strings; callers own the serialization.
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

// Get returns the value for key. found is false when the key has never been
// set.
func (s *Service) Get(ctx context.Context, key string) (value string, found bool, err error) {
	value, err = s.queries.GetSetting(ctx, key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value wholesale.
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.queries.UpsertSetting(ctx, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
