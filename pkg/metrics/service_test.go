package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvewatch/pvewatch/pkg/db"
	"github.com/pvewatch/pvewatch/pkg/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database))
	return NewService(db.New(database), logger.NewDefault(), DefaultRetentionDays)
}

func TestCleanupRespectsRetentionWindow(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	require.NoError(t, service.Append(ctx, "pve1", "cpu", 30, now.AddDate(0, 0, -8)))
	require.NoError(t, service.Append(ctx, "pve1", "cpu", 40, now.AddDate(0, 0, -6)))
	require.NoError(t, service.Append(ctx, "pve1", "cpu", 50, now))

	require.NoError(t, service.Cleanup(ctx))

	points, err := service.Range(ctx, "pve1", "cpu", now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 40.0, points[0].Value)
	assert.Equal(t, 50.0, points[1].Value)
}
