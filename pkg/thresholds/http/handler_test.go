package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvewatch/pvewatch/pkg/db"
	"github.com/pvewatch/pvewatch/pkg/logger"
	"github.com/pvewatch/pvewatch/pkg/thresholds"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, db.RunMigrations(database))

	service := thresholds.NewService(db.New(database), logger.NewDefault())
	require.NoError(t, service.EnsureDefaults(context.Background()))

	r := chi.NewRouter()
	NewHandler(service).RegisterRoutes(r)
	return r
}

func TestListThresholds(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thresholds", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list []db.AlertThreshold
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 3)

	byMetric := map[string]float64{}
	for _, th := range list {
		byMetric[th.Metric] = th.ThresholdPercent
	}
	assert.Equal(t, 80.0, byMetric["cpu"])
	assert.Equal(t, 85.0, byMetric["memory"])
	assert.Equal(t, 90.0, byMetric["disk"])
}

func TestUpdateThreshold(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"threshold_percent": 70.5, "enabled": true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/thresholds/cpu", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var updated db.AlertThreshold
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 70.5, updated.ThresholdPercent)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thresholds/cpu", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched db.AlertThreshold
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, 70.5, fetched.ThresholdPercent)
}

func TestUpdateThresholdValidation(t *testing.T) {
	router := newTestRouter(t)

	// Out of range
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/thresholds/cpu",
		strings.NewReader(`{"threshold_percent": 150, "enabled": true}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown metric
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/thresholds/network",
		strings.NewReader(`{"threshold_percent": 50, "enabled": true}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Bad body
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/thresholds/cpu",
		strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetThresholdNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thresholds/network", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
