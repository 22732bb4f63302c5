package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/pvewatch/pvewatch/pkg/errors"
	"github.com/pvewatch/pvewatch/pkg/http/response"
	"github.com/pvewatch/pvewatch/pkg/metrics"
)

// Handler exposes the metric history over HTTP.
type Handler struct {
	service *metrics.Service
}

func NewHandler(service *metrics.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/history/{node}/{metric}", response.Middleware(h.GetHistory))
}

// GetHistory returns the stored samples for one (node, metric) pair. The
// hours query parameter sets the lookback window, defaulting to 24.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) error {
	node := chi.URLParam(r, "node")
	metric := chi.URLParam(r, "metric")

	hours := 24
	if raw := r.URL.Query().Get("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.NewValidationError("hours must be a positive integer", map[string]interface{}{
				"hours": raw,
			})
		}
		hours = parsed
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	points, err := h.service.Range(r.Context(), node, metric, since)
	if err != nil {
		return err
	}
	return response.WriteJSON(w, http.StatusOK, points)
}
