package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/pvewatch/pvewatch/pkg/errors"
	"github.com/pvewatch/pvewatch/pkg/http/response"
	"github.com/pvewatch/pvewatch/pkg/thresholds"
)

// Handler exposes threshold configuration over HTTP.
type Handler struct {
	service *thresholds.Service
}

func NewHandler(service *thresholds.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the threshold endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/thresholds", func(r chi.Router) {
		r.Get("/", response.Middleware(h.ListThresholds))
		r.Get("/{metric}", response.Middleware(h.GetThreshold))
		r.Put("/{metric}", response.Middleware(h.UpdateThreshold))
	})
}

// ListThresholds returns every configured threshold.
func (h *Handler) ListThresholds(w http.ResponseWriter, r *http.Request) error {
	list, err := h.service.List(r.Context())
	if err != nil {
		return err
	}
	return response.WriteJSON(w, http.StatusOK, list)
}

// GetThreshold returns one metric's threshold.
func (h *Handler) GetThreshold(w http.ResponseWriter, r *http.Request) error {
	metric := chi.URLParam(r, "metric")
	threshold, err := h.service.Get(r.Context(), metric)
	if err != nil {
		return err
	}
	return response.WriteJSON(w, http.StatusOK, threshold)
}

type updateThresholdRequest struct {
	ThresholdPercent float64 `json:"threshold_percent"`
	Enabled          bool    `json:"enabled"`
}

// UpdateThreshold changes the percent and enabled flag for one metric.
func (h *Handler) UpdateThreshold(w http.ResponseWriter, r *http.Request) error {
	metric := chi.URLParam(r, "metric")

	var req updateThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.NewValidationError("invalid request body", map[string]interface{}{
			"error": err.Error(),
		})
	}

	updated, err := h.service.Update(r.Context(), metric, req.ThresholdPercent, req.Enabled)
	if err != nil {
		return err
	}
	return response.WriteJSON(w, http.StatusOK, updated)
}
