package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/pvewatch/pvewatch/pkg/alerts"
	apperrors "github.com/pvewatch/pvewatch/pkg/errors"
	"github.com/pvewatch/pvewatch/pkg/http/response"
)

// Handler exposes the alert history over HTTP.
type Handler struct {
	store *alerts.Store
}

func NewHandler(store *alerts.Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/alerts", response.Middleware(h.ListAlerts))
}

// ListAlerts returns the most recent fired alerts, newest first. The
// optional limit query parameter caps the page size.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) error {
	limit := alerts.HistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.NewValidationError("limit must be a positive integer", map[string]interface{}{
				"limit": raw,
			})
		}
		limit = parsed
	}

	entries, err := h.store.List(r.Context(), limit)
	if err != nil {
		return err
	}
	render.JSON(w, r, entries)
	return nil
}
