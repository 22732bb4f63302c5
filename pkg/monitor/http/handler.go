package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pvewatch/pvewatch/pkg/http/response"
	"github.com/pvewatch/pvewatch/pkg/monitor"
)

// Handler exposes the latest per-node collection results over HTTP.
type Handler struct {
	service *monitor.Service
}

func NewHandler(service *monitor.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/nodes/status", response.Middleware(h.GetNodeStatuses))
}

// GetNodeStatuses returns the cached outcome of the most recent tick for
// every configured node.
func (h *Handler) GetNodeStatuses(w http.ResponseWriter, r *http.Request) error {
	return response.WriteJSON(w, http.StatusOK, h.service.NodeStatuses())
}
