package feed

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns feed router, mounted under /staff/feed behind StaffAuth
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.WebSocket)
	return r
}
