package bookingflow

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns booking flow router, mounted under /salons/{slug}
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	return r
}
