package appointment

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nailbook/booking-api/internal/middleware"
	"github.com/nailbook/booking-api/internal/pkg/jwt"
)

// SalonRoutes returns the public appointment router, mounted under
// /salons/{slug}/appointments. createLimit guards only the create endpoint.
func (h *Handler) SalonRoutes(createLimit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.With(createLimit).Post("/", h.Create)
	r.Get("/active", h.GetActive)
	r.Post("/{id}/cancel", h.CancelByClient)

	return r
}

// StaffRoutes returns the staff appointment router, mounted under
// /staff/appointments behind StaffAuth.
func (h *Handler) StaffRoutes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequireRole(jwt.RoleStaff, jwt.RoleOwner))

	r.Get("/{id}", h.StaffGet)
	r.Post("/{id}/cancel", h.StaffCancel)
	r.Post("/{id}/complete", h.StaffComplete)
	r.Post("/{id}/no-show", h.StaffNoShow)

	return r
}
