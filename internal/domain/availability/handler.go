package availability

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/pkg/errorhandler"
	"github.com/nailbook/booking-api/internal/pkg/response"
)

// Catalog is the part of the salon catalog the handler reads.
type Catalog interface {
	GetSalonBySlug(ctx context.Context, slug string) (*salon.Salon, error)
	GetTechnicianByID(ctx context.Context, id, salonID uuid.UUID) (*salon.Technician, error)
}

// StatusChecker is the salon booking gate.
type StatusChecker interface {
	CheckBookable(ctx context.Context, salonID uuid.UUID) error
}

// Handler serves slot availability
type Handler struct {
	engine  *Engine
	catalog Catalog
	gate    StatusChecker
}

// NewHandler creates availability handler
func NewHandler(engine *Engine, catalog Catalog, gate StatusChecker) *Handler {
	return &Handler{engine: engine, catalog: catalog, gate: gate}
}

// Routes returns availability router, mounted under /salons/{slug}
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	return r
}

// Get handles GET /salons/{slug}/availability?date=&technicianId=
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, err := h.catalog.GetSalonBySlug(ctx, chi.URLParam(r, "slug"))
	if err != nil {
		errorhandler.HandleError(ctx, w, http.StatusServiceUnavailable, "SALON_UNAVAILABLE", "Salon is temporarily unavailable", err)
		return
	}
	if s == nil {
		response.Error(w, http.StatusNotFound, "SALON_NOT_FOUND", "Salon not found")
		return
	}

	if err := h.gate.CheckBookable(ctx, s.ID); err != nil {
		salon.WriteGateError(ctx, w, err)
		return
	}

	query := r.URL.Query()

	date := h.engine.Today(s)
	if raw := query.Get("date"); raw != "" {
		date, err = ParseDate(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_DATE", "Date must be in YYYY-MM-DD format")
			return
		}
	}

	var technicianID *uuid.UUID
	if ref := query.Get("technicianId"); ref != "" && !strings.EqualFold(ref, "any") {
		id, err := uuid.Parse(ref)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_TECHNICIAN", "Technician must be an ID or \"any\"")
			return
		}

		tech, err := h.catalog.GetTechnicianByID(ctx, id, s.ID)
		if err != nil {
			errorhandler.HandleError(ctx, w, http.StatusServiceUnavailable, "SALON_UNAVAILABLE", "Salon is temporarily unavailable", err)
			return
		}
		if tech == nil || !tech.IsActive {
			response.Error(w, http.StatusBadRequest, "INVALID_TECHNICIAN", "Technician not found")
			return
		}
		technicianID = &id
	}

	response.OK(w, h.engine.DayAvailability(ctx, s, date, technicianID))
}
