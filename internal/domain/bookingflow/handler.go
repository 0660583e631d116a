package bookingflow

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/domain/deeplink"
	"github.com/nailbook/booking-api/internal/domain/salon"
	"github.com/nailbook/booking-api/internal/pkg/errorhandler"
	"github.com/nailbook/booking-api/internal/pkg/response"
)

// SalonFinder loads a salon by its public slug.
type SalonFinder interface {
	GetSalonBySlug(ctx context.Context, slug string) (*salon.Salon, error)
}

// StatusChecker is the salon booking gate.
type StatusChecker interface {
	CheckBookable(ctx context.Context, salonID uuid.UUID) error
}

// LocationChecker pre-fetches deep link validity.
type LocationChecker interface {
	Check(ctx context.Context, salonID uuid.UUID, supplied string) (deeplink.LocationCheck, error)
}

// Handler serves the booking flow state for a salon
type Handler struct {
	salons   SalonFinder
	gate     StatusChecker
	repairer LocationChecker
}

// NewHandler creates booking flow handler
func NewHandler(salons SalonFinder, gate StatusChecker, repairer LocationChecker) *Handler {
	return &Handler{salons: salons, gate: gate, repairer: repairer}
}

// FlowResponse describes where the client is in the flow
type FlowResponse struct {
	Flow       []Step `json:"flow"`
	Current    Step   `json:"current"`
	Index      int    `json:"index"`
	Label      string `json:"label"`
	Next       Step   `json:"next,omitempty"`
	Prev       Step   `json:"prev,omitempty"`
	LocationID string `json:"locationId,omitempty"`
}

// NewFlowResponse resolves step within flow; unknown steps resolve to the first step.
func NewFlowResponse(flow Flow, rawStep, locationID string) *FlowResponse {
	current, ok := ParseStep(rawStep)
	if !ok || StepIndex(current, flow) < 0 {
		current = FirstStep(flow)
	}

	resp := &FlowResponse{
		Flow:       flow.Steps(),
		Current:    current,
		Index:      StepIndex(current, flow),
		Label:      StepLabel(current),
		LocationID: locationID,
	}
	if next, ok := NextStep(current, flow); ok {
		resp.Next = next
	}
	if prev, ok := PrevStep(current, flow); ok {
		resp.Prev = prev
	}
	return resp
}

// Get handles GET /salons/{slug}/booking-flow
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, err := h.salons.GetSalonBySlug(ctx, chi.URLParam(r, "slug"))
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
	check, err := h.repairer.Check(ctx, s.ID, query.Get(deeplink.ParamLocationID))
	if err != nil {
		errorhandler.HandleError(ctx, w, http.StatusServiceUnavailable, "SALON_UNAVAILABLE", "Salon is temporarily unavailable", err)
		return
	}
	if deeplink.ShouldRepair(check) {
		http.Redirect(w, r, deeplink.RepairURL(r.URL.Path, query, check.PrimaryID), http.StatusFound)
		return
	}

	flow := ParseStored(s.BookingFlow)
	response.OK(w, NewFlowResponse(flow, query.Get("step"), check.Effective()))
}
