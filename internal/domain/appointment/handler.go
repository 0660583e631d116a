package appointment

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/middleware"
	"github.com/nailbook/booking-api/internal/pkg/errorhandler"
	"github.com/nailbook/booking-api/internal/pkg/response"
	"github.com/nailbook/booking-api/internal/pkg/validator"
)

// Handler handles appointment HTTP requests
type Handler struct {
	manager *Manager
}

// NewHandler creates appointment handler
func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// Create handles POST /salons/{slug}/appointments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errs := validator.Validate(&req); errs != nil {
		errorhandler.LogValidationError(r.Context(), errs)
		if _, bad := errs["clientPhone"]; bad && len(errs) == 1 {
			response.ErrorWithDetails(w, http.StatusBadRequest, "INVALID_PHONE", ErrInvalidPhone.Error(), errs)
			return
		}
		response.ValidationError(w, errs)
		return
	}

	createReq, err := req.ToCreateRequest(chi.URLParam(r, "slug"), r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	appt, err := h.manager.Create(r.Context(), createReq)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/salons/"+createReq.SalonSlug+"/appointments/"+appt.ID.String())
	response.Created(w, AppointmentResponseFromEntity(appt, false))
}

// GetActive handles GET /salons/{slug}/appointments/active?phone=
func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	appt, err := h.manager.GetActiveForClient(r.Context(), chi.URLParam(r, "slug"), r.URL.Query().Get("phone"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, AppointmentResponseFromEntity(appt, false))
}

// CancelByClient handles POST /salons/{slug}/appointments/{id}/cancel
func (h *Handler) CancelByClient(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid appointment ID")
		return
	}

	var req ClientCancelRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	appt, err := h.manager.CancelByClient(r.Context(), chi.URLParam(r, "slug"), id, req.ClientPhone)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, AppointmentResponseFromEntity(appt, false))
}

// StaffGet handles GET /staff/appointments/{id}
func (h *Handler) StaffGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid appointment ID")
		return
	}

	appt, err := h.manager.Get(r.Context(), id, staffActor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, AppointmentResponseFromEntity(appt, true))
}

// StaffCancel handles POST /staff/appointments/{id}/cancel
func (h *Handler) StaffCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid appointment ID")
		return
	}

	var req StaffCancelRequest
	if r.ContentLength != 0 {
		if err := response.DecodeJSON(r.Body, &req); err != nil {
			response.BadRequest(w, "Invalid JSON body")
			return
		}
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	appt, err := h.manager.Cancel(r.Context(), id, CancelBySalon, staffActor(r), req.Note)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, AppointmentResponseFromEntity(appt, true))
}

// StaffComplete handles POST /staff/appointments/{id}/complete
func (h *Handler) StaffComplete(w http.ResponseWriter, r *http.Request) {
	h.staffTransition(w, r, h.manager.Complete)
}

// StaffNoShow handles POST /staff/appointments/{id}/no-show
func (h *Handler) StaffNoShow(w http.ResponseWriter, r *http.Request) {
	h.staffTransition(w, r, h.manager.MarkNoShow)
}

func (h *Handler) staffTransition(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, Actor) (*Appointment, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid appointment ID")
		return
	}

	appt, err := fn(r.Context(), id, staffActor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, AppointmentResponseFromEntity(appt, true))
}

func staffActor(r *http.Request) Actor {
	return Actor{
		SalonID: middleware.GetSalonID(r.Context()),
		StaffID: middleware.GetStaffID(r.Context()),
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	code := Code(err)

	if status >= http.StatusInternalServerError {
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
		errorhandler.HandleError(r.Context(), w, status, code, Message(err), err)
		return
	}

	var existing *ExistingAppointmentError
	if errors.As(err, &existing) {
		response.ErrorWithDetails(w, status, code, Message(err), map[string]string{
			"appointmentId": existing.AppointmentID.String(),
		})
		return
	}

	response.Error(w, status, code, Message(err))
}
