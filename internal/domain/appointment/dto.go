package appointment

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nailbook/booking-api/internal/pkg/logger"
	"github.com/nailbook/booking-api/internal/pkg/validator"
)

// CreateAppointmentRequest is the wire body of POST /salons/{slug}/appointments
type CreateAppointmentRequest struct {
	ServiceIDs            string `json:"serviceIds" validate:"required,csv_uuid"`
	TechnicianID          string `json:"technicianId" validate:"omitempty,technician_ref"`
	ClientPhone           string `json:"clientPhone" validate:"required,phone"`
	StartTime             string `json:"startTime" validate:"required"`
	OriginalAppointmentID string `json:"originalAppointmentId" validate:"omitempty,uuid"`
}

// ToCreateRequest parses the wire fields. Call after validation.
func (r *CreateAppointmentRequest) ToCreateRequest(slug, idempotencyKey string) (CreateRequest, error) {
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(r.StartTime))
	if err != nil {
		return CreateRequest{}, ErrInvalidStartTime
	}

	serviceIDs, err := validator.ParseUUIDList(r.ServiceIDs)
	if err != nil {
		return CreateRequest{}, ErrValidation
	}

	req := CreateRequest{
		SalonSlug:      slug,
		ServiceIDs:     serviceIDs,
		ClientPhone:    r.ClientPhone,
		StartTime:      start,
		IdempotencyKey: idempotencyKey,
	}

	if ref := strings.TrimSpace(r.TechnicianID); ref != "" && !strings.EqualFold(ref, "any") {
		id, err := uuid.Parse(ref)
		if err != nil {
			return CreateRequest{}, ErrInvalidTechnician
		}
		req.TechnicianID = &id
	}

	if r.OriginalAppointmentID != "" {
		id, err := uuid.Parse(r.OriginalAppointmentID)
		if err != nil {
			return CreateRequest{}, ErrValidation
		}
		req.OriginalAppointmentID = &id
	}

	return req, nil
}

// ClientCancelRequest is the body of a client cancellation
type ClientCancelRequest struct {
	ClientPhone string `json:"clientPhone" validate:"required,phone"`
}

// StaffCancelRequest is the optional body of a staff cancellation
type StaffCancelRequest struct {
	Note string `json:"note" validate:"max=500"`
}

// AppointmentResponse represents appointment in API response
type AppointmentResponse struct {
	AppointmentID        uuid.UUID     `json:"appointmentId"`
	SalonID              uuid.UUID     `json:"salonId"`
	Status               Status        `json:"status"`
	TechnicianID         *uuid.UUID    `json:"technicianId,omitempty"`
	StartTime            time.Time     `json:"startTime"`
	EndTime              time.Time     `json:"endTime"`
	TotalPrice           int64         `json:"totalPrice"`
	TotalDurationMinutes int           `json:"totalDurationMinutes"`
	Services             []ServiceLine `json:"services"`
	ClientPhone          string        `json:"clientPhone"`
	RescheduledFrom      *uuid.UUID    `json:"rescheduledFrom,omitempty"`
	CancelReason         *string       `json:"cancelReason,omitempty"`
	CreatedAt            time.Time     `json:"createdAt"`
}

// AppointmentResponseFromEntity converts entity to response. Public endpoints
// only echo the last four digits of the phone.
func AppointmentResponseFromEntity(a *Appointment, fullPhone bool) *AppointmentResponse {
	phone := a.ClientPhone
	if !fullPhone {
		phone = logger.MaskPhone(phone)
	}
	services := a.Services
	if services == nil {
		services = []ServiceLine{}
	}
	return &AppointmentResponse{
		AppointmentID:        a.ID,
		SalonID:              a.SalonID,
		Status:               a.Status,
		TechnicianID:         a.TechnicianID,
		StartTime:            a.StartTime,
		EndTime:              a.EndTime,
		TotalPrice:           a.TotalPrice,
		TotalDurationMinutes: a.TotalDurationMinutes,
		Services:             services,
		ClientPhone:          phone,
		RescheduledFrom:      a.RescheduledFrom,
		CancelReason:         a.CancelReason,
		CreatedAt:            a.CreatedAt,
	}
}
