package handler

import (
	"net/http"
	"strings"

	"auto-atelier/internal/model"
	"auto-atelier/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AppointmentHandler handles slot and appointment HTTP requests.
type AppointmentHandler struct {
	service service.BookingService
	logger  zerolog.Logger
}

// NewAppointmentHandler creates a new appointment handler.
func NewAppointmentHandler(service service.BookingService, logger zerolog.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		logger:  logger.With().Str("handler", "appointment").Logger(),
	}
}

// Slots handles GET /api/slots?date=YYYY-MM-DD&exclude={appointmentId} requests.
func (h *AppointmentHandler) Slots(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var excludeID *uuid.UUID
	if raw := strings.TrimSpace(query.Get("exclude")); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid exclude ID format", h.logger)
			return
		}
		excludeID = &id
	}

	slots, err := h.service.AvailableSlots(r.Context(), query.Get("date"), excludeID)
	if err != nil {
		writeServiceError(w, r, err, "failed to list available slots", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, slots)
}

// Book handles POST /api/appointments requests.
func (h *AppointmentHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req model.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	appointment, err := h.service.Book(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "failed to book appointment", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, appointment)
}

// GetByID handles GET /api/appointments/{id} requests.
func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to retrieve appointment", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, appointment)
}

// ListByOrder handles GET /api/orders/{id}/appointments requests.
func (h *AppointmentHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid order ID format", h.logger)
		return
	}

	appointments, err := h.service.ListByOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err, "failed to list appointments", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, appointments)
}

// CancelOrder handles POST /api/orders/{id}/cancel requests for unpaid orders.
func (h *AppointmentHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid order ID format", h.logger)
		return
	}

	order, err := h.service.CancelOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err, "failed to cancel order", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Reschedule handles PUT /api/appointments/{id} requests.
func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	var req model.RescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	appointment, err := h.service.Reschedule(r.Context(), id, &req)
	if err != nil {
		writeServiceError(w, r, err, "failed to reschedule appointment", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, appointment)
}

// ConfirmPayment handles POST /api/appointments/{id}/payment requests.
func (h *AppointmentHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	appointment, err := h.service.ConfirmPayment(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to confirm payment", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, appointment)
}

// Cancel handles POST /api/appointments/{id}/cancel requests.
func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "failed to cancel appointment", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AppointmentHandler) appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "invalid appointment ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
