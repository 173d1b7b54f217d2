// Package handler exposes the order and booking services over HTTP.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"auto-atelier/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// statusByCode maps domain error codes to HTTP status codes.
var statusByCode = map[string]int{
	model.ErrCodeInvalidJSON:             http.StatusBadRequest,
	model.ErrCodeMissingField:            http.StatusBadRequest,
	model.ErrCodeMissingSchedule:         http.StatusBadRequest,
	model.ErrCodeInvalidSchedule:         http.StatusBadRequest,
	model.ErrCodeInvalidStage:            http.StatusBadRequest,
	model.ErrCodeUnauthorised:            http.StatusUnauthorized,
	model.ErrCodeForbidden:               http.StatusForbidden,
	model.ErrCodeOrderNotFound:           http.StatusNotFound,
	model.ErrCodeAppointmentNotFound:     http.StatusNotFound,
	model.ErrCodeSlotTaken:               http.StatusConflict,
	model.ErrCodeAlreadyHasActiveBooking: http.StatusConflict,
	model.ErrCodeCapacityReached:         http.StatusConflict,
	model.ErrCodeOrderCancelled:          http.StatusConflict,
	model.ErrCodeOrderPurchased:          http.StatusConflict,
	model.ErrCodeAppointmentCancelled:    http.StatusConflict,
	model.ErrCodeRefundInProgress:        http.StatusConflict,
	model.ErrCodeNotBusinessDay:          http.StatusUnprocessableEntity,
	model.ErrCodeOutsideBusinessHours:    http.StatusUnprocessableEntity,
	model.ErrCodeWithinCancellation:      http.StatusUnprocessableEntity,
	model.ErrCodeStageNotSelected:        http.StatusUnprocessableEntity,
	model.ErrCodeOrderNotPurchased:       http.StatusUnprocessableEntity,
	model.ErrCodeOptionNotFound:          http.StatusUnprocessableEntity,
	model.ErrCodeRefundFailed:            http.StatusBadGateway,
}

var errInvalidID = errors.New("invalid id")

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("code", code).
		Str("error", message).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: chimw.GetReqID(r.Context()),
	})
}

// writeServiceError translates a service error into a response. Domain errors
// keep their code and message; anything else becomes a 500 with fallback as
// the message so internals are not leaked.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string, logger zerolog.Logger) {
	if de, ok := model.AsDomainError(err); ok {
		status, known := statusByCode[de.Code]
		if !known {
			status = http.StatusBadRequest
		}
		// The cause of a REFUND_FAILED stays in the logs.
		if status >= http.StatusInternalServerError {
			logger.Error().Err(err).Str("path", r.URL.Path).Msg("upstream failure")
		}
		writeError(w, r, status, de.Code, de.Message, logger)
		return
	}

	logger.Error().Err(err).Str("path", r.URL.Path).Msg("internal error")
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, fallback, logger)
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathID parses the named URL parameter as a UUID.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, errInvalidID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}
