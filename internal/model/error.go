package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON   = "INVALID_JSON"
	ErrCodeMissingField  = "MISSING_FIELD"
	ErrCodeUnauthorised  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeInternalError = "INTERNAL_ERROR"

	ErrCodeMissingSchedule         = "MISSING_SCHEDULE"
	ErrCodeInvalidSchedule         = "INVALID_SCHEDULE"
	ErrCodeNotBusinessDay          = "NOT_BUSINESS_DAY"
	ErrCodeOutsideBusinessHours    = "OUTSIDE_BUSINESS_HOURS"
	ErrCodeSlotTaken               = "SLOT_TAKEN"
	ErrCodeAlreadyHasActiveBooking = "ALREADY_HAS_ACTIVE_BOOKING"
	ErrCodeCapacityReached         = "CAPACITY_REACHED"
	ErrCodeWithinCancellation      = "WITHIN_CANCELLATION_WINDOW"
	ErrCodeRefundFailed            = "REFUND_FAILED"
	ErrCodeStageNotSelected        = "STAGE_NOT_SELECTED"
	ErrCodeInvalidStage            = "INVALID_STAGE"
	ErrCodeOrderNotFound           = "ORDER_NOT_FOUND"
	ErrCodeOrderNotPurchased       = "ORDER_NOT_PURCHASED"
	ErrCodeOrderCancelled          = "ORDER_CANCELLED"
	ErrCodeOrderPurchased          = "ORDER_PURCHASED"
	ErrCodeAppointmentNotFound     = "APPOINTMENT_NOT_FOUND"
	ErrCodeAppointmentCancelled    = "APPOINTMENT_CANCELLED"
	ErrCodeOptionNotFound          = "OPTION_NOT_FOUND"
	ErrCodeRefundInProgress        = "REFUND_IN_PROGRESS"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
	cause   error
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so wrapped copies compare equal to their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Wrap returns a copy of the domain error carrying cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, cause: cause}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// AsDomainError extracts a DomainError from err.
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// Booking rejections
var (
	ErrMissingSchedule         = NewDomainError(ErrCodeMissingSchedule, "Please select both a date and a time")
	ErrInvalidSchedule         = NewDomainError(ErrCodeInvalidSchedule, "Date must be YYYY-MM-DD and time must be HH:MM on a 30-minute boundary")
	ErrNotBusinessDay          = NewDomainError(ErrCodeNotBusinessDay, "The shop is closed on Sundays, please pick a day from Monday to Saturday")
	ErrOutsideBusinessHours    = NewDomainError(ErrCodeOutsideBusinessHours, "Appointments can only start between 08:00 and 17:00")
	ErrSlotTaken               = NewDomainError(ErrCodeSlotTaken, "This time slot is already booked, please choose another one")
	ErrAlreadyHasActiveBooking = NewDomainError(ErrCodeAlreadyHasActiveBooking, "This order already has an active appointment")
	ErrCapacityReached         = NewDomainError(ErrCodeCapacityReached, "The shop is at full capacity, please try again once current orders are completed")
)

// Cancellation and refund errors
var (
	ErrWithinCancellationWindow = NewDomainError(ErrCodeWithinCancellation, "Paid appointments cannot be cancelled less than 24 hours before they start")
	ErrRefundFailed             = NewDomainError(ErrCodeRefundFailed, "The refund could not be processed, please try again")
	ErrRefundInProgress         = NewDomainError(ErrCodeRefundInProgress, "A refund for this appointment is already being processed")
)

// Order and progress errors
var (
	ErrStageNotSelected     = NewDomainError(ErrCodeStageNotSelected, "This order has no selection for that customization stage")
	ErrInvalidStage         = NewDomainError(ErrCodeInvalidStage, "Stage must be paint, wheels or interior")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrOrderNotPurchased    = NewDomainError(ErrCodeOrderNotPurchased, "Customization progress can only be tracked on purchased orders")
	ErrOrderCancelled       = NewDomainError(ErrCodeOrderCancelled, "This order has been cancelled")
	ErrOrderPurchased       = NewDomainError(ErrCodeOrderPurchased, "Purchased orders are cancelled through their appointment")
	ErrAppointmentNotFound  = NewDomainError(ErrCodeAppointmentNotFound, "Appointment not found")
	ErrAppointmentCancelled = NewDomainError(ErrCodeAppointmentCancelled, "This appointment has already been cancelled")
	ErrOptionNotFound       = NewDomainError(ErrCodeOptionNotFound, "One or more selected options are not in the catalog")
)

// Request validation errors
var (
	ErrMissingTransactionID = NewDomainError(ErrCodeMissingField, "transactionId is required")
	ErrMissingCustomerID    = NewDomainError(ErrCodeMissingField, "customerId is required")
	ErrMissingCarModelID    = NewDomainError(ErrCodeMissingField, "carModelId is required")
)
