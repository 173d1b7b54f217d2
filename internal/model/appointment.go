package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recognised appointment status values. Any status other than
// AppointmentStatusCancelled is treated as active.
const (
	AppointmentStatusBooked    = "booked"
	AppointmentStatusCancelled = "cancelled"
)

// PaymentStatus is the payment state of an appointment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// RefundStatusRefunded marks an appointment whose refund the gateway accepted.
const RefundStatusRefunded = "refunded"

// Date and time layouts used by appointments.
const (
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

// Appointment is a scheduled shop visit tied to one order.
type Appointment struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	TransactionID uuid.UUID     `json:"transactionId" db:"transaction_id"`
	Date          string        `json:"date" db:"date"`
	Time          string        `json:"time" db:"time"`
	Status        string        `json:"status" db:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus" db:"payment_status"`

	RefundAmount    *decimal.Decimal `json:"refundAmount,omitempty" db:"refund_amount"`
	DeductionAmount *decimal.Decimal `json:"deductionAmount,omitempty" db:"deduction_amount"`
	RefundStatus    *string          `json:"refundStatus,omitempty" db:"refund_status"`
	CancelledAt     *time.Time       `json:"cancelledAt,omitempty" db:"cancelled_at"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether the appointment still holds its slot.
func (a *Appointment) IsActive() bool {
	return a.Status != AppointmentStatusCancelled
}

// BookingRequest represents the request payload for booking an appointment.
type BookingRequest struct {
	TransactionID uuid.UUID `json:"transactionId"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
}

// RescheduleRequest represents the request payload for moving an appointment.
type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// SlotsResponse lists the bookable start times for a date.
type SlotsResponse struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// CancellationResponse reports the outcome of a cancellation.
type CancellationResponse struct {
	Appointment     Appointment      `json:"appointment"`
	RefundAmount    *decimal.Decimal `json:"refundAmount,omitempty"`
	DeductionAmount *decimal.Decimal `json:"deductionAmount,omitempty"`
}
