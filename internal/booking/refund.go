package booking

import (
	"time"

	"auto-atelier/internal/model"

	"github.com/shopspring/decimal"
)

// CancellationDecision is the outcome of evaluating a cancellation request.
type CancellationDecision struct {
	Allowed bool

	// Reason is set when Allowed is false.
	Reason error

	// Refund is true when money has to be returned through the payment gateway.
	Refund          bool
	RefundAmount    decimal.Decimal
	DeductionAmount decimal.Decimal
}

// EvaluateCancellation decides whether appointment can be cancelled at now and
// how the order price is split between refund and processing fee.
//
// Unpaid appointments can always be cancelled. Paid appointments that start
// in the future but within the cancellation window are rejected; any other
// paid appointment is refunded minus the processing fee.
func (r Rules) EvaluateCancellation(appointment model.Appointment, order model.Order, now time.Time) CancellationDecision {
	if appointment.PaymentStatus != model.PaymentPaid {
		return CancellationDecision{Allowed: true}
	}

	if at, ok := r.appointmentInstant(appointment); ok && at.After(now) && at.Sub(now) < r.CancellationWindow {
		return CancellationDecision{Allowed: false, Reason: model.ErrWithinCancellationWindow}
	}

	refund, fee := SplitRefund(order.Price, r.ProcessingFeeRate)
	return CancellationDecision{
		Allowed:         true,
		Refund:          true,
		RefundAmount:    refund,
		DeductionAmount: fee,
	}
}

// SplitRefund divides price into a refund and a fee of feeRate, both rounded
// to cents. The larger share absorbs the rounding remainder so the two always
// add up to price.
func SplitRefund(price, feeRate decimal.Decimal) (refund, fee decimal.Decimal) {
	price = price.Round(2)
	fee = price.Mul(feeRate).Round(2)
	refund = price.Mul(decimal.NewFromInt(1).Sub(feeRate)).Round(2)

	remainder := price.Sub(refund.Add(fee))
	if remainder.IsZero() {
		return refund, fee
	}
	if refund.GreaterThanOrEqual(fee) {
		refund = refund.Add(remainder)
	} else {
		fee = fee.Add(remainder)
	}
	return refund, fee
}

// appointmentInstant resolves the absolute start time of an appointment.
func (r Rules) appointmentInstant(a model.Appointment) (time.Time, bool) {
	day, err := r.ParseDate(a.Date)
	if err != nil {
		return time.Time{}, false
	}
	t, err := ParseTimeOfDay(a.Time)
	if err != nil {
		return time.Time{}, false
	}
	return r.Instant(day, t), true
}
