package booking

import (
	"testing"
	"time"

	"auto-atelier/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCancellation(t *testing.T) {
	r := DefaultRules()
	order := model.Order{ID: uuid.New(), Price: decimal.NewFromInt(1000), Status: model.OrderStatusPurchased}
	start := time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

	paid := model.Appointment{
		ID:            uuid.New(),
		TransactionID: order.ID,
		Date:          "2025-06-10",
		Time:          "10:00",
		Status:        model.AppointmentStatusBooked,
		PaymentStatus: model.PaymentPaid,
	}
	unpaid := paid
	unpaid.PaymentStatus = model.PaymentPending

	tests := []struct {
		name        string
		appointment model.Appointment
		now         time.Time
		allowed     bool
		refund      bool
		reason      error
	}{
		{
			name:        "Unpaid within window",
			appointment: unpaid,
			now:         start.Add(-1 * time.Hour),
			allowed:     true,
		},
		{
			name:        "Unpaid in the past",
			appointment: unpaid,
			now:         start.Add(48 * time.Hour),
			allowed:     true,
		},
		{
			name:        "Paid 23 hours ahead",
			appointment: paid,
			now:         start.Add(-23 * time.Hour),
			allowed:     false,
			reason:      model.ErrWithinCancellationWindow,
		},
		{
			name:        "Paid one minute ahead",
			appointment: paid,
			now:         start.Add(-1 * time.Minute),
			allowed:     false,
			reason:      model.ErrWithinCancellationWindow,
		},
		{
			name:        "Paid exactly 24 hours ahead",
			appointment: paid,
			now:         start.Add(-24 * time.Hour),
			allowed:     true,
			refund:      true,
		},
		{
			name:        "Paid a week ahead",
			appointment: paid,
			now:         start.Add(-7 * 24 * time.Hour),
			allowed:     true,
			refund:      true,
		},
		{
			name:        "Paid at the start instant",
			appointment: paid,
			now:         start,
			allowed:     true,
			refund:      true,
		},
		{
			name:        "Paid in the past",
			appointment: paid,
			now:         start.Add(3 * time.Hour),
			allowed:     true,
			refund:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := r.EvaluateCancellation(tt.appointment, order, tt.now)

			assert.Equal(t, tt.allowed, decision.Allowed)
			assert.Equal(t, tt.refund, decision.Refund)
			if tt.reason != nil {
				assert.Equal(t, tt.reason, decision.Reason)
			} else {
				assert.NoError(t, decision.Reason)
			}
			if tt.refund {
				assert.True(t, decision.RefundAmount.Equal(decimal.NewFromInt(980)), "refund was %s", decision.RefundAmount)
				assert.True(t, decision.DeductionAmount.Equal(decimal.NewFromInt(20)), "deduction was %s", decision.DeductionAmount)
			} else {
				assert.True(t, decision.RefundAmount.IsZero())
				assert.True(t, decision.DeductionAmount.IsZero())
			}
		})
	}
}

func TestEvaluateCancellation_WindowInShopLocation(t *testing.T) {
	r := DefaultRules()
	r.Location = time.FixedZone("UTC+8", 8*60*60)

	order := model.Order{Price: decimal.NewFromInt(500)}
	appointment := model.Appointment{Date: "2025-06-10", Time: "10:00", PaymentStatus: model.PaymentPaid}

	// 10:00 at UTC+8 is 02:00 UTC; 25 hours earlier is outside the window.
	now := time.Date(2025, 6, 9, 1, 0, 0, 0, time.UTC)
	assert.True(t, r.EvaluateCancellation(appointment, order, now).Allowed)

	// 23 hours earlier is inside it.
	now = time.Date(2025, 6, 9, 3, 0, 0, 0, time.UTC)
	assert.False(t, r.EvaluateCancellation(appointment, order, now).Allowed)
}

func TestSplitRefund(t *testing.T) {
	rate := decimal.RequireFromString("0.02")

	tests := []struct {
		price  string
		refund string
		fee    string
	}{
		{price: "1000", refund: "980", fee: "20"},
		{price: "10.01", refund: "9.81", fee: "0.2"},
		{price: "0.25", refund: "0.24", fee: "0.01"},
		{price: "1234.56", refund: "1209.87", fee: "24.69"},
		{price: "0", refund: "0", fee: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.price, func(t *testing.T) {
			price := decimal.RequireFromString(tt.price)
			refund, fee := SplitRefund(price, rate)

			assert.True(t, refund.Equal(decimal.RequireFromString(tt.refund)), "refund was %s", refund)
			assert.True(t, fee.Equal(decimal.RequireFromString(tt.fee)), "fee was %s", fee)
			require.True(t, refund.Add(fee).Equal(price), "refund and fee must add up to the price")
		})
	}
}

func TestSplitRefund_FeeLargerShareAbsorbsRemainder(t *testing.T) {
	refund, fee := SplitRefund(decimal.RequireFromString("0.25"), decimal.RequireFromString("0.98"))

	assert.True(t, refund.Add(fee).Equal(decimal.RequireFromString("0.25")))
	assert.True(t, fee.GreaterThan(refund))
}
