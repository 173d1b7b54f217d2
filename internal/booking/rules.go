// Package booking holds the appointment and fulfillment rules: slot
// availability, booking validation, cancellation refunds, customization
// progress and the global capacity gate. Everything here is a pure function
// of its arguments; callers supply the current snapshot and the clock.
package booking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Default rule values.
const (
	DefaultSlotInterval       = 30 * time.Minute
	DefaultCancellationWindow = 24 * time.Hour
	DefaultCapacityLimit      = 10
)

// DefaultProcessingFeeRate is the share of the price kept on a refunded cancellation.
var DefaultProcessingFeeRate = decimal.RequireFromString("0.02")

// Rules configures the booking engine.
type Rules struct {
	// Location is the shop's time zone; calendar dates and "today" are evaluated in it.
	Location *time.Location

	// OpenAt and CloseAt bound the bookable start times, both inclusive.
	OpenAt  TimeOfDay
	CloseAt TimeOfDay

	// SlotInterval is the granularity of start times.
	SlotInterval time.Duration

	// CancellationWindow is how long before a paid appointment cancellation closes.
	CancellationWindow time.Duration

	// ProcessingFeeRate is deducted from refunds, e.g. 0.02 for 2%.
	ProcessingFeeRate decimal.Decimal

	// CapacityLimit is the maximum number of purchased, unfinished orders.
	CapacityLimit int
}

// DefaultRules returns the shop's standard rules: Monday to Saturday,
// 08:00 to 17:00 every 30 minutes, 24 hour cancellation window, 2% fee and a
// ceiling of 10 active orders.
func DefaultRules() Rules {
	return Rules{
		Location:           time.UTC,
		OpenAt:             NewTimeOfDay(8, 0),
		CloseAt:            NewTimeOfDay(17, 0),
		SlotInterval:       DefaultSlotInterval,
		CancellationWindow: DefaultCancellationWindow,
		ProcessingFeeRate:  DefaultProcessingFeeRate,
		CapacityLimit:      DefaultCapacityLimit,
	}
}

// Validate checks that the rules are internally consistent.
func (r Rules) Validate() error {
	if r.Location == nil {
		return fmt.Errorf("location is required")
	}
	if r.SlotInterval < time.Minute || r.SlotInterval%time.Minute != 0 {
		return fmt.Errorf("slot interval must be a whole number of minutes: %s", r.SlotInterval)
	}
	if r.CloseAt < r.OpenAt {
		return fmt.Errorf("closing time %s is before opening time %s", r.CloseAt, r.OpenAt)
	}
	if !r.aligned(r.OpenAt) || !r.aligned(r.CloseAt) {
		return fmt.Errorf("opening and closing times must fall on the slot interval")
	}
	if r.CancellationWindow < 0 {
		return fmt.Errorf("cancellation window cannot be negative")
	}
	if r.ProcessingFeeRate.IsNegative() || r.ProcessingFeeRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("processing fee rate must be between 0 and 1")
	}
	if r.CapacityLimit < 1 {
		return fmt.Errorf("capacity limit must be at least 1")
	}
	return nil
}

// IsBusinessDay reports whether the shop takes appointments on the given weekday.
func IsBusinessDay(d time.Weekday) bool {
	return d != time.Sunday
}

// ParseDate parses a YYYY-MM-DD calendar date in the shop's location.
func (r Rules) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, r.location())
}

// Instant combines a calendar date and time of day into an absolute time.
func (r Rules) Instant(date time.Time, t TimeOfDay) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, r.location())
}

func (r Rules) location() *time.Location {
	if r.Location == nil {
		return time.UTC
	}
	return r.Location
}

func (r Rules) interval() int {
	m := int(r.SlotInterval / time.Minute)
	if m <= 0 {
		return int(DefaultSlotInterval / time.Minute)
	}
	return m
}

func (r Rules) aligned(t TimeOfDay) bool {
	return int(t)%r.interval() == 0
}

func (r Rules) withinHours(t TimeOfDay) bool {
	return t >= r.OpenAt && t <= r.CloseAt
}
