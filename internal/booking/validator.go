package booking

import (
	"strings"
	"time"

	"auto-atelier/internal/model"

	"github.com/google/uuid"
)

// ValidateNewBooking checks whether order may book date and timeOfDay.
// It returns nil when the booking is allowed, or the first rejection in this
// order: missing or malformed input, non-business day, outside business hours,
// slot taken, order already booked, capacity reached.
func (r Rules) ValidateNewBooking(order model.Order, date, timeOfDay string, appointments []model.Appointment, orders []model.Order) error {
	day, t, err := r.checkSchedule(date, timeOfDay)
	if err != nil {
		return err
	}

	if r.slotTaken(day, t, appointments, nil) {
		return model.ErrSlotTaken
	}

	if HasActiveAppointment(order.ID, appointments) {
		return model.ErrAlreadyHasActiveBooking
	}

	if r.IsCapacityReached(orders) {
		return model.ErrCapacityReached
	}

	return nil
}

// ValidateEdit checks whether appointment may move to newDate and newTime.
// The appointment's own slot never counts as taken, and neither the single
// active booking rule nor the capacity gate apply since no booking is added.
func (r Rules) ValidateEdit(appointment model.Appointment, newDate, newTime string, appointments []model.Appointment) error {
	day, t, err := r.checkSchedule(newDate, newTime)
	if err != nil {
		return err
	}

	if r.slotTaken(day, t, appointments, &appointment.ID) {
		return model.ErrSlotTaken
	}

	return nil
}

// HasActiveAppointment reports whether any active appointment belongs to orderID.
func HasActiveAppointment(orderID uuid.UUID, appointments []model.Appointment) bool {
	for i := range appointments {
		if appointments[i].TransactionID == orderID && appointments[i].IsActive() {
			return true
		}
	}
	return false
}

func (r Rules) checkSchedule(date, timeOfDay string) (time.Time, TimeOfDay, error) {
	date = strings.TrimSpace(date)
	timeOfDay = strings.TrimSpace(timeOfDay)
	if date == "" || timeOfDay == "" {
		return time.Time{}, 0, model.ErrMissingSchedule
	}

	day, err := r.ParseDate(date)
	if err != nil {
		return time.Time{}, 0, model.ErrInvalidSchedule
	}
	t, err := ParseTimeOfDay(timeOfDay)
	if err != nil || !r.aligned(t) {
		return time.Time{}, 0, model.ErrInvalidSchedule
	}

	if !IsBusinessDay(day.Weekday()) {
		return time.Time{}, 0, model.ErrNotBusinessDay
	}

	if !r.withinHours(t) {
		return time.Time{}, 0, model.ErrOutsideBusinessHours
	}

	return day, t, nil
}

func (r Rules) slotTaken(day time.Time, t TimeOfDay, appointments []model.Appointment, excludeID *uuid.UUID) bool {
	_, taken := r.takenOn(day, appointments, excludeID)[t]
	return taken
}

// Canonical returns date and timeOfDay in their stored YYYY-MM-DD and HH:MM
// forms, e.g. "9:00" becomes "09:00". Values that do not parse are returned
// trimmed but otherwise unchanged.
func (r Rules) Canonical(date, timeOfDay string) (string, string) {
	date = strings.TrimSpace(date)
	timeOfDay = strings.TrimSpace(timeOfDay)
	if day, err := r.ParseDate(date); err == nil {
		date = day.Format(model.DateFormat)
	}
	if t, err := ParseTimeOfDay(timeOfDay); err == nil {
		timeOfDay = t.String()
	}
	return date, timeOfDay
}
