package booking

import (
	"time"

	"auto-atelier/internal/model"

	"github.com/google/uuid"
)

// AvailableSlots returns the bookable start times on date in ascending order.
//
// Sundays have no slots. On the current calendar day, start times before now
// rounded up to the next slot boundary are dropped. Slots held by an active
// appointment are removed, except the one identified by excludeID so that an
// appointment being edited does not block its own slot.
func (r Rules) AvailableSlots(date, now time.Time, existing []model.Appointment, excludeID *uuid.UUID) []TimeOfDay {
	date = date.In(r.location())
	if !IsBusinessDay(date.Weekday()) {
		return []TimeOfDay{}
	}

	first := r.OpenAt
	if sameDay(date, now.In(r.location())) {
		if earliest := r.roundUp(TimeOfDayOf(now.In(r.location()))); earliest > first {
			first = earliest
		}
	}

	taken := r.takenOn(date, existing, excludeID)

	step := TimeOfDay(r.interval())
	slots := make([]TimeOfDay, 0, int((r.CloseAt-r.OpenAt)/step)+1)
	for t := r.OpenAt; t <= r.CloseAt; t += step {
		if t < first {
			continue
		}
		if _, ok := taken[t]; ok {
			continue
		}
		slots = append(slots, t)
	}
	return slots
}

// roundUp rounds t up to the next multiple of the slot interval. A time
// already on a boundary is returned unchanged.
func (r Rules) roundUp(t TimeOfDay) TimeOfDay {
	step := r.interval()
	return TimeOfDay((int(t) + step - 1) / step * step)
}

// takenOn collects the start times held by active appointments on date.
func (r Rules) takenOn(date time.Time, existing []model.Appointment, excludeID *uuid.UUID) map[TimeOfDay]struct{} {
	day := date.Format(model.DateFormat)
	taken := make(map[TimeOfDay]struct{})
	for i := range existing {
		a := &existing[i]
		if !a.IsActive() || a.Date != day {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		t, err := ParseTimeOfDay(a.Time)
		if err != nil {
			continue
		}
		taken[t] = struct{}{}
	}
	return taken
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
