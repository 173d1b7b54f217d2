package booking

import (
	"testing"
	"time"

	"auto-atelier/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// farFuture is a clock reading well away from any date used in these tests.
var farFuture = time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)

func mustDate(t *testing.T, r Rules, s string) time.Time {
	t.Helper()
	d, err := r.ParseDate(s)
	require.NoError(t, err)
	return d
}

func slotStrings(slots []TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func allSlots() []string {
	return []string{
		"08:00", "08:30", "09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30",
		"13:00", "13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00",
	}
}

func TestAvailableSlots_Sunday(t *testing.T) {
	r := DefaultRules()

	for _, d := range []string{"2025-06-01", "2025-06-08", "2024-12-29"} {
		t.Run(d, func(t *testing.T) {
			slots := r.AvailableSlots(mustDate(t, r, d), farFuture, nil, nil)
			assert.Empty(t, slots)
		})
	}
}

func TestAvailableSlots_FullBusinessDay(t *testing.T) {
	r := DefaultRules()

	// Monday through Saturday
	for _, d := range []string{"2025-06-02", "2025-06-03", "2025-06-04", "2025-06-05", "2025-06-06", "2025-06-07"} {
		t.Run(d, func(t *testing.T) {
			slots := r.AvailableSlots(mustDate(t, r, d), farFuture, nil, nil)
			require.Len(t, slots, 19)
			assert.Equal(t, allSlots(), slotStrings(slots))
		})
	}
}

func TestAvailableSlots_Today(t *testing.T) {
	r := DefaultRules()
	day := mustDate(t, r, "2025-06-02")

	tests := []struct {
		name  string
		now   time.Time
		first string
		count int
	}{
		{
			name:  "Before opening",
			now:   time.Date(2025, 6, 2, 6, 45, 0, 0, time.UTC),
			first: "08:00",
			count: 19,
		},
		{
			name:  "Rounds up to next half hour",
			now:   time.Date(2025, 6, 2, 10, 10, 0, 0, time.UTC),
			first: "10:30",
			count: 14,
		},
		{
			name:  "Already on a boundary",
			now:   time.Date(2025, 6, 2, 10, 0, 45, 0, time.UTC),
			first: "10:00",
			count: 15,
		},
		{
			name:  "Closing time is still bookable",
			now:   time.Date(2025, 6, 2, 16, 31, 0, 0, time.UTC),
			first: "17:00",
			count: 1,
		},
		{
			name:  "After closing",
			now:   time.Date(2025, 6, 2, 17, 1, 0, 0, time.UTC),
			count: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slots := r.AvailableSlots(day, tt.now, nil, nil)
			require.Len(t, slots, tt.count)
			if tt.count > 0 {
				assert.Equal(t, tt.first, slots[0].String())
				assert.Equal(t, "17:00", slots[len(slots)-1].String())
			}
		})
	}
}

func TestAvailableSlots_TodayUsesShopLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	r := DefaultRules()
	r.Location = loc

	day := mustDate(t, r, "2025-06-02")
	// 02:15 UTC is 10:15 in the shop.
	now := time.Date(2025, 6, 2, 2, 15, 0, 0, time.UTC)

	slots := r.AvailableSlots(day, now, nil, nil)
	require.NotEmpty(t, slots)
	assert.Equal(t, "10:30", slots[0].String())
}

func TestAvailableSlots_ExcludesActiveAppointments(t *testing.T) {
	r := DefaultRules()
	day := mustDate(t, r, "2025-06-02")

	bookedID := uuid.New()
	appointments := []model.Appointment{
		{ID: bookedID, TransactionID: uuid.New(), Date: "2025-06-02", Time: "09:00", Status: model.AppointmentStatusBooked},
		{ID: uuid.New(), TransactionID: uuid.New(), Date: "2025-06-02", Time: "10:00", Status: model.AppointmentStatusCancelled},
		{ID: uuid.New(), TransactionID: uuid.New(), Date: "2025-06-03", Time: "11:00", Status: model.AppointmentStatusBooked},
		{ID: uuid.New(), TransactionID: uuid.New(), Date: "2025-06-02", Time: "15:30", Status: "confirmed"},
	}

	slots := slotStrings(r.AvailableSlots(day, farFuture, appointments, nil))
	assert.Len(t, slots, 17)
	assert.NotContains(t, slots, "09:00")
	assert.NotContains(t, slots, "15:30")
	assert.Contains(t, slots, "10:00", "cancelled appointments free their slot")
	assert.Contains(t, slots, "11:00", "appointments on other days do not matter")

	withExclusion := slotStrings(r.AvailableSlots(day, farFuture, appointments, &bookedID))
	assert.Len(t, withExclusion, 18)
	assert.Contains(t, withExclusion, "09:00")
	assert.NotContains(t, withExclusion, "15:30")
}

func TestAvailableSlots_Restartable(t *testing.T) {
	r := DefaultRules()
	day := mustDate(t, r, "2025-06-04")
	appointments := []model.Appointment{
		{ID: uuid.New(), Date: "2025-06-04", Time: "12:00", Status: model.AppointmentStatusBooked},
	}

	first := r.AvailableSlots(day, farFuture, appointments, nil)
	second := r.AvailableSlots(day, farFuture, appointments, nil)
	assert.Equal(t, first, second)
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		input     string
		want      TimeOfDay
		canonical string
		wantErr   bool
	}{
		{input: "08:00", want: NewTimeOfDay(8, 0), canonical: "08:00"},
		{input: "17:00", want: NewTimeOfDay(17, 0), canonical: "17:00"},
		{input: "09:30", want: NewTimeOfDay(9, 30), canonical: "09:30"},
		{input: "9:30", want: NewTimeOfDay(9, 30), canonical: "09:30"},
		{input: "25:00", wantErr: true},
		{input: "noon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.canonical, got.String())
		})
	}
}

func TestRules_Validate(t *testing.T) {
	valid := DefaultRules()
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *Rules)
	}{
		{name: "Nil location", mutate: func(r *Rules) { r.Location = nil }},
		{name: "Close before open", mutate: func(r *Rules) { r.CloseAt = NewTimeOfDay(7, 0) }},
		{name: "Misaligned opening", mutate: func(r *Rules) { r.OpenAt = NewTimeOfDay(8, 15) }},
		{name: "Sub-minute interval", mutate: func(r *Rules) { r.SlotInterval = time.Second }},
		{name: "Zero capacity", mutate: func(r *Rules) { r.CapacityLimit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := DefaultRules()
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}
