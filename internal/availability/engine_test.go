package availability

import (
	"testing"
	"time"

	"availability-service/internal/models"
)

func baseSettings() models.Settings {
	return models.Settings{
		Timezone:      "Europe/Paris",
		SlotIncrement: 60,
		BufferTime:    0,
	}
}

func mondaySchedule(slots ...models.TimeSlot) models.WeeklySchedule {
	return models.WeeklySchedule{
		time.Monday: {Enabled: true, Slots: slots},
	}
}

func slot(start, end string, max int) models.TimeSlot {
	return models.TimeSlot{
		StartTime:        start,
		EndTime:          end,
		MaxAppointments:  max,
		AppointmentTypes: []string{models.AppointmentTypeAll},
	}
}

// 2026-09-07 is a Monday.
func nextMonday(t *testing.T) time.Time {
	t.Helper()

	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	day := time.Date(2026, 9, 7, 0, 0, 0, 0, loc)
	if day.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %s", day.Weekday())
	}
	return day
}

func TestComputeSlotsForDate_Basic(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "12:00", 1))

	slots, err := ComputeSlotsForDate(day, schedule, nil, nil, nil, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}

	want := []string{"09:00", "10:00", "11:00"}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if got := slots[i].Start.Format("15:04"); got != w {
			t.Fatalf("slot %d: expected start %s, got %s", i, w, got)
		}
		if d := slots[i].End.Sub(slots[i].Start); d != time.Hour {
			t.Fatalf("slot %d: expected 1h duration, got %s", i, d)
		}
	}
}

func TestComputeSlotsForDate_LunchBreak(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "12:00", 1))

	settings := baseSettings()
	settings.LunchBreak = models.LunchBreak{Enabled: true, StartTime: "10:00", EndTime: "11:00"}

	slots, err := ComputeSlotsForDate(day, schedule, nil, nil, nil, settings)
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %v", len(slots), slots)
	}
	if slots[0].Start.Format("15:04") != "09:00" || slots[1].Start.Format("15:04") != "11:00" {
		t.Fatalf("unexpected slots: %v", slots)
	}
}

func TestComputeSlotsForDate_Holiday(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "12:00", 1))
	specialDays := []models.SpecialDay{
		{ID: "sd1", Date: day, Type: models.SpecialDayHoliday, Reason: "public holiday"},
	}

	slots, err := ComputeSlotsForDate(day, schedule, specialDays, nil, nil, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a holiday, got %d", len(slots))
	}
}

func TestComputeSlotsForDate_HolidayWinsOverEarlierCustomEntry(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "12:00", 1))
	specialDays := []models.SpecialDay{
		{ID: "sd1", Date: day, Type: models.SpecialDayCustom, Slots: []models.TimeSlot{slot("14:00", "16:00", 1)}},
		{ID: "sd2", Date: day, Type: models.SpecialDayHoliday, Reason: "public holiday"},
	}

	slots, err := ComputeSlotsForDate(day, schedule, specialDays, nil, nil, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("holiday must close the day regardless of entry order, got %d slots", len(slots))
	}
}

func TestComputeSlotsForDate_CustomSpecialDayReplacesWeekday(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "12:00", 1))
	specialDays := []models.SpecialDay{
		{ID: "sd1", Date: day, Type: models.SpecialDayCustom, Slots: []models.TimeSlot{slot("14:00", "16:00", 1)}},
	}

	slots, err := ComputeSlotsForDate(day, schedule, specialDays, nil, nil, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %v", len(slots), slots)
	}
	if slots[0].Start.Format("15:04") != "14:00" {
		t.Fatalf("expected custom slots to replace the weekday, got %v", slots)
	}
}

func TestComputeSlotsForDate_DisabledWeekday(t *testing.T) {
	day := nextMonday(t)
	schedule := models.WeeklySchedule{
		time.Monday: {Enabled: false, Slots: []models.TimeSlot{slot("09:00", "12:00", 1)}},
	}

	slots, err := ComputeSlotsForDate(day, schedule, nil, nil, nil, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a disabled weekday, got %d", len(slots))
	}
}

func TestComputeSlotsForDate_BlockedTimeSingleDay(t *testing.T) {
	day := nextMonday(t)
	schedule := models.WeeklySchedule{
		time.Monday:  {Enabled: true, Slots: []models.TimeSlot{slot("13:00", "17:00", 1)}},
		time.Tuesday: {Enabled: true, Slots: []models.TimeSlot{slot("13:00", "17:00", 1)}},
	}
	blocked := []models.BlockedTime{
		{ID: "b1", StartDate: day, EndDate: day, StartTime: "14:00", EndTime: "15:00"},
	}

	slots, err := ComputeSlotsForDate(day, schedule, nil, blocked, nil, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d: %v", len(slots), slots)
	}
	for _, s := range slots {
		if s.Start.Format("15:04") == "14:00" {
			t.Fatalf("blocked slot 14:00 should not be offered")
		}
	}

	// The block is bound to one date: the next day is untouched.
	tuesday := day.AddDate(0, 0, 1)
	slots, err = ComputeSlotsForDate(tuesday, schedule, nil, blocked, nil, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 4 {
		t.Fatalf("expected 4 slots on the unblocked day, got %d", len(slots))
	}
}

func TestComputeSlotsForDate_ExistingAppointmentWithBuffer(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "12:00", 1))

	settings := baseSettings()
	settings.BufferTime = 15

	existing := []models.Appointment{
		{
			ID:        "a1",
			TrainerID: "t1",
			Start:     day.Add(10 * time.Hour),
			End:       day.Add(11 * time.Hour),
			Status:    models.AppointmentConfirmed,
		},
	}

	slots, err := ComputeSlotsForDate(day, schedule, nil, nil, existing, settings)
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}

	// 09:00 and 11:00 units both touch the 15 min buffer around 10:00-11:00.
	if len(slots) != 0 {
		t.Fatalf("expected buffer to consume neighbouring units, got %v", slots)
	}
}

func TestComputeSlotsForDate_AllowOverlappingSkipsSubtraction(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "12:00", 1))

	settings := baseSettings()
	settings.AllowOverlapping = true

	existing := []models.Appointment{
		{ID: "a1", TrainerID: "t1", Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour), Status: models.AppointmentConfirmed},
	}

	slots, err := ComputeSlotsForDate(day, schedule, nil, nil, existing, settings)
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected all 3 units with allow_overlapping, got %d", len(slots))
	}
}

func TestComputeSlotsForDate_MaxAppointmentsPerUnit(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "10:00", 2))

	existing := []models.Appointment{
		{ID: "a1", TrainerID: "t1", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour), Status: models.AppointmentConfirmed},
	}

	slots, err := ComputeSlotsForDate(day, schedule, nil, nil, existing, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected the unit to stay offerable below max_appointments, got %d slots", len(slots))
	}

	existing = append(existing, models.Appointment{
		ID: "a2", TrainerID: "t1", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour), Status: models.AppointmentConfirmed,
	})

	slots, err = ComputeSlotsForDate(day, schedule, nil, nil, existing, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected the unit to close at max_appointments, got %d slots", len(slots))
	}
}

func TestComputeSlotsForDate_PartialIncrementDropped(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "10:30", 1))

	slots, err := ComputeSlotsForDate(day, schedule, nil, nil, nil, baseSettings())
	if err != nil {
		t.Fatalf("ComputeSlotsForDate error: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected the trailing 30 min to be dropped, got %d slots", len(slots))
	}

	increment := time.Duration(baseSettings().SlotIncrement) * time.Minute
	for _, s := range slots {
		if s.End.Sub(s.Start)%increment != 0 {
			t.Fatalf("slot duration %s is not a multiple of the increment", s.End.Sub(s.Start))
		}
		if s.End.After(day.Add(10*time.Hour + 30*time.Minute)) {
			t.Fatalf("slot %v extends past the source window", s)
		}
	}
}

func TestComputeSlotsForDate_Idempotent(t *testing.T) {
	day := nextMonday(t)
	schedule := mondaySchedule(slot("09:00", "12:00", 1))
	blocked := []models.BlockedTime{
		{ID: "b1", StartDate: day, EndDate: day, StartTime: "10:00", EndTime: "10:30"},
	}

	first, err := ComputeSlotsForDate(day, schedule, nil, blocked, nil, baseSettings())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := ComputeSlotsForDate(day, schedule, nil, blocked, nil, baseSettings())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("expected identical output, got %d vs %d slots", len(first), len(second))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) || !first[i].End.Equal(second[i].End) {
			t.Fatalf("slot %d differs between calls", i)
		}
	}
}

func TestComputeSlotsForDate_InvalidIncrement(t *testing.T) {
	day := nextMonday(t)
	settings := baseSettings()
	settings.SlotIncrement = 0

	_, err := ComputeSlotsForDate(day, mondaySchedule(slot("09:00", "12:00", 1)), nil, nil, nil, settings)
	if err == nil {
		t.Fatalf("expected error for zero slot_increment")
	}
}

func TestFilterForDuration(t *testing.T) {
	day := nextMonday(t)
	units := []TimeRange{
		{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
		{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)},
		{Start: day.Add(14 * time.Hour), End: day.Add(15 * time.Hour)},
	}

	fits := FilterForDuration(units, 2*time.Hour)
	if len(fits) != 1 {
		t.Fatalf("expected 1 two-hour window, got %d: %v", len(fits), fits)
	}
	if !fits[0].Start.Equal(day.Add(9 * time.Hour)) {
		t.Fatalf("expected window at 09:00, got %v", fits[0])
	}

	fits = FilterForDuration(units, time.Hour)
	if len(fits) != 3 {
		t.Fatalf("expected 3 one-hour windows, got %d", len(fits))
	}
}
