package availability

import (
	"fmt"
	"time"

	"availability-service/internal/models"
)

// TimeRange is a half-open interval [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// ComputeSlotsForDate resolves the availability surface for a single calendar
// date and returns the bookable slot units, ascending and non-overlapping.
// Resolution precedence: holiday special day, custom/halfday special day,
// weekly schedule. An empty result is valid output, not an error.
//
// date must be midnight in the trainer's timezone. existing carries the
// trainer's appointments already expanded to concrete occurrences.
func ComputeSlotsForDate(
	date time.Time,
	schedule models.WeeklySchedule,
	specialDays []models.SpecialDay,
	blockedTimes []models.BlockedTime,
	existing []models.Appointment,
	settings models.Settings,
) ([]TimeRange, error) {
	const op = "availability.ComputeSlotsForDate"

	if settings.SlotIncrement <= 0 {
		return nil, fmt.Errorf("%s: invalid slot_increment: %d", op, settings.SlotIncrement)
	}

	baseSlots, closed, err := resolveBaseSlots(date, schedule, specialDays)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if closed {
		return []TimeRange{}, nil
	}

	busy, err := busyIntervals(date, blockedTimes, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	buffer := time.Duration(settings.BufferTime) * time.Minute
	increment := time.Duration(settings.SlotIncrement) * time.Minute

	var result []TimeRange
	for _, slot := range baseSlots {
		windowStart, err := timeOnDate(date, slot.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%s: slot start: %w", op, err)
		}
		windowEnd, err := timeOnDate(date, slot.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%s: slot end: %w", op, err)
		}
		if !windowEnd.After(windowStart) {
			continue
		}

		maxAppointments := slot.MaxAppointments
		if maxAppointments < 1 {
			maxAppointments = 1
		}

		// Trailing partial increments are never offered.
		for cur := windowStart; !cur.Add(increment).After(windowEnd); cur = cur.Add(increment) {
			unit := TimeRange{Start: cur, End: cur.Add(increment)}

			if overlapsAny(unit, busy) {
				continue
			}

			if !settings.AllowOverlapping {
				taken := 0
				for _, a := range existing {
					if a.Status == models.AppointmentCancelled {
						continue
					}
					padded := TimeRange{Start: a.Start.Add(-buffer), End: a.End.Add(buffer)}
					if unit.Overlaps(padded) {
						taken++
					}
				}
				if taken >= maxAppointments {
					continue
				}
			}

			result = append(result, unit)
		}
	}

	return result, nil
}

// FilterForDuration keeps slot starts from which a booking of length duration
// fits entirely inside contiguous free units. The returned ranges are
// [unit.Start, unit.Start+duration).
func FilterForDuration(units []TimeRange, duration time.Duration) []TimeRange {
	if duration <= 0 {
		return nil
	}

	var result []TimeRange
	for i, u := range units {
		end := u.Start.Add(duration)
		covered := u.End
		for j := i + 1; covered.Before(end) && j < len(units); j++ {
			if !units[j].Start.Equal(covered) {
				break
			}
			covered = units[j].End
		}
		if !covered.Before(end) {
			result = append(result, TimeRange{Start: u.Start, End: end})
		}
	}

	return result
}

func resolveBaseSlots(date time.Time, schedule models.WeeklySchedule, specialDays []models.SpecialDay) ([]models.TimeSlot, bool, error) {
	// A holiday closes the day even when other entries exist for the same
	// date, so the full list is scanned before a custom/halfday match wins.
	var match *models.SpecialDay
	for i := range specialDays {
		if !sameDate(specialDays[i].Date, date) {
			continue
		}
		if specialDays[i].Type == models.SpecialDayHoliday {
			return nil, true, nil
		}
		if match == nil {
			match = &specialDays[i]
		}
	}
	if match != nil {
		return match.Slots, false, nil
	}

	day, ok := schedule[date.Weekday()]
	if !ok || !day.Enabled {
		return nil, true, nil
	}

	return day.Slots, false, nil
}

// busyIntervals collects the subtracted windows for a date: blocked times
// whose recurrence applies, plus the lunch break.
func busyIntervals(date time.Time, blockedTimes []models.BlockedTime, settings models.Settings) ([]TimeRange, error) {
	var busy []TimeRange

	for _, b := range blockedTimes {
		applies, err := BlockAppliesOn(b, date)
		if err != nil {
			return nil, err
		}
		if !applies {
			continue
		}

		start, err := timeOnDate(date, b.StartTime)
		if err != nil {
			return nil, fmt.Errorf("blocked time start: %w", err)
		}
		end, err := timeOnDate(date, b.EndTime)
		if err != nil {
			return nil, fmt.Errorf("blocked time end: %w", err)
		}
		busy = append(busy, TimeRange{Start: start, End: end})
	}

	if settings.LunchBreak.Enabled {
		start, err := timeOnDate(date, settings.LunchBreak.StartTime)
		if err != nil {
			return nil, fmt.Errorf("lunch break start: %w", err)
		}
		end, err := timeOnDate(date, settings.LunchBreak.EndTime)
		if err != nil {
			return nil, fmt.Errorf("lunch break end: %w", err)
		}
		busy = append(busy, TimeRange{Start: start, End: end})
	}

	return busy, nil
}

func overlapsAny(r TimeRange, busy []TimeRange) bool {
	for _, b := range busy {
		if r.Overlaps(b) {
			return true
		}
	}
	return false
}

// timeOnDate combines an HH:mm wall-clock string with a calendar date in the
// date's location.
func timeOnDate(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", hhmm, err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
