package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"availability-service/internal/models"
)

// BlockAppliesOn reports whether a blocked time covers the given date.
// End dates are inclusive; a zero end date on a recurring block means the
// block never expires. Monthly recurrence matches the start date's
// day-of-month, so months without that day produce no occurrence.
func BlockAppliesOn(b models.BlockedTime, date time.Time) (bool, error) {
	day := truncateToDate(date, date.Location())
	start := truncateToDate(b.StartDate, date.Location())

	if day.Before(start) {
		return false, nil
	}

	if !b.EndDate.IsZero() {
		end := truncateToDate(b.EndDate, date.Location())
		if day.After(end) {
			return false, nil
		}
	} else if !b.Recurring {
		return false, fmt.Errorf("blocked time %s: missing end_date on non-recurring block", b.ID)
	}

	if !b.Recurring {
		return true, nil
	}

	switch b.Pattern {
	case models.RecurrenceDaily:
		return true, nil
	case models.RecurrenceWeekly:
		return day.Weekday() == start.Weekday(), nil
	case models.RecurrenceMonthly:
		return day.Day() == start.Day(), nil
	default:
		return false, fmt.Errorf("blocked time %s: unknown recurrence pattern %q", b.ID, b.Pattern)
	}
}

// ExpandOccurrences turns a possibly recurring appointment into the concrete
// occurrences intersecting [from, to). Non-recurring appointments yield
// themselves when they intersect the window. Weekly recurrence follows
// RecurrenceDays when set, otherwise the weekday of the first occurrence.
func ExpandOccurrences(a models.Appointment, from, to time.Time) []TimeRange {
	window := TimeRange{Start: from, End: to}

	if a.RecurrenceType == "" || a.RecurrenceType == models.RecurrenceNone {
		occ := TimeRange{Start: a.Start, End: a.End}
		if occ.Overlaps(window) {
			return []TimeRange{occ}
		}
		return nil
	}

	loc := from.Location()
	duration := a.End.Sub(a.Start)

	last := to
	if a.RecurrenceEndDate != nil {
		// Inclusive end date: the occurrence on that day still happens.
		endDay := truncateToDate(*a.RecurrenceEndDate, loc).AddDate(0, 0, 1)
		if endDay.Before(last) {
			last = endDay
		}
	}

	weekdays := map[time.Weekday]struct{}{}
	if a.RecurrenceType == models.RecurrenceWeekly {
		for _, d := range a.RecurrenceDays {
			if wd, ok := parseWeekdayFlexible(d); ok {
				weekdays[wd] = struct{}{}
			}
		}
		if len(weekdays) == 0 {
			weekdays[a.Start.Weekday()] = struct{}{}
		}
	}

	var occurrences []TimeRange
	firstDay := truncateToDate(a.Start, loc)
	for day := firstDay; day.Before(last); day = day.AddDate(0, 0, 1) {
		switch a.RecurrenceType {
		case models.RecurrenceDaily:
		case models.RecurrenceWeekly:
			if _, ok := weekdays[day.Weekday()]; !ok {
				continue
			}
		case models.RecurrenceMonthly:
			if day.Day() != a.Start.Day() {
				continue
			}
		default:
			return nil
		}

		start := time.Date(day.Year(), day.Month(), day.Day(), a.Start.Hour(), a.Start.Minute(), 0, 0, loc)
		occ := TimeRange{Start: start, End: start.Add(duration)}
		if occ.Overlaps(window) {
			occurrences = append(occurrences, occ)
		}
	}

	return occurrences
}

func truncateToDate(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// parseWeekdayFlexible accepts the spellings commonly stored in TEXT[]:
// "mon", "monday", "Mon", "1", "0" and so on (0 = Sunday).
func parseWeekdayFlexible(s string) (time.Weekday, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, false
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n >= 0 && n <= 6 {
			return time.Weekday(n), true
		}
		if n == 7 {
			return time.Sunday, true
		}
		return 0, false
	}

	switch s {
	case "sun", "sunday":
		return time.Sunday, true
	case "mon", "monday":
		return time.Monday, true
	case "tue", "tues", "tuesday":
		return time.Tuesday, true
	case "wed", "wednesday":
		return time.Wednesday, true
	case "thu", "thur", "thursday":
		return time.Thursday, true
	case "fri", "friday":
		return time.Friday, true
	case "sat", "saturday":
		return time.Saturday, true
	default:
		return 0, false
	}
}
