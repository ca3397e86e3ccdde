package availability

import (
	"fmt"
	"time"

	"availability-service/internal/models"
)

// Candidate is a proposed appointment checked against existing bookings.
// ExcludeID skips one appointment, for edit-in-place.
type Candidate struct {
	Start          time.Time
	End            time.Time
	TrainerID      string
	BeneficiaryIDs []string
	ExcludeID      string
}

// Conflict is a collision with one existing appointment. It is data, not an
// error: the caller decides whether to block or to ask for confirmation.
type Conflict struct {
	AppointmentID  string
	Start          time.Time
	End            time.Time
	TrainerOverlap bool
	Beneficiaries  []string
}

// ConstraintViolation is a policy breach (advance notice, booking caps),
// reported separately from collisions.
type ConstraintViolation struct {
	Rule    string
	Message string
}

const (
	RuleMinAdvanceNotice      = "min_advance_notice"
	RuleMaxAdvanceBooking     = "max_advance_booking"
	RuleMaxDailyAppointments  = "max_daily_appointments"
	RuleMaxWeeklyAppointments = "max_weekly_appointments"
)

type ConflictReport struct {
	Conflicts  []Conflict
	Violations []ConstraintViolation
}

func (r ConflictReport) Clean() bool {
	return len(r.Conflicts) == 0 && len(r.Violations) == 0
}

// CheckConflicts tests a candidate against the trainer's and beneficiaries'
// existing appointments and the booking policy. Trainer overlap is tested
// with bufferTime padding on the existing appointment; beneficiary overlap
// is not padded. Cancelled appointments never conflict.
func CheckConflicts(candidate Candidate, existing []models.Appointment, settings models.Settings, now time.Time) ConflictReport {
	var report ConflictReport

	buffer := time.Duration(settings.BufferTime) * time.Minute
	candidateRange := TimeRange{Start: candidate.Start, End: candidate.End}

	for _, a := range existing {
		if a.ID == candidate.ExcludeID {
			continue
		}
		if a.Status == models.AppointmentCancelled {
			continue
		}

		plain := TimeRange{Start: a.Start, End: a.End}
		padded := TimeRange{Start: a.Start.Add(-buffer), End: a.End.Add(buffer)}

		trainerOverlap := a.TrainerID == candidate.TrainerID && candidateRange.Overlaps(padded)
		shared := intersect(candidate.BeneficiaryIDs, a.BeneficiaryIDs)
		beneficiaryOverlap := len(shared) > 0 && candidateRange.Overlaps(plain)

		if trainerOverlap || beneficiaryOverlap {
			if !beneficiaryOverlap {
				shared = nil
			}
			report.Conflicts = append(report.Conflicts, Conflict{
				AppointmentID:  a.ID,
				Start:          a.Start,
				End:            a.End,
				TrainerOverlap: trainerOverlap,
				Beneficiaries:  shared,
			})
		}
	}

	report.Violations = checkPolicy(candidate, existing, settings, now)

	return report
}

func checkPolicy(candidate Candidate, existing []models.Appointment, settings models.Settings, now time.Time) []ConstraintViolation {
	var violations []ConstraintViolation

	if settings.MinAdvanceNotice > 0 {
		earliest := now.Add(time.Duration(settings.MinAdvanceNotice) * time.Hour)
		if candidate.Start.Before(earliest) {
			violations = append(violations, ConstraintViolation{
				Rule:    RuleMinAdvanceNotice,
				Message: fmt.Sprintf("appointments must be booked at least %d hours in advance", settings.MinAdvanceNotice),
			})
		}
	}

	if settings.MaxAdvanceBooking > 0 {
		latest := now.AddDate(0, 0, settings.MaxAdvanceBooking)
		if candidate.Start.After(latest) {
			violations = append(violations, ConstraintViolation{
				Rule:    RuleMaxAdvanceBooking,
				Message: fmt.Sprintf("appointments cannot be booked more than %d days in advance", settings.MaxAdvanceBooking),
			})
		}
	}

	if settings.MaxDailyAppointments > 0 {
		count := countTrainerAppointments(candidate, existing, sameDate)
		if count >= settings.MaxDailyAppointments {
			violations = append(violations, ConstraintViolation{
				Rule:    RuleMaxDailyAppointments,
				Message: fmt.Sprintf("trainer already has %d appointments that day (limit %d)", count, settings.MaxDailyAppointments),
			})
		}
	}

	if settings.MaxWeeklyAppointments > 0 {
		count := countTrainerAppointments(candidate, existing, sameWeek)
		if count >= settings.MaxWeeklyAppointments {
			violations = append(violations, ConstraintViolation{
				Rule:    RuleMaxWeeklyAppointments,
				Message: fmt.Sprintf("trainer already has %d appointments that week (limit %d)", count, settings.MaxWeeklyAppointments),
			})
		}
	}

	return violations
}

func countTrainerAppointments(candidate Candidate, existing []models.Appointment, samePeriod func(a, b time.Time) bool) int {
	count := 0
	for _, a := range existing {
		if a.ID == candidate.ExcludeID || a.TrainerID != candidate.TrainerID {
			continue
		}
		if a.Status == models.AppointmentCancelled {
			continue
		}
		if samePeriod(a.Start, candidate.Start) {
			count++
		}
	}
	return count
}

// sameWeek compares ISO weeks, Monday-based.
func sameWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}

	var shared []string
	for _, id := range b {
		if _, ok := set[id]; ok {
			shared = append(shared, id)
		}
	}
	return shared
}
