package availability

import (
	"fmt"
	"time"

	"availability-service/internal/models"
)

// FieldError points at one bad field of an edited slot definition.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateSlotDefinition checks a slot edited in the schedule or special-day
// settings. It returns every problem found, not just the first one.
func ValidateSlotDefinition(slot models.TimeSlot, settings models.Settings) []FieldError {
	var errs []FieldError

	start, startErr := time.Parse("15:04", slot.StartTime)
	if startErr != nil {
		errs = append(errs, FieldError{Field: "start_time", Message: fmt.Sprintf("invalid time %q, expected HH:mm", slot.StartTime)})
	}

	end, endErr := time.Parse("15:04", slot.EndTime)
	if endErr != nil {
		errs = append(errs, FieldError{Field: "end_time", Message: fmt.Sprintf("invalid time %q, expected HH:mm", slot.EndTime)})
	}

	if startErr == nil && endErr == nil {
		if !end.After(start) {
			errs = append(errs, FieldError{Field: "end_time", Message: "end_time must be after start_time"})
		} else if settings.SlotIncrement > 0 {
			duration := int(end.Sub(start).Minutes())
			if duration%settings.SlotIncrement != 0 {
				errs = append(errs, FieldError{
					Field:   "end_time",
					Message: fmt.Sprintf("slot duration %d min is not a multiple of the %d min increment", duration, settings.SlotIncrement),
				})
			}
		}
	}

	if slot.MaxAppointments < 1 {
		errs = append(errs, FieldError{Field: "max_appointments", Message: "max_appointments must be at least 1"})
	}

	if len(slot.AppointmentTypes) == 0 {
		errs = append(errs, FieldError{Field: "appointment_types", Message: "at least one appointment type is required"})
	}

	return errs
}
