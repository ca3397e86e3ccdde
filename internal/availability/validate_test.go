package availability

import (
	"testing"

	"availability-service/internal/models"
)

func TestValidateSlotDefinition_OK(t *testing.T) {
	slot := models.TimeSlot{
		StartTime:        "09:00",
		EndTime:          "12:00",
		MaxAppointments:  1,
		AppointmentTypes: []string{models.AppointmentTypeAll},
	}

	errs := ValidateSlotDefinition(slot, models.Settings{SlotIncrement: 30})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateSlotDefinition_StartAfterEnd(t *testing.T) {
	slot := models.TimeSlot{
		StartTime:        "12:00",
		EndTime:          "09:00",
		MaxAppointments:  1,
		AppointmentTypes: []string{models.AppointmentTypeAll},
	}

	errs := ValidateSlotDefinition(slot, models.Settings{SlotIncrement: 30})
	if len(errs) != 1 || errs[0].Field != "end_time" {
		t.Fatalf("expected an end_time error, got %v", errs)
	}
}

func TestValidateSlotDefinition_CollectsEveryProblem(t *testing.T) {
	slot := models.TimeSlot{
		StartTime:       "9am",
		EndTime:         "12:00",
		MaxAppointments: 0,
	}

	errs := ValidateSlotDefinition(slot, models.Settings{SlotIncrement: 30})

	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"start_time", "max_appointments", "appointment_types"} {
		if !fields[want] {
			t.Fatalf("expected an error on %s, got %v", want, errs)
		}
	}
}

func TestValidateSlotDefinition_IncrementMismatch(t *testing.T) {
	slot := models.TimeSlot{
		StartTime:        "09:00",
		EndTime:          "09:45",
		MaxAppointments:  1,
		AppointmentTypes: []string{"training"},
	}

	errs := ValidateSlotDefinition(slot, models.Settings{SlotIncrement: 30})
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}
