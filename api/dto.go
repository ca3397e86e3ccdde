package api

import "time"

// Time-of-day fields are HH:mm strings, dates are 2006-01-02, instants are
// RFC3339, matching the REST contract.

type TimeSlot struct {
	ID               string   `json:"id,omitempty"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	MaxAppointments  int      `json:"max_appointments"`
	AppointmentTypes []string `json:"appointment_types"`
}

type DaySchedule struct {
	Enabled bool       `json:"enabled"`
	Slots   []TimeSlot `json:"slots"`
}

type WeeklyScheduleRequest struct {
	TrainerID string                 `json:"trainer_id"`
	Days      map[string]DaySchedule `json:"days"` // keyed by lowercase weekday name
}

type WeeklyScheduleResponse struct {
	TrainerID string                 `json:"trainer_id"`
	Days      map[string]DaySchedule `json:"days"`
}

type LunchBreak struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type SettingsRequest struct {
	TrainerID             string     `json:"trainer_id"`
	Timezone              string     `json:"timezone"`
	DefaultDuration       int        `json:"default_duration"`
	BufferTime            int        `json:"buffer_time"`
	MinAdvanceNotice      int        `json:"min_advance_notice"`
	MaxAdvanceBooking     int        `json:"max_advance_booking"`
	SlotIncrement         int        `json:"slot_increment"`
	AllowOverlapping      bool       `json:"allow_overlapping"`
	MaxDailyAppointments  int        `json:"max_daily_appointments"`
	MaxWeeklyAppointments int        `json:"max_weekly_appointments"`
	LunchBreak            LunchBreak `json:"lunch_break"`
}

type SettingsResponse struct {
	TrainerID             string     `json:"trainer_id"`
	Timezone              string     `json:"timezone"`
	DefaultDuration       int        `json:"default_duration"`
	BufferTime            int        `json:"buffer_time"`
	MinAdvanceNotice      int        `json:"min_advance_notice"`
	MaxAdvanceBooking     int        `json:"max_advance_booking"`
	SlotIncrement         int        `json:"slot_increment"`
	AllowOverlapping      bool       `json:"allow_overlapping"`
	MaxDailyAppointments  int        `json:"max_daily_appointments"`
	MaxWeeklyAppointments int        `json:"max_weekly_appointments"`
	LunchBreak            LunchBreak `json:"lunch_break"`
}

type SpecialDay struct {
	ID     string     `json:"id,omitempty"`
	Date   string     `json:"date"`
	Type   string     `json:"type"`
	Slots  []TimeSlot `json:"slots,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

type SpecialDaysRequest struct {
	TrainerID   string       `json:"trainer_id"`
	SpecialDays []SpecialDay `json:"special_days"`
}

type SpecialDaysResponse struct {
	TrainerID   string       `json:"trainer_id"`
	SpecialDays []SpecialDay `json:"special_days"`
}

type BlockedTime struct {
	ID                string `json:"id,omitempty"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date,omitempty"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Reason            string `json:"reason,omitempty"`
	Recurring         bool   `json:"recurring"`
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`
}

type BlockedTimesRequest struct {
	TrainerID    string        `json:"trainer_id"`
	BlockedTimes []BlockedTime `json:"blocked_times"`
}

type BlockedTimesResponse struct {
	TrainerID    string        `json:"trainer_id"`
	BlockedTimes []BlockedTime `json:"blocked_times"`
}

type AppointmentRequest struct {
	TrainerID         string   `json:"trainer_id"`
	BeneficiaryIDs    []string `json:"beneficiary_ids"`
	Start             string   `json:"start_time"`
	End               string   `json:"end_time"`
	RecurrenceType    string   `json:"recurrence_type,omitempty"`
	RecurrenceEndDate string   `json:"recurrence_end_date,omitempty"`
	RecurrenceDays    []string `json:"recurrence_days,omitempty"`
	Force             bool     `json:"force,omitempty"` // book despite warnings when overlapping is allowed
}

type AppointmentResponse struct {
	ID                string     `json:"id"`
	TrainerID         string     `json:"trainer_id"`
	BeneficiaryIDs    []string   `json:"beneficiary_ids"`
	Start             time.Time  `json:"start_time"`
	End               time.Time  `json:"end_time"`
	Status            string     `json:"status"`
	RecurrenceType    string     `json:"recurrence_type,omitempty"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty"`
	RecurrenceDays    []string   `json:"recurrence_days,omitempty"`
	Warnings          []Conflict `json:"warnings,omitempty"`
}

type ConflictCheckRequest struct {
	TrainerID      string   `json:"trainer_id"`
	BeneficiaryIDs []string `json:"beneficiary_ids"`
	Start          string   `json:"start_time"`
	End            string   `json:"end_time"`
	ExcludeID      string   `json:"exclude_id,omitempty"`
}

type Conflict struct {
	AppointmentID  string    `json:"appointment_id"`
	Start          time.Time `json:"start_time"`
	End            time.Time `json:"end_time"`
	TrainerOverlap bool      `json:"trainer_overlap"`
	Beneficiaries  []string  `json:"beneficiaries,omitempty"`
}

type ConstraintViolation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

type ConflictCheckResponse struct {
	Conflicts   []Conflict            `json:"conflicts"`
	Violations  []ConstraintViolation `json:"violations"`
	Suggestions []Slot                `json:"suggestions,omitempty"`
}

type AvailableSlotsRequest struct {
	TrainerID string `json:"trainer_id"`
	Date      string `json:"date"`
	Duration  int    `json:"duration,omitempty"` // minutes, defaults to settings.default_duration
}

type Slot struct {
	Start time.Time `json:"start_time"`
	End   time.Time `json:"end_time"`
}
