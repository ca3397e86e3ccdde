package models

import "time"

type SpecialDayType string

const (
	SpecialDayCustom  SpecialDayType = "custom"
	SpecialDayHoliday SpecialDayType = "holiday"
	SpecialDayHalfday SpecialDayType = "halfday"
)

type RecurrencePattern string

const (
	RecurrenceNone    RecurrencePattern = "none"
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// AppointmentTypeAll marks a TimeSlot open to every appointment type.
const AppointmentTypeAll = "all"

type TimeSlot struct {
	ID               string   `db:"id"`
	StartTime        string   `db:"start_time"` // HH:mm
	EndTime          string   `db:"end_time"`   // HH:mm
	MaxAppointments  int      `db:"max_appointments"`
	AppointmentTypes []string `db:"appointment_types"`
}

type DaySchedule struct {
	Enabled bool `db:"enabled"`
	Slots   []TimeSlot
}

// WeeklySchedule maps a weekday to its recurring bookable windows.
type WeeklySchedule map[time.Weekday]DaySchedule

type SpecialDay struct {
	ID     string         `db:"id"`
	Date   time.Time      `db:"date"`
	Type   SpecialDayType `db:"day_type"`
	Slots  []TimeSlot
	Reason string `db:"reason"`
}

type BlockedTime struct {
	ID        string            `db:"id"`
	StartDate time.Time         `db:"start_date"`
	EndDate   time.Time         `db:"end_date"` // zero means open-ended for recurring blocks
	StartTime string            `db:"start_time"`
	EndTime   string            `db:"end_time"`
	Reason    string            `db:"reason"`
	Recurring bool              `db:"recurring"`
	Pattern   RecurrencePattern `db:"recurrence_pattern"`
}

type LunchBreak struct {
	Enabled   bool   `db:"lunch_enabled"`
	StartTime string `db:"lunch_start"`
	EndTime   string `db:"lunch_end"`
}

type Settings struct {
	Timezone              string `db:"timezone"`
	DefaultDuration       int    `db:"default_duration"`    // minutes
	BufferTime            int    `db:"buffer_time"`         // minutes
	MinAdvanceNotice      int    `db:"min_advance_notice"`  // hours
	MaxAdvanceBooking     int    `db:"max_advance_booking"` // days
	SlotIncrement         int    `db:"slot_increment"`      // minutes
	AllowOverlapping      bool   `db:"allow_overlapping"`
	MaxDailyAppointments  int    `db:"max_daily_appointments"`
	MaxWeeklyAppointments int    `db:"max_weekly_appointments"`
	LunchBreak            LunchBreak
}

// Appointment is owned by the appointments store; the availability engine
// only reads it for conflict checks.
type Appointment struct {
	ID                string            `db:"id"`
	TrainerID         string            `db:"trainer_id"`
	BeneficiaryIDs    []string          `db:"beneficiary_ids"`
	Start             time.Time         `db:"start_time"`
	End               time.Time         `db:"end_time"`
	Status            AppointmentStatus `db:"status"`
	RecurrenceType    RecurrencePattern `db:"recurrence_type"`
	RecurrenceEndDate *time.Time        `db:"recurrence_end_date"`
	RecurrenceDays    []string          `db:"recurrence_days"`
}
