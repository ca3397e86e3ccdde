package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"availability-service/api"
	"availability-service/internal/availability"
	"availability-service/internal/lock"
	"availability-service/internal/models"
	"availability-service/pkg/response"
)

type Service struct {
	store  Store
	locker lock.Locker
	now    func() time.Time
}

func NewService(store Store, locker lock.Locker) *Service {
	return &Service{store: store, locker: locker, now: time.Now}
}

type Store interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)

	// Availability surface
	GetSchedule(ctx context.Context, trainerID string) (models.WeeklySchedule, error)
	PutSchedule(ctx context.Context, trainerID string, schedule models.WeeklySchedule) error
	GetSettings(ctx context.Context, trainerID string) (*models.Settings, error)
	PutSettings(ctx context.Context, trainerID string, settings *models.Settings) error
	GetSpecialDays(ctx context.Context, trainerID string) ([]models.SpecialDay, error)
	PutSpecialDays(ctx context.Context, trainerID string, days []models.SpecialDay) error
	GetBlockedTimes(ctx context.Context, trainerID string) ([]models.BlockedTime, error)
	PutBlockedTimes(ctx context.Context, trainerID string, blocks []models.BlockedTime) error

	// Appointments
	CreateAppointment(ctx context.Context, tx *sql.Tx, a *models.Appointment) (string, error)
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	UpdateAppointment(ctx context.Context, tx *sql.Tx, a *models.Appointment) error
	DeleteAppointment(ctx context.Context, id string) error
	ListAppointments(ctx context.Context, trainerID *string, from, to *time.Time, status *string) ([]*models.Appointment, error)
	ListConflictCandidates(ctx context.Context, trainerID string, beneficiaryIDs []string, from, to time.Time) ([]*models.Appointment, error)
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var weekdayKeys = map[time.Weekday]string{
	time.Sunday:    "sunday",
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
}

// #### weekly schedule ####

func (s *Service) GetSchedule(ctx context.Context, trainerID string) (*api.WeeklyScheduleResponse, error) {
	const op = "service.GetSchedule"

	schedule, err := s.store.GetSchedule(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	days := make(map[string]api.DaySchedule, len(schedule))
	for weekday, day := range schedule {
		days[weekdayKeys[weekday]] = api.DaySchedule{
			Enabled: day.Enabled,
			Slots:   slotsToDTO(day.Slots),
		}
	}

	return &api.WeeklyScheduleResponse{TrainerID: trainerID, Days: days}, nil
}

// PutSchedule validates every slot before touching the store; a single bad
// slot rejects the whole schedule.
func (s *Service) PutSchedule(ctx context.Context, trainerID string, req *api.WeeklyScheduleRequest) (*api.WeeklyScheduleResponse, []availability.FieldError, error) {
	const op = "service.PutSchedule"

	settings := s.loadSettingsOrDefault(ctx, trainerID)

	schedule := models.WeeklySchedule{}
	for name, day := range req.Days {
		weekday, ok := weekdayNames[name]
		if !ok {
			return nil, []availability.FieldError{{Field: "days", Message: fmt.Sprintf("unknown weekday %q", name)}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
		}

		slots := slotsFromDTO(day.Slots)
		for _, slot := range slots {
			if fieldErrs := availability.ValidateSlotDefinition(slot, *settings); len(fieldErrs) > 0 {
				return nil, fieldErrs, fmt.Errorf("%s: %w", op, response.ErrValidation)
			}
		}

		schedule[weekday] = models.DaySchedule{Enabled: day.Enabled, Slots: slots}
	}

	if err := s.store.PutSchedule(ctx, trainerID, schedule); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.GetSchedule(ctx, trainerID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil, nil
}

// #### settings ####

func (s *Service) GetSettings(ctx context.Context, trainerID string) (*api.SettingsResponse, error) {
	const op = "service.GetSettings"

	settings, err := s.store.GetSettings(ctx, trainerID)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			settings = defaultSettings()
		} else {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return settingsToDTO(trainerID, settings), nil
}

func (s *Service) PutSettings(ctx context.Context, trainerID string, req *api.SettingsRequest) (*api.SettingsResponse, error) {
	const op = "service.PutSettings"

	if _, err := time.LoadLocation(req.Timezone); err != nil {
		return nil, fmt.Errorf("%s: %q: %w", op, req.Timezone, response.ErrBadTimezone)
	}

	if req.SlotIncrement <= 0 {
		return nil, fmt.Errorf("%s: slot_increment must be positive: %w", op, response.ErrValidation)
	}
	if req.DefaultDuration <= 0 {
		return nil, fmt.Errorf("%s: default_duration must be positive: %w", op, response.ErrValidation)
	}

	if req.LunchBreak.Enabled {
		start, err := time.Parse("15:04", req.LunchBreak.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid lunch start: %w", op, response.ErrValidation)
		}
		end, err := time.Parse("15:04", req.LunchBreak.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid lunch end: %w", op, response.ErrValidation)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("%s: lunch end before start: %w", op, response.ErrValidation)
		}
	}

	settings := &models.Settings{
		Timezone:              req.Timezone,
		DefaultDuration:       req.DefaultDuration,
		BufferTime:            req.BufferTime,
		MinAdvanceNotice:      req.MinAdvanceNotice,
		MaxAdvanceBooking:     req.MaxAdvanceBooking,
		SlotIncrement:         req.SlotIncrement,
		AllowOverlapping:      req.AllowOverlapping,
		MaxDailyAppointments:  req.MaxDailyAppointments,
		MaxWeeklyAppointments: req.MaxWeeklyAppointments,
		LunchBreak: models.LunchBreak{
			Enabled:   req.LunchBreak.Enabled,
			StartTime: req.LunchBreak.StartTime,
			EndTime:   req.LunchBreak.EndTime,
		},
	}

	if err := s.store.PutSettings(ctx, trainerID, settings); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return settingsToDTO(trainerID, settings), nil
}

// #### special days ####

func (s *Service) GetSpecialDays(ctx context.Context, trainerID string) (*api.SpecialDaysResponse, error) {
	const op = "service.GetSpecialDays"

	days, err := s.store.GetSpecialDays(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.SpecialDay, 0, len(days))
	for _, day := range days {
		result = append(result, api.SpecialDay{
			ID:     day.ID,
			Date:   day.Date.Format("2006-01-02"),
			Type:   string(day.Type),
			Slots:  slotsToDTO(day.Slots),
			Reason: day.Reason,
		})
	}

	return &api.SpecialDaysResponse{TrainerID: trainerID, SpecialDays: result}, nil
}

func (s *Service) PutSpecialDays(ctx context.Context, trainerID string, req *api.SpecialDaysRequest) (*api.SpecialDaysResponse, []availability.FieldError, error) {
	const op = "service.PutSpecialDays"

	settings := s.loadSettingsOrDefault(ctx, trainerID)

	days := make([]models.SpecialDay, 0, len(req.SpecialDays))
	for _, dto := range req.SpecialDays {
		date, err := time.Parse("2006-01-02", dto.Date)
		if err != nil {
			return nil, []availability.FieldError{{Field: "date", Message: fmt.Sprintf("invalid date %q", dto.Date)}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
		}

		dayType := models.SpecialDayType(dto.Type)
		if dayType != models.SpecialDayCustom && dayType != models.SpecialDayHoliday && dayType != models.SpecialDayHalfday {
			return nil, []availability.FieldError{{Field: "type", Message: fmt.Sprintf("invalid type %q", dto.Type)}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
		}

		slots := slotsFromDTO(dto.Slots)
		for _, slot := range slots {
			if fieldErrs := availability.ValidateSlotDefinition(slot, *settings); len(fieldErrs) > 0 {
				return nil, fieldErrs, fmt.Errorf("%s: %w", op, response.ErrValidation)
			}
		}

		days = append(days, models.SpecialDay{
			ID:     dto.ID,
			Date:   date,
			Type:   dayType,
			Slots:  slots,
			Reason: dto.Reason,
		})
	}

	if err := s.store.PutSpecialDays(ctx, trainerID, days); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.GetSpecialDays(ctx, trainerID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil, nil
}

// #### blocked times ####

func (s *Service) GetBlockedTimes(ctx context.Context, trainerID string) (*api.BlockedTimesResponse, error) {
	const op = "service.GetBlockedTimes"

	blocks, err := s.store.GetBlockedTimes(ctx, trainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]api.BlockedTime, 0, len(blocks))
	for _, block := range blocks {
		dto := api.BlockedTime{
			ID:        block.ID,
			StartDate: block.StartDate.Format("2006-01-02"),
			StartTime: block.StartTime,
			EndTime:   block.EndTime,
			Reason:    block.Reason,
			Recurring: block.Recurring,
		}
		if !block.EndDate.IsZero() {
			dto.EndDate = block.EndDate.Format("2006-01-02")
		}
		if block.Pattern != "" {
			dto.RecurrencePattern = string(block.Pattern)
		}
		result = append(result, dto)
	}

	return &api.BlockedTimesResponse{TrainerID: trainerID, BlockedTimes: result}, nil
}

func (s *Service) PutBlockedTimes(ctx context.Context, trainerID string, req *api.BlockedTimesRequest) (*api.BlockedTimesResponse, []availability.FieldError, error) {
	const op = "service.PutBlockedTimes"

	blocks := make([]models.BlockedTime, 0, len(req.BlockedTimes))
	for _, dto := range req.BlockedTimes {
		startDate, err := time.Parse("2006-01-02", dto.StartDate)
		if err != nil {
			return nil, []availability.FieldError{{Field: "start_date", Message: fmt.Sprintf("invalid date %q", dto.StartDate)}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
		}

		block := models.BlockedTime{
			ID:        dto.ID,
			StartDate: startDate,
			StartTime: dto.StartTime,
			EndTime:   dto.EndTime,
			Reason:    dto.Reason,
			Recurring: dto.Recurring,
		}

		if dto.EndDate != "" {
			endDate, err := time.Parse("2006-01-02", dto.EndDate)
			if err != nil {
				return nil, []availability.FieldError{{Field: "end_date", Message: fmt.Sprintf("invalid date %q", dto.EndDate)}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
			}
			if endDate.Before(startDate) {
				return nil, []availability.FieldError{{Field: "end_date", Message: "end_date before start_date"}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
			}
			block.EndDate = endDate
		} else if !dto.Recurring {
			return nil, []availability.FieldError{{Field: "end_date", Message: "end_date is required for one-off blocks"}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
		}

		if _, err := time.Parse("15:04", dto.StartTime); err != nil {
			return nil, []availability.FieldError{{Field: "start_time", Message: fmt.Sprintf("invalid time %q", dto.StartTime)}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
		}
		if _, err := time.Parse("15:04", dto.EndTime); err != nil {
			return nil, []availability.FieldError{{Field: "end_time", Message: fmt.Sprintf("invalid time %q", dto.EndTime)}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
		}

		if dto.Recurring {
			pattern := models.RecurrencePattern(dto.RecurrencePattern)
			if pattern != models.RecurrenceDaily && pattern != models.RecurrenceWeekly && pattern != models.RecurrenceMonthly {
				return nil, []availability.FieldError{{Field: "recurrence_pattern", Message: fmt.Sprintf("invalid pattern %q", dto.RecurrencePattern)}}, fmt.Errorf("%s: %w", op, response.ErrValidation)
			}
			block.Pattern = pattern
		}

		blocks = append(blocks, block)
	}

	if err := s.store.PutBlockedTimes(ctx, trainerID, blocks); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	resp, err := s.GetBlockedTimes(ctx, trainerID)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil, nil
}

// #### available slots ####

func (s *Service) AvailableSlots(ctx context.Context, req *api.AvailableSlotsRequest) ([]api.Slot, error) {
	const op = "service.AvailableSlots"

	settings := s.loadSettingsOrDefault(ctx, req.TrainerID)

	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, response.ErrBadTimezone)
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, loc)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid date: %w", op, err)
	}

	schedule, err := s.store.GetSchedule(ctx, req.TrainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	specialDays, err := s.store.GetSpecialDays(ctx, req.TrainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	blockedTimes, err := s.store.GetBlockedTimes(ctx, req.TrainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)

	existing, err := s.trainerOccurrences(ctx, req.TrainerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	units, err := availability.ComputeSlotsForDate(date, schedule, specialDays, blockedTimes, existing, *settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	duration := req.Duration
	if duration <= 0 {
		duration = settings.DefaultDuration
	}

	windows := availability.FilterForDuration(units, time.Duration(duration)*time.Minute)

	slots := make([]api.Slot, 0, len(windows))
	for _, w := range windows {
		slots = append(slots, api.Slot{Start: w.Start, End: w.End})
	}

	return slots, nil
}

// #### conflict check ####

func (s *Service) CheckConflicts(ctx context.Context, req *api.ConflictCheckRequest) (*api.ConflictCheckResponse, error) {
	const op = "service.CheckConflicts"

	candidate, err := candidateFromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	settings := s.loadSettingsOrDefault(ctx, req.TrainerID)

	report, err := s.runConflictCheck(ctx, candidate, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	resp := reportToDTO(report)

	// Offer alternatives for the same day when the requested range collides.
	if len(report.Conflicts) > 0 {
		suggestions, err := s.AvailableSlots(ctx, &api.AvailableSlotsRequest{
			TrainerID: req.TrainerID,
			Date:      candidate.Start.Format("2006-01-02"),
			Duration:  int(candidate.End.Sub(candidate.Start).Minutes()),
		})
		if err == nil {
			if len(suggestions) > 3 {
				suggestions = suggestions[:3]
			}
			resp.Suggestions = suggestions
		}
	}

	return resp, nil
}

// runConflictCheck gathers the collision candidates, expands recurring ones
// to concrete occurrences and runs the pure check.
func (s *Service) runConflictCheck(ctx context.Context, candidate availability.Candidate, settings *models.Settings) (availability.ConflictReport, error) {
	buffer := time.Duration(settings.BufferTime) * time.Minute

	// The window is padded so buffered neighbours and caps are both visible.
	from := truncateToDay(candidate.Start).AddDate(0, 0, -7)
	to := truncateToDay(candidate.End).AddDate(0, 0, 8)

	stored, err := s.store.ListConflictCandidates(ctx, candidate.TrainerID, candidate.BeneficiaryIDs, from.Add(-buffer), to.Add(buffer))
	if err != nil {
		return availability.ConflictReport{}, err
	}

	existing := expandOccurrences(stored, from, to)

	return availability.CheckConflicts(candidate, existing, *settings, s.now()), nil
}

// #### appointments ####

func (s *Service) CreateAppointment(ctx context.Context, req *api.AppointmentRequest) (*api.AppointmentResponse, *api.ConflictCheckResponse, error) {
	const op = "service.CreateAppointment"

	appointment, err := appointmentFromRequest(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	lockKey := fmt.Sprintf("trainer:%s", req.TrainerID)

	locked, err := s.locker.Lock(ctx, lockKey, 10*time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer func() {
		_ = s.locker.Unlock(ctx, lockKey)
	}()

	settings := s.loadSettingsOrDefault(ctx, req.TrainerID)

	candidate := availability.Candidate{
		Start:          appointment.Start,
		End:            appointment.End,
		TrainerID:      appointment.TrainerID,
		BeneficiaryIDs: appointment.BeneficiaryIDs,
	}

	report, err := s.runConflictCheck(ctx, candidate, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	// Policy violations always block. Collisions block unless overlapping
	// bookings are allowed and the caller set force to confirm booking
	// anyway, in which case they come back as warnings.
	if len(report.Violations) > 0 || (len(report.Conflicts) > 0 && !(settings.AllowOverlapping && req.Force)) {
		return nil, reportToDTO(report), fmt.Errorf("%s: %w", op, response.ErrConflict)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	id, err := s.store.CreateAppointment(ctx, tx, appointment)
	if err != nil {
		_ = tx.Rollback()
		return nil, nil, fmt.Errorf("%s: create appointment: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	resp, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, c := range report.Conflicts {
		resp.Warnings = append(resp.Warnings, conflictToDTO(c))
	}

	return resp, nil, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*api.AppointmentResponse, error) {
	const op = "service.GetAppointment"

	appointment, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appointmentToDTO(appointment), nil
}

func (s *Service) ListAppointments(ctx context.Context, trainerID *string, from, to *time.Time, status *string) ([]*api.AppointmentResponse, error) {
	const op = "service.ListAppointments"

	appointments, err := s.store.ListAppointments(ctx, trainerID, from, to, status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	result := make([]*api.AppointmentResponse, 0, len(appointments))
	for _, a := range appointments {
		result = append(result, appointmentToDTO(a))
	}

	return result, nil
}

func (s *Service) UpdateAppointment(ctx context.Context, id string, req *api.AppointmentRequest) (*api.AppointmentResponse, *api.ConflictCheckResponse, error) {
	const op = "service.UpdateAppointment"

	current, err := s.store.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	appointment, err := appointmentFromRequest(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	appointment.ID = id
	appointment.Status = current.Status

	lockKey := fmt.Sprintf("trainer:%s", req.TrainerID)

	locked, err := s.locker.Lock(ctx, lockKey, 10*time.Second)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: lock error: %w", op, err)
	}
	if !locked {
		return nil, nil, fmt.Errorf("%s: %w", op, response.ErrLocked)
	}
	defer func() {
		_ = s.locker.Unlock(ctx, lockKey)
	}()

	settings := s.loadSettingsOrDefault(ctx, req.TrainerID)

	candidate := availability.Candidate{
		Start:          appointment.Start,
		End:            appointment.End,
		TrainerID:      appointment.TrainerID,
		BeneficiaryIDs: appointment.BeneficiaryIDs,
		ExcludeID:      id,
	}

	report, err := s.runConflictCheck(ctx, candidate, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(report.Violations) > 0 || (len(report.Conflicts) > 0 && !(settings.AllowOverlapping && req.Force)) {
		return nil, reportToDTO(report), fmt.Errorf("%s: %w", op, response.ErrConflict)
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: begin tx: %w", op, err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := s.store.UpdateAppointment(ctx, tx, appointment); err != nil {
		_ = tx.Rollback()
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("%s: commit: %w", op, err)
	}

	resp, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, c := range report.Conflicts {
		resp.Warnings = append(resp.Warnings, conflictToDTO(c))
	}

	return resp, nil, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	const op = "service.DeleteAppointment"

	err := s.store.DeleteAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### helpers ####

// loadSettingsOrDefault falls back to defaults for trainers who never saved
// settings; slot computation should work out of the box.
func (s *Service) loadSettingsOrDefault(ctx context.Context, trainerID string) *models.Settings {
	settings, err := s.store.GetSettings(ctx, trainerID)
	if err != nil {
		return defaultSettings()
	}
	return settings
}

func defaultSettings() *models.Settings {
	return &models.Settings{
		Timezone:        "UTC",
		DefaultDuration: 60,
		SlotIncrement:   30,
	}
}

// trainerOccurrences returns the trainer's appointments intersecting the
// window, recurring ones expanded to concrete occurrences.
func (s *Service) trainerOccurrences(ctx context.Context, trainerID string, from, to time.Time) ([]models.Appointment, error) {
	stored, err := s.store.ListConflictCandidates(ctx, trainerID, nil, from, to)
	if err != nil {
		return nil, err
	}

	var own []*models.Appointment
	for _, a := range stored {
		if a.TrainerID == trainerID {
			own = append(own, a)
		}
	}

	return expandOccurrences(own, from, to), nil
}

func expandOccurrences(stored []*models.Appointment, from, to time.Time) []models.Appointment {
	var result []models.Appointment
	for _, a := range stored {
		for _, occ := range availability.ExpandOccurrences(*a, from, to) {
			instance := *a
			instance.Start = occ.Start
			instance.End = occ.End
			result = append(result, instance)
		}
	}
	return result
}

func candidateFromRequest(req *api.ConflictCheckRequest) (availability.Candidate, error) {
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return availability.Candidate{}, fmt.Errorf("invalid start_time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return availability.Candidate{}, fmt.Errorf("invalid end_time: %w", err)
	}
	if !end.After(start) {
		return availability.Candidate{}, fmt.Errorf("end_time must be after start_time: %w", response.ErrValidation)
	}

	return availability.Candidate{
		Start:          start,
		End:            end,
		TrainerID:      req.TrainerID,
		BeneficiaryIDs: req.BeneficiaryIDs,
		ExcludeID:      req.ExcludeID,
	}, nil
}

func appointmentFromRequest(req *api.AppointmentRequest) (*models.Appointment, error) {
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return nil, fmt.Errorf("invalid start_time: %w", err)
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return nil, fmt.Errorf("invalid end_time: %w", err)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("end_time must be after start_time: %w", response.ErrValidation)
	}

	appointment := &models.Appointment{
		TrainerID:      req.TrainerID,
		BeneficiaryIDs: req.BeneficiaryIDs,
		Start:          start,
		End:            end,
		Status:         models.AppointmentScheduled,
		RecurrenceType: models.RecurrenceNone,
	}

	if req.RecurrenceType != "" && req.RecurrenceType != string(models.RecurrenceNone) {
		recurrence := models.RecurrencePattern(req.RecurrenceType)
		if recurrence != models.RecurrenceDaily && recurrence != models.RecurrenceWeekly && recurrence != models.RecurrenceMonthly {
			return nil, fmt.Errorf("invalid recurrence_type %q: %w", req.RecurrenceType, response.ErrValidation)
		}
		appointment.RecurrenceType = recurrence
		appointment.RecurrenceDays = req.RecurrenceDays

		if req.RecurrenceEndDate != "" {
			endDate, err := time.Parse("2006-01-02", req.RecurrenceEndDate)
			if err != nil {
				return nil, fmt.Errorf("invalid recurrence_end_date: %w", err)
			}
			appointment.RecurrenceEndDate = &endDate
		}
	}

	return appointment, nil
}

func appointmentToDTO(a *models.Appointment) *api.AppointmentResponse {
	return &api.AppointmentResponse{
		ID:                a.ID,
		TrainerID:         a.TrainerID,
		BeneficiaryIDs:    a.BeneficiaryIDs,
		Start:             a.Start,
		End:               a.End,
		Status:            string(a.Status),
		RecurrenceType:    string(a.RecurrenceType),
		RecurrenceEndDate: a.RecurrenceEndDate,
		RecurrenceDays:    a.RecurrenceDays,
	}
}

func settingsToDTO(trainerID string, settings *models.Settings) *api.SettingsResponse {
	return &api.SettingsResponse{
		TrainerID:             trainerID,
		Timezone:              settings.Timezone,
		DefaultDuration:       settings.DefaultDuration,
		BufferTime:            settings.BufferTime,
		MinAdvanceNotice:      settings.MinAdvanceNotice,
		MaxAdvanceBooking:     settings.MaxAdvanceBooking,
		SlotIncrement:         settings.SlotIncrement,
		AllowOverlapping:      settings.AllowOverlapping,
		MaxDailyAppointments:  settings.MaxDailyAppointments,
		MaxWeeklyAppointments: settings.MaxWeeklyAppointments,
		LunchBreak: api.LunchBreak{
			Enabled:   settings.LunchBreak.Enabled,
			StartTime: settings.LunchBreak.StartTime,
			EndTime:   settings.LunchBreak.EndTime,
		},
	}
}

func reportToDTO(report availability.ConflictReport) *api.ConflictCheckResponse {
	resp := &api.ConflictCheckResponse{
		Conflicts:  make([]api.Conflict, 0, len(report.Conflicts)),
		Violations: make([]api.ConstraintViolation, 0, len(report.Violations)),
	}
	for _, c := range report.Conflicts {
		resp.Conflicts = append(resp.Conflicts, conflictToDTO(c))
	}
	for _, v := range report.Violations {
		resp.Violations = append(resp.Violations, api.ConstraintViolation{Rule: v.Rule, Message: v.Message})
	}
	return resp
}

func conflictToDTO(c availability.Conflict) api.Conflict {
	return api.Conflict{
		AppointmentID:  c.AppointmentID,
		Start:          c.Start,
		End:            c.End,
		TrainerOverlap: c.TrainerOverlap,
		Beneficiaries:  c.Beneficiaries,
	}
}

func slotsToDTO(slots []models.TimeSlot) []api.TimeSlot {
	result := make([]api.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		result = append(result, api.TimeSlot{
			ID:               slot.ID,
			StartTime:        slot.StartTime,
			EndTime:          slot.EndTime,
			MaxAppointments:  slot.MaxAppointments,
			AppointmentTypes: slot.AppointmentTypes,
		})
	}
	return result
}

func slotsFromDTO(slots []api.TimeSlot) []models.TimeSlot {
	result := make([]models.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		result = append(result, models.TimeSlot{
			ID:               slot.ID,
			StartTime:        slot.StartTime,
			EndTime:          slot.EndTime,
			MaxAppointments:  slot.MaxAppointments,
			AppointmentTypes: slot.AppointmentTypes,
		})
	}
	return result
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
