package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"availability-service/api"
	"availability-service/internal/models"
	"availability-service/pkg/response"
)

type stubStore struct {
	schedule    models.WeeklySchedule
	settings    *models.Settings
	specialDays []models.SpecialDay
	blocked     []models.BlockedTime
	candidates  []*models.Appointment

	savedSchedule models.WeeklySchedule
	savedSettings *models.Settings
	savedBlocks   []models.BlockedTime
	createdCount  int
}

func (s *stubStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return nil, errors.New("no database in tests")
}

func (s *stubStore) GetSchedule(ctx context.Context, trainerID string) (models.WeeklySchedule, error) {
	return s.schedule, nil
}

func (s *stubStore) PutSchedule(ctx context.Context, trainerID string, schedule models.WeeklySchedule) error {
	s.savedSchedule = schedule
	s.schedule = schedule
	return nil
}

func (s *stubStore) GetSettings(ctx context.Context, trainerID string) (*models.Settings, error) {
	if s.settings == nil {
		return nil, fmt.Errorf("stub: %w", response.ErrNotFound)
	}
	return s.settings, nil
}

func (s *stubStore) PutSettings(ctx context.Context, trainerID string, settings *models.Settings) error {
	s.savedSettings = settings
	s.settings = settings
	return nil
}

func (s *stubStore) GetSpecialDays(ctx context.Context, trainerID string) ([]models.SpecialDay, error) {
	return s.specialDays, nil
}

func (s *stubStore) PutSpecialDays(ctx context.Context, trainerID string, days []models.SpecialDay) error {
	s.specialDays = days
	return nil
}

func (s *stubStore) GetBlockedTimes(ctx context.Context, trainerID string) ([]models.BlockedTime, error) {
	return s.blocked, nil
}

func (s *stubStore) PutBlockedTimes(ctx context.Context, trainerID string, blocks []models.BlockedTime) error {
	s.savedBlocks = blocks
	s.blocked = blocks
	return nil
}

func (s *stubStore) CreateAppointment(ctx context.Context, tx *sql.Tx, a *models.Appointment) (string, error) {
	s.createdCount++
	return "appt-1", nil
}

func (s *stubStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	for _, a := range s.candidates {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("stub: %w", response.ErrNotFound)
}

func (s *stubStore) UpdateAppointment(ctx context.Context, tx *sql.Tx, a *models.Appointment) error {
	return nil
}

func (s *stubStore) DeleteAppointment(ctx context.Context, id string) error {
	for _, a := range s.candidates {
		if a.ID == id {
			return nil
		}
	}
	return fmt.Errorf("stub: %w", response.ErrNotFound)
}

func (s *stubStore) ListAppointments(ctx context.Context, trainerID *string, from, to *time.Time, status *string) ([]*models.Appointment, error) {
	return s.candidates, nil
}

func (s *stubStore) ListConflictCandidates(ctx context.Context, trainerID string, beneficiaryIDs []string, from, to time.Time) ([]*models.Appointment, error) {
	return s.candidates, nil
}

type stubLocker struct {
	available bool
	lockErr   error
	locks     []string
	unlocks   []string
}

func (l *stubLocker) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.locks = append(l.locks, key)
	return l.available, l.lockErr
}

func (l *stubLocker) Unlock(ctx context.Context, key string) error {
	l.unlocks = append(l.unlocks, key)
	return nil
}

func testSettings() *models.Settings {
	return &models.Settings{
		Timezone:        "UTC",
		DefaultDuration: 60,
		SlotIncrement:   60,
	}
}

func mondayOnly() models.WeeklySchedule {
	return models.WeeklySchedule{
		time.Monday: {
			Enabled: true,
			Slots: []models.TimeSlot{{
				StartTime:        "09:00",
				EndTime:          "12:00",
				MaxAppointments:  1,
				AppointmentTypes: []string{models.AppointmentTypeAll},
			}},
		},
	}
}

func newTestService(store *stubStore, locker *stubLocker) *Service {
	svc := NewService(store, locker)
	svc.now = func() time.Time {
		return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestAvailableSlots(t *testing.T) {
	store := &stubStore{schedule: mondayOnly(), settings: testSettings()}
	svc := newTestService(store, &stubLocker{available: true})

	// 2026-09-07 is a Monday.
	slots, err := svc.AvailableSlots(context.Background(), &api.AvailableSlotsRequest{
		TrainerID: "t1",
		Date:      "2026-09-07",
		Duration:  60,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}

	want := time.Date(2026, 9, 7, 9, 0, 0, 0, time.UTC)
	for i, slot := range slots {
		if !slot.Start.Equal(want) {
			t.Errorf("slot %d: start = %v, want %v", i, slot.Start, want)
		}
		if !slot.End.Equal(want.Add(time.Hour)) {
			t.Errorf("slot %d: end = %v, want %v", i, slot.End, want.Add(time.Hour))
		}
		want = want.Add(time.Hour)
	}
}

func TestAvailableSlotsDefaultDuration(t *testing.T) {
	store := &stubStore{schedule: mondayOnly(), settings: testSettings()}
	svc := newTestService(store, &stubLocker{available: true})

	slots, err := svc.AvailableSlots(context.Background(), &api.AvailableSlotsRequest{
		TrainerID: "t1",
		Date:      "2026-09-07",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 3 {
		t.Fatalf("expected 3 slots with default duration, got %d", len(slots))
	}
}

func TestAvailableSlotsHoliday(t *testing.T) {
	store := &stubStore{
		schedule: mondayOnly(),
		settings: testSettings(),
		specialDays: []models.SpecialDay{{
			Date: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
			Type: models.SpecialDayHoliday,
		}},
	}
	svc := newTestService(store, &stubLocker{available: true})

	slots, err := svc.AvailableSlots(context.Background(), &api.AvailableSlotsRequest{
		TrainerID: "t1",
		Date:      "2026-09-07",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(slots) != 0 {
		t.Fatalf("expected no slots on a holiday, got %d", len(slots))
	}
}

func TestGetSettingsFallsBackToDefaults(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store, &stubLocker{available: true})

	settings, err := svc.GetSettings(context.Background(), "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.Timezone != "UTC" {
		t.Errorf("timezone = %q, want UTC", settings.Timezone)
	}
	if settings.DefaultDuration != 60 {
		t.Errorf("default_duration = %d, want 60", settings.DefaultDuration)
	}
	if settings.SlotIncrement != 30 {
		t.Errorf("slot_increment = %d, want 30", settings.SlotIncrement)
	}
}

func TestPutSettingsRejectsBadTimezone(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store, &stubLocker{available: true})

	_, err := svc.PutSettings(context.Background(), "t1", &api.SettingsRequest{
		Timezone:        "Mars/Olympus",
		DefaultDuration: 60,
		SlotIncrement:   30,
	})
	if !errors.Is(err, response.ErrBadTimezone) {
		t.Fatalf("expected ErrBadTimezone, got %v", err)
	}
	if store.savedSettings != nil {
		t.Fatal("settings must not be saved on validation failure")
	}
}

func TestPutSettingsRejectsInvertedLunch(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store, &stubLocker{available: true})

	_, err := svc.PutSettings(context.Background(), "t1", &api.SettingsRequest{
		Timezone:        "Europe/Paris",
		DefaultDuration: 60,
		SlotIncrement:   30,
		LunchBreak: api.LunchBreak{
			Enabled:   true,
			StartTime: "13:00",
			EndTime:   "12:00",
		},
	})
	if !errors.Is(err, response.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPutScheduleRejectsBadSlot(t *testing.T) {
	store := &stubStore{settings: testSettings()}
	svc := newTestService(store, &stubLocker{available: true})

	// 30-minute slot against a 60-minute increment.
	_, fieldErrs, err := svc.PutSchedule(context.Background(), "t1", &api.WeeklyScheduleRequest{
		Days: map[string]api.DaySchedule{
			"monday": {
				Enabled: true,
				Slots: []api.TimeSlot{{
					StartTime:        "09:00",
					EndTime:          "09:30",
					MaxAppointments:  1,
					AppointmentTypes: []string{"all"},
				}},
			},
		},
	})
	if !errors.Is(err, response.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(fieldErrs) == 0 {
		t.Fatal("expected field errors")
	}
	if store.savedSchedule != nil {
		t.Fatal("schedule must not be saved on validation failure")
	}
}

func TestPutScheduleRejectsUnknownWeekday(t *testing.T) {
	store := &stubStore{settings: testSettings()}
	svc := newTestService(store, &stubLocker{available: true})

	_, _, err := svc.PutSchedule(context.Background(), "t1", &api.WeeklyScheduleRequest{
		Days: map[string]api.DaySchedule{
			"someday": {Enabled: true},
		},
	})
	if !errors.Is(err, response.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestPutBlockedTimesRequiresEndDate(t *testing.T) {
	store := &stubStore{settings: testSettings()}
	svc := newTestService(store, &stubLocker{available: true})

	_, fieldErrs, err := svc.PutBlockedTimes(context.Background(), "t1", &api.BlockedTimesRequest{
		BlockedTimes: []api.BlockedTime{{
			StartDate: "2026-09-07",
			StartTime: "14:00",
			EndTime:   "15:00",
			Recurring: false,
		}},
	})
	if !errors.Is(err, response.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(fieldErrs) != 1 || fieldErrs[0].Field != "end_date" {
		t.Fatalf("expected end_date field error, got %+v", fieldErrs)
	}
	if store.savedBlocks != nil {
		t.Fatal("blocks must not be saved on validation failure")
	}
}

func TestPutBlockedTimesRecurringOpenEnded(t *testing.T) {
	store := &stubStore{settings: testSettings()}
	svc := newTestService(store, &stubLocker{available: true})

	resp, fieldErrs, err := svc.PutBlockedTimes(context.Background(), "t1", &api.BlockedTimesRequest{
		BlockedTimes: []api.BlockedTime{{
			StartDate:         "2026-09-07",
			StartTime:         "14:00",
			EndTime:           "15:00",
			Recurring:         true,
			RecurrencePattern: "weekly",
		}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v (field errors %+v)", err, fieldErrs)
	}
	if len(resp.BlockedTimes) != 1 {
		t.Fatalf("expected 1 block back, got %d", len(resp.BlockedTimes))
	}
	if resp.BlockedTimes[0].EndDate != "" {
		t.Errorf("open-ended block must come back without end_date, got %q", resp.BlockedTimes[0].EndDate)
	}
}

func TestCheckConflictsReportsOverlap(t *testing.T) {
	existing := &models.Appointment{
		ID:             "appt-9",
		TrainerID:      "t1",
		Start:          time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC),
		End:            time.Date(2026, 9, 7, 11, 30, 0, 0, time.UTC),
		Status:         models.AppointmentScheduled,
		RecurrenceType: models.RecurrenceNone,
	}
	store := &stubStore{
		schedule:   mondayOnly(),
		settings:   testSettings(),
		candidates: []*models.Appointment{existing},
	}
	svc := newTestService(store, &stubLocker{available: true})

	resp, err := svc.CheckConflicts(context.Background(), &api.ConflictCheckRequest{
		TrainerID: "t1",
		Start:     "2026-09-07T10:00:00Z",
		End:       "2026-09-07T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(resp.Conflicts))
	}
	if resp.Conflicts[0].AppointmentID != "appt-9" {
		t.Errorf("conflict id = %q, want appt-9", resp.Conflicts[0].AppointmentID)
	}
	if !resp.Conflicts[0].TrainerOverlap {
		t.Error("expected trainer overlap")
	}
	if len(resp.Suggestions) == 0 {
		t.Error("expected same-day suggestions alongside the conflict")
	}
}

func TestCheckConflictsIgnoresCancelled(t *testing.T) {
	existing := &models.Appointment{
		ID:             "appt-9",
		TrainerID:      "t1",
		Start:          time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC),
		End:            time.Date(2026, 9, 7, 11, 30, 0, 0, time.UTC),
		Status:         models.AppointmentCancelled,
		RecurrenceType: models.RecurrenceNone,
	}
	store := &stubStore{settings: testSettings(), candidates: []*models.Appointment{existing}}
	svc := newTestService(store, &stubLocker{available: true})

	resp, err := svc.CheckConflicts(context.Background(), &api.ConflictCheckRequest{
		TrainerID: "t1",
		Start:     "2026-09-07T10:00:00Z",
		End:       "2026-09-07T11:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Conflicts) != 0 {
		t.Fatalf("cancelled appointments must not conflict, got %d", len(resp.Conflicts))
	}
}

func TestCheckConflictsMinAdvanceNotice(t *testing.T) {
	settings := testSettings()
	settings.MinAdvanceNotice = 48

	store := &stubStore{settings: settings}
	svc := newTestService(store, &stubLocker{available: true})

	// now is fixed at 2026-09-01 08:00 UTC, so a slot the same afternoon
	// breaks a 48-hour notice requirement.
	resp, err := svc.CheckConflicts(context.Background(), &api.ConflictCheckRequest{
		TrainerID: "t1",
		Start:     "2026-09-01T14:00:00Z",
		End:       "2026-09-01T15:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(resp.Violations))
	}
	if resp.Violations[0].Rule != "min_advance_notice" {
		t.Errorf("rule = %q, want min_advance_notice", resp.Violations[0].Rule)
	}
}

func TestCreateAppointmentBlockedByConflict(t *testing.T) {
	existing := &models.Appointment{
		ID:             "appt-9",
		TrainerID:      "t1",
		Start:          time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC),
		End:            time.Date(2026, 9, 7, 11, 30, 0, 0, time.UTC),
		Status:         models.AppointmentScheduled,
		RecurrenceType: models.RecurrenceNone,
	}
	store := &stubStore{settings: testSettings(), candidates: []*models.Appointment{existing}}
	locker := &stubLocker{available: true}
	svc := newTestService(store, locker)

	_, report, err := svc.CreateAppointment(context.Background(), &api.AppointmentRequest{
		TrainerID: "t1",
		Start:     "2026-09-07T10:00:00Z",
		End:       "2026-09-07T11:00:00Z",
	})
	if !errors.Is(err, response.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if report == nil || len(report.Conflicts) != 1 {
		t.Fatalf("expected a report with 1 conflict, got %+v", report)
	}
	if store.createdCount != 0 {
		t.Fatal("appointment must not be created on conflict")
	}
	if len(locker.unlocks) != 1 {
		t.Fatalf("lock must be released, unlocks = %d", len(locker.unlocks))
	}
}

func TestCreateAppointmentForceGate(t *testing.T) {
	existing := &models.Appointment{
		ID:             "appt-9",
		TrainerID:      "t1",
		Start:          time.Date(2026, 9, 7, 10, 30, 0, 0, time.UTC),
		End:            time.Date(2026, 9, 7, 11, 30, 0, 0, time.UTC),
		Status:         models.AppointmentScheduled,
		RecurrenceType: models.RecurrenceNone,
	}
	settings := testSettings()
	settings.AllowOverlapping = true

	req := &api.AppointmentRequest{
		TrainerID: "t1",
		Start:     "2026-09-07T10:00:00Z",
		End:       "2026-09-07T11:00:00Z",
	}

	// Overlapping allowed but not confirmed: still blocked with the report.
	store := &stubStore{settings: settings, candidates: []*models.Appointment{existing}}
	svc := newTestService(store, &stubLocker{available: true})

	_, report, err := svc.CreateAppointment(context.Background(), req)
	if !errors.Is(err, response.ErrConflict) {
		t.Fatalf("expected ErrConflict without force, got %v", err)
	}
	if report == nil || len(report.Conflicts) != 1 {
		t.Fatalf("expected a report with 1 conflict, got %+v", report)
	}

	// With force the conflict gate opens and the booking proceeds to the
	// store (which fails here, but not with a conflict).
	req.Force = true
	_, report, err = svc.CreateAppointment(context.Background(), req)
	if errors.Is(err, response.ErrConflict) {
		t.Fatalf("force must open the conflict gate, got %v", err)
	}
	if report != nil {
		t.Fatalf("no report expected past the gate, got %+v", report)
	}
}

func TestCreateAppointmentLocked(t *testing.T) {
	store := &stubStore{settings: testSettings()}
	locker := &stubLocker{available: false}
	svc := newTestService(store, locker)

	_, _, err := svc.CreateAppointment(context.Background(), &api.AppointmentRequest{
		TrainerID: "t1",
		Start:     "2026-09-07T10:00:00Z",
		End:       "2026-09-07T11:00:00Z",
	})
	if !errors.Is(err, response.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if len(locker.locks) != 1 || locker.locks[0] != "trainer:t1" {
		t.Fatalf("expected a single trainer:t1 lock attempt, got %v", locker.locks)
	}
}

func TestCreateAppointmentRejectsInvertedRange(t *testing.T) {
	store := &stubStore{settings: testSettings()}
	svc := newTestService(store, &stubLocker{available: true})

	_, _, err := svc.CreateAppointment(context.Background(), &api.AppointmentRequest{
		TrainerID: "t1",
		Start:     "2026-09-07T11:00:00Z",
		End:       "2026-09-07T10:00:00Z",
	})
	if !errors.Is(err, response.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDeleteAppointmentNotFound(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store, &stubLocker{available: true})

	err := svc.DeleteAppointment(context.Background(), "missing")
	if !errors.Is(err, response.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
