package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"availability-service/internal/models"
	"availability-service/pkg/response"

	"github.com/lib/pq"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

func (s *Storage) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// #### weekly schedule ####

func (s *Storage) GetSchedule(ctx context.Context, trainerID string) (models.WeeklySchedule, error) {
	const op = "storage.postgres.GetSchedule"

	schedule := models.WeeklySchedule{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT weekday, enabled FROM schedule_days WHERE trainer_id=$1`, trainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var weekday int
		var enabled bool
		if err := rows.Scan(&weekday, &enabled); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		schedule[time.Weekday(weekday)] = models.DaySchedule{Enabled: enabled}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slotRows, err := s.db.QueryContext(ctx,
		`SELECT id, weekday, start_time, end_time, max_appointments, appointment_types
		FROM schedule_slots WHERE trainer_id=$1
		ORDER BY weekday, start_time`, trainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var slot models.TimeSlot
		var weekday int
		if err := slotRows.Scan(&slot.ID, &weekday, &slot.StartTime, &slot.EndTime,
			&slot.MaxAppointments, pq.Array(&slot.AppointmentTypes)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		day := schedule[time.Weekday(weekday)]
		day.Slots = append(day.Slots, slot)
		schedule[time.Weekday(weekday)] = day
	}
	if err := slotRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return schedule, nil
}

// PutSchedule replaces the trainer's weekly schedule in one transaction.
func (s *Storage) PutSchedule(ctx context.Context, trainerID string, schedule models.WeeklySchedule) error {
	const op = "storage.postgres.PutSchedule"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_slots WHERE trainer_id=$1`, trainerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_days WHERE trainer_id=$1`, trainerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for weekday, day := range schedule {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_days (trainer_id, weekday, enabled) VALUES ($1, $2, $3)`,
			trainerID, int(weekday), day.Enabled); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		for _, slot := range day.Slots {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schedule_slots
				(trainer_id, weekday, start_time, end_time, max_appointments, appointment_types)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				trainerID, int(weekday), slot.StartTime, slot.EndTime,
				slot.MaxAppointments, pq.Array(slot.AppointmentTypes)); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// #### settings ####

func (s *Storage) GetSettings(ctx context.Context, trainerID string) (*models.Settings, error) {
	const op = "storage.postgres.GetSettings"

	var settings models.Settings

	err := s.db.QueryRowContext(ctx,
		`SELECT timezone, default_duration, buffer_time, min_advance_notice,
		max_advance_booking, slot_increment, allow_overlapping,
		max_daily_appointments, max_weekly_appointments,
		lunch_enabled, lunch_start, lunch_end
		FROM availability_settings WHERE trainer_id=$1`, trainerID).
		Scan(
			&settings.Timezone,
			&settings.DefaultDuration,
			&settings.BufferTime,
			&settings.MinAdvanceNotice,
			&settings.MaxAdvanceBooking,
			&settings.SlotIncrement,
			&settings.AllowOverlapping,
			&settings.MaxDailyAppointments,
			&settings.MaxWeeklyAppointments,
			&settings.LunchBreak.Enabled,
			&settings.LunchBreak.StartTime,
			&settings.LunchBreak.EndTime,
		)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &settings, nil
}

func (s *Storage) PutSettings(ctx context.Context, trainerID string, settings *models.Settings) error {
	const op = "storage.postgres.PutSettings"

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO availability_settings
		(trainer_id, timezone, default_duration, buffer_time, min_advance_notice,
		max_advance_booking, slot_increment, allow_overlapping,
		max_daily_appointments, max_weekly_appointments,
		lunch_enabled, lunch_start, lunch_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (trainer_id)
		DO UPDATE SET
			timezone = EXCLUDED.timezone,
			default_duration = EXCLUDED.default_duration,
			buffer_time = EXCLUDED.buffer_time,
			min_advance_notice = EXCLUDED.min_advance_notice,
			max_advance_booking = EXCLUDED.max_advance_booking,
			slot_increment = EXCLUDED.slot_increment,
			allow_overlapping = EXCLUDED.allow_overlapping,
			max_daily_appointments = EXCLUDED.max_daily_appointments,
			max_weekly_appointments = EXCLUDED.max_weekly_appointments,
			lunch_enabled = EXCLUDED.lunch_enabled,
			lunch_start = EXCLUDED.lunch_start,
			lunch_end = EXCLUDED.lunch_end`,
		trainerID,
		settings.Timezone,
		settings.DefaultDuration,
		settings.BufferTime,
		settings.MinAdvanceNotice,
		settings.MaxAdvanceBooking,
		settings.SlotIncrement,
		settings.AllowOverlapping,
		settings.MaxDailyAppointments,
		settings.MaxWeeklyAppointments,
		settings.LunchBreak.Enabled,
		settings.LunchBreak.StartTime,
		settings.LunchBreak.EndTime,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// #### special days ####

func (s *Storage) GetSpecialDays(ctx context.Context, trainerID string) ([]models.SpecialDay, error) {
	const op = "storage.postgres.GetSpecialDays"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, date, day_type, reason FROM special_days
		WHERE trainer_id=$1 ORDER BY date`, trainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var days []models.SpecialDay
	index := map[string]int{}

	for rows.Next() {
		var day models.SpecialDay
		if err := rows.Scan(&day.ID, &day.Date, &day.Type, &day.Reason); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		index[day.ID] = len(days)
		days = append(days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slotRows, err := s.db.QueryContext(ctx,
		`SELECT sds.special_day_id, sds.id, sds.start_time, sds.end_time,
		sds.max_appointments, sds.appointment_types
		FROM special_day_slots sds
		JOIN special_days sd ON sd.id = sds.special_day_id
		WHERE sd.trainer_id=$1
		ORDER BY sds.start_time`, trainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer slotRows.Close()

	for slotRows.Next() {
		var dayID string
		var slot models.TimeSlot
		if err := slotRows.Scan(&dayID, &slot.ID, &slot.StartTime, &slot.EndTime,
			&slot.MaxAppointments, pq.Array(&slot.AppointmentTypes)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if i, ok := index[dayID]; ok {
			days[i].Slots = append(days[i].Slots, slot)
		}
	}
	if err := slotRows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return days, nil
}

func (s *Storage) PutSpecialDays(ctx context.Context, trainerID string, days []models.SpecialDay) error {
	const op = "storage.postgres.PutSpecialDays"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM special_day_slots WHERE special_day_id IN
		(SELECT id FROM special_days WHERE trainer_id=$1)`, trainerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM special_days WHERE trainer_id=$1`, trainerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, day := range days {
		var dayID string
		err := tx.QueryRowContext(ctx,
			`INSERT INTO special_days (trainer_id, date, day_type, reason)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			trainerID, day.Date, string(day.Type), day.Reason).Scan(&dayID)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		for _, slot := range day.Slots {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO special_day_slots
				(special_day_id, start_time, end_time, max_appointments, appointment_types)
				VALUES ($1, $2, $3, $4, $5)`,
				dayID, slot.StartTime, slot.EndTime,
				slot.MaxAppointments, pq.Array(slot.AppointmentTypes)); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// #### blocked times ####

func (s *Storage) GetBlockedTimes(ctx context.Context, trainerID string) ([]models.BlockedTime, error) {
	const op = "storage.postgres.GetBlockedTimes"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, start_date, end_date, start_time, end_time, reason, recurring, recurrence_pattern
		FROM blocked_times WHERE trainer_id=$1 ORDER BY start_date, start_time`, trainerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var blocks []models.BlockedTime
	for rows.Next() {
		var block models.BlockedTime
		var endDate sql.NullTime
		var pattern sql.NullString
		if err := rows.Scan(&block.ID, &block.StartDate, &endDate, &block.StartTime,
			&block.EndTime, &block.Reason, &block.Recurring, &pattern); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if endDate.Valid {
			block.EndDate = endDate.Time
		}
		if pattern.Valid {
			block.Pattern = models.RecurrencePattern(pattern.String)
		}
		blocks = append(blocks, block)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return blocks, nil
}

func (s *Storage) PutBlockedTimes(ctx context.Context, trainerID string, blocks []models.BlockedTime) error {
	const op = "storage.postgres.PutBlockedTimes"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocked_times WHERE trainer_id=$1`, trainerID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, block := range blocks {
		var endDate interface{}
		if !block.EndDate.IsZero() {
			endDate = block.EndDate
		}
		var pattern interface{}
		if block.Pattern != "" {
			pattern = string(block.Pattern)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO blocked_times
			(trainer_id, start_date, end_date, start_time, end_time, reason, recurring, recurrence_pattern)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			trainerID, block.StartDate, endDate, block.StartTime, block.EndTime,
			block.Reason, block.Recurring, pattern); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}

	return nil
}

// #### appointments ####

const appointmentColumns = `id, trainer_id, beneficiary_ids, start_time, end_time,
status, recurrence_type, recurrence_end_date, recurrence_days`

func (s *Storage) CreateAppointment(ctx context.Context, tx *sql.Tx, a *models.Appointment) (string, error) {
	const op = "storage.postgres.CreateAppointment"

	var id string
	err := tx.QueryRowContext(ctx,
		`INSERT INTO appointments
		(trainer_id, beneficiary_ids, start_time, end_time, status,
		recurrence_type, recurrence_end_date, recurrence_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		a.TrainerID,
		pq.Array(a.BeneficiaryIDs),
		a.Start,
		a.End,
		string(a.Status),
		string(a.RecurrenceType),
		a.RecurrenceEndDate,
		pq.Array(a.RecurrenceDays),
	).Scan(&id)
	if err != nil {
		sqlErr, ok := err.(*pq.Error)
		if ok && sqlErr.Code == "23503" {
			return "", fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (s *Storage) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	const op = "storage.postgres.GetAppointment"

	a, err := scanAppointment(s.db.QueryRowContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE id=$1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%s: %w", op, response.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return a, nil
}

func (s *Storage) UpdateAppointment(ctx context.Context, tx *sql.Tx, a *models.Appointment) error {
	const op = "storage.postgres.UpdateAppointment"

	res, err := tx.ExecContext(ctx,
		`UPDATE appointments SET
		trainer_id=$1, beneficiary_ids=$2, start_time=$3, end_time=$4, status=$5,
		recurrence_type=$6, recurrence_end_date=$7, recurrence_days=$8
		WHERE id=$9`,
		a.TrainerID,
		pq.Array(a.BeneficiaryIDs),
		a.Start,
		a.End,
		string(a.Status),
		string(a.RecurrenceType),
		a.RecurrenceEndDate,
		pq.Array(a.RecurrenceDays),
		a.ID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

func (s *Storage) DeleteAppointment(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteAppointment"

	res, err := s.db.ExecContext(ctx, `DELETE FROM appointments WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, response.ErrNotFound)
	}

	return nil
}

func (s *Storage) ListAppointments(ctx context.Context, trainerID *string, from, to *time.Time, status *string) ([]*models.Appointment, error) {
	const op = "storage.postgres.ListAppointments"

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	var args []interface{}

	if trainerID != nil {
		args = append(args, *trainerID)
		query += fmt.Sprintf(` AND trainer_id=$%d`, len(args))
	}
	if from != nil {
		args = append(args, *from)
		query += fmt.Sprintf(` AND end_time > $%d`, len(args))
	}
	if to != nil {
		args = append(args, *to)
		query += fmt.Sprintf(` AND start_time < $%d`, len(args))
	}
	if status != nil {
		args = append(args, *status)
		query += fmt.Sprintf(` AND status=$%d`, len(args))
	}

	query += ` ORDER BY start_time`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appointments, nil
}

// ListConflictCandidates returns appointments that could collide with a
// candidate: same trainer, or sharing a beneficiary. Recurring appointments
// are included regardless of window so the caller can expand them.
func (s *Storage) ListConflictCandidates(ctx context.Context, trainerID string, beneficiaryIDs []string, from, to time.Time) ([]*models.Appointment, error) {
	const op = "storage.postgres.ListConflictCandidates"

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		WHERE (trainer_id=$1 OR beneficiary_ids && $2)
		AND (recurrence_type NOT IN ('', 'none') OR (end_time > $3 AND start_time < $4))
		ORDER BY start_time`,
		trainerID, pq.Array(beneficiaryIDs), from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var appointments []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return appointments, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var a models.Appointment
	var recurrenceEnd sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.TrainerID,
		pq.Array(&a.BeneficiaryIDs),
		&a.Start,
		&a.End,
		&a.Status,
		&a.RecurrenceType,
		&recurrenceEnd,
		pq.Array(&a.RecurrenceDays),
	)
	if err != nil {
		return nil, err
	}

	if recurrenceEnd.Valid {
		t := recurrenceEnd.Time
		a.RecurrenceEndDate = &t
	}

	return &a, nil
}
