package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ReminderKind names one of the two lookahead windows.
type ReminderKind string

const (
	Reminder24h ReminderKind = "24h"
	Reminder1h  ReminderKind = "1h"
)

const apptColumns = `id, clinic_id, doctor_id, subject, selections, date, start_time,
	expected_end_time, status, source, cancellation_reason, reschedules,
	dose_selections, follow_up, estimated_cost, actual_cost,
	reminder_24h_sent, reminder_1h_sent, confirmed_at, version, created_at, updated_at`

// Store provides postgres persistence for appointments. The nested
// structures (subject, selections, reschedules, dose selections, follow
// up) live in jsonb columns; everything the workflow filters on is a
// plain column.
type Store struct {
	db DB
}

// NewStore creates an appointment store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Create inserts a new appointment.
func (s *Store) Create(ctx context.Context, appt *Appointment) error {
	subject, selections, reschedules, doses, followUp, err := marshalNested(appt)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO appointments (`+apptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		appt.ID, appt.ClinicID, appt.DoctorID, subject, selections, appt.Date, appt.StartTime,
		appt.ExpectedEndTime, string(appt.Status), string(appt.Source),
		nullIfEmpty(string(appt.CancellationReason)), reschedules, doses, followUp,
		appt.EstimatedCost, appt.ActualCost, appt.Reminder24hSent, appt.Reminder1hSent,
		appt.ConfirmedAt, appt.Version, appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// Get fetches one appointment by id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := s.db.QueryRow(ctx, `SELECT `+apptColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("appointment %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get: %w", err)
	}
	return appt, nil
}

// Update persists the appointment under optimistic versioning: the row is
// written only if its stored version still matches appt.Version, which is
// then bumped. A stale version returns a conflict.
func (s *Store) Update(ctx context.Context, appt *Appointment) error {
	subject, selections, reschedules, doses, followUp, err := marshalNested(appt)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET
			doctor_id = $1, subject = $2, selections = $3, date = $4, start_time = $5,
			expected_end_time = $6, status = $7, cancellation_reason = $8, reschedules = $9,
			dose_selections = $10, follow_up = $11, estimated_cost = $12, actual_cost = $13,
			confirmed_at = $14, version = version + 1, updated_at = $15
		WHERE id = $16 AND version = $17`,
		appt.DoctorID, subject, selections, appt.Date, appt.StartTime,
		appt.ExpectedEndTime, string(appt.Status), nullIfEmpty(string(appt.CancellationReason)),
		reschedules, doses, followUp, appt.EstimatedCost, appt.ActualCost,
		appt.ConfirmedAt, appt.UpdatedAt, appt.ID, appt.Version,
	)
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Conflict("appointment %s was modified concurrently", appt.ID)
	}
	appt.Version++
	return nil
}

// Delete removes an appointment.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("appointment %s not found", id)
	}
	return nil
}

// ListCompletedByOwner returns an owner's completed appointments ordered
// by visit date, oldest first.
func (s *Store) ListCompletedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+apptColumns+` FROM appointments
		WHERE status = $1 AND subject->>'owner_id' = $2
		ORDER BY date`, string(StatusCompleted), ownerID.String())
	if err != nil {
		return nil, fmt.Errorf("appointments: list completed: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// DueForReminder returns appointments whose start falls inside the
// lookahead window for the given kind and whose flag is still unset.
func (s *Store) DueForReminder(ctx context.Context, kind ReminderKind, now time.Time, window time.Duration) ([]*Appointment, error) {
	flag, err := reminderColumn(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+apptColumns+` FROM appointments
		WHERE status IN ($1, $2)
		  AND NOT `+flag+`
		  AND date + start_time::interval >= $3
		  AND date + start_time::interval < $4
		ORDER BY date, start_time`,
		string(StatusPending), string(StatusAccepted), now, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("appointments: due for reminder: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// MarkReminderSent sets the reminder flag if it is still unset, reporting
// whether this call won the claim. The conditional update keeps delivery
// idempotent across overlapping sweeps.
func (s *Store) MarkReminderSent(ctx context.Context, id uuid.UUID, kind ReminderKind) (bool, error) {
	flag, err := reminderColumn(kind)
	if err != nil {
		return false, err
	}
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET `+flag+` = TRUE, updated_at = $1
		WHERE id = $2 AND NOT `+flag, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("appointments: mark reminder sent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func reminderColumn(kind ReminderKind) (string, error) {
	switch kind {
	case Reminder24h:
		return "reminder_24h_sent", nil
	case Reminder1h:
		return "reminder_1h_sent", nil
	}
	return "", fmt.Errorf("appointments: unknown reminder kind %q", kind)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func marshalNested(appt *Appointment) (subject, selections, reschedules, doses, followUp []byte, err error) {
	if subject, err = json.Marshal(appt.Subject); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("appointments: marshal subject: %w", err)
	}
	if selections, err = json.Marshal(appt.Selections); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("appointments: marshal selections: %w", err)
	}
	if reschedules, err = json.Marshal(appt.Reschedules); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("appointments: marshal reschedules: %w", err)
	}
	if doses, err = json.Marshal(appt.DoseSelections); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("appointments: marshal dose selections: %w", err)
	}
	if followUp, err = json.Marshal(appt.FollowUp); err != nil {
		return nil, nil, nil, nil, nil, fmt.Errorf("appointments: marshal follow up: %w", err)
	}
	return subject, selections, reschedules, doses, followUp, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	var subject, selections, reschedules, doses, followUp []byte
	var status, source string
	var reason *string
	if err := row.Scan(&appt.ID, &appt.ClinicID, &appt.DoctorID, &subject, &selections,
		&appt.Date, &appt.StartTime, &appt.ExpectedEndTime, &status, &source, &reason,
		&reschedules, &doses, &followUp, &appt.EstimatedCost, &appt.ActualCost,
		&appt.Reminder24hSent, &appt.Reminder1hSent, &appt.ConfirmedAt, &appt.Version,
		&appt.CreatedAt, &appt.UpdatedAt); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	appt.Source = Source(source)
	if reason != nil {
		appt.CancellationReason = CancellationReason(*reason)
	}
	if err := json.Unmarshal(subject, &appt.Subject); err != nil {
		return nil, fmt.Errorf("unmarshal subject: %w", err)
	}
	if err := json.Unmarshal(selections, &appt.Selections); err != nil {
		return nil, fmt.Errorf("unmarshal selections: %w", err)
	}
	if err := json.Unmarshal(reschedules, &appt.Reschedules); err != nil {
		return nil, fmt.Errorf("unmarshal reschedules: %w", err)
	}
	if err := json.Unmarshal(doses, &appt.DoseSelections); err != nil {
		return nil, fmt.Errorf("unmarshal dose selections: %w", err)
	}
	if err := json.Unmarshal(followUp, &appt.FollowUp); err != nil {
		return nil, fmt.Errorf("unmarshal follow up: %w", err)
	}
	return &appt, nil
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	var result []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		result = append(result, appt)
	}
	return result, rows.Err()
}
