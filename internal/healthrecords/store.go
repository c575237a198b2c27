package healthrecords

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

// Store provides postgres persistence for health records and lab tests.
// The schema enforces the one-record-per-appointment and one-test-per-
// (appointment, sub-service) invariants.
type Store struct {
	db DB
}

// NewStore creates a health record store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetByAppointment returns the record derived for an appointment.
func (s *Store) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*HealthRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, appointment_id, clinic_id, pet_id, pet_name, species, visit_date,
			services, vaccinations, lab_test_ids, follow_up_date, follow_up_notes,
			created_at, updated_at
		FROM health_records WHERE appointment_id = $1`, appointmentID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("health record for appointment %s not found", appointmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("healthrecords: get by appointment: %w", err)
	}
	return rec, nil
}

// CreateRecord inserts a record. The unique constraint on appointment_id
// turns a duplicate derivation into a no-op; the returned bool reports
// whether this call created the row.
func (s *Store) CreateRecord(ctx context.Context, rec *HealthRecord) (bool, error) {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	services, err := json.Marshal(rec.Services)
	if err != nil {
		return false, fmt.Errorf("healthrecords: marshal services: %w", err)
	}
	vaccs, err := json.Marshal(rec.Vaccinations)
	if err != nil {
		return false, fmt.Errorf("healthrecords: marshal vaccinations: %w", err)
	}
	labIDs, err := json.Marshal(rec.LabTestIDs)
	if err != nil {
		return false, fmt.Errorf("healthrecords: marshal lab test ids: %w", err)
	}

	tag, err := s.db.Exec(ctx, `
		INSERT INTO health_records (id, appointment_id, clinic_id, pet_id, pet_name, species,
			visit_date, services, vaccinations, lab_test_ids, follow_up_date, follow_up_notes,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (appointment_id) DO NOTHING`,
		rec.ID, rec.AppointmentID, rec.ClinicID, rec.PetID, rec.PetName, rec.Species,
		rec.VisitDate, services, vaccs, labIDs, rec.FollowUpDate, rec.FollowUpNotes,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("healthrecords: insert record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreateLabTest inserts a lab test. Duplicate (appointment, sub-service)
// pairs are absorbed by the unique constraint.
func (s *Store) CreateLabTest(ctx context.Context, lt *LabTest) error {
	now := time.Now().UTC()
	lt.CreatedAt = now
	lt.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO lab_tests (id, appointment_id, health_record_id, clinic_id, sub_service_id,
			sub_service_name, pet_id, pet_name, species, status, result, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (appointment_id, sub_service_id) DO NOTHING`,
		lt.ID, lt.AppointmentID, lt.HealthRecordID, lt.ClinicID, lt.SubServiceID,
		lt.SubServiceName, lt.PetID, lt.PetName, lt.Species, string(lt.Status), lt.Result,
		lt.CreatedAt, lt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("healthrecords: insert lab test: %w", err)
	}
	return nil
}

// ListLabTests returns the lab tests spawned by an appointment.
func (s *Store) ListLabTests(ctx context.Context, appointmentID uuid.UUID) ([]LabTest, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, appointment_id, health_record_id, clinic_id, sub_service_id, sub_service_name,
			pet_id, pet_name, species, status, result, created_at, updated_at
		FROM lab_tests WHERE appointment_id = $1 ORDER BY created_at`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("healthrecords: list lab tests: %w", err)
	}
	defer rows.Close()

	var result []LabTest
	for rows.Next() {
		var lt LabTest
		var status string
		if err := rows.Scan(&lt.ID, &lt.AppointmentID, &lt.HealthRecordID, &lt.ClinicID,
			&lt.SubServiceID, &lt.SubServiceName, &lt.PetID, &lt.PetName, &lt.Species,
			&status, &lt.Result, &lt.CreatedAt, &lt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("healthrecords: scan lab test: %w", err)
		}
		lt.Status = LabTestStatus(status)
		result = append(result, lt)
	}
	return result, rows.Err()
}

func scanRecord(row pgx.Row) (*HealthRecord, error) {
	var rec HealthRecord
	var services, vaccs, labIDs []byte
	if err := row.Scan(&rec.ID, &rec.AppointmentID, &rec.ClinicID, &rec.PetID, &rec.PetName,
		&rec.Species, &rec.VisitDate, &services, &vaccs, &labIDs, &rec.FollowUpDate,
		&rec.FollowUpNotes, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(services, &rec.Services); err != nil {
		return nil, fmt.Errorf("unmarshal services: %w", err)
	}
	if err := json.Unmarshal(vaccs, &rec.Vaccinations); err != nil {
		return nil, fmt.Errorf("unmarshal vaccinations: %w", err)
	}
	if err := json.Unmarshal(labIDs, &rec.LabTestIDs); err != nil {
		return nil, fmt.Errorf("unmarshal lab test ids: %w", err)
	}
	return &rec, nil
}
