package vaccinations

import (
	"context"
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

// Repository is the vaccination catalog surface consumed by the sync
// reconciler and the dose engine.
type Repository interface {
	Find(ctx context.Context, serviceID, subServiceID uuid.UUID) (*Vaccination, error)
	ListByService(ctx context.Context, serviceID uuid.UUID) ([]Vaccination, error)
	Upsert(ctx context.Context, v *Vaccination) error
	DeleteBySubService(ctx context.Context, serviceID, subServiceID uuid.UUID) error
}

// Store provides postgres persistence for vaccination catalog entries.
// Uniqueness on (service_id, sub_service_id) is enforced by the schema.
type Store struct {
	db DB
}

// NewStore creates a vaccination store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const vaccinationColumns = `id, clinic_id, service_id, sub_service_id, name, pet_types,
	first_dose_age, protects_against, dose_count, dose_interval, is_required, created_at, updated_at`

// Find returns the entry for a (service, sub-service) pair.
func (s *Store) Find(ctx context.Context, serviceID, subServiceID uuid.UUID) (*Vaccination, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+vaccinationColumns+`
		FROM vaccinations WHERE service_id = $1 AND sub_service_id = $2`, serviceID, subServiceID)
	v, err := scanVaccination(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("vaccination for sub-service %s not found", subServiceID)
	}
	if err != nil {
		return nil, fmt.Errorf("vaccinations: find: %w", err)
	}
	return v, nil
}

// ListByService returns every entry reconciled from a service.
func (s *Store) ListByService(ctx context.Context, serviceID uuid.UUID) ([]Vaccination, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+vaccinationColumns+`
		FROM vaccinations WHERE service_id = $1 ORDER BY name`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("vaccinations: list by service: %w", err)
	}
	defer rows.Close()

	var result []Vaccination
	for rows.Next() {
		v, err := scanVaccination(rows)
		if err != nil {
			return nil, fmt.Errorf("vaccinations: scan: %w", err)
		}
		result = append(result, *v)
	}
	return result, rows.Err()
}

// Upsert inserts or updates an entry keyed on (service_id, sub_service_id).
func (s *Store) Upsert(ctx context.Context, v *Vaccination) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	_, err := s.db.Exec(ctx, `
		INSERT INTO vaccinations (id, clinic_id, service_id, sub_service_id, name, pet_types,
			first_dose_age, protects_against, dose_count, dose_interval, is_required, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (service_id, sub_service_id) DO UPDATE SET
			name = EXCLUDED.name,
			pet_types = EXCLUDED.pet_types,
			updated_at = EXCLUDED.updated_at`,
		v.ID, v.ClinicID, v.ServiceID, v.SubServiceID, v.Name, v.PetTypes,
		v.FirstDoseAge, v.ProtectsAgainst, v.DoseCount, v.DoseInterval, v.IsRequired,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("vaccinations: upsert: %w", err)
	}
	return nil
}

// DeleteBySubService removes the entry for a (service, sub-service) pair.
func (s *Store) DeleteBySubService(ctx context.Context, serviceID, subServiceID uuid.UUID) error {
	_, err := s.db.Exec(ctx, `
		DELETE FROM vaccinations WHERE service_id = $1 AND sub_service_id = $2`, serviceID, subServiceID)
	if err != nil {
		return fmt.Errorf("vaccinations: delete by sub-service: %w", err)
	}
	return nil
}

func scanVaccination(row pgx.Row) (*Vaccination, error) {
	var v Vaccination
	if err := row.Scan(
		&v.ID, &v.ClinicID, &v.ServiceID, &v.SubServiceID, &v.Name, &v.PetTypes,
		&v.FirstDoseAge, &v.ProtectsAgainst, &v.DoseCount, &v.DoseInterval, &v.IsRequired,
		&v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &v, nil
}
