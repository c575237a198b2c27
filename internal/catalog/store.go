package catalog

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

// Resolver looks up a service by id. Implemented by Store, Cache, and the
// in-memory repository.
type Resolver interface {
	Lookup(ctx context.Context, serviceID uuid.UUID) (*Service, error)
}

// Store provides persistence for the service catalog. Sub-services nest
// extras, so the tree is stored as a JSONB document per service.
type Store struct {
	db DB
}

// NewStore creates a catalog store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Upsert inserts or replaces a service definition.
func (s *Store) Upsert(ctx context.Context, svc *Service) error {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	now := time.Now().UTC()
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = now
	}
	svc.UpdatedAt = now

	subServices, err := json.Marshal(svc.SubServices)
	if err != nil {
		return fmt.Errorf("catalog: marshal sub-services: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO services (id, clinic_id, name, type, sub_services, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			sub_services = EXCLUDED.sub_services,
			updated_at = EXCLUDED.updated_at`,
		svc.ID, svc.ClinicID, svc.Name, string(svc.Type), subServices, svc.CreatedAt, svc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("catalog: upsert service: %w", err)
	}
	return nil
}

// Lookup returns the service with the given id.
func (s *Store) Lookup(ctx context.Context, serviceID uuid.UUID) (*Service, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, clinic_id, name, type, sub_services, created_at, updated_at
		FROM services WHERE id = $1`, serviceID)
	svc, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("service %s not found", serviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: lookup service: %w", err)
	}
	return svc, nil
}

// ListByClinic returns every service configured for a clinic.
func (s *Store) ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]Service, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, clinic_id, name, type, sub_services, created_at, updated_at
		FROM services WHERE clinic_id = $1 ORDER BY name`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("catalog: list by clinic: %w", err)
	}
	defer rows.Close()

	var result []Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan service: %w", err)
		}
		result = append(result, *svc)
	}
	return result, rows.Err()
}

// Delete removes a service definition.
func (s *Store) Delete(ctx context.Context, serviceID uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, serviceID)
	if err != nil {
		return fmt.Errorf("catalog: delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("service %s not found", serviceID)
	}
	return nil
}

func scanService(row pgx.Row) (*Service, error) {
	var svc Service
	var typ string
	var subServices []byte
	if err := row.Scan(&svc.ID, &svc.ClinicID, &svc.Name, &typ, &subServices, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		return nil, err
	}
	svc.Type = ServiceType(typ)
	if err := json.Unmarshal(subServices, &svc.SubServices); err != nil {
		return nil, fmt.Errorf("unmarshal sub-services: %w", err)
	}
	return &svc, nil
}
