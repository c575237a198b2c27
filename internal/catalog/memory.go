package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
)

// InMemoryRepository is a map-backed catalog for tests and local runs.
type InMemoryRepository struct {
	mu       sync.RWMutex
	services map[uuid.UUID]*Service
}

// NewInMemoryRepository creates an empty in-memory catalog.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{services: make(map[uuid.UUID]*Service)}
}

// Upsert inserts or replaces a service definition.
func (r *InMemoryRepository) Upsert(_ context.Context, svc *Service) error {
	if svc.ID == uuid.Nil {
		svc.ID = uuid.New()
	}
	now := time.Now().UTC()
	if svc.CreatedAt.IsZero() {
		svc.CreatedAt = now
	}
	svc.UpdatedAt = now

	cp := *svc
	r.mu.Lock()
	r.services[svc.ID] = &cp
	r.mu.Unlock()
	return nil
}

// Lookup returns the service with the given id.
func (r *InMemoryRepository) Lookup(_ context.Context, serviceID uuid.UUID) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[serviceID]
	if !ok {
		return nil, apperrors.NotFound("service %s not found", serviceID)
	}
	cp := *svc
	return &cp, nil
}

// ListByClinic returns every service configured for a clinic.
func (r *InMemoryRepository) ListByClinic(_ context.Context, clinicID uuid.UUID) ([]Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Service
	for _, svc := range r.services {
		if svc.ClinicID == clinicID {
			result = append(result, *svc)
		}
	}
	return result, nil
}

// Delete removes a service definition.
func (r *InMemoryRepository) Delete(_ context.Context, serviceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[serviceID]; !ok {
		return apperrors.NotFound("service %s not found", serviceID)
	}
	delete(r.services, serviceID)
	return nil
}
