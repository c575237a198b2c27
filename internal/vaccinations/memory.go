package vaccinations

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
)

type pairKey struct {
	serviceID    uuid.UUID
	subServiceID uuid.UUID
}

// InMemoryRepository is a map-backed vaccination catalog for tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries map[pairKey]*Vaccination
}

// NewInMemoryRepository creates an empty in-memory vaccination catalog.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{entries: make(map[pairKey]*Vaccination)}
}

// Find returns the entry for a (service, sub-service) pair.
func (r *InMemoryRepository) Find(_ context.Context, serviceID, subServiceID uuid.UUID) (*Vaccination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[pairKey{serviceID, subServiceID}]
	if !ok {
		return nil, apperrors.NotFound("vaccination for sub-service %s not found", subServiceID)
	}
	cp := *v
	return &cp, nil
}

// ListByService returns every entry reconciled from a service.
func (r *InMemoryRepository) ListByService(_ context.Context, serviceID uuid.UUID) ([]Vaccination, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []Vaccination
	for key, v := range r.entries {
		if key.serviceID == serviceID {
			result = append(result, *v)
		}
	}
	return result, nil
}

// Upsert inserts or updates an entry keyed on (service, sub-service).
func (r *InMemoryRepository) Upsert(_ context.Context, v *Vaccination) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{v.ServiceID, v.SubServiceID}
	now := time.Now().UTC()
	if existing, ok := r.entries[key]; ok {
		existing.Name = v.Name
		existing.PetTypes = v.PetTypes
		existing.UpdatedAt = now
		*v = *existing
		return nil
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = now
	v.UpdatedAt = now
	cp := *v
	r.entries[key] = &cp
	return nil
}

// DeleteBySubService removes the entry for a (service, sub-service) pair.
func (r *InMemoryRepository) DeleteBySubService(_ context.Context, serviceID, subServiceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, pairKey{serviceID, subServiceID})
	return nil
}
