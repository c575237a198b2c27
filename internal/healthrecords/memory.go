package healthrecords

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
)

type labKey struct {
	appointmentID uuid.UUID
	subServiceID  uuid.UUID
}

// InMemoryRepository is a map-backed record store for tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	records  map[uuid.UUID]*HealthRecord // keyed by appointment id
	labTests map[labKey]*LabTest

	// FailLabTests makes CreateLabTest fail, for partial-failure tests.
	FailLabTests bool
}

// NewInMemoryRepository creates an empty in-memory record store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records:  make(map[uuid.UUID]*HealthRecord),
		labTests: make(map[labKey]*LabTest),
	}
}

// GetByAppointment returns the record derived for an appointment.
func (r *InMemoryRepository) GetByAppointment(_ context.Context, appointmentID uuid.UUID) (*HealthRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[appointmentID]
	if !ok {
		return nil, apperrors.NotFound("health record for appointment %s not found", appointmentID)
	}
	cp := *rec
	return &cp, nil
}

// CreateRecord inserts a record unless one already exists.
func (r *InMemoryRepository) CreateRecord(_ context.Context, rec *HealthRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[rec.AppointmentID]; ok {
		return false, nil
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	r.records[rec.AppointmentID] = &cp
	return true, nil
}

// CreateLabTest inserts a lab test unless the pair already exists.
func (r *InMemoryRepository) CreateLabTest(_ context.Context, lt *LabTest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailLabTests {
		return apperrors.Conflict("lab test store unavailable")
	}
	key := labKey{lt.AppointmentID, lt.SubServiceID}
	if _, ok := r.labTests[key]; ok {
		return nil
	}
	now := time.Now().UTC()
	lt.CreatedAt = now
	lt.UpdatedAt = now
	cp := *lt
	r.labTests[key] = &cp
	return nil
}

// ListLabTests returns the lab tests spawned by an appointment.
func (r *InMemoryRepository) ListLabTests(_ context.Context, appointmentID uuid.UUID) ([]LabTest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []LabTest
	for key, lt := range r.labTests {
		if key.appointmentID == appointmentID {
			result = append(result, *lt)
		}
	}
	return result, nil
}
