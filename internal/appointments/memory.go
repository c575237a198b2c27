package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
)

// InMemoryRepository is a map-backed Repository for tests and local
// development. It enforces the same optimistic versioning and reminder
// claim semantics as the postgres store.
type InMemoryRepository struct {
	mu    sync.RWMutex
	appts map[uuid.UUID]*Appointment
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{appts: make(map[uuid.UUID]*Appointment)}
}

func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.appts[appt.ID]; exists {
		return apperrors.Conflict("appointment %s already exists", appt.ID)
	}
	cp := *appt
	r.appts[appt.ID] = &cp
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.appts[id]
	if !ok {
		return nil, apperrors.NotFound("appointment %s not found", id)
	}
	cp := *appt
	return &cp, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.appts[appt.ID]
	if !ok {
		return apperrors.NotFound("appointment %s not found", appt.ID)
	}
	if stored.Version != appt.Version {
		return apperrors.Conflict("appointment %s was modified concurrently", appt.ID)
	}
	appt.Version++
	cp := *appt
	r.appts[appt.ID] = &cp
	return nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appts[id]; !ok {
		return apperrors.NotFound("appointment %s not found", id)
	}
	delete(r.appts, id)
	return nil
}

func (r *InMemoryRepository) ListCompletedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*Appointment
	for _, appt := range r.appts {
		if appt.Status == StatusCompleted && appt.Subject.IsOwnedBy(ownerID) {
			cp := *appt
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (r *InMemoryRepository) DueForReminder(ctx context.Context, kind ReminderKind, now time.Time, window time.Duration) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*Appointment
	for _, appt := range r.appts {
		if appt.Status != StatusPending && appt.Status != StatusAccepted {
			continue
		}
		sent := appt.Reminder24hSent
		if kind == Reminder1h {
			sent = appt.Reminder1hSent
		}
		if sent {
			continue
		}
		start, err := startInstant(appt)
		if err != nil {
			continue
		}
		if !start.Before(now) && start.Before(now.Add(window)) {
			cp := *appt
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (r *InMemoryRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, kind ReminderKind) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.appts[id]
	if !ok {
		return false, apperrors.NotFound("appointment %s not found", id)
	}
	switch kind {
	case Reminder24h:
		if appt.Reminder24hSent {
			return false, nil
		}
		appt.Reminder24hSent = true
	case Reminder1h:
		if appt.Reminder1hSent {
			return false, nil
		}
		appt.Reminder1hSent = true
	}
	return true, nil
}

func startInstant(appt *Appointment) (time.Time, error) {
	t, err := time.Parse("15:04", appt.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	d := appt.Date
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
