package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetcare/vetclinic-platform/internal/appointments"
	"github.com/vetcare/vetclinic-platform/internal/notify"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type fakeNotifier struct {
	events []notify.AppointmentEvent
	err    error
}

func (f *fakeNotifier) NotifyOwner(ctx context.Context, evt notify.AppointmentEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, evt)
	return nil
}

type recordingSender struct {
	sent []notify.EmailMessage
}

func (r *recordingSender) Send(ctx context.Context, msg notify.EmailMessage) error {
	r.sent = append(r.sent, msg)
	return nil
}

func seedAppointment(t *testing.T, repo *appointments.InMemoryRepository, start time.Time) *appointments.Appointment {
	t.Helper()
	appt := &appointments.Appointment{
		ID: uuid.New(),
		Subject: appointments.NewExternalSubject(appointments.PetSnapshot{
			Name:       "Rex",
			Species:    "dog",
			OwnerName:  "Sam",
			OwnerEmail: "sam@example.com",
		}),
		ClinicID: uuid.New(),
		Date:     time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		StartTime: start.Format("15:04"),
		Status:   appointments.StatusAccepted,
		Version:  1,
	}
	require.NoError(t, repo.Create(context.Background(), appt))
	return appt
}

func TestSweepDispatchesBothWindows(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	clock := &fakeClock{now: time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC)}
	notifier := &fakeNotifier{}

	// 30 minutes out: inside both windows, gets 24h and 1h reminders.
	soon := seedAppointment(t, repo, clock.now.Add(30*time.Minute))
	// 10 hours out: only the 24h window.
	later := seedAppointment(t, repo, clock.now.Add(10*time.Hour))

	w := NewWorker(repo, notifier, clock, Config{}, nil, nil)
	sent := w.Sweep(context.Background())
	assert.Equal(t, 3, sent)

	kinds := map[string]int{}
	for _, evt := range notifier.events {
		kinds[evt.AppointmentID]++
	}
	assert.Equal(t, 2, kinds[soon.ID.String()])
	assert.Equal(t, 1, kinds[later.ID.String()])
}

func TestSweepDeliversToSnapshotEmail(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	clock := &fakeClock{now: time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC)}
	sender := &recordingSender{}
	seedAppointment(t, repo, clock.now.Add(10*time.Hour))

	w := NewWorker(repo, notify.NewService(sender, nil, nil), clock, Config{}, nil, nil)
	assert.Equal(t, 1, w.Sweep(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "sam@example.com", sender.sent[0].To)
	assert.Equal(t, "Sam", sender.sent[0].ToName)
	assert.Contains(t, sender.sent[0].Subject, "Rex")
}

func TestSweepIsIdempotentAcrossTicks(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	clock := &fakeClock{now: time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC)}
	notifier := &fakeNotifier{}
	seedAppointment(t, repo, clock.now.Add(30*time.Minute))

	w := NewWorker(repo, notifier, clock, Config{}, nil, nil)
	assert.Equal(t, 2, w.Sweep(context.Background()))
	assert.Equal(t, 0, w.Sweep(context.Background()))
	assert.Len(t, notifier.events, 2)
}

func TestSweepSkipsAppointmentsOutsideWindow(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	clock := &fakeClock{now: time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC)}
	notifier := &fakeNotifier{}
	seedAppointment(t, repo, clock.now.Add(48*time.Hour))

	w := NewWorker(repo, notifier, clock, Config{}, nil, nil)
	assert.Equal(t, 0, w.Sweep(context.Background()))
}

func TestSweepDeliveryFailureDoesNotRetry(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	clock := &fakeClock{now: time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC)}
	notifier := &fakeNotifier{err: errors.New("mail down")}
	appt := seedAppointment(t, repo, clock.now.Add(10*time.Hour))

	w := NewWorker(repo, notifier, clock, Config{}, nil, nil)
	assert.Equal(t, 0, w.Sweep(context.Background()))

	// The flag stays claimed; the failed reminder is not re-sent.
	notifier.err = nil
	assert.Equal(t, 0, w.Sweep(context.Background()))

	stored, err := repo.Get(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.True(t, stored.Reminder24hSent)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	w := NewWorker(repo, &fakeNotifier{}, nil, Config{Interval: 5 * time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
