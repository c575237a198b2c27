package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetcare/vetclinic-platform/internal/clinic"
)

type fakeEmailSender struct {
	sent []EmailMessage
	err  error
}

func (f *fakeEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeConfigStore struct {
	cfg *clinic.Config
	err error
}

func (f *fakeConfigStore) Get(ctx context.Context, clinicID string) (*clinic.Config, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cfg, nil
}

func testEvent(kind EventKind) AppointmentEvent {
	return AppointmentEvent{
		Kind:          kind,
		ClinicID:      "clinic-1",
		AppointmentID: "appt-1",
		PetName:       "Rex",
		OwnerName:     "Jamie",
		OwnerEmail:    "jamie@example.com",
		ServiceName:   "Rabies vaccination",
		Date:          time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime:     "09:00",
	}
}

func TestNotifyClinicSendsToRecipients(t *testing.T) {
	cfg := clinic.DefaultConfig("clinic-1")
	cfg.Name = "Happy Paws"
	cfg.Notifications.EmailRecipients = []string{"a@clinic.com", "b@clinic.com"}

	email := &fakeEmailSender{}
	svc := NewService(email, &fakeConfigStore{cfg: cfg}, nil)

	err := svc.NotifyClinic(context.Background(), testEvent(EventBooked))
	require.NoError(t, err)
	require.Len(t, email.sent, 2)
	assert.Contains(t, email.sent[0].Subject, "Rex")
	assert.Contains(t, email.sent[0].Body, "Rabies vaccination")
	assert.Contains(t, email.sent[0].Body, "Happy Paws")
}

func TestNotifyClinicRespectsPreferences(t *testing.T) {
	cfg := clinic.DefaultConfig("clinic-1")
	cfg.Notifications.EmailRecipients = []string{"a@clinic.com"}
	cfg.Notifications.NotifyOnCancellation = false

	email := &fakeEmailSender{}
	svc := NewService(email, &fakeConfigStore{cfg: cfg}, nil)

	err := svc.NotifyClinic(context.Background(), testEvent(EventCancelled))
	require.NoError(t, err)
	assert.Empty(t, email.sent)
}

func TestNotifyClinicConfigError(t *testing.T) {
	email := &fakeEmailSender{}
	svc := NewService(email, &fakeConfigStore{err: errors.New("redis down")}, nil)

	err := svc.NotifyClinic(context.Background(), testEvent(EventBooked))
	assert.Error(t, err)
}

func TestNotifyClinicSendFailure(t *testing.T) {
	cfg := clinic.DefaultConfig("clinic-1")
	cfg.Notifications.EmailRecipients = []string{"a@clinic.com"}

	email := &fakeEmailSender{err: errors.New("smtp refused")}
	svc := NewService(email, &fakeConfigStore{cfg: cfg}, nil)

	err := svc.NotifyClinic(context.Background(), testEvent(EventBooked))
	assert.Error(t, err)
}

func TestNotifyOwnerReminder(t *testing.T) {
	email := &fakeEmailSender{}
	svc := NewService(email, nil, nil)

	err := svc.NotifyOwner(context.Background(), testEvent(EventReminder))
	require.NoError(t, err)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "jamie@example.com", email.sent[0].To)
	assert.Contains(t, email.sent[0].Subject, "Reminder")
	assert.Contains(t, email.sent[0].Body, "Tuesday, March 10 at 09:00")
}

func TestNotifyOwnerSkipsWithoutEmail(t *testing.T) {
	email := &fakeEmailSender{}
	svc := NewService(email, nil, nil)

	evt := testEvent(EventReminder)
	evt.OwnerEmail = ""
	require.NoError(t, svc.NotifyOwner(context.Background(), evt))
	assert.Empty(t, email.sent)
}

func TestNotifyOwnerRescheduleOutcome(t *testing.T) {
	email := &fakeEmailSender{}
	svc := NewService(email, nil, nil)

	evt := testEvent(EventRescheduleResponded)
	evt.Detail = "approved"
	require.NoError(t, svc.NotifyOwner(context.Background(), evt))
	require.Len(t, email.sent, 1)
	assert.Contains(t, email.sent[0].Subject, "approved")
}
