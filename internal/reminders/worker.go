// Package reminders runs the periodic sweep that dispatches 24-hour and
// 1-hour appointment reminders.
package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/appointments"
	"github.com/vetcare/vetclinic-platform/internal/notify"
	"github.com/vetcare/vetclinic-platform/internal/observability/metrics"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Clock supplies the current time, injectable for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Store is the appointment surface the sweep needs.
type Store interface {
	DueForReminder(ctx context.Context, kind appointments.ReminderKind, now time.Time, window time.Duration) ([]*appointments.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, kind appointments.ReminderKind) (bool, error)
}

// Notifier delivers the reminder to the pet owner.
type Notifier interface {
	NotifyOwner(ctx context.Context, evt notify.AppointmentEvent) error
}

// Config tunes the sweep cadence and lookahead windows.
type Config struct {
	Interval   time.Duration
	DayWindow  time.Duration
	HourWindow time.Duration
}

// Worker sweeps for upcoming appointments and dispatches reminders with
// mark-then-notify semantics per (appointment, kind).
type Worker struct {
	store    Store
	notifier Notifier
	clock    Clock
	cfg      Config
	metrics  *metrics.WorkflowMetrics
	logger   *logging.Logger
}

// NewWorker creates a reminder worker. clock and metrics may be nil.
func NewWorker(store Store, notifier Notifier, clock Clock, cfg Config, m *metrics.WorkflowMetrics, logger *logging.Logger) *Worker {
	if clock == nil {
		clock = systemClock{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.DayWindow <= 0 {
		cfg.DayWindow = 24 * time.Hour
	}
	if cfg.HourWindow <= 0 {
		cfg.HourWindow = time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Worker{
		store:    store,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("reminder worker started", "interval", w.cfg.Interval)
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker shutting down")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over both lookahead windows. Returns the number of
// reminders dispatched.
func (w *Worker) Sweep(ctx context.Context) int {
	start := w.clock.Now()
	sent := w.sweepKind(ctx, appointments.Reminder24h, w.cfg.DayWindow)
	sent += w.sweepKind(ctx, appointments.Reminder1h, w.cfg.HourWindow)
	w.metrics.ObserveSweepLatency(time.Since(start).Seconds())
	return sent
}

func (w *Worker) sweepKind(ctx context.Context, kind appointments.ReminderKind, window time.Duration) int {
	now := w.clock.Now()
	due, err := w.store.DueForReminder(ctx, kind, now, window)
	if err != nil {
		w.logger.Error("reminder sweep: list due", "error", err, "kind", kind)
		return 0
	}

	sent := 0
	for _, appt := range due {
		// Claim the flag first. Losing the claim means another sweep
		// already handled this reminder.
		claimed, err := w.store.MarkReminderSent(ctx, appt.ID, kind)
		if err != nil {
			w.logger.Error("reminder sweep: claim", "error", err, "appointment_id", appt.ID, "kind", kind)
			continue
		}
		if !claimed {
			continue
		}

		// A delivery failure does not unset the flag; there is no retry.
		if err := w.notifier.NotifyOwner(ctx, w.event(appt)); err != nil {
			w.metrics.ObserveReminder(string(kind), "failed")
			w.logger.Error("reminder sweep: notify", "error", err, "appointment_id", appt.ID, "kind", kind)
			continue
		}
		w.metrics.ObserveReminder(string(kind), "sent")
		w.logger.Info("reminder sent", "appointment_id", appt.ID, "kind", kind)
		sent++
	}
	return sent
}

func (w *Worker) event(appt *appointments.Appointment) notify.AppointmentEvent {
	evt := notify.AppointmentEvent{
		Kind:          notify.EventReminder,
		ClinicID:      appt.ClinicID.String(),
		AppointmentID: appt.ID.String(),
		Date:          appt.Date,
		StartTime:     appt.StartTime,
		EndTime:       appt.ExpectedEndTime,
	}
	if appt.Subject.Kind == appointments.SubjectExternal && appt.Subject.Snapshot != nil {
		evt.PetName = appt.Subject.Snapshot.Name
		evt.OwnerName = appt.Subject.Snapshot.OwnerName
		evt.OwnerEmail = appt.Subject.Snapshot.OwnerEmail
		evt.OwnerPhone = appt.Subject.Snapshot.OwnerPhone
	}
	return evt
}
