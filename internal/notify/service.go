package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vetcare/vetclinic-platform/internal/clinic"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// EventKind identifies what happened to an appointment.
type EventKind string

const (
	EventBooked              EventKind = "booked"
	EventCancelled           EventKind = "cancelled"
	EventRescheduleProposed  EventKind = "reschedule_proposed"
	EventRescheduleResponded EventKind = "reschedule_responded"
	EventCompleted           EventKind = "completed"
	EventReminder            EventKind = "reminder"
)

// AppointmentEvent carries everything a notification message needs.
// Callers fill in what they have; the message builders tolerate blanks.
type AppointmentEvent struct {
	Kind          EventKind
	ClinicID      string
	AppointmentID string

	PetName    string
	OwnerName  string
	OwnerEmail string
	OwnerPhone string

	ServiceName string
	Date        time.Time
	StartTime   string
	EndTime     string

	// Detail is extra context such as a cancellation reason or the
	// outcome of a reschedule request.
	Detail string
}

// ClinicConfigStore retrieves clinic configuration.
type ClinicConfigStore interface {
	Get(ctx context.Context, clinicID string) (*clinic.Config, error)
}

// Service delivers appointment notifications to clinic staff and pet owners.
type Service struct {
	email       EmailSender
	clinicStore ClinicConfigStore
	logger      *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, clinicStore ClinicConfigStore, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:       email,
		clinicStore: clinicStore,
		logger:      logger,
	}
}

// NotifyClinic sends a notification to clinic staff about an appointment
// event, honoring the clinic's notification preferences.
func (s *Service) NotifyClinic(ctx context.Context, evt AppointmentEvent) error {
	if s.clinicStore == nil {
		s.logger.Debug("notify: clinic store not configured, skipping")
		return nil
	}

	cfg, err := s.clinicStore.Get(ctx, evt.ClinicID)
	if err != nil {
		s.logger.Error("notify: failed to get clinic config", "error", err, "clinic_id", evt.ClinicID)
		return fmt.Errorf("notify: get clinic config: %w", err)
	}

	if !s.wantsEvent(cfg, evt.Kind) {
		s.logger.Debug("notify: event disabled for clinic", "clinic_id", evt.ClinicID, "kind", evt.Kind)
		return nil
	}

	recipients := cfg.Recipients()
	if !cfg.Notifications.EmailEnabled || s.email == nil || len(recipients) == 0 {
		return nil
	}

	subject, body := s.clinicMessage(cfg, evt)

	var errs []error
	for _, recipient := range recipients {
		msg := EmailMessage{
			To:      recipient,
			Subject: subject,
			Body:    body,
		}
		if err := s.email.Send(ctx, msg); err != nil {
			s.logger.Error("notify: failed to send email", "error", err, "to", recipient)
			errs = append(errs, err)
			continue
		}
		s.logger.Info("notify: clinic email sent", "to", recipient, "appointment_id", evt.AppointmentID, "kind", evt.Kind)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d notification(s) failed", len(errs))
	}
	return nil
}

// NotifyOwner sends an email to the pet owner. Used for appointment
// reminders and reschedule responses.
func (s *Service) NotifyOwner(ctx context.Context, evt AppointmentEvent) error {
	if s.email == nil {
		return nil
	}
	if evt.OwnerEmail == "" {
		s.logger.Debug("notify: owner has no email, skipping", "appointment_id", evt.AppointmentID)
		return nil
	}

	subject, body := s.ownerMessage(evt)
	msg := EmailMessage{
		To:      evt.OwnerEmail,
		ToName:  evt.OwnerName,
		Subject: subject,
		Body:    body,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: failed to send owner email", "error", err, "to", evt.OwnerEmail)
		return fmt.Errorf("notify: send owner email: %w", err)
	}
	s.logger.Info("notify: owner email sent", "to", evt.OwnerEmail, "appointment_id", evt.AppointmentID, "kind", evt.Kind)
	return nil
}

func (s *Service) wantsEvent(cfg *clinic.Config, kind EventKind) bool {
	switch kind {
	case EventBooked:
		return cfg.Notifications.NotifyOnBooking
	case EventCancelled:
		return cfg.Notifications.NotifyOnCancellation
	case EventRescheduleProposed, EventRescheduleResponded:
		return cfg.Notifications.NotifyOnReschedule
	case EventCompleted:
		return cfg.Notifications.NotifyOnCompletion
	default:
		return false
	}
}

func (s *Service) clinicMessage(cfg *clinic.Config, evt AppointmentEvent) (subject, body string) {
	pet := evt.PetName
	if pet == "" {
		pet = "a pet"
	}
	when := s.formatWhen(evt)

	var b strings.Builder
	switch evt.Kind {
	case EventBooked:
		subject = fmt.Sprintf("New appointment request - %s", pet)
		fmt.Fprintf(&b, "%s has requested an appointment for %s.\n", ownerOrDefault(evt), pet)
	case EventCancelled:
		subject = fmt.Sprintf("Appointment cancelled - %s", pet)
		fmt.Fprintf(&b, "The appointment for %s has been cancelled.\n", pet)
	case EventRescheduleProposed:
		subject = fmt.Sprintf("Reschedule requested - %s", pet)
		fmt.Fprintf(&b, "%s asked to reschedule the appointment for %s.\n", ownerOrDefault(evt), pet)
	case EventRescheduleResponded:
		subject = fmt.Sprintf("Reschedule %s - %s", evt.Detail, pet)
		fmt.Fprintf(&b, "The reschedule request for %s was %s.\n", pet, evt.Detail)
	case EventCompleted:
		subject = fmt.Sprintf("Visit completed - %s", pet)
		fmt.Fprintf(&b, "The visit for %s has been marked completed.\n", pet)
	default:
		subject = fmt.Sprintf("Appointment update - %s", pet)
		fmt.Fprintf(&b, "The appointment for %s was updated.\n", pet)
	}

	if evt.ServiceName != "" {
		fmt.Fprintf(&b, "\nService: %s", evt.ServiceName)
	}
	if when != "" {
		fmt.Fprintf(&b, "\nWhen: %s", when)
	}
	if evt.OwnerPhone != "" {
		fmt.Fprintf(&b, "\nOwner phone: %s", evt.OwnerPhone)
	}
	if evt.Detail != "" && evt.Kind != EventRescheduleResponded {
		fmt.Fprintf(&b, "\nNotes: %s", evt.Detail)
	}
	fmt.Fprintf(&b, "\n\n— %s", cfg.Name)
	return subject, b.String()
}

func (s *Service) ownerMessage(evt AppointmentEvent) (subject, body string) {
	pet := evt.PetName
	if pet == "" {
		pet = "your pet"
	}
	when := s.formatWhen(evt)

	switch evt.Kind {
	case EventReminder:
		subject = fmt.Sprintf("Reminder: upcoming appointment for %s", pet)
		body = fmt.Sprintf("This is a reminder that %s has an appointment", pet)
		if when != "" {
			body += " on " + when
		}
		body += "."
		if evt.ServiceName != "" {
			body += fmt.Sprintf("\n\nService: %s", evt.ServiceName)
		}
	case EventRescheduleResponded:
		subject = fmt.Sprintf("Your reschedule request was %s", evt.Detail)
		body = fmt.Sprintf("Your request to reschedule the appointment for %s was %s.", pet, evt.Detail)
		if when != "" {
			body += fmt.Sprintf("\n\nCurrent appointment: %s", when)
		}
	default:
		subject = fmt.Sprintf("Appointment update for %s", pet)
		body = fmt.Sprintf("The appointment for %s was updated.", pet)
		if when != "" {
			body += fmt.Sprintf("\n\nWhen: %s", when)
		}
	}
	return subject, body
}

func (s *Service) formatWhen(evt AppointmentEvent) string {
	if evt.Date.IsZero() {
		return ""
	}
	when := evt.Date.Format("Monday, January 2")
	if evt.StartTime != "" {
		when += " at " + evt.StartTime
	}
	return when
}

func ownerOrDefault(evt AppointmentEvent) string {
	if evt.OwnerName != "" {
		return evt.OwnerName
	}
	return "A pet owner"
}
