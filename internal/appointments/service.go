package appointments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
	"github.com/vetcare/vetclinic-platform/internal/catalog"
	"github.com/vetcare/vetclinic-platform/internal/healthrecords"
	"github.com/vetcare/vetclinic-platform/internal/notify"
	"github.com/vetcare/vetclinic-platform/internal/observability/metrics"
	"github.com/vetcare/vetclinic-platform/internal/scheduling"
	"github.com/vetcare/vetclinic-platform/internal/vaccinations"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Actor is the authenticated identity behind a request. Verification
// happens upstream; this package only enforces ownership and role gates.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Repository provides appointment persistence.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// Update persists appt if its Version still matches the stored row,
	// then bumps the version. A stale version yields a conflict error.
	Update(ctx context.Context, appt *Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListCompletedByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Appointment, error)
}

// HealthRecordDeriver builds the clinical record on completion.
type HealthRecordDeriver interface {
	Derive(ctx context.Context, in healthrecords.DeriveInput) (*healthrecords.HealthRecord, error)
}

// Notifier fans out appointment events. Callers treat it as
// fire-and-forget; failures are logged and never abort the operation.
type Notifier interface {
	NotifyClinic(ctx context.Context, evt notify.AppointmentEvent) error
	NotifyOwner(ctx context.Context, evt notify.AppointmentEvent) error
}

// Service orchestrates the appointment lifecycle.
type Service struct {
	repo     Repository
	catalog  catalog.Resolver
	calc     *scheduling.Calculator
	deriver  HealthRecordDeriver
	notifier Notifier
	metrics  *metrics.WorkflowMetrics
	logger   *logging.Logger
}

// NewService creates the appointment service. notifier, deriver and
// metrics may be nil; the corresponding side effects are skipped.
func NewService(repo Repository, cat catalog.Resolver, calc *scheduling.Calculator, deriver HealthRecordDeriver, notifier Notifier, m *metrics.WorkflowMetrics, logger *logging.Logger) *Service {
	if calc == nil {
		calc = scheduling.Default()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:     repo,
		catalog:  cat,
		calc:     calc,
		deriver:  deriver,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// SelectionInput is one requested service line, before catalog resolution.
type SelectionInput struct {
	ServiceID      uuid.UUID  `json:"service_id"`
	SubServiceID   uuid.UUID  `json:"sub_service_id"`
	ExtraServiceID *uuid.UUID `json:"extra_service_id,omitempty"`
}

// CreateInput carries a booking request.
type CreateInput struct {
	Subject        Subject                      `json:"subject"`
	ClinicID       uuid.UUID                    `json:"clinic_id"`
	DoctorID       *uuid.UUID                   `json:"doctor_id,omitempty"`
	Selections     []SelectionInput             `json:"selections"`
	Date           time.Time                    `json:"date"`
	StartTime      string                       `json:"start_time"`
	DoseSelections []vaccinations.DoseSelection `json:"dose_selections,omitempty"`
	FollowUp       FollowUp                     `json:"follow_up"`
}

// Create books a new appointment. Owner bookings start as pending_request,
// clinic bookings as pending.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*Appointment, error) {
	if !validRole(actor.Role) {
		return nil, apperrors.Unauthorized("unknown role %q", actor.Role)
	}
	if err := in.Subject.Validate(); err != nil {
		return nil, err
	}
	if actor.Role == RoleOwner && !in.Subject.IsOwnedBy(actor.ID) {
		return nil, apperrors.Unauthorized("owner may only book for their own pets")
	}
	if in.ClinicID == uuid.Nil {
		return nil, apperrors.Invalid("clinic_id is required")
	}
	if actor.Role == RoleClinic && actor.ID != in.ClinicID {
		return nil, apperrors.Unauthorized("clinic may only book into its own schedule")
	}
	if len(in.Selections) == 0 {
		return nil, apperrors.Invalid("at least one service selection is required")
	}
	if in.Date.IsZero() {
		return nil, apperrors.Invalid("date is required")
	}
	if _, err := scheduling.ParseClock(in.StartTime); err != nil {
		return nil, apperrors.Invalid("invalid start_time %q", in.StartTime)
	}

	selections, slots, err := s.resolveSelections(ctx, in.Selections)
	if err != nil {
		return nil, err
	}
	endTime, err := s.calc.EndTime(in.StartTime, slots)
	if err != nil {
		return nil, apperrors.Invalid("cannot schedule: %v", err)
	}

	source := SourceOwner
	status := StatusPendingRequest
	if actor.Role != RoleOwner {
		source = SourceVetAdded
		status = StatusPending
	}

	now := time.Now().UTC()
	appt := &Appointment{
		ID:              uuid.New(),
		Subject:         in.Subject,
		ClinicID:        in.ClinicID,
		DoctorID:        in.DoctorID,
		Selections:      selections,
		Date:            in.Date,
		StartTime:       in.StartTime,
		ExpectedEndTime: endTime,
		Status:          status,
		Source:          source,
		DoseSelections:  in.DoseSelections,
		FollowUp:        in.FollowUp,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	appt.EstimatedCost = appt.TotalCost()
	appt.ActualCost = appt.EstimatedCost

	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition("", string(status))
	s.logger.Info("appointment created", "appointment_id", appt.ID, "clinic_id", appt.ClinicID, "status", appt.Status, "source", appt.Source)

	s.fireClinicEvent(ctx, appt, notify.EventBooked, "")
	return appt, nil
}

// Get fetches one appointment, enforcing read access per role.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(actor, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// Confirm records the owner's confirmation. Status is unchanged; the
// clinic is notified.
func (s *Service) Confirm(ctx context.Context, actor Actor, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := Transition(appt.Status, actor.Role, ActionConfirm, appt.Status); err != nil {
		return nil, err
	}
	if !appt.Subject.IsOwnedBy(actor.ID) {
		return nil, apperrors.Unauthorized("appointment belongs to another owner")
	}

	now := time.Now().UTC()
	appt.ConfirmedAt = &now
	appt.UpdatedAt = now
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.logger.Info("appointment confirmed", "appointment_id", appt.ID)

	s.fireClinicEvent(ctx, appt, notify.EventBooked, "confirmed by owner")
	return appt, nil
}

// Cancel moves a non-terminal appointment to cancelled on behalf of the
// owner. The reason must come from the fixed enum.
func (s *Service) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason CancellationReason) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := Transition(appt.Status, actor.Role, ActionCancel, StatusCancelled)
	if err != nil {
		return nil, err
	}
	if !appt.Subject.IsOwnedBy(actor.ID) {
		return nil, apperrors.Unauthorized("appointment belongs to another owner")
	}
	if !ValidCancellationReason(reason) {
		return nil, apperrors.Invalid("invalid cancellation reason %q", reason)
	}

	prev := appt.Status
	appt.Status = next
	appt.CancellationReason = reason
	appt.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.metrics.ObserveTransition(string(prev), string(next))
	s.logger.Info("appointment cancelled", "appointment_id", appt.ID, "reason", reason)

	s.fireClinicEvent(ctx, appt, notify.EventCancelled, string(reason))
	return appt, nil
}

// UpdateInput is a clinic-side field patch. Nil fields are left untouched.
type UpdateInput struct {
	Date           *time.Time                    `json:"date,omitempty"`
	StartTime      *string                       `json:"start_time,omitempty"`
	DoctorID       *uuid.UUID                    `json:"doctor_id,omitempty"`
	Selections     *[]SelectionInput             `json:"selections,omitempty"`
	DoseSelections *[]vaccinations.DoseSelection `json:"dose_selections,omitempty"`
	FollowUp       *FollowUp                     `json:"follow_up,omitempty"`
	Status         *Status                       `json:"status,omitempty"`
}

// UpdateResult is the outcome of a clinic update. HealthRecord is set only
// when the update completed the appointment.
type UpdateResult struct {
	Appointment  *Appointment
	HealthRecord *healthrecords.HealthRecord
}

// Update applies a clinic patch. Setting status to completed triggers
// health record derivation as a side effect.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, in UpdateInput) (*UpdateResult, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prev := appt.Status
	target := appt.Status
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return nil, apperrors.Invalid("invalid status %q", *in.Status)
		}
		target = *in.Status
	}
	next, err := Transition(appt.Status, actor.Role, ActionSetStatus, target)
	if err != nil {
		return nil, err
	}
	if appt.ClinicID != actor.ID {
		return nil, apperrors.Unauthorized("appointment belongs to another clinic")
	}

	if in.Date != nil {
		appt.Date = *in.Date
	}
	if in.DoctorID != nil {
		appt.DoctorID = in.DoctorID
	}
	if in.StartTime != nil {
		if _, err := scheduling.ParseClock(*in.StartTime); err != nil {
			return nil, apperrors.Invalid("invalid start_time %q", *in.StartTime)
		}
		appt.StartTime = *in.StartTime
	}
	if in.Selections != nil {
		selections, _, err := s.resolveSelections(ctx, *in.Selections)
		if err != nil {
			return nil, err
		}
		appt.Selections = selections
		appt.EstimatedCost = appt.TotalCost()
		appt.ActualCost = appt.EstimatedCost
	}
	if in.DoseSelections != nil {
		appt.DoseSelections = *in.DoseSelections
	}
	if in.FollowUp != nil {
		appt.FollowUp = *in.FollowUp
	}

	// End time tracks the current services and start time.
	if in.StartTime != nil || in.Selections != nil {
		slots := s.slotsFor(ctx, appt.Selections)
		endTime, err := s.calc.EndTime(appt.StartTime, slots)
		if err != nil {
			return nil, apperrors.Invalid("cannot schedule: %v", err)
		}
		appt.ExpectedEndTime = endTime
	}

	appt.Status = next
	appt.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	if prev != next {
		s.metrics.ObserveTransition(string(prev), string(next))
	}
	s.logger.Info("appointment updated", "appointment_id", appt.ID, "status", appt.Status)

	result := &UpdateResult{Appointment: appt}
	if next == StatusCompleted && prev != StatusCompleted {
		result.HealthRecord = s.derive(ctx, appt)
		s.fireClinicEvent(ctx, appt, notify.EventCompleted, "")
	}
	return result, nil
}

// Delete removes an appointment administratively, from any state.
func (s *Service) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := Transition(appt.Status, actor.Role, ActionDelete, appt.Status); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("appointment deleted", "appointment_id", id, "last_status", appt.Status)
	return nil
}

// ProposeRescheduleInput is an owner's proposed new time.
type ProposeRescheduleInput struct {
	Date      time.Time `json:"date"`
	StartTime string    `json:"start_time"`
	Reason    string    `json:"reason,omitempty"`
}

// ProposeReschedule appends a pending reschedule request. Only one request
// may be pending at a time.
func (s *Service) ProposeReschedule(ctx context.Context, actor Actor, id uuid.UUID, in ProposeRescheduleInput) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleOwner {
		return nil, apperrors.Unauthorized("only the owner may propose a reschedule")
	}
	if !appt.Subject.IsOwnedBy(actor.ID) {
		return nil, apperrors.Unauthorized("appointment belongs to another owner")
	}
	if appt.Status.IsTerminal() {
		return nil, apperrors.Conflict("appointment is already %s", appt.Status)
	}
	if _, exists := appt.PendingReschedule(); exists {
		return nil, apperrors.Conflict("a reschedule request is already pending")
	}
	if in.Date.IsZero() {
		return nil, apperrors.Invalid("date is required")
	}
	if _, err := scheduling.ParseClock(in.StartTime); err != nil {
		return nil, apperrors.Invalid("invalid start_time %q", in.StartTime)
	}

	slots := s.slotsFor(ctx, appt.Selections)
	endTime, err := s.calc.EndTime(in.StartTime, slots)
	if err != nil {
		return nil, apperrors.Invalid("cannot schedule: %v", err)
	}

	now := time.Now().UTC()
	appt.Reschedules = append(appt.Reschedules, RescheduleRequest{
		ID:        uuid.New(),
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   endTime,
		Reason:    in.Reason,
		Status:    ReschedulePending,
		CreatedAt: now,
	})
	appt.UpdatedAt = now
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.logger.Info("reschedule proposed", "appointment_id", appt.ID, "date", in.Date.Format("2006-01-02"), "start_time", in.StartTime)

	s.fireClinicEvent(ctx, appt, notify.EventRescheduleProposed, in.Reason)
	return appt, nil
}

// RespondReschedule records the clinic's decision on a pending request.
// Approval copies the proposed time onto the appointment. Responding to an
// already-responded request is a conflict and changes nothing.
func (s *Service) RespondReschedule(ctx context.Context, actor Actor, id, requestID uuid.UUID, approve bool) (*Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != RoleClinic {
		return nil, apperrors.Unauthorized("only the clinic may respond to a reschedule")
	}
	if appt.ClinicID != actor.ID {
		return nil, apperrors.Unauthorized("appointment belongs to another clinic")
	}
	if appt.Status.IsTerminal() {
		return nil, apperrors.Conflict("appointment is already %s", appt.Status)
	}

	req, ok := appt.FindReschedule(requestID)
	if !ok {
		return nil, apperrors.NotFound("reschedule request %s not found", requestID)
	}
	if req.Status != ReschedulePending {
		return nil, apperrors.Conflict("reschedule request already %s", req.Status)
	}

	now := time.Now().UTC()
	outcome := RescheduleRejected
	if approve {
		outcome = RescheduleApproved
		appt.Date = req.Date
		appt.StartTime = req.StartTime
		appt.ExpectedEndTime = req.EndTime
	}
	req.Status = outcome
	req.RespondedAt = &now
	appt.UpdatedAt = now
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	s.logger.Info("reschedule responded", "appointment_id", appt.ID, "request_id", requestID, "outcome", outcome)

	s.fireOwnerEvent(ctx, appt, notify.EventRescheduleResponded, string(outcome))
	return appt, nil
}

// CompletedHistory lists an owner's completed appointments, oldest first.
// The loyalty detector consumes this.
func (s *Service) CompletedHistory(ctx context.Context, ownerID uuid.UUID) ([]*Appointment, error) {
	return s.repo.ListCompletedByOwner(ctx, ownerID)
}

func (s *Service) authorizeRead(actor Actor, appt *Appointment) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleClinic:
		if appt.ClinicID == actor.ID {
			return nil
		}
	case RoleOwner:
		if appt.Subject.IsOwnedBy(actor.ID) {
			return nil
		}
	}
	return apperrors.Unauthorized("not allowed to view this appointment")
}

// resolveSelections prices each requested line from the catalog and
// collects the duration slots for end-time math. Unknown services or
// sub-services fail validation; scheduling tolerates gaps, billing does not.
func (s *Service) resolveSelections(ctx context.Context, in []SelectionInput) ([]ServiceSelection, []scheduling.Selection, error) {
	selections := make([]ServiceSelection, 0, len(in))
	slots := make([]scheduling.Selection, 0, len(in))
	for _, line := range in {
		svc, err := s.catalog.Lookup(ctx, line.ServiceID)
		if err != nil {
			return nil, nil, apperrors.Invalid("unknown service %s", line.ServiceID)
		}
		sub, ok := svc.FindSubService(line.SubServiceID)
		if !ok {
			return nil, nil, apperrors.Invalid("unknown sub-service %s", line.SubServiceID)
		}

		sel := ServiceSelection{
			ServiceID:    line.ServiceID,
			SubServiceID: line.SubServiceID,
			Cost:         sub.BaseCost,
		}
		slot := scheduling.Selection{SubServiceMins: sub.DurationMins}
		if line.ExtraServiceID != nil {
			extra, ok := sub.FindExtra(*line.ExtraServiceID)
			if !ok {
				return nil, nil, apperrors.Invalid("unknown extra service %s", *line.ExtraServiceID)
			}
			sel.ExtraServiceID = line.ExtraServiceID
			sel.Cost += extra.Cost
			slot.HasExtra = true
			slot.ExtraMins = extra.DurationMins
		}
		selections = append(selections, sel)
		slots = append(slots, slot)
	}
	return selections, slots, nil
}

// slotsFor rebuilds duration slots for already-priced selections. A failed
// catalog lookup marks the slot missing so it contributes zero minutes.
func (s *Service) slotsFor(ctx context.Context, selections []ServiceSelection) []scheduling.Selection {
	slots := make([]scheduling.Selection, 0, len(selections))
	for _, sel := range selections {
		svc, err := s.catalog.Lookup(ctx, sel.ServiceID)
		if err != nil {
			s.logger.Warn("catalog lookup failed, selection contributes no duration", "service_id", sel.ServiceID, "error", err)
			slots = append(slots, scheduling.Selection{Missing: true})
			continue
		}
		sub, ok := svc.FindSubService(sel.SubServiceID)
		if !ok {
			slots = append(slots, scheduling.Selection{Missing: true})
			continue
		}
		slot := scheduling.Selection{SubServiceMins: sub.DurationMins}
		if sel.ExtraServiceID != nil {
			if extra, ok := sub.FindExtra(*sel.ExtraServiceID); ok {
				slot.HasExtra = true
				slot.ExtraMins = extra.DurationMins
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// derive builds the health record for a just-completed appointment.
// Derivation problems are logged and swallowed; the completion stands.
func (s *Service) derive(ctx context.Context, appt *Appointment) *healthrecords.HealthRecord {
	if s.deriver == nil {
		return nil
	}

	in := healthrecords.DeriveInput{
		AppointmentID:  appt.ID,
		ClinicID:       appt.ClinicID,
		Date:           appt.Date,
		DoseSelections: appt.DoseSelections,
		FollowUpDate:   appt.FollowUp.Date,
		FollowUpPeriod: appt.FollowUp.Period,
		FollowUpNotes:  appt.FollowUp.Notes,
	}
	switch appt.Subject.Kind {
	case SubjectRegistered:
		in.PetID = appt.Subject.PetID
	case SubjectExternal:
		in.PetName = appt.Subject.Snapshot.Name
		in.Species = appt.Subject.Snapshot.Species
	}
	for _, sel := range appt.Selections {
		in.Selections = append(in.Selections, healthrecords.SelectionInput{
			ServiceID:      sel.ServiceID,
			SubServiceID:   sel.SubServiceID,
			ExtraServiceID: sel.ExtraServiceID,
			Cost:           sel.Cost,
		})
	}

	record, err := s.deriver.Derive(ctx, in)
	if err != nil {
		s.metrics.ObserveDerivation("failed")
		s.logger.Error("health record derivation failed", "error", err, "appointment_id", appt.ID)
		return nil
	}
	s.metrics.ObserveDerivation("created")
	return record
}

func (s *Service) fireClinicEvent(ctx context.Context, appt *Appointment, kind notify.EventKind, detail string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyClinic(ctx, s.event(appt, kind, detail)); err != nil {
		s.logger.Error("clinic notification failed", "error", err, "appointment_id", appt.ID, "kind", kind)
	}
}

func (s *Service) fireOwnerEvent(ctx context.Context, appt *Appointment, kind notify.EventKind, detail string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyOwner(ctx, s.event(appt, kind, detail)); err != nil {
		s.logger.Error("owner notification failed", "error", err, "appointment_id", appt.ID, "kind", kind)
	}
}

func (s *Service) event(appt *Appointment, kind notify.EventKind, detail string) notify.AppointmentEvent {
	evt := notify.AppointmentEvent{
		Kind:          kind,
		ClinicID:      appt.ClinicID.String(),
		AppointmentID: appt.ID.String(),
		Date:          appt.Date,
		StartTime:     appt.StartTime,
		EndTime:       appt.ExpectedEndTime,
		Detail:        detail,
	}
	if appt.Subject.Kind == SubjectExternal && appt.Subject.Snapshot != nil {
		evt.PetName = appt.Subject.Snapshot.Name
		evt.OwnerName = appt.Subject.Snapshot.OwnerName
		evt.OwnerEmail = appt.Subject.Snapshot.OwnerEmail
		evt.OwnerPhone = appt.Subject.Snapshot.OwnerPhone
	}
	return evt
}
