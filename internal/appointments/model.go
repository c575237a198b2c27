// Package appointments owns the appointment lifecycle: booking, the
// role-gated status state machine, reschedule negotiation, and the
// completion trigger for health record derivation.
package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
	"github.com/vetcare/vetclinic-platform/internal/vaccinations"
)

// Status is an appointment lifecycle state.
type Status string

const (
	StatusPendingRequest Status = "pending_request"
	StatusPending        Status = "pending"
	StatusAccepted       Status = "accepted"
	StatusCompleted      Status = "completed"
	StatusCancelled      Status = "cancelled"
	StatusRejected       Status = "rejected"
)

// IsTerminal reports whether no further transitions are accepted.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRejected
}

func validStatus(s Status) bool {
	switch s {
	case StatusPendingRequest, StatusPending, StatusAccepted, StatusCompleted, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Source records who initiated the booking.
type Source string

const (
	SourceOwner    Source = "owner"
	SourceVetAdded Source = "vet_added"
)

// CancellationReason is the fixed enum accepted on owner cancellation.
type CancellationReason string

const (
	ReasonScheduleConflict CancellationReason = "schedule_conflict"
	ReasonPetUnwell        CancellationReason = "pet_unwell"
	ReasonTravel           CancellationReason = "travel"
	ReasonCost             CancellationReason = "cost"
	ReasonOther            CancellationReason = "other"
)

// ValidCancellationReason reports whether r is part of the fixed enum.
func ValidCancellationReason(r CancellationReason) bool {
	switch r {
	case ReasonScheduleConflict, ReasonPetUnwell, ReasonTravel, ReasonCost, ReasonOther:
		return true
	}
	return false
}

// SubjectKind discriminates the appointment subject union.
type SubjectKind string

const (
	SubjectRegistered SubjectKind = "registered"
	SubjectExternal   SubjectKind = "external"
)

// PetSnapshot captures a walk-in pet that has no account in the system.
type PetSnapshot struct {
	Name       string `json:"name"`
	Species    string `json:"species"`
	Breed      string `json:"breed,omitempty"`
	Age        string `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	OwnerName  string `json:"owner_name,omitempty"`
	OwnerEmail string `json:"owner_email,omitempty"`
	OwnerPhone string `json:"owner_phone,omitempty"`
}

// Subject is a tagged union: a registered pet with an owner account, or an
// external snapshot. Exactly one side is populated.
type Subject struct {
	Kind     SubjectKind  `json:"kind"`
	PetID    *uuid.UUID   `json:"pet_id,omitempty"`
	OwnerID  *uuid.UUID   `json:"owner_id,omitempty"`
	Snapshot *PetSnapshot `json:"snapshot,omitempty"`
}

// NewRegisteredSubject builds a subject backed by a pet account.
func NewRegisteredSubject(petID, ownerID uuid.UUID) Subject {
	return Subject{Kind: SubjectRegistered, PetID: &petID, OwnerID: &ownerID}
}

// NewExternalSubject builds a subject from a walk-in snapshot.
func NewExternalSubject(snapshot PetSnapshot) Subject {
	return Subject{Kind: SubjectExternal, Snapshot: &snapshot}
}

// Validate enforces the union invariant at construction time.
func (s Subject) Validate() error {
	switch s.Kind {
	case SubjectRegistered:
		if s.PetID == nil || s.OwnerID == nil {
			return apperrors.Invalid("registered subject requires pet and owner references")
		}
		if s.Snapshot != nil {
			return apperrors.Invalid("registered subject must not carry a snapshot")
		}
	case SubjectExternal:
		if s.Snapshot == nil || s.Snapshot.Name == "" {
			return apperrors.Invalid("external subject requires a pet snapshot with a name")
		}
		if s.PetID != nil || s.OwnerID != nil {
			return apperrors.Invalid("external subject must not carry account references")
		}
	default:
		return apperrors.Invalid("unknown subject kind %q", s.Kind)
	}
	return nil
}

// IsOwnedBy reports whether actorID is the owner account behind the subject.
func (s Subject) IsOwnedBy(actorID uuid.UUID) bool {
	return s.Kind == SubjectRegistered && s.OwnerID != nil && *s.OwnerID == actorID
}

// ServiceSelection is one booked service line.
type ServiceSelection struct {
	ServiceID      uuid.UUID  `json:"service_id"`
	SubServiceID   uuid.UUID  `json:"sub_service_id"`
	ExtraServiceID *uuid.UUID `json:"extra_service_id,omitempty"`
	Cost           float64    `json:"cost"`
}

// RescheduleStatus tracks the embedded negotiation sub-state machine.
type RescheduleStatus string

const (
	ReschedulePending  RescheduleStatus = "pending"
	RescheduleApproved RescheduleStatus = "approved"
	RescheduleRejected RescheduleStatus = "rejected"
)

// RescheduleRequest is a proposed new time awaiting a clinic decision.
// Immutable once responded.
type RescheduleRequest struct {
	ID          uuid.UUID        `json:"id"`
	Date        time.Time        `json:"date"`
	StartTime   string           `json:"start_time"`
	EndTime     string           `json:"end_time"`
	Reason      string           `json:"reason,omitempty"`
	Status      RescheduleStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
}

// FollowUp captures post-visit scheduling: an explicit date or a relative
// period such as "2 weeks".
type FollowUp struct {
	Date   *time.Time `json:"date,omitempty"`
	Period string     `json:"period,omitempty"`
	Notes  string     `json:"notes,omitempty"`
}

// Appointment is the aggregate root of the booking workflow.
type Appointment struct {
	ID                 uuid.UUID                     `json:"id"`
	Subject            Subject                       `json:"subject"`
	ClinicID           uuid.UUID                     `json:"clinic_id"`
	DoctorID           *uuid.UUID                    `json:"doctor_id,omitempty"`
	Selections         []ServiceSelection            `json:"selections"`
	Date               time.Time                     `json:"date"`
	StartTime          string                        `json:"start_time"`
	ExpectedEndTime    string                        `json:"expected_end_time"`
	Status             Status                        `json:"status"`
	Source             Source                        `json:"source"`
	CancellationReason CancellationReason            `json:"cancellation_reason,omitempty"`
	Reschedules        []RescheduleRequest           `json:"reschedules,omitempty"`
	DoseSelections     []vaccinations.DoseSelection  `json:"dose_selections,omitempty"`
	FollowUp           FollowUp                      `json:"follow_up"`
	EstimatedCost      float64                       `json:"estimated_cost"`
	ActualCost         float64                       `json:"actual_cost"`
	Reminder24hSent    bool                          `json:"reminder_24h_sent"`
	Reminder1hSent     bool                          `json:"reminder_1h_sent"`
	ConfirmedAt        *time.Time                    `json:"confirmed_at,omitempty"`
	Version            int                           `json:"version"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`
}

// TotalCost sums the selection costs.
func (a *Appointment) TotalCost() float64 {
	var total float64
	for _, sel := range a.Selections {
		total += sel.Cost
	}
	return total
}

// PendingReschedule returns the open reschedule request, if any.
func (a *Appointment) PendingReschedule() (*RescheduleRequest, bool) {
	for i := range a.Reschedules {
		if a.Reschedules[i].Status == ReschedulePending {
			return &a.Reschedules[i], true
		}
	}
	return nil, false
}

// FindReschedule returns the request with the given id.
func (a *Appointment) FindReschedule(id uuid.UUID) (*RescheduleRequest, bool) {
	for i := range a.Reschedules {
		if a.Reschedules[i].ID == id {
			return &a.Reschedules[i], true
		}
	}
	return nil, false
}
