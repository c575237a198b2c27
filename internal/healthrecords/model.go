// Package healthrecords derives clinical records when an appointment
// completes: service snapshots, vaccination administrations, lab test
// spawning, and follow-up scheduling.
package healthrecords

import (
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/vaccinations"
)

// ServiceEntry is a denormalized snapshot of one billed service line.
// Names are resolved from the catalog at derivation time so later catalog
// edits cannot rewrite history.
type ServiceEntry struct {
	Type             string  `json:"type"`
	SubServiceName   string  `json:"sub_service_name"`
	ExtraServiceName string  `json:"extra_service_name,omitempty"`
	Cost             float64 `json:"cost"`
}

// HealthRecord is the clinical outcome of a completed appointment. At most
// one exists per appointment.
type HealthRecord struct {
	ID            uuid.UUID                            `json:"id"`
	AppointmentID uuid.UUID                            `json:"appointment_id"`
	ClinicID      uuid.UUID                            `json:"clinic_id"`
	PetID         *uuid.UUID                           `json:"pet_id,omitempty"`
	PetName       string                               `json:"pet_name"`
	Species       string                               `json:"species,omitempty"`
	VisitDate     time.Time                            `json:"visit_date"`
	Services      []ServiceEntry                       `json:"services"`
	Vaccinations  []vaccinations.AdministrationRecord  `json:"vaccinations,omitempty"`
	LabTestIDs    []uuid.UUID                          `json:"lab_test_ids,omitempty"`
	FollowUpDate  *time.Time                           `json:"follow_up_date,omitempty"`
	FollowUpNotes string                               `json:"follow_up_notes,omitempty"`
	CreatedAt     time.Time                            `json:"created_at"`
	UpdatedAt     time.Time                            `json:"updated_at"`
}

// LabTestStatus tracks a spawned laboratory test.
type LabTestStatus string

const (
	LabTestPending   LabTestStatus = "pending"
	LabTestCompleted LabTestStatus = "completed"
)

// LabTest is spawned for each laboratory-typed service line. At most one
// exists per (appointment, sub-service).
type LabTest struct {
	ID             uuid.UUID     `json:"id"`
	AppointmentID  uuid.UUID     `json:"appointment_id"`
	HealthRecordID uuid.UUID     `json:"health_record_id"`
	ClinicID       uuid.UUID     `json:"clinic_id"`
	SubServiceID   uuid.UUID     `json:"sub_service_id"`
	SubServiceName string        `json:"sub_service_name"`
	PetID          *uuid.UUID    `json:"pet_id,omitempty"`
	PetName        string        `json:"pet_name"`
	Species        string        `json:"species,omitempty"`
	Status         LabTestStatus `json:"status"`
	Result         string        `json:"result,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
