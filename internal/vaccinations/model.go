// Package vaccinations tracks the vaccination catalog and multi-dose
// progression across appointments. Catalog entries are reconciled from the
// service catalog; the engine resolves dose finality and next-due dates
// when an appointment completes.
package vaccinations

import (
	"time"

	"github.com/google/uuid"
)

// Vaccination is a catalog entry describing one vaccine offered by a
// clinic. Exactly one entry exists per (service, sub-service) pair.
type Vaccination struct {
	ID              uuid.UUID `json:"id"`
	ClinicID        uuid.UUID `json:"clinic_id"`
	ServiceID       uuid.UUID `json:"service_id"`
	SubServiceID    uuid.UUID `json:"sub_service_id"`
	Name            string    `json:"name"`
	PetTypes        []string  `json:"pet_types,omitempty"`
	FirstDoseAge    string    `json:"first_dose_age,omitempty"`
	ProtectsAgainst string    `json:"protects_against,omitempty"`
	DoseCount       int       `json:"dose_count"`
	DoseInterval    string    `json:"dose_interval"`
	IsRequired      bool      `json:"is_required"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DoseSelection records which dose of a vaccine was administered during an
// appointment, keyed by sub-service. The ad hoc fields back a selection
// whose vaccine never made it into the catalog.
type DoseSelection struct {
	SubServiceID uuid.UUID `json:"sub_service_id"`
	DoseNumber   int       `json:"dose_number"`

	// Ad hoc fallback metadata, used only when no catalog entry exists.
	VaccineName  string `json:"vaccine_name,omitempty"`
	TotalDoses   int    `json:"total_doses,omitempty"`
	DoseInterval string `json:"dose_interval,omitempty"`
}

// AdministrationRecord is the derived outcome of one administered dose. It
// lands on the health record and, for registered pets, mirrors into the
// pet's vaccination history.
type AdministrationRecord struct {
	Name             string     `json:"name"`
	PetTypes         []string   `json:"pet_types,omitempty"`
	AdministeredDate time.Time  `json:"administered_date"`
	NextDueDate      *time.Time `json:"next_due_date,omitempty"`
	DoseNumber       int        `json:"dose_number"`
	DoseCount        int        `json:"dose_count"`
	Description      string     `json:"description"`
	IsCompleted      bool       `json:"is_completed"`
}
