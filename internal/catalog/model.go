// Package catalog is the clinic-configured source of truth for service
// cost and duration. Appointments resolve their pricing, session length,
// and record snapshots against it.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

// ServiceType classifies a clinical service category.
type ServiceType string

const (
	TypeConsultation   ServiceType = "consultation"
	TypeVaccination    ServiceType = "vaccination"
	TypeLaboratoryTest ServiceType = "laboratory_test"
	TypeGrooming       ServiceType = "grooming"
	TypeSurgery        ServiceType = "surgery"
)

// ExtraService is an optional add-on nested under a sub-service.
type ExtraService struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Cost         float64   `json:"cost"`
	DurationMins *int      `json:"duration_mins,omitempty"`
}

// SubService is a billable unit within a service category.
type SubService struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	BaseCost      float64        `json:"base_cost"`
	DurationMins  *int           `json:"duration_mins,omitempty"`
	Requirements  []string       `json:"requirements,omitempty"`
	ExtraServices []ExtraService `json:"extra_services,omitempty"`
}

// Service is a clinic's service category with its billable sub-services.
type Service struct {
	ID          uuid.UUID    `json:"id"`
	ClinicID    uuid.UUID    `json:"clinic_id"`
	Name        string       `json:"name"`
	Type        ServiceType  `json:"type"`
	SubServices []SubService `json:"sub_services"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// FindSubService returns the sub-service with the given id.
func (s *Service) FindSubService(id uuid.UUID) (*SubService, bool) {
	for i := range s.SubServices {
		if s.SubServices[i].ID == id {
			return &s.SubServices[i], true
		}
	}
	return nil, false
}

// FindExtra returns the extra service with the given id.
func (ss *SubService) FindExtra(id uuid.UUID) (*ExtraService, bool) {
	for i := range ss.ExtraServices {
		if ss.ExtraServices[i].ID == id {
			return &ss.ExtraServices[i], true
		}
	}
	return nil, false
}
