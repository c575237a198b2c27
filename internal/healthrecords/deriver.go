package healthrecords

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
	"github.com/vetcare/vetclinic-platform/internal/catalog"
	"github.com/vetcare/vetclinic-platform/internal/scheduling"
	"github.com/vetcare/vetclinic-platform/internal/vaccinations"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Repository is the persistence surface the deriver writes through.
// CreateRecord has upsert semantics on appointment_id: it reports false
// when another derivation already landed.
type Repository interface {
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*HealthRecord, error)
	CreateRecord(ctx context.Context, rec *HealthRecord) (bool, error)
	CreateLabTest(ctx context.Context, lt *LabTest) error
}

// DoseProgressor resolves one dose selection into an administration record.
type DoseProgressor interface {
	Progress(ctx context.Context, in vaccinations.ProgressInput) (*vaccinations.AdministrationRecord, error)
}

// SelectionInput mirrors one booked service line into the deriver.
type SelectionInput struct {
	ServiceID      uuid.UUID
	SubServiceID   uuid.UUID
	ExtraServiceID *uuid.UUID
	Cost           float64
}

// DeriveInput carries everything the deriver needs from the completed
// appointment. The appointments package maps its aggregate into this
// shape, keeping the dependency one-way.
type DeriveInput struct {
	AppointmentID  uuid.UUID
	ClinicID       uuid.UUID
	Date           time.Time
	PetID          *uuid.UUID
	PetName        string
	Species        string
	Selections     []SelectionInput
	DoseSelections []vaccinations.DoseSelection
	FollowUpDate   *time.Time
	FollowUpPeriod string
	FollowUpNotes  string
}

// Deriver builds the clinical record when an appointment completes.
type Deriver struct {
	repo    Repository
	catalog catalog.Resolver
	doses   DoseProgressor
	logger  *logging.Logger
}

// NewDeriver creates a health record deriver.
func NewDeriver(repo Repository, cat catalog.Resolver, doses DoseProgressor, logger *logging.Logger) *Deriver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deriver{repo: repo, catalog: cat, doses: doses, logger: logger}
}

// Derive builds and persists the health record for a completed
// appointment. Idempotent: a second completion returns the existing
// record. Individual lab test or dose failures are logged and skipped so
// the completion itself never fails on partial derivation.
func (d *Deriver) Derive(ctx context.Context, in DeriveInput) (*HealthRecord, error) {
	if existing, err := d.repo.GetByAppointment(ctx, in.AppointmentID); err == nil {
		return existing, nil
	} else if !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, fmt.Errorf("healthrecords: derive lookup: %w", err)
	}

	rec := &HealthRecord{
		ID:            uuid.New(),
		AppointmentID: in.AppointmentID,
		ClinicID:      in.ClinicID,
		PetID:         in.PetID,
		PetName:       in.PetName,
		Species:       in.Species,
		VisitDate:     in.Date,
		FollowUpNotes: in.FollowUpNotes,
	}

	d.snapshotServices(ctx, in, rec)
	rec.FollowUpDate = d.resolveFollowUp(in)
	d.progressDoses(ctx, in, rec)

	created, err := d.repo.CreateRecord(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("healthrecords: persist record: %w", err)
	}
	if !created {
		// Lost a concurrent derivation race; the winner's record is the
		// record of truth.
		existing, err := d.repo.GetByAppointment(ctx, in.AppointmentID)
		if err != nil {
			return nil, fmt.Errorf("healthrecords: refetch after race: %w", err)
		}
		return existing, nil
	}

	d.logger.Info("healthrecords: record derived",
		"appointment_id", in.AppointmentID,
		"services", len(rec.Services),
		"vaccinations", len(rec.Vaccinations),
		"lab_tests", len(rec.LabTestIDs),
	)
	return rec, nil
}

// snapshotServices resolves catalog names for each selection and spawns
// lab tests for laboratory-typed items.
func (d *Deriver) snapshotServices(ctx context.Context, in DeriveInput, rec *HealthRecord) {
	for _, sel := range in.Selections {
		entry := ServiceEntry{Cost: sel.Cost}

		svc, err := d.catalog.Lookup(ctx, sel.ServiceID)
		if err != nil {
			d.logger.Warn("healthrecords: catalog lookup failed, keeping bare entry",
				"service_id", sel.ServiceID, "error", err)
			rec.Services = append(rec.Services, entry)
			continue
		}
		entry.Type = string(svc.Type)
		sub, ok := svc.FindSubService(sel.SubServiceID)
		if ok {
			entry.SubServiceName = sub.Name
			if sel.ExtraServiceID != nil {
				if extra, ok := sub.FindExtra(*sel.ExtraServiceID); ok {
					entry.ExtraServiceName = extra.Name
				}
			}
		}
		rec.Services = append(rec.Services, entry)

		if svc.Type == catalog.TypeLaboratoryTest && ok {
			d.spawnLabTest(ctx, in, rec, sel.SubServiceID, sub.Name)
		}
	}
}

func (d *Deriver) spawnLabTest(ctx context.Context, in DeriveInput, rec *HealthRecord, subServiceID uuid.UUID, name string) {
	lt := &LabTest{
		ID:             uuid.New(),
		AppointmentID:  in.AppointmentID,
		HealthRecordID: rec.ID,
		ClinicID:       in.ClinicID,
		SubServiceID:   subServiceID,
		SubServiceName: name,
		PetID:          in.PetID,
		PetName:        in.PetName,
		Species:        in.Species,
		Status:         LabTestPending,
	}
	if err := d.repo.CreateLabTest(ctx, lt); err != nil {
		d.logger.Error("healthrecords: lab test creation failed, skipping",
			"appointment_id", in.AppointmentID, "sub_service_id", subServiceID, "error", err)
		return
	}
	rec.LabTestIDs = append(rec.LabTestIDs, lt.ID)
}

// resolveFollowUp prefers an explicit date, else adds the relative period
// to the visit date.
func (d *Deriver) resolveFollowUp(in DeriveInput) *time.Time {
	if in.FollowUpDate != nil {
		return in.FollowUpDate
	}
	if in.FollowUpPeriod == "" {
		return nil
	}
	if in.Date.IsZero() {
		d.logger.Warn("healthrecords: no visit date for follow-up period",
			"appointment_id", in.AppointmentID)
		return nil
	}
	due := scheduling.ParseInterval(in.FollowUpPeriod).AddTo(in.Date)
	return &due
}

func (d *Deriver) progressDoses(ctx context.Context, in DeriveInput, rec *HealthRecord) {
	if d.doses == nil {
		return
	}
	serviceBySub := make(map[uuid.UUID]uuid.UUID, len(in.Selections))
	for _, sel := range in.Selections {
		serviceBySub[sel.SubServiceID] = sel.ServiceID
	}

	for _, ds := range in.DoseSelections {
		adminRec, err := d.doses.Progress(ctx, vaccinations.ProgressInput{
			ServiceID:       serviceBySub[ds.SubServiceID],
			Selection:       ds,
			AppointmentDate: in.Date,
			ExplicitNextDue: in.FollowUpDate,
			PetID:           in.PetID,
		})
		if err != nil {
			d.logger.Error("healthrecords: dose progression failed, skipping",
				"sub_service_id", ds.SubServiceID, "error", err)
			continue
		}
		if adminRec != nil {
			rec.Vaccinations = append(rec.Vaccinations, *adminRec)
		}
	}
}
