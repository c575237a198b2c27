package vaccinations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
	"github.com/vetcare/vetclinic-platform/internal/scheduling"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Finder resolves authoritative dose metadata from the catalog.
type Finder interface {
	Find(ctx context.Context, serviceID, subServiceID uuid.UUID) (*Vaccination, error)
}

// PetHistoryAppender mirrors administration records into a registered
// pet's vaccination history. External collaborator.
type PetHistoryAppender interface {
	AppendVaccination(ctx context.Context, petID uuid.UUID, rec AdministrationRecord) error
}

// Engine resolves dose metadata and next-due dates when an appointment
// completes.
type Engine struct {
	finder  Finder
	history PetHistoryAppender
	logger  *logging.Logger
}

// NewEngine creates a dose progression engine. history may be nil when no
// pet record store is wired.
func NewEngine(finder Finder, history PetHistoryAppender, logger *logging.Logger) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{finder: finder, history: history, logger: logger}
}

// ProgressInput carries the appointment context for one dose selection.
type ProgressInput struct {
	ServiceID       uuid.UUID
	Selection       DoseSelection
	AppointmentDate time.Time  // zero when the source date was unparsable
	ExplicitNextDue *time.Time // caller-supplied follow-up, wins over interval math
	PetID           *uuid.UUID // set for registered pets only
}

// Progress resolves one dose selection into an administration record.
// Returns (nil, nil) when no metadata exists anywhere for the selection;
// that dose is skipped rather than failing the completion.
func (e *Engine) Progress(ctx context.Context, in ProgressInput) (*AdministrationRecord, error) {
	meta, err := e.finder.Find(ctx, in.ServiceID, in.Selection.SubServiceID)
	if err != nil {
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, fmt.Errorf("vaccinations: progress: %w", err)
		}
		meta = e.fallbackMeta(in.Selection)
		if meta == nil {
			e.logger.Warn("vaccinations: no metadata for dose, skipping",
				"sub_service_id", in.Selection.SubServiceID)
			return nil, nil
		}
	}

	doseCount := meta.DoseCount
	if doseCount < 1 {
		doseCount = 1
	}
	doseNumber := in.Selection.DoseNumber
	if doseNumber < 1 {
		doseNumber = 1
	}
	isFinal := doseNumber >= doseCount

	rec := &AdministrationRecord{
		Name:             meta.Name,
		PetTypes:         meta.PetTypes,
		AdministeredDate: in.AppointmentDate,
		DoseNumber:       doseNumber,
		DoseCount:        doseCount,
		IsCompleted:      isFinal,
	}

	if !isFinal {
		rec.NextDueDate = e.nextDue(in, meta)
	}
	rec.Description = describe(rec)

	if in.PetID != nil && e.history != nil {
		if err := e.history.AppendVaccination(ctx, *in.PetID, *rec); err != nil {
			// History mirroring is best effort; the health record entry
			// is still emitted.
			e.logger.Error("vaccinations: pet history append failed",
				"pet_id", *in.PetID, "error", err)
		}
	}

	return rec, nil
}

func (e *Engine) fallbackMeta(sel DoseSelection) *Vaccination {
	if sel.VaccineName == "" && sel.TotalDoses == 0 {
		return nil
	}
	return &Vaccination{
		Name:         sel.VaccineName,
		DoseCount:    sel.TotalDoses,
		DoseInterval: sel.DoseInterval,
	}
}

func (e *Engine) nextDue(in ProgressInput, meta *Vaccination) *time.Time {
	if in.ExplicitNextDue != nil {
		return in.ExplicitNextDue
	}
	if in.AppointmentDate.IsZero() {
		e.logger.Warn("vaccinations: no usable appointment date, skipping next-due",
			"sub_service_id", in.Selection.SubServiceID)
		return nil
	}
	due := scheduling.ParseInterval(meta.DoseInterval).AddTo(in.AppointmentDate)
	return &due
}

func describe(rec *AdministrationRecord) string {
	if rec.IsCompleted {
		return fmt.Sprintf("%s dose %d of %d administered, series complete",
			rec.Name, rec.DoseNumber, rec.DoseCount)
	}
	if rec.NextDueDate != nil {
		return fmt.Sprintf("%s dose %d of %d administered, next dose due %s",
			rec.Name, rec.DoseNumber, rec.DoseCount, rec.NextDueDate.Format(time.DateOnly))
	}
	return fmt.Sprintf("%s dose %d of %d administered", rec.Name, rec.DoseNumber, rec.DoseCount)
}
