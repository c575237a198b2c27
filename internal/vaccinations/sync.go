package vaccinations

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/catalog"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Syncer reconciles the vaccination catalog against a clinic's service
// definition: one entry per vaccination-typed sub-service, no strays.
// Runs synchronously after every catalog write.
type Syncer struct {
	repo   Repository
	logger *logging.Logger
}

// NewSyncer creates a catalog-sync reconciler.
func NewSyncer(repo Repository, logger *logging.Logger) *Syncer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Syncer{repo: repo, logger: logger}
}

// Sync brings vaccination entries for svc in line with its sub-services.
// Non-vaccination services only trigger cleanup of leftover entries (the
// service type may have been changed away from vaccination).
func (s *Syncer) Sync(ctx context.Context, svc *catalog.Service) error {
	existing, err := s.repo.ListByService(ctx, svc.ID)
	if err != nil {
		return fmt.Errorf("vaccinations: sync list: %w", err)
	}

	wanted := make(map[uuid.UUID]catalog.SubService)
	if svc.Type == catalog.TypeVaccination {
		for _, sub := range svc.SubServices {
			wanted[sub.ID] = sub
		}
	}

	for _, entry := range existing {
		if _, keep := wanted[entry.SubServiceID]; !keep {
			if err := s.repo.DeleteBySubService(ctx, svc.ID, entry.SubServiceID); err != nil {
				return fmt.Errorf("vaccinations: sync delete: %w", err)
			}
			s.logger.Info("vaccinations: entry removed",
				"service_id", svc.ID, "sub_service_id", entry.SubServiceID)
		}
	}

	for subID, sub := range wanted {
		entry := &Vaccination{
			ClinicID:     svc.ClinicID,
			ServiceID:    svc.ID,
			SubServiceID: subID,
			Name:         sub.Name,
			DoseCount:    1,
			DoseInterval: "1 month",
		}
		if err := s.repo.Upsert(ctx, entry); err != nil {
			return fmt.Errorf("vaccinations: sync upsert: %w", err)
		}
	}

	if len(wanted) > 0 {
		s.logger.Info("vaccinations: catalog synced",
			"service_id", svc.ID, "entries", len(wanted))
	}
	return nil
}
