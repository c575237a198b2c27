package catalog

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Repository is the write-side catalog surface used by the handler.
type Repository interface {
	Resolver
	Upsert(ctx context.Context, svc *Service) error
	ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]Service, error)
	Delete(ctx context.Context, serviceID uuid.UUID) error
}

// SyncFunc reconciles downstream state (the vaccination catalog) after a
// service definition changes. Invoked synchronously on every write.
type SyncFunc func(ctx context.Context, svc *Service) error

// Handler provides HTTP endpoints for clinic service management.
type Handler struct {
	repo   Repository
	sync   SyncFunc
	logger *logging.Logger
}

// NewHandler creates a catalog HTTP handler. sync may be nil.
func NewHandler(repo Repository, sync SyncFunc, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, sync: sync, logger: logger}
}

// RegisterRoutes mounts catalog endpoints under a chi router.
// Expected to be mounted under /api/v1/clinics/{clinicID}/services
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listServices)
	r.Put("/", h.upsertService)
	r.Get("/{serviceID}", h.getService)
	r.Delete("/{serviceID}", h.deleteService)
}

func (h *Handler) upsertService(w http.ResponseWriter, r *http.Request) {
	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}

	var svc Service
	if err := json.NewDecoder(r.Body).Decode(&svc); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	svc.ClinicID = clinicID
	if svc.Name == "" || svc.Type == "" {
		http.Error(w, "name and type are required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Upsert(r.Context(), &svc); err != nil {
		h.logger.Error("catalog handler: upsert service", "error", err)
		http.Error(w, "internal error", apperrors.HTTPStatus(err))
		return
	}

	if h.sync != nil {
		if err := h.sync(r.Context(), &svc); err != nil {
			// The service write already landed; reconciliation is retried
			// on the next edit.
			h.logger.Error("catalog handler: vaccination sync", "error", err, "service_id", svc.ID)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(svc)
}

func (h *Handler) getService(w http.ResponseWriter, r *http.Request) {
	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		http.Error(w, "invalid service id", http.StatusBadRequest)
		return
	}
	svc, err := h.repo.Lookup(r.Context(), serviceID)
	if err != nil {
		status := apperrors.HTTPStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("catalog handler: get service", "error", err)
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(svc)
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	clinicID, err := uuid.Parse(chi.URLParam(r, "clinicID"))
	if err != nil {
		http.Error(w, "invalid clinic id", http.StatusBadRequest)
		return
	}
	services, err := h.repo.ListByClinic(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("catalog handler: list services", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"services": services,
		"count":    len(services),
	})
}

func (h *Handler) deleteService(w http.ResponseWriter, r *http.Request) {
	serviceID, err := uuid.Parse(chi.URLParam(r, "serviceID"))
	if err != nil {
		http.Error(w, "invalid service id", http.StatusBadRequest)
		return
	}
	if err := h.repo.Delete(r.Context(), serviceID); err != nil {
		status := apperrors.HTTPStatus(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("catalog handler: delete service", "error", err)
		}
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
