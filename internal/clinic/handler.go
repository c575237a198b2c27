package clinic

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Handler provides HTTP endpoints for clinic configuration.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a clinic config handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts config endpoints under a chi router.
// Expected to be mounted under /api/v1/clinics/{clinicID}
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/config", h.getConfig)
	r.Put("/config", h.updateConfig)
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	if clinicID == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}
	cfg, err := h.store.Get(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("clinic handler: get config", "error", err, "clinic_id", clinicID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	if clinicID == "" {
		http.Error(w, "clinic id required", http.StatusBadRequest)
		return
	}
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	cfg.ClinicID = clinicID
	if err := h.store.Set(r.Context(), &cfg); err != nil {
		h.logger.Error("clinic handler: update config", "error", err, "clinic_id", clinicID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}
