package loyalty

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// HistoryFunc returns an owner's completed visit dates, oldest first.
type HistoryFunc func(ctx context.Context, ownerID uuid.UUID) ([]time.Time, error)

// Handler exposes the discount preview endpoint.
type Handler struct {
	detector *Detector
	history  HistoryFunc
	logger   *logging.Logger
}

// NewHandler creates a loyalty HTTP handler.
func NewHandler(detector *Detector, history HistoryFunc, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{detector: detector, history: history, logger: logger}
}

// RegisterRoutes mounts loyalty endpoints under a chi router.
// Expected to be mounted under /api/v1/owners/{ownerID}
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/discount", h.preview)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	ownerID, err := uuid.Parse(chi.URLParam(r, "ownerID"))
	if err != nil {
		http.Error(w, "invalid owner id", http.StatusBadRequest)
		return
	}

	candidate := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		candidate, err = time.Parse("2006-01-02", raw)
		if err != nil {
			http.Error(w, "invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}

	history, err := h.history(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("loyalty handler: load history", "error", err, "owner_id", ownerID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	result, err := h.detector.Detect(r.Context(), ownerID, candidate, history)
	if err != nil {
		h.logger.Error("loyalty handler: detect", "error", err, "owner_id", ownerID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
