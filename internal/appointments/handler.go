package appointments

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vetcare/vetclinic-platform/internal/apperrors"
	"github.com/vetcare/vetclinic-platform/internal/healthrecords"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Identity headers set by the authenticating reverse proxy. Handlers
// trust them; verification is not this service's job.
const (
	headerActorID   = "X-Actor-ID"
	headerActorRole = "X-Actor-Role"
)

// RecordFetcher reads derived health records for the GET endpoint.
type RecordFetcher interface {
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*healthrecords.HealthRecord, error)
}

// Handler provides HTTP endpoints for the appointment lifecycle.
type Handler struct {
	svc     *Service
	records RecordFetcher
	logger  *logging.Logger
}

// NewHandler creates an appointment HTTP handler. records may be nil.
func NewHandler(svc *Service, records RecordFetcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{svc: svc, records: records, logger: logger}
}

// RegisterRoutes mounts appointment endpoints under a chi router.
// Expected to be mounted under /api/v1/appointments
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{appointmentID}", h.get)
	r.Patch("/{appointmentID}", h.update)
	r.Delete("/{appointmentID}", h.delete)
	r.Post("/{appointmentID}/confirm", h.confirm)
	r.Post("/{appointmentID}/cancel", h.cancel)
	r.Post("/{appointmentID}/reschedule", h.proposeReschedule)
	r.Post("/{appointmentID}/reschedule/{requestID}/respond", h.respondReschedule)
	r.Get("/{appointmentID}/health-record", h.healthRecord)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.svc.Create(r.Context(), actor, in)
	if err != nil {
		h.fail(w, "create appointment", err)
		return
	}
	h.respond(w, http.StatusCreated, appt)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Get(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "get appointment", err)
		return
	}
	h.respond(w, http.StatusOK, appt)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var in UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	result, err := h.svc.Update(r.Context(), actor, id, in)
	if err != nil {
		h.fail(w, "update appointment", err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{
		"appointment":   result.Appointment,
		"health_record": result.HealthRecord,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete appointment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	appt, err := h.svc.Confirm(r.Context(), actor, id)
	if err != nil {
		h.fail(w, "confirm appointment", err)
		return
	}
	h.respond(w, http.StatusOK, appt)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason CancellationReason `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.svc.Cancel(r.Context(), actor, id, body.Reason)
	if err != nil {
		h.fail(w, "cancel appointment", err)
		return
	}
	h.respond(w, http.StatusOK, appt)
}

func (h *Handler) proposeReschedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var in ProposeRescheduleInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.svc.ProposeReschedule(r.Context(), actor, id, in)
	if err != nil {
		h.fail(w, "propose reschedule", err)
		return
	}
	h.respond(w, http.StatusCreated, appt)
}

func (h *Handler) respondReschedule(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}
	var body struct {
		Approve bool `json:"approve"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	appt, err := h.svc.RespondReschedule(r.Context(), actor, id, requestID, body.Approve)
	if err != nil {
		h.fail(w, "respond reschedule", err)
		return
	}
	h.respond(w, http.StatusOK, appt)
}

func (h *Handler) healthRecord(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	if h.records == nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	// Read access rides on the appointment's own authorization.
	if _, err := h.svc.Get(r.Context(), actor, id); err != nil {
		h.fail(w, "get appointment", err)
		return
	}
	rec, err := h.records.GetByAppointment(r.Context(), id)
	if err != nil {
		h.fail(w, "get health record", err)
		return
	}
	h.respond(w, http.StatusOK, rec)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (Actor, bool) {
	id, err := uuid.Parse(r.Header.Get(headerActorID))
	if err != nil {
		http.Error(w, "missing or invalid actor identity", http.StatusUnauthorized)
		return Actor{}, false
	}
	role := Role(r.Header.Get(headerActorRole))
	if !validRole(role) {
		http.Error(w, "missing or invalid actor role", http.StatusUnauthorized)
		return Actor{}, false
	}
	return Actor{ID: id, Role: role}, true
}

func (h *Handler) appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("appointments handler: "+op, "error", err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}
