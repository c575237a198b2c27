package appointments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vetcare/vetclinic-platform/internal/healthrecords"
)

type fakeRecords struct {
	record *healthrecords.HealthRecord
	err    error
}

func (f *fakeRecords) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*healthrecords.HealthRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

func newTestServer(t *testing.T, f *fixture, records RecordFetcher) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	h := NewHandler(f.svc, records, nil)
	r.Route("/api/v1/appointments", h.RegisterRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, actor *Actor, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if actor != nil {
		req.Header.Set(headerActorID, actor.ID.String())
		req.Header.Set(headerActorRole, string(actor.Role))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHandlerCreate(t *testing.T) {
	f := newFixture(t)
	srv := newTestServer(t, f, nil)

	owner := f.owner()
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments", &owner, f.createInput())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var appt Appointment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&appt))
	assert.Equal(t, StatusPendingRequest, appt.Status)
	assert.Equal(t, "09:50", appt.ExpectedEndTime)
}

func TestHandlerRequiresActorIdentity(t *testing.T) {
	f := newFixture(t)
	srv := newTestServer(t, f, nil)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments", nil, f.createInput())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	bogus := Actor{ID: f.ownerID, Role: Role("superuser")}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/appointments", &bogus, f.createInput())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlerCancel(t *testing.T) {
	f := newFixture(t)
	srv := newTestServer(t, f, nil)
	appt := f.book(t)

	owner := f.owner()
	url := fmt.Sprintf("%s/api/v1/appointments/%s/cancel", srv.URL, appt.ID)

	resp := doJSON(t, http.MethodPost, url, &owner, map[string]string{"reason": "bored"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, url, &owner, map[string]string{"reason": "travel"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got Appointment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestHandlerUpdateCompletionReturnsRecord(t *testing.T) {
	f := newFixture(t)
	srv := newTestServer(t, f, nil)
	appt := f.book(t)

	clinic := f.clinic()
	url := fmt.Sprintf("%s/api/v1/appointments/%s", srv.URL, appt.ID)
	resp := doJSON(t, http.MethodPatch, url, &clinic, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Appointment  *Appointment               `json:"appointment"`
		HealthRecord *healthrecords.HealthRecord `json:"health_record"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, StatusCompleted, body.Appointment.Status)
	require.NotNil(t, body.HealthRecord)
	assert.Equal(t, appt.ID, body.HealthRecord.AppointmentID)
}

func TestHandlerRescheduleRoundTrip(t *testing.T) {
	f := newFixture(t)
	srv := newTestServer(t, f, nil)
	appt := f.book(t)
	owner, clinic := f.owner(), f.clinic()

	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/v1/appointments/%s/reschedule", srv.URL, appt.ID), &owner,
		ProposeRescheduleInput{Date: time.Date(2026, 4, 22, 0, 0, 0, 0, time.UTC), StartTime: "11:00"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var proposed Appointment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&proposed))
	require.Len(t, proposed.Reschedules, 1)

	respondURL := fmt.Sprintf("%s/api/v1/appointments/%s/reschedule/%s/respond",
		srv.URL, appt.ID, proposed.Reschedules[0].ID)
	resp = doJSON(t, http.MethodPost, respondURL, &clinic, map[string]bool{"approve": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Second response conflicts.
	resp = doJSON(t, http.MethodPost, respondURL, &clinic, map[string]bool{"approve": false})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHandlerDelete(t *testing.T) {
	f := newFixture(t)
	srv := newTestServer(t, f, nil)
	appt := f.book(t)

	admin := Actor{ID: uuid.New(), Role: RoleAdmin}
	url := fmt.Sprintf("%s/api/v1/appointments/%s", srv.URL, appt.ID)
	resp := doJSON(t, http.MethodDelete, url, &admin, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	owner := f.owner()
	resp = doJSON(t, http.MethodGet, url, &owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerHealthRecord(t *testing.T) {
	f := newFixture(t)
	appt := f.book(t)
	records := &fakeRecords{record: &healthrecords.HealthRecord{ID: uuid.New(), AppointmentID: appt.ID}}
	srv := newTestServer(t, f, records)

	owner := f.owner()
	url := fmt.Sprintf("%s/api/v1/appointments/%s/health-record", srv.URL, appt.ID)
	resp := doJSON(t, http.MethodGet, url, &owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec healthrecords.HealthRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, appt.ID, rec.AppointmentID)
}
