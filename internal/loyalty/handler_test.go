package loyalty

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPreviewServer(t *testing.T, history HistoryFunc) *httptest.Server {
	t.Helper()
	detector, _ := newTestDetector(t)
	r := chi.NewRouter()
	r.Route("/api/v1/owners/{ownerID}", NewHandler(detector, history, nil).RegisterRoutes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestPreviewEndpoint(t *testing.T) {
	history := func(ctx context.Context, ownerID uuid.UUID) ([]time.Time, error) {
		return []time.Time{day(2026, 4, 21)}, nil
	}
	srv := newPreviewServer(t, history)

	resp, err := http.Get(srv.URL + "/api/v1/owners/" + uuid.NewString() + "/discount?date=2026-05-01")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, Result{Percent: 20, Rule: RuleRecentVisit}, result)
}

func TestPreviewValidation(t *testing.T) {
	srv := newPreviewServer(t, func(ctx context.Context, ownerID uuid.UUID) ([]time.Time, error) {
		return nil, nil
	})

	resp, err := http.Get(srv.URL + "/api/v1/owners/not-a-uuid/discount")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/owners/" + uuid.NewString() + "/discount?date=May-1")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
