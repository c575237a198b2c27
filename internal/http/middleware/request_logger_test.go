package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	req.Header.Set("X-Actor-Role", "owner")
	rr := httptest.NewRecorder()

	RequestLogger(nil)(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status passthrough, got %d", rr.Code)
	}
	if rr.Body.String() != "short and stout" {
		t.Fatalf("unexpected body %q", rr.Body.String())
	}
}
