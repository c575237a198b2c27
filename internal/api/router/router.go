// Package router assembles the HTTP surface of the platform.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vetcare/vetclinic-platform/internal/appointments"
	"github.com/vetcare/vetclinic-platform/internal/catalog"
	"github.com/vetcare/vetclinic-platform/internal/clinic"
	httpmiddleware "github.com/vetcare/vetclinic-platform/internal/http/middleware"
	"github.com/vetcare/vetclinic-platform/internal/loyalty"
	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	AppointmentsHandler *appointments.Handler
	CatalogHandler      *catalog.Handler
	ClinicHandler       *clinic.Handler
	LoyaltyHandler      *loyalty.Handler
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string
}

// New creates a new chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", healthz)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.AppointmentsHandler != nil {
			api.Route("/appointments", cfg.AppointmentsHandler.RegisterRoutes)
		}
		api.Route("/clinics/{clinicID}", func(r chi.Router) {
			if cfg.CatalogHandler != nil {
				r.Route("/services", cfg.CatalogHandler.RegisterRoutes)
			}
			if cfg.ClinicHandler != nil {
				cfg.ClinicHandler.RegisterRoutes(r)
			}
		})
		if cfg.LoyaltyHandler != nil {
			api.Route("/owners/{ownerID}", cfg.LoyaltyHandler.RegisterRoutes)
		}
	})

	return r
}

func healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
