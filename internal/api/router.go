package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Service  SchedulingService
	Catalog  CatalogLister
	Registry RegistryBrowser
	PgPool   Pinger
	Redis    *redis.Client
	Logger   zerolog.Logger
	// Metrics defaults to the default Prometheus registry handler.
	Metrics http.Handler
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metrics)

	// Patient identity
	r.Post("/patients/resolve", resolvePatientHandler(cfg.Service))
	r.Get("/contacts/{userID}/profiles", contactProfilesHandler(cfg.Service))

	// Availability
	r.Get("/catalog", catalogHandler(cfg.Catalog))
	r.Get("/slots/{slug}", slotsHandler(cfg.Service))

	// Appointment lifecycle
	r.Route("/profiles/{profileID}", func(r chi.Router) {
		r.Get("/appointments", listAppointmentsHandler(cfg.Service))
		r.Post("/appointments", bookAppointmentHandler(cfg.Service))
		r.Delete("/appointments/{appointmentID}", cancelAppointmentHandler(cfg.Service))
		r.Get("/events", listEventsHandler(cfg.Service))
	})

	// Registry reference data
	r.Route("/registry", func(r chi.Router) {
		r.Get("/districts", districtsHandler(cfg.Registry))
		r.Get("/districts/{districtID}/facilities", facilitiesHandler(cfg.Registry))
		r.Get("/facilities/{facilityID}/specialties", specialtiesHandler(cfg.Registry))
		r.Get("/facilities/{facilityID}/specialties/{specialtyID}/doctors", doctorsHandler(cfg.Registry))
	})

	return r
}
