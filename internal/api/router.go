package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/auth"
	"github.com/hackgods/carehome-allocation/internal/carehome"
)

type RouterConfig struct {
	Service  *carehome.Service
	Tokens   *auth.Tokens
	Staff    StaffDirectory
	Postgres Pinger        // optional
	Redis    *redis.Client // optional
	Metrics  http.Handler  // optional, served at /metrics
	Logger   *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))

	// Health endpoints
	health := NewHealthHandler(cfg.Postgres, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Tokens, cfg.Staff))

		// Patients and beds
		r.Post("/patients", admitPatientHandler(cfg.Service))
		r.Get("/patients/{id}/bed", patientBedHandler(cfg.Service))
		r.Post("/patients/{id}/move", movePatientHandler(cfg.Service))
		r.Get("/patients/{id}/can-move", canMoveHandler(cfg.Service))
		r.Post("/patients/{id}/discharge", dischargePatientHandler(cfg.Service))
		r.Get("/beds", listBedsHandler(cfg.Service))
		r.Get("/beds/available", availableBedsHandler(cfg.Service))

		// Shifts
		r.Post("/shifts", assignShiftHandler(cfg.Service))
		r.Delete("/shifts/{id}", unassignShiftHandler(cfg.Service))
		r.Get("/staff/{id}/shifts", staffShiftsHandler(cfg.Service))

		// Staff and medication
		r.Post("/staff", addStaffHandler(cfg.Service))
		r.Post("/patients/{id}/prescriptions", addPrescriptionHandler(cfg.Service))
		r.Get("/patients/{id}/prescriptions", patientPrescriptionsHandler(cfg.Service))
		r.Post("/prescriptions/{id}/administrations", administerMedicationHandler(cfg.Service))
		r.Get("/prescriptions/{id}/administrations", administrationsHandler(cfg.Service))
	})

	return r
}
