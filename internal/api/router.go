package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/solacemind/clinic-scheduling/internal/appointment"
	"github.com/solacemind/clinic-scheduling/internal/availability"
	"github.com/solacemind/clinic-scheduling/internal/screening"
	"github.com/solacemind/clinic-scheduling/internal/triage"
)

type RouterConfig struct {
	Availability *availability.Service
	Triage       *triage.Service
	Screening    *screening.Service
	Appointments *appointment.Service
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public booking surface
	r.Get("/public/slots", listBookableSlotsHandler(cfg.Availability))
	r.Post("/public/triage", submitTriageHandler(cfg.Triage))

	// Availability management
	r.Route("/availability", func(r chi.Router) {
		r.Post("/slots", createSlotHandler(cfg.Availability))
		r.Post("/slots/generate", generateSlotsHandler(cfg.Availability))
		r.Get("/slots", listSlotsHandler(cfg.Availability))
		r.Put("/slots/{id}", editSlotHandler(cfg.Availability))
		r.Delete("/slots/{id}", deleteSlotHandler(cfg.Availability))
	})

	// Triage records
	r.Route("/triage", func(r chi.Router) {
		r.Get("/", listTriageHandler(cfg.Triage))
		r.Get("/{id}", getTriageHandler(cfg.Triage))
		r.Post("/{id}/not-confirmed", markTriageNotConfirmedHandler(cfg.Triage))
		r.Post("/{id}/reopen", reopenTriageHandler(cfg.Triage))
	})

	// Screening bookings
	r.Route("/screenings", func(r chi.Router) {
		r.Post("/", requestBookingHandler(cfg.Screening))
		r.Get("/", listScreeningsHandler(cfg.Screening))
		r.Get("/{id}", getScreeningHandler(cfg.Screening))
		r.Post("/{id}/confirm", confirmBookingHandler(cfg.Screening))
		r.Post("/{id}/reschedule", rescheduleBookingHandler(cfg.Screening))
		r.Post("/{id}/cancel", cancelBookingHandler(cfg.Screening))
	})

	// Recurring appointments
	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createSeriesHandler(cfg.Appointments))
		r.Get("/", listAppointmentsHandler(cfg.Appointments))
		r.Get("/pending-review", pendingReviewHandler(cfg.Appointments))
		r.Get("/{id}", getAppointmentHandler(cfg.Appointments))
		r.Get("/{id}/ical", appointmentICalHandler(cfg.Appointments))
		r.Post("/{id}/status", updateAppointmentStatusHandler(cfg.Appointments))
		r.Post("/{id}/reschedule", rescheduleAppointmentHandler(cfg.Appointments))
	})

	return r
}
