package router

import (
	"net/http"

	"auto-atelier/internal/handler"
	"auto-atelier/internal/metrics"
	"auto-atelier/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	orderHandler *handler.OrderHandler,
	appointmentHandler *handler.AppointmentHandler,
	m *metrics.Metrics,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS)
	r.Use(middleware.APIKeyAuth(apiKey, logger))

	// Health check and metrics endpoints (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/slots", appointmentHandler.Slots)
		r.Get("/capacity", orderHandler.Capacity)
		r.Get("/customers/{id}/orders", orderHandler.ListByCustomer)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.Create)
			r.Get("/{id}", orderHandler.GetByID)
			r.Get("/{id}/appointments", appointmentHandler.ListByOrder)
			r.Post("/{id}/cancel", appointmentHandler.CancelOrder)
			r.With(middleware.RequireRole(logger, middleware.RoleAdmin, middleware.RoleAutoworker)).
				Put("/{id}/stages/{stage}", orderHandler.UpdateStage)
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", appointmentHandler.Book)
			r.Get("/{id}", appointmentHandler.GetByID)
			r.Put("/{id}", appointmentHandler.Reschedule)
			r.Post("/{id}/cancel", appointmentHandler.Cancel)
			r.With(middleware.RequireRole(logger, middleware.RoleAdmin, middleware.RoleCashier)).
				Post("/{id}/payment", appointmentHandler.ConfirmPayment)
		})
	})

	return r
}
