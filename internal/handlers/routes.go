package handlers

import (
	"net/http"

	"flight_routes/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts the flight API, health check and metrics endpoint.
func NewRouter(h *FlightHandler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Cache"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	RegisterFlightRoutes(r, h)
	return r
}

func RegisterFlightRoutes(r chi.Router, h *FlightHandler) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/routes", h.FindRoutes)
		r.Post("/create", h.CreateFlight)
		r.Post("/bulkcreate", h.BulkCreateFlights)
		r.Get("/flights", h.ListFlights)
		r.Delete("/flights", h.DeleteAllFlights)
	})
}
