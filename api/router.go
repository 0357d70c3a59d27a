package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter mounts the handler's endpoints. An empty corsOrigins allows
// any origin.
func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.GetHealth)

		r.Get("/agencies", h.withIndex(h.GetAgencies))
		r.Get("/agencies/{agencyID}", h.withIndex(h.GetAgency))
		r.Get("/agencies/{agencyID}/routes", h.withIndex(h.GetAgencyRoutes))

		r.Get("/routes", h.withIndex(h.GetRoutes))
		r.Get("/routes/{routeID}", h.withIndex(h.GetRoute))
		r.Get("/routes/{routeID}/trips", h.withIndex(h.GetRouteTrips))
		r.Get("/routes/{routeID}/trip-id", h.withIndex(h.GetRouteTripID))

		r.Get("/stops", h.withIndex(h.GetStops))
		r.Get("/stops/nearby", h.withIndex(h.GetStopsNearby))
		r.Get("/stops/{stopID}", h.withIndex(h.GetStop))
		r.Get("/stops/{stopID}/schedule", h.withIndex(h.GetStopSchedule))

		r.Get("/trips/{tripID}", h.withIndex(h.GetTrip))

		r.Get("/vehicle-positions", h.GetVehiclePositions)
		r.Get("/vehicle-positions/stream", h.StreamVehiclePositions)
	})
	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
