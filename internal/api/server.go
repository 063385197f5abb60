// Package api exposes the booking core over HTTP: a guest API, an admin API
// behind an API key, and a Server-Sent Events stream of booking events.
package api

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"hotelbook/internal/availability"
	"hotelbook/internal/booking"
	"hotelbook/internal/database"
	"hotelbook/internal/events"
	"hotelbook/internal/inventory"
	"hotelbook/internal/metrics"
	"hotelbook/internal/report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Deps are the components the API serves.
type Deps struct {
	DB       *database.DB
	Bookings *booking.Service
	Ledger   *inventory.Ledger
	Calendar *availability.Calendar
	Hub      *events.Hub
	Reports  *report.Exporter
}

type Server struct {
	deps      Deps
	apiKey    string
	sseBuffer int
	heartbeat time.Duration
	validate  *validator.Validate
	logger    zerolog.Logger
	router    chi.Router
}

// NewServer builds the router. An empty apiKey disables the admin API.
func NewServer(deps Deps, apiKey string, sseBuffer int, logger *zerolog.Logger) *Server {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonTagName)

	s := &Server{
		deps:      deps,
		apiKey:    apiKey,
		sseBuffer: sseBuffer,
		heartbeat: 15 * time.Second,
		validate:  validate,
		logger:    logger.With().Str("component", "api").Logger(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Route("/api", func(r chi.Router) {
		r.Get("/room-types", s.handleListRoomTypes)
		r.Get("/room-types/{id}/availability", s.handleAvailability)
		r.Post("/bookings", s.handleCreateBooking)
		r.Get("/bookings/{reference}", s.handleGuestBooking)
		r.Post("/bookings/{reference}/cancel", s.handleGuestCancel)
		r.Get("/events", s.handleEvents)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAPIKey)
			r.Put("/room-types", s.handleUpsertRoomType)
			r.Put("/room-types/{id}/inventory", s.handleInventoryOverride)
			r.Get("/bookings", s.handleListBookings)
			r.Get("/bookings/{id}", s.handleAdminBooking)
			r.Post("/bookings/{id}/{action}", s.handleBookingAction)
			r.Delete("/bookings/{id}", s.handleDeleteBooking)
			r.Get("/reports/inventory.xlsx", s.handleInventoryReport)
		})
	})
	return r
}

// accessLog logs each request and counts it by route pattern and status.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.IncHTTP(route, strconv.Itoa(status))

		ev := s.logger.Debug()
		if status >= http.StatusInternalServerError {
			ev = s.logger.Error()
		}
		ev.Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(started)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Api-Key")
		if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
