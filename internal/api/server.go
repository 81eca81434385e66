// Package api exposes the packup HTTP API.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vietddude/packup/internal/core/config"
	"github.com/vietddude/packup/internal/core/domain"
	"github.com/vietddude/packup/internal/health"
	"github.com/vietddude/packup/internal/infra/identity"
	"github.com/vietddude/packup/internal/infra/storage"
	"github.com/vietddude/packup/internal/pipeline"
	"github.com/vietddude/packup/internal/service/chat"
	"github.com/vietddude/packup/internal/service/itinerary"
	"github.com/vietddude/packup/internal/service/travel"
)

type ItineraryService interface {
	Generate(ctx context.Context, userID string, req itinerary.Request, op string) (*itinerary.Result, error)
}

type TravelService interface {
	Search(ctx context.Context, req domain.SearchRequest, op string) (*travel.Result, error)
}

type ChatService interface {
	Reply(ctx context.Context, req chat.Request, op string) (*chat.Reply, error)
}

type PrivacyService interface {
	Export(ctx context.Context, userID string) (*domain.UserExport, error)
	Delete(ctx context.Context, userID, op string) (domain.DeleteCounts, error)
}

type LogService interface {
	Ingest(ctx context.Context, record map[string]any) (string, error)
}

type ImageRunner interface {
	Run(ctx context.Context, query string, opts pipeline.Options) (*domain.PersistedAsset, error)
}

// Deps are the services behind the routes.
type Deps struct {
	Identity    identity.Resolver
	Itineraries ItineraryService
	Travel      TravelService
	Chat        ChatService
	Privacy     PrivacyService
	Logs        LogService
	Images      ImageRunner
	Trips       storage.TripRepository
	Events      storage.EventRepository
	Health      *health.Monitor
}

// Server serves the API.
type Server struct {
	deps   Deps
	router chi.Router
	server *http.Server
}

// NewServer builds the router.
func NewServer(cfg config.ServerConfig, deps Deps) *Server {
	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(withOperationID)
	r.Use(instrument)

	r.Get("/health", s.handleHealth)
	r.Get("/health/providers", s.handleHealthDetailed)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(corsHandler(cfg.CORSOrigins))

		r.Group(func(r chi.Router) {
			r.Use(optionalUser(deps.Identity))
			r.Post("/chat", s.handleChat)
			r.Get("/flights/search", s.handleSearch(domain.OfferFlight))
			r.Get("/hotels/search", s.handleSearch(domain.OfferHotel))
			r.Get("/activities/search", s.handleSearch(domain.OfferActivity))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireUser(deps.Identity))
			r.Post("/itinerary", s.handleItinerary)
			r.Get("/debug/image", s.handleDebugImage)
			r.Post("/db/trips", s.handleCreateTrip)
			r.Get("/db/trips/{id}/pdf", s.handleTripPDF)
			r.Get("/privacy/export", s.handlePrivacyExport)
			r.Delete("/privacy/delete", s.handlePrivacyDelete)
		})

		r.Get("/db/ping", s.handleDBPing)
		r.Post("/logs/ingest", s.handleLogIngest)
	})

	s.router = r
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "X-Requested-With", "Content-Type", HeaderOperationID},
		ExposedHeaders:   []string{HeaderOperationID, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": string(health.StatusHealthy)})
		return
	}
	report := s.deps.Health.CheckHealth(r.Context())
	status := http.StatusOK
	if report.SystemStatus == health.StatusCritical {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"status": string(report.SystemStatus)})
}

func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, http.StatusOK, health.Report{SystemStatus: health.StatusHealthy, CheckedAt: time.Now().UTC()})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Health.CheckHealth(r.Context()))
}
