// Package server wraps the reconciliation core behind the smallest
// possible HTTP stand-in for the out-of-scope UI collaborator spec.md §1
// names: one route that accepts two row arrays and a reconciliation
// document, and returns verdicts.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/gmhafiz/reconcile/config"
	"github.com/gmhafiz/reconcile/internal/middleware"
	"github.com/gmhafiz/reconcile/internal/rates"
	"github.com/gmhafiz/reconcile/internal/utility/respond"
)

// Version is the server build identifier reported at /version.
const Version = "v0.1.0"

// Server holds the router and the collaborators handlers need.
type Server struct {
	router    *chi.Mux
	cfg       *config.Config
	validator *validator.Validate
	rates     rates.Provider
}

// New builds a Server wired against cfg and the given rate provider.
func New(cfg *config.Config, rateProv rates.Provider) *Server {
	return &Server{
		router:    chi.NewRouter(),
		cfg:       cfg,
		validator: validator.New(),
		rates:     rateProv,
	}
}

// Router returns the configured http.Handler, ready to serve.
func (s *Server) Router() http.Handler {
	return s.router
}

// InitRoutes registers every route and middleware this server exposes.
func (s *Server) InitRoutes() {
	if s.cfg.API.RequestLog {
		s.router.Use(middleware.RequestLog)
	}
	s.router.Use(middleware.Cors(s.cfg.Cors))

	s.router.Route("/version", func(r chi.Router) {
		r.Use(middleware.JSON)
		r.Get("/", s.version)
	})

	h := NewReconcileHandler(s.validator, s.rates)
	s.router.Route("/api/v1/reconcile", func(r chi.Router) {
		r.Use(middleware.JSON)
		r.Post("/", h.Reconcile)
	})
}

func (s *Server) version(w http.ResponseWriter, _ *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"version": Version})
}
