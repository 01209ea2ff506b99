package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/me/partnerportal/internal/config"
	"github.com/me/partnerportal/internal/portal"
	"github.com/me/partnerportal/internal/store"
	"github.com/me/partnerportal/internal/sweeper"
	"github.com/me/partnerportal/internal/ui"
)

// Version is reported by the health and discovery endpoints.
const Version = "0.3.0"

// Server is the partner portal HTTP server: HTML pages plus the JSON API.
type Server struct {
	router    chi.Router
	logger    *slog.Logger
	config    config.ServerConfig
	startTime time.Time
	store     store.Store
	service   *portal.Service
	sweeper   *sweeper.Loop // optional; nil disables background maintenance
	sweeping  atomic.Bool
	ui        *ui.UI
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithSweeper sets the maintenance loop started by StartSweeper.
func WithSweeper(l *sweeper.Loop) Option {
	return func(s *Server) {
		s.sweeper = l
	}
}

// New creates a new Server with all routes registered.
func New(cfg config.ServerConfig, st store.Store, svc *portal.Service, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger.With("component", "server"),
		config:    cfg,
		startTime: time.Now(),
		store:     st,
		service:   svc,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ui = ui.New(svc, st, logger, ui.Config{
		Secure:     cfg.SecureCookies,
		SessionTTL: cfg.SessionTTL,
	})

	s.routes()
	return s
}

// StartSweeper begins the maintenance loop in a background goroutine.
func (s *Server) StartSweeper(ctx context.Context) {
	if s.sweeper == nil {
		return
	}
	s.sweeping.Store(true)
	go func() {
		defer s.sweeping.Store(false)
		if err := s.sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("sweeper stopped", "error", err)
		}
	}()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := s.router

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	// UI routes (HTML)
	s.ui.RegisterRoutes(r)

	// API routes (JSON)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", s.handleDiscovery)
		r.Get("/health", s.handleHealth)

		// Catalog (no session required)
		r.Get("/catalog", s.handleCatalog)
		r.Get("/manufacturers/normalize", s.handleNormalize)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/otp", s.handleRequestOTP)
			r.Post("/verify", s.handleVerifyOTP)
			r.With(s.apiAuthMiddleware).Post("/logout", s.handleLogout)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.apiAuthMiddleware)

			r.Get("/me", s.handleMe)
			r.Route("/onboardings", func(r chi.Router) {
				r.Get("/", s.handleListOnboardings)
				r.Route("/{clientID}", func(r chi.Router) {
					r.Get("/", s.handleGetOnboarding)
					r.Get("/progress", s.handleGetProgress)
					r.Get("/timeline", s.handleGetTimeline)
					r.Put("/fields/{fieldKey}", s.handleUpdateField)
					r.Get("/notes", s.handleListNotes)
					r.Post("/notes", s.handleAddNote)
					r.Get("/ion/orders", s.handleListIONOrders)
					r.Get("/ion/subscriptions", s.handleListIONSubscriptions)
				})
			})
		})
	})
}
