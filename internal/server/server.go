// Package server exposes a session over HTTP and streams weekly digests over
// a websocket.
package server

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"slot-parlor/internal/observability"
	"slot-parlor/internal/session"
)

// Config holds server configuration
type Config struct {
	Port        int
	Log         zerolog.Logger
	Session     *session.Session
	CORSOrigins []string // nil or "*" allows any origin
	Metrics     bool     // serve /metrics
	Hub         HubConfig
}

// Server represents the HTTP server. It serializes access to the session:
// status and catalog reads share the lock; trades, quotes, views and week
// changes take it exclusively because they may draw cached market prices.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	hub    *Hub
	port   int

	mu      sync.RWMutex
	session *session.Session
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	hubCfg := cfg.Hub
	if hubCfg.PingInterval <= 0 {
		hubCfg = DefaultHubConfig()
	}

	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		session: cfg.Session,
		port:    cfg.Port,
	}
	s.hub = NewHub(hubCfg, originChecker(cfg.CORSOrigins), cfg.Log)

	s.setupMiddleware(cfg.CORSOrigins)
	s.setupRoutes(cfg.Metrics)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(origins []string) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(metrics bool) {
	// Health check
	s.router.Get("/health", s.handleHealth)

	if metrics {
		s.router.Handle("/metrics", observability.Handler())
	}

	// Digest stream
	s.router.Get("/ws/digest", s.handleDigestStream)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/status", s.handleStatus)
		r.Get("/stats", s.handleStats)
		r.Get("/digest", s.handleDigest)

		r.Route("/machines", func(r chi.Router) {
			r.Get("/", s.handleListMachines)
			r.Get("/{id}", s.handleGetMachine)
			r.Get("/{id}/history", s.handleMachineHistory)
		})

		r.Post("/week/advance", s.handleAdvanceWeek)
		r.Post("/reset", s.handleReset)

		r.Route("/quotes", func(r chi.Router) {
			r.Get("/purchase", s.handleQuotePurchase)
			r.Get("/resale", s.handleQuoteResale)
		})

		r.Route("/trades", func(r chi.Router) {
			r.Get("/", s.handleListTrades)
			r.Post("/purchase", s.handlePurchase)
			r.Post("/sale", s.handleSale)
		})

		r.Get("/portfolio", s.handlePortfolio)

		r.Route("/export", func(r chi.Router) {
			r.Get("/catalog.csv", s.handleExportCatalog)
			r.Get("/trades.csv", s.handleExportTrades)
			r.Get("/report.md", s.handleExportReport)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server and disconnects digest subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	err := s.server.Shutdown(ctx)
	s.hub.Close()
	return err
}

// AdvanceWeek advances the session one week and pushes the digest to
// subscribers. The scheduler calls it on each tick.
func (s *Server) AdvanceWeek(ctx context.Context) (*session.WeekReport, error) {
	s.mu.Lock()
	report, err := s.session.AdvanceWeek(ctx)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.hub.Broadcast(Event{Type: EventWeek, Payload: toWeek(report)})
	return report, nil
}

// Reset restarts the session and tells subscribers.
func (s *Server) Reset(ctx context.Context) (session.Status, error) {
	s.mu.Lock()
	err := s.session.Reset(ctx)
	status := s.session.Status()
	s.mu.Unlock()
	if err != nil {
		return session.Status{}, err
	}

	s.hub.Broadcast(Event{Type: EventReset, Payload: toStatus(status)})
	return status, nil
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		observability.RecordHTTPRequest(route, r.Method, ww.Status(), time.Since(start).Seconds())

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 || slices.Contains(origins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
