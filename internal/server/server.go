package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/lexintake/lexintake/internal/intake"
	"github.com/lexintake/lexintake/internal/llm"
	"github.com/lexintake/lexintake/internal/processlog"
	"github.com/lexintake/lexintake/internal/session"
	"github.com/lexintake/lexintake/internal/summary"
)

// Config holds server configuration.
type Config struct {
	Port     int
	APIKey   string // static X-API-Key value; empty disables the check
	AllowAll bool   // allow all CORS origins (dev mode)
}

// Server exposes the intake engine over HTTP and WebSocket.
type Server struct {
	cfg        Config
	engine     *intake.Engine
	sessions   *session.Store
	summaries  *summary.Store
	logs       *processlog.Recorder
	costs      *llm.CostTracker
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies. summaries, logs and
// costs may be nil; the affected routes degrade accordingly.
func New(cfg Config, engine *intake.Engine, sessions *session.Store, summaries *summary.Store, logs *processlog.Recorder, costs *llm.CostTracker) *Server {
	s := &Server{
		cfg:       cfg,
		engine:    engine,
		sessions:  sessions,
		summaries: summaries,
		logs:      logs,
		costs:     costs,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireAPIKey)

		r.Post("/chat/start", s.handleStart)
		r.Post("/chat/message", s.handleMessage)
		r.Post("/chat/end", s.handleEnd)
		r.Get("/chat/sessions/{id}", s.handleGetSession)
		r.Get("/chat/sessions/{id}/logs", s.handleGetLogs)
		r.Get("/chat/ws", s.handleWebSocket)
	})

	return r
}

// requireAPIKey rejects requests whose X-API-Key header does not match
// the configured key. An empty configured key disables the check.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIKey != "" && r.Header.Get("X-API-Key") != s.cfg.APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("lexintake server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
