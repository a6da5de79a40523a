// Package server exposes the research engine over HTTP for writing-tool
// frontends: research runs, memory packs, cards, answers, and a websocket
// progress stream.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/yuin/goldmark"

	"github.com/plotforge/plotforge/internal/cards"
	"github.com/plotforge/plotforge/internal/config"
	"github.com/plotforge/plotforge/internal/importer"
	"github.com/plotforge/plotforge/internal/memorypack"
	"github.com/plotforge/plotforge/internal/session"
)

// Server serves the HTTP and websocket API.
type Server struct {
	cfg        *config.Config
	session    *session.Session
	cards      *cards.Store
	packs      *memorypack.Store
	importer   *importer.Importer
	markdown   goldmark.Markdown
	upgrader   websocket.Upgrader
	router     chi.Router
	httpServer *http.Server
}

// New creates a server over the given collaborators.
func New(cfg *config.Config, sess *session.Session, cardStore *cards.Store,
	packStore *memorypack.Store, imp *importer.Importer) *Server {
	s := &Server{
		cfg:      cfg,
		session:  sess,
		cards:    cardStore,
		packs:    packStore,
		importer: imp,
		markdown: goldmark.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     allowOrigin(cfg.Server.AllowedOrigins),
		},
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/projects/{projectID}", func(r chi.Router) {
		r.Post("/import", s.handleImport)

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", s.handleListCards)
			r.Put("/", s.handleUpsertCard)
			r.Delete("/{kind}/{name}", s.handleDeleteCard)
		})

		r.Route("/chapters/{chapter}", func(r chi.Router) {
			r.Post("/research", s.handleResearch)
			r.Get("/pack", s.handleGetPack)
			r.Get("/pack/preview", s.handlePackPreview)
			r.Post("/answers", s.handleSubmitAnswers)
		})
	})

	r.Get("/ws/projects/{projectID}/chapters/{chapter}/research", s.handleResearchWS)

	return r
}

// Router exposes the router for tests.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured address.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Printf("plotforge server listening on %s", s.cfg.Server.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// allowOrigin matches the websocket origin check against the configured CORS
// origins. A "*" entry allows everything.
func allowOrigin(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	all := false
	for _, o := range origins {
		if o == "*" {
			all = true
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return all || origin == "" || allowed[origin]
	}
}
