package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/docview/internal/build"
	"github.com/dgallion1/docview/internal/config"
	"github.com/dgallion1/docview/internal/docstore"
	"github.com/dgallion1/docview/internal/lazy"
	"github.com/dgallion1/docview/internal/live"
	"github.com/dgallion1/docview/internal/metrics"
	"github.com/dgallion1/docview/internal/render"
	"github.com/dgallion1/docview/internal/view"
)

// Deps are the process-scoped stores and renderers the server reads from.
type Deps struct {
	Store   *docstore.Store
	Cards   *docstore.CardStore
	Code    *lazy.CodeRenderer
	Math    *lazy.MathRenderer
	Metrics *metrics.Collector
	// Builds is optional; without it the build endpoints are not mounted.
	Builds *build.Runner
}

// Server is the HTTP server for docview.
type Server struct {
	router   chi.Router
	deps     Deps
	renderer *render.Renderer
	pages    *view.Pages
	live     *live.Handler
	theme    lazy.Theme
	log      *slog.Logger
	cfg      config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) (*Server, error) {
	pages, err := view.NewPages()
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	theme := lazy.ParseTheme(cfg.DefaultTheme, lazy.ThemeLight)
	renderer := render.New(deps.Code, deps.Math, theme, log.With("component", "render"))

	s := &Server{
		deps:     deps,
		renderer: renderer,
		pages:    pages,
		theme:    theme,
		log:      log,
		cfg:      cfg,
	}
	s.live = live.NewHandler(deps.Store, renderer, s.leafDone(), theme, deps.Metrics, log.With("component", "live"))
	s.setupRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.deps.Metrics))

	// Public endpoints.
	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Get("/read/{pk}", s.handleRead)
	r.Handle("/live", s.live)

	r.Get("/api/docs", s.handleListDocs)
	r.Get("/api/docs/{pk}", s.handleGetDoc)
	r.Get("/api/docs/{pk}/catalogue", s.handleCatalogue)
	r.Get("/api/cards", s.handleListCards)
	r.Get("/api/cards/{key}", s.handleGetCard)

	r.Get("/assets/code.css", s.handleCodeCSS)
	r.Get("/assets/math.css", s.handleMathCSS)
	r.Handle("/assets/*", http.StripPrefix("/assets", view.Assets()))

	if s.cfg.StaticDir != "" {
		static := http.FileServer(http.Dir(s.cfg.StaticDir))
		r.Handle("/docs/*", static)
		r.Handle("/data/*", static)
	}

	// Authenticated endpoints.
	if s.cfg.AdminAPIKey != "" {
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.cfg.AdminAPIKey, s.log))

			r.Handle("/metrics", s.deps.Metrics.Handler())
			if s.deps.Builds != nil {
				r.Post("/api/build", s.handleStartBuild)
				r.Get("/api/build", s.handleBuildStatus)
			}
		})
	} else {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
