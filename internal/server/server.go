// Package server is the HTTP shell that mounts rendered posts: a listing,
// one page per post, the stylesheet, a JSON API and a live preview endpoint.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"

	tex2html "github.com/alnah/go-tex2html"
	"github.com/alnah/go-tex2html/internal/posts"
)

// Defaults for Options.
const (
	DefaultCacheSize   = 128
	maxPreviewBytes    = 1 << 20
	maxPreviewSessions = 256
)

// Renderer is what the server needs from a converter.
type Renderer interface {
	tex2html.Renderer
	RenderPage(ctx context.Context, res *tex2html.Result, meta tex2html.PageMeta) (string, error)
	RenderErrorPage(ctx context.Context, cause error, meta tex2html.PageMeta) (string, error)
	RenderIndex(ctx context.Context, entries []tex2html.IndexEntry, meta tex2html.PageMeta) (string, error)
	Stylesheet() string
	EngineReady() bool
}

// Compile-time interface implementation check.
var _ Renderer = (*tex2html.Converter)(nil)

// Options configures a Server.
type Options struct {
	Title     string // listing page title
	Lang      string
	CacheSize int // rendered fragments kept in memory; 0 disables caching
}

// Server serves posts rendered on demand.
type Server struct {
	router   chi.Router
	conv     Renderer
	store    *posts.Store
	log      *slog.Logger
	opts     Options
	cache    *lru.Cache[string, *tex2html.Result] // nil when caching is off
	sessions *lru.Cache[string, *tex2html.Session]
}

// New creates and configures the HTTP server.
func New(conv Renderer, store *posts.Store, log *slog.Logger, opts Options) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		conv:     conv,
		store:    store,
		log:      log,
		opts:     opts,
		cache:    newCache[*tex2html.Result](opts.CacheSize),
		sessions: newCache[*tex2html.Session](maxPreviewSessions),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/assets/latex.css", s.handleStylesheet)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/posts", http.StatusFound)
	})
	r.Get("/posts", s.handleIndex)
	r.Get("/posts/{slug}", s.handlePost)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", s.handleListPosts)
		r.Get("/posts/{slug}", s.handleGetPost)
		r.Post("/preview", s.handlePreview)
	})

	s.router = r
}

// HTTPServer wraps handler with the timeouts used in production.
func HTTPServer(addr string, handler http.Handler, renderTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      renderTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
