// Package server exposes query resolution over HTTP so a browser can use
// ducky as its search engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joss/ducky/internal/redirect"
	"github.com/joss/ducky/internal/store"
)

// ShutdownTimeout bounds graceful shutdown of in-flight requests.
const ShutdownTimeout = 5 * time.Second

// RecentLister lists recently used bang tokens, newest first.
type RecentLister interface {
	List(ctx context.Context) ([]string, error)
}

// Server serves redirects and the JSON API.
type Server struct {
	redirect *redirect.Service
	recent   RecentLister
	health   store.Store
	metrics  http.Handler
	log      *zap.Logger
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithRecent sets the source for the home page and /api/recent.
func WithRecent(r RecentLister) Option {
	return func(s *Server) { s.recent = r }
}

// WithHealth sets the store pinged by /health.
func WithHealth(st store.Store) Option {
	return func(s *Server) { s.health = st }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds the router.
func New(svc *redirect.Service, opts ...Option) *Server {
	s := &Server{redirect: svc, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("server")

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.accessLog)
	r.Use(s.recoverer)

	r.Get("/", s.handleSearch)
	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/resolve", s.handleResolve)
		r.Get("/recent", s.handleRecent)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	s.router = r
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.log.Info("listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutCtx)
	if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) && err == nil {
		err = serveErr
	}
	s.log.Info("stopped")
	return err
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d := s.redirect.Decide(r.Context(), q.Get("q"), q.Get("default_bang"))

	switch d.Action {
	case redirect.ActionRedirect:
		http.Redirect(w, r, d.URL, http.StatusFound)
	case redirect.ActionRepeat:
		v := url.Values{"q": {d.Query}}
		if b := q.Get("default_bang"); b != "" {
			v.Set("default_bang", b)
		}
		http.Redirect(w, r, "/?"+v.Encode(), http.StatusFound)
	default:
		s.home(w, r)
	}
}

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	var sb strings.Builder
	sb.WriteString("ducky\n\n")
	sb.WriteString("Search with /?q=<query>. Use !bang to pick a site, a duckling keyword,\n")
	sb.WriteString("or a bang with an island suffix such as !gha.\n")
	if tokens := s.recentTokens(r.Context()); len(tokens) > 0 {
		sb.WriteString("\nRecent bangs:")
		for _, t := range tokens {
			sb.WriteString(" !" + t)
		}
		sb.WriteString("\n")
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sb.String()))
}

func (s *Server) recentTokens(ctx context.Context) []string {
	if s.recent == nil {
		return nil
	}
	tokens, err := s.recent.List(ctx)
	if err != nil {
		s.log.Warn("list recent bangs", zap.Error(err))
		return nil
	}
	return tokens
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d := s.redirect.Decide(r.Context(), q.Get("q"), q.Get("default_bang"))
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	tokens := s.recentTokens(r.Context())
	if tokens == nil {
		tokens = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"recent": tokens})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
