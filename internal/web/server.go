// Package web serves the two-role roadmap page: the student generates a
// roadmap, a parent or teacher reviews, revises and finalizes it.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/roadmap/internal/config"
	"github.com/hpungsan/roadmap/internal/logger"
	"github.com/hpungsan/roadmap/internal/roadmap"
	"github.com/hpungsan/roadmap/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options configures NewServer.
type Options struct {
	Service *roadmap.Service
	Store   session.Store
	Config  *config.Config
	Logger  *logger.Logger
	Version string
	Bind    string
	Port    int
}

// NewServer creates and configures the HTTP server for the roadmap UI.
func NewServer(opts Options) (*http.Server, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	h, err := newHandlers(opts.Service, opts.Store, cfg, log, opts.Version)
	if err != nil {
		return nil, err
	}

	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static sub-FS: %w", err)
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/student", http.StatusFound)
	})
	mux.HandleFunc("GET /student", h.HandleStudent)
	mux.HandleFunc("POST /student/generate", h.HandleGenerate)
	mux.HandleFunc("GET /reviewer", h.HandleReviewer)
	mux.HandleFunc("POST /reviewer/edit", h.HandleMakeChanges)
	mux.HandleFunc("POST /reviewer/regenerate", h.HandleRegenerate)
	mux.HandleFunc("POST /reviewer/finalize", h.HandleFinalize)
	mux.HandleFunc("GET /session", h.HandleSession)
	mux.HandleFunc("POST /session/reset", h.HandleReset)
	mux.HandleFunc("GET /healthz", h.HandleHealth)

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	handler := logRequests(log, securityHeaders(mux))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", opts.Bind, opts.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}

// newHandlers wires the handlers to their templates, store and cookies.
func newHandlers(svc *roadmap.Service, store session.Store, cfg *config.Config, log *logger.Logger, version string) (*Handlers, error) {
	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to create template sub-FS: %w", err)
	}
	if store == nil {
		store = session.NewMemoryStore()
	}

	secret := cfg.SessionSecret()
	if len(secret) == 0 {
		log.Warn("no session secret configured, cookies will not survive a restart", "env", cfg.SessionSecretEnv)
	}

	return &Handlers{
		service:  svc,
		store:    store,
		locker:   session.NewLocker(),
		cookies:  newSessionCookies(secret, cfg.CookieSecure),
		renderer: NewRenderer(templateSub, version, svc.Variant().String(), log),
		log:      log.With("component", "web"),
	}, nil
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// logRequests logs method, path, status and latency of each request.
func logRequests(log *logger.Logger, next http.Handler) http.Handler {
	log = log.With("component", "http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if strings.HasPrefix(r.URL.Path, "/static/") {
			return
		}
		log.Info("request", "method", r.Method, "path", r.URL.Path, "status", rec.status,
			"latency_ms", time.Since(start).Milliseconds())
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *logger.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info("roadmap UI running", "url", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		// In-flight completion calls may take a while
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
