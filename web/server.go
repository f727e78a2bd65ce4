// Package web serves the admin and user dashboards over HTTP.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/zalepa/crimedash/dashboard"
	"github.com/zalepa/crimedash/filter"
	"github.com/zalepa/crimedash/incident"
	"github.com/zalepa/crimedash/store"
)

const defaultMaxSessions = 1024

// Server is the dashboard HTTP server.
type Server struct {
	*http.Server
	router chi.Router
	kv     store.KV
	cfg    dashboard.Config

	mu       sync.Mutex
	attempt  bool
	loaded   bool
	records  []incident.Record
	sessions *lru.Cache[string, *session]
}

type Option func(*options)

type options struct {
	maxSessions int
}

// WithMaxSessions bounds the number of clients whose dashboards are kept in
// memory. The least recently used client is evicted first.
func WithMaxSessions(n int) Option {
	return func(o *options) { o.maxSessions = n }
}

// NewServer wires the routes. The dataset is attached later with
// LoadDataset; until then every dashboard stays empty.
func NewServer(ctx context.Context, addr string, kv store.KV, cfg dashboard.Config, opts ...Option) (*Server, error) {
	o := options{maxSessions: defaultMaxSessions}
	for _, opt := range opts {
		opt(&o)
	}

	sessions, err := lru.New[string, *session](o.maxSessions)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session cache", goerr.V("size", o.maxSessions))
	}

	router := chi.NewRouter()
	s := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router:   router,
		kv:       kv,
		cfg:      cfg,
		sessions: sessions,
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	router.Get("/health", handleHealth)
	router.Get("/login", s.handleLogin)

	router.Group(func(r chi.Router) {
		r.Use(ClientMiddleware)

		r.Get("/", handleRoot)
		r.Get("/admin", s.handleAdminPage)
		r.Get("/user", s.handleUserPage)
		r.Post("/logout", s.handleLogout)
		r.Get("/charts/{view}/{file}", s.handleChart)

		r.Route("/api", func(r chi.Router) {
			r.Get("/{view}/options", s.handleOptions)
			r.Get("/{view}/snapshot", s.handleSnapshot)
			r.Post("/admin/toggle", s.handleToggle)
			r.Post("/user/filters", s.handleFilters)
			r.Get("/notes", s.handleGetNotes)
			r.Put("/notes", s.handlePutNotes)
		})
	})

	return s, nil
}

// LoadDataset reads the dataset once and shares it read-only with every
// client. A failure is logged and leaves all dashboards empty; there is no
// retry.
func (s *Server) LoadDataset(ctx context.Context, src dashboard.Source, source string) error {
	s.mu.Lock()
	if s.attempt {
		s.mu.Unlock()
		return dashboard.ErrAlreadyLoaded
	}
	s.attempt = true
	s.mu.Unlock()

	records, err := src.Load(ctx, source)
	if err != nil {
		ctxlog.From(ctx).Error("dataset load failed, serving empty dashboards", "source", source, "error", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.loaded = true
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "crimedash",
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		ctxlog.From(r.Context()).Error("failed to encode response", "error", err)
	}
}

// writeError maps tagged errors to a status code and writes a JSON body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	logger := ctxlog.From(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
	} else {
		logger.Debug("request rejected", "error", err, "status", status)
	}

	message := err.Error()
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	}
	writeJSON(w, r, status, map[string]string{"error": message})
}

func errorStatus(err error) int {
	switch {
	case goerr.HasTag(err, filter.ErrTagInvalidInput):
		return http.StatusBadRequest
	case goerr.HasTag(err, dashboard.ErrTagUnknownValue):
		return http.StatusUnprocessableEntity
	case goerr.HasTag(err, dashboard.ErrTagNotReady):
		return http.StatusConflict
	case goerr.HasTag(err, errTagNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

var errTagNotFound = goerr.NewTag("not_found")
