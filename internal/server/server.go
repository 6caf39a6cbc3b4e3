package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/uiregistry/internal/config"
	"github.com/vango-dev/uiregistry/internal/contacts"
	"github.com/vango-dev/uiregistry/internal/errors"
	"github.com/vango-dev/uiregistry/internal/registry"
	"github.com/vango-dev/uiregistry/pkg/middleware"
	"github.com/vango-dev/uiregistry/pkg/tablestate"
)

// ContactStore is the persistence the contacts routes need.
type ContactStore interface {
	List(ctx context.Context, state tablestate.State) (*contacts.Page, error)
	Get(ctx context.Context, id string) (*contacts.Contact, error)
	Create(ctx context.Context, in contacts.Input) (*contacts.Contact, error)
	Update(ctx context.Context, id string, in contacts.Input) (*contacts.Contact, error)
	Delete(ctx context.Context, ids []string) (int, error)
	Companies(ctx context.Context) ([]contacts.Company, error)
}

// Server serves the registry API and the contacts table backend.
type Server struct {
	cfg      *config.Config
	registry *registry.Registry
	store    ContactStore
	codec    *tablestate.Codec
	logger   *slog.Logger
	metrics  *middleware.Metrics
	tracer   trace.TracerProvider
	hub      *Hub
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithContacts enables the contacts routes.
func WithContacts(store ContactStore) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics records request metrics into m and serves them at /metrics.
// Without it a fresh collector set is created when telemetry.metrics is on.
func WithMetrics(m *middleware.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracerProvider sets the tracer provider used when telemetry.tracing
// is on. The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Server) {
		s.tracer = tp
	}
}

// New creates a Server.
func New(cfg *config.Config, reg *registry.Registry, opts ...Option) (*Server, error) {
	codec, err := tablestate.NewCodec(
		tablestate.WithDefaultPageSize(cfg.Table.DefaultPageSize),
		tablestate.WithMaxPageSize(cfg.Table.MaxPageSize),
	)
	if err != nil {
		return nil, errors.New("E120").
			WithDetail("Invalid table page sizes: " + err.Error()).
			WithSuggestion("Check table.default_page_size and table.max_page_size")
	}

	s := &Server{
		cfg:      cfg,
		registry: reg,
		codec:    codec,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil && cfg.Telemetry.Metrics {
		s.metrics = middleware.NewMetrics()
	}

	s.hub = NewHub(s.logger)
	if s.metrics != nil {
		s.hub.onCount = s.metrics.SetSubscribers
	}
	reg.OnReload(func(m *registry.Manifest) {
		s.hub.Broadcast(Event{Type: EventRegistryChanged, Name: m.Name, Items: len(m.Items)})
	})

	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the event hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Codec returns the table-state codec built from configuration.
func (s *Server) Codec() *tablestate.Codec {
	return s.codec
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.RequestLogger(s.logger),
		chimw.Recoverer,
	)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	if s.cfg.Telemetry.Tracing {
		opts := []middleware.OTelOption{middleware.WithTracerName(s.cfg.Telemetry.ServiceName)}
		if s.tracer != nil {
			opts = append(opts, middleware.WithTracerProvider(s.tracer))
		}
		r.Use(middleware.OpenTelemetry(opts...))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst))

		r.Route("/registry", func(r chi.Router) {
			r.Get("/", s.handleManifest)
			r.Get("/events", s.hub.ServeHTTP)
			r.Get("/{component}", s.handleItem)
			r.Get("/{component}/tree", s.handleTree)
			r.Get("/{component}/files/*", s.handleFile)
		})

		r.Get("/tablestate", s.handleTableState)

		if s.store != nil {
			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", s.handleListContacts)
				r.Post("/", s.handleCreateContact)
				r.Delete("/", s.handleDeleteContacts)
				r.Get("/{id}", s.handleGetContact)
				r.Patch("/{id}", s.handleUpdateContact)
			})
			r.Get("/companies", s.handleCompanies)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	})
	return r
}

// Serve listens on the configured address until ctx is cancelled, running
// the registry watcher and refresher alongside.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Address(), err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	if _, err := s.registry.Manifest(ctx); err != nil {
		s.logger.Warn("registry not loaded at startup", "error", err)
	}

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: s.cfg.Server.ReadTimeout,
		BaseContext: func(net.Listener) context.Context {
			return egctx
		},
	}

	if dir := s.watchDir(); dir != "" {
		eg.Go(func() error {
			return s.watch(egctx, dir)
		})
	}
	if s.cfg.Registry.S3.Enabled() && s.cfg.Registry.Refresh != "" {
		eg.Go(func() error {
			return s.refresh(egctx, s.cfg.Registry.Refresh)
		})
	}

	eg.Go(func() error {
		s.logger.Info("server listening", "addr", "http://"+ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		timeout := s.cfg.Server.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("shutting down server")
		s.hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// reload re-reads the registry and records the outcome.
func (s *Server) reload(ctx context.Context, reason string) {
	_, err := s.registry.Reload(ctx)
	if s.metrics != nil {
		s.metrics.RecordReload(err)
	}
	if err != nil {
		s.logger.Error("registry reload failed", "reason", reason, "error", err)
		return
	}
	s.logger.Debug("registry reloaded", "reason", reason)
}
