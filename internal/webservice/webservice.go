// Package webservice provides the read-only HTTP server of the dashboard.
package webservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/chaintracker/chain-tracker/internal/dashboard"
	"github.com/chaintracker/chain-tracker/internal/pulllog"
	"github.com/chaintracker/chain-tracker/internal/registry"
	"github.com/chaintracker/chain-tracker/internal/store"
	"github.com/chaintracker/chain-tracker/internal/webservice/handlers"
	"github.com/chaintracker/chain-tracker/internal/webservice/metrics"
	"github.com/chaintracker/chain-tracker/internal/webservice/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Server is a struct that holds the HTTP server and its configuration.
type Server struct {
	httpServer *http.Server
	rm         registryManager
	log        *slog.Logger

	mu   sync.RWMutex
	addr net.Addr

	// This context is used to interrupt any action.
	// It must be the parent of gracefulCtx.
	ctx    context.Context
	cancel context.CancelFunc

	// This context waits until the server is asked to stop gracefully.
	gracefulCtx    context.Context
	gracefulCancel context.CancelFunc
}

// StaticConfig holds the static configuration for the server.
type StaticConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxHeaderBytes int

	HistoryLimit int

	// RateLimit is the number of API requests allowed per second and client IP. Zero disables it.
	RateLimit float64
	RateBurst int

	ListenHost string
	ListenPort int
}

type registryManager interface {
	Load() error
	Watch(context.Context) (<-chan struct{}, <-chan error, error)
	Sources() []registry.Source
	Analysts() []registry.Analyst
	Research() registry.Research
}

type options struct {
	logger   *slog.Logger
	now      func() time.Time
	registry *prometheus.Registry
}

// Options represents an optional function to override Server default values.
type Options func(*options)

// WithLogger sets the logger of the server.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.logger = l
	}
}

// WithClock sets the clock used to compute the age of the data.
func WithClock(now func() time.Time) Options {
	return func(o *options) {
		o.now = now
	}
}

// New creates a new Server reading the snapshots from st, the pull log from pl and the registries from rm.
func New(ctx context.Context, rm registryManager, st store.Store, pl *pulllog.Log, sc StaticConfig, args ...Options) (*Server, error) {
	opts := options{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range args {
		opt(&opts)
	}
	if opts.registry == nil {
		opts.registry = prometheus.NewRegistry()
		opts.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	// The dashboard still serves the snapshots when a registry is missing or malformed.
	if err := rm.Load(); err != nil {
		opts.logger.Warn("Could not load registries", "err", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	gCtx, gCancel := context.WithCancel(ctx)

	s := &Server{
		rm:  rm,
		log: opts.logger,

		ctx:    ctx,
		cancel: cancel,

		gracefulCtx:    gCtx,
		gracefulCancel: gCancel,
	}

	dash := dashboard.New(st, pl, rm, dashboard.WithClock(opts.now), dashboard.WithLogger(opts.logger))
	if err := opts.registry.Register(metrics.NewHealthCollector(dash)); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to register health metrics: %v", err)
	}

	pages, err := handlers.NewPages(dash, sc.HistoryLimit, opts.logger)
	if err != nil {
		cancel()
		return nil, err
	}
	api := handlers.NewAPI(dash, sc.HistoryLimit, opts.logger)
	mw := metrics.New(opts.registry)
	limit := func(h http.HandlerFunc) http.Handler { return h }
	if sc.RateLimit > 0 {
		limiter := middleware.NewLimiter(rate.Limit(sc.RateLimit), max(sc.RateBurst, 1))
		limit = func(h http.HandlerFunc) http.Handler { return limiter.Limit(h) }
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", mw.Monitor("pages", http.HandlerFunc(pages.Overview)))
	mux.Handle("GET /chain", mw.Monitor("pages", http.HandlerFunc(pages.Chain)))
	mux.Handle("GET /sources", mw.Monitor("pages", http.HandlerFunc(pages.Sources)))
	mux.Handle("GET /analysts", mw.Monitor("pages", http.HandlerFunc(pages.Analysts)))
	mux.Handle("GET /history", mw.Monitor("pages", http.HandlerFunc(pages.History)))
	mux.Handle("GET /brief", mw.Monitor("pages", http.HandlerFunc(pages.Brief)))
	mux.Handle("GET /research", mw.Monitor("pages", http.HandlerFunc(pages.Research)))
	mux.Handle("GET /feed", mw.Monitor("pages", http.HandlerFunc(pages.Feed)))

	mux.Handle("GET /api/overview", mw.Monitor("api", limit(api.Overview)))
	mux.Handle("GET /api/sources", mw.Monitor("api", limit(api.Sources)))
	mux.Handle("GET /api/history", mw.Monitor("api", limit(api.History)))
	mux.Handle("GET /api/chain", mw.Monitor("api", limit(api.Chain)))
	mux.Handle("GET /api/pipeline", mw.Monitor("api", limit(api.Pipeline)))
	mux.Handle("GET /api/feed", mw.Monitor("api", limit(api.Feed)))

	mux.Handle("GET /version", http.HandlerFunc(handlers.VersionHandler))
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:           net.JoinHostPort(sc.ListenHost, fmt.Sprint(sc.ListenPort)),
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		Handler:        withRequestID(opts.logger, http.TimeoutHandler(mux, sc.RequestTimeout, "")),
		MaxHeaderBytes: sc.MaxHeaderBytes,
	}

	return s, nil
}

// Run starts the HTTP server and listens for incoming requests.
// The registries are reloaded whenever their files change.
func (s *Server) Run() error {
	// already asked to quit?
	select {
	case <-s.gracefulCtx.Done():
		return errors.New("server is already shutting down")
	default:
	}

	changes, watchErr, err := s.rm.Watch(s.gracefulCtx)
	if err != nil {
		return fmt.Errorf("failed to start watching registries: %v", err)
	}
	go func() {
		for range changes {
			s.log.Info("Registries reloaded")
		}
	}()

	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("failed to listen on %s: %v", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.addr = l.Addr()
	s.mu.Unlock()
	s.log.Info("Starting server", "addr", l.Addr().String())

	serverErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-s.gracefulCtx.Done():
		return s.shutdown()

	case err := <-serverErr:
		if err != nil {
			s.log.Error("Server encountered error", "err", err)
		}
		s.cancel()
		return err

	case err, ok := <-watchErr:
		if !ok {
			// The watcher stops along with the graceful context.
			return s.shutdown()
		}
		s.log.Error("Registry watcher encountered unrecoverable error", "err", err)
		errC := s.httpServer.Close()
		s.cancel()

		return errors.Join(err, errC)
	}
}

func (s *Server) shutdown() error {
	s.log.Info("Graceful shutdown initiated")
	// use parent ctx so if you call s.cancel() elsewhere it unblocks Shutdown immediately
	if err := s.httpServer.Shutdown(s.ctx); err != nil {
		s.log.Error("Graceful shutdown failed", "err", err)
		return err
	}
	s.log.Info("Server shut down gracefully")
	s.cancel()
	return nil
}

// Addr returns the address the server listens on, once running.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Quit shuts down the HTTP server, gracefully unless force is set.
func (s *Server) Quit(force bool) {
	if force {
		s.httpServer.Close()
		s.cancel()
	} else {
		s.gracefulCancel()
	}
	s.log.Info("Server quit")
}

// withRequestID tags every request with a unique id, echoed in the X-Request-ID header.
func withRequestID(l *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.New().String()
		w.Header().Set("X-Request-ID", reqID)
		l.Debug("Request recv'd", "req_id", reqID, "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(handlers.WithRequestID(r.Context(), reqID)))
	})
}
