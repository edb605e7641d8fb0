// Package server exposes the scoring engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/carbon-match/internal/metrics"
	"github.com/spigell/carbon-match/internal/scoring"
)

const (
	shutdownTimeout = 10 * time.Second
	maxBodyBytes    = 1 << 20
)

type Config struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// CORSOrigins lists allowed origins; "*" allows any.
	CORSOrigins []string
	// MetricsPath is where Prometheus metrics are served when a registry is set.
	MetricsPath string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         5000,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		CORSOrigins:  []string{"*"},
		MetricsPath:  "/metrics",
	}
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

type Server struct {
	config  Config
	engine  *scoring.Engine
	logger  *zap.Logger
	metrics *metrics.Registry

	router  *mux.Router
	handler http.Handler
	http    *http.Server
}

// New builds a Server. The metrics registry may be nil.
func New(cfg Config, engine *scoring.Engine, logger *zap.Logger, reg *metrics.Registry) *Server {
	if engine == nil {
		engine = scoring.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:  cfg,
		engine:  engine,
		logger:  logger,
		metrics: reg,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()

	// Every request passes the chain, including 404 and 405 responses.
	s.handler = s.requestIDMiddleware(s.loggingMiddleware(s.recoveryMiddleware(s.corsMiddleware(s.router))))

	s.http = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.health).Methods(http.MethodGet)

	if s.metrics != nil && s.config.MetricsPath != "" {
		s.router.Handle(s.config.MetricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}

	for _, op := range Operations() {
		s.router.HandleFunc("/api/"+op.Name, s.operation(op)).Methods(http.MethodPost, http.MethodOptions)
	}
	s.router.HandleFunc("/api/calculate-all-scores", s.calculateAll).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/api/test-embedding", s.testEmbedding).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/api/test-gemini", s.testEmbedding).Methods(http.MethodGet, http.MethodOptions)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	})
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting http server", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http on %s: %w", s.http.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Info("shutting down http server")
		return s.http.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
