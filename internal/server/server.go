// Package server exposes the item service and the health report over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/cacheaside/internal/health"
	"github.com/unkn0wn-root/cacheaside/internal/item"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Items is the part of item.Service the handlers use.
type Items interface {
	List(ctx context.Context) ([]item.Item, error)
	Get(ctx context.Context, id int64) (item.Item, error)
	Create(ctx context.Context, in item.Input) (item.Item, error)
	Replace(ctx context.Context, id int64, in item.Input) (item.Item, error)
	Delete(ctx context.Context, id int64) error
}

// Checker produces the health report.
type Checker interface {
	Check(ctx context.Context) health.Report
}

type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	items  Items
	health Checker
	log    *zap.Logger
	router *mux.Router
}

func New(items Items, checker Checker, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{items: items, health: checker, log: log}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.accessLog, s.recoverer)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/items", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/items", s.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/items/{id:[0-9]+}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/items/{id:[0-9]+}", s.handleReplace).Methods(http.MethodPut)
	r.HandleFunc("/items/{id:[0-9]+}", s.handleDelete).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("http server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "listen")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
