package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/vente/apiserver/config"
	"github.com/vente/apiserver/internal/db"
	"github.com/vente/apiserver/internal/metrics"
	"github.com/vente/apiserver/internal/mq"
	"github.com/vente/apiserver/internal/services"
	"github.com/vente/apiserver/internal/storage"
	"github.com/vente/apiserver/internal/store"
)

// Server wraps the HTTP server, the router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     logrus.FieldLogger
	db         *sql.DB
	objects    *storage.Storage
	events     *mq.MQ
}

// New opens the database, the optional object storage and event bus, and
// builds the router on top of them.
func New(ctx context.Context, cfg config.Config, logger logrus.FieldLogger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Server{logger: logger, db: dbConn}

	deps := Dependencies{
		Config:  cfg,
		Logger:  logger,
		DB:      dbConn,
		Users:   store.NewUserRepository(dbConn),
		Catalog: services.NewSQLCatalogStore(dbConn),
		Metrics: metrics.New(),
	}

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		s.closeResources()
		return nil, fmt.Errorf("open object storage: %w", err)
	}
	if objects != nil {
		s.objects = objects
		deps.Objects = objects
		logger.WithFields(logrus.Fields{"backend": objects.Backend(), "bucket": objects.Bucket()}).Info("object storage enabled")
	}

	events, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		s.closeResources()
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	if events != nil {
		s.events = events
		deps.Events = events
		logger.WithFields(logrus.Fields{"backend": events.Backend(), "channel": cfg.MQ.Channel}).Info("catalog events enabled")
	}

	router, err := NewRouter(deps)
	if err != nil {
		s.closeResources()
		return nil, err
	}
	s.router = router

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and releases the owned resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.closeResources()
	return err
}

func (s *Server) closeResources() {
	if s.events != nil {
		if err := s.events.Close(); err != nil {
			s.logger.WithError(err).Warn("close event bus")
		}
	}
	if s.objects != nil {
		if err := s.objects.Close(); err != nil {
			s.logger.WithError(err).Warn("close object storage")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
