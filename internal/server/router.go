package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/vente/apiserver/config"
	"github.com/vente/apiserver/internal/auth"
	"github.com/vente/apiserver/internal/handlers"
	"github.com/vente/apiserver/internal/logging"
	"github.com/vente/apiserver/internal/metrics"
	"github.com/vente/apiserver/internal/services"
)

const requestTimeout = 60 * time.Second

// Dependencies are the collaborators the router is built from. DB, Objects
// and Events are optional.
type Dependencies struct {
	Config  config.Config
	Logger  logrus.FieldLogger
	DB      handlers.Pinger
	Users   services.UserRepository
	Catalog services.CatalogStore
	Objects services.ObjectStore
	Events  services.Publisher
	Metrics *metrics.Metrics
}

// NewRouter assembles the middleware stack and every API route.
func NewRouter(deps Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if deps.Users == nil || deps.Catalog == nil {
		return nil, errors.New("user and catalog stores are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}

	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	userService := services.NewUserService(deps.Users, auth.NewPasswordHasher(cfg.Auth.BcryptCost))
	resolver := auth.NewResolver(tokens, userService)

	var events *services.EventPublisher
	if deps.Events != nil {
		events = services.NewEventPublisher(deps.Events, cfg.MQ.Channel, logger)
	}
	catalogService := services.NewCatalogService(deps.Catalog, events)

	var imageService *services.ImageService
	if deps.Objects != nil {
		imageService = services.NewImageService(catalogService, deps.Objects, cfg.Storage.KeyPrefix, logger)
	}

	authMiddleware := handlers.Authenticate(resolver)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger),
		middleware.Recoverer,
		m.Instrument,
		corsMiddleware(cfg.CORSOrigins),
		middleware.Timeout(requestTimeout),
	)

	router.Get("/", handlers.Welcome)
	router.Get("/health", handlers.Health(deps.DB))
	router.Handle("/metrics", m.Handler())

	prefix := cfg.APIPrefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	router.Route(prefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, userService, tokens, authMiddleware)
		})
		r.Route("/users", func(r chi.Router) {
			handlers.UserRouter(r, userService, authMiddleware)
		})
		r.Route("/products", func(r chi.Router) {
			handlers.ProductRouter(r, catalogService, imageService, authMiddleware)
		})
	})

	router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write([]byte(`{"detail":"Method Not Allowed"}`))
	})

	return router, nil
}
