package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/userauth/apiserver/config"
	"github.com/userauth/apiserver/internal/auth"
	"github.com/userauth/apiserver/internal/db"
	"github.com/userauth/apiserver/internal/events"
	"github.com/userauth/apiserver/internal/handlers"
	"github.com/userauth/apiserver/internal/logging"
	"github.com/userauth/apiserver/internal/services"
	"github.com/userauth/apiserver/internal/store"
)

// Server wraps the HTTP server, router and backend handles.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	closers    []io.Closer
	logger     logging.Logger
}

// New constructs a Server: it connects the configured credential store
// and event backend, wires the flows and registers all routes. The
// process must not serve traffic if the store is unreachable or the
// signing secret is missing.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := logging.Default()

	issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLSec)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET is required: %w", err)
	}

	userStore, storeCloser, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	if storeCloser != nil {
		closers = append(closers, storeCloser)
	}

	publisher, err := openPublisher(ctx, cfg)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	if publisher != nil {
		closers = append(closers, publisher)
	}

	userService := services.NewUserService(userStore, publisher, logger)
	authHandler := handlers.NewAuthHandler(userService, issuer, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/", handlers.Index(storeDescription(cfg)))
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		closers:    closers,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown, closing backend handles.
func (s *Server) Shutdown() error {
	closeAll(s.closers)
	return s.httpServer.Close()
}

func openStore(ctx context.Context, cfg config.Config) (store.UserStore, io.Closer, error) {
	switch cfg.Database.Driver {
	case "postgres":
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store.NewPostgresUserStore(conn), conn, nil
	case "mongo":
		client, err := db.OpenMongo(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		mongoStore := store.NewMongoUserStore(client, cfg.Database.MongoDB)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return mongoStore, mongoCloser{client: client}, nil
	case "memory":
		return store.NewMemoryUserStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func openPublisher(ctx context.Context, cfg config.Config) (*events.Publisher, error) {
	switch cfg.Events.Backend {
	case "", "none":
		return nil, nil
	case "rabbitmq":
		backend, err := events.NewRabbitMQClient(cfg.Events.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		return events.NewPublisher(backend), nil
	case "pubsub":
		backend, err := events.NewPubSubClient(ctx, cfg.Events.PubSub)
		if err != nil {
			return nil, fmt.Errorf("connect pubsub: %w", err)
		}
		return events.NewPublisher(backend), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

func storeDescription(cfg config.Config) string {
	switch cfg.Database.Driver {
	case "mongo":
		return fmt.Sprintf("mongo/%s", cfg.Database.MongoDB)
	case "postgres":
		return fmt.Sprintf("postgres/%s", cfg.Database.DBName)
	default:
		return cfg.Database.Driver
	}
}

type mongoCloser struct {
	client interface {
		Disconnect(ctx context.Context) error
	}
}

func (m mongoCloser) Close() error {
	return m.client.Disconnect(context.Background())
}

func closeAll(closers []io.Closer) {
	for _, c := range closers {
		_ = c.Close()
	}
}
