package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/contesthub/apiserver/config"
	"github.com/contesthub/apiserver/internal/db"
	"github.com/contesthub/apiserver/internal/handlers"
	"github.com/contesthub/apiserver/internal/mq"
	"github.com/contesthub/apiserver/internal/services"
	"github.com/contesthub/apiserver/internal/storage"
	"github.com/contesthub/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mq         *mq.MQ
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	broker, err := newBroker(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	objectStore, err := newObjectStorage(ctx, cfg)
	if err != nil {
		if broker != nil {
			_ = broker.Close()
		}
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	adminRepo := store.NewAdminRepository(dbConn)
	competitionRepo := store.NewCompetitionRepository(dbConn)
	applicantRepo := store.NewApplicantRepository(dbConn)

	var events services.EventPublisher
	if broker != nil {
		events = broker
	}

	notificationService := services.NewNotificationService(userRepo, events)
	userService := services.NewUserService(userRepo)
	adminService := services.NewAdminService(adminRepo)
	competitionService := services.NewCompetitionService(competitionRepo, userRepo, notificationService)
	feedService := services.NewFeedService(competitionRepo, notificationService, objectStore)
	judgeService := services.NewJudgeService(competitionRepo, userRepo, notificationService)
	applicantService := services.NewApplicantService(applicantRepo, userRepo, notificationService)

	authMiddleware := handlers.RequireAuth(jwtSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, adminService, jwtSecret)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService, authMiddleware)
	})
	router.Route("/competitions", func(r chi.Router) {
		handlers.CompetitionRouter(r, competitionService, userService, authMiddleware)
		r.Route("/{competitionID}/announcements", func(r chi.Router) {
			handlers.AnnouncementRouter(r, feedService, userService, authMiddleware)
		})
		r.Route("/{competitionID}/judges", func(r chi.Router) {
			handlers.JudgeRouter(r, judgeService, authMiddleware)
		})
	})
	router.Route("/host", func(r chi.Router) {
		handlers.HostRouter(r, applicantService, authMiddleware)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, userService, adminService, applicantService, authMiddleware)
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
		db:         dbConn,
		mq:         broker,
	}, nil
}

// newBroker builds the notification-event broker named by the config.
// An empty provider disables event publishing.
func newBroker(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.MQ.Provider {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.MQ.RabbitMQ)
		if err != nil {
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.MQ.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub: %w", err)
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown mq provider %q", cfg.MQ.Provider)
	}
}

// newObjectStorage builds the attachment store named by the config. An
// empty provider disables attachments.
func newObjectStorage(ctx context.Context, cfg config.Config) (*storage.Storage, error) {
	switch cfg.Storage.Provider {
	case "":
		return nil, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Storage.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		return storage.NewStorage(client), nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.Storage.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		return storage.NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.mq != nil {
		_ = s.mq.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
