// Package server exposes the Inkwell REST API and live feed over Fiber.
package server

import (
	"context"
	"fmt"
	"log/slog"

	_ "inkwell/docs" // swagger docs
	"inkwell/internal/auth"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const serviceName = "inkwell-api"

// Server holds all dependencies and provides handlers
type Server struct {
	config          *config.Config
	db              *gorm.DB
	redis           *redis.Client
	app             *fiber.App
	promMiddleware  *fiberprometheus.FiberPrometheus
	shutdownCtx     context.Context
	shutdownFn      context.CancelFunc
	authChain       *auth.Chain
	userRepo        repository.UserRepository
	notifier        *notifications.Notifier
	hub             *notifications.Hub
	featureFlags    *featureflags.Manager
	postService     *service.PostService
	userService     *service.UserService
	categoryService *service.CategoryService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional: without it the cache is bypassed and live events
	// reach only this process's websocket clients.
	redisClient := cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis and optionally
// performs explicit seeding. redisClient may be nil.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if cache.GetClient() != redisClient {
		cache.SetClient(redisClient)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)

	tokens := auth.NewTokenService(cfg.JWTSecret)
	flags := featureflags.NewManager(cfg.FeatureFlags)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(serviceName),
		authChain:      auth.NewChain(tokens, userRepo),
		userRepo:       userRepo,
		notifier:       notifications.NewNotifier(redisClient),
		hub:            notifications.NewHub(),
		featureFlags:   flags,
	}

	events := &feedPublisher{notifier: server.notifier, hub: server.hub, flags: flags, viaRedis: redisClient != nil}
	server.postService = service.NewPostService(postRepo, commentRepo, categoryRepo, events, flags)
	server.userService = service.NewUserService(userRepo, tokens, server.postService, cfg.BcryptCost)
	server.categoryService = service.NewCategoryService(categoryRepo)

	return server, nil
}

// NewApp builds a Fiber app with the server's middleware and routes. Errors
// that escape a handler are answered with the standard envelope.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Inkwell API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			status := models.StatusCode(err)
			if status >= fiber.StatusInternalServerError {
				middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
					slog.String("path", c.Path()), slog.String("error", err.Error()))
			}
			return models.RespondWithError(c, status, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start serves HTTP until Shutdown. With Redis it also subscribes the hub
// to the feed channels for the lifetime of the server.
func (s *Server) Start() error {
	s.shutdownCtx, s.shutdownFn = context.WithCancel(context.Background())
	s.app = s.NewApp()

	if s.redis != nil {
		if err := s.hub.ListenTo(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("feed subscriber failed to start", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown stops the feed first so open websocket handlers can return, then
// drains HTTP and closes the stores.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}
	logFailure := func(what string, err error) {
		if err != nil {
			middleware.Logger.Error("shutdown: "+what, slog.String("error", err.Error()))
		}
	}

	logFailure("close feed hub", s.hub.Shutdown(ctx))
	if s.app != nil {
		logFailure("stop http server", s.app.ShutdownWithContext(ctx))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		logFailure("close database", sqlDB.Close())
	}
	if s.redis != nil {
		logFailure("close redis", s.redis.Close())
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
