// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/database"
	"chirp/internal/media"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/repository"
	"chirp/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store         *repository.Store
	media         media.Store
	tweetService  *service.TweetService
	likeService   *service.LikeService
	followService *service.FollowService
	userService   *service.UserService
	searchService *service.SearchService
	reconciler    *service.CounterReconciler
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	cache.SetTweetTTL(cfg.TweetCacheTTL())

	return NewServerWithDeps(cfg, db, cache.GetClient(), media.NewLocalStore(cfg))
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, which disables the tweet cache.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, mediaStore media.Store) (*Server, error) {
	middleware.InitMiddleware(cfg)

	store := repository.NewStore(db)
	mapper := service.NewTweetMapper(store)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("chirp-api"),
		store:          store,
		media:          mediaStore,
		tweetService:   service.NewTweetService(store, mediaStore, mapper),
		likeService:    service.NewLikeService(store, mapper),
		followService:  service.NewFollowService(store),
		userService:    service.NewUserService(store),
		searchService:  service.NewSearchService(store, mapper),
		reconciler:     service.NewCounterReconciler(store, cfg.ReconcileInterval()),
	}, nil
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	bodyLimit := s.config.MediaMaxUploadSizeMB
	if bodyLimit <= 0 {
		bodyLimit = media.DefaultMaxUploadSizeMB
	}

	app := fiber.New(fiber.Config{
		AppName:   "Chirp API",
		BodyLimit: (bodyLimit + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, &models.AppError{Code: codeForStatus(fe.Code), Message: fe.Message})
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.media.(*media.LocalStore); ok {
		app.Static(local.BaseURL(), local.Dir())
	}

	api := app.Group("/api", middleware.AuthRequired)

	tweets := api.Group("/tweets")
	tweets.Get("/", s.ListFeed)
	tweets.Post("/", s.CreateTweet)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	tweets.Post("/:id/replies", s.ReplyToTweet)
	tweets.Get("/:id/replies", s.ListReplies)
	tweets.Post("/:id/retweet", s.ToggleRetweet)
	tweets.Post("/:id/quote", s.QuoteTweet)
	tweets.Post("/:id/like", s.ToggleLike)
	tweets.Get("/:id/likes", s.ListLikers)
	tweets.Get("/:id/shadow", s.GetShadow)
	tweets.Get("/:id", s.GetTweet)
	tweets.Patch("/:id", s.UpdateTweet)
	tweets.Delete("/:id", s.DeleteTweet)

	api.Get("/timeline", s.HomeTimeline)

	users := api.Group("/users")
	users.Get("/:id/tweets", s.ListUserTweets)
	users.Get("/:id/likes", s.ListUserLikes)
	users.Post("/:id/follow", s.FollowUser)
	users.Delete("/:id/follow", s.UnfollowUser)
	users.Get("/:id/following/:otherId", s.IsFollowing)
	users.Get("/:id/following", s.ListFollowing)
	users.Get("/:id/followers", s.ListFollowers)
	users.Get("/:id/mutuals", s.ListMutuals)
	users.Get("/:id", s.GetUser)

	search := api.Group("/search")
	search.Get("/hashtag/:tag", s.SearchHashtag)
	search.Get("/", s.Search)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

// Start starts the counter reconciler and the HTTP listener.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.reconciler.Interval > 0 {
		go func() {
			if err := s.reconciler.Run(s.shutdownCtx); err != nil {
				log.Printf("counter reconciler stopped: %v", err)
			}
		}()
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := cache.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
