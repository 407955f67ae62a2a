// Package main runs the dance-platform HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tsdip/backend/config"
	"github.com/tsdip/backend/internal/emaillogs"
	"github.com/tsdip/backend/internal/events"
	"github.com/tsdip/backend/internal/identity"
	"github.com/tsdip/backend/internal/managers"
	"github.com/tsdip/backend/internal/middleware"
	"github.com/tsdip/backend/internal/organizations"
	"github.com/tsdip/backend/internal/permissions"
	"github.com/tsdip/backend/internal/users"
	"github.com/tsdip/backend/pkg/database"
	"github.com/tsdip/backend/pkg/queue"
	"github.com/tsdip/backend/pkg/redis"
	"github.com/tsdip/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jwtService := identity.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	txRunner := database.NewTxRunner(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Permission resolver over the role store.
	roleRepo := permissions.NewRepository(pool)
	resolver := permissions.NewResolver(roleRepo)

	// Users and managers
	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo, jwtService)
	userHandler := users.NewHandler(userService, logger)

	managerRepo := managers.NewRepository(pool)
	managerService := managers.NewService(managerRepo, jwtService)
	managerHandler := managers.NewHandler(managerService, logger)

	// Organizations
	orgRepo := organizations.NewRepository(pool)
	orgService := organizations.NewService(orgRepo, txRunner, resolver, jobQueue, logger)
	orgHandler := organizations.NewHandler(orgService, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventService := events.NewService(eventRepo, orgRepo, txRunner, resolver, logger)
	eventHandler := events.NewHandler(eventService, logger)

	// Email logs (manager surface)
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Public auth
	userGroup := router.Group("/users")
	{
		userGroup.POST("/signup", userHandler.SignUp)
		userGroup.POST("/login", userHandler.Login)
	}
	router.POST("/manager/signup", managerHandler.SignUp)
	router.POST("/manager/login", managerHandler.Login)

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Profile
		api.GET("/me", userHandler.Profile)
		api.PUT("/me", userHandler.UpdateProfile)
		api.GET("/me/orgs", orgHandler.ListMine)
		api.GET("/me/orgs/reviewing", orgHandler.ListReviewing)

		// Organizations
		api.POST("/orgs", orgHandler.Create)
		api.GET("/orgs/:id", orgHandler.Get)
		api.PUT("/orgs/:id", orgHandler.Update)
		api.DELETE("/orgs/:id", orgHandler.Delete)
		api.POST("/orgs/:id/claim", orgHandler.Claim)
		api.GET("/orgs/:id/members", orgHandler.ListMembers)
		api.POST("/orgs/:id/members", orgHandler.InviteMember)
		api.DELETE("/orgs/:id/members/:user_id", orgHandler.RemoveMember)

		// Events
		api.POST("/orgs/:id/events", eventHandler.Create)
		api.GET("/orgs/:id/events", eventHandler.ListByOrg)
		api.GET("/events/:event_id", eventHandler.Get)
		api.PUT("/events/:event_id", eventHandler.Update)
		api.DELETE("/events/:event_id", eventHandler.Delete)
		api.PUT("/events/:event_id/publish", eventHandler.Publish)
		api.PUT("/events/:event_id/unpublish", eventHandler.Unpublish)

		// Ticket fares
		api.POST("/events/:event_id/tickets", eventHandler.AddTicketFare)
		api.PUT("/tickets/:ticket_id", eventHandler.UpdateTicketFare)
		api.DELETE("/tickets/:ticket_id", eventHandler.DeleteTicketFare)
	}

	// Manager surface: API token + JWT + manager actor required.
	manager := router.Group("/manager")
	manager.Use(middleware.APIToken(cfg.APIToken))
	manager.Use(middleware.JWT(jwtService))
	manager.Use(middleware.RequireManager())
	{
		manager.GET("/me", managerHandler.Profile)
		manager.PUT("/orgs/:id/approve", orgHandler.Approve)
		manager.PUT("/events/:event_id/approve", eventHandler.Approve)
		manager.GET("/orgs/:id/emails", emailLogsHandler.ListByOrg)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
